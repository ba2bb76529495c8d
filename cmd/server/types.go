package main

import "time"

// LoginRequest is the body for POST /login.
type LoginRequest struct {
	UserID string `json:"user_id"`
}

// LoginResponse confirms an enrolled identity.
type LoginResponse struct {
	Message string `json:"message"`
}

// UploadResponse acknowledges an inbox submission.
type UploadResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
}

// EnrollResponse reports a completed enrollment.
type EnrollResponse struct {
	Message     string `json:"message"`
	UserID      string `json:"user_id"`
	SampleCount int    `json:"sample_count"`
}

// StatusResponse is the polled verification status. Similarity is present
// only for live results.
type StatusResponse struct {
	Status     string  `json:"status"`
	Similarity float64 `json:"similarity,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	Timestamp  int64   `json:"timestamp,omitempty"`
}

// ProfileDTO represents a profile in API responses.
type ProfileDTO struct {
	UserID      string    `json:"user_id"`
	SampleCount int       `json:"sample_count"`
	Status      string    `json:"status"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListProfilesResponse is the response for GET /api/profiles.
type ListProfilesResponse struct {
	Profiles []ProfileDTO `json:"profiles"`
	Count    int          `json:"count"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
