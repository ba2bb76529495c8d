package pipeline

import (
	"path/filepath"
	"strings"
)

// Operation is the intent carried by an inbox submission.
type Operation string

const (
	OpVerify Operation = "verify"
	OpEnroll Operation = "enroll"
)

// Request is one parsed inbox submission.
type Request struct {
	Op     Operation
	UserID string
	Path   string
}

// ParseRequest derives intent and target user id from an inbox filename.
// Protocol: voice_{userid}_{timestamp}.wav verifies, enroll_{userid}_{...}
// enrolls. A filename without a parseable user id falls back to the
// configured default identity; verification is the default intent.
func ParseRequest(path, defaultUserID string) Request {
	req := Request{Op: OpVerify, UserID: defaultUserID, Path: path}

	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.Split(name, "_")
	if len(parts) < 2 || parts[1] == "" {
		return req
	}

	switch parts[0] {
	case "enroll":
		req.Op = OpEnroll
		req.UserID = parts[1]
	case "voice":
		req.UserID = parts[1]
	}
	return req
}

// IsAudioFile reports whether the path looks like a submission the
// orchestrator should pick up.
func IsAudioFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".mp3":
		return true
	}
	return false
}
