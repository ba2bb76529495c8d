package verify

import "time"

// Status of a verification result as seen by polling consumers.
type Status string

const (
	StatusVerified Status = "verified"
	StatusFailed   Status = "failed"
	StatusWaiting  Status = "waiting"
)

// Rejection reasons. None of them are retried automatically; the caller
// decides whether to resubmit.
const (
	ReasonNoSpeech         = "no-speech"
	ReasonSpoofDetected    = "spoof-detected"
	ReasonEmbeddingFailure = "embedding-failure"
	ReasonNotEnrolled      = "not-enrolled"
	ReasonBelowThreshold   = "below-threshold"
	ReasonStorageFailure   = "storage-failure"
	ReasonInvalidAudio     = "invalid-audio"
)

// Result is the terminal outcome of one verification attempt. Similarity
// is 0 whenever the pipeline rejected before computing it.
type Result struct {
	Status     Status    `json:"status"`
	Similarity float64   `json:"similarity"`
	Reason     string    `json:"reason,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func rejected(reason string) Result {
	return Result{Status: StatusFailed, Reason: reason, Timestamp: time.Now()}
}

func verified(similarity float64) Result {
	return Result{Status: StatusVerified, Similarity: similarity, Timestamp: time.Now()}
}
