// Package profile owns voiceprint persistence and the multi-sample merge.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/varmalabs/voicegate/internal/embedding"
)

// StatusEnrolled is the only profile status this core writes. Deletion is
// an administrative action outside the pipeline.
const StatusEnrolled = "enrolled"

// ErrNotEnrolled is returned when a claimed user id has no stored profile.
var ErrNotEnrolled = errors.New("user not enrolled")

// VoiceProfile is a user's stored voiceprint. The embedding is always kept
// in unit-norm form.
type VoiceProfile struct {
	UserID      string `gorm:"primaryKey;type:varchar(64)"`
	Embedding   []byte `gorm:"type:blob;not null" json:"-"`
	Dim         int    `json:"embedding_dim"`
	SampleCount int    `json:"sample_count"`
	BlobID      string `gorm:"index:idx_blob_id" json:"voice_file_id,omitempty"`
	Status      string `json:"status"`
	UpdatedAt   time.Time
}

// Vector decodes the stored embedding.
func (p *VoiceProfile) Vector() ([]float64, error) {
	var v []float64
	if err := json.Unmarshal(p.Embedding, &v); err != nil {
		return nil, fmt.Errorf("decoding stored embedding for %s: %w", p.UserID, err)
	}
	return v, nil
}

// SetVector encodes and stores the embedding vector.
func (p *VoiceProfile) SetVector(v []float64) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding embedding for %s: %w", p.UserID, err)
	}
	p.Embedding = data
	p.Dim = len(v)
	return nil
}

// Merge folds a fresh unit-norm embedding into an existing profile vector
// via a running mean: (old*n + fresh)/(n+1), renormalized. The intermediate
// unnormalized average is never returned, only its unit-norm form.
func Merge(old []float64, sampleCount int, fresh []float64) ([]float64, error) {
	if len(old) != len(fresh) {
		return nil, fmt.Errorf("embedding dimension mismatch: %d vs %d", len(old), len(fresh))
	}
	if sampleCount < 1 {
		return nil, fmt.Errorf("invalid sample count %d", sampleCount)
	}

	n := float64(sampleCount)
	avg := make([]float64, len(old))
	for i := range avg {
		avg[i] = (old[i]*n + fresh[i]) / (n + 1)
	}
	return embedding.Normalize(avg)
}
