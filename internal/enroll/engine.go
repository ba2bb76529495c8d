// Package enroll builds and updates voice profiles from cleaned audio.
package enroll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/varmalabs/voicegate/internal/audio"
	"github.com/varmalabs/voicegate/internal/blob"
	"github.com/varmalabs/voicegate/internal/profile"
	"github.com/varmalabs/voicegate/internal/verify"
	"github.com/varmalabs/voicegate/pkg/logger"
)

// ProfileStore is the read-modify-write surface the engine needs.
type ProfileStore interface {
	Get(userID string) (*profile.VoiceProfile, error)
	Upsert(p *profile.VoiceProfile) error
}

// Engine runs the enrollment pipeline: preprocess, embed, merge, persist.
// Collaborators are long-lived and shared across requests.
type Engine struct {
	pre      verify.Preprocessor
	embedder verify.Embedder
	profiles ProfileStore
	blobs    blob.Store
	log      *logger.Logger

	// per-user locks serialize the read-modify-write of count/embedding so
	// two concurrent enrollments cannot drop a sample's contribution
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewEngine(pre verify.Preprocessor, embedder verify.Embedder, profiles ProfileStore, blobs blob.Store) *Engine {
	return &Engine{
		pre:      pre,
		embedder: embedder,
		profiles: profiles,
		blobs:    blobs,
		log:      logger.GetLogger(),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (e *Engine) userLock(userID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[userID] = l
	}
	return l
}

// Enroll folds one audio sample into the user's voiceprint. First
// enrollment creates the profile with count 1; later enrollments merge via
// the running mean and bump the count. The cleaned audio is persisted as an
// immutable blob; a blob failure is logged and reported distinctly but does
// not fail the enrollment.
func (e *Engine) Enroll(ctx context.Context, raw []float64, sampleRate int, userID string) (*profile.VoiceProfile, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}
	e.log.Infof("Enrollment started for %q", userID)

	// 1. Preprocess
	clean, err := e.pre.Prepare(raw, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("preparing audio for %s: %w", userID, err)
	}

	// 2. Embed
	fresh, err := e.embedder.Embed(ctx, clean, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("embedding audio for %s: %w", userID, err)
	}

	// 3. Persist the cleaned audio write-once. Non-fatal on failure so the
	// profile metadata can still be saved; operators reconcile via the log.
	blobID := e.storeCleanAudio(clean, sampleRate, userID)

	// 4. Merge and persist under the per-user lock
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := e.profiles.Get(userID)
	switch {
	case errors.Is(err, profile.ErrNotEnrolled):
		existing = nil
	case err != nil:
		return nil, fmt.Errorf("fetching profile for %s: %w", userID, err)
	}

	merged := fresh
	sampleCount := 1
	if existing != nil {
		old, err := existing.Vector()
		if err != nil {
			return nil, fmt.Errorf("decoding existing profile for %s: %w", userID, err)
		}
		e.log.Infof("Merging with existing voice profile (%d samples)", existing.SampleCount)
		merged, err = profile.Merge(old, existing.SampleCount, fresh)
		if err != nil {
			return nil, fmt.Errorf("merging profile for %s: %w", userID, err)
		}
		sampleCount = existing.SampleCount + 1
		// a failed blob write must not erase the reference saved by an
		// earlier enrollment
		if blobID == "" {
			blobID = existing.BlobID
		}
	}

	p := &profile.VoiceProfile{
		UserID:      userID,
		SampleCount: sampleCount,
		BlobID:      blobID,
		Status:      profile.StatusEnrolled,
	}
	if err := p.SetVector(merged); err != nil {
		return nil, err
	}
	if err := e.profiles.Upsert(p); err != nil {
		return nil, fmt.Errorf("saving profile for %s: %w", userID, err)
	}

	e.log.Infof("Enrollment successful for %q (samples=%d)", userID, sampleCount)
	return p, nil
}

func (e *Engine) storeCleanAudio(clean []float64, sampleRate int, userID string) string {
	if e.blobs == nil {
		return ""
	}
	wavBytes, err := audio.EncodeWAVBytes(clean, sampleRate)
	if err != nil {
		e.log.Warnf("Encoding enrollment audio for %q failed: %v. Profile will have no audio blob", userID, err)
		return ""
	}
	blobID, err := e.blobs.Put(wavBytes, blob.Metadata{
		UserID:      userID,
		Filename:    fmt.Sprintf("%s_enrollment.wav", userID),
		ContentType: "audio/wav",
		Kind:        "enrollment_voice",
		CreatedAt:   time.Now(),
	})
	if err != nil {
		e.log.Warnf("Blob save failed for %q: %v. Profile will have no audio blob", userID, err)
		return ""
	}
	return blobID
}
