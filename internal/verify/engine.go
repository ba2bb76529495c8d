// Package verify runs the verification decision pipeline: preprocess,
// anti-spoof gate, embed, similarity decision.
package verify

import (
	"context"
	"errors"

	"github.com/varmalabs/voicegate/internal/antispoof"
	"github.com/varmalabs/voicegate/internal/audio"
	"github.com/varmalabs/voicegate/internal/embedding"
	"github.com/varmalabs/voicegate/internal/profile"
	"github.com/varmalabs/voicegate/pkg/logger"
)

// SimilarityThreshold is the single fixed acceptance threshold for cosine
// similarity between unit-norm embeddings.
const SimilarityThreshold = 0.7

// Preprocessor trims and denoises a raw waveform.
type Preprocessor interface {
	Prepare(raw []float64, sampleRate int) ([]float64, error)
}

// SpoofScorer gates cleaned audio before any embedding work happens.
type SpoofScorer interface {
	Score(samples []float64, sampleRate int) antispoof.Assessment
}

// Embedder produces unit-norm speaker embeddings.
type Embedder interface {
	Embed(ctx context.Context, samples []float64, sampleRate int) ([]float64, error)
}

// ProfileGetter fetches the stored voiceprint for a claimed identity.
type ProfileGetter interface {
	Get(userID string) (*profile.VoiceProfile, error)
}

// Engine is the verification state machine. All collaborators are
// long-lived and shared; construct once at process start.
type Engine struct {
	pre      Preprocessor
	spoof    SpoofScorer
	embedder Embedder
	profiles ProfileGetter
	log      *logger.Logger
}

func NewEngine(pre Preprocessor, spoof SpoofScorer, embedder Embedder, profiles ProfileGetter) *Engine {
	return &Engine{
		pre:      pre,
		spoof:    spoof,
		embedder: embedder,
		profiles: profiles,
		log:      logger.GetLogger(),
	}
}

// Verify decides whether the waveform matches the claimed user's stored
// voiceprint. Every failure path yields a terminal failed Result with a
// reason tag; nothing is retried here.
func (e *Engine) Verify(ctx context.Context, raw []float64, sampleRate int, userID string) Result {
	e.log.Infof("Verifying claim for user %q", userID)

	// 1. Preprocess: trim silence, denoise
	clean, err := e.pre.Prepare(raw, sampleRate)
	if err != nil {
		if errors.Is(err, audio.ErrNoSpeech) {
			e.log.Errorf("No speech detected for %q", userID)
			return rejected(ReasonNoSpeech)
		}
		e.log.Errorf("Invalid audio for %q: %v", userID, err)
		return rejected(ReasonInvalidAudio)
	}

	// 2. Anti-spoof gate. A spoofed sample never reaches the embedding
	// model or any similarity comparison.
	if assessment := e.spoof.Score(clean, sampleRate); assessment.Spoofed {
		e.log.Errorf("Spoofed / replay / mimic voice detected for %q (tally=%d)", userID, assessment.Tally)
		return rejected(ReasonSpoofDetected)
	}
	e.log.Infof("Voice passed anti-spoofing")

	// 3. Embed
	emb, err := e.embedder.Embed(ctx, clean, sampleRate)
	if err != nil {
		e.log.Errorf("Embedding failed for %q: %v", userID, err)
		return rejected(ReasonEmbeddingFailure)
	}

	// 4. Fetch the enrolled profile and decide
	stored, err := e.profiles.Get(userID)
	if err != nil {
		if errors.Is(err, profile.ErrNotEnrolled) {
			e.log.Errorf("User %q not enrolled", userID)
			return rejected(ReasonNotEnrolled)
		}
		e.log.Errorf("Profile lookup failed for %q: %v", userID, err)
		return rejected(ReasonStorageFailure)
	}

	storedVec, err := stored.Vector()
	if err != nil {
		e.log.Errorf("Stored embedding unusable for %q: %v", userID, err)
		return rejected(ReasonStorageFailure)
	}
	// stored embeddings are unit-norm by invariant; renormalize anyway so a
	// hand-edited row cannot skew the similarity
	storedVec, err = embedding.Normalize(storedVec)
	if err != nil {
		e.log.Errorf("Stored embedding for %q has zero norm", userID)
		return rejected(ReasonStorageFailure)
	}
	if len(storedVec) != len(emb) {
		e.log.Errorf("Embedding dimension mismatch for %q: stored %d, got %d", userID, len(storedVec), len(emb))
		return rejected(ReasonEmbeddingFailure)
	}

	similarity := embedding.Cosine(storedVec, emb)
	e.log.Infof("Similarity score: %.3f", similarity)

	if similarity >= SimilarityThreshold {
		e.log.Infof("VERIFIED user %q", userID)
		return verified(similarity)
	}

	e.log.Errorf("NOT VERIFIED user %q (%.3f < %.2f)", userID, similarity, SimilarityThreshold)
	res := rejected(ReasonBelowThreshold)
	res.Similarity = similarity
	return res
}
