package verify

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/varmalabs/voicegate/internal/antispoof"
	"github.com/varmalabs/voicegate/internal/audio"
	"github.com/varmalabs/voicegate/internal/embedding"
	"github.com/varmalabs/voicegate/internal/profile"
)

type stubPre struct {
	err error
}

func (s *stubPre) Prepare(raw []float64, sampleRate int) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return raw, nil
}

type stubSpoof struct {
	spoofed bool
}

func (s *stubSpoof) Score(samples []float64, sampleRate int) antispoof.Assessment {
	if s.spoofed {
		return antispoof.Assessment{Spoofed: true, Tally: 7, Triggered: []string{"energy", "centroid"}}
	}
	return antispoof.Assessment{Tally: 1, Triggered: []string{"silence"}}
}

type stubEmbedder struct {
	vec []float64
	err error
}

func (s *stubEmbedder) Embed(ctx context.Context, samples []float64, sampleRate int) ([]float64, error) {
	return s.vec, s.err
}

type stubProfiles struct {
	p   *profile.VoiceProfile
	err error
}

func (s *stubProfiles) Get(userID string) (*profile.VoiceProfile, error) {
	return s.p, s.err
}

func enrolledProfile(t *testing.T, vec []float64) *profile.VoiceProfile {
	t.Helper()
	p := &profile.VoiceProfile{UserID: "alice", SampleCount: 1, Status: profile.StatusEnrolled}
	if err := p.SetVector(vec); err != nil {
		t.Fatalf("SetVector failed: %v", err)
	}
	return p
}

func TestVerifyMatch(t *testing.T) {
	stored := enrolledProfile(t, []float64{1, 0, 0})
	// cos(30 deg) ~= 0.866, comfortably above the threshold
	attempt := []float64{math.Cos(math.Pi / 6), math.Sin(math.Pi / 6), 0}

	e := NewEngine(&stubPre{}, &stubSpoof{}, &stubEmbedder{vec: attempt}, &stubProfiles{p: stored})
	res := e.Verify(context.Background(), []float64{0.1, 0.2}, 16000, "alice")

	if res.Status != StatusVerified {
		t.Fatalf("Status = %q, expected verified (reason=%q)", res.Status, res.Reason)
	}
	if math.Abs(res.Similarity-math.Cos(math.Pi/6)) > 1e-9 {
		t.Errorf("Similarity = %v, expected ~0.866", res.Similarity)
	}
	if res.Timestamp.IsZero() {
		t.Error("Result timestamp not set")
	}
}

func TestVerifyBelowThreshold(t *testing.T) {
	stored := enrolledProfile(t, []float64{1, 0, 0})
	e := NewEngine(&stubPre{}, &stubSpoof{}, &stubEmbedder{vec: []float64{0, 1, 0}}, &stubProfiles{p: stored})
	res := e.Verify(context.Background(), []float64{0.1}, 16000, "alice")

	if res.Status != StatusFailed || res.Reason != ReasonBelowThreshold {
		t.Fatalf("Expected below-threshold failure, got status=%q reason=%q", res.Status, res.Reason)
	}
	if res.Similarity != 0 {
		// orthogonal vectors: the reported similarity is the real score
		t.Errorf("Similarity = %v, expected 0 for orthogonal embeddings", res.Similarity)
	}
}

func TestVerifyExactThresholdAccepts(t *testing.T) {
	stored := enrolledProfile(t, []float64{1, 0})
	sim := SimilarityThreshold
	attempt := []float64{sim, math.Sqrt(1 - sim*sim)}

	e := NewEngine(&stubPre{}, &stubSpoof{}, &stubEmbedder{vec: attempt}, &stubProfiles{p: stored})
	res := e.Verify(context.Background(), []float64{0.1}, 16000, "alice")

	if res.Status != StatusVerified {
		t.Errorf("Similarity exactly at threshold must verify, got status=%q reason=%q", res.Status, res.Reason)
	}
}

func TestVerifyNoSpeech(t *testing.T) {
	e := NewEngine(&stubPre{err: audio.ErrNoSpeech}, &stubSpoof{}, &stubEmbedder{}, &stubProfiles{})
	res := e.Verify(context.Background(), nil, 16000, "alice")
	if res.Status != StatusFailed || res.Reason != ReasonNoSpeech {
		t.Errorf("Expected no-speech failure, got status=%q reason=%q", res.Status, res.Reason)
	}
}

func TestVerifyInvalidAudio(t *testing.T) {
	e := NewEngine(&stubPre{err: errors.New("truncated frame")}, &stubSpoof{}, &stubEmbedder{}, &stubProfiles{})
	res := e.Verify(context.Background(), nil, 16000, "alice")
	if res.Status != StatusFailed || res.Reason != ReasonInvalidAudio {
		t.Errorf("Expected invalid-audio failure, got status=%q reason=%q", res.Status, res.Reason)
	}
}

func TestVerifySpoofDetected(t *testing.T) {
	embedder := &stubEmbedder{vec: []float64{1, 0, 0}}
	e := NewEngine(&stubPre{}, &stubSpoof{spoofed: true}, embedder, &stubProfiles{})
	res := e.Verify(context.Background(), []float64{0.1}, 16000, "alice")
	if res.Status != StatusFailed || res.Reason != ReasonSpoofDetected {
		t.Errorf("Expected spoof-detected failure, got status=%q reason=%q", res.Status, res.Reason)
	}
}

func TestVerifyEmbeddingFailure(t *testing.T) {
	e := NewEngine(&stubPre{}, &stubSpoof{}, &stubEmbedder{err: embedding.ErrEmbeddingFailure}, &stubProfiles{})
	res := e.Verify(context.Background(), []float64{0.1}, 16000, "alice")
	if res.Status != StatusFailed || res.Reason != ReasonEmbeddingFailure {
		t.Errorf("Expected embedding-failure, got status=%q reason=%q", res.Status, res.Reason)
	}
}

func TestVerifyNotEnrolled(t *testing.T) {
	e := NewEngine(&stubPre{}, &stubSpoof{}, &stubEmbedder{vec: []float64{1, 0}}, &stubProfiles{err: profile.ErrNotEnrolled})
	res := e.Verify(context.Background(), []float64{0.1}, 16000, "ghost")
	if res.Status != StatusFailed || res.Reason != ReasonNotEnrolled {
		t.Errorf("Expected not-enrolled failure, got status=%q reason=%q", res.Status, res.Reason)
	}
	if res.Similarity != 0 {
		t.Errorf("Similarity = %v for an unenrolled user, expected 0", res.Similarity)
	}
}

func TestVerifyStorageFailure(t *testing.T) {
	e := NewEngine(&stubPre{}, &stubSpoof{}, &stubEmbedder{vec: []float64{1, 0}}, &stubProfiles{err: errors.New("disk io error")})
	res := e.Verify(context.Background(), []float64{0.1}, 16000, "alice")
	if res.Status != StatusFailed || res.Reason != ReasonStorageFailure {
		t.Errorf("Expected storage-failure, got status=%q reason=%q", res.Status, res.Reason)
	}
}

func TestVerifyDimensionMismatch(t *testing.T) {
	stored := enrolledProfile(t, []float64{1, 0, 0})
	e := NewEngine(&stubPre{}, &stubSpoof{}, &stubEmbedder{vec: []float64{1, 0}}, &stubProfiles{p: stored})
	res := e.Verify(context.Background(), []float64{0.1}, 16000, "alice")
	if res.Status != StatusFailed || res.Reason != ReasonEmbeddingFailure {
		t.Errorf("Expected embedding-failure on dimension mismatch, got status=%q reason=%q", res.Status, res.Reason)
	}
}
