package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/varmalabs/voicegate/internal/audio"
	"github.com/varmalabs/voicegate/internal/embedding"
	"github.com/varmalabs/voicegate/internal/profile"
	"github.com/varmalabs/voicegate/internal/verify"
)

type stubVerifier struct {
	lastUserID string
	calls      int
	result     verify.Result
}

func (s *stubVerifier) Verify(ctx context.Context, raw []float64, sampleRate int, userID string) verify.Result {
	s.lastUserID = userID
	s.calls++
	return s.result
}

type stubEnroller struct {
	lastUserID string
	err        error
}

func (s *stubEnroller) Enroll(ctx context.Context, raw []float64, sampleRate int, userID string) (*profile.VoiceProfile, error) {
	s.lastUserID = userID
	if s.err != nil {
		return nil, s.err
	}
	return &profile.VoiceProfile{UserID: userID, SampleCount: 1}, nil
}

type captivePublisher struct {
	results []verify.Result
}

func (p *captivePublisher) Publish(r verify.Result) { p.results = append(p.results, r) }
func (p *captivePublisher) Close()                  {}

func writeTestWAV(t *testing.T, dir, name string) string {
	t.Helper()
	samples := make([]float64, 16000)
	for i := range samples {
		samples[i] = 0.3 * math.Sin(2*math.Pi*440*float64(i)/16000)
	}
	path := filepath.Join(dir, name)
	if err := audio.WriteWAV(path, samples, 16000); err != nil {
		t.Fatalf("Failed to write test wav: %v", err)
	}
	return path
}

func TestHandleFileVerify(t *testing.T) {
	verifier := &stubVerifier{result: verify.Result{Status: verify.StatusVerified, Similarity: 0.85, Timestamp: time.Now()}}
	extra := &captivePublisher{}
	slot := NewResultSlot()
	o := NewOrchestrator(Config{DefaultUserID: "default", Publishers: []Publisher{extra}}, verifier, &stubEnroller{}, slot)

	path := writeTestWAV(t, t.TempDir(), "voice_alice_1724900000.wav")
	o.HandleFile(context.Background(), path)

	if verifier.lastUserID != "alice" {
		t.Errorf("Verifier called for %q, expected alice", verifier.lastUserID)
	}
	got := slot.Get()
	if got.Status != verify.StatusVerified || got.Similarity != 0.85 {
		t.Errorf("Slot holds %+v, expected the verifier result", got)
	}
	if len(extra.results) != 1 || extra.results[0].Status != verify.StatusVerified {
		t.Errorf("Extra publisher got %+v, expected one verified result", extra.results)
	}
}

func TestHandleFileEnroll(t *testing.T) {
	enroller := &stubEnroller{}
	slot := NewResultSlot()
	o := NewOrchestrator(Config{DefaultUserID: "default"}, &stubVerifier{}, enroller, slot)

	path := writeTestWAV(t, t.TempDir(), "enroll_bob_1724900000.wav")
	o.HandleFile(context.Background(), path)

	if enroller.lastUserID != "bob" {
		t.Errorf("Enroller called for %q, expected bob", enroller.lastUserID)
	}
	if got := slot.Get(); got.Status != verify.StatusVerified {
		t.Errorf("Slot holds %q after enrollment, expected the acknowledgment", got.Status)
	}
}

func TestHandleFileUnreadableAudio(t *testing.T) {
	slot := NewResultSlot()
	o := NewOrchestrator(Config{DefaultUserID: "default"}, &stubVerifier{}, &stubEnroller{}, slot)

	path := filepath.Join(t.TempDir(), "voice_alice_1.wav")
	if err := os.WriteFile(path, []byte("not audio at all"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	o.HandleFile(context.Background(), path)

	got := slot.Get()
	if got.Status != verify.StatusFailed || got.Reason != verify.ReasonInvalidAudio {
		t.Errorf("Got status=%q reason=%q, expected invalid-audio failure", got.Status, got.Reason)
	}
}

func TestHandleFileEnrollFailure(t *testing.T) {
	enroller := &stubEnroller{err: fmt.Errorf("preparing audio: %w", audio.ErrNoSpeech)}
	slot := NewResultSlot()
	o := NewOrchestrator(Config{DefaultUserID: "default"}, &stubVerifier{}, enroller, slot)

	path := writeTestWAV(t, t.TempDir(), "enroll_bob_2.wav")
	o.HandleFile(context.Background(), path)

	got := slot.Get()
	if got.Status != verify.StatusFailed || got.Reason != verify.ReasonNoSpeech {
		t.Errorf("Got status=%q reason=%q, expected no-speech failure", got.Status, got.Reason)
	}
}

func TestEnrollFailureReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("wrap: %w", audio.ErrNoSpeech), verify.ReasonNoSpeech},
		{fmt.Errorf("wrap: %w", audio.ErrInvalidAudio), verify.ReasonInvalidAudio},
		{fmt.Errorf("wrap: %w", embedding.ErrEmbeddingFailure), verify.ReasonEmbeddingFailure},
		{errors.New("db locked"), verify.ReasonStorageFailure},
	}
	for _, tt := range tests {
		if got := enrollFailureReason(tt.err); got != tt.want {
			t.Errorf("enrollFailureReason(%v) = %q, expected %q", tt.err, got, tt.want)
		}
	}
}

func TestClaimDedupesInFlight(t *testing.T) {
	o := NewOrchestrator(Config{}, &stubVerifier{}, &stubEnroller{}, NewResultSlot())
	if !o.claim("/inbox/a.wav") {
		t.Error("First claim refused")
	}
	if o.claim("/inbox/a.wav") {
		t.Error("Claim accepted while the same path is in flight")
	}
	if !o.claim("/inbox/b.wav") {
		t.Error("Claim for a different path refused")
	}

	o.release("/inbox/a.wav")
	if !o.claim("/inbox/a.wav") {
		t.Error("Reused inbox path refused after handling finished")
	}
}

func TestReusedInboxPathDispatchedAgain(t *testing.T) {
	verifier := &stubVerifier{result: verify.Result{Status: verify.StatusVerified, Similarity: 0.9, Timestamp: time.Now()}}
	slot := NewResultSlot()
	o := NewOrchestrator(Config{DefaultUserID: "default"}, verifier, &stubEnroller{}, slot)

	// two uploads from the same user can land at the same protocol
	// filename; each Create event runs the full claim/handle/release cycle
	path := writeTestWAV(t, t.TempDir(), "voice_alice_20260829.wav")
	for i := 0; i < 2; i++ {
		if !o.claim(path) {
			t.Fatalf("Submission %d refused at a previously seen path", i+1)
		}
		o.HandleFile(context.Background(), path)
		o.release(path)
	}

	if verifier.calls != 2 {
		t.Errorf("Verifier ran %d times, expected both submissions dispatched", verifier.calls)
	}
}
