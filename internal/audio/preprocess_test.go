package audio

import (
	"errors"
	"testing"
)

type stubVAD struct {
	intervals []Interval
}

func (s *stubVAD) SplitVoiced(samples []float64, sampleRate int, thresholdDB float64) []Interval {
	return s.intervals
}

type identityReducer struct{}

func (identityReducer) Reduce(samples []float64, sampleRate int) ([]float64, error) {
	return samples, nil
}

type failingReducer struct{}

func (failingReducer) Reduce(samples []float64, sampleRate int) ([]float64, error) {
	return nil, errors.New("boom")
}

func TestPrepareNoSpeech(t *testing.T) {
	pre := NewPreprocessor(&stubVAD{}, identityReducer{})

	_, err := pre.Prepare(make([]float64, 16000), 16000)
	if !errors.Is(err, ErrNoSpeech) {
		t.Fatalf("Expected ErrNoSpeech, got %v", err)
	}
}

func TestPrepareEmptyInput(t *testing.T) {
	pre := NewPreprocessor(&stubVAD{}, identityReducer{})

	_, err := pre.Prepare(nil, 16000)
	if !errors.Is(err, ErrInvalidAudio) {
		t.Fatalf("Expected ErrInvalidAudio, got %v", err)
	}
}

func TestPrepareConcatenatesInOrder(t *testing.T) {
	raw := make([]float64, 100)
	for i := range raw {
		raw[i] = float64(i)
	}
	vad := &stubVAD{intervals: []Interval{{Start: 10, End: 20}, {Start: 50, End: 80}}}
	pre := NewPreprocessor(vad, identityReducer{})

	clean, err := pre.Prepare(raw, 16000)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	if len(clean) != 40 {
		t.Fatalf("Expected 40 samples (sum of interval lengths), got %d", len(clean))
	}
	if len(clean) > len(raw) {
		t.Error("Output longer than input")
	}
	// order preserved: first interval then second
	if clean[0] != 10 || clean[9] != 19 || clean[10] != 50 || clean[39] != 79 {
		t.Error("Voiced intervals not concatenated in temporal order")
	}
}

func TestPrepareDenoiseFallback(t *testing.T) {
	raw := make([]float64, 100)
	for i := range raw {
		raw[i] = 0.5
	}
	vad := &stubVAD{intervals: []Interval{{Start: 0, End: 100}}}
	pre := NewPreprocessor(vad, failingReducer{})

	clean, err := pre.Prepare(raw, 16000)
	if err != nil {
		t.Fatalf("Denoise failure must be recoverable, got %v", err)
	}
	if len(clean) != 100 {
		t.Fatalf("Expected un-denoised voiced audio back, got %d samples", len(clean))
	}
	for i, s := range clean {
		if s != 0.5 {
			t.Fatalf("Sample %d altered on fallback path: %f", i, s)
		}
	}
}
