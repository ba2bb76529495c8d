package embedding

import (
	"context"
	"errors"
	"math"
	"testing"
)

type stubEncoder struct {
	vec []float64
	err error
}

func (s *stubEncoder) Encode(ctx context.Context, samples []float64, sampleRate int) ([]float64, error) {
	return s.vec, s.err
}

func TestNormalizeUnitNorm(t *testing.T) {
	out, err := Normalize([]float64{3, 4})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if math.Abs(out[0]-0.6) > 1e-12 || math.Abs(out[1]-0.8) > 1e-12 {
		t.Errorf("Expected [0.6 0.8], got %v", out)
	}
	if norm := math.Sqrt(Dot(out, out)); math.Abs(norm-1) > 1e-12 {
		t.Errorf("Norm = %v, expected 1", norm)
	}
}

func TestNormalizeRejectsZeroVector(t *testing.T) {
	if _, err := Normalize([]float64{0, 0, 0}); !errors.Is(err, ErrEmbeddingFailure) {
		t.Errorf("Expected ErrEmbeddingFailure for zero vector, got %v", err)
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := []float64{2, 0}
	if _, err := Normalize(in); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if in[0] != 2 {
		t.Errorf("Input vector mutated: %v", in)
	}
}

func TestEmbedNormalizesEncoderOutput(t *testing.T) {
	n := NewNormalizer(&stubEncoder{vec: []float64{0, 5, 0}}, 3)
	out, err := n.Embed(context.Background(), []float64{0.1}, 16000)
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if out[1] != 1 || out[0] != 0 || out[2] != 0 {
		t.Errorf("Expected unit vector [0 1 0], got %v", out)
	}
}

func TestEmbedWrapsEncoderError(t *testing.T) {
	n := NewNormalizer(&stubEncoder{err: errors.New("model offline")}, 0)
	if _, err := n.Embed(context.Background(), nil, 16000); !errors.Is(err, ErrEmbeddingFailure) {
		t.Errorf("Expected ErrEmbeddingFailure, got %v", err)
	}
}

func TestEmbedRejectsWrongDimension(t *testing.T) {
	n := NewNormalizer(&stubEncoder{vec: []float64{1, 2}}, 3)
	if _, err := n.Embed(context.Background(), nil, 16000); !errors.Is(err, ErrEmbeddingFailure) {
		t.Errorf("Expected dimension mismatch to fail, got %v", err)
	}
}

func TestEmbedRejectsEmptyVector(t *testing.T) {
	n := NewNormalizer(&stubEncoder{vec: []float64{}}, 0)
	if _, err := n.Embed(context.Background(), nil, 16000); !errors.Is(err, ErrEmbeddingFailure) {
		t.Errorf("Expected empty vector to fail, got %v", err)
	}
}

func TestCosine(t *testing.T) {
	a := []float64{1, 0, 0}
	b := []float64{0, 1, 0}
	if sim := Cosine(a, a); math.Abs(sim-1) > 1e-12 {
		t.Errorf("Self similarity = %v, expected 1", sim)
	}
	if sim := Cosine(a, b); sim != 0 {
		t.Errorf("Orthogonal similarity = %v, expected 0", sim)
	}
	if Cosine(a, b) != Cosine(b, a) {
		t.Error("Cosine is not symmetric")
	}
}
