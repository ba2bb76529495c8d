// Package embedding wraps the opaque speaker-embedding model and enforces
// the unit-norm invariant on everything it hands out.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// DefaultDim is the vector size produced by the ECAPA-TDNN family of
// speaker models.
const DefaultDim = 192

// ErrEmbeddingFailure marks a collaborator error or an unusable vector
// (zero norm, wrong shape).
var ErrEmbeddingFailure = errors.New("embedding failure")

// Encoder is the opaque external model: waveform in, raw vector out.
type Encoder interface {
	Encode(ctx context.Context, samples []float64, sampleRate int) ([]float64, error)
}

// Normalizer wraps an Encoder and guarantees every returned vector is a
// fresh unit-norm copy of the expected dimension.
type Normalizer struct {
	enc Encoder
	dim int // 0 disables the dimension check
}

func NewNormalizer(enc Encoder, dim int) *Normalizer {
	return &Normalizer{enc: enc, dim: dim}
}

// Embed runs the model and normalizes its output. Zero vectors are
// rejected rather than silently producing NaN.
func (n *Normalizer) Embed(ctx context.Context, samples []float64, sampleRate int) ([]float64, error) {
	raw, err := n.enc.Encode(ctx, samples, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailure, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: model returned an empty vector", ErrEmbeddingFailure)
	}
	if n.dim > 0 && len(raw) != n.dim {
		return nil, fmt.Errorf("%w: expected %d dimensions, got %d", ErrEmbeddingFailure, n.dim, len(raw))
	}

	unit, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	return unit, nil
}

// Normalize returns a new vector scaled to unit L2 norm. A zero vector is
// an error.
func Normalize(v []float64) ([]float64, error) {
	norm := math.Sqrt(Dot(v, v))
	if norm == 0 {
		return nil, fmt.Errorf("%w: zero vector cannot be normalized", ErrEmbeddingFailure)
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out, nil
}

// Dot returns the dot product of two equal-length vectors.
func Dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Cosine returns the cosine similarity of two unit-norm vectors, which is
// just their dot product, a value in [-1, 1].
func Cosine(a, b []float64) float64 {
	return Dot(a, b)
}
