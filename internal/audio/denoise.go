package audio

import (
	"errors"
	"math/cmplx"
	"sort"

	"github.com/varmalabs/voicegate/internal/dsp"
)

// NoiseReducer removes stationary background noise from a waveform. A
// failed reduction is recoverable: callers fall back to the input audio.
type NoiseReducer interface {
	Reduce(samples []float64, sampleRate int) ([]float64, error)
}

// SpectralGate is a classic spectral-gating noise reducer: it estimates a
// per-bin noise floor from the quietest frames and attenuates every frame's
// spectrum toward that floor before resynthesis.
type SpectralGate struct {
	// PropDecrease scales how much of the estimated noise is subtracted,
	// 0 = no-op, 1 = full subtraction.
	PropDecrease float64
}

// NewSpectralGate returns a gate with the standard 0.7 reduction.
func NewSpectralGate() *SpectralGate {
	return &SpectralGate{PropDecrease: 0.7}
}

const noiseQuantile = 0.1 // fraction of quietest frames used for the floor

func (g *SpectralGate) Reduce(samples []float64, sampleRate int) ([]float64, error) {
	if len(samples) < dsp.WindowSize {
		return nil, errors.New("spectral gate: input shorter than analysis window")
	}

	window := dsp.Hamming(dsp.WindowSize)
	frames, err := dsp.STFTComplex(samples, dsp.WindowSize, dsp.HopSize, window)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, errors.New("spectral gate: no analysis frames")
	}

	nBins := len(frames[0])

	// frame loudness ordering to find the quietest frames
	type frameEnergy struct {
		idx    int
		energy float64
	}
	energies := make([]frameEnergy, len(frames))
	for t, frame := range frames {
		var e float64
		for _, c := range frame {
			e += real(c)*real(c) + imag(c)*imag(c)
		}
		energies[t] = frameEnergy{idx: t, energy: e}
	}
	sort.Slice(energies, func(i, j int) bool { return energies[i].energy < energies[j].energy })

	nQuiet := int(float64(len(frames)) * noiseQuantile)
	if nQuiet < 1 {
		nQuiet = 1
	}

	// per-bin noise floor = mean magnitude over the quietest frames
	floor := make([]float64, nBins)
	for _, fe := range energies[:nQuiet] {
		for bin, c := range frames[fe.idx] {
			floor[bin] += cmplx.Abs(c)
		}
	}
	for bin := range floor {
		floor[bin] /= float64(nQuiet)
	}

	// subtract the scaled floor from each frame, preserving phase
	prop := g.PropDecrease
	if prop <= 0 || prop > 1 {
		prop = 0.7
	}
	for _, frame := range frames {
		for bin, c := range frame {
			mag := cmplx.Abs(c)
			reduced := mag - prop*floor[bin]
			if reduced < 0 {
				reduced = 0
			}
			if mag > 0 {
				frame[bin] = c * complex(reduced/mag, 0)
			}
		}
	}

	return dsp.OverlapAdd(frames, dsp.WindowSize, dsp.HopSize, window, len(samples)), nil
}
