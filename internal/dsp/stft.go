package dsp

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// Analysis defaults shared by the feature extractors.
const (
	WindowSize = 1024
	HopSize    = 256
)

// Hamming returns a Hamming window of length n.
func Hamming(n int) []float64 {
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// STFTComplex computes the short-time FFT and returns the full complex
// spectrum per frame: frames[frameIdx][freqBin].
func STFTComplex(samples []float64, windowSize, hopSize int, window []float64) ([][]complex128, error) {
	if len(window) != windowSize {
		return nil, errors.New("window length must equal windowSize")
	}
	if len(samples) < windowSize {
		return nil, errors.New("input shorter than window size")
	}

	frames := make([][]complex128, 0, 1+(len(samples)-windowSize)/hopSize)
	frame := make([]float64, windowSize)
	for start := 0; start+windowSize <= len(samples); start += hopSize {
		copy(frame, samples[start:start+windowSize])
		for i := 0; i < windowSize; i++ {
			frame[i] *= window[i]
		}
		frames = append(frames, fft.FFTReal(frame))
	}
	return frames, nil
}

// Magnitudes converts complex frames into a time-major magnitude
// spectrogram over the positive frequencies only.
func Magnitudes(frames [][]complex128) [][]float64 {
	spec := make([][]float64, len(frames))
	for t, frame := range frames {
		half := len(frame) / 2
		mag := make([]float64, half)
		for i := 0; i < half; i++ {
			mag[i] = cmplx.Abs(frame[i])
		}
		spec[t] = mag
	}
	return spec
}

// Spectrogram is the STFT magnitude convenience wrapper used by the
// feature extractors. A nil window builds a Hamming window.
func Spectrogram(samples []float64, windowSize, hopSize int) ([][]float64, error) {
	if windowSize == 0 {
		windowSize = WindowSize
	}
	if hopSize == 0 {
		hopSize = HopSize
	}
	frames, err := STFTComplex(samples, windowSize, hopSize, Hamming(windowSize))
	if err != nil {
		return nil, err
	}
	return Magnitudes(frames), nil
}

// OverlapAdd reconstructs a time signal of length n from modified complex
// STFT frames, compensating for the analysis window. The inverse of
// STFTComplex for frames produced with the same window and hop.
func OverlapAdd(frames [][]complex128, windowSize, hopSize int, window []float64, n int) []float64 {
	out := make([]float64, n)
	norm := make([]float64, n)

	for t, frame := range frames {
		start := t * hopSize
		td := fft.IFFT(frame)
		for i := 0; i < windowSize && start+i < n; i++ {
			out[start+i] += real(td[i]) * window[i]
			norm[start+i] += window[i] * window[i]
		}
	}

	for i := range out {
		if norm[i] > 1e-10 {
			out[i] /= norm[i]
		}
	}
	return out
}

// Mean returns the arithmetic mean of xs, 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Variance returns the population variance of xs, 0 for an empty slice.
func Variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := Mean(xs)
	var sum float64
	for _, x := range xs {
		d := x - mean
		sum += d * d
	}
	return sum / float64(len(xs))
}
