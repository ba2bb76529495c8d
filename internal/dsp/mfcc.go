package dsp

import "math"

// NumMelFilters is the size of the mel filterbank used for MFCCs.
const NumMelFilters = 26

func hzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

func melToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// melFilterbank builds triangular filters over nBins positive-frequency
// bins, spaced evenly on the mel scale from 0 to sampleRate/2.
func melFilterbank(nFilters, nBins, sampleRate, windowSize int) [][]float64 {
	maxMel := hzToMel(float64(sampleRate) / 2)
	freqRes := float64(sampleRate) / float64(windowSize)

	// filter edge center frequencies, nFilters+2 points
	centers := make([]float64, nFilters+2)
	for i := range centers {
		centers[i] = melToHz(maxMel * float64(i) / float64(nFilters+1))
	}

	bank := make([][]float64, nFilters)
	for f := 0; f < nFilters; f++ {
		filt := make([]float64, nBins)
		lo, mid, hi := centers[f], centers[f+1], centers[f+2]
		for bin := 0; bin < nBins; bin++ {
			hz := float64(bin) * freqRes
			switch {
			case hz <= lo || hz >= hi:
				// outside the triangle
			case hz < mid:
				filt[bin] = (hz - lo) / (mid - lo)
			default:
				filt[bin] = (hi - hz) / (hi - mid)
			}
		}
		bank[f] = filt
	}
	return bank
}

// MFCC computes nCoeff mel-frequency cepstral coefficients per STFT frame:
// power spectrogram -> mel filterbank -> log -> DCT-II. Returns
// coeffs[frameIdx][coeffIdx].
func MFCC(samples []float64, sampleRate, nCoeff int) ([][]float64, error) {
	spec, err := Spectrogram(samples, WindowSize, HopSize)
	if err != nil {
		return nil, err
	}
	if len(spec) == 0 {
		return nil, nil
	}

	nBins := len(spec[0])
	bank := melFilterbank(NumMelFilters, nBins, sampleRate, WindowSize)

	const eps = 1e-10
	out := make([][]float64, len(spec))
	logMel := make([]float64, NumMelFilters)
	for t, frame := range spec {
		for f, filt := range bank {
			var energy float64
			for bin, mag := range frame {
				energy += mag * mag * filt[bin]
			}
			logMel[f] = math.Log(energy + eps)
		}

		// DCT-II over the log mel energies
		coeffs := make([]float64, nCoeff)
		for k := 0; k < nCoeff; k++ {
			var sum float64
			for f := 0; f < NumMelFilters; f++ {
				sum += logMel[f] * math.Cos(math.Pi*float64(k)*(float64(f)+0.5)/float64(NumMelFilters))
			}
			coeffs[k] = sum
		}
		out[t] = coeffs
	}
	return out, nil
}

// Delta returns the frame-to-frame difference of a coefficient matrix.
// The result has one fewer frame than the input.
func Delta(coeffs [][]float64) [][]float64 {
	if len(coeffs) < 2 {
		return nil
	}
	out := make([][]float64, len(coeffs)-1)
	for t := 1; t < len(coeffs); t++ {
		d := make([]float64, len(coeffs[t]))
		for k := range d {
			d[k] = coeffs[t][k] - coeffs[t-1][k]
		}
		out[t-1] = d
	}
	return out
}
