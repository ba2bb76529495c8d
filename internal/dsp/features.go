package dsp

// Per-frame spectral descriptors computed from a magnitude spectrogram.
// All take spectrogram[frameIdx][freqBin] with positive frequencies only,
// produced by an STFT of windowSize at the given sample rate.

// SpectralCentroid returns the magnitude-weighted mean frequency (Hz) of
// each frame. Frames with no energy yield 0.
func SpectralCentroid(spec [][]float64, sampleRate, windowSize int) []float64 {
	freqRes := float64(sampleRate) / float64(windowSize)
	out := make([]float64, len(spec))
	for t, frame := range spec {
		var num, den float64
		for bin, mag := range frame {
			num += float64(bin) * freqRes * mag
			den += mag
		}
		if den > 0 {
			out[t] = num / den
		}
	}
	return out
}

// SpectralRolloff returns, per frame, the frequency (Hz) below which
// rollPercent of the spectral energy is concentrated.
func SpectralRolloff(spec [][]float64, sampleRate, windowSize int, rollPercent float64) []float64 {
	freqRes := float64(sampleRate) / float64(windowSize)
	out := make([]float64, len(spec))
	for t, frame := range spec {
		var total float64
		for _, mag := range frame {
			total += mag * mag
		}
		if total == 0 {
			continue
		}
		target := rollPercent * total
		var cum float64
		for bin, mag := range frame {
			cum += mag * mag
			if cum >= target {
				out[t] = float64(bin) * freqRes
				break
			}
		}
	}
	return out
}
