package dsp

import "math"

// Pitch detection range for speech.
const (
	MinPitchHz = 50
	MaxPitchHz = 400
)

const (
	pitchFrameSize = 2048
	pitchHopSize   = 512

	// minimum normalized autocorrelation for a frame to count as pitched
	voicingThreshold = 0.5
	// frames quieter than this RMS carry no usable pitch
	pitchEnergyFloor = 1e-4
)

// PitchTrack estimates a fundamental frequency per frame by normalized
// autocorrelation. Unvoiced or silent frames are reported as 0.
func PitchTrack(samples []float64, sampleRate int) []float64 {
	if len(samples) < pitchFrameSize {
		return nil
	}

	minLag := sampleRate / MaxPitchHz
	maxLag := sampleRate / MinPitchHz
	if maxLag >= pitchFrameSize {
		maxLag = pitchFrameSize - 1
	}

	track := make([]float64, 0, 1+(len(samples)-pitchFrameSize)/pitchHopSize)
	for start := 0; start+pitchFrameSize <= len(samples); start += pitchHopSize {
		frame := samples[start : start+pitchFrameSize]
		track = append(track, framePitch(frame, sampleRate, minLag, maxLag))
	}
	return track
}

func framePitch(frame []float64, sampleRate, minLag, maxLag int) float64 {
	var energy float64
	for _, s := range frame {
		energy += s * s
	}
	if math.Sqrt(energy/float64(len(frame))) < pitchEnergyFloor {
		return 0
	}

	bestLag := 0
	bestCorr := 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var corr float64
		for i := 0; i+lag < len(frame); i++ {
			corr += frame[i] * frame[i+lag]
		}
		corr /= energy
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}

	if bestLag == 0 || bestCorr < voicingThreshold {
		return 0
	}
	return float64(sampleRate) / float64(bestLag)
}
