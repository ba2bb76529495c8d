package audio

import "math"

// Interval is a half-open [Start, End) range of sample indices.
type Interval struct {
	Start int
	End   int
}

// Len returns the number of samples covered by the interval.
func (iv Interval) Len() int { return iv.End - iv.Start }

// VoiceActivityDetector finds the voiced regions of a waveform. Intervals
// are returned in temporal order and never overlap.
type VoiceActivityDetector interface {
	SplitVoiced(samples []float64, sampleRate int, thresholdDB float64) []Interval
}

// EnergyVAD classifies frames by RMS energy relative to the loudest frame:
// a frame is voiced when it sits within thresholdDB of the peak. Adjacent
// voiced frames merge into one interval.
type EnergyVAD struct {
	FrameSize int
	HopSize   int
}

// NewEnergyVAD returns a detector with the standard 2048/512 framing.
func NewEnergyVAD() *EnergyVAD {
	return &EnergyVAD{FrameSize: 2048, HopSize: 512}
}

func (v *EnergyVAD) SplitVoiced(samples []float64, sampleRate int, thresholdDB float64) []Interval {
	if len(samples) == 0 {
		return nil
	}

	frameSize := v.FrameSize
	hopSize := v.HopSize
	if frameSize <= 0 {
		frameSize = 2048
	}
	if hopSize <= 0 {
		hopSize = 512
	}

	// per-frame RMS; a trailing partial frame still counts
	var rms []float64
	for start := 0; start < len(samples); start += hopSize {
		end := start + frameSize
		if end > len(samples) {
			end = len(samples)
		}
		var energy float64
		for _, s := range samples[start:end] {
			energy += s * s
		}
		rms = append(rms, math.Sqrt(energy/float64(end-start)))
		if end == len(samples) {
			break
		}
	}

	var peak float64
	for _, r := range rms {
		if r > peak {
			peak = r
		}
	}
	if peak == 0 {
		return nil
	}

	// voiced when frame level is within thresholdDB of the peak
	var intervals []Interval
	inVoiced := false
	var start int
	for t, r := range rms {
		db := 20 * math.Log10(r/peak+1e-10)
		voiced := db > -thresholdDB
		switch {
		case voiced && !inVoiced:
			inVoiced = true
			start = t * hopSize
		case !voiced && inVoiced:
			inVoiced = false
			intervals = append(intervals, clampInterval(start, t*hopSize+frameSize, len(samples)))
		}
	}
	if inVoiced {
		intervals = append(intervals, clampInterval(start, len(samples), len(samples)))
	}

	return mergeOverlaps(intervals)
}

func clampInterval(start, end, n int) Interval {
	if end > n {
		end = n
	}
	return Interval{Start: start, End: end}
}

// mergeOverlaps collapses intervals whose frame padding made them touch.
func mergeOverlaps(intervals []Interval) []Interval {
	if len(intervals) < 2 {
		return intervals
	}
	merged := intervals[:1]
	for _, iv := range intervals[1:] {
		last := &merged[len(merged)-1]
		if iv.Start <= last.End {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// VoicedFraction returns the share of samples covered by the detector's
// voiced intervals at the given threshold. Used by the anti-spoof silence
// rule.
func VoicedFraction(vad VoiceActivityDetector, samples []float64, sampleRate int, thresholdDB float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var voiced int
	for _, iv := range vad.SplitVoiced(samples, sampleRate, thresholdDB) {
		voiced += iv.Len()
	}
	return float64(voiced) / float64(len(samples))
}
