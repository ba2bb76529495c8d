// Package antispoof implements the heuristic replay/synthetic-voice
// detector: six acoustic statistics combined into a weighted tally.
package antispoof

import (
	"strings"

	"github.com/varmalabs/voicegate/internal/audio"
	"github.com/varmalabs/voicegate/internal/dsp"
	"github.com/varmalabs/voicegate/pkg/logger"
)

// Rule trigger thresholds and weights. A waveform is classified spoofed
// when the summed weight of triggered rules reaches SpoofThreshold.
const (
	EnergyVarianceMax    = 0.0005 // variance of squared amplitude below this is too flat
	VoicedFractionMin    = 0.98   // voiced share above this means no natural pauses
	SilenceThresholdDB   = 25     // relative VAD threshold for the silence rule
	PitchVarianceMin     = 15.0   // pitch track variance below this is monotone
	RolloffMeanMinHz     = 3000.0 // 85% rolloff persistently below this suggests replay
	RolloffPercent       = 0.85
	CentroidVarianceMin  = 100000.0 // centroid variance below this is unnaturally stable
	MFCCDeltaVarianceMin = 2.0      // mean per-coefficient delta variance
	NumMFCC              = 13

	SpoofThreshold = 4
	MaxTally       = 10
)

// Rule weights, keyed by the rule names reported in Assessment.Triggered.
const (
	weightEnergy   = 1
	weightSilence  = 1
	weightPitch    = 1
	weightRolloff  = 2
	weightCentroid = 2
	weightMFCC     = 3
)

// Assessment is the ephemeral outcome of one spoof check. It is computed
// fresh per verification attempt and never persisted.
type Assessment struct {
	Spoofed   bool
	Tally     int
	Triggered []string
}

// Scorer evaluates the six anti-spoof rules over a cleaned waveform.
// It is stateless apart from diagnostic logging.
type Scorer struct {
	vad audio.VoiceActivityDetector
	log *logger.Logger
}

func NewScorer(vad audio.VoiceActivityDetector) *Scorer {
	return &Scorer{vad: vad, log: logger.GetLogger()}
}

// Score runs every rule on the full waveform and returns the combined
// verdict. Rules are independent; each contributes its fixed weight once.
func (s *Scorer) Score(samples []float64, sampleRate int) Assessment {
	var a Assessment

	// energy: variance of the squared amplitude
	energy := make([]float64, len(samples))
	for i, x := range samples {
		energy[i] = x * x
	}
	energyVar := dsp.Variance(energy)
	if energyVar < EnergyVarianceMax {
		a.add("energy", weightEnergy)
	}

	// silence: too continuous, no natural pauses
	voicedFrac := audio.VoicedFraction(s.vad, samples, sampleRate, SilenceThresholdDB)
	if voicedFrac > VoicedFractionMin {
		a.add("silence", weightSilence)
	}

	// pitch: a monotone track and a missing track are distinct triggers
	// with the same weight
	pitchVals := nonzero(dsp.PitchTrack(samples, sampleRate))
	var pitchVar float64
	if len(pitchVals) == 0 {
		a.add("pitch", weightPitch)
	} else {
		pitchVar = dsp.Variance(pitchVals)
		if pitchVar < PitchVarianceMin {
			a.add("pitch", weightPitch)
		}
	}

	// rolloff, centroid, and mfcc-delta need at least one full analysis
	// window. Audio too short to produce a spectral frame counts as a
	// trigger for each, the same way a missing pitch track triggers the
	// pitch rule.
	var rolloffMean, centroidVar, mfccVar float64
	if len(samples) < dsp.WindowSize {
		a.add("rolloff", weightRolloff)
		a.add("centroid", weightCentroid)
		a.add("mfcc_var", weightMFCC)
	} else {
		spec, err := dsp.Spectrogram(samples, dsp.WindowSize, dsp.HopSize)
		if err != nil {
			s.log.Warnf("Anti-spoof spectrogram failed: %v. Spectral rules skipped", err)
		} else {
			rolloffMean = dsp.Mean(dsp.SpectralRolloff(spec, sampleRate, dsp.WindowSize, RolloffPercent))
			if rolloffMean < RolloffMeanMinHz {
				a.add("rolloff", weightRolloff)
			}

			centroidVar = dsp.Variance(dsp.SpectralCentroid(spec, sampleRate, dsp.WindowSize))
			if centroidVar < CentroidVarianceMin {
				a.add("centroid", weightCentroid)
			}
		}

		// mfcc-delta: synthetic voices have unnaturally smooth transitions
		if coeffs, err := dsp.MFCC(samples, sampleRate, NumMFCC); err != nil {
			s.log.Warnf("Anti-spoof MFCC failed: %v. Rule skipped", err)
		} else {
			mfccVar = meanDeltaVariance(coeffs)
			if mfccVar < MFCCDeltaVarianceMin {
				a.add("mfcc_var", weightMFCC)
			}
		}
	}

	a.Spoofed = a.Tally >= SpoofThreshold

	s.log.Debugf("Anti-spoof values: EnergyVar=%.6f VoicedFrac=%.2f PitchVar=%.2f Rolloff=%.0f CentroidVar=%.0f MFCCVar=%.4f",
		energyVar, voicedFrac, pitchVar, rolloffMean, centroidVar, mfccVar)
	triggered := "none"
	if len(a.Triggered) > 0 {
		triggered = strings.Join(a.Triggered, ", ")
	}
	s.log.Infof("Anti-spoofing analysis score: %d | Checks triggered: %s", a.Tally, triggered)

	return a
}

func (a *Assessment) add(rule string, weight int) {
	a.Tally += weight
	a.Triggered = append(a.Triggered, rule)
}

func nonzero(xs []float64) []float64 {
	out := xs[:0:0]
	for _, x := range xs {
		if x > 0 {
			out = append(out, x)
		}
	}
	return out
}

// meanDeltaVariance averages, over the cepstral coefficients, the variance
// of each coefficient's frame-to-frame delta.
func meanDeltaVariance(coeffs [][]float64) float64 {
	deltas := dsp.Delta(coeffs)
	if len(deltas) == 0 {
		return 0
	}
	nCoeff := len(deltas[0])
	perCoeff := make([]float64, 0, nCoeff)
	track := make([]float64, len(deltas))
	for k := 0; k < nCoeff; k++ {
		for t := range deltas {
			track[t] = deltas[t][k]
		}
		perCoeff = append(perCoeff, dsp.Variance(track))
	}
	return dsp.Mean(perCoeff)
}
