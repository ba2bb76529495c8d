package audio

import (
	"errors"
	"fmt"

	"github.com/varmalabs/voicegate/pkg/logger"
)

// ErrNoSpeech is returned when the detector finds no voiced audio at all.
var ErrNoSpeech = errors.New("no speech detected")

// VADThresholdDB is the relative threshold used when trimming silence.
const VADThresholdDB = 30

// Preprocessor turns a raw waveform into the canonical clean waveform:
// silence trimmed, voiced intervals concatenated in order, denoised.
type Preprocessor struct {
	vad     VoiceActivityDetector
	reducer NoiseReducer
	log     *logger.Logger
}

func NewPreprocessor(vad VoiceActivityDetector, reducer NoiseReducer) *Preprocessor {
	return &Preprocessor{vad: vad, reducer: reducer, log: logger.GetLogger()}
}

// Prepare fails with ErrNoSpeech when no voiced intervals exist. A failed
// noise reduction is not fatal: the un-denoised voiced audio is returned.
func (p *Preprocessor) Prepare(raw []float64, sampleRate int) ([]float64, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty waveform", ErrInvalidAudio)
	}

	intervals := p.vad.SplitVoiced(raw, sampleRate, VADThresholdDB)
	if len(intervals) == 0 {
		return nil, ErrNoSpeech
	}

	var total int
	for _, iv := range intervals {
		total += iv.Len()
	}
	speech := make([]float64, 0, total)
	for _, iv := range intervals {
		speech = append(speech, raw[iv.Start:iv.End]...)
	}
	p.log.Debugf("VAD kept %d/%d samples across %d intervals", total, len(raw), len(intervals))

	clean, err := p.reducer.Reduce(speech, sampleRate)
	if err != nil {
		p.log.Warnf("Noise reduction failed: %v. Using voiced audio as-is", err)
		return speech, nil
	}
	return clean, nil
}
