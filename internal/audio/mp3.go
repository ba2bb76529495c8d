package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// ReadAudio decodes a submission by extension. WAV and MP3 are the two
// formats the inbox accepts.
func ReadAudio(path string) ([]float64, int, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return ReadMP3(path)
	default:
		return ReadWAV(path)
	}
}

// ReadMP3 decodes an MP3 file into mono float64 samples in [-1, 1]. The
// decoder always emits 16-bit little-endian stereo PCM; the two channels
// are averaged down to mono.
func ReadMP3(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}
	if len(data) < 4 {
		return nil, 0, fmt.Errorf("%w: empty mp3 stream", ErrInvalidAudio)
	}

	samples := make([]float64, 0, len(data)/4)
	for i := 0; i+3 < len(data); i += 4 {
		left := int16(uint16(data[i]) | uint16(data[i+1])<<8)
		right := int16(uint16(data[i+2]) | uint16(data[i+3])<<8)
		samples = append(samples, (float64(left)+float64(right))/2/32768)
	}
	return samples, dec.SampleRate(), nil
}
