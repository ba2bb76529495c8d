package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// TargetSampleRate is the canonical processing rate for the pipeline.
const TargetSampleRate = 16000

// ErrInvalidAudio marks empty or structurally corrupt input audio.
var ErrInvalidAudio = errors.New("invalid audio")

type wavFormat struct {
	audioFormat   uint16
	numChannels   uint16
	sampleRate    uint32
	bitsPerSample uint16
}

// ReadWAV reads a 16-bit PCM WAV file and returns mono samples normalized
// to [-1,1] plus the sample rate. Stereo input is downmixed by averaging.
// Does not assume a canonical 44-byte header; chunks are scanned.
func ReadWAV(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	var riff, waveID [4]byte
	var fileSize uint32
	if err := binary.Read(f, binary.LittleEndian, &riff); err != nil {
		return nil, 0, fmt.Errorf("%w: reading RIFF header: %v", ErrInvalidAudio, err)
	}
	if err := binary.Read(f, binary.LittleEndian, &fileSize); err != nil {
		return nil, 0, fmt.Errorf("%w: reading RIFF size: %v", ErrInvalidAudio, err)
	}
	if err := binary.Read(f, binary.LittleEndian, &waveID); err != nil {
		return nil, 0, fmt.Errorf("%w: reading WAVE id: %v", ErrInvalidAudio, err)
	}
	if string(riff[:]) != "RIFF" || string(waveID[:]) != "WAVE" {
		return nil, 0, fmt.Errorf("%w: not a WAV/RIFF file", ErrInvalidAudio)
	}

	format, data, err := scanChunks(f)
	if err != nil {
		return nil, 0, err
	}

	if format.audioFormat != 1 {
		return nil, 0, fmt.Errorf("%w: only PCM supported", ErrInvalidAudio)
	}
	if format.bitsPerSample != 16 {
		return nil, 0, fmt.Errorf("%w: only 16-bit supported", ErrInvalidAudio)
	}

	raw := make([]int16, len(data)/2)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, raw); err != nil {
		return nil, 0, fmt.Errorf("%w: decoding PCM samples: %v", ErrInvalidAudio, err)
	}

	const scale = 1.0 / 32768.0
	var samples []float64
	switch format.numChannels {
	case 1:
		samples = make([]float64, len(raw))
		for i, s := range raw {
			samples[i] = float64(s) * scale
		}
	case 2:
		frames := len(raw) / 2
		samples = make([]float64, frames)
		for i := 0; i < frames; i++ {
			l := float64(raw[2*i]) * scale
			r := float64(raw[2*i+1]) * scale
			samples[i] = (l + r) * 0.5
		}
	default:
		return nil, 0, fmt.Errorf("%w: unsupported channel count %d", ErrInvalidAudio, format.numChannels)
	}

	if len(samples) == 0 {
		return nil, 0, fmt.Errorf("%w: no samples", ErrInvalidAudio)
	}
	return samples, int(format.sampleRate), nil
}

func scanChunks(f *os.File) (*wavFormat, []byte, error) {
	var format *wavFormat
	var data []byte

	for format == nil || data == nil {
		var chunkID [4]byte
		var chunkSize uint32

		if err := binary.Read(f, binary.LittleEndian, &chunkID); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("%w: reading chunk header: %v", ErrInvalidAudio, err)
		}
		if err := binary.Read(f, binary.LittleEndian, &chunkSize); err != nil {
			return nil, nil, fmt.Errorf("%w: reading chunk size: %v", ErrInvalidAudio, err)
		}

		switch string(chunkID[:]) {
		case "fmt ":
			var fm wavFormat
			var byteRate uint32
			var blockAlign uint16
			for _, field := range []any{&fm.audioFormat, &fm.numChannels, &fm.sampleRate, &byteRate, &blockAlign, &fm.bitsPerSample} {
				if err := binary.Read(f, binary.LittleEndian, field); err != nil {
					return nil, nil, fmt.Errorf("%w: reading fmt chunk: %v", ErrInvalidAudio, err)
				}
			}
			if extra := int64(chunkSize) - 16; extra > 0 {
				if _, err := f.Seek(extra, io.SeekCurrent); err != nil {
					return nil, nil, fmt.Errorf("%w: seeking past fmt extras: %v", ErrInvalidAudio, err)
				}
			}
			format = &fm
		case "data":
			data = make([]byte, chunkSize)
			if _, err := io.ReadFull(f, data); err != nil {
				return nil, nil, fmt.Errorf("%w: reading data chunk: %v", ErrInvalidAudio, err)
			}
		default:
			// LIST, INFO, junk and friends
			if _, err := f.Seek(int64(chunkSize), io.SeekCurrent); err != nil {
				return nil, nil, fmt.Errorf("%w: skipping chunk: %v", ErrInvalidAudio, err)
			}
		}

		// odd chunk sizes carry a pad byte
		if chunkSize%2 == 1 {
			if _, err := f.Seek(1, io.SeekCurrent); err != nil {
				return nil, nil, fmt.Errorf("%w: seeking pad byte: %v", ErrInvalidAudio, err)
			}
		}
	}

	if format == nil {
		return nil, nil, fmt.Errorf("%w: fmt chunk not found", ErrInvalidAudio)
	}
	if data == nil {
		return nil, nil, fmt.Errorf("%w: data chunk not found", ErrInvalidAudio)
	}
	return format, data, nil
}

// WriteWAV writes mono float samples in [-1,1] as a 16-bit PCM WAV file.
func WriteWAV(path string, samples []float64, sampleRate int) error {
	if len(samples) == 0 {
		return fmt.Errorf("%w: no samples to write", ErrInvalidAudio)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, len(samples)),
	}
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		buf.Data[i] = int(s * 32767)
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encoding WAV: %w", err)
	}
	return enc.Close()
}

// EncodeWAVBytes renders samples to an in-memory WAV, used when persisting
// cleaned enrollment audio to the blob store.
func EncodeWAVBytes(samples []float64, sampleRate int) ([]byte, error) {
	tmp, err := os.CreateTemp("", "voicegate-*.wav")
	if err != nil {
		return nil, err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := WriteWAV(tmpPath, samples, sampleRate); err != nil {
		return nil, err
	}
	return os.ReadFile(tmpPath)
}
