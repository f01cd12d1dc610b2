// Package wav parses RIFF/WAVE containers and re-encodes them as canonical
// 16-bit mono PCM.
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	FormatPCM        uint16 = 1
	FormatIEEEFloat  uint16 = 3
	formatExtensible uint16 = 0xFFFE

	headerSize = 44
)

var (
	ErrNotWAV      = errors.New("invalid WAV file")
	ErrNoSamples   = errors.New("no audio samples")
	ErrUnsupported = errors.New("unsupported WAV encoding")
)

// Header is the canonical 44-byte layout written by Encode.
type Header struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

type Format struct {
	AudioFormat   uint16
	Channels      int
	SampleRate    int
	BitsPerSample int
}

func (f Format) frameSize() int {
	return f.Channels * f.BitsPerSample / 8
}

// Audio is a parsed container: its format and the raw data chunk.
type Audio struct {
	Format Format
	Data   []byte
}

func (a *Audio) Frames() int {
	fs := a.Format.frameSize()
	if fs == 0 {
		return 0
	}
	return len(a.Data) / fs
}

func (a *Audio) Duration() time.Duration {
	if a.Format.SampleRate == 0 {
		return 0
	}
	return time.Duration(a.Frames()) * time.Second / time.Duration(a.Format.SampleRate)
}

// Decode walks the RIFF chunks of data, skipping everything except fmt and data.
func Decode(data []byte) (*Audio, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("%w: need at least 12 bytes, got %d", ErrNotWAV, len(data))
	}
	if string(data[0:4]) != "RIFF" {
		return nil, fmt.Errorf("%w: missing RIFF header", ErrNotWAV)
	}
	if string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: missing WAVE format", ErrNotWAV)
	}

	var (
		format    *Format
		audioData []byte
	)

	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		end := body + size
		if end > len(data) || end < body {
			// Recorders that stream to disk often leave the data size unpatched.
			if id != "data" {
				return nil, fmt.Errorf("%w: chunk %q overruns file", ErrNotWAV, id)
			}
			end = len(data)
		}

		switch id {
		case "fmt ":
			f, err := parseFormat(data[body:end])
			if err != nil {
				return nil, err
			}
			format = f
		case "data":
			if format == nil {
				return nil, fmt.Errorf("%w: data chunk before fmt chunk", ErrNotWAV)
			}
			audioData = data[body:end]
		}

		if audioData != nil {
			break
		}

		offset = end
		if size%2 == 1 {
			offset++
		}
	}

	if format == nil {
		return nil, fmt.Errorf("%w: missing fmt chunk", ErrNotWAV)
	}
	if audioData == nil {
		return nil, fmt.Errorf("%w: missing data chunk", ErrNotWAV)
	}

	a := &Audio{Format: *format, Data: audioData}
	if a.Frames() == 0 {
		return nil, ErrNoSamples
	}
	return a, nil
}

func parseFormat(b []byte) (*Format, error) {
	if len(b) < 16 {
		return nil, fmt.Errorf("%w: fmt chunk too short (%d bytes)", ErrNotWAV, len(b))
	}

	f := &Format{
		AudioFormat:   binary.LittleEndian.Uint16(b[0:2]),
		Channels:      int(binary.LittleEndian.Uint16(b[2:4])),
		SampleRate:    int(binary.LittleEndian.Uint32(b[4:8])),
		BitsPerSample: int(binary.LittleEndian.Uint16(b[14:16])),
	}

	if f.AudioFormat == formatExtensible {
		if len(b) < 26 {
			return nil, fmt.Errorf("%w: truncated extensible fmt chunk", ErrNotWAV)
		}
		f.AudioFormat = binary.LittleEndian.Uint16(b[24:26])
	}

	if f.Channels <= 0 {
		return nil, fmt.Errorf("%w: channel count %d", ErrUnsupported, f.Channels)
	}
	if f.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrUnsupported, f.SampleRate)
	}

	switch f.AudioFormat {
	case FormatPCM:
		switch f.BitsPerSample {
		case 8, 16, 24, 32:
		default:
			return nil, fmt.Errorf("%w: %d-bit PCM", ErrUnsupported, f.BitsPerSample)
		}
	case FormatIEEEFloat:
		if f.BitsPerSample != 32 {
			return nil, fmt.Errorf("%w: %d-bit float", ErrUnsupported, f.BitsPerSample)
		}
	default:
		return nil, fmt.Errorf("%w: audio format %d", ErrUnsupported, f.AudioFormat)
	}

	return f, nil
}

// Mono16 downmixes every frame to one 16-bit sample by averaging channels.
func (a *Audio) Mono16() []int16 {
	f := a.Format
	width := f.BitsPerSample / 8
	frameSize := f.frameSize()
	n := a.Frames()

	out := make([]int16, n)
	for i := 0; i < n; i++ {
		frame := a.Data[i*frameSize : (i+1)*frameSize]
		var sum int64
		for ch := 0; ch < f.Channels; ch++ {
			sum += int64(sample16(frame[ch*width:(ch+1)*width], f.AudioFormat))
		}
		out[i] = int16(sum / int64(f.Channels))
	}
	return out
}

func sample16(b []byte, audioFormat uint16) int16 {
	if audioFormat == FormatIEEEFloat {
		v := math.Float32frombits(binary.LittleEndian.Uint32(b))
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		return int16(v * math.MaxInt16)
	}

	switch len(b) {
	case 1:
		// 8-bit PCM is unsigned.
		return int16(int(b[0])-128) << 8
	case 2:
		return int16(binary.LittleEndian.Uint16(b))
	case 3:
		v := int32(b[0]) | int32(b[1])<<8 | int32(int8(b[2]))<<16
		return int16(v >> 8)
	default:
		return int16(int32(binary.LittleEndian.Uint32(b)) >> 16)
	}
}

// Encode writes mono 16-bit samples behind a canonical header.
func Encode(samples []int16, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	dataSize := uint32(len(samples) * 2)
	header := Header{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   FormatPCM,
		NumChannels:   1,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * 2,
		BlockAlign:    2,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, headerSize+len(samples)*2))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("writing WAV header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("writing samples: %w", err)
	}
	return buf.Bytes(), nil
}

// Normalize decodes data and re-encodes it as 16-bit mono PCM at its own sample rate.
func Normalize(data []byte) ([]byte, *Audio, error) {
	a, err := Decode(data)
	if err != nil {
		return nil, nil, err
	}
	out, err := Encode(a.Mono16(), a.Format.SampleRate)
	if err != nil {
		return nil, nil, err
	}
	return out, a, nil
}
