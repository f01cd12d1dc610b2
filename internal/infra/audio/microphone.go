//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gordonklaus/portaudio"

	"chat-mate/internal/domain"
	"chat-mate/internal/wav"
)

const (
	framesPerBuffer  = 1024
	silenceThreshold = int16(500)
)

// MicrophoneSource records from the default input device until a second of
// silence follows speech, or ten seconds have passed.
type MicrophoneSource struct {
	stream     *portaudio.Stream
	buffer     []int16
	sampleRate int
	logger     *slog.Logger
}

func NewMicrophoneSource(sampleRate int, logger *slog.Logger) *MicrophoneSource {
	return &MicrophoneSource{
		sampleRate: sampleRate,
		logger:     logger,
		buffer:     make([]int16, framesPerBuffer),
	}
}

func (m *MicrophoneSource) Name() string {
	return "microphone"
}

func (m *MicrophoneSource) Start(_ context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.sampleRate), framesPerBuffer, m.buffer)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("opening stream: %w", err)
	}
	m.stream = stream

	if err := m.stream.Start(); err != nil {
		return fmt.Errorf("starting stream: %w", err)
	}

	m.logger.Info("microphone started", "sampleRate", m.sampleRate)
	return nil
}

func (m *MicrophoneSource) Stop() error {
	if m.stream != nil {
		m.stream.Stop()
		m.stream.Close()
	}
	portaudio.Terminate()
	return nil
}

func (m *MicrophoneSource) NextClip(ctx context.Context) (domain.AudioClip, error) {
	if m.stream == nil {
		return domain.AudioClip{}, domain.ErrSourceClosed
	}
	m.logger.Info("listening")

	samples := make([]int16, 0, m.sampleRate*5)
	silent := 0
	heard := false

	for {
		select {
		case <-ctx.Done():
			return domain.AudioClip{}, ctx.Err()
		default:
		}

		if err := m.stream.Read(); err != nil {
			return domain.AudioClip{}, fmt.Errorf("reading from stream: %w", err)
		}

		isSilent := quiet(m.buffer)
		if isSilent && !heard {
			continue
		}
		heard = true
		samples = append(samples, m.buffer...)

		if isSilent {
			silent += len(m.buffer)
		} else {
			silent = 0
		}

		if silent > m.sampleRate && len(samples) > m.sampleRate {
			break
		}
		if len(samples) > m.sampleRate*10 {
			break
		}
	}

	data, err := wav.Encode(samples, m.sampleRate)
	if err != nil {
		return domain.AudioClip{}, fmt.Errorf("encoding recording: %w", err)
	}

	clip := domain.NewWAVClip(data)
	clip.SampleRate = m.sampleRate
	return clip, nil
}

func quiet(buf []int16) bool {
	for _, sample := range buf {
		if sample > silenceThreshold || sample < -silenceThreshold {
			return false
		}
	}
	return true
}
