package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"chat-mate/internal/domain"
	"chat-mate/internal/wav"
)

// Transcriber converts a captured clip to text. It keeps no state between calls.
type Transcriber struct {
	recognizer SpeechRecognizer
	logger     *slog.Logger
}

func NewTranscriber(recognizer SpeechRecognizer, logger *slog.Logger) *Transcriber {
	return &Transcriber{
		recognizer: recognizer,
		logger:     logger,
	}
}

// Transcribe returns a non-nil error only when the clip cannot be decoded; the
// error wraps domain.ErrDecode. Recognizer outcomes are reported in the result.
func (t *Transcriber) Transcribe(ctx context.Context, clip domain.AudioClip) (domain.TranscriptResult, error) {
	wf, err := t.normalize(clip)
	if err != nil {
		return domain.TranscriptResult{}, err
	}

	t.logger.Debug("normalized clip",
		"bytes_in", len(clip.Data),
		"bytes_out", len(wf.WAV),
		"sample_rate", wf.SampleRate,
		"duration", wf.Duration,
	)

	text, err := t.recognizer.Recognize(ctx, wf)
	switch {
	case errors.Is(err, domain.ErrUnintelligible):
		return domain.Unintelligible(), nil
	case err != nil:
		return domain.ServiceFailure(err.Error()), nil
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Unintelligible(), nil
	}
	return domain.Transcribed(text), nil
}

func (t *Transcriber) normalize(clip domain.AudioClip) (domain.Waveform, error) {
	if !strings.EqualFold(clip.Container, domain.ContainerWAV) {
		return domain.Waveform{}, fmt.Errorf("%w: declared container %q is not %s", domain.ErrDecode, clip.Container, domain.ContainerWAV)
	}

	out, src, err := wav.Normalize(clip.Data)
	if err != nil {
		return domain.Waveform{}, fmt.Errorf("%w: %w", domain.ErrDecode, err)
	}

	if clip.SampleRate != 0 && clip.SampleRate != src.Format.SampleRate {
		t.logger.Debug("declared sample rate differs from header, using header",
			"declared", clip.SampleRate,
			"header", src.Format.SampleRate,
		)
	}

	return domain.Waveform{
		WAV:        out,
		SampleRate: src.Format.SampleRate,
		Channels:   1,
		Duration:   src.Duration(),
	}, nil
}
