package application

import (
	"context"

	"chat-mate/internal/domain"
)

// SpeechRecognizer submits a normalized waveform to a hosted recognizer.
// It returns domain.ErrUnintelligible when the audio held no usable speech.
type SpeechRecognizer interface {
	Recognize(ctx context.Context, wf domain.Waveform) (string, error)
}
