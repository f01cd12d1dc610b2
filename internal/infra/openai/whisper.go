package openai

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"chat-mate/internal/domain"
)

type WhisperClient struct {
	client   *goopenai.Client
	language string
}

func NewWhisperClient(apiKey, language string, timeout time.Duration) *WhisperClient {
	return NewWhisperClientWithURL(apiKey, language, "", timeout)
}

func NewWhisperClientWithURL(apiKey, language, baseURL string, timeout time.Duration) *WhisperClient {
	return &WhisperClient{
		client:   newClient(apiKey, baseURL, timeout),
		language: whisperLanguage(language),
	}
}

// whisperLanguage reduces a BCP-47 tag such as en-US to the ISO-639-1 code Whisper expects.
func whisperLanguage(tag string) string {
	lang, _, _ := strings.Cut(tag, "-")
	return strings.ToLower(lang)
}

func (c *WhisperClient) Recognize(ctx context.Context, wf domain.Waveform) (string, error) {
	resp, err := c.client.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    goopenai.Whisper1,
		FilePath: "audio.wav",
		Reader:   bytes.NewReader(wf.WAV),
		Language: c.language,
		Format:   goopenai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("whisper: %w", apiMessage(err))
	}

	if strings.TrimSpace(resp.Text) == "" {
		return "", domain.ErrUnintelligible
	}
	return resp.Text, nil
}
