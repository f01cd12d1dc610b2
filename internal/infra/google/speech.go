// Package google talks to the Cloud Speech-to-Text REST API.
package google

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"chat-mate/internal/domain"
	"chat-mate/internal/infra"
)

type SpeechClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	language   string
}

func NewSpeechClient(apiKey, language string, timeout time.Duration) *SpeechClient {
	return NewSpeechClientWithURL(apiKey, language, "https://speech.googleapis.com/v1", timeout)
}

func NewSpeechClientWithURL(apiKey, language, baseURL string, timeout time.Duration) *SpeechClient {
	if language == "" {
		language = "en-US"
	}
	return &SpeechClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		language:   language,
	}
}

type recognitionConfig struct {
	Encoding        string `json:"encoding"`
	SampleRateHertz int    `json:"sampleRateHertz"`
	LanguageCode    string `json:"languageCode"`
	AudioChannels   int    `json:"audioChannelCount,omitempty"`
}

type recognitionAudio struct {
	Content string `json:"content"`
}

type request struct {
	Config recognitionConfig `json:"config"`
	Audio  recognitionAudio  `json:"audio"`
}

type response struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
}

// Recognize sends the waveform in one synchronous request. A response with no
// results means the recognizer heard nothing it could transcribe.
func (c *SpeechClient) Recognize(ctx context.Context, wf domain.Waveform) (string, error) {
	reqBody := request{
		Config: recognitionConfig{
			Encoding:        "LINEAR16",
			SampleRateHertz: wf.SampleRate,
			LanguageCode:    c.language,
			AudioChannels:   wf.Channels,
		},
		Audio: recognitionAudio{
			Content: base64.StdEncoding.EncodeToString(wf.WAV),
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	// Keep the key out of the URL; transport errors quote it.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/speech:recognize", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", infra.NewStatusError("speech", resp)
	}

	var result response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	var parts []string
	for _, r := range result.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		if t := strings.TrimSpace(r.Alternatives[0].Transcript); t != "" {
			parts = append(parts, t)
		}
	}

	if len(parts) == 0 {
		return "", domain.ErrUnintelligible
	}
	return strings.Join(parts, " "), nil
}
