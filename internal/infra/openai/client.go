// Package openai adapts go-openai to the speech and chat ports.
package openai

import (
	"errors"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
)

func newClient(apiKey, baseURL string, timeout time.Duration) *goopenai.Client {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return goopenai.NewClientWithConfig(cfg)
}

// apiMessage unwraps the provider detail from go-openai errors.
func apiMessage(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return errors.New(apiErr.Message)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.Err != nil {
		return reqErr.Err
	}
	return err
}
