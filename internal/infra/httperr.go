package infra

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// NewStatusError builds a StatusError from a failed response, preferring the
// provider's {"error":{"message":...}} detail over the raw body.
func NewStatusError(service string, resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		msg = payload.Error.Message
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	return &StatusError{
		Service:    service,
		StatusCode: resp.StatusCode,
		Message:    msg,
	}
}
