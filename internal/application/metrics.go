package application

import "time"

// Metrics receives pipeline observations. Outcome labels are short snake_case words.
type Metrics interface {
	ClipReceived(bytes int)
	TranscriptionFinished(outcome string, d time.Duration)
	ReplyFinished(outcome string, fragments int, d time.Duration)
}

type NoopMetrics struct{}

func (NoopMetrics) ClipReceived(int)                            {}
func (NoopMetrics) TranscriptionFinished(string, time.Duration) {}
func (NoopMetrics) ReplyFinished(string, int, time.Duration)    {}
