package domain

type TranscriptStatus int

const (
	TranscriptOK TranscriptStatus = iota
	TranscriptUnintelligible
	TranscriptServiceError
)

func (s TranscriptStatus) String() string {
	switch s {
	case TranscriptOK:
		return "ok"
	case TranscriptUnintelligible:
		return "unintelligible"
	case TranscriptServiceError:
		return "service_error"
	default:
		return "unknown"
	}
}

// TranscriptResult is either recognized text or a failure reason.
// Message carries the provider detail for TranscriptServiceError.
type TranscriptResult struct {
	Status  TranscriptStatus
	Text    string
	Message string
}

func Transcribed(text string) TranscriptResult {
	return TranscriptResult{Status: TranscriptOK, Text: text}
}

func Unintelligible() TranscriptResult {
	return TranscriptResult{Status: TranscriptUnintelligible}
}

func ServiceFailure(message string) TranscriptResult {
	return TranscriptResult{Status: TranscriptServiceError, Message: message}
}

func (r TranscriptResult) OK() bool {
	return r.Status == TranscriptOK
}

// Reason is the user-facing description of a failed result.
func (r TranscriptResult) Reason() string {
	switch r.Status {
	case TranscriptUnintelligible:
		return "Audio transcription failed. Please try again."
	case TranscriptServiceError:
		return "Error with speech recognition service: " + r.Message
	default:
		return ""
	}
}
