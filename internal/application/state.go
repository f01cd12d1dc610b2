package application

type State string

const (
	StateIdle               State = "idle"
	StateAwaitingTranscript State = "awaiting_transcript"
	StateTranscriptFailed   State = "transcript_failed"
	StateAwaitingReply      State = "awaiting_reply"
)
