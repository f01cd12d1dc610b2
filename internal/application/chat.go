package application

import (
	"context"
	"iter"
)

// ChatClient opens conversations against a hosted chat-completion service.
type ChatClient interface {
	NewConversation() Conversation
	Name() string
}

// Conversation keeps the prior-turn context of one session.
//
// StreamReply returns a single-pass sequence: the hosted call is made when the
// sequence is first ranged, each fragment is yielded once, and a failure is
// yielded as a final ("", err) pair. The exchange is added to the context only
// when the stream completes.
type Conversation interface {
	StreamReply(ctx context.Context, prompt string) iter.Seq2[string, error]
}
