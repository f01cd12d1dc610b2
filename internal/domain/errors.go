package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode marks a clip whose bytes do not match its declared container.
	ErrDecode = errors.New("audio decode failed")

	// ErrUnintelligible is returned by recognizers when speech was present
	// but could not be transcribed.
	ErrUnintelligible = errors.New("speech not recognized")

	ErrTranscriptFailed = errors.New("transcription failed")

	ErrReplyFailed      = errors.New("reply failed")
	ErrReplyInterrupted = errors.New("reply interrupted")

	// ErrStreamConsumed is yielded when a reply stream is ranged more than once.
	ErrStreamConsumed = errors.New("reply stream already consumed")

	ErrSourceClosed = errors.New("audio source closed")
)

// ReplyError reports a failed reply stream. Delivered counts the fragments
// the stream produced before failing.
type ReplyError struct {
	Delivered int
	Err       error
}

func (e *ReplyError) Error() string {
	if e.Delivered == 0 {
		return fmt.Sprintf("reply failed: %v", e.Err)
	}
	return fmt.Sprintf("reply interrupted after %d fragments: %v", e.Delivered, e.Err)
}

func (e *ReplyError) Unwrap() error {
	return e.Err
}

func (e *ReplyError) Is(target error) bool {
	switch target {
	case ErrReplyFailed:
		return e.Delivered == 0
	case ErrReplyInterrupted:
		return e.Delivered > 0
	}
	return false
}
