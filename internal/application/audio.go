package application

import (
	"context"

	"chat-mate/internal/domain"
)

// AudioSource yields captured clips one at a time. NextClip returns
// domain.ErrSourceClosed once the source will never produce another clip.
type AudioSource interface {
	Start(ctx context.Context) error
	Stop() error
	NextClip(ctx context.Context) (domain.AudioClip, error)
	Name() string
}
