package core

import (
	"context"
	"time"

	"github.com/dkeye/Mic/internal/domain"
)

// TokenIssuer mints the capability a holder needs to publish media.
// The token format is opaque here.
type TokenIssuer interface {
	Issue(ctx context.Context, room domain.RoomID, identity string, ttl time.Duration) (string, error)
}

// CommentaryGenerator produces a short text reaction to a finished turn.
// Best effort; errors are never surfaced to clients.
type CommentaryGenerator interface {
	Generate(ctx context.Context, identity string, average float64) (string, error)
}
