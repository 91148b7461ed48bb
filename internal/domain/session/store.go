package session

import (
	"context"
	"time"
)

// Store abstracts the per-context persistence of sessions.
type Store interface {
	Save(ctx context.Context, contextID string, sess Session, ttl time.Duration) error
	Load(ctx context.Context, contextID string) (Session, bool, error)
	Delete(ctx context.Context, contextID string) error
}
