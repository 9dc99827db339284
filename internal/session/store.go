package session

import (
	"context"
	"time"
)

// Store is the persistence interface for sessions. Implementations return
// copies; callers Put a session back to commit changes.
type Store interface {
	Get(ctx context.Context, id string) (*Session, bool, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) (bool, error)
}

// Pruner is implemented by stores that can drop idle sessions.
type Pruner interface {
	PruneIdle(ctx context.Context, cutoff time.Time) (int64, error)
}
