package session

import (
	"context"
	"time"

	"github.com/linnemanlabs/reclaim/internal/asset"
)

// Notice describes an identified asset that needs attention.
type Notice struct {
	SessionID string
	Record    asset.Record
	Band      asset.Band
	Lifecycle asset.Lifecycle
	At        time.Time
}

// Notifier delivers notices for CRITICAL assets.
type Notifier interface {
	Notify(ctx context.Context, n *Notice) error
}
