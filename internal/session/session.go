package session

import (
	"errors"
	"slices"
	"time"

	"github.com/linnemanlabs/reclaim/internal/asset"
)

var (
	ErrNotFound       = errors.New("session not found")
	ErrNoCurrentAsset = errors.New("no asset has been identified in this session")
	ErrEmptyInput     = errors.New("input must not be empty")

	// ErrStorage wraps every failure reported by the Store.
	ErrStorage = errors.New("session storage")
)

// Turn is one message of the troubleshooting chat.
type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the state of one user's visit.
type Session struct {
	ID         string        `json:"id"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	Ledger     *asset.Ledger `json:"ledger"`
	Current    *asset.Record `json:"current,omitempty"`
	Transcript []Turn        `json:"transcript"`
}

// New returns an empty session.
func New(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Ledger:    asset.NewLedger(),
	}
}

// Clone returns a deep copy, so stores can hand out sessions without sharing
// the ledger or transcript.
func (s *Session) Clone() *Session {
	cp := *s
	if s.Ledger != nil {
		cp.Ledger = s.Ledger.Clone()
	} else {
		cp.Ledger = asset.NewLedger()
	}
	if s.Current != nil {
		cur := *s.Current
		cp.Current = &cur
	}
	cp.Transcript = slices.Clone(s.Transcript)
	return &cp
}
