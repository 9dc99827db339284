// Package memstore provides an in-memory implementation of session.Store.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/linnemanlabs/reclaim/internal/session"
)

// Store holds sessions in memory. Suitable for dev/testing and single-node
// deployments where sessions need not survive a restart.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session // session ID -> session
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		sessions: make(map[string]*session.Session),
	}
}

// Get retrieves a session by its ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*session.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false, nil
	}
	return sess.Clone(), true, nil
}

// Put stores a copy of the session.
func (s *Store) Put(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

// Delete removes a session, reporting whether it existed.
func (s *Store) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok, nil
}

// Len is the number of stored sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// PruneIdle deletes sessions not updated since before cutoff.
func (s *Store) PruneIdle(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}
