// Package memory provides an in-process session store for tests and
// single-node deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/keyfold/keyfold/internal/domain/session"
)

var _ session.Store = (*SessionStore)(nil)

type entry struct {
	userID    uuid.UUID
	expiresAt time.Time
}

// SessionStore is a mutex-guarded map with per-entry deadlines. Expired
// entries are invisible to Get immediately and reclaimed by a janitor
// goroutine.
type SessionStore struct {
	mu      sync.RWMutex
	entries map[string]entry

	now  func() time.Time
	done chan struct{}
}

func NewSessionStore(janitorInterval time.Duration) *SessionStore {
	s := &SessionStore{
		entries: make(map[string]entry),
		now:     func() time.Time { return time.Now().UTC() },
		done:    make(chan struct{}),
	}
	if janitorInterval > 0 {
		go s.janitor(janitorInterval)
	}
	return s
}

// Close stops the janitor goroutine.
func (s *SessionStore) Close() { close(s.done) }

func (s *SessionStore) Put(_ context.Context, tokenKey string, userID uuid.UUID, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[tokenKey] = entry{userID: userID, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *SessionStore) Get(_ context.Context, tokenKey string) (uuid.UUID, error) {
	s.mu.RLock()
	e, ok := s.entries[tokenKey]
	s.mu.RUnlock()
	if !ok || !e.expiresAt.After(s.now()) {
		return uuid.Nil, session.ErrNotFound
	}
	return e.userID, nil
}

func (s *SessionStore) Delete(_ context.Context, tokenKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, tokenKey)
	return nil
}

func (s *SessionStore) janitor(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-t.C:
			now := s.now()
			s.mu.Lock()
			for k, e := range s.entries {
				if !e.expiresAt.After(now) {
					delete(s.entries, k)
				}
			}
			s.mu.Unlock()
		}
	}
}
