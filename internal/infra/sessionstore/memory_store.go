package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/temppredict/internal/domain/session"
)

type entry struct {
	payload   session.Session
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. It is the default backend.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]entry
	now      func() time.Time
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]entry),
		now:      time.Now,
	}
}

// Save implements session.Store.
func (s *MemoryStore) Save(_ context.Context, contextID string, sess session.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp := time.Time{}
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	s.sessions[contextID] = entry{payload: sess, expiresAt: exp}
	return nil
}

// Load implements session.Store.
func (s *MemoryStore) Load(_ context.Context, contextID string) (session.Session, bool, error) {
	s.mu.RLock()
	record, ok := s.sessions[contextID]
	s.mu.RUnlock()
	if !ok {
		return session.Session{}, false, nil
	}
	if !record.expiresAt.IsZero() && !s.now().Before(record.expiresAt) {
		s.mu.Lock()
		delete(s.sessions, contextID)
		s.mu.Unlock()
		return session.Session{}, false, nil
	}
	return record.payload, true, nil
}

// Delete implements session.Store.
func (s *MemoryStore) Delete(_ context.Context, contextID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, contextID)
	return nil
}

// PurgeExpired drops entries whose TTL has elapsed.
func (s *MemoryStore) PurgeExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var removed int64
	for id, record := range s.sessions {
		if !record.expiresAt.IsZero() && !now.Before(record.expiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of stored sessions, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

var _ session.Store = (*MemoryStore)(nil)
