package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MemoryStore is an in-process Store with lazy TTL purging, used for tests
// and single-node deployments.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// MemoryConfig bounds the in-memory store.
type MemoryConfig struct {
	TTL    time.Duration
	Logger *slog.Logger
}

func NewMemoryStore(cfg MemoryConfig) *MemoryStore {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      cfg.TTL,
		logger:   cfg.Logger,
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || s.expired(sess) || sess.Version != SchemaVersion {
		return emptySession(id, s.ttl), nil
	}

	// Copy so callers never alias the stored slice.
	out := *sess
	out.Turns = append([]Turn(nil), sess.Turns...)
	return &out, nil
}

func (s *MemoryStore) Append(_ context.Context, id string, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || s.expired(sess) || sess.Version != SchemaVersion {
		sess = emptySession(id, s.ttl)
		s.sessions[id] = sess
	}

	sess.Turns = append(sess.Turns, turns...)
	sess.ExpiresAt = s.now().UTC().Add(s.ttl)
	return nil
}

// Purge drops expired sessions and returns how many were removed.
func (s *MemoryStore) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug("purged expired sessions", "count", removed)
	}
	return removed
}

func (s *MemoryStore) expired(sess *Session) bool {
	return s.now().UTC().After(sess.ExpiresAt)
}
