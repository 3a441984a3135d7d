package repository

import (
	"context"
	"sync"
	"time"

	"github.com/habibshah-ds/survay-captcha-saas/internal/session/domain"
)

// MemoryStore is an in-memory Store for tests and local development. A single
// mutex stands in for row-level locking: Updates are serialized, and a failed
// update leaves the stored session untouched, matching the transactional
// contract of the Postgres store.
type MemoryStore struct {
	mu sync.Mutex
	m  map[string]*domain.Session
}

// NewMemoryStore returns an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]*domain.Session)}
}

// Create stores a copy of the session keyed by its external handle.
func (s *MemoryStore) Create(ctx context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.m[sess.SessionID] = &cp
	return nil
}

// GetBySessionID returns a copy of the stored session, or nil if not found.
func (s *MemoryStore) GetBySessionID(ctx context.Context, sessionID string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

// ExpireOverdue transitions pending sessions whose TTL elapsed before now.
func (s *MemoryStore) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, sess := range s.m {
		if sess.Status == domain.StatusPending && now.After(sess.ExpiresAt) {
			sess.Status = domain.StatusExpired
			sess.LastError = "expired"
			n++
		}
	}
	return n, nil
}

// Update implements Store. fn runs on a copy; the copy replaces the stored
// session only when fn commits.
func (s *MemoryStore) Update(ctx context.Context, sessionID string, fn UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[sessionID]
	if !ok {
		return ErrNotFound
	}
	cp := *sess
	commit, err := fn(&cp)
	if commit {
		s.m[sessionID] = &cp
	}
	return err
}
