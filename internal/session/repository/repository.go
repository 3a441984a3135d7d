package repository

import (
	"context"
	"errors"

	"github.com/habibshah-ds/survay-captcha-saas/internal/session/domain"
)

// ErrNotFound is returned by Update when no session exists for the given sessionId.
var ErrNotFound = errors.New("session not found")

// UpdateFunc inspects and mutates a session while its row is locked.
// Returning commit=true persists the mutated session together with fn's error,
// so terminal failure transitions (expired, failed) commit as the result of the
// attempt. Returning commit=false rolls back every change; the session stays
// exactly as it was before the attempt. The error is returned to the caller
// either way.
type UpdateFunc func(s *domain.Session) (commit bool, err error)

// Store defines persistence for challenge sessions. The session row is the
// only mutable shared resource in the core; all mutation goes through Update,
// which serializes concurrent attempts on the same session.
type Store interface {
	Create(ctx context.Context, s *domain.Session) error
	// GetBySessionID returns the session for the external handle, or nil if not
	// found. It returns an error only for database failures, not missing rows.
	GetBySessionID(ctx context.Context, sessionID string) (*domain.Session, error)
	// Update loads the session under an exclusive row lock, runs fn, and commits
	// or rolls back per fn's commit flag. Concurrent Updates on the same session
	// are linearized: the loser observes the winner's committed state.
	Update(ctx context.Context, sessionID string, fn UpdateFunc) error
}
