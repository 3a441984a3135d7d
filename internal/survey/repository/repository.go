package repository

import (
	"context"

	"github.com/habibshah-ds/survay-captcha-saas/internal/survey/domain"
)

// Repository defines persistence for survey questions.
type Repository interface {
	// PickRandom returns a uniformly random non-archived question visible to the
	// client (global pool plus client-specific), or nil if none exist.
	PickRandom(ctx context.Context, clientID string) (*domain.Question, error)
	Create(ctx context.Context, q *domain.Question) error
}
