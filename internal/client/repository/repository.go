package repository

import (
	"context"
	"errors"

	"github.com/habibshah-ds/survay-captcha-saas/internal/client/domain"
)

// ErrNotFound is returned when no client matches the lookup key.
var ErrNotFound = errors.New("client not found")

// Repository resolves tenants from their public site key (widget flows) or
// their hashed API key (server-side token redemption), and creates new ones.
type Repository interface {
	GetBySiteKey(ctx context.Context, siteKey string) (*domain.Client, error)
	GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*domain.Client, error)
	Create(ctx context.Context, c *domain.Client) error
}
