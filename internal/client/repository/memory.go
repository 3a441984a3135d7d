package repository

import (
	"context"
	"sync"

	"github.com/habibshah-ds/survay-captcha-saas/internal/client/domain"
)

// MemoryRepository is an in-memory client repository for tests and local dev.
type MemoryRepository struct {
	mu        sync.Mutex
	bySiteKey map[string]*domain.Client
	byAPIHash map[string]*domain.Client
}

// NewMemoryRepository returns an empty in-memory client repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		bySiteKey: make(map[string]*domain.Client),
		byAPIHash: make(map[string]*domain.Client),
	}
}

func (r *MemoryRepository) GetBySiteKey(ctx context.Context, siteKey string) (*domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.bySiteKey[siteKey]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryRepository) GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byAPIHash[apiKeyHash]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryRepository) Create(ctx context.Context, c *domain.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.bySiteKey[c.SiteKey] = &cp
	r.byAPIHash[c.APIKeyHash] = &cp
	return nil
}
