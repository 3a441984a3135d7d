package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/habibshah-ds/survay-captcha-saas/internal/client/domain"
)

func TestMemoryRepository_Lookups(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	c := &domain.Client{
		ID:         "c1",
		Name:       "Acme",
		SiteKey:    "site-abc",
		APIKeyHash: "hash-xyz",
		Plan:       "free",
	}
	if err := r.Create(ctx, c); err != nil {
		t.Fatalf("Create: %v", err)
	}

	bySite, err := r.GetBySiteKey(ctx, "site-abc")
	if err != nil {
		t.Fatalf("GetBySiteKey: %v", err)
	}
	if bySite.ID != "c1" {
		t.Errorf("GetBySiteKey ID = %q", bySite.ID)
	}

	byHash, err := r.GetByAPIKeyHash(ctx, "hash-xyz")
	if err != nil {
		t.Fatalf("GetByAPIKeyHash: %v", err)
	}
	if byHash.ID != "c1" {
		t.Errorf("GetByAPIKeyHash ID = %q", byHash.ID)
	}

	if _, err := r.GetBySiteKey(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing site key: err = %v, want ErrNotFound", err)
	}
	if _, err := r.GetByAPIKeyHash(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing api key hash: err = %v, want ErrNotFound", err)
	}
}

func TestMemoryRepository_CopiesOnRead(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	if err := r.Create(ctx, &domain.Client{ID: "c1", SiteKey: "s", APIKeyHash: "h"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, _ := r.GetBySiteKey(ctx, "s")
	got.Name = "mutated"

	again, _ := r.GetBySiteKey(ctx, "s")
	if again.Name == "mutated" {
		t.Error("stored client mutated through a read copy")
	}
}
