package token

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	sessiondomain "github.com/habibshah-ds/survay-captcha-saas/internal/session/domain"
	sessionrepo "github.com/habibshah-ds/survay-captcha-saas/internal/session/repository"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// mintedFixture creates a used session with a freshly minted token anchored to it.
func mintedFixture(t *testing.T, svc *Service, store *sessionrepo.MemoryStore, clientID string) (tokenString string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	sess := &sessiondomain.Session{
		ID:        "row-1",
		SessionID: "sess-1",
		ClientID:  clientID,
		Status:    sessiondomain.StatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(10 * time.Minute),
	}
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := store.Update(ctx, "sess-1", func(s *sessiondomain.Session) (bool, error) {
		tok, err := svc.Mint(s, false)
		if err != nil {
			return false, err
		}
		tokenString = tok
		s.Status = sessiondomain.StatusUsed
		usedAt := now
		s.UsedAt = &usedAt
		return true, nil
	})
	if err != nil {
		t.Fatalf("mint update: %v", err)
	}
	return tokenString
}

func newTestService(t *testing.T) (*Service, *sessionrepo.MemoryStore) {
	t.Helper()
	store := sessionrepo.NewMemoryStore()
	svc := NewService(newTestProvider(t, 10*time.Minute), store, testLogger())
	return svc, store
}

func TestService_MintStampsTokenColumns(t *testing.T) {
	svc, store := newTestService(t)
	mintedFixture(t, svc, store, "client-a")

	sess, err := store.GetBySessionID(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("GetBySessionID: %v", err)
	}
	if !sess.TokenIssued || sess.TokenJti == "" || sess.TokenExpiresAt == nil {
		t.Errorf("token columns not stamped: %+v", sess)
	}
	if sess.TokenUsed {
		t.Error("token marked used before any consumption")
	}
}

func TestService_VerifyAndConsume(t *testing.T) {
	svc, store := newTestService(t)
	tok := mintedFixture(t, svc, store, "client-a")
	ctx := context.Background()

	rec, err := svc.VerifyAndConsume(ctx, "client-a", tok)
	if err != nil {
		t.Fatalf("VerifyAndConsume: %v", err)
	}
	if rec.SessionID != "sess-1" || rec.ClientID != "client-a" || rec.Jti == "" {
		t.Errorf("consumption record: %+v", rec)
	}

	// same token again must be rejected
	if _, err := svc.VerifyAndConsume(ctx, "client-a", tok); !errors.Is(err, ErrAlreadyConsumed) {
		t.Errorf("second consume: err = %v, want ErrAlreadyConsumed", err)
	}
}

func TestService_VerifyAndConsume_TenantMismatch(t *testing.T) {
	svc, store := newTestService(t)
	tok := mintedFixture(t, svc, store, "client-a")

	if _, err := svc.VerifyAndConsume(context.Background(), "client-b", tok); !errors.Is(err, ErrTenantMismatch) {
		t.Errorf("err = %v, want ErrTenantMismatch", err)
	}

	// mismatch must not burn the token
	sess, _ := store.GetBySessionID(context.Background(), "sess-1")
	if sess.TokenUsed {
		t.Error("token consumed by the wrong client")
	}
}

func TestService_VerifyAndConsume_Malformed(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.VerifyAndConsume(context.Background(), "client-a", "junk"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestService_VerifyAndConsume_ReplaySuspected(t *testing.T) {
	svc, store := newTestService(t)
	tok := mintedFixture(t, svc, store, "client-a")
	ctx := context.Background()

	// superseded jti on the row: a token whose jti no longer matches is a replay
	err := store.Update(ctx, "sess-1", func(s *sessiondomain.Session) (bool, error) {
		s.TokenJti = "some-other-jti"
		return true, nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := svc.VerifyAndConsume(ctx, "client-a", tok); !errors.Is(err, ErrReplaySuspected) {
		t.Errorf("err = %v, want ErrReplaySuspected", err)
	}
}

func TestService_VerifyAndConsume_UnknownSession(t *testing.T) {
	svc, store := newTestService(t)
	tok := mintedFixture(t, svc, store, "client-a")

	// point the service at a store that has never seen the session
	svc2 := NewService(svc.provider, sessionrepo.NewMemoryStore(), testLogger())
	if _, err := svc2.VerifyAndConsume(context.Background(), "client-a", tok); !errors.Is(err, ErrReplaySuspected) {
		t.Errorf("err = %v, want ErrReplaySuspected", err)
	}
}

func TestService_VerifyAndConsume_ExpiredAnchor(t *testing.T) {
	svc, store := newTestService(t)
	tok := mintedFixture(t, svc, store, "client-a")

	// jump the clock past the anchored expiry while the JWT itself is still fresh
	past := time.Now().Add(-time.Hour).UTC()
	err := store.Update(context.Background(), "sess-1", func(s *sessiondomain.Session) (bool, error) {
		s.TokenExpiresAt = &past
		return true, nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := svc.VerifyAndConsume(context.Background(), "client-a", tok); !errors.Is(err, ErrExpired) {
		t.Errorf("err = %v, want ErrExpired", err)
	}
}

func TestService_VerifyAndConsume_ConcurrentSingleWinner(t *testing.T) {
	svc, store := newTestService(t)
	tok := mintedFixture(t, svc, store, "client-a")
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.VerifyAndConsume(ctx, "client-a", tok)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, consumed int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrAlreadyConsumed):
			consumed++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("wins = %d, want exactly 1", wins)
	}
	if consumed != n-1 {
		t.Errorf("AlreadyConsumed = %d, want %d", consumed, n-1)
	}
}
