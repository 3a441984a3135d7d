package token

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	sessiondomain "github.com/habibshah-ds/survay-captcha-saas/internal/session/domain"
	sessionrepo "github.com/habibshah-ds/survay-captcha-saas/internal/session/repository"
)

var (
	// ErrMalformedToken is returned when a token parses but lacks required fields.
	ErrMalformedToken = errors.New("malformed token")
	// ErrTenantMismatch is returned when the token's client differs from the caller's.
	ErrTenantMismatch = errors.New("token client mismatch")
	// ErrReplaySuspected is returned when the token's jti does not match the one
	// anchored on the session row (never issued, or superseded).
	ErrReplaySuspected = errors.New("token replay suspected")
	// ErrAlreadyConsumed is returned when the anchoring session's token was already redeemed.
	ErrAlreadyConsumed = errors.New("token already consumed")
	// ErrExpired is returned when the token or its anchoring session has expired.
	ErrExpired = errors.New("token expired")
	// ErrStorage wraps datastore failures during consumption; callers may retry.
	ErrStorage = errors.New("token storage failure")
)

// Consumption is the record returned by a successful VerifyAndConsume.
type Consumption struct {
	SessionID string
	ClientID  string
	Jti       string
	Flagged   bool
}

// Service mints single-use proof tokens anchored to captcha session rows and
// redeems them exactly once.
type Service struct {
	provider *Provider
	sessions sessionrepo.Store
	log      *logrus.Entry

	now func() time.Time // injectable for tests
}

// NewService wires a token Service over the signing provider and session store.
func NewService(provider *Provider, sessions sessionrepo.Store, log *logrus.Entry) *Service {
	return &Service{
		provider: provider,
		sessions: sessions,
		log:      log,
		now:      time.Now,
	}
}

// Mint issues a proof token for the session and stamps the token columns on
// the in-memory row. The caller must invoke it inside a locked session update
// so the stamp commits (or rolls back) together with the status transition;
// a session must never end up used without its anchored token.
func (s *Service) Mint(sess *sessiondomain.Session, flagged bool) (string, error) {
	now := s.now()
	tok, jti, expiresAt, err := s.provider.Issue(sess.SessionID, sess.ClientID, flagged, now)
	if err != nil {
		return "", err
	}
	sess.TokenIssued = true
	sess.TokenJti = jti
	sess.TokenExpiresAt = &expiresAt
	return tok, nil
}

// VerifyAndConsume checks a proof token's signature and claims, then flips the
// anchoring session's token_used bit exactly once under the session row lock.
// Concurrent redemptions of the same token are linearized by that lock; the
// loser observes token_used and gets ErrAlreadyConsumed.
func (s *Service) VerifyAndConsume(ctx context.Context, callerClientID, tokenString string) (*Consumption, error) {
	claims, err := s.provider.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.ClientID == "" {
		return nil, ErrMalformedToken
	}
	if claims.ClientID != callerClientID {
		return nil, ErrTenantMismatch
	}

	now := s.now().UTC()
	rec := &Consumption{
		SessionID: claims.SessionID,
		ClientID:  claims.ClientID,
		Jti:       claims.ID,
		Flagged:   claims.Flagged,
	}
	err = s.sessions.Update(ctx, claims.SessionID, func(sess *sessiondomain.Session) (bool, error) {
		if sess.ClientID != callerClientID {
			return false, ErrTenantMismatch
		}
		if sess.TokenJti == "" || sess.TokenJti != claims.ID {
			return false, ErrReplaySuspected
		}
		if sess.TokenUsed {
			return false, ErrAlreadyConsumed
		}
		if sess.TokenExpiresAt != nil && now.After(*sess.TokenExpiresAt) {
			return false, ErrExpired
		}
		sess.TokenUsed = true
		usedAt := now
		sess.UsedAt = &usedAt
		return true, nil
	})
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, sessionrepo.ErrNotFound):
		return nil, ErrReplaySuspected
	case errors.Is(err, ErrTenantMismatch),
		errors.Is(err, ErrReplaySuspected),
		errors.Is(err, ErrAlreadyConsumed),
		errors.Is(err, ErrExpired):
		return nil, err
	default:
		s.log.WithError(err).Error("consume proof token")
		return nil, ErrStorage
	}
}
