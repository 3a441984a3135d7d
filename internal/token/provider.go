package token

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/habibshah-ds/survay-captcha-saas/internal/security"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, or
	// fails signature/issuer/audience checks.
	ErrInvalidToken = errors.New("invalid token")
)

// ProofClaims holds JWT claims for a proof token. The jti binds the token
// to its captcha session row; sid/cid carry the session and client.
type ProofClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	ClientID  string `json:"cid"`
	Flagged   bool   `json:"flg,omitempty"`
}

// Provider issues and validates proof JWTs using RS256 or ES256 (private/public key).
type Provider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
	ttl        time.Duration
}

// NewProvider returns a Provider that signs with the given private key (RS256 or ES256).
// issuer and audience are set on claims and validated on verify.
func NewProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, ttl time.Duration) *Provider {
	return &Provider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		ttl:        ttl,
	}
}

// TTL reports the lifetime applied to issued tokens.
func (p *Provider) TTL() time.Duration { return p.ttl }

// Issue signs a single-use proof JWT for the given session and client.
// Returns the token string, its jti (store it on the session row), and
// the expiration time.
func (p *Provider) Issue(sessionID, clientID string, flagged bool, now time.Time) (token, jti string, expiresAt time.Time, err error) {
	jti, err = security.RandomHex(16)
	if err != nil {
		return "", "", time.Time{}, err
	}
	now = now.UTC()
	expiresAt = now.Add(p.ttl)
	claims := ProofClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   sessionID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: sessionID,
		ClientID:  clientID,
		Flagged:   flagged,
	}
	token, err = p.sign(claims)
	return token, jti, expiresAt, err
}

func (p *Provider) sign(claims jwt.Claims) (string, error) {
	var method jwt.SigningMethod
	switch p.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", ErrInvalidToken
	}
	t := jwt.NewWithClaims(method, claims)
	return t.SignedString(p.privateKey)
}

// Verify parses and validates a proof token (signature, exp, iss, aud) and
// returns its claims. Verification is purely cryptographic; single-use
// consumption against the session row is the caller's job.
func (p *Provider) Verify(tokenString string) (*ProofClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ProofClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); ok {
			return p.publicKey, nil
		}
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); ok {
			return p.publicKey, nil
		}
		return nil, ErrInvalidToken
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*ProofClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != p.issuer {
		return nil, ErrInvalidToken
	}
	audOk := false
	for _, a := range claims.Audience {
		if a == p.audience {
			audOk = true
			break
		}
	}
	if !audOk {
		return nil, ErrInvalidToken
	}
	if claims.ID == "" || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
