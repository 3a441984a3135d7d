// Package handler exposes the challenge lifecycle over HTTP.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/habibshah-ds/survay-captcha-saas/internal/captcha"
	clientdomain "github.com/habibshah-ds/survay-captcha-saas/internal/client/domain"
	clientrepo "github.com/habibshah-ds/survay-captcha-saas/internal/client/repository"
	"github.com/habibshah-ds/survay-captcha-saas/internal/security"
	sessiondomain "github.com/habibshah-ds/survay-captcha-saas/internal/session/domain"
	"github.com/habibshah-ds/survay-captcha-saas/internal/token"
)

// Pinger reports datastore reachability for readiness (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// CaptchaHandler bundles dependencies for the challenge endpoints.
type CaptchaHandler struct {
	svc     *captcha.Service
	clients clientrepo.Repository
	pepper  string
	pinger  Pinger
	log     *logrus.Entry
}

// NewCaptchaHandler returns the handler. pepper is the API-key HMAC pepper
// used to resolve server-side callers. pinger may be nil; readiness then
// reports ready without a datastore check.
func NewCaptchaHandler(svc *captcha.Service, clients clientrepo.Repository, pepper string, pinger Pinger, log *logrus.Entry) *CaptchaHandler {
	return &CaptchaHandler{svc: svc, clients: clients, pepper: pepper, pinger: pinger, log: log}
}

// Register mounts the routes. Widget endpoints authenticate by site key in the
// body; the verify endpoint authenticates by X-Api-Key header.
func (h *CaptchaHandler) Register(e *echo.Echo, middlewares ...echo.MiddlewareFunc) {
	g := e.Group("/v1", middlewares...)
	g.POST("/challenge", h.CreateChallenge)
	g.POST("/challenge/complete", h.CompleteChallenge)
	g.POST("/token/verify", h.VerifyToken)
	e.GET("/healthz", h.Health)
	e.GET("/readyz", h.Ready)
}

// ----- DTOs -----

type createReq struct {
	SiteKey    string `json:"site_key"`
	Difficulty string `json:"difficulty"`
}

type completeReq struct {
	SiteKey     string `json:"site_key"`
	SessionID   string `json:"session_id"`
	Proof       string `json:"proof"`
	Answer      string `json:"answer"`
	SolveTimeMs int64  `json:"solve_time_ms"`
}

type completeResp struct {
	Token string `json:"token"`
}

type verifyReq struct {
	Token string `json:"token"`
}

type verifyResp struct {
	SessionID string `json:"session_id"`
	ClientID  string `json:"client_id"`
	Jti       string `json:"jti"`
	Flagged   bool   `json:"flagged"`
}

// CreateChallenge issues a fresh challenge for the site key's client.
func (h *CaptchaHandler) CreateChallenge(c echo.Context) error {
	var req createReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_body"})
	}
	client, ok := h.resolveSiteKey(c, req.SiteKey)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_site_key"})
	}

	ch, err := h.svc.CreateChallenge(c.Request().Context(), client.ID, req.Difficulty)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, ch)
}

// CompleteChallenge verifies a submitted solution and returns the proof token.
func (h *CaptchaHandler) CompleteChallenge(c echo.Context) error {
	var req completeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_body"})
	}
	if req.SessionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "session_id_required"})
	}
	client, ok := h.resolveSiteKey(c, req.SiteKey)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_site_key"})
	}

	timings := sessiondomain.Timings{
		SolveTimeMs: req.SolveTimeMs,
		IP:          c.RealIP(),
		UserAgent:   c.Request().UserAgent(),
	}
	tok, err := h.svc.CompleteChallenge(c.Request().Context(), client.ID, req.SessionID, req.Proof, req.Answer, timings)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, completeResp{Token: tok})
}

// VerifyToken redeems a proof token on behalf of the API-key holder. Each
// token redeems at most once.
func (h *CaptchaHandler) VerifyToken(c echo.Context) error {
	client, ok := h.resolveAPIKey(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_api_key"})
	}
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_body"})
	}
	if req.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token_required"})
	}

	rec, err := h.svc.VerifyToken(c.Request().Context(), client.ID, req.Token)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, verifyResp{
		SessionID: rec.SessionID,
		ClientID:  rec.ClientID,
		Jti:       rec.Jti,
		Flagged:   rec.Flagged,
	})
}

// Health reports liveness.
func (h *CaptchaHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// Ready reports readiness for load balancers: the datastore must answer a ping.
func (h *CaptchaHandler) Ready(c echo.Context) error {
	if h.pinger != nil {
		if err := h.pinger.PingContext(c.Request().Context()); err != nil {
			h.log.WithError(err).Warn("readiness ping failed")
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
}

func (h *CaptchaHandler) resolveSiteKey(c echo.Context, siteKey string) (*clientdomain.Client, bool) {
	siteKey = strings.TrimSpace(siteKey)
	if siteKey == "" {
		return nil, false
	}
	client, err := h.clients.GetBySiteKey(c.Request().Context(), siteKey)
	if err != nil {
		if !errors.Is(err, clientrepo.ErrNotFound) {
			h.log.WithError(err).Error("resolve site key")
		}
		return nil, false
	}
	return client, true
}

func (h *CaptchaHandler) resolveAPIKey(c echo.Context) (*clientdomain.Client, bool) {
	rawKey := strings.TrimSpace(c.Request().Header.Get("X-Api-Key"))
	if rawKey == "" {
		return nil, false
	}
	client, err := h.clients.GetByAPIKeyHash(c.Request().Context(), security.HashAPIKey(h.pepper, rawKey))
	if err != nil {
		if !errors.Is(err, clientrepo.ErrNotFound) {
			h.log.WithError(err).Error("resolve api key")
		}
		return nil, false
	}
	if !security.APIKeyHashEqual(h.pepper, rawKey, client.APIKeyHash) {
		return nil, false
	}
	return client, true
}

// writeError maps classification errors to statuses and stable error codes.
// Driver-level detail never reaches the response body.
func (h *CaptchaHandler) writeError(c echo.Context, err error) error {
	var status int
	var code string
	switch {
	case errors.Is(err, captcha.ErrInvalidTenant):
		status, code = http.StatusBadRequest, "invalid_tenant"
	case errors.Is(err, captcha.ErrSessionNotFound):
		status, code = http.StatusNotFound, "session_not_found"
	case errors.Is(err, captcha.ErrTenantMismatch), errors.Is(err, token.ErrTenantMismatch):
		status, code = http.StatusForbidden, "tenant_mismatch"
	case errors.Is(err, captcha.ErrExpired), errors.Is(err, token.ErrExpired):
		status, code = http.StatusGone, "expired"
	case errors.Is(err, captcha.ErrAlreadyUsed), errors.Is(err, captcha.ErrInvalidState):
		status, code = http.StatusConflict, "already_used"
	case errors.Is(err, token.ErrAlreadyConsumed):
		status, code = http.StatusConflict, "already_consumed"
	case errors.Is(err, token.ErrReplaySuspected):
		status, code = http.StatusConflict, "replay_suspected"
	case errors.Is(err, captcha.ErrInvalidProof):
		status, code = http.StatusBadRequest, "invalid_proof"
	case errors.Is(err, captcha.ErrTooFast):
		status, code = http.StatusBadRequest, "too_fast"
	case errors.Is(err, captcha.ErrRejectedRisk):
		status, code = http.StatusBadRequest, "rejected_risk"
	case errors.Is(err, captcha.ErrInvalidAnswer):
		status, code = http.StatusBadRequest, "invalid_answer"
	case errors.Is(err, token.ErrMalformedToken):
		status, code = http.StatusBadRequest, "malformed_token"
	case errors.Is(err, token.ErrInvalidToken):
		status, code = http.StatusUnauthorized, "invalid_token"
	default:
		h.log.WithError(err).Error("request failed")
		status, code = http.StatusServiceUnavailable, "temporarily_unavailable"
	}
	return c.JSON(status, echo.Map{"error": code})
}
