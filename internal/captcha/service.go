// Package captcha composes the puzzle engine, survey selector, risk scorer,
// session store, and token service into the challenge lifecycle: create,
// complete, verify token.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/habibshah-ds/survay-captcha-saas/internal/events"
	"github.com/habibshah-ds/survay-captcha-saas/internal/puzzle"
	"github.com/habibshah-ds/survay-captcha-saas/internal/risk"
	"github.com/habibshah-ds/survay-captcha-saas/internal/security"
	sessiondomain "github.com/habibshah-ds/survay-captcha-saas/internal/session/domain"
	sessionrepo "github.com/habibshah-ds/survay-captcha-saas/internal/session/repository"
	"github.com/habibshah-ds/survay-captcha-saas/internal/survey"
	surveydomain "github.com/habibshah-ds/survay-captcha-saas/internal/survey/domain"
	"github.com/habibshah-ds/survay-captcha-saas/internal/telemetry"
	"github.com/habibshah-ds/survay-captcha-saas/internal/token"
)

const sessionIDBytes = 16

// Options are the tunable policy knobs for the challenge lifecycle.
type Options struct {
	ChallengeTTL  time.Duration
	MinSolveMs    int64
	RiskThreshold int
	// SurveyStrict makes a shape-invalid survey answer fail the completion.
	// Off by default: a bad answer only raises the risk score.
	SurveyStrict bool
}

// Widget is the client-safe payload rendered by the challenge widget. It never
// exposes internal session row fields.
type Widget struct {
	Puzzle puzzle.Params          `json:"puzzle"`
	Survey *surveydomain.Question `json:"survey"`
}

// Challenge is the result of creating a challenge.
type Challenge struct {
	SessionID string    `json:"session_id"`
	Widget    Widget    `json:"widget"`
	ExpiresAt time.Time `json:"expires_at"`
}

// recordedAnswer is the shape stored in the session's survey_answer column.
type recordedAnswer struct {
	Answer string `json:"answer"`
	Valid  bool   `json:"valid"`
	Kind   string `json:"kind,omitempty"`
}

// Service drives the challenge lifecycle. All session status transitions
// happen here, under the session store's row lock.
type Service struct {
	opts     Options
	sessions sessionrepo.Store
	selector *survey.Selector
	engine   *puzzle.Engine
	scorer   risk.Scorer
	tokens   *token.Service
	producer events.Producer
	metrics  *telemetry.Metrics
	log      *logrus.Entry

	now func() time.Time // injectable for tests
}

// NewService wires the challenge orchestrator. producer may be events.Nop{}
// and metrics may be nil.
func NewService(
	opts Options,
	sessions sessionrepo.Store,
	selector *survey.Selector,
	engine *puzzle.Engine,
	scorer risk.Scorer,
	tokens *token.Service,
	producer events.Producer,
	metrics *telemetry.Metrics,
	log *logrus.Entry,
) *Service {
	if opts.ChallengeTTL <= 0 {
		opts.ChallengeTTL = 10 * time.Minute
	}
	if producer == nil {
		producer = events.Nop{}
	}
	return &Service{
		opts:     opts,
		sessions: sessions,
		selector: selector,
		engine:   engine,
		scorer:   scorer,
		tokens:   tokens,
		producer: producer,
		metrics:  metrics,
		log:      log,
		now:      time.Now,
	}
}

// CreateChallenge generates a puzzle and survey snapshot, persists a pending
// session, and returns the external handle plus the widget payload.
func (s *Service) CreateChallenge(ctx context.Context, clientID, difficulty string) (*Challenge, error) {
	if clientID == "" {
		return nil, ErrInvalidTenant
	}

	params, err := s.engine.Generate(difficulty)
	if err != nil {
		s.log.WithError(err).Error("generate puzzle")
		return nil, ErrStorageFailure
	}
	question, err := s.selector.Pick(ctx, clientID)
	if err != nil {
		s.log.WithError(err).Error("pick survey question")
		return nil, ErrStorageFailure
	}

	puzzleJSON, err := json.Marshal(params)
	if err != nil {
		return nil, ErrStorageFailure
	}
	surveyJSON, err := json.Marshal(question)
	if err != nil {
		return nil, ErrStorageFailure
	}

	sessionID, err := security.RandomHex(sessionIDBytes)
	if err != nil {
		return nil, ErrStorageFailure
	}
	now := s.now().UTC()
	sess := &sessiondomain.Session{
		ID:             uuid.NewString(),
		SessionID:      sessionID,
		ClientID:       clientID,
		Status:         sessiondomain.StatusPending,
		PuzzleParams:   puzzleJSON,
		SurveySnapshot: surveyJSON,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.opts.ChallengeTTL),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		s.log.WithError(err).Error("create session")
		return nil, ErrStorageFailure
	}

	s.metrics.ChallengeCreated(ctx, clientID)
	s.emit(&events.Event{
		Type:      events.TypeChallengeCreated,
		ClientID:  clientID,
		SessionID: sessionID,
		At:        now,
	})

	return &Challenge{
		SessionID: sessionID,
		Widget:    Widget{Puzzle: params, Survey: question},
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

// CompleteChallenge verifies the proof-of-work, solve time, survey answer, and
// risk score for a pending session, and on success mints a single-use proof
// token and marks the session used — all in one atomic unit under the session
// row lock. Failure transitions (invalid proof, too fast, high risk, strict
// bad answer) commit as the result of the attempt; infrastructure errors roll
// back and leave the session pending.
func (s *Service) CompleteChallenge(ctx context.Context, clientID, sessionID, proof, answer string, timings sessiondomain.Timings) (string, error) {
	if clientID == "" {
		return "", ErrInvalidTenant
	}

	var (
		minted    string
		riskScore int
	)
	now := s.now().UTC()
	err := s.sessions.Update(ctx, sessionID, func(sess *sessiondomain.Session) (bool, error) {
		if sess.ClientID != clientID {
			return false, ErrTenantMismatch
		}
		switch sess.Status {
		case sessiondomain.StatusPending:
		case sessiondomain.StatusUsed:
			return false, ErrAlreadyUsed
		default:
			return false, ErrInvalidState
		}
		if now.After(sess.ExpiresAt) {
			sess.Status = sessiondomain.StatusExpired
			sess.LastError = "expired"
			return true, ErrExpired
		}

		sess.Timings = &timings

		params, perr := puzzle.DecodeParams(sess.PuzzleParams)
		if perr != nil || !s.engine.Verify(params, proof) {
			sess.Status = sessiondomain.StatusFailed
			sess.LastError = sessiondomain.ReasonPuzzleFailed
			return true, ErrInvalidProof
		}

		if timings.SolveTimeMs < s.opts.MinSolveMs {
			sess.Status = sessiondomain.StatusFailed
			sess.LastError = sessiondomain.ReasonTooFast
			return true, ErrTooFast
		}

		// validate against the snapshot frozen at creation, never the live bank
		var question surveydomain.Question
		validation := surveydomain.ValidationResult{Kind: surveydomain.KindUnsupportedType}
		if uerr := json.Unmarshal(sess.SurveySnapshot, &question); uerr == nil {
			validation = surveydomain.ValidateAnswer(&question, answer)
		}
		sess.SurveyAnswer, _ = json.Marshal(recordedAnswer{
			Answer: validation.Normalized,
			Valid:  validation.OK,
			Kind:   validation.Kind,
		})
		if !validation.OK && s.opts.SurveyStrict {
			sess.Status = sessiondomain.StatusFailed
			sess.LastError = sessiondomain.ReasonSurveyInvalid
			return true, ErrInvalidAnswer
		}

		sig := risk.Signals{
			ClientID:      clientID,
			IP:            timings.IP,
			UserAgent:     timings.UserAgent,
			SolveTimeMs:   timings.SolveTimeMs,
			AnswerPresent: validation.OK,
		}
		score, serr := s.scorer.Score(ctx, sig)
		if serr != nil {
			s.log.WithError(serr).Warn("risk scorer failed, using heuristic")
			score, _ = risk.Heuristic{}.Score(ctx, sig)
		}
		riskScore = score
		if score >= s.opts.RiskThreshold {
			sess.Status = sessiondomain.StatusFailed
			sess.LastError = sessiondomain.ReasonHighRisk
			return true, ErrRejectedRisk
		}

		// flagged marks tokens from borderline attempts so relying parties can
		// apply their own second look
		flagged := !validation.OK || (s.opts.RiskThreshold > 0 && score >= s.opts.RiskThreshold/2)
		tok, merr := s.tokens.Mint(sess, flagged)
		if merr != nil {
			return false, merr
		}
		minted = tok
		sess.Status = sessiondomain.StatusUsed
		usedAt := now
		sess.UsedAt = &usedAt
		sess.LastError = ""
		return true, nil
	})

	s.recordCompletion(ctx, clientID, sessionID, riskScore, now, err)
	if err == nil {
		return minted, nil
	}
	switch {
	case errors.Is(err, sessionrepo.ErrNotFound):
		return "", ErrSessionNotFound
	case errors.Is(err, ErrTenantMismatch),
		errors.Is(err, ErrAlreadyUsed),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrExpired),
		errors.Is(err, ErrInvalidProof),
		errors.Is(err, ErrTooFast),
		errors.Is(err, ErrRejectedRisk),
		errors.Is(err, ErrInvalidAnswer):
		return "", err
	default:
		s.log.WithError(err).Error("complete challenge")
		return "", ErrStorageFailure
	}
}

// VerifyToken verifies and atomically consumes a proof token on behalf of the
// calling client. Delegates to the token service; each token redeems at most once.
func (s *Service) VerifyToken(ctx context.Context, clientID, tokenString string) (*token.Consumption, error) {
	if clientID == "" {
		return nil, ErrInvalidTenant
	}
	rec, err := s.tokens.VerifyAndConsume(ctx, clientID, tokenString)
	s.metrics.TokenConsumed(ctx, clientID, consumeOutcome(err))
	if err == nil {
		s.emit(&events.Event{
			Type:      events.TypeTokenConsumed,
			ClientID:  clientID,
			SessionID: rec.SessionID,
			At:        s.now().UTC(),
		})
	}
	return rec, err
}

func (s *Service) recordCompletion(ctx context.Context, clientID, sessionID string, score int, at time.Time, err error) {
	outcome := completionOutcome(err)
	s.metrics.Completion(ctx, clientID, outcome)

	ev := &events.Event{
		ClientID:  clientID,
		SessionID: sessionID,
		RiskScore: score,
		At:        at,
	}
	switch {
	case err == nil:
		ev.Type = events.TypeChallengeCompleted
	case errors.Is(err, ErrInvalidProof),
		errors.Is(err, ErrTooFast),
		errors.Is(err, ErrRejectedRisk),
		errors.Is(err, ErrInvalidAnswer),
		errors.Is(err, ErrExpired):
		ev.Type = events.TypeChallengeFailed
		ev.Reason = outcome
	default:
		// lost races and infra errors are not lifecycle events
		return
	}
	s.emit(ev)
}

// emit publishes best-effort from a goroutine so Kafka latency never blocks a request.
func (s *Service) emit(ev *events.Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.producer.Emit(ctx, ev); err != nil {
			s.log.WithError(err).Warn("emit challenge event")
		}
	}()
}

func completionOutcome(err error) string {
	switch {
	case err == nil:
		return telemetry.OutcomeOK
	case errors.Is(err, ErrInvalidProof):
		return telemetry.OutcomeInvalidProof
	case errors.Is(err, ErrTooFast):
		return telemetry.OutcomeTooFast
	case errors.Is(err, ErrRejectedRisk):
		return telemetry.OutcomeHighRisk
	case errors.Is(err, ErrInvalidAnswer):
		return telemetry.OutcomeBadAnswer
	case errors.Is(err, ErrExpired):
		return telemetry.OutcomeExpired
	default:
		return telemetry.OutcomeError
	}
}

func consumeOutcome(err error) string {
	switch {
	case err == nil:
		return telemetry.OutcomeOK
	case errors.Is(err, token.ErrExpired):
		return telemetry.OutcomeExpired
	case errors.Is(err, token.ErrAlreadyConsumed), errors.Is(err, token.ErrReplaySuspected):
		return telemetry.OutcomeReplay
	default:
		return telemetry.OutcomeError
	}
}
