package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/habibshah-ds/survay-captcha-saas/internal/session/domain"
)

// PostgresStore persists challenge sessions in the captcha_sessions table.
// Update acquires a row-level lock with SELECT ... FOR UPDATE so concurrent
// completion or consumption attempts on one session are linearized by Postgres.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore returns a session store backed by db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const sessionColumns = `id, session_id, client_id, status, puzzle_params, survey_snapshot,
	survey_answer, timings, created_at, expires_at, used_at,
	token_issued, COALESCE(token_jti, ''), token_expires_at, token_used, COALESCE(last_error, '')`

// Create persists a new pending session. The session must have ID, SessionID,
// ClientID, PuzzleParams, SurveySnapshot, CreatedAt, and ExpiresAt set.
func (s *PostgresStore) Create(ctx context.Context, sess *domain.Session) error {
	const q = `
		INSERT INTO captcha_sessions
			(id, session_id, client_id, status, puzzle_params, survey_snapshot, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.db.ExecContext(ctx, q,
		sess.ID, sess.SessionID, sess.ClientID, sess.Status,
		[]byte(sess.PuzzleParams), []byte(sess.SurveySnapshot),
		sess.CreatedAt, sess.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetBySessionID returns the session for the external handle, or nil if not found.
func (s *PostgresStore) GetBySessionID(ctx context.Context, sessionID string) (*domain.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM captcha_sessions WHERE session_id = $1`
	sess, err := scanSession(s.db.QueryRowContext(ctx, q, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return sess, nil
}

// ExpireOverdue transitions every pending session whose TTL has elapsed to
// expired. Returns the number of rows transitioned. Sessions already terminal
// are never touched; the sweep only accelerates what a completion attempt
// would do lazily.
func (s *PostgresStore) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	const q = `
		UPDATE captcha_sessions
		SET status = $1, last_error = 'expired', updated_at = now()
		WHERE status = $2 AND expires_at < $3`
	res, err := s.db.ExecContext(ctx, q, domain.StatusExpired, domain.StatusPending, now)
	if err != nil {
		return 0, fmt.Errorf("expire overdue sessions: %w", err)
	}
	return res.RowsAffected()
}

// Update implements Store. The row is locked for the duration of one logical
// operation and released on commit or rollback.
func (s *PostgresStore) Update(ctx context.Context, sessionID string, fn UpdateFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := `SELECT ` + sessionColumns + ` FROM captcha_sessions WHERE session_id = $1 FOR UPDATE`
	sess, err := scanSession(tx.QueryRowContext(ctx, q, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock session: %w", err)
	}

	commit, fnErr := fn(sess)
	if !commit {
		return fnErr
	}

	if err := s.write(ctx, tx, sess); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return fnErr
}

func (s *PostgresStore) write(ctx context.Context, tx *sql.Tx, sess *domain.Session) error {
	const q = `
		UPDATE captcha_sessions
		SET status = $2,
			survey_answer = $3,
			timings = $4,
			used_at = $5,
			token_issued = $6,
			token_jti = $7,
			token_expires_at = $8,
			token_used = $9,
			last_error = $10,
			updated_at = now()
		WHERE id = $1`
	var timings []byte
	if sess.Timings != nil {
		var err error
		timings, err = marshalTimings(sess.Timings)
		if err != nil {
			return err
		}
	}
	_, err := tx.ExecContext(ctx, q,
		sess.ID, sess.Status,
		nullBytes(sess.SurveyAnswer), nullBytes(timings),
		nullTime(sess.UsedAt),
		sess.TokenIssued, nullString(sess.TokenJti), nullTime(sess.TokenExpiresAt),
		sess.TokenUsed, nullString(sess.LastError))
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		sess           domain.Session
		surveyAnswer   []byte
		timings        []byte
		usedAt         sql.NullTime
		tokenExpiresAt sql.NullTime
	)
	err := row.Scan(
		&sess.ID, &sess.SessionID, &sess.ClientID, &sess.Status,
		(*[]byte)(&sess.PuzzleParams), (*[]byte)(&sess.SurveySnapshot),
		&surveyAnswer, &timings, &sess.CreatedAt, &sess.ExpiresAt, &usedAt,
		&sess.TokenIssued, &sess.TokenJti, &tokenExpiresAt, &sess.TokenUsed, &sess.LastError)
	if err != nil {
		return nil, err
	}
	sess.SurveyAnswer = surveyAnswer
	if timings != nil {
		t, err := unmarshalTimings(timings)
		if err != nil {
			return nil, err
		}
		sess.Timings = t
	}
	if usedAt.Valid {
		sess.UsedAt = &usedAt.Time
	}
	if tokenExpiresAt.Valid {
		sess.TokenExpiresAt = &tokenExpiresAt.Time
	}
	return &sess, nil
}

func marshalTimings(t *domain.Timings) ([]byte, error) {
	return json.Marshal(t)
}

func unmarshalTimings(b []byte) (*domain.Timings, error) {
	var t domain.Timings
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
