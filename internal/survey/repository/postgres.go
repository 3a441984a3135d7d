package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/habibshah-ds/survay-captcha-saas/internal/survey/domain"
)

// PostgresRepository persists survey questions in the survey_questions table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a question repository backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// PickRandom returns a random non-archived question from the global pool or the
// client's own pool, or nil if the bank is empty for this client.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) PickRandom(ctx context.Context, clientID string) (*domain.Question, error) {
	const q = `
		SELECT id, COALESCE(client_id, ''), question_text, question_type, options, scale_min, scale_max
		FROM survey_questions
		WHERE (client_id IS NULL OR client_id = $1)
		  AND archived = FALSE
		ORDER BY RANDOM()
		LIMIT 1`
	row := r.db.QueryRowContext(ctx, q, clientID)

	var (
		question domain.Question
		options  []byte
		scaleMin sql.NullInt64
		scaleMax sql.NullInt64
	)
	err := row.Scan(&question.ID, &question.ClientID, &question.Text, &question.Type, &options, &scaleMin, &scaleMax)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(options) > 0 {
		if err := json.Unmarshal(options, &question.Options); err != nil {
			return nil, err
		}
	}
	if scaleMin.Valid {
		v := int(scaleMin.Int64)
		question.ScaleMin = &v
	}
	if scaleMax.Valid {
		v := int(scaleMax.Int64)
		question.ScaleMax = &v
	}
	return &question, nil
}

// Create persists the question. The question must have ID set; an empty
// ClientID stores NULL (global pool).
func (r *PostgresRepository) Create(ctx context.Context, question *domain.Question) error {
	var options []byte
	if len(question.Options) > 0 {
		var err error
		options, err = json.Marshal(question.Options)
		if err != nil {
			return err
		}
	}
	clientID := sql.NullString{String: question.ClientID, Valid: question.ClientID != ""}
	scaleMin := sql.NullInt64{}
	if question.ScaleMin != nil {
		scaleMin = sql.NullInt64{Int64: int64(*question.ScaleMin), Valid: true}
	}
	scaleMax := sql.NullInt64{}
	if question.ScaleMax != nil {
		scaleMax = sql.NullInt64{Int64: int64(*question.ScaleMax), Valid: true}
	}
	const q = `
		INSERT INTO survey_questions (id, client_id, question_text, question_type, options, scale_min, scale_max, archived)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, q,
		question.ID, clientID, question.Text, question.Type, options, scaleMin, scaleMax, question.Archived)
	return err
}
