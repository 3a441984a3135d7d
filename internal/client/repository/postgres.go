package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/habibshah-ds/survay-captcha-saas/internal/client/domain"
)

// PostgresRepository persists clients in the clients table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a client repository backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const clientColumns = `id, name, site_key, api_key_hash, plan, monthly_limit, api_key_last_rotated, created_at`

// GetBySiteKey resolves a client from its public site key.
func (r *PostgresRepository) GetBySiteKey(ctx context.Context, siteKey string) (*domain.Client, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE site_key = $1`, siteKey)
	return scanClient(row)
}

// GetByAPIKeyHash resolves a client from the peppered hash of its API key.
func (r *PostgresRepository) GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*domain.Client, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE api_key_hash = $1`, apiKeyHash)
	return scanClient(row)
}

// Create persists the client. ID, SiteKey, and APIKeyHash must be set.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Client) error {
	rotated := sql.NullTime{}
	if c.APIKeyLastRotated != nil {
		rotated = sql.NullTime{Time: *c.APIKeyLastRotated, Valid: true}
	}
	const q = `
		INSERT INTO clients (id, name, site_key, api_key_hash, plan, monthly_limit, api_key_last_rotated)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, q,
		c.ID, c.Name, c.SiteKey, c.APIKeyHash, c.Plan, c.MonthlyLimit, rotated)
	return err
}

func scanClient(row *sql.Row) (*domain.Client, error) {
	var (
		c       domain.Client
		rotated sql.NullTime
	)
	err := row.Scan(&c.ID, &c.Name, &c.SiteKey, &c.APIKeyHash, &c.Plan, &c.MonthlyLimit, &rotated, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if rotated.Valid {
		c.APIKeyLastRotated = &rotated.Time
	}
	return &c, nil
}
