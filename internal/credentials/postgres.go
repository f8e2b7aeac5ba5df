package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of *pgxpool.Pool used by PostgresStore.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore keeps secrets in a PostgreSQL table.
type PostgresStore struct {
	db Querier
}

// NewPostgresStore creates a new PostgreSQL credential store.
func NewPostgresStore(db Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the credentials table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS credentials (
			service    TEXT NOT NULL,
			account    TEXT NOT NULL,
			secret     TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (service, account)
		)
	`
	if _, err := s.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create credentials table: %w", err)
	}
	return nil
}

// Get retrieves the secret for key.
func (s *PostgresStore) Get(ctx context.Context, key Key) (string, error) {
	query := `
		SELECT secret
		FROM credentials
		WHERE service = $1 AND account = $2
	`

	var secret string
	err := s.db.QueryRow(ctx, query, key.Service, key.Account).Scan(&secret)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get credential %s: %w", key, err)
	}
	return secret, nil
}

// Set upserts the secret for key.
func (s *PostgresStore) Set(ctx context.Context, key Key, secret string) error {
	query := `
		INSERT INTO credentials (service, account, secret, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (service, account)
		DO UPDATE SET secret = EXCLUDED.secret, updated_at = now()
	`
	if _, err := s.db.Exec(ctx, query, key.Service, key.Account, secret); err != nil {
		return fmt.Errorf("set credential %s: %w", key, err)
	}
	return nil
}
