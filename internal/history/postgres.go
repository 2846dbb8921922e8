package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const migrationLockID = 724311

type PostgresStore struct {
	db *sql.DB
}

// NewPostgres opens dsn with the pgx driver and creates the schema.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Hub replicas may start together; one of them creates the schema.
	var acquired bool
	if err := s.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, migrationLockID).Scan(&acquired); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !acquired {
		time.Sleep(2 * time.Second)
		return nil
	}
	defer func() {
		_, _ = s.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, migrationLockID)
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS summaries (
			id UUID PRIMARY KEY,
			prompt TEXT NOT NULL,
			result TEXT NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			site_name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS summaries_created_at_idx ON summaries (created_at DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate history schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, sum Summary) (Summary, error) {
	sum = prepare(sum, time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO summaries(id, prompt, result, url, site_name, created_at)
		VALUES($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET prompt=excluded.prompt, result=excluded.result,
			url=excluded.url, site_name=excluded.site_name`,
		sum.ID, sum.Prompt, sum.Result, sum.URL, sum.SiteName, sum.Date)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to save summary: %w", err)
	}
	return sum, nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, prompt, result, url, site_name, created_at
		FROM summaries
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Prompt, &sum.Result, &sum.URL, &sum.SiteName, &sum.Date); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM summaries WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete summary: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
