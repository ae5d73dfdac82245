package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mplacona/ThreadScout/internal/model"
)

// PostgresSessionStore persists session records in a jsonb column keyed by
// session key. Writes upsert, matching the contract's idempotent-overwrite
// semantics.
type PostgresSessionStore struct {
	pool *pgxpool.Pool
}

func NewPostgresSessionStore(pool *pgxpool.Pool) *PostgresSessionStore {
	return &PostgresSessionStore{pool: pool}
}

// EnsureSchema creates the sessions table if it does not exist.
func (s *PostgresSessionStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS scan_sessions (
			session_key TEXT PRIMARY KEY,
			record      JSONB NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensuring scan_sessions schema: %w", err)
	}
	return nil
}

func (s *PostgresSessionStore) Write(ctx context.Context, key string, record *model.SessionRecord) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO scan_sessions (session_key, record, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (session_key) DO UPDATE SET record = $2, updated_at = now()`,
		key, data)
	if err != nil {
		return fmt.Errorf("writing session record: %w", err)
	}
	return nil
}

func (s *PostgresSessionStore) Read(ctx context.Context, key string) (*model.SessionRecord, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM scan_sessions WHERE session_key = $1`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading session record: %w", err)
	}

	var record model.SessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshal session record: %w", err)
	}
	return &record, nil
}

func (s *PostgresSessionStore) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT session_key FROM scan_sessions WHERE session_key LIKE $1 || '%' ORDER BY session_key`,
		prefix)
	if err != nil {
		return nil, fmt.Errorf("listing session records: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning session key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing session records: %w", err)
	}
	return keys, nil
}
