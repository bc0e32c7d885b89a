package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS extraction_feedback (
	id             BIGSERIAL PRIMARY KEY,
	created_at     TIMESTAMPTZ NOT NULL,
	session_id     TEXT NOT NULL,
	original_input TEXT NOT NULL,
	extracted_data JSONB,
	was_incomplete BOOLEAN NOT NULL,
	attempts_count INT NOT NULL,
	success        BOOLEAN NOT NULL
)`

const insertRecord = `
INSERT INTO extraction_feedback
	(created_at, session_id, original_input, extracted_data, was_incomplete, attempts_count, success)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// PostgresStore persists feedback records in PostgreSQL through a pgx
// connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing pool. The caller owns the pool's
// lifecycle.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the feedback table if it does not exist. Call once
// at startup.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("feedback: ensure schema: %w", err)
	}
	return nil
}

// Save inserts one record.
func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	var extracted []byte
	if rec.ExtractedData != nil {
		var err error
		if extracted, err = json.Marshal(rec.ExtractedData); err != nil {
			return fmt.Errorf("feedback: marshal draft: %w", err)
		}
	}

	if _, err := s.pool.Exec(ctx, insertRecord,
		rec.Timestamp, rec.SessionID, rec.OriginalInput, extracted,
		rec.WasIncomplete, rec.AttemptsCount, rec.Success,
	); err != nil {
		return fmt.Errorf("feedback: insert: %w", err)
	}
	return nil
}
