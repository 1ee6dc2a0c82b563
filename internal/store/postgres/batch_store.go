// Package postgres persists batch outcomes in Postgres.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/webreel/webreel/internal/store"
)

// Expected schema:
//
//	CREATE TABLE batches (
//	    id UUID PRIMARY KEY,
//	    submitted_at TIMESTAMPTZ NOT NULL,
//	    finished_at TIMESTAMPTZ,
//	    status TEXT NOT NULL,
//	    output_dir TEXT NOT NULL,
//	    concurrency INT NOT NULL,
//	    url_count INT NOT NULL,
//	    succeeded INT NOT NULL,
//	    failed INT NOT NULL
//	);
//	CREATE TABLE recordings (
//	    batch_id UUID REFERENCES batches (id),
//	    job_index INT NOT NULL,
//	    url TEXT NOT NULL,
//	    output_path TEXT NOT NULL,
//	    success BOOLEAN NOT NULL,
//	    error_text TEXT,
//	    duration_ms BIGINT NOT NULL,
//	    PRIMARY KEY (batch_id, job_index)
//	);
const (
	insertBatchSQL = `INSERT INTO batches
		(id, submitted_at, finished_at, status, output_dir, concurrency, url_count, succeeded, failed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	insertRecordingSQL = `INSERT INTO recordings
		(batch_id, job_index, url, output_path, success, error_text, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
)

// pgxPool is the subset of pgxpool.Pool the store needs; pgxmock satisfies
// it in tests.
type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// BatchStore writes batch and per-recording rows into Postgres.
type BatchStore struct {
	pool pgxPool
}

// NewBatchStore connects a pool using the DSN.
func NewBatchStore(ctx context.Context, dsn string) (*BatchStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	return &BatchStore{pool: pool}, nil
}

// NewBatchStoreWithPool wraps an existing pool (used by tests).
func NewBatchStoreWithPool(pool pgxPool) *BatchStore {
	return &BatchStore{pool: pool}
}

// Close releases the underlying pool.
func (s *BatchStore) Close() {
	s.pool.Close()
}

// SaveBatch writes the batch row and one row per job result in a single
// transaction.
func (s *BatchStore) SaveBatch(ctx context.Context, batch store.Batch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save batch: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	succeeded, failed := batch.Results.Counts()
	if _, err := tx.Exec(ctx, insertBatchSQL,
		batch.ID,
		batch.Submitted,
		batch.Finished,
		string(batch.Status),
		batch.OutputDir,
		batch.Concurrency,
		len(batch.URLs),
		succeeded,
		failed,
	); err != nil {
		return fmt.Errorf("insert batch row: %w", err)
	}

	for _, res := range batch.Results {
		var errText *string
		if res.ErrorText != "" {
			errText = &res.ErrorText
		}
		if _, err := tx.Exec(ctx, insertRecordingSQL,
			batch.ID,
			res.Index,
			res.URL,
			res.OutputPath,
			res.Success,
			errText,
			res.Duration.Milliseconds(),
		); err != nil {
			return fmt.Errorf("insert recording row %d: %w", res.Index, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save batch: %w", err)
	}
	return nil
}
