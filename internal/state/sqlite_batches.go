package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/pcrbatch/pkg/core"
)

// ErrBatchNotFound is returned when a batch ID is unknown.
var ErrBatchNotFound = errors.New("batch not found")

// CreateBatch records the start of a batch-processing pass.
func (s *SQLiteStore) CreateBatch(requests int) (*core.Batch, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	batch := &core.Batch{
		ID:        generateID(),
		Status:    core.BatchStatusRunning,
		Requests:  requests,
		StartedAt: time.Now().UTC(),
	}

	s.logger.Debug("creating batch", slog.String("id", batch.ID), slog.Int("requests", requests))

	_, err := s.db.ExecContext(ctx(),
		`INSERT INTO batches (id, status, requests, started_at) VALUES (?, ?, ?, ?)`,
		batch.ID, string(batch.Status), batch.Requests, batch.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}
	return batch, nil
}

// CompleteBatch marks a batch as finished with the given status.
func (s *SQLiteStore) CompleteBatch(id string, status core.BatchStatus, errMsg string) error {
	if s.db == nil {
		return ErrNotOpen
	}

	result, err := s.db.ExecContext(ctx(),
		`UPDATE batches SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(status), time.Now().UTC(), nullString(errMsg), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete batch: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete batch: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}
	return nil
}

// GetBatch retrieves a batch by ID.
func (s *SQLiteStore) GetBatch(id string) (*core.Batch, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	row := s.db.QueryRowContext(ctx(),
		`SELECT id, status, requests, started_at, completed_at, error FROM batches WHERE id = ?`, id)
	batch, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return batch, nil
}

// ListBatches retrieves the most recent batches up to the given limit.
func (s *SQLiteStore) ListBatches(limit int) ([]*core.Batch, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	rows, err := s.db.QueryContext(ctx(),
		`SELECT id, status, requests, started_at, completed_at, error FROM batches ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var batches []*core.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	return batches, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(row scanner) (*core.Batch, error) {
	var (
		b           core.Batch
		status      string
		completedAt sql.NullTime
		errMsg      sql.NullString
	)
	if err := row.Scan(&b.ID, &status, &b.Requests, &b.StartedAt, &completedAt, &errMsg); err != nil {
		return nil, err
	}
	b.Status = core.BatchStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		b.CompletedAt = &t
	}
	if errMsg.Valid {
		b.Error = errMsg.String
	}
	return &b, nil
}
