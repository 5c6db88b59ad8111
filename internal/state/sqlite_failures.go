package state

import (
	"fmt"

	"github.com/leapstack-labs/pcrbatch/pkg/core"
)

// SaveFailures stores the failed requests of a batch. A request already
// stored for the batch keeps its first failure.
func (s *SQLiteStore) SaveFailures(batchID string, failures []core.Failure) error {
	if s.db == nil {
		return ErrNotOpen
	}
	if len(failures) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx(), nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, f := range failures {
		_, err := tx.ExecContext(ctx(),
			`INSERT OR IGNORE INTO failures (batch_id, request_id, kind, message, recorded_at) VALUES (?, ?, ?, ?, ?)`,
			batchID, f.RequestID, string(f.Kind), f.Message, f.RecordedAt,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to save failure for %s: %w", f.RequestID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit failures: %w", err)
	}
	return nil
}

// ListFailures returns the failures of a batch in recording order. An empty
// batchID lists failures across every batch.
func (s *SQLiteStore) ListFailures(batchID string) ([]core.Failure, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	query := `SELECT request_id, kind, message, recorded_at FROM failures`
	var args []any
	if batchID != "" {
		query += ` WHERE batch_id = ?`
		args = append(args, batchID)
	}
	query += ` ORDER BY recorded_at, rowid`

	rows, err := s.db.QueryContext(ctx(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list failures: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var failures []core.Failure
	for rows.Next() {
		var (
			f    core.Failure
			kind string
		)
		if err := rows.Scan(&f.RequestID, &kind, &f.Message, &f.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		f.Kind = core.FailureKind(kind)
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list failures: %w", err)
	}
	return failures, nil
}
