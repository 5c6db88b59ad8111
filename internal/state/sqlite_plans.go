package state

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/pcrbatch/pkg/core"
)

// SavePlan stores a finished reaction plan with its bins and stripwells.
// Plans keep the order in which they are saved.
func (s *SQLiteStore) SavePlan(batchID string, plan *core.ReactionPlan) (err error) {
	if s.db == nil {
		return ErrNotOpen
	}

	tx, err := s.db.BeginTx(ctx(), nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var position int
	if err = tx.QueryRowContext(ctx(), `SELECT COUNT(*) FROM plans WHERE batch_id = ?`, batchID).Scan(&position); err != nil {
		return fmt.Errorf("failed to count plans: %w", err)
	}

	_, err = tx.ExecContext(ctx(),
		`INSERT INTO plans (id, batch_id, position, max_extension, cycle_minutes, cycle_seconds, thermocycler, cancelled, trimmed_bins)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID, batchID, position, plan.Descriptor.MaxExtension, plan.CycleMinutes, plan.CycleSeconds,
		nullString(plan.Thermocycler), boolToInt(plan.Cancelled), len(plan.TrimmedBins),
	)
	if err != nil {
		return fmt.Errorf("failed to insert plan %s: %w", plan.ID, err)
	}

	if err = insertPlanRequests(tx, plan); err != nil {
		return err
	}
	if err = insertStripwells(tx, plan); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit plan %s: %w", plan.ID, err)
	}

	s.logger.Debug("saved plan",
		slog.String("batch", batchID),
		slog.String("plan", plan.ID),
		slog.Int("position", position))
	return nil
}

func insertPlanRequests(tx *sql.Tx, plan *core.ReactionPlan) error {
	stmt, err := tx.PrepareContext(ctx(),
		`INSERT INTO plan_requests (plan_id, bin_position, bin_temperature, request_id, extension_time, anneal_temperature)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare plan requests: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, bin := range plan.Bins {
		for _, r := range bin.Requests {
			if _, err := stmt.ExecContext(ctx(), plan.ID, i, bin.Temperature, r.ID, r.ExtensionTime, r.AnnealTemperature); err != nil {
				return fmt.Errorf("failed to insert request %s: %w", r.ID, err)
			}
		}
	}
	return nil
}

func insertStripwells(tx *sql.Tx, plan *core.ReactionPlan) error {
	for _, sw := range plan.Stripwells {
		_, err := tx.ExecContext(ctx(),
			`INSERT INTO stripwells (id, plan_id, temperature, samples, location, voided) VALUES (?, ?, ?, ?, ?, ?)`,
			sw.ID, plan.ID, sw.Temperature, sw.NumSamples(), nullString(sw.Location), boolToInt(sw.Voided),
		)
		if err != nil {
			return fmt.Errorf("failed to insert stripwell %s: %w", sw.ID, err)
		}
	}
	return nil
}

// CountPlans returns how many plans were saved for a batch.
func (s *SQLiteStore) CountPlans(batchID string) (int, error) {
	if s.db == nil {
		return 0, ErrNotOpen
	}

	var n int
	if err := s.db.QueryRowContext(ctx(), `SELECT COUNT(*) FROM plans WHERE batch_id = ?`, batchID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count plans: %w", err)
	}
	return n, nil
}

// PlanSummary is a stored plan without its request layout.
type PlanSummary struct {
	ID           string    `json:"id"`
	Position     int       `json:"position"`
	Extension    string    `json:"extension"`
	Thermocycler string    `json:"thermocycler,omitempty"`
	Cancelled    bool      `json:"cancelled"`
	Bins         []float64 `json:"bins"`
	Stripwells   int       `json:"stripwells"`
}

// ListPlans returns the stored plans of a batch in order.
func (s *SQLiteStore) ListPlans(batchID string) ([]PlanSummary, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	rows, err := s.db.QueryContext(ctx(), `
		SELECT p.id, p.position, p.cycle_minutes, p.cycle_seconds, p.thermocycler, p.cancelled,
		       (SELECT COUNT(*) FROM stripwells sw WHERE sw.plan_id = p.id)
		FROM plans p WHERE p.batch_id = ? ORDER BY p.position`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var plans []PlanSummary
	for rows.Next() {
		var (
			p            PlanSummary
			mm, ss       string
			thermocycler sql.NullString
			cancelled    int
		)
		if err := rows.Scan(&p.ID, &p.Position, &mm, &ss, &thermocycler, &cancelled, &p.Stripwells); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		p.Extension = mm + ":" + ss
		p.Thermocycler = thermocycler.String
		p.Cancelled = cancelled != 0
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	for i := range plans {
		bins, err := s.planBins(plans[i].ID)
		if err != nil {
			return nil, err
		}
		plans[i].Bins = bins
	}
	return plans, nil
}

func (s *SQLiteStore) planBins(planID string) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx(),
		`SELECT DISTINCT bin_position, bin_temperature FROM plan_requests WHERE plan_id = ? ORDER BY bin_position`, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bins: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var bins []float64
	for rows.Next() {
		var (
			pos  int
			temp float64
		)
		if err := rows.Scan(&pos, &temp); err != nil {
			return nil, fmt.Errorf("failed to scan bin: %w", err)
		}
		bins = append(bins, temp)
	}
	return bins, rows.Err()
}
