// Package fulfillment realizes assembled reaction plans as physical stripwells
// and applies the operator's placement or cancellation decision.
package fulfillment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/pcrbatch/pkg/core"
)

// CancelMessage is recorded against every request of a cancelled plan.
const CancelMessage = "the thermocycler run for this request was cancelled by the operator; retry it in a separate batch"

// Config holds driver configuration.
type Config struct {
	Producer core.Producer
	Recorder core.FailureRecorder
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Driver produces artifacts for plans and handles cancellation.
type Driver struct {
	producer core.Producer
	recorder core.FailureRecorder
	logger   *slog.Logger
}

// NewDriver creates a driver. A nil producer defaults to a StripwellProducer.
func NewDriver(cfg Config) *Driver {
	d := &Driver{
		producer: cfg.Producer,
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
	}
	if d.producer == nil {
		d.producer = &StripwellProducer{}
	}
	if d.logger == nil {
		d.logger = slog.New(slog.DiscardHandler)
	}
	return d
}

// Fulfill produces the stripwells for every bin of plan, in bin order, and
// appends them to the plan. A bin that yields nothing contributes nothing.
//
// If the producer fails, the plan is cancelled and the wrapped error is
// returned; the failure stays local to this plan.
func (d *Driver) Fulfill(ctx context.Context, plan *core.ReactionPlan) error {
	for _, bin := range plan.Bins {
		strips, err := d.producer.Produce(ctx, plan.ID, bin)
		if err != nil {
			d.logger.ErrorContext(ctx, "producing stripwells failed, cancelling plan",
				slog.String("plan", plan.ID),
				slog.Float64("bin", bin.Temperature),
				slog.String("error", err.Error()))
			d.Cancel(ctx, plan)
			return fmt.Errorf("failed to produce stripwells for plan %s bin %.1f: %w", plan.ID, bin.Temperature, err)
		}
		if len(strips) == 0 {
			continue
		}
		plan.Stripwells = append(plan.Stripwells, strips...)
	}

	d.logger.DebugContext(ctx, "fulfilled plan",
		slog.String("plan", plan.ID),
		slog.Int("stripwells", len(plan.Stripwells)))
	return nil
}

// IsGradient reports whether plan spans more than one temperature bin.
func IsGradient(plan *core.ReactionPlan) bool {
	return len(plan.Bins) > 1
}

// Place records the thermocycler the operator loaded and moves every
// stripwell of the plan there.
func (d *Driver) Place(ctx context.Context, plan *core.ReactionPlan, thermocycler string) {
	plan.Thermocycler = thermocycler
	for _, sw := range plan.Stripwells {
		sw.Location = thermocycler
	}
	d.logger.InfoContext(ctx, "plan placed",
		slog.String("plan", plan.ID),
		slog.String("thermocycler", thermocycler))
}

// Cancel aborts a whole plan: every request in every surviving bin is
// recorded as a batching_issue failure and every stripwell is voided. Bins
// are left as they are. Cancelling an already cancelled plan does nothing.
func (d *Driver) Cancel(ctx context.Context, plan *core.ReactionPlan) {
	if plan.Cancelled {
		d.logger.DebugContext(ctx, "plan already cancelled", slog.String("plan", plan.ID))
		return
	}
	plan.Cancelled = true

	for _, bin := range plan.Bins {
		for _, req := range bin.Requests {
			if d.recorder != nil {
				d.recorder.RecordFailure(req, core.FailureBatchingIssue, CancelMessage)
			}
		}
	}
	for _, sw := range plan.Stripwells {
		sw.Voided = true
	}

	d.logger.WarnContext(ctx, "plan cancelled",
		slog.String("plan", plan.ID),
		slog.Int("requests", len(plan.Requests())),
		slog.Int("stripwells", len(plan.Stripwells)))
}
