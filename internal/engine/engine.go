// Package engine runs one batch of PCR requests through the whole pipeline:
// grouping, run assembly, stripwell production, operator narration and
// failure bookkeeping.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/leapstack-labs/pcrbatch/internal/batching"
	"github.com/leapstack-labs/pcrbatch/internal/fulfillment"
	"github.com/leapstack-labs/pcrbatch/internal/grouper"
	"github.com/leapstack-labs/pcrbatch/internal/ledger"
	"github.com/leapstack-labs/pcrbatch/internal/loader"
	"github.com/leapstack-labs/pcrbatch/internal/metrics"
	"github.com/leapstack-labs/pcrbatch/internal/narrator"
	"github.com/leapstack-labs/pcrbatch/pkg/core"
)

// Config holds engine configuration.
type Config struct {
	// Grouper partitions requests into runs (optional, uses grouper.Greedy defaults if nil)
	Grouper core.Grouper
	// MaxBins caps distinct bins per run. Zero means batching.MaxBins.
	MaxBins int
	// Producer creates stripwells per bin (optional, uses a 12-well StripwellProducer if nil)
	Producer core.Producer
	// Narrator collects the operator's decision per plan (optional, uses narrator.Scripted if nil)
	Narrator core.Narrator
	// Store persists batch history (optional)
	Store core.Store
	// Metrics receives batching outcomes (optional)
	Metrics *metrics.Collector
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
	// NewID generates batch and plan IDs (optional, uses random UUIDs if nil)
	NewID func() string
}

// Engine orchestrates batch processing.
type Engine struct {
	grouper  core.Grouper
	maxBins  int
	producer core.Producer
	narrator core.Narrator
	store    core.Store
	metrics  *metrics.Collector
	logger   *slog.Logger
	newID    func() string
}

// Result is the outcome of one batch.
type Result struct {
	BatchID  string
	Plans    []*core.ReactionPlan
	Failures []core.Failure
	// FailureCounts tallies Failures by kind.
	FailureCounts map[core.FailureKind]int
	// PlanErrors holds plan-local errors, such as a producer failure that
	// cancelled its plan. They never stop the batch.
	PlanErrors []error
}

// New creates an engine, filling unset collaborators with defaults.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &Engine{
		grouper:  cfg.Grouper,
		maxBins:  cfg.MaxBins,
		producer: cfg.Producer,
		narrator: cfg.Narrator,
		store:    cfg.Store,
		metrics:  cfg.Metrics,
		logger:   logger,
		newID:    cfg.NewID,
	}
	if e.grouper == nil {
		e.grouper = grouper.NewGreedy(grouper.Config{MaxRows: cfg.MaxBins, Logger: logger})
	}
	if e.narrator == nil {
		e.narrator = &narrator.Scripted{}
	}
	if e.newID == nil {
		e.newID = func() string { return uuid.New().String() }
	}
	return e
}

// Process runs batch through the pipeline. Per-request failures are recorded
// in the result and never returned as errors; an error means the batch itself
// could not be processed (invalid input, narrator or store failure).
func (e *Engine) Process(ctx context.Context, batch *loader.Batch) (*Result, error) {
	if batch == nil {
		return nil, fmt.Errorf("%w: nil batch", loader.ErrEmptyBatch)
	}

	total := len(batch.Requests) + len(batch.Exclusions)
	e.logger.InfoContext(ctx, "starting batch",
		slog.Int("requests", len(batch.Requests)),
		slog.Int("excluded", len(batch.Exclusions)))

	result := &Result{}
	if e.store != nil {
		b, err := e.store.CreateBatch(total)
		if err != nil {
			return nil, fmt.Errorf("failed to create batch: %w", err)
		}
		result.BatchID = b.ID
	} else {
		result.BatchID = e.newID()
	}

	failed, err := e.run(ctx, batch, result)
	if failed != nil {
		result.Failures = failed.Failures()
		result.FailureCounts = failed.CountByKind()
	}
	if e.metrics != nil {
		e.metrics.ObserveRequests(total)
		e.metrics.ObserveFailures(result.Failures)
	}
	if err != nil {
		e.logger.ErrorContext(ctx, "batch failed",
			slog.String("batch", result.BatchID),
			slog.String("error", err.Error()))
		if e.store != nil {
			_ = e.store.CompleteBatch(result.BatchID, core.BatchStatusFailed, err.Error())
		}
		return result, err
	}

	if e.store != nil {
		if err := e.persist(result); err != nil {
			_ = e.store.CompleteBatch(result.BatchID, core.BatchStatusFailed, err.Error())
			return result, err
		}
	}

	e.logger.InfoContext(ctx, "batch completed",
		slog.String("batch", result.BatchID),
		slog.Int("plans", len(result.Plans)),
		slog.Int("failures", len(result.Failures)))
	return result, nil
}

// run executes the in-memory stages and returns the batch's failure ledger.
func (e *Engine) run(ctx context.Context, batch *loader.Batch, result *Result) (*ledger.Ledger, error) {
	failures := ledger.New(e.logger)

	for _, ex := range batch.Exclusions {
		failures.RecordFailure(ex.Request, ex.Kind, ex.Message)
	}

	groups, err := e.grouper.Group(ctx, batch.Requests)
	if err != nil {
		return failures, fmt.Errorf("failed to group requests: %w", err)
	}

	assembler := batching.NewAssembler(batching.Config{
		MaxBins:  e.maxBins,
		Recorder: failures,
		Logger:   e.logger,
		NewID:    e.newID,
	})
	driver := fulfillment.NewDriver(fulfillment.Config{
		Producer: e.producer,
		Recorder: failures,
		Logger:   e.logger,
	})

	result.Plans = assembler.AssembleAll(ctx, groups)
	e.logger.DebugContext(ctx, "assembled plans", slog.Int("count", len(result.Plans)))

	for _, plan := range result.Plans {
		if err := driver.Fulfill(ctx, plan); err != nil {
			result.PlanErrors = append(result.PlanErrors, err)
		}
	}

	for i, plan := range result.Plans {
		if err := ctx.Err(); err != nil {
			return failures, err
		}
		if plan.Cancelled {
			e.logger.DebugContext(ctx, "skipping narration of cancelled plan", slog.String("plan", plan.ID))
			e.observe(plan)
			continue
		}

		resp, err := e.narrator.Narrate(ctx, i, plan)
		if err != nil {
			return failures, fmt.Errorf("failed to narrate plan %d: %w", i+1, err)
		}
		if resp.Cancel {
			driver.Cancel(ctx, plan)
		} else {
			driver.Place(ctx, plan, resp.Thermocycler)
		}
		e.observe(plan)
	}

	if err := VerifyCoverage(AllRequests(batch), &Result{Plans: result.Plans, Failures: failures.Failures()}); err != nil {
		return failures, err
	}
	return failures, nil
}

func (e *Engine) observe(plan *core.ReactionPlan) {
	if e.metrics != nil {
		e.metrics.ObservePlan(plan)
	}
}

func (e *Engine) persist(result *Result) error {
	for _, plan := range result.Plans {
		if err := e.store.SavePlan(result.BatchID, plan); err != nil {
			return fmt.Errorf("failed to save plan %s: %w", plan.ID, err)
		}
	}
	if err := e.store.SaveFailures(result.BatchID, result.Failures); err != nil {
		return fmt.Errorf("failed to save failures: %w", err)
	}
	if err := e.store.CompleteBatch(result.BatchID, core.BatchStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to complete batch: %w", err)
	}
	return nil
}

// AllRequests returns every request of batch, excluded ones included.
func AllRequests(batch *loader.Batch) []core.Request {
	reqs := make([]core.Request, 0, len(batch.Requests)+len(batch.Exclusions))
	reqs = append(reqs, batch.Requests...)
	for _, ex := range batch.Exclusions {
		reqs = append(reqs, ex.Request)
	}
	return reqs
}

// ErrCoverage is returned when a request is neither placed exactly once nor failed.
var ErrCoverage = errors.New("request coverage violated")

// VerifyCoverage checks that every request sits in exactly one bin of a live
// (not cancelled) plan, or is recorded as failed, and never both.
func VerifyCoverage(requests []core.Request, result *Result) error {
	placed := make(map[string]int, len(requests))
	for _, plan := range result.Plans {
		if plan.Cancelled {
			continue
		}
		for _, req := range plan.Requests() {
			placed[req.ID]++
		}
	}
	failed := make(map[string]bool, len(result.Failures))
	for _, f := range result.Failures {
		failed[f.RequestID] = true
	}

	var errs []error
	for _, req := range requests {
		n := placed[req.ID]
		switch {
		case failed[req.ID] && n > 0:
			errs = append(errs, fmt.Errorf("%w: %s is both placed and failed", ErrCoverage, req.ID))
		case !failed[req.ID] && n == 0:
			errs = append(errs, fmt.Errorf("%w: %s is neither placed nor failed", ErrCoverage, req.ID))
		case n > 1:
			errs = append(errs, fmt.Errorf("%w: %s is placed %d times", ErrCoverage, req.ID, n))
		}
	}
	return errors.Join(errs...)
}
