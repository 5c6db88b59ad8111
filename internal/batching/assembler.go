// Package batching assembles grouped PCR requests into thermocycler reaction plans.
//
// The assembler takes the Compatibility Grouper's output, computes each run's
// shared extension timing, orders rows into annealing temperature bins and
// enforces the hardware limit on distinct bins per run.
package batching

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/leapstack-labs/pcrbatch/pkg/core"
)

// MaxBins is the number of independently addressable temperature rows on a
// gradient thermocycler.
const MaxBins = 8

// TrimMessage is recorded against every request in a bin dropped for capacity.
const TrimMessage = "could not fit this request into a thermocycler run for this batch; retry it in a separate batch"

// Config holds assembler configuration.
type Config struct {
	// MaxBins caps the distinct bins per run. Zero means MaxBins.
	MaxBins int
	// Recorder receives batching_issue failures for trimmed requests.
	Recorder core.FailureRecorder
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
	// NewID generates plan IDs (optional, uses random UUIDs if nil)
	NewID func() string
}

// Assembler turns run groups into reaction plans.
type Assembler struct {
	maxBins  int
	recorder core.FailureRecorder
	logger   *slog.Logger
	newID    func() string
}

// NewAssembler creates an assembler from cfg.
func NewAssembler(cfg Config) *Assembler {
	a := &Assembler{
		maxBins:  cfg.MaxBins,
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
		newID:    cfg.NewID,
	}
	if a.maxBins <= 0 {
		a.maxBins = MaxBins
	}
	if a.logger == nil {
		a.logger = slog.New(slog.DiscardHandler)
	}
	if a.newID == nil {
		a.newID = func() string { return uuid.New().String() }
	}
	return a
}

// AssembleAll assembles one plan per run group, preserving the grouper's order.
func (a *Assembler) AssembleAll(ctx context.Context, groups []core.RunGroup) []*core.ReactionPlan {
	plans := make([]*core.ReactionPlan, 0, len(groups))
	for _, g := range groups {
		plans = append(plans, a.Assemble(ctx, g.Descriptor, g.Rows))
	}
	return plans
}

// Assemble builds the reaction plan for one run.
//
// Rows are ordered by ascending minimum anneal (stable, so the grouper's
// order survives ties) and members within a row by their own anneal
// temperature. While more bins remain than the hardware supports, the
// hottest bin is dropped and each of its requests is recorded as a
// batching_issue failure. Trimming never aborts the run.
func (a *Assembler) Assemble(ctx context.Context, desc core.RunDescriptor, rows []core.RowGroup) *core.ReactionPlan {
	plan := &core.ReactionPlan{
		ID:         a.newID(),
		Descriptor: desc,
	}
	plan.CycleMinutes, plan.CycleSeconds = CycleTime(desc.MaxExtension)

	bins := buildBins(rows)

	for len(bins) > a.maxBins {
		hottest := bins[len(bins)-1]
		bins = bins[:len(bins)-1]
		plan.TrimmedBins = append(plan.TrimmedBins, hottest)

		a.logger.WarnContext(ctx, "trimming bin over hardware limit",
			slog.String("plan", plan.ID),
			slog.Float64("temperature", hottest.Temperature),
			slog.Int("requests", len(hottest.Requests)),
			slog.Int("max_bins", a.maxBins))

		for _, req := range hottest.Requests {
			if a.recorder != nil {
				a.recorder.RecordFailure(req, core.FailureBatchingIssue, TrimMessage)
			}
		}
	}
	plan.Bins = bins

	a.logger.DebugContext(ctx, "assembled plan",
		slog.String("plan", plan.ID),
		slog.Float64("max_extension", desc.MaxExtension),
		slog.String("extension", plan.ExtensionClock()),
		slog.Any("bins", plan.Temperatures()))
	for _, b := range plan.Bins {
		a.logger.DebugContext(ctx, "bin",
			slog.String("plan", plan.ID),
			slog.Float64("temperature", b.Temperature),
			slog.Any("requests", core.RequestIDs(b.Requests)))
	}

	return plan
}

// buildBins orders row groups into bins keyed by rounded minimum anneal.
// Rows whose keys collide after rounding share one bin.
func buildBins(rows []core.RowGroup) []core.Bin {
	sorted := make([]core.RowGroup, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinAnneal < sorted[j].MinAnneal
	})

	var bins []core.Bin
	index := make(map[float64]int)
	for _, row := range sorted {
		key := RoundBin(row.MinAnneal)
		i, ok := index[key]
		if !ok {
			i = len(bins)
			index[key] = i
			bins = append(bins, core.Bin{Temperature: key})
		}
		bins[i].Requests = append(bins[i].Requests, row.Members...)
	}

	for i := range bins {
		members := make([]core.Request, len(bins[i].Requests))
		copy(members, bins[i].Requests)
		sort.SliceStable(members, func(x, y int) bool {
			return members[x].AnnealTemperature < members[y].AnnealTemperature
		})
		bins[i].Requests = members
	}

	return bins
}

// RoundBin rounds an anneal temperature to one decimal place.
func RoundBin(temp float64) float64 {
	return math.Round(temp*10) / 10
}
