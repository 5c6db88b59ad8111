// Package grouper provides the default compatibility grouping for PCR requests.
//
// Greedy clusters requests first by extension time, then splits each
// extension cluster into runs whose anneal temperatures fit one gradient,
// and finally into rows of near-identical anneal temperature.
package grouper

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/leapstack-labs/pcrbatch/pkg/core"
)

// Default clustering parameters.
const (
	DefaultExtensionWindow = 60.0
	DefaultMaxGradientSpan = 12.0
	DefaultRowTolerance    = 1.0
	// DefaultMaxRows is the number of temperature rows a gradient thermocycler addresses.
	DefaultMaxRows = 8
)

// Config holds grouping parameters.
type Config struct {
	// ExtensionWindow is the widest spread of extension times (seconds) one run accepts.
	ExtensionWindow float64
	// MaxGradientSpan is the widest anneal range (degrees C) one run accepts.
	MaxGradientSpan float64
	// RowTolerance is the widest anneal spread (degrees C) within one row.
	RowTolerance float64
	// MaxRows is the most rows one run may open before a new run starts.
	MaxRows int
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Greedy is a deterministic single-pass core.Grouper.
type Greedy struct {
	cfg    Config
	logger *slog.Logger
}

var _ core.Grouper = (*Greedy)(nil)

// NewGreedy creates a Greedy grouper, filling unset parameters with defaults.
func NewGreedy(cfg Config) *Greedy {
	if cfg.ExtensionWindow <= 0 {
		cfg.ExtensionWindow = DefaultExtensionWindow
	}
	if cfg.MaxGradientSpan <= 0 {
		cfg.MaxGradientSpan = DefaultMaxGradientSpan
	}
	if cfg.RowTolerance <= 0 {
		cfg.RowTolerance = DefaultRowTolerance
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = DefaultMaxRows
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Greedy{cfg: cfg, logger: logger}
}

// Group partitions reqs into runs and rows. Every request appears exactly once
// in the result. Requests must carry unique IDs and pass core.Request.Validate.
func (g *Greedy) Group(ctx context.Context, reqs []core.Request) ([]core.RunGroup, error) {
	seen := make(map[string]struct{}, len(reqs))
	for _, r := range reqs {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate request id %q", core.ErrInvalidRequest, r.ID)
		}
		seen[r.ID] = struct{}{}
	}

	sorted := make([]core.Request, len(reqs))
	copy(sorted, reqs)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.ExtensionTime != b.ExtensionTime {
			return a.ExtensionTime < b.ExtensionTime
		}
		return a.Less(b)
	})

	var groups []core.RunGroup
	for _, cluster := range g.extensionClusters(sorted) {
		for _, run := range g.gradientRuns(cluster) {
			groups = append(groups, g.buildRun(run))
		}
	}

	g.logger.DebugContext(ctx, "grouped requests",
		slog.Int("requests", len(reqs)),
		slog.Int("runs", len(groups)))
	return groups, nil
}

// extensionClusters splits requests sorted by extension time wherever the
// spread from the cluster's first request exceeds the window.
func (g *Greedy) extensionClusters(sorted []core.Request) [][]core.Request {
	var clusters [][]core.Request
	var current []core.Request
	for _, r := range sorted {
		if len(current) > 0 && r.ExtensionTime-current[0].ExtensionTime > g.cfg.ExtensionWindow {
			clusters = append(clusters, current)
			current = nil
		}
		current = append(current, r)
	}
	if len(current) > 0 {
		clusters = append(clusters, current)
	}
	return clusters
}

// gradientRuns splits one extension cluster into runs whose anneal
// temperatures span no more than MaxGradientSpan and that open no more than
// MaxRows rows. Row boundaries follow the same rule as buildRun.
func (g *Greedy) gradientRuns(cluster []core.Request) [][]core.Request {
	byAnneal := make([]core.Request, len(cluster))
	copy(byAnneal, cluster)
	core.SortRequests(byAnneal)

	var runs [][]core.Request
	var current []core.Request
	var rows int
	var rowMin float64
	for _, r := range byAnneal {
		newRow := len(current) == 0 || r.AnnealTemperature-rowMin > g.cfg.RowTolerance
		if len(current) > 0 && (r.AnnealTemperature-current[0].AnnealTemperature > g.cfg.MaxGradientSpan ||
			newRow && rows == g.cfg.MaxRows) {
			runs = append(runs, current)
			current = nil
			rows = 0
		}
		if newRow || len(current) == 0 {
			rows++
			rowMin = r.AnnealTemperature
		}
		current = append(current, r)
	}
	if len(current) > 0 {
		runs = append(runs, current)
	}
	return runs
}

// buildRun splits requests sorted by anneal into rows and computes the
// run's maximum extension.
func (g *Greedy) buildRun(run []core.Request) core.RunGroup {
	var group core.RunGroup
	var row *core.RowGroup
	for _, r := range run {
		if r.ExtensionTime > group.Descriptor.MaxExtension {
			group.Descriptor.MaxExtension = r.ExtensionTime
		}
		if row == nil || r.AnnealTemperature-row.MinAnneal > g.cfg.RowTolerance {
			group.Rows = append(group.Rows, core.RowGroup{MinAnneal: r.AnnealTemperature})
			row = &group.Rows[len(group.Rows)-1]
		}
		row.Members = append(row.Members, r)
	}
	return group
}
