package core

import "context"

// RunDescriptor is the grouping key for one thermocycler run.
type RunDescriptor struct {
	// MaxExtension is the largest extension time (seconds) among the run's requests.
	MaxExtension float64 `json:"max_extension"`
}

// RowGroup is a set of requests that can share one annealing temperature row.
// MinAnneal is at most every member's AnnealTemperature.
type RowGroup struct {
	MinAnneal float64   `json:"min_anneal"`
	Members   []Request `json:"members"`
}

// RunGroup pairs a run descriptor with the row groups assigned to it.
type RunGroup struct {
	Descriptor RunDescriptor `json:"descriptor"`
	Rows       []RowGroup    `json:"rows"`
}

// Grouper decides which requests may share a thermocycler run and which row
// inside that run each one occupies. The result covers every input request
// exactly once and is returned in a deterministic order.
type Grouper interface {
	Group(ctx context.Context, reqs []Request) ([]RunGroup, error)
}

// GrouperFunc adapts a plain function to the Grouper interface.
type GrouperFunc func(ctx context.Context, reqs []Request) ([]RunGroup, error)

// Group calls f.
func (f GrouperFunc) Group(ctx context.Context, reqs []Request) ([]RunGroup, error) {
	return f(ctx, reqs)
}
