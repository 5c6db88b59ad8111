package core

import "context"

// NarrationResponse is what the operator reports back after setting up a run.
type NarrationResponse struct {
	Thermocycler string `json:"thermocycler"`
	Cancel       bool   `json:"cancel"`
}

// Narrator presents a plan to the operator and waits for their response.
// index is the zero-based position of the plan within the batch.
type Narrator interface {
	Narrate(ctx context.Context, index int, plan *ReactionPlan) (NarrationResponse, error)
}
