package narrator

import (
	"context"
	"io"

	"github.com/leapstack-labs/pcrbatch/internal/fulfillment"
	"github.com/leapstack-labs/pcrbatch/pkg/core"
)

// Scripted answers for the operator without prompting. It is used for
// unattended batches and in tests.
type Scripted struct {
	// Thermocycler is reported for every plan. Empty means DefaultThermocycler.
	Thermocycler string
	// Cancel lists the zero-based plan indices the operator rejects. Only
	// gradient plans offer a cancel choice, so single-temperature plans
	// listed here still run.
	Cancel map[int]bool
	// Out receives the rendered instructions when non-nil.
	Out io.Writer
}

var _ core.Narrator = (*Scripted)(nil)

// Narrate implements core.Narrator.
func (s *Scripted) Narrate(_ context.Context, index int, plan *core.ReactionPlan) (core.NarrationResponse, error) {
	if s.Out != nil {
		RenderInstructions(s.Out, index, plan)
	}
	name := s.Thermocycler
	if name == "" {
		name = DefaultThermocycler
	}
	return core.NarrationResponse{
		Thermocycler: name,
		Cancel:       fulfillment.IsGradient(plan) && s.Cancel[index],
	}, nil
}
