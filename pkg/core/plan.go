package core

// Bin is one annealing temperature row within a run.
type Bin struct {
	// Temperature is the row group's minimum anneal, rounded to one decimal.
	Temperature float64   `json:"temperature"`
	Requests    []Request `json:"requests"`
}

// ReactionPlan is the finalized layout of one thermocycler run.
//
// The assembler owns Bins; after assembly only the fulfillment driver touches
// the plan, and then only to append Stripwells, set Thermocycler or cancel it.
type ReactionPlan struct {
	ID           string        `json:"id"`
	Descriptor   RunDescriptor `json:"descriptor"`
	CycleMinutes string        `json:"cycle_minutes"`
	CycleSeconds string        `json:"cycle_seconds"`
	Bins         []Bin         `json:"bins"`
	Stripwells   []*Stripwell  `json:"stripwells"`
	Thermocycler string        `json:"thermocycler,omitempty"`
	Cancelled    bool          `json:"cancelled"`
	// TrimmedBins holds the bins dropped for exceeding the hardware row limit.
	TrimmedBins []Bin `json:"trimmed_bins,omitempty"`
}

// Temperatures returns the ascending bin temperatures of the plan.
func (p *ReactionPlan) Temperatures() []float64 {
	temps := make([]float64, len(p.Bins))
	for i, b := range p.Bins {
		temps[i] = b.Temperature
	}
	return temps
}

// RequestsAt returns the requests assigned to the bin at temp.
func (p *ReactionPlan) RequestsAt(temp float64) ([]Request, bool) {
	for _, b := range p.Bins {
		if b.Temperature == temp {
			return b.Requests, true
		}
	}
	return nil, false
}

// Requests returns every request in the plan in bin order.
func (p *ReactionPlan) Requests() []Request {
	var out []Request
	for _, b := range p.Bins {
		out = append(out, b.Requests...)
	}
	return out
}

// ExtensionClock renders the cycle time as MM:SS.
func (p *ReactionPlan) ExtensionClock() string {
	return p.CycleMinutes + ":" + p.CycleSeconds
}

// LowestTemperature returns the coolest bin temperature, or 0 for an empty plan.
func (p *ReactionPlan) LowestTemperature() float64 {
	if len(p.Bins) == 0 {
		return 0
	}
	return p.Bins[0].Temperature
}

// HighestTemperature returns the hottest bin temperature, or 0 for an empty plan.
func (p *ReactionPlan) HighestTemperature() float64 {
	if len(p.Bins) == 0 {
		return 0
	}
	return p.Bins[len(p.Bins)-1].Temperature
}
