package fulfillment

import (
	"context"

	"github.com/google/uuid"

	"github.com/leapstack-labs/pcrbatch/pkg/core"
)

// DefaultStripwellWells is the size of the largest stripwell on hand.
const DefaultStripwellWells = 12

// StripwellProducer lays each bin's requests into stripwells, filling one
// strip left to right before starting the next. Strips never mix bins, so
// each strip sits in exactly one thermocycler row.
type StripwellProducer struct {
	// Wells per stripwell. Zero means DefaultStripwellWells.
	Wells int
	// NewID generates stripwell IDs (optional, uses random UUIDs if nil)
	NewID func() string
}

var _ core.Producer = (*StripwellProducer)(nil)

// Produce implements core.Producer.
func (p *StripwellProducer) Produce(_ context.Context, _ string, bin core.Bin) ([]*core.Stripwell, error) {
	size := p.Wells
	if size <= 0 {
		size = DefaultStripwellWells
	}
	newID := p.NewID
	if newID == nil {
		newID = func() string { return uuid.New().String() }
	}

	var strips []*core.Stripwell
	for start := 0; start < len(bin.Requests); start += size {
		end := min(start+size, len(bin.Requests))
		sw := &core.Stripwell{ID: newID(), Temperature: bin.Temperature}
		for col, r := range bin.Requests[start:end] {
			sw.Wells = append(sw.Wells, core.Well{Row: 0, Column: col, RequestID: r.ID})
		}
		strips = append(strips, sw)
	}
	return strips, nil
}
