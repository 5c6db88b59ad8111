package core

import (
	"context"
	"fmt"
	"strings"
)

// Well is one occupied position in a stripwell.
type Well struct {
	Row       int    `json:"row"`
	Column    int    `json:"column"`
	RequestID string `json:"request_id"`
}

// Stripwell is a physical multi-well consumable holding the reactions of one bin.
type Stripwell struct {
	ID          string  `json:"id"`
	Temperature float64 `json:"temperature"`
	Wells       []Well  `json:"wells"`
	Location    string  `json:"location,omitempty"`
	Voided      bool    `json:"voided"`
}

// NumSamples returns how many wells hold a reaction.
func (s *Stripwell) NumSamples() int {
	return len(s.Wells)
}

// Capacity is the stripwell size the operator should grab: 6 wells for up
// to six samples, 12 otherwise.
func (s *Stripwell) Capacity() int {
	if s.NumSamples() <= 6 {
		return 6
	}
	return 12
}

// PositionOf returns the zero-based row and column holding requestID.
func (s *Stripwell) PositionOf(requestID string) (row, col int, ok bool) {
	for _, w := range s.Wells {
		if w.RequestID == requestID {
			return w.Row, w.Column, true
		}
	}
	return 0, 0, false
}

// NonEmptyWells renders the occupied columns as one-based ranges, e.g. "1-3, 5".
func (s *Stripwell) NonEmptyWells() string {
	if len(s.Wells) == 0 {
		return ""
	}
	cols := make([]int, len(s.Wells))
	for i, w := range s.Wells {
		cols[i] = w.Column + 1
	}

	var parts []string
	start, prev := cols[0], cols[0]
	flush := func() {
		if start == prev {
			parts = append(parts, fmt.Sprintf("%d", start))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", start, prev))
		}
	}
	for _, c := range cols[1:] {
		if c == prev+1 {
			prev = c
			continue
		}
		flush()
		start, prev = c, c
	}
	flush()
	return strings.Join(parts, ", ")
}

// String returns the stripwell ID.
func (s *Stripwell) String() string {
	return s.ID
}

// Producer creates the physical artifacts for one bin of a plan.
// A producer may return no stripwells; that is not an error.
type Producer interface {
	Produce(ctx context.Context, planID string, bin Bin) ([]*Stripwell, error)
}
