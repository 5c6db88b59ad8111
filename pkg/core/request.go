package core

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalidRequest is returned when a request cannot be scheduled.
var ErrInvalidRequest = errors.New("invalid request")

// Request holds the scheduling-relevant attributes of one PCR reaction.
// Requests are values; nothing in the pipeline mutates one after creation.
type Request struct {
	ID string `json:"id" yaml:"id"`
	// ExtensionTime is the per-cycle extension duration in seconds.
	ExtensionTime float64 `json:"extension_time" yaml:"extension_time"`
	// AnnealTemperature is the required annealing temperature in degrees C.
	AnnealTemperature float64 `json:"anneal_temperature" yaml:"anneal_temperature"`
}

// Validate checks that the request carries a usable identity, a
// non-negative extension time and a finite anneal temperature.
func (r Request) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRequest)
	}
	if math.IsNaN(r.ExtensionTime) || math.IsInf(r.ExtensionTime, 0) || r.ExtensionTime < 0 {
		return fmt.Errorf("%w: %s: extension time must be a non-negative number, got %v", ErrInvalidRequest, r.ID, r.ExtensionTime)
	}
	if math.IsNaN(r.AnnealTemperature) || math.IsInf(r.AnnealTemperature, 0) {
		return fmt.Errorf("%w: %s: anneal temperature must be numeric, got %v", ErrInvalidRequest, r.ID, r.AnnealTemperature)
	}
	return nil
}

// Less orders requests by anneal temperature, then by ID.
func (r Request) Less(other Request) bool {
	if r.AnnealTemperature != other.AnnealTemperature {
		return r.AnnealTemperature < other.AnnealTemperature
	}
	return r.ID < other.ID
}

// SortRequests sorts requests in place using Request.Less.
func SortRequests(reqs []Request) {
	sort.SliceStable(reqs, func(i, j int) bool { return reqs[i].Less(reqs[j]) })
}

// RequestIDs returns the IDs of reqs in order.
func RequestIDs(reqs []Request) []string {
	ids := make([]string, len(reqs))
	for i, r := range reqs {
		ids[i] = r.ID
	}
	return ids
}
