// Package loader reads PCR batch files into schedulable requests.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/pcrbatch/pkg/core"
)

// SecondsPerKB is the polymerase extension rate (KAPA HF): 30 s per kilobase.
const SecondsPerKB = 30

// NoPrimerMessage is recorded for entries excluded for a missing primer stock.
const NoPrimerMessage = "no primer stock is available for this request; order one before resubmitting"

// ErrEmptyBatch is returned when a batch file lists no requests.
var ErrEmptyBatch = errors.New("batch file contains no requests")

// Entry is one reaction as written in a batch file. Either Length or
// ExtensionTime must be set, and either both primer anneal temperatures or
// AnnealTemperature.
type Entry struct {
	ID string `yaml:"id"`
	// Length of the product fragment in base pairs.
	Length            *int     `yaml:"length,omitempty"`
	ExtensionTime     *float64 `yaml:"extension_time,omitempty"`
	ForwardAnneal     *float64 `yaml:"forward_anneal,omitempty"`
	ReverseAnneal     *float64 `yaml:"reverse_anneal,omitempty"`
	AnnealTemperature *float64 `yaml:"anneal_temperature,omitempty"`
	MissingPrimer     bool     `yaml:"missing_primer,omitempty"`
}

// File is the top-level batch file document.
type File struct {
	Requests []Entry `yaml:"requests"`
}

// Batch is the result of loading a batch file.
type Batch struct {
	Requests   []core.Request
	Exclusions []core.Exclusion
}

// ParseError reports a problem with one entry of a batch file.
type ParseError struct {
	Index int
	ID    string
	Err   error
}

func (e *ParseError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("request %d (%s): %v", e.Index+1, e.ID, e.Err)
	}
	return fmt.Sprintf("request %d: %v", e.Index+1, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// LoadFile reads and parses the batch file at path.
func LoadFile(path string) (*Batch, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	batch, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return batch, nil
}

// Parse decodes a batch document from r. JSON documents are accepted too.
// Unknown fields are rejected.
func Parse(r io.Reader) (*Batch, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyBatch
		}
		return nil, fmt.Errorf("invalid batch file: %w", err)
	}
	if len(f.Requests) == 0 {
		return nil, ErrEmptyBatch
	}

	batch := &Batch{}
	seen := make(map[string]int, len(f.Requests))
	for i, e := range f.Requests {
		req, err := e.Request()
		if err != nil {
			return nil, &ParseError{Index: i, ID: e.ID, Err: err}
		}
		if prev, dup := seen[req.ID]; dup {
			return nil, &ParseError{Index: i, ID: e.ID, Err: fmt.Errorf("duplicate id, first used by request %d", prev+1)}
		}
		seen[req.ID] = i

		if e.MissingPrimer {
			batch.Exclusions = append(batch.Exclusions, core.Exclusion{
				Request: req,
				Kind:    core.FailureNoPrimer,
				Message: NoPrimerMessage,
			})
			continue
		}
		batch.Requests = append(batch.Requests, req)
	}
	return batch, nil
}

// Request derives the schedulable request for e.
func (e Entry) Request() (core.Request, error) {
	req := core.Request{ID: e.ID}

	switch {
	case e.ExtensionTime != nil:
		req.ExtensionTime = *e.ExtensionTime
	case e.Length != nil:
		if *e.Length < 0 {
			return core.Request{}, fmt.Errorf("length must be non-negative, got %d", *e.Length)
		}
		req.ExtensionTime = ExtensionForLength(*e.Length)
	default:
		return core.Request{}, errors.New("one of length or extension_time is required")
	}

	switch {
	case e.AnnealTemperature != nil:
		req.AnnealTemperature = *e.AnnealTemperature
	case e.ForwardAnneal != nil && e.ReverseAnneal != nil:
		req.AnnealTemperature = min(*e.ForwardAnneal, *e.ReverseAnneal)
	default:
		return core.Request{}, errors.New("anneal_temperature or both forward_anneal and reverse_anneal are required")
	}

	if err := req.Validate(); err != nil {
		return core.Request{}, err
	}
	return req, nil
}

// ExtensionForLength returns the whole-second extension time for a fragment
// of length base pairs.
func ExtensionForLength(length int) float64 {
	return float64(length * SecondsPerKB / 1000)
}
