package core

import "time"

// FailureKind is the symbolic tag attached to a failed request.
type FailureKind string

// Failure kinds.
const (
	FailureNoPrimer      FailureKind = "no_primer"
	FailureBatchingIssue FailureKind = "batching_issue"
)

// Failure is one recorded request failure.
type Failure struct {
	RequestID  string      `json:"request_id"`
	Kind       FailureKind `json:"kind"`
	Message    string      `json:"message"`
	RecordedAt time.Time   `json:"recorded_at"`
}

// String renders the failure the way callers query it, e.g. "failed: batching_issue".
func (f Failure) String() string {
	return "failed: " + string(f.Kind)
}

// FailureRecorder receives request failures. Recording is fire-and-forget.
type FailureRecorder interface {
	RecordFailure(req Request, kind FailureKind, message string)
}

// Exclusion is a request dropped before grouping because an upstream
// resource is missing. It is recorded as a failure and never scheduled.
type Exclusion struct {
	Request Request     `json:"request"`
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}
