// Package ledger collects per-request failures for a batch.
package ledger

import (
	"log/slog"
	"sync"
	"time"

	"github.com/leapstack-labs/pcrbatch/pkg/core"
)

// Ledger is an in-memory core.FailureRecorder. The first failure recorded for
// a request wins; later records for the same request are ignored, which makes
// repeated cancellation harmless.
type Ledger struct {
	mu       sync.Mutex
	failures []core.Failure
	byID     map[string]int
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an empty ledger.
func New(logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Ledger{
		byID:   make(map[string]int),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// RecordFailure implements core.FailureRecorder.
func (l *Ledger) RecordFailure(req core.Request, kind core.FailureKind, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.byID[req.ID]; ok {
		l.logger.Debug("request already failed, ignoring",
			slog.String("request", req.ID), slog.String("kind", string(kind)))
		return
	}

	l.byID[req.ID] = len(l.failures)
	l.failures = append(l.failures, core.Failure{
		RequestID:  req.ID,
		Kind:       kind,
		Message:    message,
		RecordedAt: l.now(),
	})
	l.logger.Info("request failed",
		slog.String("request", req.ID),
		slog.String("kind", string(kind)),
		slog.String("message", message))
}

// Failures returns a copy of the recorded failures in recording order.
func (l *Ledger) Failures() []core.Failure {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]core.Failure, len(l.failures))
	copy(out, l.failures)
	return out
}

// Lookup returns the failure recorded for requestID, if any.
func (l *Ledger) Lookup(requestID string) (core.Failure, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.byID[requestID]
	if !ok {
		return core.Failure{}, false
	}
	return l.failures[i], true
}

// CountByKind tallies failures per kind.
func (l *Ledger) CountByKind() map[core.FailureKind]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	counts := make(map[core.FailureKind]int)
	for _, f := range l.failures {
		counts[f.Kind]++
	}
	return counts
}

// Len returns the number of failed requests.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.failures)
}
