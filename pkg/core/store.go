package core

import "time"

// BatchStatus is the lifecycle state of a persisted batch.
type BatchStatus string

// Batch statuses.
const (
	BatchStatusRunning   BatchStatus = "running"
	BatchStatusCompleted BatchStatus = "completed"
	BatchStatusFailed    BatchStatus = "failed"
)

// Batch is one persisted batch-processing pass.
type Batch struct {
	ID          string      `json:"id"`
	Status      BatchStatus `json:"status"`
	Requests    int         `json:"requests"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// Store defines the interface for batch history persistence.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	CreateBatch(requests int) (*Batch, error)
	CompleteBatch(id string, status BatchStatus, errMsg string) error
	GetBatch(id string) (*Batch, error)
	ListBatches(limit int) ([]*Batch, error)

	SavePlan(batchID string, plan *ReactionPlan) error
	CountPlans(batchID string) (int, error)

	SaveFailures(batchID string, failures []Failure) error
	ListFailures(batchID string) ([]Failure, error)
}
