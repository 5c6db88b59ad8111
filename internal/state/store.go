// Package state persists batch history in SQLite: batches, their reaction
// plans and every recorded request failure, so failed requests can be found
// and resubmitted after the batch finishes.
package state

import "github.com/leapstack-labs/pcrbatch/pkg/core"

var _ core.Store = (*SQLiteStore)(nil)
