// Package core defines the shared language of the pcrbatch system.
//
// This package contains:
//   - Domain entities (Request, RowGroup, RunDescriptor, ReactionPlan, Stripwell)
//   - Failure records and their symbolic kinds
//   - Collaborator interfaces (Grouper, Producer, FailureRecorder, Narrator, Store)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
