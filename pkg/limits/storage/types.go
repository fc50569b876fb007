package storage

import (
	"context"
	"time"

	"markethq/rategate/pkg/limits"
)

// Backend persists per-category window state. Implementations must be safe
// for concurrent use.
type Backend interface {
	// Save persists one category's state, replacing any previous record.
	Save(ctx context.Context, state limits.CategoryState) error

	// Load retrieves one category's state. Returns nil when no record
	// exists; errors indicate backend failure only.
	Load(ctx context.Context, venue, category string) (*limits.CategoryState, error)

	// List returns every stored state for a venue.
	List(ctx context.Context, venue string) ([]limits.CategoryState, error)

	// Delete removes one category's record. No-op when absent.
	Delete(ctx context.Context, venue, category string) error

	// Cleanup removes records not updated since olderThan and returns how
	// many were removed. Stale records belong to categories that have
	// been dropped from configuration.
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases backend resources. The backend must not be used
	// afterwards.
	Close() error
}

// StateSource is the engine-side surface the checkpointer works against.
// *limits.Registry satisfies it.
type StateSource interface {
	Venue() string
	States() []limits.CategoryState
	RestoreStates(states []limits.CategoryState)
}
