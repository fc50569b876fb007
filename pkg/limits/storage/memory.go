package storage

import (
	"context"
	"sync"
	"time"

	"markethq/rategate/pkg/limits"
	"markethq/rategate/pkg/limits/window"
)

// MemoryBackend keeps state in process memory. It exists for tests and for
// callers that accept losing window state on restart.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
}

type memoryRecord struct {
	state     limits.CategoryState
	updatedAt time.Time
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		records: make(map[string]memoryRecord),
	}
}

func memoryKey(venue, category string) string {
	return venue + "\x00" + category
}

// Save stores a deep copy so later counter mutations don't leak into the
// stored record.
func (b *MemoryBackend) Save(_ context.Context, state limits.CategoryState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records[memoryKey(state.Venue, state.Category)] = memoryRecord{
		state:     copyState(state),
		updatedAt: time.Now(),
	}
	return nil
}

// Load returns a copy of the stored state, or nil when absent.
func (b *MemoryBackend) Load(_ context.Context, venue, category string) (*limits.CategoryState, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.records[memoryKey(venue, category)]
	if !ok {
		return nil, nil
	}
	st := copyState(rec.state)
	return &st, nil
}

// List returns copies of every stored state for a venue.
func (b *MemoryBackend) List(_ context.Context, venue string) ([]limits.CategoryState, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []limits.CategoryState
	for _, rec := range b.records {
		if rec.state.Venue == venue {
			out = append(out, copyState(rec.state))
		}
	}
	return out, nil
}

// Delete removes one record.
func (b *MemoryBackend) Delete(_ context.Context, venue, category string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.records, memoryKey(venue, category))
	return nil
}

// Cleanup removes records not updated since olderThan.
func (b *MemoryBackend) Cleanup(_ context.Context, olderThan time.Time) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for key, rec := range b.records {
		if rec.updatedAt.Before(olderThan) {
			delete(b.records, key)
			removed++
		}
	}
	return removed, nil
}

// Close is a no-op for the memory backend.
func (b *MemoryBackend) Close() error {
	return nil
}

func copyState(st limits.CategoryState) limits.CategoryState {
	out := st
	out.Windows = make([]limits.WindowState, len(st.Windows))
	for i, w := range st.Windows {
		out.Windows[i] = w
		if len(w.State.Entries) > 0 {
			entries := make([]window.Entry, len(w.State.Entries))
			copy(entries, w.State.Entries)
			out.Windows[i].State.Entries = entries
		}
	}
	return out
}
