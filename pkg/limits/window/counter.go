package window

import "time"

// Counter tracks usage of one quota dimension over one time window.
//
// All methods take an explicit now so the owning category controls the
// clock; counters never call time.Now themselves. Eviction of expired
// usage happens inside every read, so callers always observe post-eviction
// figures.
type Counter interface {
	// Evict drops usage that has aged out of the window.
	Evict(now time.Time)

	// Usage returns the unexpired usage. After a capacity downgrade this
	// may legitimately exceed Capacity until the window drains.
	Usage(now time.Time) int64

	// WouldExceed reports whether admitting cost would push usage past
	// capacity.
	WouldExceed(now time.Time, cost int64) bool

	// Record commits cost to the counter. Only called after a successful
	// admission decision.
	Record(now time.Time, cost int64)

	// TimeUntilCapacity returns how long until cost could be admitted.
	// The bool is false when cost exceeds total capacity and can never be
	// admitted. A zero duration with true means cost fits right now.
	TimeUntilCapacity(now time.Time, cost int64) (time.Duration, bool)

	// Capacity returns the maximum permitted units in the window.
	Capacity() int64

	// SetCapacity rescales capacity in place, preserving recorded usage.
	// Tier changes go through here; no usage is ever granted or discarded.
	SetCapacity(capacity int64)

	// Window returns the rolling window duration.
	Window() time.Duration

	// SetUsage replaces local accounting with an authoritative figure,
	// dated now. Used by overwrite-style header reconciliation.
	SetUsage(now time.Time, used int64)

	// Raise adjusts usage upward to used if the local figure is lower,
	// preserving existing entry timestamps. Used by raise-only
	// reconciliation. Lower server figures are ignored.
	Raise(now time.Time, used int64)

	// State exports the counter for persistence.
	State(now time.Time) State

	// Restore re-seeds the counter from a persisted state, discarding
	// anything that has already expired relative to now.
	Restore(now time.Time, st State)
}

// State is the serializable form of a counter. Sliding windows persist
// their entries; token buckets persist the token level and refill mark.
type State struct {
	Capacity int64         `json:"capacity"`
	Window   time.Duration `json:"window"`

	// Entries is populated for sliding windows.
	Entries []Entry `json:"entries,omitempty"`

	// Tokens and RefilledAt are populated for token buckets.
	Tokens     float64   `json:"tokens,omitempty"`
	HasTokens  bool      `json:"has_tokens,omitempty"`
	RefilledAt time.Time `json:"refilled_at,omitzero"`
}

// Entry is a single timestamped cost within a sliding window.
type Entry struct {
	At   time.Time `json:"at"`
	Cost int64     `json:"cost"`
}
