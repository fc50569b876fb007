package window

import "time"

// SlidingWindow counts timestamped costs over a rolling window.
//
// Entries are kept oldest-first. An entry expires once it is strictly older
// than the window duration; expired entries are evicted from the front
// before any capacity read.
//
// # Invariant
//
// After Evict has run, the sum of remaining entry costs never exceeds
// capacity through Record alone. The two exceptions are deliberate: a
// capacity downgrade mid-window, and an authoritative server figure applied
// via SetUsage/Raise. Both drain naturally as entries expire.
type SlidingWindow struct {
	capacity int64
	window   time.Duration
	entries  []Entry
}

// NewSlidingWindow creates a sliding window counter.
//
// Example:
//
//	// 6000 weight per minute
//	w := window.NewSlidingWindow(6000, time.Minute)
//
//	// 100 orders per 10 seconds
//	w := window.NewSlidingWindow(100, 10*time.Second)
func NewSlidingWindow(capacity int64, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		capacity: capacity,
		window:   window,
	}
}

// Evict drops entries strictly older than the window duration.
func (w *SlidingWindow) Evict(now time.Time) {
	cut := 0
	for cut < len(w.entries) && now.Sub(w.entries[cut].At) > w.window {
		cut++
	}
	if cut > 0 {
		w.entries = append(w.entries[:0], w.entries[cut:]...)
	}
}

// Usage returns the sum of unexpired entry costs.
func (w *SlidingWindow) Usage(now time.Time) int64 {
	w.Evict(now)

	var sum int64
	for _, e := range w.entries {
		sum += e.Cost
	}
	return sum
}

// WouldExceed reports whether admitting cost would exceed capacity.
func (w *SlidingWindow) WouldExceed(now time.Time, cost int64) bool {
	return w.Usage(now)+cost > w.capacity
}

// Record appends a cost entry dated now.
func (w *SlidingWindow) Record(now time.Time, cost int64) {
	w.entries = append(w.entries, Entry{At: now, Cost: cost})
}

// TimeUntilCapacity returns how long until cost could be admitted, walking
// entries oldest-first and accumulating the cost they will free on expiry.
// Returns false when cost exceeds total capacity.
func (w *SlidingWindow) TimeUntilCapacity(now time.Time, cost int64) (time.Duration, bool) {
	if cost > w.capacity {
		return 0, false
	}

	usage := w.Usage(now)
	if usage+cost <= w.capacity {
		return 0, true
	}

	var freed int64
	for _, e := range w.entries {
		freed += e.Cost
		if usage-freed+cost <= w.capacity {
			wait := e.At.Add(w.window).Sub(now)
			if wait < 0 {
				wait = 0
			}
			return wait, true
		}
	}

	// Entries sum to usage, so the loop always terminates above once
	// everything frees. Kept as a safety net.
	return w.window, true
}

// Capacity returns the window capacity.
func (w *SlidingWindow) Capacity() int64 {
	return w.capacity
}

// SetCapacity rescales capacity in place. Entries are preserved, so a
// downgrade mid-window keeps already-consumed budget counted.
func (w *SlidingWindow) SetCapacity(capacity int64) {
	w.capacity = capacity
}

// Window returns the rolling window duration.
func (w *SlidingWindow) Window() time.Duration {
	return w.window
}

// SetUsage discards local entries and synthesizes a single entry of the
// given cost dated now. This is the overwrite reconciliation step: the
// server's figure replaces whatever this process thought it had used.
func (w *SlidingWindow) SetUsage(now time.Time, used int64) {
	w.entries = w.entries[:0]
	if used > 0 {
		w.entries = append(w.entries, Entry{At: now, Cost: used})
	}
}

// Raise records the delta between used and local usage when the server
// figure is higher. Existing entries keep their timestamps so drain
// estimates stay accurate. A lower or equal figure is a no-op.
func (w *SlidingWindow) Raise(now time.Time, used int64) {
	cur := w.Usage(now)
	if used > cur {
		w.entries = append(w.entries, Entry{At: now, Cost: used - cur})
	}
}

// State exports unexpired entries for persistence.
func (w *SlidingWindow) State(now time.Time) State {
	w.Evict(now)

	st := State{
		Capacity: w.capacity,
		Window:   w.window,
	}
	st.Entries = append(st.Entries, w.entries...)
	return st
}

// Restore re-seeds the window from a persisted state. Entries that have
// expired since the state was taken are dropped; capacity and duration come
// from configuration, not from the state, so a config change between
// restarts wins.
func (w *SlidingWindow) Restore(now time.Time, st State) {
	w.entries = w.entries[:0]
	for _, e := range st.Entries {
		if now.Sub(e.At) <= w.window {
			w.entries = append(w.entries, e)
		}
	}
}
