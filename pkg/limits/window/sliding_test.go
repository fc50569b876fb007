package window

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

// ============================================================================
// Basic accounting
// ============================================================================

func TestSlidingWindow_Basic(t *testing.T) {
	w := NewSlidingWindow(100, time.Minute)

	if got := w.Usage(t0); got != 0 {
		t.Errorf("Expected 0 usage in fresh window, got %d", got)
	}

	w.Record(t0, 30)
	w.Record(t0.Add(time.Second), 20)

	if got := w.Usage(t0.Add(2 * time.Second)); got != 50 {
		t.Errorf("Expected 50 usage, got %d", got)
	}
	if w.WouldExceed(t0.Add(2*time.Second), 50) {
		t.Error("Cost that lands exactly on capacity should be admitted")
	}
	if !w.WouldExceed(t0.Add(2*time.Second), 51) {
		t.Error("Cost that lands one over capacity should be denied")
	}
}

func TestSlidingWindow_Eviction(t *testing.T) {
	w := NewSlidingWindow(100, 10*time.Second)

	w.Record(t0, 60)
	w.Record(t0.Add(5*time.Second), 40)

	// At exactly window age the entry is still in scope.
	if got := w.Usage(t0.Add(10 * time.Second)); got != 100 {
		t.Errorf("Expected 100 at window edge, got %d", got)
	}

	// Strictly older than the window drops out.
	if got := w.Usage(t0.Add(10*time.Second + time.Nanosecond)); got != 40 {
		t.Errorf("Expected 40 after first entry expired, got %d", got)
	}

	if got := w.Usage(t0.Add(16 * time.Second)); got != 0 {
		t.Errorf("Expected empty window, got %d", got)
	}
}

// ============================================================================
// Wait estimation
// ============================================================================

func TestSlidingWindow_TimeUntilCapacity(t *testing.T) {
	w := NewSlidingWindow(5, 10*time.Second)

	// Five unit costs one second apart fill the window.
	for i := 0; i < 5; i++ {
		w.Record(t0.Add(time.Duration(i)*time.Second), 1)
	}

	now := t0.Add(5 * time.Second)
	wait, ok := w.TimeUntilCapacity(now, 1)
	if !ok {
		t.Fatal("Unit cost must be satisfiable")
	}
	// The oldest entry (at t0) frees at t0+10s, 5s from now.
	if wait != 5*time.Second {
		t.Errorf("Expected 5s wait, got %v", wait)
	}

	// Needing 3 slots means waiting for the third-oldest entry.
	wait, ok = w.TimeUntilCapacity(now, 3)
	if !ok {
		t.Fatal("Cost 3 must be satisfiable")
	}
	if wait != 7*time.Second {
		t.Errorf("Expected 7s wait, got %v", wait)
	}
}

func TestSlidingWindow_TimeUntilCapacityImmediate(t *testing.T) {
	w := NewSlidingWindow(100, time.Minute)
	w.Record(t0, 40)

	wait, ok := w.TimeUntilCapacity(t0.Add(time.Second), 60)
	if !ok || wait != 0 {
		t.Errorf("Expected immediate admission, got wait=%v ok=%v", wait, ok)
	}
}

func TestSlidingWindow_CostExceedsCapacity(t *testing.T) {
	w := NewSlidingWindow(100, time.Minute)

	if _, ok := w.TimeUntilCapacity(t0, 150); ok {
		t.Error("Cost above capacity can never be satisfied, expected ok=false")
	}
	// Empty window changes nothing: the answer depends on capacity alone.
	if _, ok := w.TimeUntilCapacity(t0, 101); ok {
		t.Error("Expected ok=false for cost 101 against capacity 100")
	}
}

// ============================================================================
// Reconciliation primitives
// ============================================================================

func TestSlidingWindow_SetUsage(t *testing.T) {
	w := NewSlidingWindow(100, time.Minute)
	w.Record(t0, 40)

	w.SetUsage(t0.Add(time.Second), 70)

	if got := w.Usage(t0.Add(time.Second)); got != 70 {
		t.Errorf("Expected 70 after overwrite, got %d", got)
	}

	// The synthesized entry is dated at the overwrite, so it drains a full
	// window later.
	if got := w.Usage(t0.Add(time.Second + time.Minute + time.Millisecond)); got != 0 {
		t.Errorf("Expected overwrite entry to expire, got %d", got)
	}
}

func TestSlidingWindow_SetUsageZeroClears(t *testing.T) {
	w := NewSlidingWindow(100, time.Minute)
	w.Record(t0, 40)

	w.SetUsage(t0, 0)
	if got := w.Usage(t0); got != 0 {
		t.Errorf("Expected cleared window, got %d", got)
	}
}

func TestSlidingWindow_Raise(t *testing.T) {
	w := NewSlidingWindow(100, time.Minute)
	w.Record(t0, 40)

	// Server reports less than local: no-op.
	w.Raise(t0.Add(time.Second), 30)
	if got := w.Usage(t0.Add(time.Second)); got != 40 {
		t.Errorf("Expected 40 after lower server figure, got %d", got)
	}

	// Server reports more: record the delta, keep the original entry's
	// timestamp.
	w.Raise(t0.Add(time.Second), 90)
	if got := w.Usage(t0.Add(time.Second)); got != 90 {
		t.Errorf("Expected 90 after raise, got %d", got)
	}

	// Original 40 expires on its own schedule, leaving only the delta.
	if got := w.Usage(t0.Add(time.Minute + 2*time.Second)); got != 50 {
		t.Errorf("Expected 50 after original entry expired, got %d", got)
	}
}

// ============================================================================
// Capacity changes and persistence
// ============================================================================

func TestSlidingWindow_SetCapacityKeepsEntries(t *testing.T) {
	w := NewSlidingWindow(1000, time.Minute)
	w.Record(t0, 600)

	w.SetCapacity(500)

	// Usage may exceed the new capacity until entries drain.
	if got := w.Usage(t0.Add(time.Second)); got != 600 {
		t.Errorf("Expected 600 usage preserved, got %d", got)
	}
	if !w.WouldExceed(t0.Add(time.Second), 1) {
		t.Error("Over-full window must deny all until it drains")
	}
}

func TestSlidingWindow_StateRoundTrip(t *testing.T) {
	w := NewSlidingWindow(100, time.Minute)
	w.Record(t0, 30)
	w.Record(t0.Add(30*time.Second), 20)

	st := w.State(t0.Add(31 * time.Second))

	// Restore 40s later: the first entry has expired in the meantime.
	w2 := NewSlidingWindow(100, time.Minute)
	w2.Restore(t0.Add(70*time.Second), st)

	if got := w2.Usage(t0.Add(70 * time.Second)); got != 20 {
		t.Errorf("Expected only the unexpired entry back, got %d", got)
	}
}
