package window

import (
	"testing"
	"time"
)

// ============================================================================
// Refill behavior
// ============================================================================

func TestTokenBucket_StartsFull(t *testing.T) {
	b := NewTokenBucket(100, 10*time.Second, t0)

	if got := b.Usage(t0); got != 0 {
		t.Errorf("Expected 0 usage in fresh bucket, got %d", got)
	}
	if b.WouldExceed(t0, 100) {
		t.Error("Full bucket should admit its whole capacity")
	}
	if !b.WouldExceed(t0, 101) {
		t.Error("Cost above the token level should be denied")
	}
}

func TestTokenBucket_Refill(t *testing.T) {
	// 100 tokens over 10s refills at 10 tokens/sec.
	b := NewTokenBucket(100, 10*time.Second, t0)
	b.Record(t0, 100)

	if got := b.Usage(t0); got != 100 {
		t.Errorf("Expected drained bucket, got usage %d", got)
	}

	if got := b.Usage(t0.Add(3 * time.Second)); got != 70 {
		t.Errorf("Expected 70 usage after 3s refill, got %d", got)
	}

	// Refill never pushes tokens past capacity.
	if got := b.Usage(t0.Add(time.Hour)); got != 0 {
		t.Errorf("Expected full bucket after long idle, got usage %d", got)
	}
}

func TestTokenBucket_TimeUntilCapacity(t *testing.T) {
	b := NewTokenBucket(100, 10*time.Second, t0)
	b.Record(t0, 100)

	wait, ok := b.TimeUntilCapacity(t0, 50)
	if !ok {
		t.Fatal("Cost within capacity must be satisfiable")
	}
	if wait != 5*time.Second {
		t.Errorf("Expected 5s to refill 50 tokens, got %v", wait)
	}

	if _, ok := b.TimeUntilCapacity(t0, 101); ok {
		t.Error("Cost above capacity can never be satisfied, expected ok=false")
	}
}

// ============================================================================
// Capacity changes
// ============================================================================

func TestTokenBucket_SetCapacityCarriesUsage(t *testing.T) {
	b := NewTokenBucket(1000, time.Minute, t0)
	b.Record(t0, 600)

	b.SetCapacity(500)

	// 600 consumed against a 500 bucket leaves the token level negative.
	if got := b.Usage(t0); got != 600 {
		t.Errorf("Expected consumed budget to carry across downgrade, got %d", got)
	}
	if !b.WouldExceed(t0, 1) {
		t.Error("Over-drained bucket must deny until refill catches up")
	}
}

func TestTokenBucket_SetUsageAndRaise(t *testing.T) {
	b := NewTokenBucket(100, 10*time.Second, t0)
	b.Record(t0, 20)

	b.SetUsage(t0, 70)
	if got := b.Usage(t0); got != 70 {
		t.Errorf("Expected 70 after overwrite, got %d", got)
	}

	b.Raise(t0, 50)
	if got := b.Usage(t0); got != 70 {
		t.Errorf("Lower server figure must not reduce usage, got %d", got)
	}

	b.Raise(t0, 90)
	if got := b.Usage(t0); got != 90 {
		t.Errorf("Expected 90 after raise, got %d", got)
	}
}

// ============================================================================
// Persistence
// ============================================================================

func TestTokenBucket_StateRoundTrip(t *testing.T) {
	b := NewTokenBucket(100, 10*time.Second, t0)
	b.Record(t0, 80)

	st := b.State(t0)
	if !st.HasTokens {
		t.Fatal("Bucket state must carry a token level")
	}

	// Restoring 2s later credits 20 tokens of downtime refill.
	b2 := NewTokenBucket(100, 10*time.Second, t0.Add(2*time.Second))
	b2.Restore(t0.Add(2*time.Second), st)

	if got := b2.Usage(t0.Add(2 * time.Second)); got != 60 {
		t.Errorf("Expected 60 usage after downtime refill, got %d", got)
	}
}
