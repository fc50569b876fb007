package limits

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"markethq/rategate/pkg/config"
)

func newTestRegistry(t *testing.T, clock Clock, cfg *config.Venue) *Registry {
	t.Helper()
	config.ApplyDefaults(cfg)
	reg, err := NewRegistry(cfg, WithClock(clock))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func singleWindowVenue(capacity int64, dur time.Duration) *config.Venue {
	return &config.Venue{
		Venue: "testvenue",
		Categories: []config.Category{{
			Name: "main",
			Windows: []config.Window{{
				Dimension: "raw",
				Capacity:  capacity,
				Duration:  dur,
			}},
		}},
	}
}

// ============================================================================
// Fail-fast admission
// ============================================================================

func TestCoordinator_FailFast(t *testing.T) {
	clk := newFakeClock(testStart)
	reg := newTestRegistry(t, clk, singleWindowVenue(5, 10*time.Second))
	coord := NewCoordinator(reg, WithCoordinatorClock(clk))
	cat, _ := reg.Category("main")

	ctx := context.Background()

	// Five calls fill the window.
	for i := 0; i < 5; i++ {
		permit, err := coord.Acquire(ctx, cat, 1, false, FailFast())
		if err != nil {
			t.Fatalf("call %d denied: %v", i, err)
		}
		if permit.ID == "" {
			t.Fatal("permit must carry an ID")
		}
		if permit.Waited != 0 {
			t.Errorf("call %d waited %v under fail-fast", i, permit.Waited)
		}
	}

	// The sixth is denied with the full window as the retry hint.
	_, err := coord.Acquire(ctx, cat, 1, false, FailFast())
	if !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}
	var lim *LimitExceededError
	if !errors.As(err, &lim) {
		t.Fatal("expected *LimitExceededError")
	}
	if lim.RetryAfter != 10*time.Second {
		t.Errorf("RetryAfter = %v, want 10s", lim.RetryAfter)
	}
	if lim.Used != 5 || lim.Limit != 5 {
		t.Errorf("used/limit = %d/%d, want 5/5", lim.Used, lim.Limit)
	}
}

func TestCoordinator_CostExceedsCapacityNotRetried(t *testing.T) {
	clk := newFakeClock(testStart)
	cfg := &config.Venue{
		Venue: "testvenue",
		Categories: []config.Category{{
			Name: "main",
			Windows: []config.Window{{
				Dimension: "weight",
				Capacity:  100,
				Duration:  time.Minute,
			}},
		}},
	}
	reg := newTestRegistry(t, clk, cfg)
	coord := NewCoordinator(reg, WithCoordinatorClock(clk))
	cat, _ := reg.Category("main")

	// Even a waiting policy fails immediately: no amount of draining fits
	// cost 150 into capacity 100.
	before := clk.Now()
	_, err := coord.Acquire(context.Background(), cat, 150, false, WaitBounded(time.Hour))
	if !errors.Is(err, ErrCostExceedsCapacity) {
		t.Fatalf("expected ErrCostExceedsCapacity, got %v", err)
	}
	if !clk.Now().Equal(before) {
		t.Error("unsatisfiable request must not wait")
	}
}

// ============================================================================
// Bounded waiting
// ============================================================================

func TestCoordinator_WaitBoundedSucceeds(t *testing.T) {
	clk := newFakeClock(testStart)
	reg := newTestRegistry(t, clk, singleWindowVenue(5, 10*time.Second))
	coord := NewCoordinator(reg, WithCoordinatorClock(clk))
	cat, _ := reg.Category("main")

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := coord.Acquire(ctx, cat, 1, false, FailFast()); err != nil {
			t.Fatalf("fill call %d: %v", i, err)
		}
	}

	// The sixth call suspends until the oldest entry expires.
	permit, err := coord.Acquire(ctx, cat, 1, false, WaitBounded(15*time.Second))
	if err != nil {
		t.Fatalf("bounded wait denied: %v", err)
	}
	if permit.Waited < 10*time.Second {
		t.Errorf("waited %v, want at least the window duration", permit.Waited)
	}
	if permit.Waited > 11*time.Second {
		t.Errorf("waited %v, expected roughly one window", permit.Waited)
	}
}

func TestCoordinator_WaitBoundedDeadline(t *testing.T) {
	clk := newFakeClock(testStart)
	reg := newTestRegistry(t, clk, singleWindowVenue(1, time.Minute))
	coord := NewCoordinator(reg, WithCoordinatorClock(clk))
	cat, _ := reg.Category("main")

	ctx := context.Background()
	if _, err := coord.Acquire(ctx, cat, 1, false, FailFast()); err != nil {
		t.Fatalf("fill call: %v", err)
	}

	// Capacity frees in 1m but the policy only allows 5s: denied without
	// burning the full wait.
	_, err := coord.Acquire(ctx, cat, 1, false, WaitBounded(5*time.Second))
	if !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}
	if waited := clk.Now().Sub(testStart); waited > 5*time.Second {
		t.Errorf("clock advanced %v past a 5s ceiling", waited)
	}
}

func TestCoordinator_ContextCancelled(t *testing.T) {
	clk := stuckClock{now: testStart}
	reg := newTestRegistry(t, clk, singleWindowVenue(1, time.Minute))
	coord := NewCoordinator(reg, WithCoordinatorClock(clk))
	cat, _ := reg.Category("main")

	if _, err := coord.Acquire(context.Background(), cat, 1, false, FailFast()); err != nil {
		t.Fatalf("fill call: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := coord.Acquire(ctx, cat, 1, false, WaitBounded(time.Hour))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// The abandoned wait reserved nothing.
	if got := usageOf(t, cat, DimensionRaw, "1M"); got != 1 {
		t.Errorf("usage = %d after cancelled wait, want 1", got)
	}
}

// ============================================================================
// Routing
// ============================================================================

func TestCoordinator_AcquirePath(t *testing.T) {
	clk := newFakeClock(testStart)
	cfg := &config.Venue{
		Venue:           "testvenue",
		DefaultCategory: "other",
		Categories: []config.Category{
			{Name: "orders", Windows: []config.Window{{Dimension: "raw", Capacity: 1, Duration: time.Minute}}},
			{Name: "other", Windows: []config.Window{{Dimension: "raw", Capacity: 100, Duration: time.Minute}}},
		},
		Rules: []config.Rule{
			{Prefix: "/api/v3/order", Category: "orders"},
		},
	}
	reg := newTestRegistry(t, clk, cfg)
	coord := NewCoordinator(reg, WithCoordinatorClock(clk))

	ctx := context.Background()

	permit, err := coord.AcquirePath(ctx, "/api/v3/order", 1, true, FailFast())
	if err != nil {
		t.Fatalf("order path: %v", err)
	}
	if permit.Category != "orders" {
		t.Errorf("category = %s, want orders", permit.Category)
	}

	permit, err = coord.AcquirePath(ctx, "/api/v3/depth", 1, false, FailFast())
	if err != nil {
		t.Fatalf("depth path: %v", err)
	}
	if permit.Category != "other" {
		t.Errorf("category = %s, want other (default)", permit.Category)
	}
}

// ============================================================================
// Concurrency
// ============================================================================

func TestCoordinator_ConcurrentAdmissionExact(t *testing.T) {
	clk := newFakeClock(testStart)
	reg := newTestRegistry(t, clk, singleWindowVenue(5, time.Minute))
	coord := NewCoordinator(reg, WithCoordinatorClock(clk))
	cat, _ := reg.Category("main")

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted, denied := 0, 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := coord.Acquire(context.Background(), cat, 1, false, FailFast())
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				admitted++
			} else {
				denied++
			}
		}()
	}
	wg.Wait()

	if admitted != 5 || denied != 15 {
		t.Errorf("admitted/denied = %d/%d, want 5/15", admitted, denied)
	}

	// The invariant: recorded usage never exceeds capacity.
	if got := usageOf(t, cat, DimensionRaw, "1M"); got != 5 {
		t.Errorf("usage = %d, want exactly 5", got)
	}
}

func TestCoordinator_ConcurrentWeighted(t *testing.T) {
	clk := newFakeClock(testStart)
	cfg := &config.Venue{
		Venue: "testvenue",
		Categories: []config.Category{{
			Name: "main",
			Windows: []config.Window{{
				Dimension: "weight",
				Capacity:  100,
				Duration:  time.Minute,
			}},
		}},
	}
	reg := newTestRegistry(t, clk, cfg)
	coord := NewCoordinator(reg, WithCoordinatorClock(clk))
	cat, _ := reg.Category("main")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			coord.Acquire(context.Background(), cat, 7, false, FailFast())
		}()
	}
	wg.Wait()

	used := usageOf(t, cat, DimensionWeight, "1M")
	if used > 100 {
		t.Errorf("usage %d exceeds capacity 100", used)
	}
	// 14 admissions of cost 7 fit, a 15th would not.
	if used != 98 {
		t.Errorf("usage = %d, want 98", used)
	}
}
