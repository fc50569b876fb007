package limits

import (
	"testing"
	"time"
)

// ============================================================================
// Snapshots
// ============================================================================

func TestReporter_SnapshotFields(t *testing.T) {
	clk := newFakeClock(testStart)
	reg := newTestRegistry(t, clk, singleWindowVenue(10, time.Minute))
	cat, _ := reg.Category("main")
	reporter := NewReporter(reg)

	for i := 0; i < 3; i++ {
		cat.tryAdmit(1, false)
	}

	snap := reporter.Snapshot(cat)
	if snap.Venue != "testvenue" || snap.Category != "main" {
		t.Errorf("identity = %s/%s", snap.Venue, snap.Category)
	}
	if len(snap.Windows) != 1 {
		t.Fatalf("expected 1 window, got %d", len(snap.Windows))
	}

	w := snap.Windows[0]
	if w.Used != 3 || w.Limit != 10 || w.Remaining != 7 {
		t.Errorf("used/limit/remaining = %d/%d/%d, want 3/10/7", w.Used, w.Limit, w.Remaining)
	}
	// Full drain happens when the newest entry expires, one window from
	// its recording time.
	if w.ResetIn != time.Minute {
		t.Errorf("ResetIn = %v, want 1m", w.ResetIn)
	}
}

func TestReporter_SnapshotDoesNotMutate(t *testing.T) {
	clk := newFakeClock(testStart)
	reg := newTestRegistry(t, clk, singleWindowVenue(10, time.Minute))
	cat, _ := reg.Category("main")
	reporter := NewReporter(reg)

	cat.tryAdmit(1, false)

	a := reporter.Snapshot(cat)
	b := reporter.Snapshot(cat)
	if a.Windows[0].Used != b.Windows[0].Used {
		t.Errorf("repeated snapshots differ: %d vs %d", a.Windows[0].Used, b.Windows[0].Used)
	}
}

func TestReporter_RemainingFloorsAtZero(t *testing.T) {
	clk := newFakeClock(testStart)
	reg := newTestRegistry(t, clk, singleWindowVenue(10, time.Minute))
	cat, _ := reg.Category("main")
	reporter := NewReporter(reg)

	// Server reports more usage than the local limit.
	cat.reconcile(UsageSnapshot{
		Dimension: DimensionRaw, Label: "1M", Used: 15,
	}, "overwrite", clk.Now())

	w := reporter.Snapshot(cat).Windows[0]
	if w.Used != 15 {
		t.Errorf("used = %d, want 15", w.Used)
	}
	if w.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", w.Remaining)
	}
}

func TestReporter_AllInConfigOrder(t *testing.T) {
	clk := newFakeClock(testStart)
	reg := newTestRegistry(t, clk, tieredVenue())
	reporter := NewReporter(reg)

	snaps := reporter.All()
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].Category != "trade" || snaps[1].Category != "public" {
		t.Errorf("order = %s, %s; want trade, public", snaps[0].Category, snaps[1].Category)
	}
}
