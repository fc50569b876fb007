package limits

import (
	"sync"
	"time"

	"markethq/rategate/pkg/config"
	"markethq/rategate/pkg/limits/window"
)

// Category is a named group of windows that must all admit a request
// together. There is no partial admission: either every participating
// window has headroom and all of them record the request, or none do.
//
// The category mutex covers the whole check-then-record sequence, which is
// what makes admission atomic under concurrent callers. Waiting never
// happens under the lock.
type Category struct {
	venue string
	name  string
	clock Clock

	mu      sync.Mutex
	windows []*catWindow
}

// catWindow ties a counter to its quota dimension and the venue's window
// label.
type catWindow struct {
	dimension Dimension
	label     string
	counter   window.Counter
}

func newCategory(venue string, cc config.Category, clock Clock) (*Category, error) {
	cat := &Category{
		venue: venue,
		name:  cc.Name,
		clock: clock,
	}

	for _, wc := range cc.Windows {
		cw, err := newCatWindow(venue, wc, clock.Now())
		if err != nil {
			return nil, err
		}
		cat.windows = append(cat.windows, cw)
	}

	return cat, nil
}

func newCatWindow(venue string, wc config.Window, now time.Time) (*catWindow, error) {
	dim, ok := parseDimension(wc.Dimension)
	if !ok {
		return nil, &ConfigError{Venue: venue, Reason: "unknown dimension " + wc.Dimension}
	}

	var ctr window.Counter
	switch wc.Kind {
	case config.KindBucket:
		ctr = window.NewTokenBucket(wc.Capacity, wc.Duration, now)
	default:
		ctr = window.NewSlidingWindow(wc.Capacity, wc.Duration)
	}

	return &catWindow{
		dimension: dim,
		label:     config.NormalizeLabel(wc.Label),
		counter:   ctr,
	}, nil
}

// Name returns the category name.
func (c *Category) Name() string {
	return c.name
}

// Venue returns the owning venue identifier.
func (c *Category) Venue() string {
	return c.venue
}

// windowCost is what one request consumes from a window: its weight for
// weight windows, one unit for raw and order counts.
func windowCost(dim Dimension, cost int64) int64 {
	if dim == DimensionWeight {
		return cost
	}
	return 1
}

// denial describes a failed admission attempt.
type denial struct {
	// err reports the binding window: the blocking window whose capacity
	// frees last, with RetryAfter set to that maximum wait.
	err *LimitExceededError

	// earliest is the minimum time until any blocking window frees. The
	// wait loop sleeps this long and re-checks, since another window (or
	// another caller) may still block.
	earliest time.Duration
}

// tryAdmit runs one atomic admission attempt: evict every participating
// window, check them all, and record on all of them only if all pass.
// Returns the decision time, a denial when over budget, or an error when
// the request can never be admitted.
func (c *Category) tryAdmit(cost int64, isOrder bool) (time.Time, *denial, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()

	var den *denial
	for _, w := range c.windows {
		if w.dimension == DimensionOrders && !isOrder {
			continue
		}
		wcost := windowCost(w.dimension, cost)

		w.counter.Evict(now)
		if !w.counter.WouldExceed(now, wcost) {
			continue
		}

		wait, ok := w.counter.TimeUntilCapacity(now, wcost)
		if !ok {
			return now, nil, &CostExceedsCapacityError{
				Venue:     c.venue,
				Category:  c.name,
				Dimension: w.dimension,
				Label:     w.label,
				Cost:      wcost,
				Capacity:  w.counter.Capacity(),
			}
		}

		if den == nil {
			den = &denial{earliest: wait}
		} else if wait < den.earliest {
			den.earliest = wait
		}
		if den.err == nil || wait > den.err.RetryAfter {
			den.err = &LimitExceededError{
				Venue:      c.venue,
				Category:   c.name,
				Dimension:  w.dimension,
				Label:      w.label,
				Used:       w.counter.Usage(now),
				Limit:      w.counter.Capacity(),
				RetryAfter: wait,
			}
		}
	}

	if den != nil {
		return now, den, nil
	}

	for _, w := range c.windows {
		if w.dimension == DimensionOrders && !isOrder {
			continue
		}
		w.counter.Record(now, windowCost(w.dimension, cost))
	}
	return now, nil, nil
}

// reconcile applies one server usage snapshot to the matching window.
// Returns false when no window matches the snapshot's dimension and label.
func (c *Category) reconcile(snap UsageSnapshot, policy string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, w := range c.windows {
		if w.dimension != snap.Dimension || w.label != snap.Label {
			continue
		}

		used := snap.Used
		if snap.Remaining {
			used = w.counter.Capacity() - snap.Used
			if used < 0 {
				used = 0
			}
		}

		if policy == config.ReconcileRaiseOnly {
			w.counter.Raise(now, used)
		} else {
			w.counter.SetUsage(now, used)
		}
		return true
	}
	return false
}

// setCapacities applies a label -> capacity table under the category lock.
// Labels absent from the table are left untouched. Usage history is always
// preserved; a downgrade below current usage simply keeps rejecting until
// the window drains.
func (c *Category) setCapacities(caps map[string]int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, w := range c.windows {
		if capacity, ok := caps[w.label]; ok {
			w.counter.SetCapacity(capacity)
		}
	}
}

// applyWindows reconciles the window set with a re-loaded category
// definition. Surviving windows (same dimension and label) keep their
// usage history; new windows start empty; vanished windows are dropped.
// Capacity changes are applied separately through setCapacities.
func (c *Category) applyWindows(cc config.Category) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	next := make([]*catWindow, 0, len(cc.Windows))
	for _, wc := range cc.Windows {
		dim, ok := parseDimension(wc.Dimension)
		label := config.NormalizeLabel(wc.Label)

		var found *catWindow
		if ok {
			for _, w := range c.windows {
				if w.dimension == dim && w.label == label && w.counter.Window() == wc.Duration {
					found = w
					break
				}
			}
		}
		if found != nil {
			next = append(next, found)
			continue
		}

		cw, err := newCatWindow(c.venue, wc, now)
		if err != nil {
			return err
		}
		next = append(next, cw)
	}

	c.windows = next
	return nil
}

// snapshot captures per-window usage. Eviction runs first so the figures
// are current, which is invisible to callers beyond accuracy.
func (c *Category) snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	snap := Snapshot{
		Venue:    c.venue,
		Category: c.name,
		TakenAt:  now,
	}

	for _, w := range c.windows {
		used := w.counter.Usage(now)
		limit := w.counter.Capacity()

		remaining := limit - used
		if remaining < 0 {
			remaining = 0
		}

		// Time until the window is fully drained: when the entire
		// capacity could be admitted again, usage has reached zero.
		resetIn, _ := w.counter.TimeUntilCapacity(now, limit)

		snap.Windows = append(snap.Windows, WindowUsage{
			Dimension: w.dimension,
			Label:     w.label,
			Used:      used,
			Limit:     limit,
			Remaining: remaining,
			ResetIn:   resetIn,
		})
	}
	return snap
}

// states exports every window for persistence.
func (c *Category) states() []WindowState {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	out := make([]WindowState, 0, len(c.windows))
	for _, w := range c.windows {
		out = append(out, WindowState{
			Dimension: string(w.dimension),
			Label:     w.label,
			State:     w.counter.State(now),
		})
	}
	return out
}

// restore re-seeds matching windows from persisted state. Windows with no
// matching state start empty; states with no matching window are ignored
// (the configuration changed since the state was taken).
func (c *Category) restore(states []WindowState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	for _, st := range states {
		for _, w := range c.windows {
			if string(w.dimension) == st.Dimension && w.label == st.Label {
				w.counter.Restore(now, st.State)
				break
			}
		}
	}
}

// WindowState is the persisted form of one window, tagged so it can be
// matched back to its dimension and label on restore.
type WindowState struct {
	Dimension string       `json:"dimension"`
	Label     string       `json:"label"`
	State     window.State `json:"state"`
}
