package limits

import "time"

// WindowUsage is the observable state of one window.
type WindowUsage struct {
	// Dimension and Label identify the window.
	Dimension Dimension
	Label     string

	// Used is current unexpired usage. It can exceed Limit right after a
	// tier downgrade or an authoritative server correction.
	Used int64

	// Limit is the window capacity at the current tier.
	Limit int64

	// Remaining is Limit minus Used, floored at zero.
	Remaining int64

	// ResetIn is how long until the window has fully drained.
	ResetIn time.Duration
}

// Snapshot is a point-in-time view of one category's usage.
type Snapshot struct {
	Venue    string
	Category string
	TakenAt  time.Time
	Windows  []WindowUsage
}

// Reporter exposes read-only usage snapshots for monitoring and for
// caller-side backoff decisions (e.g. easing off at 10% headroom the way
// some venues recommend). Snapshots never mutate observable state.
type Reporter struct {
	registry *Registry
}

// NewReporter creates a reporter over a registry.
func NewReporter(reg *Registry) *Reporter {
	return &Reporter{registry: reg}
}

// Snapshot captures one category.
func (r *Reporter) Snapshot(cat *Category) Snapshot {
	return cat.snapshot()
}

// All captures every category in configuration order.
func (r *Reporter) All() []Snapshot {
	cats := r.registry.Categories()

	out := make([]Snapshot, 0, len(cats))
	for _, cat := range cats {
		out = append(out, cat.snapshot())
	}
	return out
}

// Publish pushes current usage figures into the Prometheus gauges. Callers
// typically run it on a timer next to their scrape interval.
func (r *Reporter) Publish(m *Metrics) {
	for _, snap := range r.All() {
		for _, w := range snap.Windows {
			m.SetUsage(snap.Venue, snap.Category, string(w.Dimension), w.Label, w.Used, w.Limit)
		}
	}
}
