package limits

import (
	"strings"
	"sync"

	"markethq/rategate/pkg/config"
)

// Registry maps request paths to limit categories and owns tier handling.
//
// It is read-mostly after startup: Resolve takes a read lock, while tier
// changes and rule table reloads take the write lock. Category state itself
// is guarded by the per-category mutexes, so registry reads never contend
// with in-flight admissions.
type Registry struct {
	mu sync.RWMutex

	venue           string
	defaultCategory string
	tier            int

	rules      []pathRule
	categories map[string]*Category
	order      []string

	// baseCaps holds the tier-0 capacities from configuration, keyed
	// category -> label. Tier tables override these per level.
	baseCaps map[string]map[string]int64
	tiers    map[int]config.TierTable

	clock Clock
}

type pathRule struct {
	prefix   string
	category string
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock injects a clock. Tests use this; production code takes the
// default system clock.
func WithClock(c Clock) Option {
	return func(r *Registry) { r.clock = c }
}

// NewRegistry builds categories, routing rules and tier tables from a
// validated rule table. The configured startup tier is applied before
// returning, so a malformed tier reference fails here, not per-request.
func NewRegistry(cfg *config.Venue, opts ...Option) (*Registry, error) {
	r := &Registry{
		venue:           cfg.Venue,
		defaultCategory: cfg.DefaultCategory,
		categories:      make(map[string]*Category, len(cfg.Categories)),
		baseCaps:        make(map[string]map[string]int64, len(cfg.Categories)),
		tiers:           cfg.Tiers,
		clock:           systemClock{},
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, cc := range cfg.Categories {
		cat, err := newCategory(cfg.Venue, cc, r.clock)
		if err != nil {
			return nil, err
		}
		r.categories[cc.Name] = cat
		r.order = append(r.order, cc.Name)

		caps := make(map[string]int64, len(cc.Windows))
		for _, wc := range cc.Windows {
			caps[config.NormalizeLabel(wc.Label)] = wc.Capacity
		}
		r.baseCaps[cc.Name] = caps
	}

	if _, ok := r.categories[r.defaultCategory]; !ok {
		return nil, &ConfigError{Venue: cfg.Venue, Reason: "unknown default category " + cfg.DefaultCategory}
	}

	for _, rule := range cfg.Rules {
		if _, ok := r.categories[rule.Category]; !ok {
			return nil, &ConfigError{Venue: cfg.Venue, Reason: "rule references unknown category " + rule.Category}
		}
		r.rules = append(r.rules, pathRule{prefix: rule.Prefix, category: rule.Category})
	}

	if cfg.Tier != 0 {
		if err := r.SetTier(cfg.Tier); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Venue returns the venue identifier this registry enforces limits for.
func (r *Registry) Venue() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.venue
}

// Resolve returns the category for a request path. Rules are ordered and
// the first prefix match wins; unmatched paths fall back to the default
// category.
func (r *Registry) Resolve(path string) *Category {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rule := range r.rules {
		if strings.HasPrefix(path, rule.prefix) {
			return r.categories[rule.category]
		}
	}
	return r.categories[r.defaultCategory]
}

// Category returns a category by name.
func (r *Registry) Category(name string) (*Category, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cat, ok := r.categories[name]
	return cat, ok
}

// Categories returns every category in configuration order.
func (r *Registry) Categories() []*Category {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Category, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.categories[name])
	}
	return out
}

// Tier returns the currently applied tier level.
func (r *Registry) Tier() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tier
}

// SetTier rescales window capacities in place for the given tier level.
// Windows the level's table does not mention revert to their base
// capacity. Usage history is preserved: after a downgrade, usage above the
// new capacity keeps rejecting until the window drains, it is never reset.
//
// Level 0 is always valid and means base capacities. Any other level must
// have a tier table.
func (r *Registry) SetTier(level int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var table config.TierTable
	if level != 0 {
		var ok bool
		table, ok = r.tiers[level]
		if !ok {
			return &ConfigError{Venue: r.venue, Reason: "no tier table for requested level"}
		}
	}

	for name, cat := range r.categories {
		caps := make(map[string]int64, len(r.baseCaps[name]))
		for label, capacity := range r.baseCaps[name] {
			caps[label] = capacity
		}
		for label, capacity := range table[name] {
			caps[config.NormalizeLabel(label)] = capacity
		}
		cat.setCapacities(caps)
	}

	r.tier = level
	return nil
}

// Apply updates the registry from a re-loaded rule table without
// discarding usage history. Routing rules, tier tables and base capacities
// are replaced; existing windows keep their entries and get their new
// capacities. The table's venue must match.
//
// Wired to config.Watcher for hot reload:
//
//	w.Watch(ctx, func(v *config.Venue) { _ = reg.Apply(v) })
func (r *Registry) Apply(cfg *config.Venue) error {
	r.mu.Lock()

	if cfg.Venue != r.venue {
		r.mu.Unlock()
		return &ConfigError{Venue: r.venue, Reason: "reloaded table is for venue " + cfg.Venue}
	}

	r.defaultCategory = cfg.DefaultCategory
	r.tiers = cfg.Tiers

	r.rules = r.rules[:0]
	for _, rule := range cfg.Rules {
		r.rules = append(r.rules, pathRule{prefix: rule.Prefix, category: rule.Category})
	}

	seen := make(map[string]bool, len(cfg.Categories))
	order := make([]string, 0, len(cfg.Categories))
	for _, cc := range cfg.Categories {
		seen[cc.Name] = true
		order = append(order, cc.Name)

		caps := make(map[string]int64, len(cc.Windows))
		for _, wc := range cc.Windows {
			caps[config.NormalizeLabel(wc.Label)] = wc.Capacity
		}
		r.baseCaps[cc.Name] = caps

		if cat, ok := r.categories[cc.Name]; ok {
			if err := cat.applyWindows(cc); err != nil {
				r.mu.Unlock()
				return err
			}
		} else {
			cat, err := newCategory(r.venue, cc, r.clock)
			if err != nil {
				r.mu.Unlock()
				return err
			}
			r.categories[cc.Name] = cat
		}
	}
	for name := range r.categories {
		if !seen[name] {
			delete(r.categories, name)
			delete(r.baseCaps, name)
		}
	}
	r.order = order

	tier := cfg.Tier
	r.mu.Unlock()

	// Re-applies capacities for every window, including ones that already
	// existed with a different base capacity.
	return r.SetTier(tier)
}

// CategoryState bundles a category's persisted windows.
type CategoryState struct {
	Venue    string        `json:"venue"`
	Category string        `json:"category"`
	Windows  []WindowState `json:"windows"`
}

// States exports every category for persistence.
func (r *Registry) States() []CategoryState {
	cats := r.Categories()

	out := make([]CategoryState, 0, len(cats))
	for _, cat := range cats {
		out = append(out, CategoryState{
			Venue:    cat.Venue(),
			Category: cat.Name(),
			Windows:  cat.states(),
		})
	}
	return out
}

// RestoreStates re-seeds counters from persisted state, typically at
// startup. States for unknown categories are ignored.
func (r *Registry) RestoreStates(states []CategoryState) {
	for _, st := range states {
		if st.Venue != r.Venue() {
			continue
		}
		if cat, ok := r.Category(st.Category); ok {
			cat.restore(st.Windows)
		}
	}
}
