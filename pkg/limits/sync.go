package limits

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"markethq/rategate/pkg/config"
)

// HeaderSync reconciles server-reported usage figures into local windows.
//
// Venues report usage out-of-band in response headers, under wildly
// different naming schemes. The translation from raw header names to
// canonical (dimension, window label) pairs is per-venue static
// configuration resolved once at construction; nothing here parses venue
// conventions at request time beyond a dynamic window suffix.
//
// Malformed or unknown headers are skipped at Debug level and never produce
// an error: local accounting simply stays authoritative for that cycle.
type HeaderSync struct {
	policy  string
	headers *HeaderMap
	clock   Clock
	logger  *slog.Logger
	metrics *Metrics
}

// SyncOption configures a HeaderSync.
type SyncOption func(*HeaderSync)

// WithSyncClock injects a clock for tests.
func WithSyncClock(clk Clock) SyncOption {
	return func(s *HeaderSync) { s.clock = clk }
}

// WithSyncLogger sets the logger for skipped-header diagnostics.
func WithSyncLogger(logger *slog.Logger) SyncOption {
	return func(s *HeaderSync) { s.logger = logger.With("component", "limits.sync") }
}

// WithSyncMetrics attaches Prometheus metrics to the reconcile path.
func WithSyncMetrics(m *Metrics) SyncOption {
	return func(s *HeaderSync) { s.metrics = m }
}

// NewHeaderSync builds a synchronizer from a venue's header rules and
// reconciliation policy.
func NewHeaderSync(cfg *config.Venue, opts ...SyncOption) (*HeaderSync, error) {
	hm, err := NewHeaderMap(cfg.Venue, cfg.Headers)
	if err != nil {
		return nil, err
	}

	s := &HeaderSync{
		policy:  cfg.ReconcilePolicy,
		headers: hm,
		clock:   systemClock{},
		logger:  slog.Default().With("component", "limits.sync"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Reconcile applies canonical usage snapshots to the category's windows.
// Snapshots that match no window are logged and skipped. Applying the same
// snapshot twice with no time passing leaves identical state.
func (s *HeaderSync) Reconcile(cat *Category, snaps []UsageSnapshot, now time.Time) {
	for _, snap := range snaps {
		if cat.reconcile(snap, s.policy, now) {
			if s.metrics != nil {
				s.metrics.RecordReconcile(cat.Venue(), cat.Name(), "applied")
			}
			continue
		}
		if s.metrics != nil {
			s.metrics.RecordReconcile(cat.Venue(), cat.Name(), "skipped")
		}
		s.logger.Debug("usage snapshot matches no window",
			"category", cat.Name(),
			"dimension", string(snap.Dimension),
			"label", snap.Label,
		)
	}
}

// ReconcileHeaders extracts snapshots from raw response headers and
// reconciles them. This is the call transports make after every response.
func (s *HeaderSync) ReconcileHeaders(cat *Category, h http.Header) {
	snaps := s.headers.FromHeaders(h)
	if len(snaps) == 0 {
		return
	}
	s.Reconcile(cat, snaps, s.clock.Now())
}

// HeaderMap translates raw venue response headers into canonical usage
// snapshots. Two rule forms exist:
//
//   - exact: one header name reports one window, with the label fixed in
//     configuration ("gw-ratelimit-remaining" -> orders "30S").
//   - prefix: a header family whose suffix encodes the window
//     ("x-mbx-used-weight-1m" -> weight "1M"). The suffix grammar is
//     <digits><s|m|h|d>, case-insensitive.
type HeaderMap struct {
	exact    map[string]headerTarget
	prefixes []prefixRule
}

type headerTarget struct {
	dimension Dimension
	label     string
	remaining bool
}

type prefixRule struct {
	prefix    string
	dimension Dimension
	remaining bool
}

// NewHeaderMap compiles a venue's header rules. Rules are matched
// case-insensitively; prefix rules are tried in configuration order after
// exact names.
func NewHeaderMap(venue string, rules []config.HeaderRule) (*HeaderMap, error) {
	m := &HeaderMap{
		exact: make(map[string]headerTarget, len(rules)),
	}

	for _, rule := range rules {
		dim, ok := parseDimension(rule.Dimension)
		if !ok {
			return nil, &ConfigError{Venue: venue, Reason: "header rule has unknown dimension " + rule.Dimension}
		}
		remaining := rule.Value == config.ValueRemaining

		if rule.Name != "" {
			m.exact[strings.ToLower(rule.Name)] = headerTarget{
				dimension: dim,
				label:     config.NormalizeLabel(rule.Label),
				remaining: remaining,
			}
			continue
		}
		m.prefixes = append(m.prefixes, prefixRule{
			prefix:    strings.ToLower(rule.Prefix),
			dimension: dim,
			remaining: remaining,
		})
	}

	return m, nil
}

// Resolve translates one header into a snapshot. The bool is false for
// headers this venue does not report usage through, and for unparsable
// values or window suffixes.
func (m *HeaderMap) Resolve(name, value string) (UsageSnapshot, bool) {
	used, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || used < 0 {
		return UsageSnapshot{}, false
	}

	lower := strings.ToLower(name)

	if t, ok := m.exact[lower]; ok {
		return UsageSnapshot{
			Dimension: t.dimension,
			Label:     t.label,
			Used:      used,
			Remaining: t.remaining,
		}, true
	}

	for _, p := range m.prefixes {
		if !strings.HasPrefix(lower, p.prefix) {
			continue
		}
		suffix := lower[len(p.prefix):]
		if _, err := config.ParseWindowLabel(suffix); err != nil {
			return UsageSnapshot{}, false
		}
		return UsageSnapshot{
			Dimension: p.dimension,
			Label:     config.NormalizeLabel(suffix),
			Used:      used,
			Remaining: p.remaining,
		}, true
	}

	return UsageSnapshot{}, false
}

// FromHeaders extracts every snapshot a response carries. Headers that
// match no rule or fail to parse are simply absent from the result.
func (m *HeaderMap) FromHeaders(h http.Header) []UsageSnapshot {
	var snaps []UsageSnapshot
	for name, values := range h {
		if len(values) == 0 {
			continue
		}
		if snap, ok := m.Resolve(name, values[0]); ok {
			snaps = append(snaps, snap)
		}
	}
	return snaps
}
