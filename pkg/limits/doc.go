// Package limits is the admission-control engine every venue client
// consults before issuing an outbound API call.
//
// # Overview
//
// A venue publishes several independent quotas per endpoint group: raw call
// counts, weighted cost, and order counts, each over its own rolling window.
// Exceeding any of them risks a temporary or permanent IP ban, so admission
// is checked locally before every request and corrected afterwards from the
// authoritative usage figures the venue returns in response headers.
//
// The engine is configuration-driven: per-venue rule tables (pkg/config)
// define categories, windows, endpoint routing, header mappings and tier
// capacity tables. New venues are configuration entries, not new code.
//
// # Components
//
//   - Registry: builds categories from a rule table, routes request paths
//     to categories, applies tier changes and hot reloads.
//   - Coordinator: the acquire entry point; checks every window of a
//     category atomically and either admits, waits (bounded), or denies.
//   - HeaderSync: translates venue response headers into canonical usage
//     snapshots and reconciles them into the matching windows.
//   - Reporter: read-only usage snapshots for monitoring and caller-side
//     backoff decisions.
//
// # Usage
//
//	cfg, _ := config.Load("binance-spot.yaml")
//	reg, _ := limits.NewRegistry(cfg)
//	coord := limits.NewCoordinator(reg)
//	sync, _ := limits.NewHeaderSync(cfg)
//
//	cat := reg.Resolve("/api/v3/order")
//	permit, err := coord.Acquire(ctx, cat, 1, true, limits.WaitBounded(2*time.Second))
//	if err != nil {
//	    // typed denial; caller owns retry policy
//	}
//	resp := doRequest()
//	sync.ReconcileHeaders(cat, resp.Header)
//
// # Concurrency
//
// Each category holds one mutex covering the check-then-record sequence, so
// two in-flight callers can never jointly exceed capacity. Unrelated
// categories do not contend. Waiting happens outside any lock; a caller
// that abandons a wait has reserved nothing. No fairness between waiters is
// guaranteed, only that usage never exceeds capacity.
//
// The engine never retries internally: every denial is returned to the
// caller as a typed error.
package limits
