// Package config defines and loads per-venue rate limit rule tables.
//
// # Overview
//
// A venue's published limits are expressed as static data, not code: window
// capacities and durations per category, endpoint-prefix routing rules,
// response-header mappings, and tier capacity tables. Adding a venue means
// writing a YAML file, not a new limiter type.
//
// # Loading
//
// Configuration follows a load -> defaults -> validate pipeline:
//
//	cfg, err := config.Load("binance-spot.yaml")
//
// Environment variables prefixed RATEGATE_ override selected fields after
// file loading (see LoadWithEnvOverrides). Validation failures are reported
// together as a ValidationError so a broken rule table fails at startup with
// every problem listed, never one request at a time.
//
// # Hot reload
//
// Watcher re-loads a rule file on change (debounced) and hands the new
// tables to a callback. Capacity changes are applied to live counters
// without discarding usage history.
package config
