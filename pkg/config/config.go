package config

import "time"

// Reconciliation policies for server-reported usage headers.
const (
	// ReconcileOverwrite discards local accounting in favor of the server
	// figure. Right when the server sees traffic this process does not
	// (shared API key).
	ReconcileOverwrite = "overwrite"

	// ReconcileRaiseOnly only ever adjusts local usage upward, tolerating
	// clock skew without under-counting.
	ReconcileRaiseOnly = "raise_only"
)

// Window counter kinds.
const (
	// KindSliding is a rolling window of timestamped costs. Use wherever
	// the venue's published rule is itself a rolling window.
	KindSliding = "sliding"

	// KindBucket is a continuously refilling token bucket. Only for venues
	// that document continuous credit refill.
	KindBucket = "bucket"
)

// Quota dimensions.
const (
	DimensionRaw    = "raw"
	DimensionWeight = "weight"
	DimensionOrders = "orders"
)

// Venue is the full rule table for one venue (or one venue product, e.g.
// "binance-spot" vs "binance-usdm" are separate rule files).
type Venue struct {
	// Venue is the rule table identifier, e.g. "binance-spot".
	Venue string `yaml:"venue"`

	// ReconcilePolicy is "overwrite" (default) or "raise_only".
	ReconcilePolicy string `yaml:"reconcile_policy"`

	// DefaultCategory receives requests no rule matches. Defaults to the
	// only category when exactly one is defined.
	DefaultCategory string `yaml:"default_category"`

	// Tier is the account tier active at startup.
	Tier int `yaml:"tier"`

	// Categories define the limit categories and their windows.
	Categories []Category `yaml:"categories"`

	// Rules route endpoint paths to categories, first match wins.
	Rules []Rule `yaml:"rules"`

	// Headers map venue response headers to canonical usage snapshots.
	Headers []HeaderRule `yaml:"headers"`

	// Tiers holds absolute capacity tables per tier level. A level only
	// needs to list the windows whose capacity differs from the base
	// configuration.
	Tiers map[int]TierTable `yaml:"tiers"`
}

// Category is a named group of windows that must all admit a request
// together.
type Category struct {
	// Name identifies the category, e.g. "spot", "spot-orders".
	Name string `yaml:"name"`

	// Windows are the quota dimensions enforced for this category.
	Windows []Window `yaml:"windows"`
}

// Window configures one quota dimension over one time window.
type Window struct {
	// Dimension is "raw", "weight" or "orders". Order windows only
	// participate in admission when the request is an order.
	Dimension string `yaml:"dimension"`

	// Label is the venue's own window identifier ("1M", "10S", "1D"),
	// used to match server usage headers. Derived from Duration when
	// empty.
	Label string `yaml:"label"`

	// Capacity is the maximum permitted units in the window at the base
	// tier.
	Capacity int64 `yaml:"capacity"`

	// Duration is the rolling window length.
	Duration time.Duration `yaml:"duration"`

	// Kind is "sliding" (default) or "bucket".
	Kind string `yaml:"kind"`
}

// Rule routes an endpoint path prefix to a category.
type Rule struct {
	// Prefix is matched against the request path with strings.HasPrefix.
	Prefix string `yaml:"prefix"`

	// Category names the category receiving matching requests.
	Category string `yaml:"category"`
}

// HeaderRule maps one venue response header (or header family) to a
// canonical usage snapshot. Exactly one of Name or Prefix must be set.
type HeaderRule struct {
	// Name matches a header exactly, e.g. "gw-ratelimit-remaining". The
	// window label comes from the Label field.
	Name string `yaml:"name"`

	// Prefix matches a dynamic-suffix header family, e.g.
	// "x-mbx-used-weight-" where the suffix encodes the window ("1m",
	// "10s", "1d"). The label is parsed from the suffix.
	Prefix string `yaml:"prefix"`

	// Dimension is the quota dimension the header reports.
	Dimension string `yaml:"dimension"`

	// Label is required for exact-name rules, ignored for prefix rules.
	Label string `yaml:"label"`

	// Value is what the header value reports: "used" (default, Binance
	// style) or "remaining" (Gate.io / KuCoin style, converted against the
	// window capacity at reconcile time).
	Value string `yaml:"value"`
}

// Header value semantics.
const (
	ValueUsed      = "used"
	ValueRemaining = "remaining"
)

// TierTable maps category name -> window label -> capacity for one tier
// level.
type TierTable map[string]map[string]int64
