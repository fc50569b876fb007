package limits

import (
	"errors"
	"fmt"
	"time"

	"markethq/rategate/pkg/config"
)

// Dimension is a quota dimension tracked by a window.
type Dimension string

const (
	// DimensionRaw counts raw API calls regardless of weight.
	DimensionRaw Dimension = "raw"

	// DimensionWeight counts the venue-assigned cost of each call.
	DimensionWeight Dimension = "weight"

	// DimensionOrders counts order placements. Order windows only
	// participate in admission when the request is an order.
	DimensionOrders Dimension = "orders"
)

func parseDimension(s string) (Dimension, bool) {
	switch s {
	case config.DimensionRaw:
		return DimensionRaw, true
	case config.DimensionWeight:
		return DimensionWeight, true
	case config.DimensionOrders:
		return DimensionOrders, true
	default:
		return "", false
	}
}

// WaitPolicy controls what Acquire does when a window is over budget.
type WaitPolicy struct {
	wait    bool
	maxWait time.Duration
}

// FailFast denies immediately when any window lacks headroom.
func FailFast() WaitPolicy {
	return WaitPolicy{}
}

// WaitBounded suspends until capacity is expected to free, up to maxWait.
// The ceiling is hard: Acquire never waits longer than maxWait even if
// capacity never frees.
func WaitBounded(maxWait time.Duration) WaitPolicy {
	return WaitPolicy{wait: true, maxWait: maxWait}
}

// Permit is the result of a successful admission check: a capability to
// proceed with the call. Capacity was reserved at the moment the permit was
// issued; there is nothing to release.
type Permit struct {
	// ID uniquely identifies this admission for logging and tracing.
	ID string

	// Venue and Category identify the limit category that admitted the
	// request.
	Venue    string
	Category string

	// Cost is the weight consumed; order and raw windows consumed one
	// unit each regardless.
	Cost    int64
	IsOrder bool

	// AcquiredAt is when capacity was reserved.
	AcquiredAt time.Time

	// Waited is how long the caller was suspended before admission.
	Waited time.Duration
}

// UsageSnapshot is one canonical server-reported usage figure, extracted
// from a venue response header.
type UsageSnapshot struct {
	// Dimension is the quota dimension the figure refers to.
	Dimension Dimension

	// Label is the normalized window label ("1M", "10S", "1D") matched
	// against the category's windows.
	Label string

	// Used is the server-reported figure. When Remaining is true it is a
	// remaining count and is converted against the window capacity at
	// reconcile time.
	Used      int64
	Remaining bool

	// ResetAt is the server-reported window reset time, zero when the
	// venue does not report one.
	ResetAt time.Time
}

// Sentinel errors. The typed errors below unwrap to these so callers can
// branch with errors.Is.
var (
	// ErrLimitExceeded is returned when a window lacks headroom. The
	// request may succeed later; the caller owns retry policy.
	ErrLimitExceeded = errors.New("rate limit exceeded")

	// ErrCostExceedsCapacity is returned when a single request costs more
	// than a window's total capacity and can never be admitted.
	ErrCostExceedsCapacity = errors.New("cost exceeds window capacity")

	// ErrConfigInvalid is returned for unknown categories or malformed
	// rule tables. These fail at startup wherever possible.
	ErrConfigInvalid = errors.New("invalid rate limit configuration")
)

// LimitExceededError reports a denied admission. Dimension, Label, Used and
// Limit describe the binding window: the one whose capacity frees last.
type LimitExceededError struct {
	Venue    string
	Category string

	Dimension Dimension
	Label     string
	Used      int64
	Limit     int64

	// RetryAfter is the maximum wait across all blocking windows. Waiting
	// only for the first-to-free window would just trip the next one.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s/%s: %s %s used %d of %d, retry after %s",
		e.Venue, e.Category, e.Dimension, e.Label, e.Used, e.Limit, e.RetryAfter)
}

// Unwrap returns ErrLimitExceeded.
func (e *LimitExceededError) Unwrap() error {
	return ErrLimitExceeded
}

// CostExceedsCapacityError reports a permanently unsatisfiable request:
// its cost is larger than a window's total capacity.
type CostExceedsCapacityError struct {
	Venue    string
	Category string

	Dimension Dimension
	Label     string
	Cost      int64
	Capacity  int64
}

// Error implements the error interface.
func (e *CostExceedsCapacityError) Error() string {
	return fmt.Sprintf("cost %d exceeds capacity %d of %s %s window in %s/%s",
		e.Cost, e.Capacity, e.Dimension, e.Label, e.Venue, e.Category)
}

// Unwrap returns ErrCostExceedsCapacity.
func (e *CostExceedsCapacityError) Unwrap() error {
	return ErrCostExceedsCapacity
}

// ConfigError reports a malformed or inconsistent rule table.
type ConfigError struct {
	Venue  string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rate limit configuration for %s: %s: %v", e.Venue, e.Reason, e.Err)
	}
	return fmt.Sprintf("rate limit configuration for %s: %s", e.Venue, e.Reason)
}

// Unwrap returns the wrapped error, or ErrConfigInvalid.
func (e *ConfigError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrConfigInvalid
}
