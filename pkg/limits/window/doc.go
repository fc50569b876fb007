// Package window implements the counters that track quota usage over
// rolling time windows.
//
// # Overview
//
// Two counter shapes are provided:
//
//   - SlidingWindow: timestamped cost entries over a rolling window. This is
//     the shape venues publish for nearly all quotas ("6000 weight per
//     minute", "100 orders per 10 seconds").
//   - TokenBucket: continuous refill toward a fixed capacity. Only used where
//     a venue explicitly documents continuous credit refill.
//
// Both satisfy the Counter interface so a category can mix shapes.
//
// # Thread Safety
//
// Counters are NOT safe for concurrent use. Each counter is owned by exactly
// one limits.Category, which serializes access under its own mutex. Keeping
// the lock one level up is what makes check-then-record atomic across all
// counters of a category.
package window
