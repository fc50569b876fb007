package window

import (
	"math"
	"time"
)

// TokenBucket is the continuous-refill counter shape.
//
// The bucket starts full and refills at capacity/window tokens per second.
// Usage is capacity minus tokens, which keeps the Counter accounting model
// identical to a sliding window from the category's point of view.
//
// Only configure a bucket where the venue documents continuous refill;
// for published rolling-window rules use SlidingWindow.
type TokenBucket struct {
	capacity   int64
	tokens     float64
	refillRate float64 // tokens per second
	window     time.Duration
	lastRefill time.Time
}

// NewTokenBucket creates a token bucket that refills the full capacity over
// one window duration.
//
// Example:
//
//	// 100 credits refilling over 5 seconds (20 credits/sec)
//	b := window.NewTokenBucket(100, 5*time.Second, now)
func NewTokenBucket(capacity int64, window time.Duration, now time.Time) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     float64(capacity),
		refillRate: float64(capacity) / window.Seconds(),
		window:     window,
		lastRefill: now,
	}
}

// Evict refills tokens for the elapsed time. Tokens never exceed capacity.
func (b *TokenBucket) Evict(now time.Time) {
	elapsed := now.Sub(b.lastRefill)
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed.Seconds() * b.refillRate
	if b.tokens > float64(b.capacity) {
		b.tokens = float64(b.capacity)
	}
	b.lastRefill = now
}

// Usage returns consumed capacity. Negative token levels (possible after a
// tier downgrade) show up as usage above capacity, exactly like an
// over-full sliding window.
func (b *TokenBucket) Usage(now time.Time) int64 {
	b.Evict(now)
	return b.capacity - int64(math.Floor(b.tokens))
}

// WouldExceed reports whether cost tokens are unavailable right now.
func (b *TokenBucket) WouldExceed(now time.Time, cost int64) bool {
	b.Evict(now)
	return float64(cost) > b.tokens
}

// Record deducts cost tokens.
func (b *TokenBucket) Record(now time.Time, cost int64) {
	b.tokens -= float64(cost)
}

// TimeUntilCapacity returns how long refill needs to cover cost. Returns
// false when cost exceeds total capacity.
func (b *TokenBucket) TimeUntilCapacity(now time.Time, cost int64) (time.Duration, bool) {
	if cost > b.capacity {
		return 0, false
	}

	b.Evict(now)
	if float64(cost) <= b.tokens {
		return 0, true
	}

	need := float64(cost) - b.tokens
	return time.Duration(need / b.refillRate * float64(time.Second)), true
}

// Capacity returns the bucket capacity.
func (b *TokenBucket) Capacity() int64 {
	return b.capacity
}

// SetCapacity shifts the token level by the capacity delta so consumed
// budget carries across a tier change. A downgrade can push tokens
// negative; refill brings them back through zero.
func (b *TokenBucket) SetCapacity(capacity int64) {
	b.tokens += float64(capacity - b.capacity)
	b.capacity = capacity
	b.refillRate = float64(capacity) / b.window.Seconds()
}

// Window returns the full-refill duration.
func (b *TokenBucket) Window() time.Duration {
	return b.window
}

// SetUsage pins the token level to capacity minus the server's figure.
func (b *TokenBucket) SetUsage(now time.Time, used int64) {
	b.tokens = float64(b.capacity - used)
	b.lastRefill = now
}

// Raise lowers the token level only when the server reports more usage
// than is locally known.
func (b *TokenBucket) Raise(now time.Time, used int64) {
	if used > b.Usage(now) {
		b.SetUsage(now, used)
	}
}

// State exports the token level for persistence.
func (b *TokenBucket) State(now time.Time) State {
	b.Evict(now)
	return State{
		Capacity:   b.capacity,
		Window:     b.window,
		Tokens:     b.tokens,
		HasTokens:  true,
		RefilledAt: b.lastRefill,
	}
}

// Restore re-seeds the token level and immediately credits refill for the
// downtime since the state was taken.
func (b *TokenBucket) Restore(now time.Time, st State) {
	if !st.HasTokens {
		return
	}
	b.tokens = st.Tokens
	if b.tokens > float64(b.capacity) {
		b.tokens = float64(b.capacity)
	}
	b.lastRefill = st.RefilledAt
	b.Evict(now)
}
