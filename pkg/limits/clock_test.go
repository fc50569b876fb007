package limits

import (
	"sync"
	"time"
)

// fakeClock is a manually driven clock. After advances the clock by the
// slept duration and fires immediately, so wait loops run instantly while
// the accounting still sees time pass.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

// stuckClock never fires After, for cancellation tests.
type stuckClock struct {
	now time.Time
}

func (c stuckClock) Now() time.Time {
	return c.now
}

func (c stuckClock) After(time.Duration) <-chan time.Time {
	return make(chan time.Time)
}
