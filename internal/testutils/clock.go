package testutils

import (
	"sync"
	"time"

	"github.com/aretw0/vine/pkg/ports"
)

// FakeClock is a manual ports.Clock for deterministic scheduler and audio
// tests. Timers fire synchronously inside Advance, in due order, and may
// schedule further timers (fade ticks chain this way).
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	nextID int64
	timers map[int64]*fakeTimer
}

type fakeTimer struct {
	id int64
	at time.Time
	fn func()
}

// NewFakeClock starts a clock at the given instant.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start, timers: make(map[int64]*fakeTimer)}
}

// Now implements ports.Clock.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc implements ports.Clock. The timer fires during a later
// Advance that reaches its due time.
func (c *FakeClock) AfterFunc(d time.Duration, fn func()) ports.CancelFunc {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.timers[id] = &fakeTimer{id: id, at: c.now.Add(d), fn: fn}
	return func() {
		c.mu.Lock()
		delete(c.timers, id)
		c.mu.Unlock()
	}
}

// Advance moves the clock forward, firing every due timer in time order
// (insertion order breaks ties). Callbacks run outside the clock lock so
// they may arm new timers, which fire too if they come due within d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		var next *fakeTimer
		for _, t := range c.timers {
			if t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) || (t.at.Equal(next.at) && t.id < next.id) {
				next = t
			}
		}
		if next == nil {
			break
		}
		if next.at.After(c.now) {
			c.now = next.at
		}
		delete(c.timers, next.id)
		fn := next.fn
		c.mu.Unlock()
		fn()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

// PendingTimers reports how many timers are armed.
func (c *FakeClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}
