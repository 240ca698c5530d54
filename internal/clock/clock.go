// Package clock abstracts time.Now so the scheduler and services can be
// driven by a fixed clock in tests. Production wiring always gets the
// system clock; FakeClock lives here rather than in a testing package so
// any consumer's tests can reuse it.
package clock

import (
	"sync"
	"time"

	"go.uber.org/fx"
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

func NewSystemClock() Clock {
	return systemClock{}
}

// FakeClock is a Clock frozen at a point in time. It only moves when the
// test advances it, and is safe to share with a scheduler goroutine.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)
