package calendar

import (
	"sync"
	"time"
)

// =============================================================================
// CLOCK - Source of "today"
// =============================================================================

// Clock supplies the current calendar day. Every due-date and window
// calculation takes one explicitly; nothing reads time.Now() directly.
type Clock interface {
	Today() Date
}

// SystemClock reads the wall clock in Location (UTC when nil). The
// location matters: an agency in Los Angeles is still on "yesterday" for
// eight hours after UTC midnight.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Today() Date {
	now := time.Now()
	if c.Location != nil {
		now = now.In(c.Location)
	}
	return DateOf(now)
}

// FixedClock always returns the same day.
type FixedClock Date

func (c FixedClock) Today() Date { return Date(c) }

// =============================================================================
// SIMULATED CLOCK - Advance/reset for demos and what-if runs
// =============================================================================

// SimulatedClock starts at its base clock's day and can be moved forward or
// back by whole days, set to an arbitrary day, or reset. Safe for
// concurrent use.
type SimulatedClock struct {
	base Clock

	mu     sync.RWMutex
	offset int
	pinned *Date
}

// NewSimulatedClock wraps base (SystemClock{} when nil).
func NewSimulatedClock(base Clock) *SimulatedClock {
	if base == nil {
		base = SystemClock{}
	}
	return &SimulatedClock{base: base}
}

func (c *SimulatedClock) Today() Date {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.pinned != nil {
		return c.pinned.AddDays(c.offset)
	}
	return c.base.Today().AddDays(c.offset)
}

// Advance moves the simulated day by n days (negative moves back) and
// returns the new day.
func (c *SimulatedClock) Advance(n int) Date {
	c.mu.Lock()
	c.offset += n
	c.mu.Unlock()
	return c.Today()
}

// Set pins the simulated day to d.
func (c *SimulatedClock) Set(d Date) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pinned = &d
	c.offset = 0
}

// Reset returns to the base clock's day.
func (c *SimulatedClock) Reset() Date {
	c.mu.Lock()
	c.pinned = nil
	c.offset = 0
	c.mu.Unlock()
	return c.Today()
}

// Offset reports how many days the clock is ahead of its base (or of the
// pinned day).
func (c *SimulatedClock) Offset() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}
