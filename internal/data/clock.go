package data

import (
	"sync"
	"time"

	"github.com/target/mediafetch/internal/core"
)

// WallClock reports the system time in UTC.
type WallClock struct{}

var _ core.Clock = WallClock{}

func (WallClock) Now() time.Time { return time.Now().UTC() }

// ManualClock is a core.Clock that only moves when told to. Job timestamps,
// cache expiry and reaper cutoffs are all driven from it in tests.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

var _ core.Clock = (*ManualClock)(nil)

// NewManualClock returns a clock stopped at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new time.
func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}
