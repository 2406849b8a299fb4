package clock

import (
	"sync"
	"time"
)

// Clock abstracts the time source used to measure controller calls.
// Production code uses Real(); tests use Fake() and move time by hand.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// Fake returns a FakeClock initialized to the given time. Time stands
// still until Advance or Sleep is called.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

// FakeClock is a deterministic Clock for testing. Sleep returns at once
// after moving the clock forward, so a controller that "sleeps" through
// its budget costs no wall time in tests.
//
// FakeClock is safe for concurrent use by multiple goroutines.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

func (c *FakeClock) Sleep(d time.Duration) {
	if d > 0 {
		c.Advance(d)
	}
}
