package hal

import (
	"sync/atomic"
	"time"
)

// SystemClock counts from its creation using the Go monotonic clock.
type SystemClock struct {
	start time.Time
}

// NewSystemClock creates a clock starting at zero now.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// NowUS returns microseconds since creation, truncated to 32 bits.
func (c *SystemClock) NowUS() uint32 {
	return uint32(time.Since(c.start).Microseconds())
}

// NowMS returns milliseconds since creation, truncated to 32 bits.
func (c *SystemClock) NowMS() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

// FakeClock is a manually advanced clock for tests and deterministic simulation.
type FakeClock struct {
	us atomic.Uint64
}

// NewFakeClock creates a clock set to startUS microseconds.
func NewFakeClock(startUS uint64) *FakeClock {
	c := &FakeClock{}
	c.us.Store(startUS)
	return c
}

// Advance moves the clock forward by d microseconds.
func (c *FakeClock) Advance(d uint64) {
	c.us.Add(d)
}

// NowUS returns the current microsecond count, truncated to 32 bits.
func (c *FakeClock) NowUS() uint32 {
	return uint32(c.us.Load())
}

// NowMS returns the current millisecond count, truncated to 32 bits.
func (c *FakeClock) NowMS() uint32 {
	return uint32(c.us.Load() / 1000)
}
