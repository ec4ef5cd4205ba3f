package testing

import "sync/atomic"

// ManualClock is a millisecond clock that only moves when told to. It
// satisfies timer.Clock.
type ManualClock struct {
	ms atomic.Uint32
}

// NewManualClock creates a clock reading start.
func NewManualClock(start uint32) *ManualClock {
	c := &ManualClock{}
	c.ms.Store(start)
	return c
}

// Millis returns the current reading.
func (c *ManualClock) Millis() uint32 {
	return c.ms.Load()
}

// Set jumps to ms.
func (c *ManualClock) Set(ms uint32) {
	c.ms.Store(ms)
}

// Advance moves the clock forward by ms, wrapping at 2^32.
func (c *ManualClock) Advance(ms uint32) uint32 {
	return c.ms.Add(ms)
}
