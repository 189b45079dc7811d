// Package clock provides the time sources used by the scheduler and drivers.
// Everything that needs "now" takes a Clock so tests can drive time by hand.
package clock

import (
	"sync"
	"time"
)

// Clock is a wall/monotonic time source.
type Clock interface {
	// Now returns the current time. Durations between two calls are monotonic.
	Now() time.Time

	// Micros returns a wrapping 32-bit microsecond counter on the same timebase
	// as GPIO edge timestamps. Differences must be computed with unsigned
	// subtraction so a wrap (about every 71 minutes) is harmless.
	Micros() uint32
}

// Fake is a manually advanced clock for tests. Safe for concurrent use.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	micros uint32
}

// NewFake creates a Fake clock starting at the given time with a zero
// microsecond counter.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Micros returns the fake microsecond counter.
func (f *Fake) Micros() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.micros
}

// Advance moves both time and the microsecond counter forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.micros += uint32(d.Microseconds())
	f.mu.Unlock()
}

// SetMicros sets the microsecond counter without touching Now.
func (f *Fake) SetMicros(us uint32) {
	f.mu.Lock()
	f.micros = us
	f.mu.Unlock()
}
