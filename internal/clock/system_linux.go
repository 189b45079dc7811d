//go:build linux

package clock

import (
	"time"

	"golang.org/x/sys/unix"
)

// System reads CLOCK_MONOTONIC so Micros lines up with the kernel timestamps
// attached to GPIO line events.
type System struct{}

// Now returns time.Now.
func (System) Now() time.Time { return time.Now() }

// Micros returns CLOCK_MONOTONIC in microseconds, truncated to 32 bits.
func (System) Micros() uint32 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return uint32(time.Now().UnixMicro())
	}
	return uint32(ts.Nano() / 1_000)
}
