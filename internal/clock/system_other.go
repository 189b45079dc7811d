//go:build !linux

package clock

import "time"

var processStart = time.Now()

// System uses the Go runtime's monotonic clock, counted from process start.
type System struct{}

// Now returns time.Now.
func (System) Now() time.Time { return time.Now() }

// Micros returns microseconds since process start, truncated to 32 bits.
func (System) Micros() uint32 {
	return uint32(time.Since(processStart).Microseconds())
}
