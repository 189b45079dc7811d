// Package gpio provides digital input and output lines with hardware
// abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "errors"

var (
	// ErrUnsupported is returned where no GPIO character device exists.
	ErrUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

	// ErrNoEdges is returned by Watch on a line requested without edge
	// detection.
	ErrNoEdges = errors.New("gpio: line requested without edge detection")
)

// EdgeHandler receives the level after an edge and the kernel timestamp of
// the edge in monotonic microseconds. It runs on the line's event goroutine,
// never on the scheduler goroutine.
type EdgeHandler func(level bool, micros uint32)

// Input reads a digital line. Levels are logical: ActiveLow is applied.
type Input interface {
	Read() (bool, error)
	Close() error
}

// EdgeInput is an Input that can report edges.
type EdgeInput interface {
	Input
	// Watch installs h, replacing any previous handler.
	Watch(h EdgeHandler) error
}

// Output drives a digital line.
type Output interface {
	Write(level bool) error
	Close() error
}

// InputConfig describes how an input line is requested.
type InputConfig struct {
	ActiveLow bool
	PullUp    bool
	PullDown  bool
	// Edges enables edge events for Watch.
	Edges bool
}

// OutputConfig describes how an output line is requested.
type OutputConfig struct {
	ActiveLow bool
	Initial   bool
}

// Chip hands out lines by offset.
type Chip interface {
	Input(offset int, cfg InputConfig) (EdgeInput, error)
	Output(offset int, cfg OutputConfig) (Output, error)
	Close() error
}
