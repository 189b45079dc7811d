package edge

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// EdgeMode says what an edge does to a Counter.
type EdgeMode int

const (
	EdgeDisable EdgeMode = iota
	EdgeIncrement
	EdgeDecrement
)

func (m EdgeMode) String() string {
	switch m {
	case EdgeIncrement:
		return "INCREMENT"
	case EdgeDecrement:
		return "DECREMENT"
	default:
		return "DISABLE"
	}
}

// ParseEdgeMode parses DISABLE, INCREMENT or DECREMENT, case-insensitively.
// Empty returns def.
func ParseEdgeMode(s string, def EdgeMode) (EdgeMode, error) {
	switch strings.ToUpper(s) {
	case "":
		return def, nil
	case "DISABLE":
		return EdgeDisable, nil
	case "INCREMENT":
		return EdgeIncrement, nil
	case "DECREMENT":
		return EdgeDecrement, nil
	}
	return def, fmt.Errorf("unknown edge mode %q", s)
}

// Counter counts pulses on a line.
type Counter struct {
	rising, falling EdgeMode
	filterUS        uint32

	// producer only
	lastPulse uint32
	seen      bool

	count atomic.Int32

	// consumer only
	lastValue int32
}

// NewCounter returns a counter. Edges closer than minWidth to the previous
// edge are ignored.
func NewCounter(rising, falling EdgeMode, minWidth time.Duration) *Counter {
	return &Counter{rising: rising, falling: falling, filterUS: uint32(minWidth.Microseconds())}
}

// HandleEdge is the producer side; level is the level after the edge. An
// ignored edge still restarts the width filter.
func (c *Counter) HandleEdge(level bool, now uint32) {
	discard := c.seen && now-c.lastPulse < c.filterUS
	c.lastPulse = now
	c.seen = true
	if discard {
		return
	}

	mode := c.falling
	if level {
		mode = c.rising
	}
	switch mode {
	case EdgeIncrement:
		c.count.Add(1)
	case EdgeDecrement:
		c.count.Add(-1)
	}
}

// Count returns the running total.
func (c *Counter) Count() int32 { return c.count.Load() }

// ReadDelta returns the pulses since the previous ReadDelta. The producer's
// counter is never reset.
func (c *Counter) ReadDelta() int32 {
	now := c.count.Load()
	d := now - c.lastValue
	c.lastValue = now
	return d
}

// Modes returns the rising and falling edge modes.
func (c *Counter) Modes() (rising, falling EdgeMode) { return c.rising, c.falling }
