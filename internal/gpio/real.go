//go:build linux

package gpio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/warthog618/go-gpiocdev"
)

// RealChip hands out lines of a Linux GPIO character device.
type RealChip struct {
	chip *gpiocdev.Chip

	mu    sync.Mutex
	lines []*gpiocdev.Line
}

// OpenChip opens a GPIO chip by name, e.g. "gpiochip0".
func OpenChip(name string) (*RealChip, error) {
	chip, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &RealChip{chip: chip}, nil
}

type realInput struct {
	line    *gpiocdev.Line
	edges   bool
	handler atomic.Pointer[EdgeHandler]
}

// Input requests offset as an input.
func (c *RealChip) Input(offset int, cfg InputConfig) (EdgeInput, error) {
	in := &realInput{edges: cfg.Edges}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput}
	if cfg.ActiveLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	switch {
	case cfg.PullUp:
		opts = append(opts, gpiocdev.WithPullUp)
	case cfg.PullDown:
		opts = append(opts, gpiocdev.WithPullDown)
	}
	if cfg.Edges {
		opts = append(opts, gpiocdev.WithBothEdges, gpiocdev.WithEventHandler(in.onEvent))
	}

	line, err := c.chip.RequestLine(offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request input pin %d: %w", offset, err)
	}
	in.line = line
	c.track(line)
	return in, nil
}

func (in *realInput) onEvent(evt gpiocdev.LineEvent) {
	h := in.handler.Load()
	if h == nil {
		return
	}
	// Kernel timestamps are CLOCK_MONOTONIC, the same base as clock.System.
	(*h)(evt.Type == gpiocdev.LineEventRisingEdge, uint32(evt.Timestamp.Microseconds()))
}

func (in *realInput) Read() (bool, error) {
	v, err := in.line.Value()
	if err != nil {
		return false, fmt.Errorf("read pin %d: %w", in.line.Offset(), err)
	}
	return v == 1, nil
}

func (in *realInput) Watch(h EdgeHandler) error {
	if !in.edges {
		return ErrNoEdges
	}
	in.handler.Store(&h)
	return nil
}

func (in *realInput) Close() error {
	in.handler.Store(nil)
	return nil
}

type realOutput struct {
	line *gpiocdev.Line
}

// Output requests offset as an output driven to cfg.Initial.
func (c *RealChip) Output(offset int, cfg OutputConfig) (Output, error) {
	initial := 0
	if cfg.Initial {
		initial = 1
	}
	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(initial)}
	if cfg.ActiveLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	line, err := c.chip.RequestLine(offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request output pin %d: %w", offset, err)
	}
	c.track(line)
	return &realOutput{line: line}, nil
}

func (o *realOutput) Write(level bool) error {
	v := 0
	if level {
		v = 1
	}
	if err := o.line.SetValue(v); err != nil {
		return fmt.Errorf("write pin %d: %w", o.line.Offset(), err)
	}
	return nil
}

func (o *realOutput) Close() error { return nil }

func (c *RealChip) track(l *gpiocdev.Line) {
	c.mu.Lock()
	c.lines = append(c.lines, l)
	c.mu.Unlock()
}

// Close releases every line and the chip.
// Lines are reconfigured to input with pull-down (matching Pi boot defaults)
// before closing so that nothing is left driven across a reboot.
func (c *RealChip) Close() error {
	c.mu.Lock()
	lines := c.lines
	c.lines = nil
	c.mu.Unlock()

	var errs []error
	for _, l := range lines {
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", l.Offset(), err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", l.Offset(), err))
		}
	}
	if err := c.chip.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close chip: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
