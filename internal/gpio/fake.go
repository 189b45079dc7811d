package gpio

import (
	"errors"
	"fmt"
	"sync"
)

// FakeLine is a test double usable as both input and output.
type FakeLine struct {
	mu sync.Mutex

	// Samples contains scripted levels returned by Read.
	// Each call to Read() consumes the next sample; the last one repeats.
	// With no samples, Read returns the current level.
	Samples []bool

	// index tracks current position in Samples
	index int

	level   bool
	handler EdgeHandler
	edges   bool

	// Writes records every level written.
	Writes []bool

	// Closed tracks if Close was called
	Closed bool

	// ReadError and WriteError, if set, are returned by Read and Write.
	ReadError  error
	WriteError error
}

// NewFakeLine creates a FakeLine with the given samples.
func NewFakeLine(samples ...bool) *FakeLine {
	return &FakeLine{Samples: samples, edges: true}
}

// Read returns the next scripted sample.
func (f *FakeLine) Read() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ReadError != nil {
		return false, f.ReadError
	}
	if len(f.Samples) == 0 {
		return f.level, nil
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample, nil
}

// Watch installs the edge handler.
func (f *FakeLine) Watch(h EdgeHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.edges {
		return ErrNoEdges
	}
	f.handler = h
	return nil
}

// Edge sets the level and calls the handler, as the event goroutine would.
func (f *FakeLine) Edge(level bool, micros uint32) {
	f.mu.Lock()
	f.level = level
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(level, micros)
	}
}

// SetLevel sets the level Read returns when no samples are scripted.
func (f *FakeLine) SetLevel(level bool) {
	f.mu.Lock()
	f.level = level
	f.mu.Unlock()
}

// Level returns the current level.
func (f *FakeLine) Level() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level
}

// Write records level.
func (f *FakeLine) Write(level bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteError != nil {
		return f.WriteError
	}
	f.level = level
	f.Writes = append(f.Writes, level)
	return nil
}

// Close marks the line as closed.
func (f *FakeLine) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Reset resets the line to the beginning of samples.
func (f *FakeLine) Reset() {
	f.mu.Lock()
	f.index = 0
	f.Closed = false
	f.mu.Unlock()
}

// FakeChip hands out FakeLines. Lines are created on first request and
// can be fetched with Line to drive them from a test.
type FakeChip struct {
	mu    sync.Mutex
	lines map[int]*FakeLine

	// Fail, if set, makes requests for these offsets fail.
	Fail map[int]error

	Closed bool
}

// NewFakeChip creates an empty FakeChip.
func NewFakeChip() *FakeChip {
	return &FakeChip{lines: make(map[int]*FakeLine), Fail: make(map[int]error)}
}

// Line returns the line at offset, creating it if needed.
func (c *FakeChip) Line(offset int) *FakeLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.lines[offset]
	if !ok {
		l = NewFakeLine()
		c.lines[offset] = l
	}
	return l
}

func (c *FakeChip) request(offset int) (*FakeLine, error) {
	c.mu.Lock()
	err := c.Fail[offset]
	c.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("request pin %d: %w", offset, err)
	}
	return c.Line(offset), nil
}

// Input returns the fake line at offset.
func (c *FakeChip) Input(offset int, cfg InputConfig) (EdgeInput, error) {
	l, err := c.request(offset)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.edges = cfg.Edges
	l.mu.Unlock()
	return l, nil
}

// Output returns the fake line at offset driven to cfg.Initial.
func (c *FakeChip) Output(offset int, cfg OutputConfig) (Output, error) {
	l, err := c.request(offset)
	if err != nil {
		return nil, err
	}
	l.SetLevel(cfg.Initial)
	return l, nil
}

// Close marks the chip closed.
func (c *FakeChip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Closed {
		return errors.New("gpio: chip already closed")
	}
	c.Closed = true
	return nil
}
