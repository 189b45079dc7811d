// Package edge hands edge timing from a GPIO event goroutine to the
// scheduler goroutine without locks.
//
// Each store has exactly one producer, the line's event handler, and one
// consumer, the owning component's Update. Every shared field is a single
// atomic word. Fields are not updated together, so a consumer may observe a
// store in the middle of an edge; the error is bounded by one edge and
// corrected in the following window.
package edge

import (
	"sync/atomic"
	"time"
)

// Store accumulates the time a line spent ON.
type Store struct {
	lastLevel     atomic.Bool
	lastInterrupt atomic.Uint32 // µs, wraps
	onTime        atomic.Uint32 // µs of closed ON intervals since the last take
}

// Init records the level before edges are attached.
func (s *Store) Init(level bool, now uint32) {
	s.lastLevel.Store(level)
	s.lastInterrupt.Store(now)
	s.onTime.Store(0)
}

// HandleEdge is the producer side. Repeated levels are ignored. A falling
// edge adds the length of the ON interval it closes.
func (s *Store) HandleEdge(level bool, now uint32) {
	if level == s.lastLevel.Load() {
		return
	}
	if !level {
		s.onTime.Add(now - s.lastInterrupt.Load())
	}
	// Timestamp before level: a reader racing this edge sees an open
	// interval that is too short rather than one that is too long.
	s.lastInterrupt.Store(now)
	s.lastLevel.Store(level)
}

// Level returns the last recorded level.
func (s *Store) Level() bool { return s.lastLevel.Load() }

// LastInterrupt returns the time of the last recorded edge.
func (s *Store) LastInterrupt() uint32 { return s.lastInterrupt.Load() }

// TakeOnTime returns the closed ON time and resets it.
func (s *Store) TakeOnTime() uint32 { return s.onTime.Swap(0) }

// Window is the result of one sampling period.
type Window struct {
	OnTime uint32 // µs
	Total  uint32 // µs
}

// Duty returns the ON share of the window in percent.
func (w Window) Duty() float64 {
	if w.Total == 0 {
		return 0
	}
	return float64(w.OnTime) / float64(w.Total) * 100
}

// OnDuration returns OnTime as a Duration.
func (w Window) OnDuration() time.Duration { return time.Duration(w.OnTime) * time.Microsecond }

// Sampler is the consumer side of a Store.
type Sampler struct {
	store   *Store
	last    uint32
	started bool
	// carried is the part of the ON interval that was still open at the
	// previous sample and has already been reported.
	carried uint32
}

// NewSampler returns a sampler reading store.
func NewSampler(store *Store) *Sampler {
	return &Sampler{store: store}
}

// Sample closes the window ending at now. The first call only records the
// baseline and returns ok=false.
func (s *Sampler) Sample(now uint32) (w Window, ok bool) {
	closed := s.store.TakeOnTime()
	var open uint32
	if s.store.Level() {
		open = now - s.store.LastInterrupt()
	}

	if !s.started {
		s.started = true
		s.last = now
		s.carried = open
		return Window{}, false
	}

	total := now - s.last
	on := int64(closed) + int64(open) - int64(s.carried)
	on = min(max(on, 0), int64(total))

	s.last = now
	s.carried = open
	return Window{OnTime: uint32(on), Total: total}, true
}

// Reset forgets the baseline; the next Sample starts a new one.
func (s *Sampler) Reset() {
	s.started = false
	s.carried = 0
}
