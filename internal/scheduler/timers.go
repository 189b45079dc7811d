package scheduler

import (
	"container/heap"
	"time"

	"github.com/sweeney/sensor-node/internal/component"
)

// RetryResult tells SetRetry whether to try again.
type RetryResult int

const (
	RetryDone RetryResult = iota
	RetryAgain
)

type timerKind uint8

const (
	kindTimeout timerKind = iota
	kindInterval
)

func (k timerKind) String() string {
	if k == kindInterval {
		return "interval"
	}
	return "timeout"
}

type timerItem struct {
	owner    component.Component
	name     string
	kind     timerKind
	interval time.Duration
	next     time.Time
	seq      uint64
	fn       func()
	removed  bool
}

// timerHeap is a min-heap on (next, seq): equal deadlines fire in the order
// they were scheduled.
type timerHeap []*timerItem

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if !h[i].next.Equal(h[j].next) {
		return h[i].next.Before(h[j].next)
	}
	return h[i].seq < h[j].seq
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x any)   { *h = append(*h, x.(*timerItem)) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// SetTimeout runs fn once after d. A non-empty name replaces any pending
// timeout with the same owner and name. A negative d only cancels.
func (s *Scheduler) SetTimeout(owner component.Component, name string, d time.Duration, fn func()) {
	if name != "" {
		s.cancel(owner, name, kindTimeout)
	}
	if d < 0 {
		return
	}
	s.schedule(owner, name, kindTimeout, d, 0, fn)
}

// CancelTimeout removes a pending timeout. It reports whether one existed.
func (s *Scheduler) CancelTimeout(owner component.Component, name string) bool {
	return s.cancel(owner, name, kindTimeout)
}

// SetInterval runs fn every d, first after d. Runs keep their phase: a late
// run does not shift later deadlines. A non-empty name replaces any interval
// with the same owner and name.
func (s *Scheduler) SetInterval(owner component.Component, name string, d time.Duration, fn func()) {
	if name != "" {
		s.cancel(owner, name, kindInterval)
	}
	if d < 0 {
		return
	}
	s.schedule(owner, name, kindInterval, d, d, fn)
}

// CancelInterval removes an interval. It reports whether one existed.
func (s *Scheduler) CancelInterval(owner component.Component, name string) bool {
	return s.cancel(owner, name, kindInterval)
}

// Defer runs fn in the timer phase of the current tick, or the next one when
// called from a timer callback.
func (s *Scheduler) Defer(owner component.Component, name string, fn func()) {
	s.SetTimeout(owner, name, 0, fn)
}

// CancelDefer removes a pending deferred call.
func (s *Scheduler) CancelDefer(owner component.Component, name string) bool {
	return s.CancelTimeout(owner, name)
}

func retryName(name string) string { return "retry$" + name }

// SetRetry calls fn after initial. While fn returns RetryAgain and attempts
// remain, it is called again with the wait multiplied by backoff each time.
func (s *Scheduler) SetRetry(owner component.Component, name string, initial time.Duration, maxAttempts int, fn func() RetryResult, backoff float64) {
	if name != "" {
		s.cancel(owner, retryName(name), kindTimeout)
	}
	if initial < 0 || maxAttempts <= 0 {
		return
	}
	if backoff <= 0 {
		backoff = 1
	}

	key := ""
	if name != "" {
		key = retryName(name)
	}
	remaining := maxAttempts
	wait := initial

	var attempt func()
	attempt = func() {
		if fn() == RetryDone {
			return
		}
		remaining--
		if remaining <= 0 {
			return
		}
		wait = time.Duration(float64(wait) * backoff)
		s.SetTimeout(owner, key, wait, attempt)
	}
	s.SetTimeout(owner, key, wait, attempt)
}

// CancelRetry stops a pending retry sequence.
func (s *Scheduler) CancelRetry(owner component.Component, name string) bool {
	return s.cancel(owner, retryName(name), kindTimeout)
}

// NextScheduleIn returns the time until the earliest pending timer.
func (s *Scheduler) NextScheduleIn() (time.Duration, bool) {
	var earliest time.Time
	found := false
	consider := func(it *timerItem) {
		if it.removed {
			return
		}
		if !found || it.next.Before(earliest) {
			earliest = it.next
			found = true
		}
	}
	for _, it := range s.timers {
		consider(it)
	}
	for _, it := range s.pending {
		consider(it)
	}
	if !found {
		return 0, false
	}
	d := earliest.Sub(s.clock.Now())
	if d < 0 {
		d = 0
	}
	return d, true
}

func (s *Scheduler) schedule(owner component.Component, name string, kind timerKind, d, interval time.Duration, fn func()) {
	s.seq++
	s.pending = append(s.pending, &timerItem{
		owner:    owner,
		name:     name,
		kind:     kind,
		interval: interval,
		next:     s.clock.Now().Add(d),
		seq:      s.seq,
		fn:       fn,
	})
}

func (s *Scheduler) cancel(owner component.Component, name string, kind timerKind) bool {
	if name == "" {
		return false
	}
	found := false
	mark := func(it *timerItem) {
		if it.owner == owner && it.name == name && it.kind == kind && !it.removed {
			it.removed = true
			found = true
		}
	}
	for _, it := range s.timers {
		mark(it)
	}
	for _, it := range s.pending {
		mark(it)
	}
	return found
}

func (s *Scheduler) flushPending() {
	for _, it := range s.pending {
		if !it.removed {
			heap.Push(&s.timers, it)
		}
	}
	s.pending = s.pending[:0]
}

// runTimers fires every timer due at now. Timers scheduled by callbacks are
// held back until the next call.
func (s *Scheduler) runTimers(now time.Time) {
	s.flushPending()

	for s.timers.Len() > 0 {
		it := s.timers[0]
		if it.removed {
			heap.Pop(&s.timers)
			continue
		}
		if it.next.After(now) {
			break
		}
		if it.owner != nil && it.owner.Status().IsFailed() {
			heap.Pop(&s.timers)
			continue
		}

		// The item stays at the top of the heap while it runs so a cancel from
		// inside the callback can still find and mark it. Callbacks only append
		// to pending, never to the heap.
		s.invoke(it.owner, it.kind.String()+" "+it.name, it.fn)
		heap.Pop(&s.timers)

		if it.removed || it.kind != kindInterval {
			continue
		}
		if it.interval > 0 {
			behind := now.Sub(it.next) / it.interval
			it.next = it.next.Add((behind + 1) * it.interval)
		} else {
			it.next = now
		}
		s.seq++
		it.seq = s.seq
		s.pending = append(s.pending, it)
	}

	s.flushPending()
}
