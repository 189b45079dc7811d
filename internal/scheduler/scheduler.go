// Package scheduler drives components on a single cooperative goroutine.
//
// Each Tick runs, in order: functions posted from other goroutines, Loop on
// every looping component in registration order, Update on every poller whose
// interval has elapsed, then due timers. Only Post and Wake may be called from
// other goroutines; everything else belongs to the scheduler goroutine.
package scheduler

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/sweeney/sensor-node/internal/clock"
	"github.com/sweeney/sensor-node/internal/component"
	"github.com/sweeney/sensor-node/internal/logging"
)

const (
	// DefaultLoopInterval is the target period between ticks.
	DefaultLoopInterval = 16 * time.Millisecond

	// DefaultBlockingThreshold is how long a hook may run before a warning.
	DefaultBlockingThreshold = 50 * time.Millisecond
)

type entry struct {
	c          component.Component
	priority   float64
	lastUpdate time.Time
	updated    bool
}

// Scheduler owns the component registry, the timer queue and the run loop.
type Scheduler struct {
	clock             clock.Clock
	log               *logging.Logger
	loopInterval      time.Duration
	blockingThreshold time.Duration

	entries   []*entry
	setupDone bool

	timers  timerHeap
	pending []*timerItem
	seq     uint64

	highFrequency int

	postMu sync.Mutex
	posted []func()
	wake   chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLoopInterval sets the target period between ticks.
func WithLoopInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.loopInterval = d }
}

// WithBlockingThreshold sets how long a hook may run before it is reported.
// Zero disables the check.
func WithBlockingThreshold(d time.Duration) Option {
	return func(s *Scheduler) { s.blockingThreshold = d }
}

// New creates a Scheduler.
func New(clk clock.Clock, log *logging.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:             clk,
		log:               log.Component("scheduler"),
		loopInterval:      DefaultLoopInterval,
		blockingThreshold: DefaultBlockingThreshold,
		wake:              make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds c with the given setup priority. A NaN priority asks the
// component (Prioritizer) and falls back to component.PriorityData.
// Registering after Setup is a programming error and panics.
func (s *Scheduler) Register(c component.Component, priority float64) {
	if s.setupDone {
		panic(fmt.Sprintf("scheduler: Register(%q) after Setup", c.Name()))
	}
	if math.IsNaN(priority) {
		priority = component.PriorityData
		if p, ok := c.(component.Prioritizer); ok {
			priority = p.SetupPriority()
		}
	}
	s.entries = append(s.entries, &entry{c: c, priority: priority})
}

// Add registers c with its own priority.
func (s *Scheduler) Add(c component.Component) {
	s.Register(c, math.NaN())
}

// setupOrder returns entries by descending priority, stable for ties.
func (s *Scheduler) setupOrder() []*entry {
	order := slices.Clone(s.entries)
	slices.SortStableFunc(order, func(a, b *entry) int {
		return cmp.Compare(b.priority, a.priority)
	})
	return order
}

// Setup calls Setup on every component once, in descending priority, then
// DumpConfig on every component including failed ones. Calling it again is a
// no-op.
func (s *Scheduler) Setup() {
	if s.setupDone {
		return
	}
	s.setupDone = true

	order := s.setupOrder()
	for _, e := range order {
		st := e.c.Status()
		st.SetState(component.StateSetup)
		if su, ok := e.c.(component.Setupper); ok {
			s.invoke(e.c, "setup", func() {
				if err := su.Setup(); err != nil {
					st.MarkFailed(err.Error())
				}
			})
		}
		if st.IsFailed() {
			s.log.Error("component setup failed", "name", e.c.Name(), "error", st.FailureReason())
			continue
		}
		st.SetState(component.StateLoop)
	}

	s.DumpConfig()
}

// DumpConfig logs the configuration of every component in setup order.
func (s *Scheduler) DumpConfig() {
	for _, e := range s.setupOrder() {
		if d, ok := e.c.(component.ConfigDumper); ok {
			s.invoke(e.c, "dump_config", func() {
				d.DumpConfig(s.log.Component(e.c.Name()))
			})
		}
		if st := e.c.Status(); st.IsFailed() {
			s.log.Error("component is marked as failed", "name", e.c.Name(), "reason", st.FailureReason())
		}
	}
}

// Tick runs one scheduler iteration.
func (s *Scheduler) Tick() {
	s.runPosted()

	for _, e := range s.entries {
		if e.c.Status().State() != component.StateLoop {
			continue
		}
		if l, ok := e.c.(component.Looper); ok {
			s.invoke(e.c, "loop", l.Loop)
		}
	}

	now := s.clock.Now()
	for _, e := range s.entries {
		if e.c.Status().State() != component.StateLoop {
			continue
		}
		p, ok := e.c.(component.Poller)
		if !ok {
			continue
		}
		interval := p.UpdateInterval()
		if interval < 0 {
			continue
		}
		if e.updated && now.Sub(e.lastUpdate) < interval {
			continue
		}
		e.updated = true
		e.lastUpdate = now
		s.invoke(e.c, "update", p.Update)
	}

	s.runTimers(s.clock.Now())
}

// Run performs Setup if needed and ticks until ctx is cancelled. It then calls
// OnShutdown on every component in reverse registration order and returns
// ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	s.Setup()
	s.log.Info("entering run loop", "components", len(s.entries), "loop_interval", s.loopInterval)

	for {
		start := s.clock.Now()
		s.Tick()
		if err := s.yield(ctx, start); err != nil {
			s.Shutdown()
			return err
		}
	}
}

// yield is the only suspension point of the run loop.
func (s *Scheduler) yield(ctx context.Context, start time.Time) error {
	var delay time.Duration
	if s.highFrequency == 0 {
		delay = s.loopInterval - s.clock.Now().Sub(start)
		if next, ok := s.NextScheduleIn(); ok && next < delay {
			delay = next
		}
	}

	if delay <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			runtime.Gosched()
			return nil
		}
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.wake:
	case <-t.C:
	}
	return nil
}

// Shutdown calls OnShutdown in reverse registration order.
func (s *Scheduler) Shutdown() {
	for i := len(s.entries) - 1; i >= 0; i-- {
		c := s.entries[i].c
		if sd, ok := c.(component.Shutdowner); ok {
			s.invoke(c, "shutdown", sd.OnShutdown)
		}
	}
}

// Post queues fn to run on the scheduler goroutine at the start of the next
// tick and wakes the run loop. Safe for concurrent use.
func (s *Scheduler) Post(fn func()) {
	s.postMu.Lock()
	s.posted = append(s.posted, fn)
	s.postMu.Unlock()
	s.Wake()
}

// Wake makes a sleeping run loop tick immediately. Safe for concurrent use.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) runPosted() {
	s.postMu.Lock()
	fns := s.posted
	s.posted = nil
	s.postMu.Unlock()

	for _, fn := range fns {
		s.invoke(nil, "posted", fn)
	}
}

// RequestHighFrequency disables sleeping between ticks until released.
func (s *Scheduler) RequestHighFrequency() { s.highFrequency++ }

// ReleaseHighFrequency drops one high frequency request.
func (s *Scheduler) ReleaseHighFrequency() {
	if s.highFrequency > 0 {
		s.highFrequency--
	}
}

// invoke runs a hook, converting panics into a failed status and reporting
// hooks that block the loop for too long.
func (s *Scheduler) invoke(c component.Component, hook string, fn func()) {
	name := "<none>"
	if c != nil {
		name = c.Name()
	}
	start := s.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("component panicked", "name", name, "hook", hook, "panic", r)
			if c != nil {
				c.Status().MarkFailed(fmt.Sprintf("panic in %s: %v", hook, r))
			}
		}
		if s.blockingThreshold > 0 {
			if elapsed := s.clock.Now().Sub(start); elapsed > s.blockingThreshold {
				s.log.Warn("component took a long time for an operation",
					"name", name, "hook", hook, "elapsed_ms", elapsed.Milliseconds())
			}
		}
	}()
	fn()
}

// ComponentInfo is a read-only view of one registered component.
type ComponentInfo struct {
	Name           string
	Priority       float64
	State          component.State
	Warning        bool
	Error          bool
	Reason         string
	UpdateInterval time.Duration
	Polling        bool
}

// Components returns the registered components in registration order.
func (s *Scheduler) Components() []ComponentInfo {
	out := make([]ComponentInfo, 0, len(s.entries))
	for _, e := range s.entries {
		st := e.c.Status()
		info := ComponentInfo{
			Name:     e.c.Name(),
			Priority: e.priority,
			State:    st.State(),
			Warning:  st.HasWarning(),
			Error:    st.HasError(),
			Reason:   st.FailureReason(),
		}
		if p, ok := e.c.(component.Poller); ok {
			info.Polling = true
			info.UpdateInterval = p.UpdateInterval()
		}
		out = append(out, info)
	}
	return out
}
