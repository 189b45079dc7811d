package filter

import "time"

// Invert flips binary values.
type Invert struct{}

func (Invert) New(v bool) (bool, bool) { return !v, true }

// DelayedOn holds back ON until the input has stayed ON for delay. OFF passes
// immediately and cancels a pending ON.
type DelayedOn struct {
	timed
	delay time.Duration
	emit  func(bool)
}

// NewDelayedOn returns a DelayedOn filter.
func NewDelayedOn(timers Timers, delay time.Duration) *DelayedOn {
	return &DelayedOn{timed: newTimed("delayed_on", timers), delay: delay}
}

func (f *DelayedOn) Attach(emit func(bool)) { f.emit = emit }

func (f *DelayedOn) New(v bool) (bool, bool) {
	if v {
		f.timers.SetTimeout(f, "ON", f.delay, func() { f.emit(true) })
		return v, false
	}
	f.timers.CancelTimeout(f, "ON")
	return false, true
}

// DelayedOff holds back OFF until the input has stayed OFF for delay.
type DelayedOff struct {
	timed
	delay time.Duration
	emit  func(bool)
}

// NewDelayedOff returns a DelayedOff filter.
func NewDelayedOff(timers Timers, delay time.Duration) *DelayedOff {
	return &DelayedOff{timed: newTimed("delayed_off", timers), delay: delay}
}

func (f *DelayedOff) Attach(emit func(bool)) { f.emit = emit }

func (f *DelayedOff) New(v bool) (bool, bool) {
	if !v {
		f.timers.SetTimeout(f, "OFF", f.delay, func() { f.emit(false) })
		return v, false
	}
	f.timers.CancelTimeout(f, "OFF")
	return true, true
}

// DelayedOnOff delays both transitions. A change back before the delay
// expires replaces the pending transition.
type DelayedOnOff struct {
	timed
	on, off time.Duration
	emit    func(bool)
}

// NewDelayedOnOff returns a DelayedOnOff filter.
func NewDelayedOnOff(timers Timers, on, off time.Duration) *DelayedOnOff {
	return &DelayedOnOff{timed: newTimed("delayed_on_off", timers), on: on, off: off}
}

func (f *DelayedOnOff) Attach(emit func(bool)) { f.emit = emit }

func (f *DelayedOnOff) New(v bool) (bool, bool) {
	d := f.off
	if v {
		d = f.on
	}
	f.timers.SetTimeout(f, "ON_OFF", d, func() { f.emit(v) })
	return v, false
}
