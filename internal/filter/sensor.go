package filter

import (
	"math"
	"slices"
	"time"

	"github.com/sweeney/sensor-node/internal/clock"
)

// Offset adds a constant.
type Offset float64

func (o Offset) New(v float64) (float64, bool) { return v + float64(o), true }

// Multiply scales by a constant.
type Multiply float64

func (m Multiply) New(v float64) (float64, bool) { return v * float64(m), true }

// CalibrateLinear maps v to v*Slope + Bias.
type CalibrateLinear struct {
	Slope, Bias float64
}

func (c CalibrateLinear) New(v float64) (float64, bool) { return v*c.Slope + c.Bias, true }

// Clamp limits values to [Min, Max]. NaN passes through.
type Clamp struct {
	Min, Max float64
}

func (c Clamp) New(v float64) (float64, bool) {
	if math.IsNaN(v) {
		return v, true
	}
	return math.Min(math.Max(v, c.Min), c.Max), true
}

// FilterOut drops one specific value, compared after rounding to the sensor's
// accuracy. A NaN target drops NaN readings.
type FilterOut struct {
	value    float64
	decimals int
}

// NewFilterOut drops readings equal to value at the given accuracy.
func NewFilterOut(value float64, decimals int) *FilterOut {
	return &FilterOut{value: value, decimals: decimals}
}

func (f *FilterOut) New(v float64) (float64, bool) {
	if math.IsNaN(f.value) {
		return v, !math.IsNaN(v)
	}
	mult := math.Pow(10, float64(f.decimals))
	return v, math.Round(f.value*mult) != math.Round(v*mult)
}

// Delta passes a value only when it differs from the last passed value by at
// least min. NaN is dropped.
type Delta struct {
	min  float64
	last float64
}

// NewDelta returns a Delta filter.
func NewDelta(min float64) *Delta {
	return &Delta{min: min, last: math.NaN()}
}

func (d *Delta) New(v float64) (float64, bool) {
	if math.IsNaN(v) {
		return v, false
	}
	if math.IsNaN(d.last) || math.Abs(v-d.last) >= d.min {
		d.last = v
		return v, true
	}
	return v, false
}

// Throttle passes at most one value per period.
type Throttle struct {
	clock  clock.Clock
	period time.Duration
	last   time.Time
	seen   bool
}

// NewThrottle returns a Throttle filter.
func NewThrottle(clk clock.Clock, period time.Duration) *Throttle {
	return &Throttle{clock: clk, period: period}
}

func (t *Throttle) New(v float64) (float64, bool) {
	now := t.clock.Now()
	if !t.seen || now.Sub(t.last) >= t.period {
		t.seen = true
		t.last = now
		return v, true
	}
	return v, false
}

// window is the shared state of the windowed statistics filters. NaN readings
// are not stored but still count towards sendEvery.
type window struct {
	size      int
	sendEvery int
	sendAt    int
	queue     []float64
}

func newWindow(size, sendEvery, sendFirstAt int) window {
	size = max(size, 1)
	sendEvery = max(sendEvery, 1)
	sendFirstAt = max(sendFirstAt, 1)
	return window{size: size, sendEvery: sendEvery, sendAt: sendEvery - sendFirstAt}
}

// push stores v and reports whether a result is due.
func (w *window) push(v float64) bool {
	if !math.IsNaN(v) {
		if len(w.queue) >= w.size {
			w.queue = w.queue[len(w.queue)-w.size+1:]
		}
		w.queue = append(w.queue, v)
	}
	w.sendAt++
	if w.sendAt >= w.sendEvery {
		w.sendAt = 0
		return true
	}
	return false
}

func (w *window) sorted() []float64 {
	s := slices.Clone(w.queue)
	slices.Sort(s)
	return s
}

// SlidingWindowAverage outputs the mean of the last window values.
type SlidingWindowAverage struct{ window }

// NewSlidingWindowAverage returns a moving average over size values, sent
// every sendEvery inputs, the first after sendFirstAt inputs.
func NewSlidingWindowAverage(size, sendEvery, sendFirstAt int) *SlidingWindowAverage {
	return &SlidingWindowAverage{newWindow(size, sendEvery, sendFirstAt)}
}

func (f *SlidingWindowAverage) New(v float64) (float64, bool) {
	if !f.push(v) {
		return 0, false
	}
	if len(f.queue) == 0 {
		return math.NaN(), true
	}
	var sum float64
	for _, q := range f.queue {
		sum += q
	}
	return sum / float64(len(f.queue)), true
}

// Median outputs the median of the last window values.
type Median struct{ window }

// NewMedian returns a median filter.
func NewMedian(size, sendEvery, sendFirstAt int) *Median {
	return &Median{newWindow(size, sendEvery, sendFirstAt)}
}

func (f *Median) New(v float64) (float64, bool) {
	if !f.push(v) {
		return 0, false
	}
	s := f.sorted()
	n := len(s)
	switch {
	case n == 0:
		return math.NaN(), true
	case n%2 == 1:
		return s[n/2], true
	default:
		return (s[n/2-1] + s[n/2]) / 2, true
	}
}

// Quantile outputs the q-th quantile (0..1] of the last window values.
type Quantile struct {
	window
	q float64
}

// NewQuantile returns a quantile filter.
func NewQuantile(size, sendEvery, sendFirstAt int, q float64) *Quantile {
	return &Quantile{window: newWindow(size, sendEvery, sendFirstAt), q: q}
}

func (f *Quantile) New(v float64) (float64, bool) {
	if !f.push(v) {
		return 0, false
	}
	s := f.sorted()
	if len(s) == 0 {
		return math.NaN(), true
	}
	pos := int(math.Ceil(float64(len(s))*f.q)) - 1
	pos = min(max(pos, 0), len(s)-1)
	return s[pos], true
}

// Min outputs the smallest of the last window values.
type Min struct{ window }

// NewMin returns a windowed minimum filter.
func NewMin(size, sendEvery, sendFirstAt int) *Min {
	return &Min{newWindow(size, sendEvery, sendFirstAt)}
}

func (f *Min) New(v float64) (float64, bool) {
	if !f.push(v) {
		return 0, false
	}
	if len(f.queue) == 0 {
		return math.NaN(), true
	}
	return slices.Min(f.queue), true
}

// Max outputs the largest of the last window values.
type Max struct{ window }

// NewMax returns a windowed maximum filter.
func NewMax(size, sendEvery, sendFirstAt int) *Max {
	return &Max{newWindow(size, sendEvery, sendFirstAt)}
}

func (f *Max) New(v float64) (float64, bool) {
	if !f.push(v) {
		return 0, false
	}
	if len(f.queue) == 0 {
		return math.NaN(), true
	}
	return slices.Max(f.queue), true
}

// ExponentialMovingAverage smooths with weight alpha for the newest value.
// The first non-NaN value seeds the average.
type ExponentialMovingAverage struct {
	alpha     float64
	sendEvery int
	sendAt    int
	acc       float64
	seeded    bool
}

// NewExponentialMovingAverage returns an EMA filter sending every sendEvery
// inputs, starting with the first.
func NewExponentialMovingAverage(alpha float64, sendEvery int) *ExponentialMovingAverage {
	sendEvery = max(sendEvery, 1)
	return &ExponentialMovingAverage{alpha: alpha, sendEvery: sendEvery, sendAt: sendEvery - 1, acc: math.NaN()}
}

func (f *ExponentialMovingAverage) New(v float64) (float64, bool) {
	if !math.IsNaN(v) {
		if !f.seeded {
			f.acc = v
			f.seeded = true
		} else {
			f.acc = f.alpha*v + (1-f.alpha)*f.acc
		}
	}
	f.sendAt++
	if f.sendAt >= f.sendEvery {
		f.sendAt = 0
		return f.acc, true
	}
	return 0, false
}

// Debounce outputs a value only after no new value arrived for period.
type Debounce struct {
	timed
	period time.Duration
	emit   func(float64)
}

// NewDebounce returns a debounce filter.
func NewDebounce(timers Timers, period time.Duration) *Debounce {
	return &Debounce{timed: newTimed("debounce", timers), period: period}
}

func (f *Debounce) Attach(emit func(float64)) { f.emit = emit }

func (f *Debounce) New(v float64) (float64, bool) {
	f.timers.SetTimeout(f, "debounce", f.period, func() { f.emit(v) })
	return v, false
}

// Heartbeat re-sends the most recent value every period, and only then.
type Heartbeat struct {
	timed
	period time.Duration
	last   float64
	has    bool
}

// NewHeartbeat returns a heartbeat filter.
func NewHeartbeat(timers Timers, period time.Duration) *Heartbeat {
	return &Heartbeat{timed: newTimed("heartbeat", timers), period: period}
}

func (f *Heartbeat) Attach(emit func(float64)) {
	f.timers.SetInterval(f, "heartbeat", f.period, func() {
		if f.has {
			emit(f.last)
		}
	})
}

func (f *Heartbeat) New(v float64) (float64, bool) {
	f.last = v
	f.has = true
	return v, false
}

// ThrottleAverage outputs the mean of the values received in each period, or
// NaN for a period without values.
type ThrottleAverage struct {
	timed
	period time.Duration
	sum    float64
	n      int
}

// NewThrottleAverage returns a throttle average filter.
func NewThrottleAverage(timers Timers, period time.Duration) *ThrottleAverage {
	return &ThrottleAverage{timed: newTimed("throttle_average", timers), period: period}
}

func (f *ThrottleAverage) Attach(emit func(float64)) {
	f.timers.SetInterval(f, "throttle_average", f.period, func() {
		if f.n == 0 {
			emit(math.NaN())
			return
		}
		emit(f.sum / float64(f.n))
		f.sum, f.n = 0, 0
	})
}

func (f *ThrottleAverage) New(v float64) (float64, bool) {
	if !math.IsNaN(v) {
		f.sum += v
		f.n++
	}
	return v, false
}
