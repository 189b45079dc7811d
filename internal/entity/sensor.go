package entity

import (
	"math"
	"strconv"

	"github.com/sweeney/sensor-node/internal/filter"
)

// Sensor is a numeric entity. Raw values go to raw callbacks, then through
// the filter chain; whatever leaves the chain becomes the published state.
// NaN means the reading is unavailable.
type Sensor struct {
	State[float64]

	decimals int
	raw      float64
	rawCbs   []func(float64)
	chain    *filter.Chain[float64]
}

// NewSensor creates a sensor with two decimals of accuracy.
func NewSensor(name string, opts ...Option) *Sensor {
	s := &Sensor{decimals: 2, raw: math.NaN()}
	s.State = newState(newInfo(DomainSensor, name, opts), s.formatValue)
	s.value = math.NaN()
	return s
}

// SetAccuracyDecimals sets how many decimals StateString renders.
func (s *Sensor) SetAccuracyDecimals(n int) { s.decimals = n }

// AccuracyDecimals returns the rendering accuracy.
func (s *Sensor) AccuracyDecimals() int { return s.decimals }

// SetFilters replaces the filter chain. Call before the first publish.
func (s *Sensor) SetFilters(filters ...filter.Filter[float64]) {
	if len(filters) == 0 {
		s.chain = nil
		return
	}
	s.chain = filter.NewChain(s.State.PublishState, filters...)
}

// AddOnRawStateCallback subscribes to unfiltered values.
func (s *Sensor) AddOnRawStateCallback(fn func(float64)) {
	s.rawCbs = append(s.rawCbs, fn)
}

// RawValue returns the last unfiltered value.
func (s *Sensor) RawValue() float64 { return s.raw }

// PublishState feeds a raw reading through the filters.
func (s *Sensor) PublishState(v float64) {
	s.raw = v
	cbs := s.rawCbs
	for _, fn := range cbs {
		fn(v)
	}
	if s.chain == nil {
		s.State.PublishState(v)
		return
	}
	s.chain.Input(v)
}

// PublishInitialState is PublishState limited to the first state.
func (s *Sensor) PublishInitialState(v float64) bool {
	if !s.claimInitial() {
		return false
	}
	s.PublishState(v)
	return true
}

func (s *Sensor) formatValue(v float64) string {
	if math.IsNaN(v) {
		return "unavailable"
	}
	return strconv.FormatFloat(v, 'f', max(s.decimals, 0), 64)
}
