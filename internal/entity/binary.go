package entity

import "github.com/sweeney/sensor-node/internal/filter"

// BinarySensor is an ON/OFF entity with an optional filter chain.
type BinarySensor struct {
	State[bool]
	chain *filter.Chain[bool]
}

// NewBinarySensor creates a binary sensor.
func NewBinarySensor(name string, opts ...Option) *BinarySensor {
	b := &BinarySensor{}
	b.State = newState(newInfo(DomainBinarySensor, name, opts), formatOnOff)
	return b
}

// SetFilters replaces the filter chain. Call before the first publish.
func (b *BinarySensor) SetFilters(filters ...filter.Filter[bool]) {
	if len(filters) == 0 {
		b.chain = nil
		return
	}
	b.chain = filter.NewChain(b.State.PublishState, filters...)
}

// PublishState feeds a raw level through the filters.
func (b *BinarySensor) PublishState(v bool) {
	if b.chain == nil {
		b.State.PublishState(v)
		return
	}
	b.chain.Input(v)
}

// PublishInitialState is PublishState limited to the first state.
func (b *BinarySensor) PublishInitialState(v bool) bool {
	if !b.claimInitial() {
		return false
	}
	b.PublishState(v)
	return true
}

func formatOnOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

// TextSensor is a string entity.
type TextSensor struct {
	State[string]
}

// NewTextSensor creates a text sensor.
func NewTextSensor(name string, opts ...Option) *TextSensor {
	t := &TextSensor{}
	t.State = newState(newInfo(DomainTextSensor, name, opts), func(v string) string { return v })
	return t
}
