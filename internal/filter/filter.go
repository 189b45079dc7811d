// Package filter implements value filters that sit between a driver's raw
// readings and the published entity state.
//
// A Filter sees every value synchronously and either passes a (possibly
// transformed) value on or drops it. Filters that produce values later, from
// a scheduler timer, also implement Emitter; the Chain hands them a function
// that feeds the rest of the chain.
package filter

import (
	"time"

	"github.com/sweeney/sensor-node/internal/component"
)

// Filter transforms one value. ok=false drops the value.
type Filter[T any] interface {
	New(v T) (out T, ok bool)
}

// Emitter is implemented by filters that output values outside of New.
type Emitter[T any] interface {
	Attach(emit func(T))
}

// Timers is the part of the scheduler that timed filters need.
type Timers interface {
	SetTimeout(owner component.Component, name string, d time.Duration, fn func())
	CancelTimeout(owner component.Component, name string) bool
	SetInterval(owner component.Component, name string, d time.Duration, fn func())
}

// Chain feeds values through filters in order and calls out with every value
// that reaches the end.
type Chain[T any] struct {
	filters []Filter[T]
	out     func(T)
}

// NewChain builds a chain and attaches every Emitter to the filters after it.
func NewChain[T any](out func(T), filters ...Filter[T]) *Chain[T] {
	c := &Chain[T]{filters: filters, out: out}
	for i, f := range filters {
		if e, ok := f.(Emitter[T]); ok {
			next := i + 1
			e.Attach(func(v T) { c.from(next, v) })
		}
	}
	return c
}

// Input runs v through the whole chain.
func (c *Chain[T]) Input(v T) { c.from(0, v) }

// Len returns the number of filters.
func (c *Chain[T]) Len() int { return len(c.filters) }

func (c *Chain[T]) from(i int, v T) {
	for ; i < len(c.filters); i++ {
		var ok bool
		if v, ok = c.filters[i].New(v); !ok {
			return
		}
	}
	c.out(v)
}

// LambdaFilter wraps a function.
type LambdaFilter[T any] struct {
	fn func(T) (T, bool)
}

// Lambda returns a filter calling fn for every value.
func Lambda[T any](fn func(T) (T, bool)) *LambdaFilter[T] {
	return &LambdaFilter[T]{fn: fn}
}

func (f *LambdaFilter[T]) New(v T) (T, bool) { return f.fn(v) }

// timed is embedded by filters that own scheduler timers. Each filter is its
// own timer owner, so timer names only need to be unique within the filter.
type timed struct {
	component.Base
	timers Timers
}

func newTimed(name string, timers Timers) timed {
	return timed{Base: component.NewBase("filter." + name), timers: timers}
}
