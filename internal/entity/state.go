package entity

// State holds a typed value and its subscribers. Typed entities embed it.
type State[T any] struct {
	info    Info
	format  func(T) string
	value   T
	has     bool
	initial bool

	callbacks []func(T)

	// Re-entrant publishes from a callback wait here until the running
	// broadcast finishes.
	dispatching bool
	queued      []T
}

func newState[T any](info Info, format func(T) string) State[T] {
	return State[T]{info: info, format: format}
}

// Info returns the entity description.
func (s *State[T]) Info() Info { return s.info }

// HasState reports whether a state was ever published.
func (s *State[T]) HasState() bool { return s.has }

// Value returns the current state. It is the zero value before HasState.
func (s *State[T]) Value() T { return s.value }

// StateString renders the current state.
func (s *State[T]) StateString() string { return s.format(s.value) }

// AddOnStateCallback appends fn to the subscribers. It is not called for the
// current state.
func (s *State[T]) AddOnStateCallback(fn func(T)) {
	s.callbacks = append(s.callbacks, fn)
}

// Watch subscribes with a type-erased callback.
func (s *State[T]) Watch(fn func(Info, string)) {
	s.AddOnStateCallback(func(v T) { fn(s.info, s.format(v)) })
}

// PublishState stores v and notifies every subscriber once, in subscription
// order, before returning. Identical values are published again.
//
// A callback that publishes to the same entity does not recurse: its value is
// broadcast after the current broadcast completes, still before the outer
// PublishState returns.
func (s *State[T]) PublishState(v T) {
	if s.dispatching {
		s.queued = append(s.queued, v)
		return
	}

	s.dispatching = true
	defer func() {
		s.dispatching = false
		s.queued = nil
	}()

	s.broadcast(v)
	for len(s.queued) > 0 {
		next := s.queued[0]
		s.queued = s.queued[1:]
		s.broadcast(next)
	}
}

// broadcast calls a snapshot of the subscribers, so callbacks added during
// the broadcast only see later states.
func (s *State[T]) broadcast(v T) {
	s.value = v
	s.has = true
	callbacks := s.callbacks
	for _, fn := range callbacks {
		fn(v)
	}
}

// PublishInitialState publishes v only if this entity never had a state and
// never had an initial state. It reports whether v was published.
func (s *State[T]) PublishInitialState(v T) bool {
	if !s.claimInitial() {
		return false
	}
	s.PublishState(v)
	return true
}

func (s *State[T]) claimInitial() bool {
	if s.has || s.initial {
		return false
	}
	s.initial = true
	return true
}
