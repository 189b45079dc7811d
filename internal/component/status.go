package component

// State is the lifecycle position of a component.
type State uint8

const (
	StateConstruction State = iota
	StateSetup
	StateLoop
	StateFailed
)

// String returns the state name used in logs and status output.
func (s State) String() string {
	switch s {
	case StateConstruction:
		return "CONSTRUCTION"
	case StateSetup:
		return "SETUP"
	case StateLoop:
		return "LOOP"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Status holds the lifecycle state and health flags of a component.
// It is only touched from the scheduler goroutine.
type Status struct {
	state   State
	warning bool
	err     bool
	reason  string
}

// State returns the lifecycle state.
func (s *Status) State() State { return s.state }

// SetState moves the component to a new lifecycle state. Failed is terminal.
func (s *Status) SetState(st State) {
	if s.state == StateFailed {
		return
	}
	s.state = st
}

// MarkFailed permanently disables the component. The reason is kept for
// DumpConfig and status output.
func (s *Status) MarkFailed(reason string) {
	s.state = StateFailed
	s.err = true
	if s.reason == "" {
		s.reason = reason
	}
}

// IsFailed reports whether the component has been marked failed.
func (s *Status) IsFailed() bool { return s.state == StateFailed }

// FailureReason returns the reason passed to the first MarkFailed call.
func (s *Status) FailureReason() string { return s.reason }

// SetWarning flags a transient problem, e.g. a bad read.
func (s *Status) SetWarning() { s.warning = true }

// ClearWarning clears the warning flag after a successful cycle.
func (s *Status) ClearWarning() { s.warning = false }

// HasWarning reports whether the warning flag is set.
func (s *Status) HasWarning() bool { return s.warning }

// SetError flags a persistent problem without disabling the component.
func (s *Status) SetError() { s.err = true }

// ClearError clears the error flag. A failed component keeps it.
func (s *Status) ClearError() {
	if s.state != StateFailed {
		s.err = false
	}
}

// HasError reports whether the error flag is set.
func (s *Status) HasError() bool { return s.err }
