package entity

import (
	"fmt"
	"strings"
)

// RestoreMode decides a switch's state at startup.
type RestoreMode int

const (
	RestoreDefaultOff RestoreMode = iota
	RestoreDefaultOn
	AlwaysOff
	AlwaysOn
	RestoreInvertedDefaultOff
	RestoreInvertedDefaultOn
	// RestoreDisabled leaves the output untouched at startup.
	RestoreDisabled
)

var restoreModeNames = map[RestoreMode]string{
	RestoreDefaultOff:         "restore_default_off",
	RestoreDefaultOn:          "restore_default_on",
	AlwaysOff:                 "always_off",
	AlwaysOn:                  "always_on",
	RestoreInvertedDefaultOff: "restore_inverted_default_off",
	RestoreInvertedDefaultOn:  "restore_inverted_default_on",
	RestoreDisabled:           "disabled",
}

func (m RestoreMode) String() string {
	if s, ok := restoreModeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("RestoreMode(%d)", int(m))
}

// ParseRestoreMode accepts the names printed by String. Empty means
// restore_default_off.
func ParseRestoreMode(s string) (RestoreMode, error) {
	if s == "" {
		return RestoreDefaultOff, nil
	}
	for m, name := range restoreModeNames {
		if strings.EqualFold(name, s) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown restore mode %q", s)
}

func (m RestoreMode) persistent() bool {
	switch m {
	case RestoreDefaultOff, RestoreDefaultOn, RestoreInvertedDefaultOff, RestoreInvertedDefaultOn:
		return true
	}
	return false
}

func (m RestoreMode) defaultOn() bool {
	return m == RestoreDefaultOn || m == AlwaysOn || m == RestoreInvertedDefaultOn
}

func (m RestoreMode) inverted() bool {
	return m == RestoreInvertedDefaultOff || m == RestoreInvertedDefaultOn
}

// Switch is a controllable ON/OFF entity. The writer drives the hardware with
// the physical level; the published state is the logical one.
type Switch struct {
	State[bool]

	write    func(level bool) error
	inverted bool
	restore  RestoreMode
	prefs    Preferences
}

// NewSwitch creates a switch that drives write.
func NewSwitch(name string, write func(level bool) error, opts ...Option) *Switch {
	s := &Switch{write: write}
	s.State = newState(newInfo(DomainSwitch, name, opts), formatOnOff)
	return s
}

// SetInverted makes logical ON drive the output low.
func (s *Switch) SetInverted(inverted bool) { s.inverted = inverted }

// Inverted reports whether the output is inverted.
func (s *Switch) Inverted() bool { return s.inverted }

// SetRestoreMode sets the startup policy and the store it restores from.
// prefs may be nil, in which case persistent modes fall back to their default.
func (s *Switch) SetRestoreMode(m RestoreMode, prefs Preferences) {
	s.restore = m
	s.prefs = prefs
}

// RestoreMode returns the startup policy.
func (s *Switch) RestoreMode() RestoreMode { return s.restore }

func (s *Switch) prefKey() string { return "switch/" + s.info.ObjectID }

// InitialState returns the state to apply at startup. ok is false for
// RestoreDisabled.
func (s *Switch) InitialState() (state bool, ok bool) {
	if s.restore == RestoreDisabled {
		return false, false
	}
	state = s.restore.defaultOn()
	if s.restore.persistent() && s.prefs != nil {
		var saved bool
		if found, err := s.prefs.Load(s.prefKey(), &saved); err == nil && found {
			state = saved
			if s.restore.inverted() {
				state = !state
			}
		}
	}
	return state, true
}

// Write drives the output to the logical state and publishes it when the
// hardware accepted it.
func (s *Switch) Write(state bool) error {
	if err := s.write(state != s.inverted); err != nil {
		return fmt.Errorf("switch %s: %w", s.info.ObjectID, err)
	}
	s.PublishState(state)
	return nil
}

func (s *Switch) TurnOn() error  { return s.Write(true) }
func (s *Switch) TurnOff() error { return s.Write(false) }
func (s *Switch) Toggle() error  { return s.Write(!s.value) }

// PublishState publishes and, for persistent restore modes, remembers state.
func (s *Switch) PublishState(state bool) {
	s.State.PublishState(state)
	if s.restore.persistent() && s.prefs != nil {
		// Save errors surface through the preferences flusher.
		_ = s.prefs.Save(s.prefKey(), state)
	}
}

// Command applies a textual command: ON, OFF or TOGGLE.
func (s *Switch) Command(cmd string) error {
	switch strings.ToUpper(strings.TrimSpace(cmd)) {
	case "ON", "TRUE", "1":
		return s.TurnOn()
	case "OFF", "FALSE", "0":
		return s.TurnOff()
	case "TOGGLE":
		return s.Toggle()
	default:
		return fmt.Errorf("switch %s: unknown command %q", s.info.ObjectID, cmd)
	}
}
