package entity

import (
	"fmt"
	"slices"
)

// Select is an entity whose state is one of a fixed list of options.
type Select struct {
	State[string]

	options []string
	control func(option string) error
}

// NewSelect creates a select. control, if non-nil, is called before a
// commanded option is published and may reject it.
func NewSelect(name string, options []string, control func(option string) error, opts ...Option) *Select {
	s := &Select{options: slices.Clone(options), control: control}
	s.State = newState(newInfo(DomainSelect, name, opts), func(v string) string { return v })
	return s
}

// Options returns the allowed values.
func (s *Select) Options() []string { return slices.Clone(s.options) }

// Index returns the position of option.
func (s *Select) Index(option string) (int, bool) {
	i := slices.Index(s.options, option)
	return i, i >= 0
}

// ActiveIndex returns the position of the current state.
func (s *Select) ActiveIndex() (int, bool) {
	if !s.has {
		return -1, false
	}
	return s.Index(s.value)
}

// PublishState publishes option if it is one of the options.
func (s *Select) PublishState(option string) error {
	if _, ok := s.Index(option); !ok {
		return fmt.Errorf("select %s: %w: %q", s.info.ObjectID, ErrUnknownOption, option)
	}
	s.State.PublishState(option)
	return nil
}

// PublishInitialState is PublishState limited to the first state. Unknown
// options are ignored.
func (s *Select) PublishInitialState(option string) bool {
	if _, ok := s.Index(option); !ok {
		return false
	}
	return s.State.PublishInitialState(option)
}

// Command validates option, runs the control function and publishes.
func (s *Select) Command(option string) error {
	if _, ok := s.Index(option); !ok {
		return fmt.Errorf("select %s: %w: %q", s.info.ObjectID, ErrUnknownOption, option)
	}
	if s.control != nil {
		if err := s.control(option); err != nil {
			return fmt.Errorf("select %s: %w", s.info.ObjectID, err)
		}
	}
	return s.PublishState(option)
}
