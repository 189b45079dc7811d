// Package entity implements typed state holders that components publish to.
//
// Every entity keeps its current value and an ordered list of callbacks.
// Publishing stores the value and calls every callback synchronously, in the
// order they were added, before returning. Entities belong to the scheduler
// goroutine and are not safe for concurrent use; other goroutines reach them
// through scheduler.Post.
package entity

import (
	"errors"
	"strings"
)

// Domain groups entities by kind. It is part of every MQTT topic.
type Domain string

const (
	DomainSensor       Domain = "sensor"
	DomainBinarySensor Domain = "binary_sensor"
	DomainTextSensor   Domain = "text_sensor"
	DomainSwitch       Domain = "switch"
	DomainSelect       Domain = "select"
)

var (
	ErrDuplicateEntity = errors.New("duplicate entity")
	ErrUnknownOption   = errors.New("unknown option")
)

// Info is the static description of an entity.
type Info struct {
	Name        string
	ObjectID    string
	Domain      Domain
	Unit        string
	DeviceClass string
	Icon        string
	// Internal entities are not exported over MQTT or to history.
	Internal    bool
}

// Option adjusts an Info at construction.
type Option func(*Info)

func WithUnit(unit string) Option         { return func(i *Info) { i.Unit = unit } }
func WithDeviceClass(class string) Option { return func(i *Info) { i.DeviceClass = class } }
func WithIcon(icon string) Option         { return func(i *Info) { i.Icon = icon } }
func WithObjectID(id string) Option       { return func(i *Info) { i.ObjectID = id } }
func Internal() Option                    { return func(i *Info) { i.Internal = true } }

func newInfo(domain Domain, name string, opts []Option) Info {
	info := Info{Name: name, ObjectID: ObjectID(name), Domain: domain}
	for _, opt := range opts {
		opt(&info)
	}
	return info
}

// ObjectID derives a topic-safe id from a display name: lower case, spaces
// become underscores, anything outside [a-z0-9_-] is dropped.
func ObjectID(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Entity is the type-erased view used by exporters and the status page.
type Entity interface {
	Info() Info
	HasState() bool
	// StateString renders the current state the way it is published.
	StateString() string
	// Watch registers fn for every published state, rendered as a string.
	Watch(fn func(info Info, state string))
}

// Preferences persists small values across restarts.
type Preferences interface {
	Load(key string, v any) (bool, error)
	Save(key string, v any) error
}
