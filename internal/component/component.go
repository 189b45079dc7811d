// Package component defines the unit of work driven by the scheduler.
//
// A component is anything with a name and a Status. What the scheduler does
// with it depends on which capability interfaces it implements: Setupper,
// Looper, Poller, ConfigDumper, Prioritizer, Shutdowner. Components embed Base
// to get the name and status bookkeeping.
package component

import (
	"time"

	"github.com/sweeney/sensor-node/internal/logging"
)

// Setup priorities. Higher values run Setup earlier.
const (
	PriorityBus             = 1000.0 // communication buses
	PriorityIO              = 900.0  // GPIO expanders and pins
	PriorityHardware        = 800.0  // directly attached hardware
	PriorityData            = 600.0  // sensors reading hardware
	PriorityProcessor       = 400.0  // consumers of sensor data
	PriorityWiFi            = 250.0
	PriorityAfterWiFi       = 200.0
	PriorityAfterConnection = 100.0
	PriorityLate            = -100.0
)

// UpdateNever disables Update for a Poller.
const UpdateNever time.Duration = -1

// Component is the minimal contract every scheduled unit satisfies.
type Component interface {
	Name() string
	Status() *Status
}

// Setupper components are initialised once, before any Loop or Update.
// A non-nil error marks the component failed.
type Setupper interface {
	Setup() error
}

// Looper components run Loop on every scheduler tick.
type Looper interface {
	Loop()
}

// Poller components run Update whenever UpdateInterval has elapsed.
// An interval of 0 runs every tick; UpdateNever disables polling.
type Poller interface {
	Update()
	UpdateInterval() time.Duration
}

// ConfigDumper components log their configuration after setup.
type ConfigDumper interface {
	DumpConfig(log *logging.Logger)
}

// Prioritizer components choose their own setup priority.
type Prioritizer interface {
	SetupPriority() float64
}

// Shutdowner components release resources when the scheduler stops.
type Shutdowner interface {
	OnShutdown()
}

// Base implements Component. Embed it by value.
type Base struct {
	name   string
	status Status
}

// NewBase returns a Base with the given name.
func NewBase(name string) Base {
	return Base{name: name}
}

// Name returns the component name.
func (b *Base) Name() string { return b.name }

// Status returns the mutable status of the component.
func (b *Base) Status() *Status { return &b.status }

// Polling is embedded by components that poll on a fixed interval.
type Polling struct {
	interval time.Duration
}

// NewPolling returns a Polling with the given interval.
func NewPolling(interval time.Duration) Polling {
	return Polling{interval: interval}
}

// UpdateInterval returns the polling interval.
func (p *Polling) UpdateInterval() time.Duration { return p.interval }

// SetUpdateInterval changes the polling interval.
func (p *Polling) SetUpdateInterval(d time.Duration) { p.interval = d }

// FormatInterval renders an update interval for DumpConfig output.
func FormatInterval(d time.Duration) string {
	switch {
	case d == UpdateNever:
		return "never"
	case d == 0:
		return "every loop"
	default:
		return d.String()
	}
}
