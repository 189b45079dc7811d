package drivers

import (
	"fmt"
	"io"
	"time"

	"github.com/sweeney/sensor-node/internal/clock"
	"github.com/sweeney/sensor-node/internal/component"
	"github.com/sweeney/sensor-node/internal/config"
	"github.com/sweeney/sensor-node/internal/debounce"
	"github.com/sweeney/sensor-node/internal/edge"
	"github.com/sweeney/sensor-node/internal/entity"
	"github.com/sweeney/sensor-node/internal/filter"
	"github.com/sweeney/sensor-node/internal/gpio"
	"github.com/sweeney/sensor-node/internal/logging"
	"github.com/sweeney/sensor-node/internal/uart"
)

const (
	defaultUpdateInterval = 60 * time.Second
	defaultBaud           = 9600
)

// Env holds what drivers need from the process.
type Env struct {
	Chip   gpio.Chip
	Clock  clock.Clock
	Timers filter.Timers
	Prefs  entity.Preferences
	Log    *logging.Logger

	// OpenSerial opens a serial device. Nil means uart.OpenDevice.
	OpenSerial func(path string, baud int) (io.ReadCloser, error)
}

func (e Env) openSerial(path string, baud int) (io.ReadCloser, error) {
	if e.OpenSerial != nil {
		return e.OpenSerial(path, baud)
	}
	f, err := uart.OpenDevice(path, baud)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d == 0 {
		return def
	}
	return d
}

// Build creates the configured drivers and adds their entities to reg, in
// configuration order.
func Build(cfg config.ComponentsConfig, env Env, reg *entity.Registry) ([]component.Component, error) {
	var out []component.Component

	add := func(c component.Component, entities ...entity.Entity) error {
		for _, e := range entities {
			if err := reg.Add(e); err != nil {
				return err
			}
		}
		out = append(out, c)
		return nil
	}

	if cfg.Uptime != nil {
		name := cfg.Uptime.Name
		if name == "" {
			name = "Uptime"
		}
		u := NewUptime(name, orDefault(cfg.Uptime.UpdateInterval, defaultUpdateInterval), env.Clock)
		if err := add(u, u.Sensor()); err != nil {
			return nil, err
		}
	}

	if cfg.LogSelect {
		l := NewLogSelect(env.Log, env.Prefs)
		if err := add(l, l.Select()); err != nil {
			return nil, err
		}
	}

	for _, c := range cfg.DutyCycle {
		s := entity.NewSensor(c.Name, entity.WithUnit("%"), entity.WithIcon("mdi:percent"))
		s.SetAccuracyDecimals(1)
		if err := sensorFilters(s, c.Filters, env); err != nil {
			return nil, fmt.Errorf("duty cycle %s: %w", c.Name, err)
		}
		d := NewDutyCycle(env.Chip, c.Pin, c.ActiveLow, orDefault(c.UpdateInterval, defaultUpdateInterval), s, env.Clock, env.Log)
		if err := add(d, s); err != nil {
			return nil, err
		}
	}

	for _, c := range cfg.PulseCounter {
		rising, err := edge.ParseEdgeMode(c.RisingEdge, edge.EdgeIncrement)
		if err != nil {
			return nil, fmt.Errorf("pulse counter %s: %w", c.Name, err)
		}
		falling, err := edge.ParseEdgeMode(c.FallingEdge, edge.EdgeDisable)
		if err != nil {
			return nil, fmt.Errorf("pulse counter %s: %w", c.Name, err)
		}
		rate := entity.NewSensor(c.Name, entity.WithUnit("pulses/min"), entity.WithIcon("mdi:pulse"))
		if err := sensorFilters(rate, c.Filters, env); err != nil {
			return nil, fmt.Errorf("pulse counter %s: %w", c.Name, err)
		}
		entities := []entity.Entity{rate}
		var total *entity.Sensor
		if c.TotalName != "" {
			total = entity.NewSensor(c.TotalName, entity.WithUnit("pulses"), entity.WithIcon("mdi:pulse"))
			total.SetAccuracyDecimals(0)
			entities = append(entities, total)
		}
		counter := edge.NewCounter(rising, falling, c.MinPulseWidth)
		p := NewPulseCounter(env.Chip, c.Pin, counter, orDefault(c.UpdateInterval, defaultUpdateInterval), rate, total, env.Clock, env.Log)
		if err := add(p, entities...); err != nil {
			return nil, err
		}
	}

	for _, c := range cfg.Inputs {
		var opts []entity.Option
		if c.DeviceClass != "" {
			opts = append(opts, entity.WithDeviceClass(c.DeviceClass))
		}
		s := entity.NewBinarySensor(c.Name, opts...)
		if f := delayFilter(c, env.Timers); f != nil {
			s.SetFilters(f)
		}
		in := NewGPIOInput(env.Chip, c.Pin,
			gpio.InputConfig{ActiveLow: c.Inverted, PullUp: c.PullUp},
			debounce.New(c.Debounce), s, env.Clock, env.Log)
		if err := add(in, s); err != nil {
			return nil, err
		}
	}

	for _, c := range cfg.Switches {
		mode, err := entity.ParseRestoreMode(c.RestoreMode)
		if err != nil {
			return nil, fmt.Errorf("switch %s: %w", c.Name, err)
		}
		sw := NewGPIOSwitch(env.Chip, c.Pin, c.Name, c.Inverted, mode, env.Prefs, env.Log)
		if err := add(sw, sw.Switch()); err != nil {
			return nil, err
		}
	}

	for _, c := range cfg.Ultrasonic {
		checksum, err := ParseChecksum(c.Checksum)
		if err != nil {
			return nil, fmt.Errorf("ultrasonic %s: %w", c.Name, err)
		}
		s := entity.NewSensor(c.Name, entity.WithUnit("mm"), entity.WithDeviceClass("distance"), entity.WithIcon("mdi:arrow-expand-vertical"))
		s.SetAccuracyDecimals(0)
		if err := sensorFilters(s, c.Filters, env); err != nil {
			return nil, fmt.Errorf("ultrasonic %s: %w", c.Name, err)
		}
		device, baud := c.Device, c.Baud
		if baud == 0 {
			baud = defaultBaud
		}
		open := func() (uart.Port, error) {
			rc, err := env.openSerial(device, baud)
			if err != nil {
				return nil, err
			}
			return uart.NewPump(rc, uart.DefaultBufferSize), nil
		}
		u := NewUltrasonic(open, checksum, s, env.Log)
		if err := add(u, s); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func sensorFilters(s *entity.Sensor, cfgs []config.FilterConfig, env Env) error {
	filters, err := filter.Build(cfgs, env.Timers, env.Clock, s.AccuracyDecimals())
	if err != nil {
		return err
	}
	s.SetFilters(filters...)
	return nil
}

func delayFilter(c config.InputConfig, timers filter.Timers) filter.Filter[bool] {
	switch {
	case c.DelayedOn > 0 && c.DelayedOff > 0:
		return filter.NewDelayedOnOff(timers, c.DelayedOn, c.DelayedOff)
	case c.DelayedOn > 0:
		return filter.NewDelayedOn(timers, c.DelayedOn)
	case c.DelayedOff > 0:
		return filter.NewDelayedOff(timers, c.DelayedOff)
	}
	return nil
}
