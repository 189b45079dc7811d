// Package drivers contains the components that bind hardware lines and
// serial ports to entities.
package drivers

import (
	"fmt"
	"time"

	"github.com/sweeney/sensor-node/internal/clock"
	"github.com/sweeney/sensor-node/internal/component"
	"github.com/sweeney/sensor-node/internal/edge"
	"github.com/sweeney/sensor-node/internal/entity"
	"github.com/sweeney/sensor-node/internal/gpio"
	"github.com/sweeney/sensor-node/internal/logging"
)

// DutyCycle publishes the share of each update interval an input line spent
// ON, in percent.
type DutyCycle struct {
	component.Base
	component.Polling

	chip      gpio.Chip
	pin       int
	activeLow bool
	clk       clock.Clock
	log       *logging.Logger

	line    gpio.EdgeInput
	store   edge.Store
	sampler *edge.Sampler
	sensor  *entity.Sensor
}

// NewDutyCycle creates a duty cycle sensor on pin.
func NewDutyCycle(chip gpio.Chip, pin int, activeLow bool, interval time.Duration, sensor *entity.Sensor, clk clock.Clock, log *logging.Logger) *DutyCycle {
	d := &DutyCycle{
		Base:      component.NewBase("duty_cycle." + sensor.Info().ObjectID),
		Polling:   component.NewPolling(interval),
		chip:      chip,
		pin:       pin,
		activeLow: activeLow,
		clk:       clk,
		log:       log.Component("duty_cycle"),
		sensor:    sensor,
	}
	d.sampler = edge.NewSampler(&d.store)
	return d
}

// Sensor returns the published entity.
func (d *DutyCycle) Sensor() *entity.Sensor { return d.sensor }

func (d *DutyCycle) Setup() error {
	line, err := d.chip.Input(d.pin, gpio.InputConfig{ActiveLow: d.activeLow, Edges: true})
	if err != nil {
		return fmt.Errorf("duty cycle pin %d: %w", d.pin, err)
	}
	level, err := line.Read()
	if err != nil {
		line.Close()
		return fmt.Errorf("duty cycle pin %d: reading initial level: %w", d.pin, err)
	}
	d.store.Init(level, d.clk.Micros())
	if err := line.Watch(d.store.HandleEdge); err != nil {
		line.Close()
		return fmt.Errorf("duty cycle pin %d: %w", d.pin, err)
	}
	d.line = line
	return nil
}

// Update closes the current window. The first window after setup only
// establishes the baseline.
func (d *DutyCycle) Update() {
	w, ok := d.sampler.Sample(d.clk.Micros())
	if !ok {
		return
	}
	d.log.Debug("duty cycle window", "on", w.OnDuration(), "total_us", w.Total, "duty", w.Duty())
	d.sensor.PublishState(w.Duty())
}

func (d *DutyCycle) OnShutdown() {
	if d.line != nil {
		d.line.Close()
	}
}

func (d *DutyCycle) DumpConfig(log *logging.Logger) {
	log.Info("duty cycle sensor",
		"entity", d.sensor.Info().Name,
		"pin", d.pin,
		"active_low", d.activeLow,
		"update_interval", component.FormatInterval(d.UpdateInterval()))
}
