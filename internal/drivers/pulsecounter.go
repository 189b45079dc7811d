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

// PulseCounter publishes the pulse rate of an input line in pulses per
// minute, and optionally the running total.
type PulseCounter struct {
	component.Base
	component.Polling

	chip gpio.Chip
	pin  int
	clk  clock.Clock
	log  *logging.Logger

	line    gpio.EdgeInput
	counter *edge.Counter
	rate    *entity.Sensor
	total   *entity.Sensor

	lastUpdate time.Time
	sum        int64
}

// NewPulseCounter creates a pulse counter on pin. total may be nil.
func NewPulseCounter(chip gpio.Chip, pin int, counter *edge.Counter, interval time.Duration, rate, total *entity.Sensor, clk clock.Clock, log *logging.Logger) *PulseCounter {
	return &PulseCounter{
		Base:    component.NewBase("pulse_counter." + rate.Info().ObjectID),
		Polling: component.NewPolling(interval),
		chip:    chip,
		pin:     pin,
		clk:     clk,
		log:     log.Component("pulse_counter"),
		counter: counter,
		rate:    rate,
		total:   total,
	}
}

func (p *PulseCounter) Setup() error {
	line, err := p.chip.Input(p.pin, gpio.InputConfig{Edges: true})
	if err != nil {
		return fmt.Errorf("pulse counter pin %d: %w", p.pin, err)
	}
	if err := line.Watch(p.counter.HandleEdge); err != nil {
		line.Close()
		return fmt.Errorf("pulse counter pin %d: %w", p.pin, err)
	}
	p.line = line
	return nil
}

// Update publishes the rate over the time since the previous update. The
// first update has no previous update and only feeds the total.
func (p *PulseCounter) Update() {
	delta := p.counter.ReadDelta()
	now := p.clk.Now()

	if !p.lastUpdate.IsZero() {
		if elapsed := now.Sub(p.lastUpdate); elapsed > 0 {
			p.rate.PublishState(float64(delta) * float64(time.Minute) / float64(elapsed))
		}
	}
	if p.total != nil {
		p.sum += int64(delta)
		p.total.PublishState(float64(p.sum))
	}
	p.lastUpdate = now
}

// SetTotal sets the running total, for example after restoring it.
func (p *PulseCounter) SetTotal(n int64) {
	p.sum = n
	if p.total != nil {
		p.total.PublishState(float64(n))
	}
}

func (p *PulseCounter) OnShutdown() {
	if p.line != nil {
		p.line.Close()
	}
}

func (p *PulseCounter) DumpConfig(log *logging.Logger) {
	rising, falling := p.counter.Modes()
	args := []any{
		"entity", p.rate.Info().Name,
		"pin", p.pin,
		"rising_edge", rising,
		"falling_edge", falling,
		"update_interval", component.FormatInterval(p.UpdateInterval()),
	}
	if p.total != nil {
		args = append(args, "total", p.total.Info().Name)
	}
	log.Info("pulse counter", args...)
}
