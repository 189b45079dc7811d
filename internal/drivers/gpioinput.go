package drivers

import (
	"fmt"

	"github.com/sweeney/sensor-node/internal/clock"
	"github.com/sweeney/sensor-node/internal/component"
	"github.com/sweeney/sensor-node/internal/debounce"
	"github.com/sweeney/sensor-node/internal/entity"
	"github.com/sweeney/sensor-node/internal/gpio"
	"github.com/sweeney/sensor-node/internal/logging"
)

// GPIOInput samples an input line every loop and publishes the debounced
// level to a binary sensor.
type GPIOInput struct {
	component.Base

	chip gpio.Chip
	pin  int
	cfg  gpio.InputConfig
	clk  clock.Clock
	log  *logging.Logger

	line     gpio.Input
	detector *debounce.Detector
	sensor   *entity.BinarySensor
}

// NewGPIOInput creates a binary sensor on pin.
func NewGPIOInput(chip gpio.Chip, pin int, cfg gpio.InputConfig, detector *debounce.Detector, sensor *entity.BinarySensor, clk clock.Clock, log *logging.Logger) *GPIOInput {
	return &GPIOInput{
		Base:     component.NewBase("gpio_input." + sensor.Info().ObjectID),
		chip:     chip,
		pin:      pin,
		cfg:      cfg,
		clk:      clk,
		log:      log.Component("gpio_input"),
		detector: detector,
		sensor:   sensor,
	}
}

// Sensor returns the published entity.
func (g *GPIOInput) Sensor() *entity.BinarySensor { return g.sensor }

// SetupPriority is PriorityHardware: inputs are read directly from the pins.
func (g *GPIOInput) SetupPriority() float64 { return component.PriorityHardware }

func (g *GPIOInput) Setup() error {
	line, err := g.chip.Input(g.pin, g.cfg)
	if err != nil {
		return fmt.Errorf("input pin %d: %w", g.pin, err)
	}
	g.line = line
	return nil
}

func (g *GPIOInput) Loop() {
	level, err := g.line.Read()
	if err != nil {
		if !g.Status().HasWarning() {
			g.log.Warn("input read failed", "pin", g.pin, "error", err)
		}
		g.Status().SetWarning()
		return
	}
	if g.Status().HasWarning() {
		g.log.Info("input read recovered", "pin", g.pin)
		g.Status().ClearWarning()
	}

	switch g.detector.Process(level, g.clk.Now()) {
	case debounce.Baseline:
		g.log.Info("baseline established", "entity", g.sensor.Info().Name, "state", level)
		g.sensor.PublishInitialState(level)
	case debounce.Changed:
		g.log.Debug("input changed", "entity", g.sensor.Info().Name, "state", level)
		g.sensor.PublishState(level)
	}
}

func (g *GPIOInput) OnShutdown() {
	if g.line != nil {
		g.line.Close()
	}
}

func (g *GPIOInput) DumpConfig(log *logging.Logger) {
	log.Info("gpio binary sensor",
		"entity", g.sensor.Info().Name,
		"pin", g.pin,
		"inverted", g.cfg.ActiveLow,
		"pull_up", g.cfg.PullUp,
		"debounce", g.detector.Period())
}
