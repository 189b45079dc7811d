package drivers

import (
	"errors"
	"fmt"

	"github.com/sweeney/sensor-node/internal/component"
	"github.com/sweeney/sensor-node/internal/entity"
	"github.com/sweeney/sensor-node/internal/gpio"
	"github.com/sweeney/sensor-node/internal/logging"
)

// ErrNotReady is returned when a switch is written before its line is set up.
var ErrNotReady = errors.New("output line not set up")

// GPIOSwitch drives an output line from a switch entity.
type GPIOSwitch struct {
	component.Base

	chip gpio.Chip
	pin  int
	log  *logging.Logger

	line gpio.Output
	sw   *entity.Switch
}

// NewGPIOSwitch creates a switch entity on pin. The restore mode and
// preferences are applied to the entity.
func NewGPIOSwitch(chip gpio.Chip, pin int, name string, inverted bool, mode entity.RestoreMode, prefs entity.Preferences, log *logging.Logger) *GPIOSwitch {
	g := &GPIOSwitch{
		chip: chip,
		pin:  pin,
		log:  log.Component("gpio_switch"),
	}
	g.sw = entity.NewSwitch(name, g.write)
	g.sw.SetInverted(inverted)
	g.sw.SetRestoreMode(mode, prefs)
	g.Base = component.NewBase("gpio_switch." + g.sw.Info().ObjectID)
	return g
}

// Switch returns the controlled entity.
func (g *GPIOSwitch) Switch() *entity.Switch { return g.sw }

func (g *GPIOSwitch) SetupPriority() float64 { return component.PriorityHardware }

func (g *GPIOSwitch) write(level bool) error {
	if g.line == nil {
		return ErrNotReady
	}
	return g.line.Write(level)
}

// Setup requests the line already driven to the restored state, then
// publishes it. With restore mode disabled the line starts low and nothing
// is published until the first command.
func (g *GPIOSwitch) Setup() error {
	state, ok := g.sw.InitialState()
	initial := ok && state != g.sw.Inverted()

	line, err := g.chip.Output(g.pin, gpio.OutputConfig{Initial: initial})
	if err != nil {
		return fmt.Errorf("switch pin %d: %w", g.pin, err)
	}
	g.line = line

	if ok {
		g.sw.PublishState(state)
	}
	return nil
}

func (g *GPIOSwitch) OnShutdown() {
	if g.line != nil {
		g.line.Close()
	}
}

func (g *GPIOSwitch) DumpConfig(log *logging.Logger) {
	log.Info("gpio switch",
		"entity", g.sw.Info().Name,
		"pin", g.pin,
		"inverted", g.sw.Inverted(),
		"restore_mode", g.sw.RestoreMode())
}
