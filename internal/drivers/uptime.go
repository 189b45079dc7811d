package drivers

import (
	"time"

	"github.com/sweeney/sensor-node/internal/clock"
	"github.com/sweeney/sensor-node/internal/component"
	"github.com/sweeney/sensor-node/internal/entity"
	"github.com/sweeney/sensor-node/internal/logging"
)

// Uptime publishes the seconds since setup.
type Uptime struct {
	component.Base
	component.Polling

	clk    clock.Clock
	start  time.Time
	sensor *entity.Sensor
}

// NewUptime creates an uptime sensor named name.
func NewUptime(name string, interval time.Duration, clk clock.Clock) *Uptime {
	s := entity.NewSensor(name,
		entity.WithUnit("s"),
		entity.WithDeviceClass("duration"),
		entity.WithIcon("mdi:timer-outline"))
	s.SetAccuracyDecimals(0)
	return &Uptime{
		Base:    component.NewBase("uptime"),
		Polling: component.NewPolling(interval),
		clk:     clk,
		sensor:  s,
	}
}

// Sensor returns the published entity.
func (u *Uptime) Sensor() *entity.Sensor { return u.sensor }

func (u *Uptime) Setup() error {
	u.start = u.clk.Now()
	return nil
}

func (u *Uptime) Update() {
	u.sensor.PublishState(u.clk.Now().Sub(u.start).Truncate(time.Second).Seconds())
}

func (u *Uptime) DumpConfig(log *logging.Logger) {
	log.Info("uptime sensor", "entity", u.sensor.Info().Name, "update_interval", component.FormatInterval(u.UpdateInterval()))
}
