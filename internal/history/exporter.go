package history

import (
	"math"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/sweeney/sensor-node/internal/clock"
	"github.com/sweeney/sensor-node/internal/component"
	"github.com/sweeney/sensor-node/internal/entity"
	"github.com/sweeney/sensor-node/internal/logging"
)

// Measurement is the InfluxDB measurement every state is written to.
const Measurement = "entity_state"

// Exporter writes one point per published sensor and binary sensor state.
// Unavailable (NaN) readings are skipped.
type Exporter struct {
	component.Base

	node string
	reg  *entity.Registry
	w    PointWriter
	clk  clock.Clock

	written int
	skipped int
}

// NewExporter creates an exporter tagging points with node.
func NewExporter(node string, reg *entity.Registry, w PointWriter, clk clock.Clock) *Exporter {
	return &Exporter{
		Base: component.NewBase("history"),
		node: node,
		reg:  reg,
		w:    w,
		clk:  clk,
	}
}

func (e *Exporter) SetupPriority() float64 { return component.PriorityAfterConnection }

func (e *Exporter) Setup() error {
	for _, ent := range e.reg.All() {
		info := ent.Info()
		if info.Internal {
			continue
		}
		switch s := ent.(type) {
		case *entity.Sensor:
			s.AddOnStateCallback(func(v float64) {
				if math.IsNaN(v) {
					e.skipped++
					return
				}
				e.write(info, v)
			})
		case *entity.BinarySensor:
			s.AddOnStateCallback(func(v bool) { e.write(info, v) })
		}
	}
	return nil
}

func (e *Exporter) write(info entity.Info, value any) {
	tags := map[string]string{
		"node":      e.node,
		"domain":    string(info.Domain),
		"object_id": info.ObjectID,
	}
	if info.Unit != "" {
		tags["unit"] = info.Unit
	}
	e.w.WritePoint(write.NewPoint(Measurement, tags, map[string]any{"value": value}, e.clk.Now()))
	e.written++
}

// Stats returns the number of written and skipped points.
func (e *Exporter) Stats() (written, skipped int) { return e.written, e.skipped }

func (e *Exporter) OnShutdown() { e.w.Flush() }

func (e *Exporter) DumpConfig(log *logging.Logger) {
	log.Info("history exporter", "measurement", Measurement, "node", e.node)
}
