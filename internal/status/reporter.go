package status

import (
	"time"

	"github.com/sweeney/sensor-node/internal/component"
	"github.com/sweeney/sensor-node/internal/entity"
	"github.com/sweeney/sensor-node/internal/logging"
	"github.com/sweeney/sensor-node/internal/scheduler"
)

// ComponentLister lists scheduled components.
type ComponentLister interface {
	Components() []scheduler.ComponentInfo
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Reporter copies component and entity state into a Tracker on every update.
type Reporter struct {
	component.Base
	component.Polling

	tracker *Tracker
	comps   ComponentLister
	reg     *entity.Registry
	conn    ConnectionStatus
	network func() *NetworkInfo
}

// NewReporter creates a reporter. conn and network may be nil.
func NewReporter(tracker *Tracker, comps ComponentLister, reg *entity.Registry, interval time.Duration, conn ConnectionStatus, network func() *NetworkInfo) *Reporter {
	return &Reporter{
		Base:    component.NewBase("status"),
		Polling: component.NewPolling(interval),
		tracker: tracker,
		comps:   comps,
		reg:     reg,
		conn:    conn,
		network: network,
	}
}

// SetupPriority runs the first report after every other component's setup.
func (r *Reporter) SetupPriority() float64 { return component.PriorityLate }

func (r *Reporter) Setup() error {
	r.Update()
	return nil
}

// Update refreshes the tracker.
func (r *Reporter) Update() {
	infos := r.comps.Components()
	comps := make([]ComponentStatus, 0, len(infos))
	for _, c := range infos {
		comps = append(comps, ComponentStatus{
			Name:           c.Name,
			State:          c.State.String(),
			Warning:        c.Warning,
			Error:          c.Error,
			Reason:         c.Reason,
			Polling:        c.Polling,
			UpdateInterval: c.UpdateInterval,
		})
	}

	all := r.reg.All()
	ents := make([]EntityStatus, 0, len(all))
	for _, e := range all {
		info := e.Info()
		ents = append(ents, EntityStatus{
			Domain:   string(info.Domain),
			ObjectID: info.ObjectID,
			Name:     info.Name,
			Unit:     info.Unit,
			State:    e.StateString(),
			HasState: e.HasState(),
			Internal: info.Internal,
		})
	}

	r.tracker.Update(comps, ents)
	if r.conn != nil {
		r.tracker.SetMQTTConnected(r.conn.IsConnected())
	}
	if r.network != nil {
		if n := r.network(); n != nil {
			r.tracker.SetNetwork(n)
		}
	}
}

func (r *Reporter) DumpConfig(log *logging.Logger) {
	log.Info("status reporter", "update_interval", component.FormatInterval(r.UpdateInterval()))
}
