// Package status provides a thread-safe status tracker for the sensor-node daemon.
// It is written from the scheduler goroutine and read by HTTP handlers.
package status

import (
	"slices"
	"sync"
	"time"

	"github.com/sweeney/sensor-node/internal/clock"
)

// NetworkInfo contains network state as reported by the host.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Node        string
	NodeID      string
	Version     string
	LoopMs      int64
	HeartbeatMs int64
	Broker      string
	Prefix      string
	HTTPAddr    string
	WSBroker    string // Websocket broker URL for browser MQTT (empty = disabled)
}

// ComponentStatus is one scheduled component.
type ComponentStatus struct {
	Name           string
	State          string
	Warning        bool
	Error          bool
	Reason         string
	Polling        bool
	UpdateInterval time.Duration
}

// EntityStatus is one entity and its rendered state.
type EntityStatus struct {
	Domain   string
	ObjectID string
	Name     string
	Unit     string
	State    string
	HasState bool
	Internal bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Components    []ComponentStatus
	Entities      []EntityStatus
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Ready reports whether every component has finished setup.
func (s Snapshot) Ready() bool {
	if len(s.Components) == 0 {
		return false
	}
	for _, c := range s.Components {
		if c.State != "LOOP" && c.State != "FAILED" {
			return false
		}
	}
	return true
}

// Healthy reports whether no component is failed or flagged with an error.
func (s Snapshot) Healthy() bool {
	for _, c := range s.Components {
		if c.State == "FAILED" || c.Error {
			return false
		}
	}
	return true
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	clk  clock.Clock
}

// NewTracker creates a Tracker started now and with the given config.
func NewTracker(clk clock.Clock, cfg Config) *Tracker {
	return &Tracker{
		clk: clk,
		snap: Snapshot{
			StartTime: clk.Now(),
			Config:    cfg,
		},
	}
}

// Update replaces the component and entity views.
// Called by the Reporter on the scheduler goroutine.
func (t *Tracker) Update(components []ComponentStatus, entities []EntityStatus) {
	t.mu.Lock()
	t.snap.Components = components
	t.snap.Entities = entities
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Components = slices.Clone(s.Components)
	s.Entities = slices.Clone(s.Entities)
	if s.Network != nil {
		n := *s.Network
		s.Network = &n
	}
	t.mu.RUnlock()
	s.Now = t.clk.Now()
	return s
}
