package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/sensor-node/internal/component"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string          `json:"event,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	Node          string          `json:"node"`
	NodeID        string          `json:"node_id"`
	Version       string          `json:"version"`
	Ready         bool            `json:"ready"`
	Healthy       bool            `json:"healthy"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	StartTime     string          `json:"start_time"`
	Timestamp     string          `json:"timestamp"`
	MQTT          MQTTStatus      `json:"mqtt"`
	Components    []ComponentJSON `json:"components"`
	Entities      []EntityJSON    `json:"entities,omitempty"`
	Network       *NetworkJSON    `json:"network,omitempty"`
	Config        ConfigJSON      `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ComponentJSON is the JSON representation of a component.
type ComponentJSON struct {
	Name           string `json:"name"`
	State          string `json:"state"`
	Warning        bool   `json:"warning,omitempty"`
	Error          bool   `json:"error,omitempty"`
	Reason         string `json:"reason,omitempty"`
	UpdateInterval string `json:"update_interval,omitempty"`
}

// EntityJSON is the JSON representation of an entity.
type EntityJSON struct {
	Domain   string `json:"domain"`
	ObjectID string `json:"object_id"`
	Name     string `json:"name"`
	State    string `json:"state"`
	Unit     string `json:"unit,omitempty"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	LoopMs      int64  `json:"loop_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	Prefix      string `json:"prefix"`
	HTTPAddr    string `json:"http_addr"`
	WSBroker    string `json:"ws_broker,omitempty"`
}

func buildInner(snap Snapshot, withEntities bool) StatusInner {
	comps := make([]ComponentJSON, 0, len(snap.Components))
	for _, c := range snap.Components {
		cj := ComponentJSON{
			Name:    c.Name,
			State:   c.State,
			Warning: c.Warning,
			Error:   c.Error,
			Reason:  c.Reason,
		}
		if c.Polling {
			cj.UpdateInterval = component.FormatInterval(c.UpdateInterval)
		}
		comps = append(comps, cj)
	}

	inner := StatusInner{
		Node:          snap.Config.Node,
		NodeID:        snap.Config.NodeID,
		Version:       snap.Config.Version,
		Ready:         snap.Ready(),
		Healthy:       snap.Healthy(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Components:    comps,
		Config: ConfigJSON{
			LoopMs:      snap.Config.LoopMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			Prefix:      snap.Config.Prefix,
			HTTPAddr:    snap.Config.HTTPAddr,
			WSBroker:    snap.Config.WSBroker,
		},
	}

	if withEntities {
		for _, e := range snap.Entities {
			state := e.State
			if !e.HasState {
				state = "UNKNOWN"
			}
			inner.Entities = append(inner.Entities, EntityJSON{
				Domain:   e.Domain,
				ObjectID: e.ObjectID,
				Name:     e.Name,
				State:    state,
				Unit:     e.Unit,
			})
		}
	}

	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap, true)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event. Entity
// states have their own topics and are left out.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap, false)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
