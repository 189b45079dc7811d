// Package mqtt bridges node entities to an MQTT broker, with an abstraction
// for testing.
package mqtt

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sweeney/sensor-node/internal/entity"
)

// Availability payloads published on the status topic.
const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// System event names.
const (
	EventStartup     = "STARTUP"
	EventShutdown    = "SHUTDOWN"
	EventHeartbeat   = "HEARTBEAT"
	EventReconnected = "RECONNECTED"
)

// Topics builds the topic names under a node prefix.
type Topics struct {
	Prefix string
}

// Status is the availability topic. It carries the last will.
func (t Topics) Status() string { return t.Prefix + "/status" }

// System is the topic for lifecycle events.
func (t Topics) System() string { return t.Prefix + "/system" }

// State is the retained state topic of an entity.
func (t Topics) State(domain entity.Domain, objectID string) string {
	return t.Prefix + "/" + string(domain) + "/" + objectID + "/state"
}

// Command is the topic an entity listens on for commands.
func (t Topics) Command(domain entity.Domain, objectID string) string {
	return t.Prefix + "/" + string(domain) + "/" + objectID + "/command"
}

// ParseCommand splits a command topic into domain and object id.
func (t Topics) ParseCommand(topic string) (entity.Domain, string, bool) {
	rest, ok := strings.CutPrefix(topic, t.Prefix+"/")
	if !ok {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[2] != "command" || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return entity.Domain(parts[0]), parts[1], true
}

// Handler receives messages for a subscription. It runs on the client's
// goroutine, not the scheduler's.
type Handler func(topic string, payload []byte)

// Publisher talks to a broker.
type Publisher interface {
	// Publish sends payload to topic.
	// Returns error if publishing fails (should not crash the process).
	Publish(topic string, qos byte, retained bool, payload []byte) error

	// Subscribe registers handler for topic. Subscriptions survive reconnects.
	Subscribe(topic string, qos byte, handler Handler) error

	// IsConnected reports whether the connection is up.
	IsConnected() bool

	// Close disconnects from the broker.
	Close() error
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
