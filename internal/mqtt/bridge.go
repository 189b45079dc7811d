package mqtt

import (
	"fmt"

	"github.com/sweeney/sensor-node/internal/component"
	"github.com/sweeney/sensor-node/internal/entity"
	"github.com/sweeney/sensor-node/internal/logging"
)

// Poster hands a function to the scheduler goroutine.
type Poster interface {
	Post(fn func())
}

// Bridge mirrors entity states to MQTT and routes commands back to the
// entities that accept them.
type Bridge struct {
	component.Base

	pub    Publisher
	topics Topics
	qos    byte
	reg    *entity.Registry
	post   Poster
	log    *logging.Logger

	published int
	failed    int
	commands  int
}

// NewBridge creates a bridge for every non-internal entity in reg.
func NewBridge(pub Publisher, topics Topics, qos byte, reg *entity.Registry, post Poster, log *logging.Logger) *Bridge {
	return &Bridge{
		Base:   component.NewBase("mqtt"),
		pub:    pub,
		topics: topics,
		qos:    qos,
		reg:    reg,
		post:   post,
		log:    log.Component("mqtt"),
	}
}

// SetupPriority runs after drivers have published their initial states.
func (b *Bridge) SetupPriority() float64 { return component.PriorityAfterConnection }

func (b *Bridge) Setup() error {
	for _, e := range b.reg.All() {
		info := e.Info()
		if info.Internal {
			continue
		}
		e.Watch(b.publishState)
		if e.HasState() {
			b.publishState(info, e.StateString())
		}

		cmd, ok := e.(entity.Commander)
		if !ok {
			continue
		}
		topic := b.topics.Command(info.Domain, info.ObjectID)
		if err := b.pub.Subscribe(topic, b.qos, b.commandHandler(cmd)); err != nil {
			return fmt.Errorf("subscribe %s: %w", info.ObjectID, err)
		}
	}
	return nil
}

func (b *Bridge) publishState(info entity.Info, state string) {
	topic := b.topics.State(info.Domain, info.ObjectID)
	if err := b.pub.Publish(topic, b.qos, true, []byte(state)); err != nil {
		b.failed++
		if !b.Status().HasWarning() {
			b.log.Warn("publish failed", "topic", topic, "error", err)
		}
		b.Status().SetWarning()
		return
	}
	b.published++
	b.Status().ClearWarning()
}

// commandHandler returns a handler that runs on the client goroutine and
// applies the command on the scheduler goroutine.
func (b *Bridge) commandHandler(cmd entity.Commander) Handler {
	return func(topic string, payload []byte) {
		value := string(payload)
		b.post.Post(func() {
			b.commands++
			if err := cmd.Command(value); err != nil {
				b.log.Warn("command rejected", "topic", topic, "command", value, "error", err)
				return
			}
			b.log.Debug("command applied", "topic", topic, "command", value)
		})
	}
}

// PublishSystem sends a lifecycle event to the system topic.
func (b *Bridge) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events
	if err := b.pub.Publish(b.topics.System(), 1, event.Retained, payload); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// IsConnected reports the publisher's connection state.
func (b *Bridge) IsConnected() bool { return b.pub.IsConnected() }

// Stats returns the number of published and failed state messages and the
// number of commands received.
func (b *Bridge) Stats() (published, failed, commands int) {
	return b.published, b.failed, b.commands
}

func (b *Bridge) DumpConfig(log *logging.Logger) {
	log.Info("mqtt bridge",
		"prefix", b.topics.Prefix,
		"qos", b.qos,
		"availability", b.topics.Status(),
	)
}
