package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/sensor-node/internal/logging"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Options configures a RealPublisher.
type Options struct {
	Broker   string
	ClientID string
	// Topics provides the availability topic used for the last will.
	Topics     Topics
	BufferSize int
}

type subscription struct {
	qos     byte
	handler Handler
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are kept in a ring buffer and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	topics Topics
	log    *logging.Logger

	mu   sync.Mutex
	buf  *ringBuffer
	subs map[string]subscription
}

// NewRealPublisher creates a publisher and starts connecting to the broker.
// A broker that is not reachable within the connect timeout is not an error:
// the client keeps retrying in the background and buffers until it connects.
func NewRealPublisher(opts Options, log *logging.Logger) (*RealPublisher, error) {
	p := &RealPublisher{
		topics: opts.Topics,
		log:    log.Component("mqtt"),
		buf:    newRingBuffer(opts.BufferSize),
		subs:   make(map[string]subscription),
	}

	clientOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(opts.Topics.Status(), PayloadOffline, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.log.Warn("connection lost", "error", err)
		})

	p.client = paho.NewClient(clientOpts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		p.log.Warn("broker not reachable yet, retrying in background", "broker", opts.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

// onConnect runs on every (re)connection: announce availability, restore
// subscriptions, then replay anything buffered while offline.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.log.Info("connected")
	c.Publish(p.topics.Status(), 1, true, PayloadOnline)

	p.mu.Lock()
	subs := make(map[string]subscription, len(p.subs))
	for t, s := range p.subs {
		subs[t] = s
	}
	pending := p.buf.drainAll()
	p.mu.Unlock()

	for topic, s := range subs {
		c.Subscribe(topic, s.qos, wrap(s.handler))
	}
	if len(pending) > 0 {
		p.log.Info("replaying buffered messages", "count", len(pending))
	}
	for _, m := range pending {
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}
}

func wrap(h Handler) paho.MessageHandler {
	return func(_ paho.Client, m paho.Message) {
		h(m.Topic(), m.Payload())
	}
}

// Publish sends payload to topic, or buffers it while disconnected.
func (p *RealPublisher) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		first := p.buf.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		capacity := p.buf.capacity
		p.mu.Unlock()
		if first {
			p.log.Warn("buffer full, dropping oldest", "capacity", capacity)
		}
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe registers handler for topic and subscribes now if connected.
func (p *RealPublisher) Subscribe(topic string, qos byte, handler Handler) error {
	p.mu.Lock()
	p.subs[topic] = subscription{qos: qos, handler: handler}
	p.mu.Unlock()

	if !p.client.IsConnectionOpen() {
		return nil
	}
	token := p.client.Subscribe(topic, qos, wrap(handler))
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("subscribe %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// IsConnected reports whether the connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Close marks the node offline and disconnects from the broker. A clean
// disconnect does not trigger the last will.
func (p *RealPublisher) Close() error {
	if p.client.IsConnectionOpen() {
		token := p.client.Publish(p.topics.Status(), 1, true, PayloadOffline)
		token.WaitTimeout(time.Second)
	}
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
