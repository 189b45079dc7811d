package mqtt

import "sync"

// Message is one published message recorded by FakePublisher.
type Message struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// FakePublisher records published messages for test assertions.
type FakePublisher struct {
	mu sync.Mutex

	// Messages contains every message that was published.
	Messages []Message

	// Subscriptions maps topics to their handlers.
	Subscriptions map[string]Handler

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// SubscribeError, if set, will be returned by Subscribe.
	SubscribeError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Subscriptions: make(map[string]Handler)}
}

// Publish records the message.
func (f *FakePublisher) Publish(topic string, qos byte, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Messages = append(f.Messages, Message{
		Topic:    topic,
		QoS:      qos,
		Retained: retained,
		Payload:  append([]byte(nil), payload...),
	})
	return nil
}

// Subscribe records the handler.
func (f *FakePublisher) Subscribe(topic string, qos byte, handler Handler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubscribeError != nil {
		return f.SubscribeError
	}
	f.Subscriptions[topic] = handler
	return nil
}

// Deliver calls the handler subscribed to topic, as the broker would. It
// reports whether a subscription existed.
func (f *FakePublisher) Deliver(topic string, payload []byte) bool {
	f.mu.Lock()
	h, ok := f.Subscriptions[topic]
	f.mu.Unlock()
	if !ok {
		return false
	}
	h(topic, payload)
	return true
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Published returns a copy of the recorded messages.
func (f *FakePublisher) Published() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.Messages))
	copy(out, f.Messages)
	return out
}

// OnTopic returns the payloads published to topic, in order.
func (f *FakePublisher) OnTopic(topic string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.Messages {
		if m.Topic == topic {
			out = append(out, string(m.Payload))
		}
	}
	return out
}

// Reset clears recorded messages.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Messages = nil
	f.Closed = false
	f.PublishError = nil
	f.SubscribeError = nil
	f.Connected = false
}
