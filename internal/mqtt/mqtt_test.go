package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/sensor-node/internal/entity"
	"github.com/sweeney/sensor-node/internal/logging"
)

// queuePoster collects posted functions until run is called, like the
// scheduler does between ticks.
type queuePoster struct {
	fns []func()
}

func (q *queuePoster) Post(fn func()) { q.fns = append(q.fns, fn) }

func (q *queuePoster) run() {
	fns := q.fns
	q.fns = nil
	for _, fn := range fns {
		fn()
	}
}

var topics = Topics{Prefix: "shed"}

func TestTopics(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{topics.Status(), "shed/status"},
		{topics.System(), "shed/system"},
		{topics.State(entity.DomainSensor, "tank_level"), "shed/sensor/tank_level/state"},
		{topics.Command(entity.DomainSwitch, "pump"), "shed/switch/pump/command"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %s, want %s", tt.got, tt.want)
		}
	}
}

func TestParseCommand(t *testing.T) {
	domain, id, ok := topics.ParseCommand("shed/select/log_level/command")
	if !ok || domain != entity.DomainSelect || id != "log_level" {
		t.Errorf("got %q %q %v", domain, id, ok)
	}

	for _, bad := range []string{
		"other/switch/pump/command",
		"shed/switch/pump/state",
		"shed/switch/command",
		"shed//pump/command",
		"shed/switch/pump/command/extra",
	} {
		if _, _, ok := topics.ParseCommand(bad); ok {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}

func TestFormatSystemPayload(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC),
		Event:     EventShutdown,
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed SystemPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.System.Timestamp != "2026-02-03T10:30:45Z" {
		t.Errorf("unexpected timestamp: %s", parsed.System.Timestamp)
	}
	if parsed.System.Event != "SHUTDOWN" {
		t.Errorf("unexpected event: %s", parsed.System.Event)
	}
	if parsed.System.Reason != "SIGTERM" {
		t.Errorf("unexpected reason: %s", parsed.System.Reason)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		Event:     EventReconnected,
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T14:30:00Z","event":"RECONNECTED"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 12, 0, 0, 0, loc),
		Event:     EventHeartbeat,
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed SystemPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.System.Timestamp != "2026-02-03T10:00:00Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.System.Timestamp)
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: EventStartup, RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload, got %s", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	if err := f.Publish("a", 0, true, []byte("1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.Publish("b", 1, false, []byte("2")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs := f.Published()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Topic != "a" || !msgs[0].Retained || string(msgs[0].Payload) != "1" {
		t.Errorf("unexpected first message: %+v", msgs[0])
	}
	if msgs[1].QoS != 1 || msgs[1].Retained {
		t.Errorf("unexpected second message: %+v", msgs[1])
	}

	f.PublishError = errors.New("broker gone")
	if err := f.Publish("a", 0, false, nil); err == nil {
		t.Error("expected error")
	}

	f.Reset()
	if len(f.Published()) != 0 || f.PublishError != nil {
		t.Error("expected reset to clear messages and errors")
	}
}

func TestFakePublisherDeliver(t *testing.T) {
	f := NewFakePublisher()
	var got string
	f.Subscribe("shed/switch/pump/command", 0, func(_ string, p []byte) { got = string(p) })

	if !f.Deliver("shed/switch/pump/command", []byte("ON")) {
		t.Fatal("expected delivery")
	}
	if got != "ON" {
		t.Errorf("got %q, want ON", got)
	}
	if f.Deliver("shed/switch/fan/command", []byte("ON")) {
		t.Error("expected no delivery without a subscription")
	}
}

func newBridge(t *testing.T, reg *entity.Registry) (*Bridge, *FakePublisher, *queuePoster) {
	t.Helper()
	pub := NewFakePublisher()
	pub.Connected = true
	post := &queuePoster{}
	return NewBridge(pub, topics, 0, reg, post, logging.Discard()), pub, post
}

func TestBridgePublishesCurrentAndLaterStates(t *testing.T) {
	reg := entity.NewRegistry()
	tank := entity.NewSensor("Tank Level", entity.WithUnit("mm"))
	tank.SetAccuracyDecimals(0)
	door := entity.NewBinarySensor("Door")
	reg.MustAdd(tank)
	reg.MustAdd(door)

	tank.PublishState(1953)

	b, pub, _ := newBridge(t, reg)
	if err := b.Setup(); err != nil {
		t.Fatalf("setup: %v", err)
	}

	got := pub.OnTopic("shed/sensor/tank_level/state")
	if len(got) != 1 || got[0] != "1953" {
		t.Fatalf("expected current tank state at setup, got %v", got)
	}
	if n := len(pub.OnTopic("shed/binary_sensor/door/state")); n != 0 {
		t.Errorf("door has no state yet, got %d messages", n)
	}

	door.PublishState(true)
	tank.PublishState(1800)

	if got := pub.OnTopic("shed/binary_sensor/door/state"); len(got) != 1 || got[0] != "ON" {
		t.Errorf("door: got %v", got)
	}
	if got := pub.OnTopic("shed/sensor/tank_level/state"); len(got) != 2 || got[1] != "1800" {
		t.Errorf("tank: got %v", got)
	}
	for _, m := range pub.Published() {
		if !m.Retained {
			t.Errorf("state on %s should be retained", m.Topic)
		}
	}
}

func TestBridgeSkipsInternalEntities(t *testing.T) {
	reg := entity.NewRegistry()
	debug := entity.NewSensor("Loop Time", entity.Internal())
	reg.MustAdd(debug)

	b, pub, _ := newBridge(t, reg)
	if err := b.Setup(); err != nil {
		t.Fatalf("setup: %v", err)
	}
	debug.PublishState(3)

	if n := len(pub.Published()); n != 0 {
		t.Errorf("expected nothing published, got %d", n)
	}
}

func TestBridgeRoutesCommandsThroughPoster(t *testing.T) {
	reg := entity.NewRegistry()
	var level bool
	pump := entity.NewSwitch("Pump", func(l bool) error { level = l; return nil })
	reg.MustAdd(pump)

	b, pub, post := newBridge(t, reg)
	if err := b.Setup(); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if !pub.Deliver("shed/switch/pump/command", []byte("ON")) {
		t.Fatal("expected command subscription")
	}
	if level {
		t.Fatal("command must not run before the scheduler picks it up")
	}

	post.run()
	if !level || !pump.Value() {
		t.Error("expected pump on")
	}
	if got := pub.OnTopic("shed/switch/pump/state"); len(got) != 1 || got[0] != "ON" {
		t.Errorf("expected ON state published, got %v", got)
	}
	if _, _, commands := b.Stats(); commands != 1 {
		t.Errorf("commands: got %d, want 1", commands)
	}
}

func TestBridgeRejectsUnknownSelectOption(t *testing.T) {
	reg := entity.NewRegistry()
	mode := entity.NewSelect("Mode", []string{"eco", "boost"}, nil)
	reg.MustAdd(mode)

	b, pub, post := newBridge(t, reg)
	if err := b.Setup(); err != nil {
		t.Fatalf("setup: %v", err)
	}

	pub.Deliver("shed/select/mode/command", []byte("turbo"))
	post.run()
	if mode.HasState() {
		t.Error("unknown option should not change state")
	}

	pub.Deliver("shed/select/mode/command", []byte("boost"))
	post.run()
	if mode.Value() != "boost" {
		t.Errorf("got %q, want boost", mode.Value())
	}
}

func TestBridgePublishFailureSetsWarning(t *testing.T) {
	reg := entity.NewRegistry()
	tank := entity.NewSensor("Tank")
	reg.MustAdd(tank)

	b, pub, _ := newBridge(t, reg)
	if err := b.Setup(); err != nil {
		t.Fatalf("setup: %v", err)
	}

	pub.PublishError = errors.New("broker gone")
	tank.PublishState(1)
	if !b.Status().HasWarning() {
		t.Error("expected warning after failed publish")
	}

	pub.PublishError = nil
	tank.PublishState(2)
	if b.Status().HasWarning() {
		t.Error("expected warning cleared after successful publish")
	}

	published, failed, _ := b.Stats()
	if published != 1 || failed != 1 {
		t.Errorf("stats: got %d/%d, want 1/1", published, failed)
	}
}

func TestBridgeSubscribeFailureFailsSetup(t *testing.T) {
	reg := entity.NewRegistry()
	reg.MustAdd(entity.NewSwitch("Pump", func(bool) error { return nil }))

	b, pub, _ := newBridge(t, reg)
	pub.SubscribeError = errors.New("not authorised")

	if err := b.Setup(); err == nil {
		t.Error("expected setup error")
	}
}

func TestBridgePublishSystem(t *testing.T) {
	b, pub, _ := newBridge(t, entity.NewRegistry())

	err := b.PublishSystem(SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC),
		Event:     EventShutdown,
		Reason:    "SIGINT",
		Retained:  true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs := pub.Published()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Topic != "shed/system" || msgs[0].QoS != 1 || !msgs[0].Retained {
		t.Errorf("unexpected message: %+v", msgs[0])
	}
	want := `{"system":{"timestamp":"2026-02-03T10:30:45Z","event":"SHUTDOWN","reason":"SIGINT"}}`
	if string(msgs[0].Payload) != want {
		t.Errorf("payload:\ngot:  %s\nwant: %s", msgs[0].Payload, want)
	}

	pub.PublishError = errors.New("broker gone")
	if err := b.PublishSystem(SystemEvent{Event: EventHeartbeat}); err == nil {
		t.Error("expected error")
	}
}
