package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/sensor-node/internal/clock"
	"github.com/sweeney/sensor-node/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		Node:        "shed-node",
		NodeID:      "4f1c",
		LoopMs:      16,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		Prefix:      "shed",
		HTTPAddr:    ":80",
	}
	tr := status.NewTracker(clock.NewFake(start), cfg)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func report(tr *status.Tracker) {
	tr.Update(
		[]status.ComponentStatus{
			{Name: "duty_cycle.burner", State: "LOOP", Polling: true, UpdateInterval: time.Minute},
			{Name: "ultrasonic.tank", State: "LOOP", Warning: true},
		},
		[]status.EntityStatus{
			{Domain: "sensor", ObjectID: "burner", Name: "Burner", Unit: "%", State: "37.5", HasState: true},
			{Domain: "binary_sensor", ObjectID: "door", Name: "Door", State: "ON", HasState: true},
			{Domain: "sensor", ObjectID: "debug", Name: "Debug", State: "1", HasState: true, Internal: true},
		},
	)
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	report(tr)
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.Node != "shed-node" {
		t.Errorf("Node: got %q, want shed-node", sj.Status.Node)
	}
	if !sj.Status.Ready {
		t.Error("expected Ready=true")
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q, want tcp://192.168.1.200:1883", sj.Status.MQTT.Broker)
	}
	if len(sj.Status.Components) != 2 || !sj.Status.Components[1].Warning {
		t.Errorf("Components: got %+v", sj.Status.Components)
	}
	if len(sj.Status.Entities) != 3 {
		t.Fatalf("Entities: got %d, want 3", len(sj.Status.Entities))
	}
	if sj.Status.Entities[0].State != "37.5" || sj.Status.Entities[0].Unit != "%" {
		t.Errorf("Entities[0]: got %+v", sj.Status.Entities[0])
	}
	if sj.Status.Config.LoopMs != 16 {
		t.Errorf("Config.LoopMs: got %d, want 16", sj.Status.Config.LoopMs)
	}
	if sj.Status.Config.HTTPAddr != ":80" {
		t.Errorf("Config.HTTPAddr: got %q", sj.Status.Config.HTTPAddr)
	}
}

func TestJSONNotReadyBeforeFirstReport(t *testing.T) {
	ts, _ := newTestServer(t)

	sj := getJSON(t, ts.URL+"/index.json")

	if sj.Status.Ready {
		t.Error("expected Ready=false before the first report")
	}
	if len(sj.Status.Components) != 0 {
		t.Errorf("Components: got %d, want 0", len(sj.Status.Components))
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.SetNetwork(&status.NetworkInfo{
		Type:   "wifi",
		IP:     "192.168.1.42",
		Status: "connected",
		SSID:   "MyNet",
	})

	sj := getJSON(t, ts.URL+"/index.json")

	if sj.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", sj.Status.Network.IP)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t)
	report(tr)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	html := string(body)
	if !strings.Contains(html, `id="sensor/burner"`) {
		t.Error("expected burner entity row")
	}
	if !strings.Contains(html, "37.5 %") {
		t.Error("expected burner state with unit")
	}
	if strings.Contains(html, "Debug") {
		t.Error("internal entities should not be listed")
	}
	if strings.Contains(html, "mqtt.connect") {
		t.Error("live script should be absent without a websocket broker")
	}
}

func TestHTMLLiveScriptUsesPrefix(t *testing.T) {
	tr := status.NewTracker(clock.NewFake(time.Now()), status.Config{Prefix: "shed", WSBroker: "ws://broker:9001"})
	ts := httptest.NewServer(New(":0", tr).httpServer.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "mqtt.connect") {
		t.Error("expected live script")
	}
	if !strings.Contains(string(body), `"shed"`) {
		t.Error("expected topic prefix in live script")
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)

	sj1 := getJSON(t, ts.URL+"/index.json")
	if sj1.Status.Ready {
		t.Error("expected Ready=false initially")
	}

	report(tr)
	tr.SetMQTTConnected(true)

	sj2 := getJSON(t, ts.URL+"/index.json")
	if !sj2.Status.Ready {
		t.Error("expected Ready=true after update")
	}
	if sj2.Status.Entities[1].State != "ON" {
		t.Errorf("door: got %q, want ON", sj2.Status.Entities[1].State)
	}
	if !sj2.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}
