package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
node:
  name: "garage"
  loop_interval: 10ms
mqtt:
  broker: "tcp://broker:1883"
  prefix: "garage"
  qos: 1
components:
  duty_cycle:
    - name: "Fan PWM"
      pin: 17
      update_interval: 5s
      filters:
        - type: multiply
          value: 0.5
  ultrasonic:
    - name: "Tank Level"
      device: /dev/ttyS0
      baud: 9600
      checksum: offset
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Node.Name != "garage" {
		t.Errorf("Node.Name = %q, want %q", cfg.Node.Name, "garage")
	}
	if cfg.Node.LoopInterval != 10*time.Millisecond {
		t.Errorf("Node.LoopInterval = %v, want 10ms", cfg.Node.LoopInterval)
	}
	if cfg.MQTT.QoS != 1 {
		t.Errorf("MQTT.QoS = %d, want 1", cfg.MQTT.QoS)
	}
	if len(cfg.Components.DutyCycle) != 1 {
		t.Fatalf("expected 1 duty cycle, got %d", len(cfg.Components.DutyCycle))
	}
	dc := cfg.Components.DutyCycle[0]
	if dc.Pin != 17 || dc.UpdateInterval != 5*time.Second {
		t.Errorf("duty cycle: got pin=%d interval=%v", dc.Pin, dc.UpdateInterval)
	}
	if len(dc.Filters) != 1 || dc.Filters[0].Type != "multiply" || dc.Filters[0].Value != 0.5 {
		t.Errorf("unexpected filters: %+v", dc.Filters)
	}
	if cfg.Components.Ultrasonic[0].Checksum != "offset" {
		t.Errorf("Ultrasonic checksum = %q, want offset", cfg.Components.Ultrasonic[0].Checksum)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Node.LoopInterval != 16*time.Millisecond {
		t.Errorf("LoopInterval = %v, want 16ms", cfg.Node.LoopInterval)
	}
	if cfg.Node.BlockingThreshold != 50*time.Millisecond {
		t.Errorf("BlockingThreshold = %v, want 50ms", cfg.Node.BlockingThreshold)
	}
	if cfg.Preferences.FlushInterval != time.Minute {
		t.Errorf("FlushInterval = %v, want 1m", cfg.Preferences.FlushInterval)
	}
	if cfg.HTTP.WSBroker != "=broker" {
		t.Errorf("WSBroker = %q, want =broker", cfg.HTTP.WSBroker)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "node: [unclosed")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected parse error, got nil")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SENSOR_NODE_MQTT_BROKER", "tcp://override:1883")
	t.Setenv("SENSOR_NODE_LOG_LEVEL", "debug")
	t.Setenv("SENSOR_NODE_PREFS_PATH", "/tmp/prefs.db")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MQTT.Broker != "tcp://override:1883" {
		t.Errorf("MQTT.Broker = %q", cfg.MQTT.Broker)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
	if cfg.Preferences.Path != "/tmp/prefs.db" {
		t.Errorf("Preferences.Path = %q", cfg.Preferences.Path)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"bad qos", func(c *Config) { c.MQTT.QoS = 3 }, "mqtt.qos"},
		{"missing name", func(c *Config) { c.Node.Name = "" }, "node.name"},
		{"influx without url", func(c *Config) { c.InfluxDB.Enabled = true }, "influxdb.url"},
		{"unnamed switch", func(c *Config) {
			c.Components.Switches = []SwitchConfig{{Pin: 4}}
		}, "switches[0].name"},
		{"bad checksum", func(c *Config) {
			c.Components.Ultrasonic = []UltrasonicConfig{{Name: "x", Device: "/dev/null", Checksum: "crc"}}
		}, "checksum must be"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
