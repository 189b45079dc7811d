// Package config loads the sensor-node configuration from YAML with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Node        NodeConfig        `yaml:"node"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	HTTP        HTTPConfig        `yaml:"http"`
	Logging     LoggingConfig     `yaml:"logging"`
	Preferences PreferencesConfig `yaml:"preferences"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb"`
	Discovery   DiscoveryConfig   `yaml:"discovery"`
	GPIO        GPIOConfig        `yaml:"gpio"`
	Components  ComponentsConfig  `yaml:"components"`
}

// NodeConfig identifies the node and tunes the scheduler.
type NodeConfig struct {
	Name string `yaml:"name"`
	// ID is a stable instance id. Empty means "generate once and persist".
	ID                string        `yaml:"id"`
	LoopInterval      time.Duration `yaml:"loop_interval"`
	BlockingThreshold time.Duration `yaml:"blocking_threshold"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker     string        `yaml:"broker"`
	Prefix     string        `yaml:"prefix"`
	ClientID   string        `yaml:"client_id"`
	QoS        int           `yaml:"qos"`
	Heartbeat  time.Duration `yaml:"heartbeat"`
	BufferSize int           `yaml:"buffer_size"`
}

// HTTPConfig contains the status server settings. Empty Addr disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
	// WSBroker is the MQTT websocket URL used by the live status page.
	// "=broker" derives it from mqtt.broker, "off" or empty disables it.
	WSBroker string `yaml:"ws_broker"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// PreferencesConfig contains the persistent preference store settings.
type PreferencesConfig struct {
	Path          string        `yaml:"path"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled   bool   `yaml:"enabled"`
	URL       string `yaml:"url"`
	Token     string `yaml:"token"`
	Org       string `yaml:"org"`
	Bucket    string `yaml:"bucket"`
	BatchSize int    `yaml:"batch_size"`
	// FlushInterval is in seconds.
	FlushInterval int `yaml:"flush_interval"`
}

// DiscoveryConfig contains mDNS advertisement settings.
type DiscoveryConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Interface string `yaml:"interface"`
}

// GPIOConfig selects the GPIO character device.
type GPIOConfig struct {
	Chip string `yaml:"chip"`
}

// ComponentsConfig lists the drivers to instantiate.
type ComponentsConfig struct {
	Uptime       *UptimeConfig        `yaml:"uptime"`
	DutyCycle    []DutyCycleConfig    `yaml:"duty_cycle"`
	PulseCounter []PulseCounterConfig `yaml:"pulse_counter"`
	Inputs       []InputConfig        `yaml:"inputs"`
	Switches     []SwitchConfig       `yaml:"switches"`
	Ultrasonic   []UltrasonicConfig   `yaml:"ultrasonic"`
	LogSelect    bool                 `yaml:"log_select"`
}

// UptimeConfig configures the uptime sensor.
type UptimeConfig struct {
	Name           string        `yaml:"name"`
	UpdateInterval time.Duration `yaml:"update_interval"`
}

// FilterConfig describes one sensor filter in a chain.
type FilterConfig struct {
	Type        string        `yaml:"type"`
	Value       float64       `yaml:"value"`
	Bias        float64       `yaml:"bias"`
	Min         float64       `yaml:"min"`
	Max         float64       `yaml:"max"`
	Alpha       float64       `yaml:"alpha"`
	Window      int           `yaml:"window"`
	SendEvery   int           `yaml:"send_every"`
	SendFirstAt int           `yaml:"send_first_at"`
	Period      time.Duration `yaml:"period"`
}

// DutyCycleConfig configures a duty cycle sensor on one input line.
type DutyCycleConfig struct {
	Name           string         `yaml:"name"`
	Pin            int            `yaml:"pin"`
	ActiveLow      bool           `yaml:"active_low"`
	UpdateInterval time.Duration  `yaml:"update_interval"`
	Filters        []FilterConfig `yaml:"filters"`
}

// PulseCounterConfig configures a pulse counter on one input line.
type PulseCounterConfig struct {
	Name           string         `yaml:"name"`
	TotalName      string         `yaml:"total_name"`
	Pin            int            `yaml:"pin"`
	RisingEdge     string         `yaml:"rising_edge"`
	FallingEdge    string         `yaml:"falling_edge"`
	MinPulseWidth  time.Duration  `yaml:"min_pulse_width"`
	UpdateInterval time.Duration  `yaml:"update_interval"`
	Filters        []FilterConfig `yaml:"filters"`
}

// InputConfig configures a debounced GPIO binary sensor.
type InputConfig struct {
	Name        string        `yaml:"name"`
	Pin         int           `yaml:"pin"`
	Inverted    bool          `yaml:"inverted"`
	PullUp      bool          `yaml:"pull_up"`
	Debounce    time.Duration `yaml:"debounce"`
	DelayedOn   time.Duration `yaml:"delayed_on"`
	DelayedOff  time.Duration `yaml:"delayed_off"`
	DeviceClass string        `yaml:"device_class"`
}

// SwitchConfig configures a GPIO output switch.
type SwitchConfig struct {
	Name        string `yaml:"name"`
	Pin         int    `yaml:"pin"`
	Inverted    bool   `yaml:"inverted"`
	RestoreMode string `yaml:"restore_mode"`
}

// UltrasonicConfig configures a UART distance sensor.
type UltrasonicConfig struct {
	Name     string         `yaml:"name"`
	Device   string         `yaml:"device"`
	Baud     int            `yaml:"baud"`
	Checksum string         `yaml:"checksum"`
	Filters  []FilterConfig `yaml:"filters"`
}

// Load reads configuration from path, applies environment overrides, and
// validates the result. An empty path yields the defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			Name:              "sensor-node",
			LoopInterval:      16 * time.Millisecond,
			BlockingThreshold: 50 * time.Millisecond,
		},
		MQTT: MQTTConfig{
			Broker:     "tcp://localhost:1883",
			Prefix:     "sensor-node",
			QoS:        0,
			Heartbeat:  15 * time.Minute,
			BufferSize: 100,
		},
		HTTP: HTTPConfig{
			Addr:     ":8080",
			WSBroker: "=broker",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Preferences: PreferencesConfig{
			Path:          "/var/lib/sensor-node/prefs.db",
			FlushInterval: time.Minute,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		GPIO: GPIOConfig{
			Chip: "gpiochip0",
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SENSOR_NODE_NAME"); v != "" {
		cfg.Node.Name = v
	}
	if v := os.Getenv("SENSOR_NODE_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("SENSOR_NODE_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("SENSOR_NODE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SENSOR_NODE_PREFS_PATH"); v != "" {
		cfg.Preferences.Path = v
	}
	if v := os.Getenv("SENSOR_NODE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Node.Name == "" {
		errs = append(errs, "node.name is required")
	}
	if c.Node.LoopInterval < 0 {
		errs = append(errs, "node.loop_interval must not be negative")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Prefix == "" {
		errs = append(errs, "mqtt.prefix is required")
	}
	if c.Preferences.Path == "" {
		errs = append(errs, "preferences.path is required")
	}
	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when enabled")
	}

	for i, dc := range c.Components.DutyCycle {
		if dc.Name == "" {
			errs = append(errs, fmt.Sprintf("components.duty_cycle[%d].name is required", i))
		}
	}
	for i, pc := range c.Components.PulseCounter {
		if pc.Name == "" {
			errs = append(errs, fmt.Sprintf("components.pulse_counter[%d].name is required", i))
		}
	}
	for i, in := range c.Components.Inputs {
		if in.Name == "" {
			errs = append(errs, fmt.Sprintf("components.inputs[%d].name is required", i))
		}
	}
	for i, sw := range c.Components.Switches {
		if sw.Name == "" {
			errs = append(errs, fmt.Sprintf("components.switches[%d].name is required", i))
		}
	}
	for i, us := range c.Components.Ultrasonic {
		if us.Name == "" || us.Device == "" {
			errs = append(errs, fmt.Sprintf("components.ultrasonic[%d] requires name and device", i))
		}
		switch us.Checksum {
		case "", "sum", "offset":
		default:
			errs = append(errs, fmt.Sprintf("components.ultrasonic[%d].checksum must be sum or offset", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
