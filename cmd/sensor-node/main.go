// Command sensor-node runs the configured sensor components on a cooperative
// scheduler and mirrors their entities to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/sensor-node/internal/clock"
	"github.com/sweeney/sensor-node/internal/config"
	"github.com/sweeney/sensor-node/internal/discovery"
	"github.com/sweeney/sensor-node/internal/drivers"
	"github.com/sweeney/sensor-node/internal/entity"
	"github.com/sweeney/sensor-node/internal/gpio"
	"github.com/sweeney/sensor-node/internal/history"
	"github.com/sweeney/sensor-node/internal/logging"
	"github.com/sweeney/sensor-node/internal/mqtt"
	"github.com/sweeney/sensor-node/internal/prefs"
	"github.com/sweeney/sensor-node/internal/scheduler"
	"github.com/sweeney/sensor-node/internal/status"
	"github.com/sweeney/sensor-node/internal/web"
)

var version = "dev"

const (
	nodeIDKey      = "node/id"
	reportInterval = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "/etc/sensor-node/config.yaml", "Path to the YAML configuration file")
	dumpConfig := flag.Bool("dump-config", false, "Set up all components, log their configuration and exit")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	if err := run(*configPath, *dumpConfig); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, dumpConfig bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Logging, version)

	backend, err := prefs.OpenSQLite(cfg.Preferences.Path)
	if err != nil {
		return fmt.Errorf("open preferences: %w", err)
	}

	d := deps{
		prefs:     backend,
		prefsPath: backend.Path(),
		clock:     clock.System{},
	}

	if needsGPIO(cfg.Components) {
		chip, err := gpio.OpenChip(cfg.GPIO.Chip)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer chip.Close()
		d.chip = chip
	}

	if cfg.InfluxDB.Enabled {
		client, err := history.Connect(context.Background(), cfg.InfluxDB, logger)
		if err != nil {
			logger.Warn("history export disabled", "error", err)
		} else {
			defer client.Close()
			d.history = client
		}
	}

	// The client ID derives from the node id, which lives in preferences.
	d.connect = func(topics mqtt.Topics, clientID string) (mqtt.Publisher, error) {
		return mqtt.NewRealPublisher(mqtt.Options{
			Broker:     cfg.MQTT.Broker,
			ClientID:   clientID,
			Topics:     topics,
			BufferSize: cfg.MQTT.BufferSize,
		}, logger)
	}

	n, err := newNode(cfg, logger, d)
	if err != nil {
		return err
	}
	defer n.close()

	if dumpConfig {
		n.sched.Setup()
		n.sched.Shutdown()
		return nil
	}

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, n.tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("http status server listening", "addr", cfg.HTTP.Addr)
	}

	n.start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return n.run(context.Background(), sigCh)
}

// deps are the outside-world resources a node is built on.
type deps struct {
	chip      gpio.Chip
	prefs     prefs.Backend
	prefsPath string
	clock     clock.Clock
	connect   func(topics mqtt.Topics, clientID string) (mqtt.Publisher, error)
	// history is nil when export is disabled.
	history    history.PointWriter
	openSerial func(path string, baud int) (io.ReadCloser, error)
	// register replaces the mDNS backend when set.
	register discovery.RegisterFunc
}

// node is a fully wired sensor node.
type node struct {
	cfg      *config.Config
	log      *logging.Logger
	nodeID   string
	store    *prefs.Store
	sched    *scheduler.Scheduler
	reg      *entity.Registry
	pub      mqtt.Publisher
	bridge   *mqtt.Bridge
	tracker  *status.Tracker
	reporter *status.Reporter
}

func newNode(cfg *config.Config, logger *logging.Logger, d deps) (*node, error) {
	store := prefs.New(d.prefs)

	nodeID, err := resolveNodeID(cfg.Node.ID, store)
	if err != nil {
		store.Close()
		return nil, err
	}
	logger = logger.With("node", cfg.Node.Name)

	sched := scheduler.New(d.clock, logger,
		scheduler.WithLoopInterval(cfg.Node.LoopInterval),
		scheduler.WithBlockingThreshold(cfg.Node.BlockingThreshold),
	)
	reg := entity.NewRegistry()

	sched.Add(prefs.NewFlusher(store, cfg.Preferences.FlushInterval, d.prefsPath, logger))

	comps, err := drivers.Build(cfg.Components, drivers.Env{
		Chip:       d.chip,
		Clock:      d.clock,
		Timers:     sched,
		Prefs:      store,
		Log:        logger,
		OpenSerial: d.openSerial,
	}, reg)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("build components: %w", err)
	}
	for _, c := range comps {
		sched.Add(c)
	}

	topics := mqtt.Topics{Prefix: cfg.MQTT.Prefix}
	pub, err := d.connect(topics, clientID(cfg, nodeID))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init mqtt: %w", err)
	}
	bridge := mqtt.NewBridge(pub, topics, byte(cfg.MQTT.QoS), reg, sched, logger)
	sched.Add(bridge)

	if d.history != nil {
		sched.Add(history.NewExporter(cfg.Node.Name, reg, d.history, d.clock))
	}

	if cfg.Discovery.Enabled {
		port := discovery.PortFromAddr(cfg.HTTP.Addr)
		adv := discovery.NewAdvertiser(discovery.Info{
			Node:    cfg.Node.Name,
			ID:      nodeID,
			Version: version,
			Port:    port,
		}, cfg.Discovery.Interface, logger)
		if d.register != nil {
			adv.SetRegisterFunc(d.register)
		}
		sched.Add(adv)
	}

	tracker := status.NewTracker(d.clock, status.Config{
		Node:        cfg.Node.Name,
		NodeID:      nodeID,
		Version:     version,
		LoopMs:      cfg.Node.LoopInterval.Milliseconds(),
		HeartbeatMs: cfg.MQTT.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		Prefix:      cfg.MQTT.Prefix,
		HTTPAddr:    cfg.HTTP.Addr,
		WSBroker:    resolveWSBroker(cfg.HTTP.WSBroker, cfg.MQTT.Broker, logger),
	})
	reporter := status.NewReporter(tracker, sched, reg, reportInterval, pub, readNetworkInfo)
	sched.Add(reporter)

	reg.Close()

	return &node{
		cfg:      cfg,
		log:      logger,
		nodeID:   nodeID,
		store:    store,
		sched:    sched,
		reg:      reg,
		pub:      pub,
		bridge:   bridge,
		tracker:  tracker,
		reporter: reporter,
	}, nil
}

// start sets up every component, announces the node and arms the heartbeat.
func (n *node) start() {
	n.sched.Setup()

	n.publishSystem(mqtt.EventStartup, "")

	if hb := n.cfg.MQTT.Heartbeat; hb > 0 {
		n.sched.SetInterval(n.bridge, "heartbeat", hb, func() {
			n.publishSystem(mqtt.EventHeartbeat, "")
		})
	}

	n.log.Info("started",
		"node_id", n.nodeID,
		"components", len(n.sched.Components()),
		"entities", n.reg.Len(),
		"broker", n.cfg.MQTT.Broker,
		"heartbeat", n.cfg.MQTT.Heartbeat,
	)
}

// run drives the scheduler until a signal arrives or ctx ends, then publishes
// SHUTDOWN with the signal name as reason.
func (n *node) run(ctx context.Context, sig <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reasonCh := make(chan string, 1)
	go func() {
		select {
		case s := <-sig:
			n.log.Info("shutting down", "signal", s)
			reasonCh <- signalName(s)
			cancel()
		case <-ctx.Done():
		}
	}()

	err := n.sched.Run(ctx)

	reason := "UNKNOWN"
	select {
	case reason = <-reasonCh:
	default:
	}
	n.publishSystem(mqtt.EventShutdown, reason)

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// publishSystem refreshes the status snapshot and sends it as a retained
// lifecycle event. Heartbeats are not retained.
func (n *node) publishSystem(event, reason string) {
	n.reporter.Update()
	snap := n.tracker.Snapshot()
	ev := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   event != mqtt.EventHeartbeat,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := n.bridge.PublishSystem(ev); err != nil {
		n.log.Warn("failed to publish system event", "event", event, "error", err)
		return
	}
	n.log.Info("published system event", "event", event)
}

// close releases the broker connection and preferences, in that order.
func (n *node) close() {
	if err := n.pub.Close(); err != nil {
		n.log.Warn("mqtt close failed", "error", err)
	}
	if err := n.store.Close(); err != nil {
		n.log.Warn("preferences close failed", "error", err)
	}
}

func resolveNodeID(configured string, store *prefs.Store) (string, error) {
	if configured != "" {
		return configured, nil
	}
	var id string
	found, err := store.Load(nodeIDKey, &id)
	if err != nil {
		return "", fmt.Errorf("load node id: %w", err)
	}
	if found && id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := store.Save(nodeIDKey, id); err != nil {
		return "", fmt.Errorf("save node id: %w", err)
	}
	return id, nil
}

func clientID(cfg *config.Config, nodeID string) string {
	if cfg.MQTT.ClientID != "" {
		return cfg.MQTT.ClientID
	}
	short := nodeID
	if len(short) > 8 {
		short = short[:8]
	}
	return cfg.Node.Name + "-" + short
}

func needsGPIO(c config.ComponentsConfig) bool {
	return len(c.DutyCycle) > 0 || len(c.PulseCounter) > 0 || len(c.Inputs) > 0 || len(c.Switches) > 0
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// resolveWSBroker converts the http.ws_broker setting into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; "off" or
// empty disables.
func resolveWSBroker(ws, broker string, log *logging.Logger) string {
	if ws == "off" || ws == "" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil {
		log.Warn("ws_broker: cannot parse mqtt.broker", "broker", broker, "error", err)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
