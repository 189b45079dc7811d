// Package discovery advertises the node on the local network over mDNS.
package discovery

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/enbility/zeroconf/v3"

	"github.com/sweeney/sensor-node/internal/component"
	"github.com/sweeney/sensor-node/internal/logging"
)

const (
	// ServiceType is the DNS-SD service type of a sensor node.
	ServiceType = "_sensornode._tcp"
	// Domain is the mDNS domain.
	Domain = "local."

	maxInstanceNameLen = 63
)

var ErrNoPort = errors.New("no port to advertise")

// Info describes the advertised node.
type Info struct {
	Node    string
	ID      string
	Version string
	Port    int
}

// TXT returns the TXT records for info.
func (i Info) TXT() []string {
	return []string{
		"node=" + i.Node,
		"id=" + i.ID,
		"version=" + i.Version,
	}
}

// Server is a running advertisement.
type Server interface {
	Shutdown()
}

// RegisterFunc starts an advertisement. A nil ifaces advertises on all
// interfaces.
type RegisterFunc func(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (Server, error)

func zeroconfRegister(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (Server, error) {
	s, err := zeroconf.Register(instance, service, domain, port, txt, ifaces)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Advertiser is a component that keeps the node advertised while it runs.
type Advertiser struct {
	component.Base

	info     Info
	iface    string
	register RegisterFunc
	server   Server
	log      *logging.Logger
}

// NewAdvertiser creates an advertiser. An empty iface advertises on every
// interface.
func NewAdvertiser(info Info, iface string, log *logging.Logger) *Advertiser {
	return &Advertiser{
		Base:     component.NewBase("mdns"),
		info:     info,
		iface:    iface,
		register: zeroconfRegister,
		log:      log.Component("mdns"),
	}
}

// SetRegisterFunc replaces the mDNS backend. Used by tests.
func (a *Advertiser) SetRegisterFunc(fn RegisterFunc) { a.register = fn }

func (a *Advertiser) SetupPriority() float64 { return component.PriorityAfterWiFi }

func (a *Advertiser) Setup() error {
	if a.info.Port <= 0 {
		return ErrNoPort
	}

	var ifaces []net.Interface
	if a.iface != "" {
		iface, err := net.InterfaceByName(a.iface)
		if err != nil {
			return fmt.Errorf("interface %s: %w", a.iface, err)
		}
		ifaces = []net.Interface{*iface}
	}

	server, err := a.register(a.instanceName(), ServiceType, Domain, a.info.Port, a.info.TXT(), ifaces)
	if err != nil {
		return fmt.Errorf("register %s: %w", ServiceType, err)
	}
	a.server = server
	a.log.Info("advertising", "instance", a.instanceName(), "port", a.info.Port)
	return nil
}

func (a *Advertiser) instanceName() string {
	name := a.info.Node
	if len(name) > maxInstanceNameLen {
		name = name[:maxInstanceNameLen]
	}
	return name
}

func (a *Advertiser) OnShutdown() {
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

func (a *Advertiser) DumpConfig(log *logging.Logger) {
	iface := a.iface
	if iface == "" {
		iface = "all"
	}
	log.Info("mdns", "service", ServiceType, "instance", a.instanceName(), "interface", iface)
}

// PortFromAddr extracts the port of a listen address such as ":8080". It
// returns 0 when addr has no numeric port.
func PortFromAddr(addr string) int {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return 0
	}
	return n
}
