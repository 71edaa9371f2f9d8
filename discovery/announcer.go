// Package discovery implements the UDP multicast beacon the client uses to
// advertise itself so middlemen can find it without being told its address
// out of band. It is deliberately one-directional: the client only sends
// beacons, it never listens for others (the original ServiceDiscovery class
// supports both directions, but the client side only needs to broadcast).
package discovery

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/daqtools/sqlbus/sqlbuslog"
)

// DefaultGroupAddress and DefaultPort match the multicast group and port the
// middleman side listens on by default.
const (
	DefaultGroupAddress = "239.192.1.1"
	DefaultPort         = 5000
	DefaultPeriod       = 5 * time.Second
)

// beacon is the JSON payload broadcast on every tick.
type beacon struct {
	ClientID   string         `json:"client_id"`
	ClientName string         `json:"client_name"`
	Services   map[string]int `json:"services"`
}

// Announcer periodically multicasts a beacon describing the services this
// client has registered. It is safe for concurrent use: Register and
// Unregister may be called from any goroutine while the beacon loop runs.
type Announcer struct {
	clientID   string
	clientName string
	period     time.Duration

	conn *net.UDPConn

	mu       sync.Mutex
	services map[string]int

	stop     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// New creates an Announcer that sends to groupAddr:port every period. It
// does not start broadcasting until Start is called.
func New(clientID, clientName, groupAddr string, port int, period time.Duration) (*Announcer, error) {
	if groupAddr == "" {
		groupAddr = DefaultGroupAddress
	}
	if port == 0 {
		port = DefaultPort
	}
	if period <= 0 {
		period = DefaultPeriod
	}

	raddr, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", groupAddr, port))
	if err != nil {
		return nil, fmt.Errorf("discovery: resolve %s:%d: %w", groupAddr, port, err)
	}
	conn, err := net.DialUDP("udp4", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("discovery: dial %s:%d: %w", groupAddr, port, err)
	}

	return &Announcer{
		clientID:   clientID,
		clientName: clientName,
		period:     period,
		conn:       conn,
		services:   make(map[string]int),
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}, nil
}

// Register adds (or updates) a service name/port pair to be advertised on
// the next beacon.
func (a *Announcer) Register(name string, port int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.services[name] = port
}

// Unregister removes a service name from future beacons.
func (a *Announcer) Unregister(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.services, name)
}

// Start begins the beacon loop in its own goroutine. It is not on the
// request path and does not interact with query traffic.
func (a *Announcer) Start() {
	go a.run()
}

func (a *Announcer) run() {
	defer close(a.stopped)

	ticker := time.NewTicker(a.period)
	defer ticker.Stop()

	a.sendBeacon()
	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
			a.sendBeacon()
		}
	}
}

func (a *Announcer) sendBeacon() {
	a.mu.Lock()
	services := make(map[string]int, len(a.services))
	for k, v := range a.services {
		services[k] = v
	}
	a.mu.Unlock()

	b := beacon{ClientID: a.clientID, ClientName: a.clientName, Services: services}
	payload, err := json.Marshal(b)
	if err != nil {
		sqlbuslog.Printf(sqlbuslog.ERRORS, "discovery: marshal beacon: %s", err)
		return
	}
	if _, err := a.conn.Write(payload); err != nil {
		sqlbuslog.Printf(sqlbuslog.WARNINGS, "discovery: send beacon: %s", err)
	}
}

// Close stops the beacon loop and closes the underlying socket. It is safe
// to call more than once.
func (a *Announcer) Close() error {
	var err error
	a.stopOnce.Do(func() {
		close(a.stop)
		<-a.stopped
		err = a.conn.Close()
	})
	return err
}
