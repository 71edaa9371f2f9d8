// Package client implements the lifecycle manager, background pump, and
// public SendQuery API of the SQL bus client. It is the only package that
// touches the ZeroMQ sockets; every other package only ever talks to the
// registry.
package client

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	zmq "github.com/pebbe/zmq4"

	"github.com/daqtools/sqlbus"
	"github.com/daqtools/sqlbus/config"
	"github.com/daqtools/sqlbus/discovery"
	"github.com/daqtools/sqlbus/sqlbuslog"
)

// internalOpTimeout is the hard cap the client waits on a send ticket or a
// response ticket before giving up, independent of the caller's own
// deadline. It guards against a stuck pump or a silent middleman even when
// a caller passes a very long (or zero) deadline.
const internalOpTimeout = 30 * time.Second

// serviceWrite and serviceRead are the names registered with the announcer
// for the publish and dealer ports respectively.
const (
	serviceWrite = "psql_write"
	serviceRead  = "psql_read"
)

// settings holds the resolved configuration a Client runs with, after
// applying defaults over whatever config.Store provided.
type settings struct {
	Verbosity  sqlbuslog.Loglevel
	MaxRetries int // parsed, never honored — reserved for a future retry policy

	PubPort          int
	DlrPort          int
	PubSocketTimeout time.Duration
	DlrSocketTimeout time.Duration

	InPollTimeout  time.Duration
	OutPollTimeout time.Duration
	QueryTimeout   time.Duration

	ResendPeriod     time.Duration // parsed, no printer loop drives it
	PrintStatsPeriod time.Duration // parsed, no printer loop drives it

	ServiceDiscoveryConfig string
	ClientName             string

	BroadcastAddress string
	BroadcastPort    int
	BroadcastPeriod  time.Duration
}

func loadSettings(store *config.Store) settings {
	return settings{
		Verbosity:  sqlbuslog.Loglevel(store.GetInt("verbosity", int(sqlbuslog.INFO))),
		MaxRetries: store.GetInt("max_retries", 3),

		PubPort: store.GetInt("clt_pub_port", 77778),
		DlrPort: store.GetInt("clt_dlr_port", 77777),

		PubSocketTimeout: store.GetDuration("clt_pub_socket_timeout", 500),
		DlrSocketTimeout: store.GetDuration("clt_dlr_socket_timeout", 500),

		InPollTimeout:  store.GetDuration("inpoll_timeout", 500),
		OutPollTimeout: store.GetDuration("outpoll_timeout", 500),
		QueryTimeout:   store.GetDuration("query_timeout", 2000),

		ResendPeriod:     store.GetDuration("resend_period_ms", 1000),
		PrintStatsPeriod: store.GetDuration("print_stats_period_ms", 5000),

		ServiceDiscoveryConfig: store.GetString("service_discovery_config", ""),
		ClientName:             store.GetString("client_name", "DemoClient"),

		BroadcastAddress: discovery.DefaultGroupAddress,
		BroadcastPort:    discovery.DefaultPort,
		BroadcastPeriod:  discovery.DefaultPeriod,
	}
}

// EmbedderFacilities lets a host process that already runs its own ZeroMQ
// context, logger, or service announcer hand them to the client instead of
// having the client create (and later destroy) its own. Every field is a
// borrow: Close never tears down anything reached through this struct.
type EmbedderFacilities struct {
	Context   *zmq.Context
	Logger    *log.Logger
	Announcer *discovery.Announcer

	// ServiceDiscoveryAddress, if non-empty, signals that an announcer is
	// already running elsewhere in the embedding process/toolchain, so the
	// client should not create its own even if Announcer is nil.
	ServiceDiscoveryAddress string
}

// Client is the remote SQL-execution client. Construct one with New and
// release it with Close. The zero Client is not usable.
type Client struct {
	cfg      settings
	identity string

	ownsContext   bool
	ownsAnnouncer bool

	zctx      *zmq.Context
	sockets   *socketPair
	announcer *discovery.Announcer

	registry *registry
	counters counters

	msgID uint32 // incremented atomically to assign MessageIDs

	shutdown chan struct{}
	pumpDone chan struct{}

	closeOnce sync.Once
}

// New loads configPath (if non-empty), wires up the sockets, announcer, and
// logging, and starts the background pump. On any failure it releases
// whatever it had already set up and returns a nil Client with a non-nil
// error.
func New(configPath string, embedder *EmbedderFacilities) (*Client, error) {
	store, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("client: load config: %w", err)
	}

	c := &Client{
		cfg:      loadSettings(store),
		registry: newRegistry(),
		shutdown: make(chan struct{}),
		pumpDone: make(chan struct{}),
	}

	sqlbuslog.SetLoglevel(c.cfg.Verbosity)
	if embedder != nil && embedder.Logger != nil {
		sqlbuslog.SetLogger(embedder.Logger)
	}

	id := uuid.New()
	c.identity = id.String()

	if embedder != nil && embedder.Context != nil {
		c.zctx = embedder.Context
	} else {
		c.zctx, err = zmq.NewContext()
		if err != nil {
			return nil, fmt.Errorf("client: create zmq context: %w", err)
		}
		c.ownsContext = true
	}

	c.sockets, err = newSocketPair(c.zctx, c.identity, c.cfg.PubPort, c.cfg.DlrPort, c.cfg.PubSocketTimeout, c.cfg.DlrSocketTimeout)
	if err != nil {
		close(c.pumpDone) // no pump was started
		c.Close()
		return nil, fmt.Errorf("client: init sockets: %w", err)
	}

	if err := c.initAnnouncer(embedder, store, id); err != nil {
		close(c.pumpDone) // no pump was started
		c.Close()
		return nil, fmt.Errorf("client: init service discovery: %w", err)
	}
	c.registerServices()

	go c.pump()

	return c, nil
}

func (c *Client) initAnnouncer(embedder *EmbedderFacilities, store *config.Store, id uuid.UUID) error {
	sdAddress := ""
	if embedder != nil {
		sdAddress = embedder.ServiceDiscoveryAddress
	}
	if sdAddress != "" || store.Has("service_discovery_address") {
		sqlbuslog.Printf(sqlbuslog.INFO, "client: seem to be part of a toolchain; assuming ServiceDiscovery is running")
		if embedder != nil {
			c.announcer = embedder.Announcer
		}
		return nil
	}
	if embedder != nil && embedder.Announcer != nil {
		c.announcer = embedder.Announcer
		return nil
	}

	sqlbuslog.Printf(sqlbuslog.INFO, "client: creating ServiceDiscovery announcer")
	a, err := discovery.New(id.String(), c.cfg.ClientName, c.cfg.BroadcastAddress, c.cfg.BroadcastPort, c.cfg.BroadcastPeriod)
	if err != nil {
		return err
	}
	a.Start()
	c.announcer = a
	c.ownsAnnouncer = true
	return nil
}

func (c *Client) registerServices() {
	if c.announcer == nil {
		return
	}
	c.announcer.Register(serviceWrite, c.cfg.PubPort)
	c.announcer.Register(serviceRead, c.cfg.DlrPort)
}

// Close signals the pump to stop, waits for it to exit, unregisters
// services, tears down any announcer this Client created, closes both
// sockets, and releases the context iff this Client created it. It is safe
// to call more than once; teardown of already-nil fields is a no-op.
func (c *Client) Close() error {
	var firstErr error
	c.closeOnce.Do(func() {
		close(c.shutdown)
		<-c.pumpDone

		if c.announcer != nil {
			c.announcer.Unregister(serviceWrite)
			c.announcer.Unregister(serviceRead)
			if c.ownsAnnouncer {
				if err := c.announcer.Close(); err != nil && firstErr == nil {
					firstErr = err
				}
			}
		}

		c.sockets.close()

		if c.ownsContext && c.zctx != nil {
			if err := c.zctx.Term(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}

// Stats returns a snapshot of the client's query counters.
func (c *Client) Stats() Stats {
	return c.counters.snapshot()
}

// SetLogOutput redirects the package logger's writer, for an embedder that
// wants sqlbus log lines interleaved with its own but does not supply a
// full *log.Logger via EmbedderFacilities.
func SetLogOutput(w io.Writer) {
	sqlbuslog.SetOutput(w)
}

func init() {
	// Match the original's "log to stderr unless told otherwise" default.
	sqlbuslog.SetOutput(os.Stderr)
}

// SendQuery submits statement against database and blocks for up to
// deadline for a response. It returns the result rows (empty for a write,
// or for a read with no matching rows) and a non-nil error describing any
// failure: a classification/send/response timeout, a transport error, or a
// middleman-reported failure.
func (c *Client) SendQuery(database, statement string, deadline time.Duration) ([]string, error) {
	if deadline <= 0 {
		return nil, fmt.Errorf("Timed out after waiting %dms for response from query '%s'", deadline.Milliseconds(), statement)
	}

	q := sqlbus.NewQuery(database, statement)
	q.MessageID = atomic.AddUint32(&c.msgID, 1)

	resultCh := make(chan queryResult, 1)
	go func() {
		rows, err := c.doQuery(q)
		resultCh <- queryResult{rows: rows, err: err}
	}()

	select {
	case r := <-resultCh:
		return r.rows, r.err
	case <-time.After(deadline):
		c.registry.Abandon(q.MessageID)
		return nil, fmt.Errorf("Timed out after waiting %dms for response from query '%s'", deadline.Milliseconds(), statement)
	}
}

// SendQueryRow is a convenience wrapper around SendQuery for callers that
// expect at most one result row. If the middleman returned more than one
// row, it fails even though the underlying query itself succeeded,
// appending ". Query returned N rows!" to the error.
func (c *Client) SendQueryRow(database, statement string, deadline time.Duration) (string, error) {
	rows, err := c.SendQuery(database, statement, deadline)

	var first string
	if len(rows) > 0 {
		first = rows[0]
	}
	if len(rows) > 1 {
		if err == nil {
			err = fmt.Errorf(". Query returned %d rows!", len(rows))
		} else {
			err = fmt.Errorf("%s. Query returned %d rows!", err, len(rows))
		}
		return first, err
	}
	return first, err
}

type queryResult struct {
	rows []string
	err  error
}

// doQuery performs the two-phase submit-then-await dance: enqueue for send,
// wait for the pump to report a send outcome, then wait for a matching
// response. Each phase is capped at internalOpTimeout regardless of the
// caller's own deadline.
func (c *Client) doQuery(q sqlbus.Query) ([]string, error) {
	sendTicket := c.registry.EnqueueSend(q)

	var code int
	select {
	case code = <-sendTicket:
	case <-time.After(internalOpTimeout):
		c.counters.recordFailure(q.Type)
		sqlbuslog.Printf(sqlbuslog.WARNINGS, "client: timed out sending query %d", q.MessageID)
		return nil, fmt.Errorf("timed out sending query")
	}

	if err := sendStatusError(code); err != nil {
		c.counters.recordFailure(q.Type)
		sqlbuslog.Printf(sqlbuslog.DEBUG, "client: %s", err)
		return nil, err
	}

	respTicket := c.registry.RegisterResponse(q.MessageID)

	var resp sqlbus.Query
	select {
	case resp = <-respTicket:
	case <-time.After(internalOpTimeout):
		c.counters.recordFailure(q.Type)
		c.registry.Abandon(q.MessageID)
		sqlbuslog.Printf(sqlbuslog.WARNINGS, "client: timed out waiting for response to query %d", q.MessageID)
		return nil, fmt.Errorf("timed out waiting for response")
	}

	if !resp.Success {
		c.counters.recordFailure(q.Type)
		if resp.Err == "" {
			resp.Err = "query failed"
		}
		return resp.Rows, fmt.Errorf("%s", resp.Err)
	}

	c.counters.recordSuccess(q.Type)
	return resp.Rows, nil
}

func sendStatusError(code int) error {
	switch code {
	case sendOK:
		return nil
	case sendFailed:
		return fmt.Errorf("%w: error sending query", sqlbus.ErrSendFailed)
	case sendNoListener:
		return fmt.Errorf("%w: no listener on out socket", sqlbus.ErrNoListener)
	case sendPollErrored:
		return fmt.Errorf("%w: error polling out socket", sqlbus.ErrSocketClosed)
	default:
		return fmt.Errorf("unknown send status code %d", code)
	}
}
