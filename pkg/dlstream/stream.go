// Package dlstream maintains a websocket subscription to a developer-log
// server and feeds every frame it receives into a Sink. A dropped or
// failed connection is reported into the same Sink and retried after a
// fixed delay for as long as the context lives.
package dlstream

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/txn2/devlog/pkg/dlevent"
)

// DefaultRetryDelay is the wait between a lost connection and the next dial.
const DefaultRetryDelay = 5 * time.Second

// handshakeTimeout bounds a single dial attempt
const handshakeTimeout = 10 * time.Second

// RetryPolicy controls reconnection. The delay is constant; there is no
// growth and no attempt limit.
type RetryPolicy struct {
	Delay time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Delay: DefaultRetryDelay}
}

// Sink receives payloads in wire order.
type Sink interface {
	Append(p dlevent.Payload)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(p dlevent.Payload)

// Append calls f(p).
func (f SinkFunc) Append(p dlevent.Payload) { f(p) }

// Conn is the subset of *websocket.Conn the client reads from.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Dialer opens a connection to endpoint.
type Dialer interface {
	Dial(ctx context.Context, endpoint string) (Conn, error)
}

// WebsocketDialer dials with gorilla/websocket.
type WebsocketDialer struct {
	Dialer *websocket.Dialer
	Header http.Header
}

// NewWebsocketDialer returns a dialer honoring proxy environment settings.
func NewWebsocketDialer() *WebsocketDialer {
	return &WebsocketDialer{
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

// Dial implements Dialer.
func (d *WebsocketDialer) Dial(ctx context.Context, endpoint string) (Conn, error) {
	conn, resp, err := d.Dialer.DialContext(ctx, endpoint, d.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", endpoint)
	}
	return conn, nil
}

// State is the connection state reported to the state callback.
type State int

const (
	StateConnecting State = iota
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Endpoint derives the stream URL for a server base URL: path /ws on the
// same host, wss when the base is https (or wss), ws otherwise. A bare
// host:port is accepted.
func Endpoint(base string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", errors.New("empty server address")
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", errors.Wrapf(err, "parse server address %q", base)
	}
	if u.Host == "" {
		return "", errors.Errorf("server address %q has no host", base)
	}

	scheme := "ws"
	if u.Scheme == "https" || u.Scheme == "wss" {
		scheme = "wss"
	}
	return (&url.URL{Scheme: scheme, Host: u.Host, Path: "/ws"}).String(), nil
}

// Config configures a Client. Endpoint and Sink are required.
type Config struct {
	Endpoint string
	Sink     Sink
	Policy   RetryPolicy
	Dialer   Dialer

	// After replaces time.After for the retry delay.
	After func(time.Duration) <-chan time.Time

	// OnState, when set, is called on every state transition.
	OnState func(State)
}

// Client is a reconnecting stream subscriber. At most one connection is
// open at a time.
type Client struct {
	endpoint string
	sink     Sink
	policy   RetryPolicy
	dialer   Dialer
	after    func(time.Duration) <-chan time.Time
	onState  func(State)

	mu    sync.RWMutex
	state State
}

// New creates a client. Zero-valued optional fields get defaults.
func New(cfg Config) *Client {
	c := &Client{
		endpoint: cfg.Endpoint,
		sink:     cfg.Sink,
		policy:   cfg.Policy,
		dialer:   cfg.Dialer,
		after:    cfg.After,
		onState:  cfg.OnState,
		state:    StateDisconnected,
	}
	if c.policy.Delay <= 0 {
		c.policy = DefaultRetryPolicy()
	}
	if c.dialer == nil {
		c.dialer = NewWebsocketDialer()
	}
	if c.after == nil {
		c.after = time.After
	}
	return c
}

// Endpoint returns the URL being dialed.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Run connects and keeps reconnecting until ctx is done. Every lost
// connection, including a failed dial, appends one connection-lost
// event to the sink before the retry delay. Run returns ctx.Err().
func (c *Client) Run(ctx context.Context) error {
	if c.sink == nil {
		return errors.New("stream client has no sink")
	}

	for {
		c.setState(StateConnecting)
		conn, err := c.dialer.Dial(ctx, c.endpoint)
		if ctx.Err() != nil {
			if conn != nil {
				_ = conn.Close()
			}
			c.setState(StateDisconnected)
			return ctx.Err()
		}

		if err != nil {
			log.Debugf("Stream dial failed: %v", err)
		} else {
			c.setState(StateConnected)
			log.Debugf("Stream connected to %s", c.endpoint)
			err = c.read(ctx, conn)
			if ctx.Err() != nil {
				c.setState(StateDisconnected)
				return ctx.Err()
			}
			log.Debugf("Stream read ended: %v", err)
		}

		c.setState(StateDisconnected)
		c.sink.Append(dlevent.FromEvent(dlevent.ConnectionLost()))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.after(c.policy.Delay):
		}
	}
}

// read delivers frames until the connection fails or ctx is done.
func (c *Client) read(ctx context.Context, conn Conn) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()
	defer func() { _ = conn.Close() }()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.deliver(data)
	}
}

func (c *Client) deliver(frame []byte) {
	p, err := dlevent.Decode(frame)
	if err != nil {
		log.Debugf("Stream frame rejected: %v", err)
		c.sink.Append(dlevent.FromEvent(dlevent.ParseFailure(frame)))
		return
	}
	c.sink.Append(p)
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()

	if changed && c.onState != nil {
		c.onState(s)
	}
}
