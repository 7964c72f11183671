package dlapi

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/txn2/devlog/pkg/dlapi/types"
	"github.com/txn2/devlog/pkg/dlhub"
	"github.com/txn2/devlog/pkg/dlmetrics"
)

// DefaultAddr is the address the server listens on when none is configured
const DefaultAddr = "127.0.0.1:8000"

// shutdownTimeout bounds the graceful HTTP shutdown
const shutdownTimeout = 5 * time.Second

// Config configures a Manager
type Config struct {
	Addr        string
	Version     string
	HistorySize int
	SendBuffer  int
	Heartbeat   time.Duration
}

// Manager manages the server lifecycle
type Manager struct {
	server    *http.Server
	router    *gin.Engine
	stopChan  chan struct{}
	stopOnce  sync.Once
	doneChan  chan struct{}
	startTime time.Time

	addrMu sync.RWMutex
	addr   net.Addr

	hub         *dlhub.Hub
	history     *History
	broadcaster *Broadcaster
	metrics     *dlmetrics.Metrics
	channels    types.ChannelStore

	config Config
}

// New creates a manager serving channels. channels may be nil, in which
// case the channel endpoints answer NOT_READY.
func New(cfg Config, channels types.ChannelStore) *Manager {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	metrics := dlmetrics.New()
	hub := dlhub.NewHub(metrics)
	history := NewHistory(cfg.HistorySize)

	m := &Manager{
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
		startTime:   time.Now(),
		hub:         hub,
		history:     history,
		broadcaster: NewBroadcaster(hub, history, metrics),
		metrics:     metrics,
		channels:    channels,
		config:      cfg,
	}
	m.router = m.setupRouter()
	return m
}

// InitLogHook streams every logrus record of the standard logger to
// subscribers and returns the installed hook
func (m *Manager) InitLogHook() *BroadcastHook {
	hook := NewBroadcastHook(m.broadcaster, nil)
	log.AddHook(hook)
	return hook
}

// Handler returns the HTTP handler with all routes
func (m *Manager) Handler() http.Handler {
	return m.router
}

// Run starts the server and blocks until ctx is done, Stop is called or
// the listener fails
func (m *Manager) Run(ctx context.Context) error {
	defer close(m.doneChan)
	defer m.hub.Close()

	ln, err := net.Listen("tcp", m.config.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", m.config.Addr)
	}
	m.addrMu.Lock()
	m.addr = ln.Addr()
	m.addrMu.Unlock()

	m.server = &http.Server{
		Handler:      m.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // Disable for websocket streaming
		IdleTimeout:  120 * time.Second,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go m.broadcaster.Run(runCtx)
	if m.config.Heartbeat > 0 {
		go m.heartbeat(runCtx)
	}

	log.Infof("Server listening on http://%s", ln.Addr())
	log.Infof("Stream: ws://%s/ws  API: http://%s/api", ln.Addr(), ln.Addr())

	errCh := make(chan error, 1)
	go func() {
		if err := m.server.Serve(ln); err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case <-m.stopChan:
	case err := <-errCh:
		return errors.Wrap(err, "serve")
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := m.server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server shutdown error: %v", err)
	}
	return nil
}

func (m *Manager) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(m.config.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.WithField("logger", "heartbeat").Infof("Server alive, %d subscribers, uptime %s",
				m.hub.Count(), m.Uptime().Round(time.Second))
		}
	}
}

// Stop stops the server
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

// Done returns a channel that closes when the server is stopped
func (m *Manager) Done() <-chan struct{} {
	return m.doneChan
}

// Addr returns the bound listen address, or nil before Run has bound it
func (m *Manager) Addr() net.Addr {
	m.addrMu.RLock()
	defer m.addrMu.RUnlock()
	return m.addr
}

// Uptime returns the server uptime
func (m *Manager) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// Version returns the configured version
func (m *Manager) Version() string {
	return m.config.Version
}

// Broadcaster returns the broadcaster feeding the stream
func (m *Manager) Broadcaster() *Broadcaster {
	return m.broadcaster
}

// History returns the recent event history
func (m *Manager) History() *History {
	return m.history
}

// Subscribers returns the number of connected stream subscribers
func (m *Manager) Subscribers() int {
	return m.hub.Count()
}

// Metrics returns the server metrics
func (m *Manager) Metrics() *dlmetrics.Metrics {
	return m.metrics
}
