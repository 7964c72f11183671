//go:build integration
// +build integration

package integration

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/txn2/devlog/pkg/dlapi"
	"github.com/txn2/devlog/pkg/dlchannels"
	"github.com/txn2/devlog/pkg/dlevent"
	"github.com/txn2/devlog/pkg/dlstream"
)

// startServer runs a devlog server on addr and returns it once listening
func startServer(t *testing.T, addr string) (*dlapi.Manager, *dlchannels.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := dlchannels.New([]dlchannels.Channel{
		{ID: "1001", Name: "alerts", Guild: "ops"},
		{ID: "1002", Name: "signals", Guild: "markets"},
	})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	m := dlapi.New(dlapi.Config{Addr: addr, Version: "integration"}, dlapi.NewChannelStoreAdapter(store))
	go func() {
		if err := m.Run(context.Background()); err != nil {
			t.Logf("Server exited: %v", err)
		}
	}()

	waitFor(t, 5*time.Second, func() bool { return m.Addr() != nil }, "server to listen")
	t.Cleanup(func() { stopServer(t, m) })
	return m, store
}

// stopServer stops m and waits for it to exit
func stopServer(t *testing.T, m *dlapi.Manager) {
	t.Helper()
	m.Stop()
	select {
	case <-m.Done():
	case <-time.After(10 * time.Second):
		t.Error("Server did not shut down")
	}
}

// freeAddr reserves a loopback port and releases it
func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to reserve port: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

// collector is a stream sink recording every payload
type collector struct {
	mu       sync.Mutex
	payloads []dlevent.Payload
}

func (c *collector) Append(p dlevent.Payload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, p)
}

// hasMessage reports whether a structured payload with message arrived
func (c *collector) hasMessage(message string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.payloads {
		if !p.IsText && p.Event.Message == message {
			return true
		}
	}
	return false
}

// startStream subscribes to the server at addr
func startStream(t *testing.T, addr string) (*dlstream.Client, *collector) {
	t.Helper()
	endpoint, err := dlstream.Endpoint("http://" + addr)
	if err != nil {
		t.Fatalf("Endpoint failed: %v", err)
	}

	sink := &collector{}
	client := dlstream.New(dlstream.Config{
		Endpoint: endpoint,
		Sink:     sink,
		Policy:   dlstream.RetryPolicy{Delay: 100 * time.Millisecond},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = client.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return client, sink
}

// waitFor polls condition until it holds or timeout passes
func waitFor(t *testing.T, timeout time.Duration, condition func() bool, description string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", description)
}
