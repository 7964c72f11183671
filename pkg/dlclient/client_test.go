package dlclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/txn2/devlog/pkg/dlapi"
	"github.com/txn2/devlog/pkg/dlchannels"
	"github.com/txn2/devlog/pkg/dlevent"
)

func newTestServer(t *testing.T) (*httptest.Server, *dlapi.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := dlchannels.New([]dlchannels.Channel{
		{ID: "1001", Name: "alerts", Guild: "ops", Category: "feeds"},
		{ID: "1002", Name: "signals", Forwarding: true},
	})
	if err != nil {
		t.Fatalf("Store setup failed: %v", err)
	}
	m := dlapi.New(dlapi.Config{Version: "test"}, dlapi.NewChannelStoreAdapter(store))
	srv := httptest.NewServer(m.Handler())
	t.Cleanup(srv.Close)
	return srv, m
}

func TestNewHTTPClientTrimsSlash(t *testing.T) {
	c := NewHTTPClient("http://localhost:8000/")
	if c.BaseURL() != "http://localhost:8000" {
		t.Errorf("Unexpected base URL %s", c.BaseURL())
	}
}

func TestChannels(t *testing.T) {
	srv, _ := newTestServer(t)
	c := NewHTTPClient(srv.URL)
	ctx := context.Background()

	channels, err := c.ListChannels(ctx)
	if err != nil {
		t.Fatalf("ListChannels failed: %v", err)
	}
	if len(channels) != 2 {
		t.Fatalf("Expected 2 channels, got %d", len(channels))
	}
	if channels[0].ID != "1001" || channels[0].GuildName != "ops" || channels[0].CategoryName != "feeds" {
		t.Errorf("Unexpected channel: %+v", channels[0])
	}

	ch, err := c.GetChannel(ctx, "1002")
	if err != nil {
		t.Fatalf("GetChannel failed: %v", err)
	}
	if !ch.IsForwarding {
		t.Error("Expected 1002 forwarding")
	}

	_, err = c.GetChannel(ctx, "missing")
	if !IsNotFound(err) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestSetForwarding(t *testing.T) {
	srv, _ := newTestServer(t)
	c := NewHTTPClient(srv.URL)
	ctx := context.Background()

	ch, err := c.UpdateForwarding(ctx, "1001", true)
	if err != nil {
		t.Fatalf("UpdateForwarding failed: %v", err)
	}
	if !ch.IsForwarding {
		t.Error("Expected forwarding on")
	}

	if err := c.SetForwarding(ctx, "1001", false); err != nil {
		t.Fatalf("SetForwarding failed: %v", err)
	}
	ch, _ = c.GetChannel(ctx, "1001")
	if ch.IsForwarding {
		t.Error("Expected forwarding off")
	}

	err = c.SetForwarding(ctx, "9999", true)
	if err == nil {
		t.Fatal("Expected error for unknown channel")
	}
	if !IsNotFound(err) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestLogs(t *testing.T) {
	srv, m := newTestServer(t)
	c := NewHTTPClient(srv.URL)
	ctx := context.Background()

	logs, err := c.RecentLogs(ctx, 10)
	if err != nil {
		t.Fatalf("RecentLogs failed: %v", err)
	}
	if len(logs) != 0 {
		t.Errorf("Expected no logs, got %d", len(logs))
	}

	m.Broadcaster().Publish(dlevent.LogEvent{Type: dlevent.TypeLog, Level: "INFO", Message: "first"})
	m.Broadcaster().Publish(dlevent.LogEvent{Type: dlevent.TypeLog, Level: "INFO", Message: "second"})

	logs, err = c.RecentLogs(ctx, 10)
	if err != nil {
		t.Fatalf("RecentLogs failed: %v", err)
	}
	if len(logs) != 2 || logs[0].Message != "first" || logs[1].Message != "second" {
		t.Errorf("Unexpected logs: %+v", logs)
	}

	removed, err := c.ClearLogs(ctx)
	if err != nil {
		t.Fatalf("ClearLogs failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 removed, got %d", removed)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	c := NewHTTPClient(srv.URL)

	health, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Status != "healthy" || health.Version != "test" {
		t.Errorf("Unexpected health: %+v", health)
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		code    string
		message string
	}{
		{"wrapped error", http.StatusServiceUnavailable, `{"success":false,"error":{"code":"NOT_READY","message":"Channel store not available"}}`, "NOT_READY", "Channel store not available"},
		{"plain text", http.StatusBadGateway, "upstream down", "", "upstream down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHTTPClient(srv.URL).ListChannels(context.Background())
			apiErr, ok := err.(*APIError)
			if !ok {
				t.Fatalf("Expected *APIError, got %T: %v", err, err)
			}
			if apiErr.StatusCode != tt.status || apiErr.Code != tt.code || apiErr.Message != tt.message {
				t.Errorf("Unexpected error: %+v", apiErr)
			}
		})
	}
}

func TestUnsuccessfulEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"X","message":"nope"}}`))
	}))
	defer srv.Close()

	if _, err := NewHTTPClient(srv.URL).ListChannels(context.Background()); err == nil || err.Error() != "nope" {
		t.Errorf("Expected envelope error, got %v", err)
	}
}

func TestConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if err := NewHTTPClient(url).SetForwarding(context.Background(), "1", true); err == nil {
		t.Error("Expected connection error")
	}
}

func TestContextCanceled(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewHTTPClient(srv.URL).ListChannels(ctx); err == nil {
		t.Error("Expected error on canceled context")
	}
}
