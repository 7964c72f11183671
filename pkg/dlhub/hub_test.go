package dlhub

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

type fakeSubscriber struct {
	id      string
	mu      sync.Mutex
	got     [][]byte
	failing bool
	closed  bool
}

func (f *fakeSubscriber) ID() string { return f.id }

func (f *fakeSubscriber) Send(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("write failed")
	}
	f.got = append(f.got, p)
	return nil
}

func (f *fakeSubscriber) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeSubscriber) received() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.got)
}

func (f *fakeSubscriber) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type countingObserver struct {
	mu           sync.Mutex
	connected    int
	disconnected int
	dropped      int
}

func (o *countingObserver) SubscriberConnected() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.connected++
}

func (o *countingObserver) SubscriberDisconnected() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.disconnected++
}

func (o *countingObserver) SubscriberDropped() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dropped++
}

func (o *countingObserver) snapshot() (int, int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.connected, o.disconnected, o.dropped
}

// drain waits for the hub loop to drain pending operations.
func drain(h *Hub) {
	probe := &fakeSubscriber{id: "probe"}
	h.Register(probe)
	h.Unregister(probe)
}

func TestHubBroadcast(t *testing.T) {
	obs := &countingObserver{}
	h := NewHub(obs)
	defer h.Close()

	a := &fakeSubscriber{id: "a"}
	b := &fakeSubscriber{id: "b"}
	h.Register(a)
	h.Register(b)
	h.Broadcast([]byte("one"))
	h.Broadcast([]byte("two"))
	drain(h)

	if a.received() != 2 || b.received() != 2 {
		t.Errorf("Expected 2 frames each, got a=%d b=%d", a.received(), b.received())
	}
	if h.Count() != 2 {
		t.Errorf("Expected 2 subscribers, got %d", h.Count())
	}
	if string(a.got[0]) != "one" || string(a.got[1]) != "two" {
		t.Errorf("Frames out of order: %q", a.got)
	}
}

func TestHubDropsFailingSubscriber(t *testing.T) {
	obs := &countingObserver{}
	h := NewHub(obs)
	defer h.Close()

	good := &fakeSubscriber{id: "good"}
	bad := &fakeSubscriber{id: "bad", failing: true}
	h.Register(good)
	h.Register(bad)
	h.Broadcast([]byte("x"))
	drain(h)

	if !bad.isClosed() {
		t.Error("Expected failing subscriber to be closed")
	}
	if h.Count() != 1 {
		t.Errorf("Expected 1 subscriber left, got %d", h.Count())
	}
	if good.received() != 1 {
		t.Errorf("Expected good subscriber to receive, got %d", good.received())
	}

	_, _, dropped := obs.snapshot()
	if dropped != 1 {
		t.Errorf("Expected 1 drop, got %d", dropped)
	}
}

func TestHubUnregister(t *testing.T) {
	obs := &countingObserver{}
	h := NewHub(obs)
	defer h.Close()

	a := &fakeSubscriber{id: "a"}
	h.Register(a)
	h.Unregister(a)
	h.Unregister(a)
	h.Broadcast([]byte("x"))
	drain(h)

	if a.received() != 0 {
		t.Error("Unregistered subscriber should not receive")
	}
	if !a.isClosed() {
		t.Error("Expected subscriber closed on unregister")
	}
	connected, disconnected, _ := obs.snapshot()
	// includes the probe from drain
	if connected != 2 || disconnected != 2 {
		t.Errorf("Expected 2/2 connect/disconnect, got %d/%d", connected, disconnected)
	}
}

func TestHubClose(t *testing.T) {
	h := NewHub(nil)
	a := &fakeSubscriber{id: "a"}
	h.Register(a)
	h.Close()
	h.Close()

	if !a.isClosed() {
		t.Error("Expected subscriber closed when hub closes")
	}
	if h.Count() != 0 {
		t.Errorf("Expected 0 subscribers, got %d", h.Count())
	}

	// must not block after close
	late := &fakeSubscriber{id: "late"}
	h.Register(late)
	h.Broadcast([]byte("x"))
	if !late.isClosed() {
		t.Error("Late subscriber should be closed")
	}
}

func TestClientOverWebsocket(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	upgrader := websocket.Upgrader{}
	registered := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewClient(conn, 4)
		if err := c.Send([]byte("hello")); err != nil {
			t.Errorf("greeting failed: %v", err)
		}
		h.Register(c)
		close(registered)
		c.Serve()
		h.Unregister(c)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	<-registered
	h.Broadcast([]byte("broadcast"))

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for _, want := range []string{"hello", "broadcast"} {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if string(msg) != want {
			t.Errorf("Expected %q, got %q", want, msg)
		}
	}
}

func TestClientSendLimits(t *testing.T) {
	c := &Client{id: "x", send: make(chan []byte, 1), done: make(chan struct{})}

	if err := c.Send([]byte("a")); err != nil {
		t.Fatalf("First send failed: %v", err)
	}
	if err := c.Send([]byte("b")); err != ErrSlowSubscriber {
		t.Errorf("Expected ErrSlowSubscriber, got %v", err)
	}

	c.closed = true
	if err := c.Send([]byte("c")); err != ErrClosed {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}
