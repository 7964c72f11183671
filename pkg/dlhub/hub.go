// Package dlhub fans log frames out to websocket subscribers.
package dlhub

import (
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// Subscriber abstracts a streaming client. Send must not block.
type Subscriber interface {
	ID() string
	Send([]byte) error
	Close()
}

// Observer is notified of subscriber churn.
type Observer interface {
	SubscriberConnected()
	SubscriberDisconnected()
	SubscriberDropped()
}

// Hub tracks subscribers and broadcasts to all of them. A subscriber
// whose Send fails is closed and removed; the broadcaster never waits on
// a slow subscriber.
type Hub struct {
	clients   map[string]Subscriber
	register  chan Subscriber
	unreg     chan Subscriber
	broadcast chan []byte
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	count    atomic.Int64
	observer Observer
}

// NewHub creates a hub and starts its loop. observer may be nil.
func NewHub(observer Observer) *Hub {
	h := &Hub{
		clients:   make(map[string]Subscriber),
		register:  make(chan Subscriber),
		unreg:     make(chan Subscriber),
		broadcast: make(chan []byte),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		observer:  observer,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	defer close(h.stopped)
	for {
		select {
		case <-h.done:
			for id, c := range h.clients {
				c.Close()
				delete(h.clients, id)
				h.left()
			}
			return
		case c := <-h.register:
			h.clients[c.ID()] = c
			h.count.Add(1)
			if h.observer != nil {
				h.observer.SubscriberConnected()
			}
			log.Debugf("Stream subscriber %s connected", c.ID())
		case c := <-h.unreg:
			if _, ok := h.clients[c.ID()]; ok {
				delete(h.clients, c.ID())
				c.Close()
				h.left()
				log.Debugf("Stream subscriber %s disconnected", c.ID())
			}
		case payload := <-h.broadcast:
			for id, c := range h.clients {
				if err := c.Send(payload); err != nil {
					log.Debugf("Dropping stream subscriber %s: %v", id, err)
					c.Close()
					delete(h.clients, id)
					h.left()
					if h.observer != nil {
						h.observer.SubscriberDropped()
					}
				}
			}
		}
	}
}

func (h *Hub) left() {
	h.count.Add(-1)
	if h.observer != nil {
		h.observer.SubscriberDisconnected()
	}
}

// Register adds a subscriber.
func (h *Hub) Register(c Subscriber) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

// Unregister removes and closes a subscriber.
func (h *Hub) Unregister(c Subscriber) {
	select {
	case h.unreg <- c:
	case <-h.done:
	}
}

// Broadcast sends payload to every subscriber.
func (h *Hub) Broadcast(payload []byte) {
	select {
	case h.broadcast <- payload:
	case <-h.done:
	}
}

// Count returns the number of registered subscribers.
func (h *Hub) Count() int {
	return int(h.count.Load())
}

// Close disconnects every subscriber and stops the hub.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
	<-h.stopped
}
