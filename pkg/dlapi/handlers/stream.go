package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/txn2/devlog/pkg/dlevent"
	"github.com/txn2/devlog/pkg/dlhub"
)

// GreetingMessage is sent to every new stream subscriber
const GreetingMessage = "Connected to developer log stream"

// StreamHandler upgrades requests to websocket log subscriptions
type StreamHandler struct {
	hub      *dlhub.Hub
	upgrader websocket.Upgrader
	buffer   int
}

// NewStreamHandler creates a new stream handler. Any origin is accepted.
func NewStreamHandler(hub *dlhub.Hub, buffer int) *StreamHandler {
	return &StreamHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		buffer: buffer,
	}
}

// Stream serves one subscriber until it disconnects
func (h *StreamHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		log.Debugf("Websocket upgrade failed: %v", err)
		return
	}

	client := dlhub.NewClient(conn, h.buffer)
	_ = client.Send(Greeting(time.Now()))

	h.hub.Register(client)
	defer h.hub.Unregister(client)

	client.Serve()
}

// Greeting returns the connection frame sent to new subscribers
func Greeting(now time.Time) []byte {
	e := dlevent.LogEvent{
		Type:    dlevent.TypeConnection,
		Status:  "connected",
		Message: GreetingMessage,
	}
	return []byte(e.Stamp(now).JSON())
}
