package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/txn2/devlog/pkg/dlapi/types"
)

// HealthHandler handles health and info endpoints
type HealthHandler struct {
	version     string
	startTime   time.Time
	subscribers types.SubscriberCounter
	channels    types.ChannelStore
	history     types.LogHistory
}

// NewHealthHandler creates a new health handler. Any provider may be nil.
func NewHealthHandler(version string, startTime time.Time, subscribers types.SubscriberCounter, channels types.ChannelStore, history types.LogHistory) *HealthHandler {
	return &HealthHandler{
		version:     version,
		startTime:   startTime,
		subscribers: subscribers,
		channels:    channels,
		history:     history,
	}
}

// Health returns health status
func (h *HealthHandler) Health(c *gin.Context) {
	uptime := time.Since(h.startTime)

	resp := types.HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Uptime:    uptime.Round(time.Second).String(),
		Timestamp: time.Now(),
	}
	if h.subscribers != nil {
		resp.Subscribers = h.subscribers.Count()
	}

	c.JSON(http.StatusOK, resp)
}

// Info returns detailed runtime information
func (h *HealthHandler) Info(c *gin.Context) {
	uptime := time.Since(h.startTime)

	response := types.InfoResponse{
		Version:   h.version,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		StartTime: h.startTime,
		Uptime:    uptime.Round(time.Second).String(),
	}
	if h.channels != nil {
		response.ChannelCount = len(h.channels.List())
	}
	if h.history != nil {
		response.HistorySize = h.history.Count()
	}

	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Data:    response,
		Meta: &types.MetaInfo{
			Timestamp: time.Now(),
		},
	})
}
