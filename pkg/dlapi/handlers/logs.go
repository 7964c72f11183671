package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/txn2/devlog/pkg/dlapi/types"
	"github.com/txn2/devlog/pkg/dlevent"
)

const (
	defaultLogCount = 100
	maxLogCount     = 1000
)

// LogsHandler handles log history endpoints
type LogsHandler struct {
	history   types.LogHistory
	publisher types.Publisher
}

// NewLogsHandler creates a new logs handler
func NewLogsHandler(history types.LogHistory, publisher types.Publisher) *LogsHandler {
	return &LogsHandler{
		history:   history,
		publisher: publisher,
	}
}

func notReady(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, types.Response{
		Success: false,
		Error: &types.ErrorInfo{
			Code:    types.CodeNotReady,
			Message: what + " not available",
		},
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, types.Response{
		Success: false,
		Error: &types.ErrorInfo{
			Code:    types.CodeBadRequest,
			Message: message,
		},
	})
}

// Recent returns recent log events, oldest first
func (h *LogsHandler) Recent(c *gin.Context) {
	if h.history == nil {
		notReady(c, "Log history")
		return
	}

	count, err := strconv.Atoi(c.DefaultQuery("count", strconv.Itoa(defaultLogCount)))
	if err != nil || count < 1 {
		count = defaultLogCount
	}
	if count > maxLogCount {
		count = maxLogCount
	}

	logs := h.history.GetLast(count)
	if logs == nil {
		logs = []dlevent.LogEvent{}
	}

	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Data:    types.LogsResponse{Logs: logs},
		Meta: &types.MetaInfo{
			Count:     len(logs),
			Timestamp: time.Now(),
		},
	})
}

// Inject broadcasts a client-supplied log event
func (h *LogsHandler) Inject(c *gin.Context) {
	if h.publisher == nil {
		notReady(c, "Log stream")
		return
	}

	var e dlevent.LogEvent
	if err := c.ShouldBindJSON(&e); err != nil {
		badRequest(c, "Invalid log event: "+err.Error())
		return
	}

	h.publisher.Publish(e)

	c.JSON(http.StatusAccepted, types.Response{
		Success: true,
		Data:    e,
		Meta: &types.MetaInfo{
			Timestamp: time.Now(),
		},
	})
}

// Clear empties the log history
func (h *LogsHandler) Clear(c *gin.Context) {
	if h.history == nil {
		notReady(c, "Log history")
		return
	}

	removed := h.history.Clear()

	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Data:    types.ClearResponse{Removed: removed},
		Meta: &types.MetaInfo{
			Timestamp: time.Now(),
		},
	})
}
