package dlapi

import (
	"github.com/gin-gonic/gin"
	"github.com/txn2/devlog/pkg/dlapi/handlers"
	"github.com/txn2/devlog/pkg/dlapi/middleware"
)

// setupRouter creates and configures the Gin router with all routes
// URL structure:
//   - /ws         - log stream (websocket)
//   - /metrics    - Prometheus metrics
//   - /api/...    - REST API endpoints
func (m *Manager) setupRouter() *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Metrics(m.metrics))
	r.Use(middleware.CORS())
	r.Use(middleware.NoCache())
	r.Use(middleware.ErrorHandler())

	streamHandler := handlers.NewStreamHandler(m.hub, m.config.SendBuffer)
	r.GET("/ws", streamHandler.Stream)

	r.GET("/metrics", gin.WrapH(m.metrics.Handler()))

	api := r.Group("/api")
	{
		// Health endpoints
		healthHandler := handlers.NewHealthHandler(m.config.Version, m.startTime, m.hub, m.channels, m.history)
		api.GET("/health", healthHandler.Health)
		api.GET("/info", healthHandler.Info)

		// Logs endpoints
		logsHandler := handlers.NewLogsHandler(m.history, m.broadcaster)
		api.GET("/logs", logsHandler.Recent)
		api.POST("/logs", logsHandler.Inject)
		api.DELETE("/logs", logsHandler.Clear)

		// Channel endpoints
		channelsHandler := handlers.NewChannelsHandler(m.channels, m.metrics)
		api.GET("/channels", channelsHandler.List)
		api.GET("/channels/:id", channelsHandler.Get)
		api.POST("/channels/:id/forwarding", channelsHandler.SetForwarding)
		api.POST("/channels/:id/activate", channelsHandler.Activate)
		api.POST("/channels/:id/deactivate", channelsHandler.Deactivate)
	}

	return r
}
