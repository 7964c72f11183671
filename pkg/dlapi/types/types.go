package types

import (
	"time"

	"github.com/txn2/devlog/pkg/dlevent"
)

// Response is the standard API response wrapper
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo provides error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo provides response metadata
type MetaInfo struct {
	Count     int       `json:"count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Error codes used in ErrorInfo
const (
	CodeNotReady   = "NOT_READY"
	CodeNotFound   = "NOT_FOUND"
	CodeBadRequest = "BAD_REQUEST"
	CodeInternal   = "INTERNAL_ERROR"
)

// === Channel Types ===

// ChannelResponse represents a channel in API responses
type ChannelResponse struct {
	ID           string    `json:"platform_channel_id"`
	Name         string    `json:"name"`
	GuildName    string    `json:"guild_name,omitempty"`
	CategoryName string    `json:"category_name,omitempty"`
	IsActive     bool      `json:"is_active"`
	IsForwarding bool      `json:"is_forwarding"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ChannelListResponse contains a list of channels
type ChannelListResponse struct {
	Channels []ChannelResponse `json:"channels"`
}

// ForwardingRequest is the body of POST /api/channels/:id/forwarding
type ForwardingRequest struct {
	IsForwarding *bool `json:"is_forwarding" binding:"required"`
}

// === Log Types ===

// LogsResponse contains recent log events, oldest first
type LogsResponse struct {
	Logs []dlevent.LogEvent `json:"logs"`
}

// ClearResponse reports how many entries a clear removed
type ClearResponse struct {
	Removed int `json:"removed"`
}

// === Health Types ===

// HealthResponse provides health status
type HealthResponse struct {
	Status      string    `json:"status"`
	Version     string    `json:"version"`
	Uptime      string    `json:"uptime"`
	Subscribers int       `json:"subscribers"`
	Timestamp   time.Time `json:"timestamp"`
}

// InfoResponse provides detailed runtime information
type InfoResponse struct {
	Version      string    `json:"version"`
	GoVersion    string    `json:"goVersion"`
	Platform     string    `json:"platform"`
	StartTime    time.Time `json:"startTime"`
	Uptime       string    `json:"uptime"`
	ChannelCount int       `json:"channelCount"`
	HistorySize  int       `json:"historySize"`
}

// === Provider Interfaces ===

// Channel is a channel record as held by a ChannelStore
type Channel struct {
	ID           string
	Name         string
	GuildName    string
	CategoryName string
	Active       bool
	Forwarding   bool
	UpdatedAt    time.Time
}

// ChannelStore provides channel records and their flags
type ChannelStore interface {
	List() []Channel
	Get(id string) (Channel, bool)
	SetForwarding(id string, forwarding bool) (Channel, error)
	SetActive(id string, active bool) (Channel, error)
}

// LogHistory provides access to the recent log event history
type LogHistory interface {
	// GetLast returns the last n events, oldest first
	GetLast(n int) []dlevent.LogEvent
	// Count returns the number of events held
	Count() int
	// Clear removes all events and returns how many were removed
	Clear() int
}

// Publisher delivers a log event to every stream subscriber and
// records it in the history
type Publisher interface {
	Publish(e dlevent.LogEvent)
}

// SubscriberCounter reports connected stream subscribers
type SubscriberCounter interface {
	Count() int
}
