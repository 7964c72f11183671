package dlmcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/txn2/devlog/pkg/dlapi/types"
	"github.com/txn2/devlog/pkg/dlevent"
)

// Log count limits for get_recent_logs
const (
	defaultLogCount = 50
	maxLogCount     = 1000
)

// Tool input types

type ListChannelsInput struct {
	Forwarding string `json:"forwarding,omitempty" jsonschema:"Filter by forwarding flag: on, off, or all"`
	Guild      string `json:"guild,omitempty" jsonschema:"Filter by guild name"`
}

type GetChannelInput struct {
	ChannelID string `json:"channel_id" jsonschema:"Platform channel id"`
}

type SetChannelForwardingInput struct {
	ChannelID  string `json:"channel_id" jsonschema:"Platform channel id"`
	Forwarding bool   `json:"forwarding" jsonschema:"true to forward messages from the channel, false to stop"`
}

type GetRecentLogsInput struct {
	Count  int    `json:"count,omitempty" jsonschema:"Number of log events to return (default: 50, max: 1000)"`
	Level  string `json:"level,omitempty" jsonschema:"Filter by level: debug, info, warning, error, critical, or all"`
	Logger string `json:"logger,omitempty" jsonschema:"Filter by logger name"`
	Search string `json:"search,omitempty" jsonschema:"Search term to filter log messages"`
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_channels",
		Description: "List channels known to the devlog server with their active and forwarding flags.",
	}, s.handleListChannels)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_channel",
		Description: "Get one channel by platform id, including when its flags last changed.",
	}, s.handleGetChannel)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "set_channel_forwarding",
		Description: "Turn message forwarding on or off for a channel. Returns the stored channel.",
	}, s.handleSetChannelForwarding)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_recent_logs",
		Description: "Get recent developer log events from the server history, oldest first. Filter by level, logger or text.",
	}, s.handleGetRecentLogs)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_health",
		Description: "Get devlog server health: status, version, uptime and connected stream subscribers.",
	}, s.handleGetHealth)
}

func channelData(ch types.ChannelResponse) map[string]interface{} {
	return map[string]interface{}{
		"id":           ch.ID,
		"name":         ch.Name,
		"guild":        ch.GuildName,
		"category":     ch.CategoryName,
		"isActive":     ch.IsActive,
		"isForwarding": ch.IsForwarding,
		"updatedAt":    ch.UpdatedAt,
	}
}

func textResult(format string, args ...interface{}) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

func (s *Server) handleListChannels(ctx context.Context, req *mcp.CallToolRequest, input ListChannelsInput) (*mcp.CallToolResult, any, error) {
	switch input.Forwarding {
	case "", "all", "on", "off":
	default:
		return nil, nil, NewInvalidInputError("forwarding", input.Forwarding, "must be on, off, or all")
	}

	channels, err := s.client.ListChannels(ctx)
	if err != nil {
		return nil, nil, classifyError(err, s.client.BaseURL(), "")
	}

	filtered := []map[string]interface{}{}
	forwarding := 0
	for _, ch := range channels {
		if input.Forwarding == "on" && !ch.IsForwarding {
			continue
		}
		if input.Forwarding == "off" && ch.IsForwarding {
			continue
		}
		if input.Guild != "" && !strings.EqualFold(ch.GuildName, input.Guild) {
			continue
		}
		if ch.IsForwarding {
			forwarding++
		}
		filtered = append(filtered, channelData(ch))
	}

	result := map[string]interface{}{
		"channels":   filtered,
		"count":      len(filtered),
		"forwarding": forwarding,
	}

	return textResult("Found %d channels (%d forwarding)", len(filtered), forwarding), result, nil
}

func (s *Server) handleGetChannel(ctx context.Context, req *mcp.CallToolRequest, input GetChannelInput) (*mcp.CallToolResult, any, error) {
	if input.ChannelID == "" {
		return nil, nil, NewInvalidInputError("channel_id", input.ChannelID, "is required")
	}

	ch, err := s.client.GetChannel(ctx, input.ChannelID)
	if err != nil {
		return nil, nil, classifyError(err, s.client.BaseURL(), input.ChannelID)
	}

	return textResult("Channel %s (%s): forwarding %s", ch.Name, ch.ID, onOff(ch.IsForwarding)), channelData(ch), nil
}

func (s *Server) handleSetChannelForwarding(ctx context.Context, req *mcp.CallToolRequest, input SetChannelForwardingInput) (*mcp.CallToolResult, any, error) {
	if input.ChannelID == "" {
		return nil, nil, NewInvalidInputError("channel_id", input.ChannelID, "is required")
	}

	ch, err := s.client.UpdateForwarding(ctx, input.ChannelID, input.Forwarding)
	if err != nil {
		return nil, nil, classifyError(err, s.client.BaseURL(), input.ChannelID)
	}

	return textResult("Forwarding %s for channel %s (%s)", onOff(ch.IsForwarding), ch.Name, ch.ID), channelData(ch), nil
}

func (s *Server) handleGetRecentLogs(ctx context.Context, req *mcp.CallToolRequest, input GetRecentLogsInput) (*mcp.CallToolResult, any, error) {
	count := input.Count
	if count <= 0 {
		count = defaultLogCount
	}
	if count > maxLogCount {
		count = maxLogCount
	}

	events, err := s.client.RecentLogs(ctx, count)
	if err != nil {
		return nil, nil, classifyError(err, s.client.BaseURL(), "")
	}

	level := strings.ToUpper(input.Level)
	filtered := []map[string]interface{}{}
	for _, e := range events {
		severity := dlevent.Severity(dlevent.FromEvent(e))

		if level != "" && level != "ALL" && severity != level {
			continue
		}
		if input.Logger != "" && !strings.EqualFold(e.Logger, input.Logger) {
			continue
		}
		if input.Search != "" && !strings.Contains(strings.ToLower(e.Message), strings.ToLower(input.Search)) {
			continue
		}

		entry := map[string]interface{}{
			"level":   severity,
			"logger":  e.Logger,
			"message": e.Message,
		}
		if t, ok := e.Time(); ok {
			entry["timestamp"] = t
		}
		if e.Type != "" {
			entry["type"] = e.Type
		}
		filtered = append(filtered, entry)
	}

	result := map[string]interface{}{
		"logs":  filtered,
		"count": len(filtered),
	}

	return textResult("Retrieved %d log events", len(filtered)), result, nil
}

func (s *Server) handleGetHealth(ctx context.Context, req *mcp.CallToolRequest, input struct{}) (*mcp.CallToolResult, any, error) {
	health, err := s.client.Health(ctx)
	if err != nil {
		return nil, nil, classifyError(err, s.client.BaseURL(), "")
	}

	result := map[string]interface{}{
		"status":      health.Status,
		"version":     health.Version,
		"uptime":      health.Uptime,
		"subscribers": health.Subscribers,
		"server":      s.client.BaseURL(),
		"mcpVersion":  s.version,
	}

	return textResult("devlog %s: %s (up %s, %d subscribers)",
		health.Version, health.Status, health.Uptime, health.Subscribers), result, nil
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
