package dlmcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/pkg/errors"
	"github.com/txn2/devlog/pkg/dlevent"
)

// resourceLogCount is how many events devlog://logs returns
const resourceLogCount = 100

// registerResources registers all MCP resources
func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "devlog://channels",
		Name:        "Channels",
		Description: "Every channel known to the devlog server with its forwarding flag",
		MIMEType:    "application/json",
	}, s.handleChannelsResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "devlog://logs",
		Name:        "Recent Logs",
		Description: "The most recent log events broadcast by the devlog server, oldest first",
		MIMEType:    "application/json",
	}, s.handleLogsResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "devlog://health",
		Name:        "Server Health",
		Description: "Status, version, uptime and subscriber count of the devlog server",
		MIMEType:    "application/json",
	}, s.handleHealthResource)
}

func (s *Server) handleChannelsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	channels, err := s.client.ListChannels(ctx)
	if err != nil {
		return nil, classifyError(err, s.client.BaseURL(), "")
	}

	result := make([]map[string]interface{}, len(channels))
	for i, ch := range channels {
		result[i] = channelData(ch)
	}
	return jsonResource(req.Params.URI, result)
}

func (s *Server) handleLogsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	events, err := s.client.RecentLogs(ctx, resourceLogCount)
	if err != nil {
		return nil, classifyError(err, s.client.BaseURL(), "")
	}

	result := make([]map[string]interface{}, len(events))
	for i, e := range events {
		result[i] = map[string]interface{}{
			"level":   dlevent.Severity(dlevent.FromEvent(e)),
			"logger":  e.Logger,
			"message": e.Message,
		}
		if t, ok := e.Time(); ok {
			result[i]["timestamp"] = t
		}
	}
	return jsonResource(req.Params.URI, result)
}

func (s *Server) handleHealthResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	health, err := s.client.Health(ctx)
	if err != nil {
		return nil, classifyError(err, s.client.BaseURL(), "")
	}
	return jsonResource(req.Params.URI, health)
}

func jsonResource(uri string, v interface{}) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %s", uri)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
