package dlmcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerPrompts registers all MCP prompts
func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        "triage_errors",
		Description: "Walk through recent ERROR and WARNING log events and suggest causes",
		Arguments: []*mcp.PromptArgument{
			{
				Name:        "logger",
				Description: "Only look at events from this logger (optional)",
				Required:    false,
			},
		},
	}, s.handleTriageErrorsPrompt)

	s.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        "review_forwarding",
		Description: "Summarize which channels forward messages and flag anything unexpected",
		Arguments: []*mcp.PromptArgument{
			{
				Name:        "guild",
				Description: "Limit the review to one guild (optional)",
				Required:    false,
			},
		},
	}, s.handleReviewForwardingPrompt)
}

func (s *Server) handleTriageErrorsPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	logger := ""
	if req.Params.Arguments != nil {
		logger = req.Params.Arguments["logger"]
	}

	content := "You are triaging problems reported in a devlog server's log stream.\n\n"
	if logger != "" {
		content += fmt.Sprintf("Focus on events from the logger: %s\n\n", logger)
	}

	content += `1. **Collect**
   - Use 'get_recent_logs' with level ERROR, then with level WARNING
   - Connection-loss and parse-failure events come from the System logger

2. **Group**
   - Group events by logger and by repeated message text
   - Note the first and last timestamp of each group

3. **Explain**
   - For each group give the most likely cause in one or two sentences
   - Say whether it is still happening, based on the latest timestamps

4. **Check the server**
   - Use 'get_health' to confirm the server is up and has subscribers

Keep the answer short and ordered by severity.`

	return &mcp.GetPromptResult{
		Description: "Triage recent devlog errors",
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: content},
			},
		},
	}, nil
}

func (s *Server) handleReviewForwardingPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	guild := ""
	if req.Params.Arguments != nil {
		guild = req.Params.Arguments["guild"]
	}

	content := "You are reviewing message forwarding on a devlog server.\n\n"
	if guild != "" {
		content += fmt.Sprintf("Only consider channels in the guild: %s\n\n", guild)
	}

	content += `1. Use 'list_channels' with forwarding "on" and then "off"
2. List the forwarding channels by guild and category
3. Point out inactive channels that still forward, and active ones that do not
4. Do not change anything; suggest 'set_channel_forwarding' calls for the user to approve`

	return &mcp.GetPromptResult{
		Description: "Review channel forwarding",
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: content},
			},
		},
	}, nil
}
