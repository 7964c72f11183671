// Package dlmcp provides an MCP (Model Context Protocol) server for devlog.
// It bridges tool calls to a running devlog server's REST API so an AI
// assistant can inspect channels, flip forwarding and read recent logs.
package dlmcp

import (
	"context"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/txn2/devlog/pkg/dlapi/types"
	"github.com/txn2/devlog/pkg/dlevent"
)

// APIClient is the part of the devlog REST API the tools use
type APIClient interface {
	BaseURL() string
	ListChannels(ctx context.Context) ([]types.ChannelResponse, error)
	GetChannel(ctx context.Context, id string) (types.ChannelResponse, error)
	UpdateForwarding(ctx context.Context, id string, forwarding bool) (types.ChannelResponse, error)
	RecentLogs(ctx context.Context, count int) ([]dlevent.LogEvent, error)
	Health(ctx context.Context) (types.HealthResponse, error)
}

// Server manages the MCP server lifecycle
type Server struct {
	mcpServer *mcp.Server
	version   string
	client    APIClient

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// New creates an MCP server whose tools call client
func New(version string, client APIClient) *Server {
	s := &Server{
		version: version,
		client:  client,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	s.setupServer()
	return s
}

// setupServer creates the MCP server and registers tools, resources and prompts
func (s *Server) setupServer() {
	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    "devlog",
		Version: s.version,
	}, nil)

	s.registerTools()
	s.registerResources()
	s.registerPrompts()
}

// Run serves MCP on stdio until ctx is done, Stop is called or the
// client disconnects
func (s *Server) Run(ctx context.Context) error {
	return s.RunTransport(ctx, &mcp.StdioTransport{})
}

// RunTransport serves MCP on transport
func (s *Server) RunTransport(ctx context.Context, transport mcp.Transport) error {
	defer close(s.doneCh)

	// Create a context that cancels when stop is called
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-runCtx.Done():
		}
	}()

	return s.mcpServer.Run(runCtx, transport)
}

// Stop signals the server to stop
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// Done returns a channel that closes when the server stops
func (s *Server) Done() <-chan struct{} {
	return s.doneCh
}
