// Package mcp provides the MCP (Model Context Protocol) subcommand for devlog.
// This command starts an MCP server that connects to a running devlog REST API,
// letting AI assistants list channels, change forwarding and read recent logs.
package mcp

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/txn2/devlog/pkg/dlcfg"
	"github.com/txn2/devlog/pkg/dlclient"
	"github.com/txn2/devlog/pkg/dlmcp"
)

var (
	apiURL  string
	verbose bool
)

// Version is set by the main package
var Version string

func init() {
	Cmd.Flags().StringVar(&apiURL, "api-url", dlcfg.DefaultServerURL, "URL of the devlog server")
	Cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

// Cmd is the MCP subcommand
var Cmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server (connects to devlog REST API)",
	Long: `Start an MCP (Model Context Protocol) server that connects to a running
devlog server via its REST API.

Architecture:
  ┌─────────────┐    stdio     ┌─────────────┐    HTTP      ┌──────────────┐
  │  AI Client  │ ←──────────→ │ devlog mcp  │ ←──────────→ │ devlog serve │
  └─────────────┘   MCP proto  └─────────────┘   REST API   └──────────────┘

Prerequisites:
  1. Start the server in a separate terminal:
     devlog serve

  2. Configure your MCP client:
     {
       "mcpServers": {
         "devlog": {
           "command": "devlog",
           "args": ["mcp"]
         }
       }
     }

Tools:
  - list_channels, get_channel
  - set_channel_forwarding
  - get_recent_logs
  - get_health

Resources: devlog://channels, devlog://logs, devlog://health
Prompts:   triage_errors, review_forwarding`,
	Example: `  # Start MCP server (connects to http://127.0.0.1:8000)
  devlog mcp

  # Connect to a custom server URL
  devlog mcp --api-url http://10.0.0.5:8000

  # With verbose logging (logs go to stderr, not interfering with stdio MCP)
  devlog mcp --verbose`,
	Run: runMCP,
}

func runMCP(_ *cobra.Command, _ []string) {
	// stdout carries the MCP stdio transport
	log.SetOutput(os.Stderr)
	if verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	log.Infof("Starting devlog MCP server (version %s)", Version)
	log.Infof("Connecting to REST API at: %s", apiURL)

	client := dlclient.NewHTTPClient(apiURL)
	server := dlmcp.New(Version, client)

	// Tools stay registered when the API is down; they return api_unavailable
	if err := verifyAPIConnection(apiURL); err != nil {
		log.Warnf("Cannot connect to devlog API at %s: %v", apiURL, err)
		log.Warn("MCP server will start but tools require the server to be running.")
		log.Warn("Start it in another terminal with: devlog serve")
	} else {
		log.Info("API connection verified")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("MCP server initialized, starting stdio transport...")
	if err := server.Run(ctx); err != nil {
		log.Errorf("MCP server error: %v", err)
		os.Exit(1)
	}

	log.Info("MCP server stopped")
}

// verifyAPIConnection checks if the devlog API is reachable
func verifyAPIConnection(baseURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health, err := dlclient.NewHTTPClient(baseURL).Health(ctx)
	if err != nil {
		return errors.Wrap(err, "health check failed")
	}
	if health.Status != "healthy" {
		return errors.Errorf("server reports status %q", health.Status)
	}
	return nil
}
