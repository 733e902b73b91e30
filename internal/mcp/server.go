// Package mcp exposes office channels as MCP tools over stdio, so
// desktop assistants can read and post without a terminal attached.
package mcp

import (
	"context"
	"fmt"
	"os"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/adamavenir/office/internal/api"
	"github.com/adamavenir/office/internal/channel"
	"github.com/adamavenir/office/internal/core"
)

// Server bridges MCP tool calls to the office server.
type Server struct {
	version string
	client  *api.Client
	manager *channel.Manager
	channel string
}

// NewServer wires the client stack from the office config.
func NewServer(version string) (*Server, error) {
	config, err := core.ReadConfig()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := api.NewClient(config.ServerURL, config.Token)
	if err != nil {
		return nil, err
	}
	logf("Connected to %s", config.ServerURL)

	manager := channel.NewManager(channel.ManagerOptions{Client: client})

	return &Server{
		version: version,
		client:  client,
		manager: manager,
		channel: config.Channel(""),
	}, nil
}

// Run serves MCP over stdio until the context ends or stdin closes.
func (s *Server) Run(ctx context.Context) error {
	server := mcp.NewServer(&mcp.Implementation{Name: "office", Version: s.version}, nil)
	RegisterTools(server, &ToolContext{
		Client:  s.client,
		Manager: s.manager,
		Channel: s.channel,
	})
	return server.Run(ctx, &mcp.StdioTransport{})
}

// Close shuts down channel sessions.
func (s *Server) Close() error {
	s.manager.Shutdown()
	logf("Server closed")
	return nil
}

func logf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "[office-mcp] %s\n", fmt.Sprintf(format, args...))
}
