// Package mcp exposes a running game to Model Context Protocol clients.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"sburbterm/internal/debug"
	"sburbterm/internal/engine"
)

const (
	serverName    = "sburbterm"
	serverVersion = "v1.0.0"
)

// Server hosts the game's MCP tools. Tool calls are serialized so a client
// sees the same one-command-at-a-time ordering the terminal does.
type Server struct {
	mcpServer *mcp.Server
	game      *engine.Engine
	log       *debug.Logger
	mu        sync.Mutex
}

func New(game *engine.Engine, log *debug.Logger) *Server {
	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil),
		game:      game,
		log:       log,
	}
	registerGameTools(s)
	registerGameResources(s)
	return s
}

// Run serves over stdio until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, &mcp.StdioTransport{})
}

// Serve runs the server on transport. Context cancellation is a clean stop.
func (s *Server) Serve(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	s.log.Printf("mcp: serving %s %s", serverName, serverVersion)
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

func (s *Server) locked(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}
