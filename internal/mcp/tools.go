package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"sburbterm/internal/persistence"
)

const statusURI = "game://status"

type ExecuteInput struct {
	Command string `json:"command" jsonschema:"one line of player input, e.g. 'explore' or 'choose 1'"`
}

type CommandResult struct {
	Command   string `json:"command"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

type StatusInput struct{}

type SaveInput struct{}

type SaveResult struct {
	Saved  bool   `json:"saved"`
	Detail string `json:"detail"`
}

func registerGameTools(s *Server) {
	mcp.AddTool(s.mcpServer, ExecuteTool(), s.executeHandler)
	mcp.AddTool(s.mcpServer, StatusTool(), s.statusHandler)
	mcp.AddTool(s.mcpServer, SaveTool(), s.saveHandler)
	mcp.AddTool(s.mcpServer, LoadTool(), s.loadHandler)
}

func registerGameResources(s *Server) {
	s.mcpServer.AddResource(StatusResource(), s.statusResourceHandler)
}

func ExecuteTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "execute_command",
		Description: "Runs one game command, exactly as if typed at the terminal",
	}
}

func StatusTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "game_status",
		Description: "Returns the player, active echoes, pending choices and current land",
	}
}

func SaveTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "save_game",
		Description: "Saves the game to its configured slot",
	}
}

func LoadTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "load_game",
		Description: "Loads the game from its configured slot",
	}
}

func StatusResource() *mcp.Resource {
	return &mcp.Resource{
		Name:        "game_status",
		Title:       "Game Status",
		Description: "Readable snapshot of the current game",
		MIMEType:    "application/json",
		URI:         statusURI,
	}
}

func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}

func (s *Server) executeHandler(ctx context.Context, _ *mcp.CallToolRequest, in ExecuteInput) (*mcp.CallToolResult, CommandResult, error) {
	var out CommandResult
	var err error
	s.locked(func() {
		resp, execErr := s.game.Execute(ctx, in.Command)
		if execErr != nil {
			err = execErr
			return
		}
		out = CommandResult{
			Command:   resp.Command,
			Message:   resp.Message,
			Type:      string(resp.Kind),
			Timestamp: resp.Timestamp.Format(time.RFC3339),
		}
	})
	if err != nil {
		s.log.Printf("mcp: execute %q: %v", in.Command, err)
		return toolError(err), CommandResult{}, nil
	}
	return nil, out, nil
}

func (s *Server) statusHandler(_ context.Context, _ *mcp.CallToolRequest, _ StatusInput) (*mcp.CallToolResult, GameStatus, error) {
	var status GameStatus
	s.locked(func() { status = StatusFromEngine(s.game) })
	return nil, status, nil
}

func (s *Server) saveHandler(ctx context.Context, _ *mcp.CallToolRequest, _ SaveInput) (*mcp.CallToolResult, SaveResult, error) {
	var err error
	s.locked(func() { err = s.game.Save(ctx) })
	if err != nil {
		return toolError(fmt.Errorf("save: %w", err)), SaveResult{}, nil
	}
	return nil, SaveResult{Saved: true, Detail: "saved"}, nil
}

func (s *Server) loadHandler(ctx context.Context, _ *mcp.CallToolRequest, _ SaveInput) (*mcp.CallToolResult, SaveResult, error) {
	var err error
	s.locked(func() { err = s.game.Load(ctx) })
	switch {
	case errors.Is(err, persistence.ErrNoSave):
		return nil, SaveResult{Detail: "no saved game"}, nil
	case err != nil:
		return toolError(fmt.Errorf("load: %w", err)), SaveResult{}, nil
	}
	return nil, SaveResult{Saved: true, Detail: "loaded"}, nil
}

func (s *Server) statusResourceHandler(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := statusURI
	if req != nil && req.Params != nil && req.Params.URI != "" {
		uri = req.Params.URI
	}
	if uri != statusURI {
		return nil, fmt.Errorf("invalid URI: expected %s, got %q", statusURI, uri)
	}
	var status GameStatus
	s.locked(func() { status = StatusFromEngine(s.game) })
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal status: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: "application/json", Text: string(data)}},
	}, nil
}
