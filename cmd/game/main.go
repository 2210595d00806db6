// Command game runs a terminal SBURB session. With no arguments it opens the
// interactive terminal; "serve" exposes the session over websocket, "mcp"
// over stdio MCP, and "review"/"rate" inspect the command log.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"sburbterm/cmd/game/ui"
	"sburbterm/internal/config"
	"sburbterm/internal/mcp"
	"sburbterm/internal/transport/ws"
)

const usage = `usage: game [command]

commands:
  (none)                   play in the terminal
  serve                    play over websocket at SBURB_ADDR
  mcp                      expose the game as an MCP server on stdio
  review [n]               show the n most recent logged commands (default 10)
  rate <id> <1-5> [notes]  rate a logged command`

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("config: %v", err)
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "review", "--review":
			n := 10
			if len(os.Args) > 2 {
				if n, err = strconv.Atoi(os.Args[2]); err != nil || n < 1 {
					config.Exitf("review: count must be a positive number")
				}
			}
			runReviewMode(cfg, n)
			return
		case "rate":
			if len(os.Args) < 4 {
				fmt.Println("Usage: game rate <id> <rating> [notes]")
				return
			}
			runRatingMode(cfg, os.Args[2:])
			return
		case "serve":
			runServer(cfg)
			return
		case "mcp":
			runMCP(cfg)
			return
		case "help", "-h", "--help":
			fmt.Println(usage)
			return
		default:
			config.Exitf("unknown command %q\n\n%s", os.Args[1], usage)
		}
	}

	runTerminal(cfg)
}

func runTerminal(cfg config.Config) {
	a, cleanup, err := createApp(cfg)
	if err != nil {
		config.Exitf("Error: %v", err)
	}
	defer cleanup()

	feed := ui.NewFeed(a.bus)
	defer feed.Close()

	model := ui.NewModel(a.ctx, a.engine, feed, a.debug, a.resume())
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v", err)
	}
}

func runServer(cfg config.Config) {
	a, cleanup, err := createApp(cfg)
	if err != nil {
		config.Exitf("Error: %v", err)
	}
	defer cleanup()
	if msg := a.resume(); msg != "" {
		fmt.Println(msg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Listening on ws://%s/ws\n", cfg.Addr)
	if err := ws.NewServer(a.engine, a.bus, a.debug).ListenAndServe(ctx, cfg.Addr); err != nil {
		fmt.Printf("Error: %v\n", err)
	}
	if err := a.engine.Save(context.Background()); err != nil {
		a.debug.Printf("save on shutdown: %v", err)
	}
}

func runMCP(cfg config.Config) {
	a, cleanup, err := createApp(cfg)
	if err != nil {
		config.Exitf("Error: %v", err)
	}
	defer cleanup()
	a.resume()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mcp.New(a.engine, a.debug).Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}
