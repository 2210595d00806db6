package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"sburbterm/internal/game/commands"
)

type Game interface {
	Execute(ctx context.Context, input string) (commands.Response, error)
}

type animationTickMsg struct{}

type commandResultMsg struct {
	input    string
	response commands.Response
	err      error
}

func animationTimer() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return animationTickMsg{}
	})
}

func executeCommand(ctx context.Context, game Game, feed *Feed, input string) tea.Cmd {
	return func() tea.Msg {
		if feed != nil {
			feed.busy.Store(true)
			defer feed.busy.Store(false)
		}
		resp, err := game.Execute(ctx, input)
		return commandResultMsg{input: input, response: resp, err: err}
	}
}
