package ui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"sburbterm/internal/debug"
	"sburbterm/internal/game"
)

// InputHistorySize bounds the up/down recall buffer.
const InputHistorySize = 50

// Line styles beyond the response kinds and narrative styles.
const (
	stylePlayer  = "player"
	styleDebug   = "debug"
	styleLoading = "loading"
	styleBanner  = "banner"
)

type line struct {
	text  string
	style string
}

type Model struct {
	ctx   context.Context
	game  Game
	feed  *Feed
	debug *debug.Logger

	lines  []line
	input  string
	width  int
	height int

	loading        bool
	animationFrame int

	history *game.History[string]
	recall  int // index into history while browsing; -1 when editing
}

func NewModel(ctx context.Context, g Game, feed *Feed, debugLogger *debug.Logger, greeting string) Model {
	m := Model{
		ctx:     ctx,
		game:    g,
		feed:    feed,
		debug:   debugLogger,
		history: game.NewHistory[string](InputHistorySize),
		recall:  -1,
	}
	m.push(styleBanner, "SBURB terminal client. Type 'help' to list commands, 'begin' to enter the Medium.")
	if greeting != "" {
		m.push("system", greeting)
	}
	if debugLogger.IsEnabled() {
		m.push(styleDebug, "[DEBUG] debug logging active")
	}
	m.push("", "")
	return m
}

func (m Model) Init() tea.Cmd {
	if m.feed == nil {
		return nil
	}
	return m.feed.wait()
}

// push appends text, one entry per line so wrapping keeps explicit breaks.
func (m *Model) push(style, text string) {
	for _, t := range strings.Split(text, "\n") {
		m.lines = append(m.lines, line{text: t, style: style})
	}
}
