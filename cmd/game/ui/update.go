package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"sburbterm/internal/game/choice"
	"sburbterm/internal/game/commands"
	"sburbterm/internal/game/events"
	"sburbterm/internal/game/state"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case commandResultMsg:
		return m.handleCommandResult(msg)
	case eventMsg:
		return m.handleEvent(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case animationTickMsg:
		if m.loading {
			m.animationFrame++
			return m, animationTimer()
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}
	return m, nil
}

func (m Model) handleCommandResult(msg commandResultMsg) (tea.Model, tea.Cmd) {
	if len(m.lines) > 0 && m.lines[len(m.lines)-1].style == styleLoading {
		m.lines = m.lines[:len(m.lines)-1]
	}
	m.loading = false
	if msg.err != nil {
		m.debug.Printf("ui: %q failed: %v", msg.input, msg.err)
		m.push(commands.KindError, "Error: "+msg.err.Error())
	} else {
		m.push(msg.response.Kind, msg.response.Message)
	}
	m.push("", "")
	return m, nil
}

func (m Model) handleEvent(msg eventMsg) (tea.Model, tea.Cmd) {
	ev := msg.event
	switch p := ev.Payload.(type) {
	case events.NarrativeLine:
		m.push(p.Style, p.Text)
	case choice.Choice:
		m.push(events.StyleSystem, "A new choice presents itself:")
		m.push(commands.KindInfo, commands.FormatChoice(p))
		m.push(events.StyleSystem, fmt.Sprintf("Type 'choose %s <number>' to decide.", p.ID))
	case state.LevelUp:
		m.push(commands.KindSuccess, fmt.Sprintf("LEVEL UP! You are now level %d (max HP %d).", p.Level, p.MaxHP))
	case string:
		if ev.Name == events.GameSaved {
			m.push(events.StyleSystem, "Autosaved.")
		}
	}
	m.push("", "")
	return m, m.feed.wait()
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit

	case tea.KeyEnter:
		userInput := strings.TrimSpace(m.input)
		if userInput == "" || m.loading {
			return m, nil
		}
		m.input = ""
		m.recall = -1
		m.history.Add(userInput)

		if m.debug.IsEnabled() && strings.HasPrefix(userInput, "/") {
			m.push(stylePlayer, "> "+userInput)
			m.debugCommand(userInput)
			m.push("", "")
			return m, nil
		}

		m.push(stylePlayer, "> "+userInput)
		m.loading = true
		m.animationFrame = 0
		m.lines = append(m.lines, line{style: styleLoading})
		return m, tea.Batch(executeCommand(m.ctx, m.game, m.feed, userInput), animationTimer())

	case tea.KeyUp:
		entries := m.history.GetEntries()
		if len(entries) == 0 {
			return m, nil
		}
		if m.recall < 0 {
			m.recall = len(entries)
		}
		if m.recall > 0 {
			m.recall--
		}
		m.input = entries[m.recall]
		return m, nil

	case tea.KeyDown:
		entries := m.history.GetEntries()
		if m.recall < 0 {
			return m, nil
		}
		m.recall++
		if m.recall >= len(entries) {
			m.recall = -1
			m.input = ""
			return m, nil
		}
		m.input = entries[m.recall]
		return m, nil

	case tea.KeyBackspace:
		if len(m.input) > 0 && !m.loading {
			r := []rune(m.input)
			m.input = string(r[:len(r)-1])
		}
		return m, nil

	case tea.KeySpace:
		if !m.loading {
			m.input += " "
		}
		return m, nil

	case tea.KeyRunes:
		if !m.loading {
			m.input += string(msg.Runes)
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) debugCommand(input string) {
	switch strings.ToLower(input) {
	case "/history":
		for i, entry := range m.history.GetEntries() {
			m.push(styleDebug, fmt.Sprintf("[DEBUG] %d: %s", i+1, entry))
		}
	case "/help":
		m.push(styleDebug, "[DEBUG] Available commands:")
		m.push(styleDebug, "[DEBUG] /history - Show recalled input")
		m.push(styleDebug, "[DEBUG] /help - Show this help")
	default:
		m.push(styleDebug, "[DEBUG] Unknown command. Try /help")
	}
}
