package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"sburbterm/internal/game/commands"
	"sburbterm/internal/game/events"
)

var (
	baseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))

	lineStyles = map[string]lipgloss.Style{
		stylePlayer:            lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		styleDebug:             lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		styleLoading:           lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		styleBanner:            lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		commands.KindSuccess:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		// also covers events.StyleWarning
		commands.KindWarning:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		commands.KindError:     lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		events.StyleStory:      lipgloss.NewStyle().Foreground(lipgloss.Color("15")),
		events.StyleCommentary: lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Italic(true),
		events.StyleSystem:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
)

func styleFor(name string) lipgloss.Style {
	if s, ok := lineStyles[name]; ok {
		return s
	}
	return baseStyle
}

func (m Model) View() string {
	inputHeight := 3
	chatHeight := m.height - inputHeight
	contentWidth := m.width - 4

	inputStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1).
		Width(m.width - 4)

	chatPanel := lipgloss.NewStyle().
		Width(m.width).
		Height(chatHeight).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(1)

	var rendered []string
	for _, l := range m.lines {
		if l.text == "" && l.style != styleLoading {
			rendered = append(rendered, "")
			continue
		}
		text := l.text
		if l.style == styleLoading {
			text = getLoadingAnimation(m.animationFrame)
		}
		for _, wrapped := range strings.Split(wrapAndIndent(text, contentWidth, " "), "\n") {
			rendered = append(rendered, styleFor(l.style).Render(wrapped))
		}
	}

	maxLines := chatHeight - 2
	if maxLines < 1 {
		maxLines = 1
	}
	if len(rendered) > maxLines {
		rendered = rendered[len(rendered)-maxLines:]
	}

	var chatContent strings.Builder
	for i := len(rendered); i < maxLines; i++ {
		chatContent.WriteString("\n")
	}
	for _, r := range rendered {
		chatContent.WriteString(r + "\n")
	}

	chat := chatPanel.Render(chatContent.String())
	input := inputStyle.Render(m.input + "│")
	return chat + "\n" + input
}

// wrapAndIndent breaks text on word boundaries so no line exceeds width.
func wrapAndIndent(text string, width int, indent string) string {
	if width <= 0 || len(text) <= width {
		return indent + text
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return indent + text
	}

	var result strings.Builder
	currentLine := indent + words[0]
	for _, word := range words[1:] {
		if len(currentLine)+1+len(word) <= width {
			currentLine += " " + word
		} else {
			result.WriteString(currentLine + "\n")
			currentLine = indent + word
		}
	}
	result.WriteString(currentLine)
	return result.String()
}

func getLoadingAnimation(frame int) string {
	arc := []string{"◜", "◠", "◝", "◞", "◡", "◟"}
	return arc[frame%len(arc)]
}
