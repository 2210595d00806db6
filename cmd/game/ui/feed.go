package ui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"sburbterm/internal/game/events"
)

const feedBuffer = 128

type Subscriber interface {
	Subscribe(fn func(events.Event)) func()
}

// Feed carries game events that happen outside a command, such as delayed
// follow-ups and autosaves, into the program. Narrative lines and saves
// emitted while a command runs are dropped because the command's response
// already reports them.
type Feed struct {
	ch          chan events.Event
	busy        atomic.Bool
	unsubscribe func()
}

func NewFeed(bus Subscriber) *Feed {
	f := &Feed{ch: make(chan events.Event, feedBuffer)}
	f.unsubscribe = bus.Subscribe(f.offer)
	return f
}

func (f *Feed) offer(ev events.Event) {
	if !shown(ev.Name) {
		return
	}
	if ev.Name != events.ChoicePresented && ev.Name != events.PlayerLevelUp && f.busy.Load() {
		return
	}
	select {
	case f.ch <- ev:
	default:
	}
}

func shown(name events.Name) bool {
	switch name {
	case events.Narrative, events.ChoicePresented, events.PlayerLevelUp, events.GameSaved:
		return true
	}
	return false
}

func (f *Feed) Close() {
	if f.unsubscribe != nil {
		f.unsubscribe()
	}
}

type eventMsg struct {
	event events.Event
}

func (f *Feed) wait() tea.Cmd {
	return func() tea.Msg {
		return eventMsg{event: <-f.ch}
	}
}
