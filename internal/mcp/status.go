package mcp

import (
	"sburbterm/internal/engine"
	"sburbterm/internal/game/choice"
)

// GameStatus is the read-only view of a game handed to MCP clients. Slices
// are never nil so the structured output always matches its schema.
type GameStatus struct {
	Player         PlayerView   `json:"player"`
	SessionID      string       `json:"session_id"`
	CommandCount   int          `json:"command_count"`
	ActiveEchoes   []string     `json:"active_echoes"`
	EchoLimit      int          `json:"echo_limit"`
	PendingChoices []ChoiceView `json:"pending_choices"`
	UnlockedPaths  []string     `json:"unlocked_paths"`
	Land           LandView     `json:"land"`
}

type PlayerView struct {
	Name       string   `json:"name"`
	Classpect  string   `json:"classpect"`
	LunarSway  string   `json:"lunar_sway"`
	HP         int      `json:"hp"`
	MaxHP      int      `json:"max_hp"`
	Level      int      `json:"level"`
	Experience int      `json:"experience"`
	Inventory  []string `json:"inventory"`
}

type ChoiceView struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Options []string `json:"options"`
}

// LandView is empty when the player has no current land.
type LandView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Explored   int    `json:"explored_percentage"`
	QuestTitle string `json:"quest_title"`
	Denizen    string `json:"denizen"`
}

// StatusFromEngine reads every component once and flattens the result.
func StatusFromEngine(e *engine.Engine) GameStatus {
	p := e.State.Player()
	session := e.State.Session()

	status := GameStatus{
		Player: PlayerView{
			Name:       p.Name,
			Classpect:  p.Classpect,
			LunarSway:  p.LunarSway,
			HP:         p.HP,
			MaxHP:      p.MaxHP,
			Level:      p.Level,
			Experience: p.Experience,
			Inventory:  make([]string, 0, len(p.Inventory)),
		},
		SessionID:      session.ID,
		CommandCount:   session.CommandCount,
		ActiveEchoes:   []string{},
		EchoLimit:      e.Echoes.Limit(),
		PendingChoices: []ChoiceView{},
		UnlockedPaths:  append([]string{}, e.State.UnlockedPaths()...),
	}
	for _, item := range p.Inventory {
		status.Player.Inventory = append(status.Player.Inventory, item.Name)
	}
	for _, a := range e.Echoes.Active() {
		status.ActiveEchoes = append(status.ActiveEchoes, a.Name)
	}
	for _, c := range e.Choices.Active() {
		status.PendingChoices = append(status.PendingChoices, choiceView(c))
	}
	if l, ok := e.Lands.Current(); ok {
		status.Land = LandView{
			ID:         l.ID,
			Name:       l.Name,
			Explored:   l.Explored.Percentage,
			QuestTitle: l.Quest.Title,
			Denizen:    l.Denizen.Name,
		}
	}
	return status
}

func choiceView(c choice.Choice) ChoiceView {
	v := ChoiceView{ID: c.ID, Title: c.Title, Options: make([]string, 0, len(c.Options))}
	for _, o := range c.Options {
		v.Options = append(v.Options, o.Text)
	}
	return v
}
