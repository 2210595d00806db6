package game

import "time"

// Stat names understood by the world state store.
const (
	StatHP         = "hp"
	StatMaxHP      = "maxHp"
	StatLevel      = "level"
	StatExperience = "experience"
)

// The two lunar sways a player can dream on.
const (
	LunarProspit = "Prospit"
	LunarDerse   = "Derse"
)

// Factions seeded at zero on a fresh world.
var DefaultFactions = []string{"consorts", "denizen", "echoes"}

type Item struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Kind        string `json:"kind,omitempty"`
}

type Player struct {
	Name        string   `json:"name,omitempty"`
	Classpect   string   `json:"classpect,omitempty"`
	LunarSway   string   `json:"lunarSway,omitempty"`
	HP          int      `json:"hp"`
	MaxHP       int      `json:"maxHp"`
	Level       int      `json:"level"`
	Experience  int      `json:"experience"`
	Inventory   []Item   `json:"inventory"`
	Echoes      []string `json:"echoes"`
	CurrentLand string   `json:"currentLand,omitempty"`
}

type Session struct {
	ID           string    `json:"id"`
	StartTime    time.Time `json:"startTime"`
	CommandCount int       `json:"commandCount"`
	LastCommand  time.Time `json:"lastCommand,omitempty"`
}

type Settings struct {
	AutoSave        bool   `json:"autoSave"`
	NarrativeLength string `json:"narrativeLength"`
	EchoLimit       int    `json:"echoLimit"`
}

// Relationship is opaque to the engine; collaborators decide its shape.
type Relationship map[string]any

// WorldState is the serializable view of faction standing and world facts.
type WorldState struct {
	Reputation    map[string]int          `json:"reputation"`
	Relationships map[string]Relationship `json:"relationships"`
	UnlockedPaths []string                `json:"unlockedPaths"`
	WorldChanges  map[string]any          `json:"worldChanges"`
}

type CommandEntry struct {
	Command   string    `json:"command"`
	Response  string    `json:"response,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// BookEntry is a page of the Book of Numbers, the player's journal.
type BookEntry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Kind      string    `json:"kind,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewPlayer() Player {
	return Player{
		HP:        100,
		MaxHP:     100,
		Level:     1,
		Inventory: []Item{},
		Echoes:    []string{},
	}
}

func DefaultSettings() Settings {
	return Settings{AutoSave: true, NarrativeLength: "medium", EchoLimit: 10}
}

func NewWorldState() WorldState {
	ws := WorldState{
		Reputation:    make(map[string]int, len(DefaultFactions)),
		Relationships: make(map[string]Relationship),
		UnlockedPaths: []string{},
		WorldChanges:  make(map[string]any),
	}
	for _, f := range DefaultFactions {
		ws.Reputation[f] = 0
	}
	return ws
}

// LevelThreshold is the experience needed to leave level.
func LevelThreshold(level int) int {
	return level * 100
}
