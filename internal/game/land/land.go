// Package land generates and tracks the player's procedurally built lands:
// consorts, quest, denizen, ASCII map and exploration progress.
package land

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	MapWidth  = 40
	MapHeight = 20
	// AreaCount is the number of distinct areas that make a land fully explored.
	AreaCount = 20

	EntryPoint   = "entry_point"
	PlayerSymbol = '@'
	emptySymbol  = '.'
)

// Template is an authored land archetype.
type Template struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Themes      []string `yaml:"themes" json:"themes"`
	Description string   `yaml:"description" json:"description"`
	Terrain     []string `yaml:"terrain" json:"terrain"`
	Hazards     []string `yaml:"hazards" json:"hazards"`
	Resources   []string `yaml:"resources" json:"resources"`
	QuestType   string   `yaml:"questType" json:"questType"`
	Denizen     string   `yaml:"denizen" json:"denizen"`
}

// Species is a consort race.
type Species struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Habitat     []string `yaml:"habitat" json:"habitat"`
	Personality string   `yaml:"personality" json:"personality"`
	Helpfulness string   `yaml:"helpfulness" json:"helpfulness"`
	Specialties []string `yaml:"specialties" json:"specialties"`
}

type QuestTemplate struct {
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Objectives  []string `yaml:"objectives" json:"objectives"`
}

// Catalog is the authored data lands are generated from.
type Catalog struct {
	Templates []Template               `yaml:"templates"`
	Species   []Species                `yaml:"consorts"`
	Quests    map[string]QuestTemplate `yaml:"quests"`
	// Symbols maps a terrain tag to its map glyph. Unknown terrain uses '#'.
	Symbols map[string]string `yaml:"symbols"`
	// DefaultQuest is used when a template's quest type is missing.
	DefaultQuest string `yaml:"defaultQuest"`
}

func (c Catalog) Validate() error {
	if len(c.Templates) == 0 {
		return fmt.Errorf("land catalog has no templates")
	}
	if len(c.Species) == 0 {
		return fmt.Errorf("land catalog has no consort species")
	}
	for _, t := range c.Templates {
		if t.ID == "" || t.Name == "" {
			return fmt.Errorf("land template needs an id and a name")
		}
		if len(t.Themes) == 0 || len(t.Terrain) == 0 {
			return fmt.Errorf("land template %s needs themes and terrain", t.ID)
		}
	}
	if _, ok := c.Quests[c.DefaultQuest]; !ok {
		return fmt.Errorf("default quest %q is not defined", c.DefaultQuest)
	}
	for sym, glyph := range c.Symbols {
		if len([]rune(glyph)) != 1 {
			return fmt.Errorf("terrain %s glyph %q must be a single character", sym, glyph)
		}
	}
	return nil
}

type Advice struct {
	Species string   `json:"species"`
	Tips    []string `json:"tips"`
}

type Quest struct {
	Type          string   `json:"type"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Objectives    []string `json:"objectives"`
	Progress      int      `json:"progress"`
	Completed     bool     `json:"completed"`
	ConsortAdvice []Advice `json:"consortAdvice"`
}

type Denizen struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Power       int    `json:"power"`
	Encountered bool   `json:"encountered"`
	Defeated    bool   `json:"defeated"`
}

type Explored struct {
	Areas      []string `json:"areas"`
	Percentage int      `json:"percentage"`
}

// Event is an entry in a land's own history.
type Event struct {
	Type      string    `json:"type"`
	Area      string    `json:"area,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Land struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Template    string    `json:"template"`
	Themes      []string  `json:"themes"`
	Description string    `json:"description"`
	Terrain     []string  `json:"terrain"`
	Hazards     []string  `json:"hazards"`
	Resources   []string  `json:"resources"`
	Consorts    []Species `json:"consorts"`
	Quest       Quest     `json:"quest"`
	Denizen     Denizen   `json:"denizen"`
	Map         Map       `json:"asciiMap"`
	Explored    Explored  `json:"explored"`
	Events      []Event   `json:"events"`
	CreatedAt   time.Time `json:"timestamp"`
}

func (l Land) clone() Land {
	l.Themes = append([]string(nil), l.Themes...)
	l.Terrain = append([]string(nil), l.Terrain...)
	l.Hazards = append([]string(nil), l.Hazards...)
	l.Resources = append([]string(nil), l.Resources...)
	l.Consorts = append([]Species(nil), l.Consorts...)
	l.Quest.Objectives = append([]string(nil), l.Quest.Objectives...)
	l.Quest.ConsortAdvice = append([]Advice(nil), l.Quest.ConsortAdvice...)
	l.Map = append(Map(nil), l.Map...)
	l.Explored.Areas = append([]string(nil), l.Explored.Areas...)
	l.Events = append([]Event(nil), l.Events...)
	return l
}

// Exploration is the result of one Explore call.
type Exploration struct {
	LandID     string   `json:"landId"`
	Area       string   `json:"area"`
	Discovery  string   `json:"discovery"`
	Narrative  string   `json:"narrative"`
	Resources  []string `json:"resources"`
	Experience int      `json:"experience"`
	Percentage int      `json:"percentage"`
	NewArea    bool     `json:"newArea"`
}

var titleCaser = cases.Title(language.English)

// Humanize turns a tag like "ice_caves" into "ice caves".
func Humanize(tag string) string {
	return strings.ReplaceAll(tag, "_", " ")
}

// Label turns a tag like "ice_caves" into "Ice Caves".
func Label(tag string) string {
	return titleCaser.String(Humanize(tag))
}
