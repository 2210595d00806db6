package echo

import (
	"fmt"

	"sburbterm/internal/game/events"
	"sburbterm/internal/game/narrative"
	"sburbterm/internal/random"
)

// Generator kinds accepted by Generate.
const (
	KindFan       = "fan"
	KindDeveloper = "developer"
	KindTemporal  = "temporal"
	KindRandom    = "random"
)

// Kinds lists the accepted generator kinds.
var Kinds = []string{KindFan, KindDeveloper, KindTemporal, KindRandom}

type blueprint struct {
	name        string
	description string
	power       func(random.Source) int
	commands    []string
	effect      string
}

func fixed(n int) func(random.Source) int {
	return func(random.Source) int { return n }
}

func between(lo, hi int) func(random.Source) int {
	return func(src random.Source) int { return random.Between(src, lo, hi) }
}

var fanBlueprints = []blueprint{
	{"Narrative Intervention", "Alter the flow of story through fan interpretation", between(3, 7), []string{"intervene", "narrate", "story"}, effectGeneric},
	{"Character Summon", "Call upon the essence of beloved characters", between(4, 7), []string{"summon", "invoke", "channel"}, effectGeneric},
	{"Meme Reality", "Transform internet culture into tangible effects", between(2, 7), []string{"meme", "theory", "canon"}, effectGeneric},
}

var developerBlueprints = []blueprint{
	{"Debug Console", "Access the game's internal state and variables", fixed(1), []string{"debug", "console", "dev"}, effectDebug},
	{"State Manipulation", "Directly modify game state parameters", fixed(10), []string{"set", "modify", "state"}, effectState},
	{"Narrative Override", "Force specific story outcomes", fixed(7), []string{"override", "force", "admin"}, effectOverride},
}

var temporalBlueprints = []blueprint{
	{"Doomed Timeline", "Create branching timeline consequences", fixed(8), []string{"doomed", "timeline", "branch"}, effectTemporal},
	{"Stable Time Loop", "Establish causal loops for temporal effects", fixed(9), []string{"loop", "stable", "causal"}, effectTemporal},
	{"Paradox Resolution", "Resolve temporal paradoxes and inconsistencies", fixed(10), []string{"resolve", "paradox", "fix"}, effectTemporal},
}

// Generate creates and registers a new echo of the given kind. Unknown kinds
// behave like KindRandom. classpect is the player's "Class of Aspect" string
// and may be empty.
func (r *Registry) Generate(kind, classpect string) Echo {
	switch kind {
	case KindFan, KindDeveloper, KindTemporal:
	default:
		kind = random.Pick(r.rng, []string{KindFan, KindDeveloper, KindTemporal})
	}

	var (
		bp       blueprint
		typ      Type
		affinity []string
	)
	switch kind {
	case KindFan:
		bp = random.Pick(r.rng, fanBlueprints)
		typ = TypeFan
		affinity = []string{"Any"}
		if class, aspect, ok := narrative.ParseClasspect(classpect); ok {
			affinity = []string{class, aspect}
		}
	case KindDeveloper:
		bp = random.Pick(r.rng, developerBlueprints)
		typ = TypeDeveloper
		affinity = []string{"Admin"}
	case KindTemporal:
		bp = random.Pick(r.rng, temporalBlueprints)
		typ = TypeTemporal
		affinity = []string{"Time", "Space", "Void"}
	}

	power := bp.power(r.rng)
	cooldown := 0
	switch typ {
	case TypeFan:
		cooldown = power / 2
	case TypeTemporal:
		cooldown = max(0, power-3)
	}

	e := Echo{
		ID:          r.newID(),
		Name:        bp.name,
		Type:        typ,
		Affinity:    affinity,
		Description: bp.description,
		Power:       power,
		Cooldown:    cooldown,
		Commands:    append([]string(nil), bp.commands...),
		EffectKey:   bp.effect,
		CreatedAt:   r.clock.Now(),
	}

	r.mu.Lock()
	r.registerLocked(e)
	r.mu.Unlock()

	r.log.Printf("echo: generated %s %q (%s, power %d)", e.ID, e.Name, e.Type, e.Power)
	r.sink.Emit(events.EchoGenerated, e.clone())
	return e.clone()
}

// Describe renders a one-line summary for listings.
func Describe(e Echo) string {
	return fmt.Sprintf("%s [%s] power %d, cooldown %d: %s", e.Name, e.Type, e.Power, e.Cooldown, e.Description)
}
