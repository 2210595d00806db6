// Package echo is the catalog of activatable, cooldown-gated abilities and
// the call files that bypass activation.
package echo

import "time"

type Type string

const (
	TypeCore      Type = "core"
	TypeFan       Type = "fan"
	TypeDeveloper Type = "developer"
	TypeTemporal  Type = "temporal"
	TypeParadox   Type = "paradox"
)

const (
	// DefaultLimit is how many echoes may be active at once.
	DefaultLimit = 10
	// Turn is the wall-clock length of one cooldown turn.
	Turn = 30 * time.Second

	mutationMarker = " [MUTATED]"
)

// Echo is a catalog definition. The effect operation is bound through
// EffectKey so definitions survive a save.
type Echo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        Type      `json:"type"`
	Affinity    []string  `json:"classpectAffinity"`
	Description string    `json:"description"`
	Power       int       `json:"power"`
	Cooldown    int       `json:"cooldown"`
	Commands    []string  `json:"commands"`
	EffectKey   string    `json:"effect"`
	MutatedFrom string    `json:"mutatedFrom,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

func (e Echo) clone() Echo {
	e.Affinity = append([]string(nil), e.Affinity...)
	e.Commands = append([]string(nil), e.Commands...)
	return e
}

// Window is the cooldown duration after a use.
func (e Echo) Window() time.Duration {
	return time.Duration(e.Cooldown) * Turn
}

// Active is a per-activation copy of an Echo.
type Active struct {
	Echo
	ActivatedAt time.Time `json:"activatedAt"`
	LastUsed    time.Time `json:"lastUsed,omitempty"`
}

// Result describes what an effect did.
type Result struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Effect    string `json:"effect"`
	Magnitude string `json:"magnitude,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// CallFile is a rare named effect triggered by an exact command token.
type CallFile struct {
	Command      string   `json:"command"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
	EffectKey    string   `json:"effect"`
}

// UseEvent is the payload of echo:used.
type UseEvent struct {
	Echo   Active `json:"echo"`
	Result Result `json:"result"`
}

// Mutation is the payload of echo:mutated.
type Mutation struct {
	Original Echo `json:"original"`
	Mutated  Echo `json:"mutated"`
}

// Outcome reports how ProcessCommand handled a token. Err carries activation
// or cooldown failures for a token that did match.
type Outcome struct {
	Source string `json:"source"`
	EchoID string `json:"echoId,omitempty"`
	Result Result `json:"result"`
	Err    error  `json:"-"`
}

const (
	SourceEcho     = "echo"
	SourceCallFile = "call_file"
)

func coreEchoes() []Echo {
	return []Echo{
		{
			ID: "echo_alchemize", Name: "Alchemical Synthesis", Type: TypeCore,
			Affinity:    []string{"Maid", "Sylph"},
			Description: "Combine items through alchemical processes",
			Power:       3, Cooldown: 0,
			Commands:  []string{"alchemize", "combine", "synthesize"},
			EffectKey: effectAlchemize,
		},
		{
			ID: "echo_strife", Name: "Strife Engagement", Type: TypeCore,
			Affinity:    []string{"Knight", "Prince"},
			Description: "Enter combat with hostile entities",
			Power:       5, Cooldown: 2,
			Commands:  []string{"fight", "attack", "strife"},
			EffectKey: effectStrife,
		},
		{
			ID: "echo_explore", Name: "Dimensional Exploration", Type: TypeCore,
			Affinity:    []string{"Seer", "Heir"},
			Description: "Explore new areas and discover secrets",
			Power:       2, Cooldown: 1,
			Commands:  []string{"explore", "search", "investigate"},
			EffectKey: effectExplore,
		},
		{
			ID: "echo_prototype", Name: "Sprite Prototyping", Type: TypeCore,
			Affinity:    []string{"Page", "Maid"},
			Description: "Prototype kernelsprites with objects or beings",
			Power:       8, Cooldown: 0,
			Commands:  []string{"prototype", "sprite"},
			EffectKey: effectPrototype,
		},
		{
			ID: "echo_time_travel", Name: "Temporal Manipulation", Type: TypeTemporal,
			Affinity:    []string{"Time"},
			Description: "Manipulate the flow of time and causality",
			Power:       10, Cooldown: 5,
			Commands:  []string{"time", "temporal", "loop"},
			EffectKey: effectTime,
		},
		{
			ID: "echo_space_warp", Name: "Spatial Distortion", Type: TypeTemporal,
			Affinity:    []string{"Space"},
			Description: "Bend space and create portals",
			Power:       9, Cooldown: 4,
			Commands:  []string{"warp", "portal", "space"},
			EffectKey: effectSpace,
		},
	}
}

func coreCallFiles() []CallFile {
	return []CallFile{
		{
			Command: "echo_cascade", Name: "Cascade Protocol",
			Description:  "Trigger a reality-altering cascade event",
			Requirements: []string{"Time", "Space"},
			EffectKey:    effectCascade,
		},
		{
			Command: "echo_scratch", Name: "Scratch Sequence",
			Description:  "Reset the session timeline",
			Requirements: []string{"Doom", "Time"},
			EffectKey:    effectScratch,
		},
		{
			Command: "echo_god_tier", Name: "God Tier Ascension",
			Description:  "Achieve conditional immortality",
			Requirements: []string{"Heroic", "Just"},
			EffectKey:    effectGodTier,
		},
	}
}
