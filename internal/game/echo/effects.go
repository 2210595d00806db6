package echo

import (
	"strings"

	"sburbterm/internal/game/narrative"
)

const (
	effectAlchemize = "alchemize"
	effectStrife    = "strife"
	effectExplore   = "explore"
	effectPrototype = "prototype"
	effectTime      = "time"
	effectSpace     = "space"
	effectGeneric   = "narrative"
	effectDebug     = "debug"
	effectState     = "state"
	effectOverride  = "override"
	effectTemporal  = "temporal_event"
	effectCascade   = "cascade"
	effectScratch   = "scratch"
	effectGodTier   = "god_tier"
)

// effect runs the behaviour bound to an echo or call file. name is the
// display name of whatever triggered it.
type effect func(r *Registry, name, context string) Result

var effects = map[string]effect{
	effectAlchemize: func(r *Registry, _, _ string) Result {
		return Result{
			Type:    "alchemy",
			Message: "Alchemical synthesis initiated. " + r.narrate("discovery", narrative.Short),
			Effect:  "item_created",
		}
	},
	effectStrife: func(r *Registry, _, _ string) Result {
		return Result{
			Type:    "combat",
			Message: "Strife engagement commenced. " + r.narrate("conflict", narrative.Medium),
			Effect:  "combat_started",
		}
	},
	effectExplore: func(r *Registry, _, _ string) Result {
		return Result{
			Type:    "exploration",
			Message: "Exploration reveals new possibilities. " + r.narrate("discovery", narrative.Medium),
			Effect:  "area_discovered",
		}
	},
	effectPrototype: func(r *Registry, _, _ string) Result {
		return Result{
			Type:    "prototyping",
			Message: "Sprite prototyping sequence activated. " + r.narrate("entry", narrative.Short),
			Effect:  "sprite_prototyped",
		}
	},
	effectTime: func(*Registry, string, string) Result {
		return Result{
			Type:    "temporal",
			Message: "Temporal manipulation engaged. The fabric of time bends to your will, causality becomes malleable.",
			Effect:  "time_altered",
		}
	},
	effectSpace: func(*Registry, string, string) Result {
		return Result{
			Type:    "spatial",
			Message: "Spatial distortion activated. Space folds upon itself, distances become meaningless.",
			Effect:  "space_warped",
		}
	},
	effectGeneric: func(r *Registry, name, _ string) Result {
		return Result{
			Type:    "fan",
			Message: name + " takes effect. " + r.narrate("general", narrative.Short),
			Effect:  "narrative_altered",
		}
	},
	effectDebug: func(r *Registry, _, _ string) Result {
		var data map[string]any
		if r.store != nil {
			p := r.store.Player()
			data = map[string]any{
				"player":       p,
				"activeEchoes": len(r.Active()),
			}
		}
		return Result{
			Type:    "debug",
			Message: "Debug console accessed. Reality parameters visible.",
			Effect:  "debug_mode",
			Data:    data,
		}
	},
	effectState: func(*Registry, string, string) Result {
		return Result{
			Type:    "state_manipulation",
			Message: "Game state manipulation interface activated.",
			Effect:  "state_access",
		}
	},
	effectOverride: func(*Registry, string, string) Result {
		return Result{
			Type:    "override",
			Message: "Narrative override protocols engaged. Author privileges granted.",
			Effect:  "narrative_override",
		}
	},
	effectTemporal: func(_ *Registry, name, _ string) Result {
		return Result{
			Type:    "temporal",
			Message: name + " manifests. Timeline fluctuations detected. Paradox space responds to your intervention.",
			Effect:  "temporal_event",
		}
	},
	effectCascade: func(*Registry, string, string) Result {
		return Result{
			Type:      "cascade",
			Message:   "CASCADE PROTOCOL INITIATED. Reality restructuring in progress.",
			Effect:    "cascade_event",
			Magnitude: "universe_altering",
		}
	},
	effectScratch: func(*Registry, string, string) Result {
		return Result{
			Type:      "scratch",
			Message:   "SCRATCH SEQUENCE ACTIVATED. Timeline reset imminent.",
			Effect:    "session_reset",
			Magnitude: "timeline_altering",
		}
	},
	effectGodTier: func(*Registry, string, string) Result {
		return Result{
			Type:      "god_tier",
			Message:   "GOD TIER ASCENSION ACHIEVED. Conditional immortality granted.",
			Effect:    "god_tier_awakening",
			Magnitude: "player_transcendence",
		}
	},
}

// invoke runs the effect bound to key. Unknown keys fall back to the
// generic narrative effect so restored saves from newer builds still work.
func (r *Registry) invoke(key, name, context string) Result {
	fn, ok := effects[key]
	if !ok {
		r.log.Printf("echo: unknown effect %q for %s, using generic", key, name)
		fn = effects[effectGeneric]
	}
	return fn(r, name, context)
}

func (r *Registry) narrate(typ string, length narrative.Length) string {
	if r.narrator == nil {
		return ""
	}
	return strings.TrimSpace(r.narrator.GenerateNarrative("", typ, length))
}
