// Package choice presents branching decisions, applies their consequences to
// the world state and schedules the follow-ups they trigger.
package choice

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"sburbterm/internal/game"
	"sburbterm/internal/gameerr"
)

// DefaultFollowUpDelay applies when a follow-up has no delay.
const DefaultFollowUpDelay = time.Second

// Consequence is one effect of selecting an option. The set of variants is
// closed; Engine applies them with a type switch.
type Consequence interface {
	isConsequence()
}

type StatDelta struct {
	Stat  string
	Delta int
}

type ReputationDelta struct {
	Faction string
	Delta   int
}

type Unlock struct {
	Path string
}

type WorldChange struct {
	Key   string
	Value any
}

// LongTerm is stored against the choice id and never applied again.
type LongTerm struct {
	Payload any
}

func (StatDelta) isConsequence()       {}
func (ReputationDelta) isConsequence() {}
func (Unlock) isConsequence()          {}
func (WorldChange) isConsequence()     {}
func (LongTerm) isConsequence()        {}

// ConsequenceSpec is the authored form of an option's consequences.
type ConsequenceSpec struct {
	Stats        Keyed[int] `json:"stats,omitempty" yaml:"stats,omitempty"`
	Reputation   Keyed[int] `json:"reputation,omitempty" yaml:"reputation,omitempty"`
	Unlocks      []string   `json:"unlocks,omitempty" yaml:"unlocks,omitempty"`
	WorldChanges Keyed[any] `json:"worldChanges,omitempty" yaml:"worldChanges,omitempty"`
	LongTerm     any        `json:"longTerm,omitempty" yaml:"longTerm,omitempty"`
	Hint         string     `json:"hint,omitempty" yaml:"hint,omitempty"`
}

// Compile flattens the declared consequences into variants. Each kind keeps
// the order its keys were authored in, so a stat list such as hp then
// experience clamps before it levels.
func (s ConsequenceSpec) Compile() []Consequence {
	var out []Consequence
	for _, e := range s.Stats {
		out = append(out, StatDelta{Stat: e.Key, Delta: e.Value})
	}
	for _, e := range s.Reputation {
		out = append(out, ReputationDelta{Faction: e.Key, Delta: e.Value})
	}
	for _, p := range s.Unlocks {
		out = append(out, Unlock{Path: p})
	}
	for _, e := range s.WorldChanges {
		out = append(out, WorldChange{Key: e.Key, Value: game.NormalizeValue(e.Value)})
	}
	if s.LongTerm != nil {
		out = append(out, LongTerm{Payload: game.NormalizeValue(s.LongTerm)})
	}
	return out
}

func specOf(cs []Consequence, hint string) *ConsequenceSpec {
	if len(cs) == 0 && hint == "" {
		return nil
	}
	s := &ConsequenceSpec{Hint: hint}
	for _, c := range cs {
		switch c := c.(type) {
		case StatDelta:
			prev, _ := s.Stats.Get(c.Stat)
			s.Stats.Set(c.Stat, prev+c.Delta)
		case ReputationDelta:
			prev, _ := s.Reputation.Get(c.Faction)
			s.Reputation.Set(c.Faction, prev+c.Delta)
		case Unlock:
			s.Unlocks = append(s.Unlocks, c.Path)
		case WorldChange:
			s.WorldChanges.Set(c.Key, c.Value)
		case LongTerm:
			s.LongTerm = c.Payload
		}
	}
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type FollowUpType string

const (
	FollowNewChoice   FollowUpType = "new_choice"
	FollowNarrative   FollowUpType = "narrative"
	FollowEncounter   FollowUpType = "encounter"
	FollowQuestUpdate FollowUpType = "quest_update"
)

// FollowUp is a deferred action fired after a choice resolves. A new_choice
// follow-up names a Template or carries an inline Choice.
type FollowUp struct {
	Type        FollowUpType   `json:"type" yaml:"type"`
	Delay       int            `json:"delay,omitempty" yaml:"delay"`
	ChoiceID    string         `json:"choiceId,omitempty" yaml:"choiceId"`
	Template    string         `json:"template,omitempty" yaml:"template"`
	Choice      *Definition    `json:"choice,omitempty" yaml:"choice"`
	Text        string         `json:"text,omitempty" yaml:"text"`
	EncounterID string         `json:"encounterId,omitempty" yaml:"encounterId"`
	QuestID     string         `json:"questId,omitempty" yaml:"questId"`
	Update      map[string]any `json:"update,omitempty" yaml:"update"`
}

func (f FollowUp) delay() time.Duration {
	if f.Delay <= 0 {
		return DefaultFollowUpDelay
	}
	return time.Duration(f.Delay) * time.Millisecond
}

func (f FollowUp) validate() error {
	switch f.Type {
	case FollowNewChoice:
		if f.Template == "" && f.Choice == nil {
			return fmt.Errorf("new_choice follow-up needs a template or a choice")
		}
	case FollowNarrative:
		if f.Text == "" {
			return fmt.Errorf("narrative follow-up needs text")
		}
	case FollowEncounter:
		if f.EncounterID == "" {
			return fmt.Errorf("encounter follow-up needs an encounterId")
		}
	case FollowQuestUpdate:
		if f.QuestID == "" {
			return fmt.Errorf("quest_update follow-up needs a questId")
		}
	default:
		return fmt.Errorf("unknown follow-up type %q", f.Type)
	}
	return nil
}

// Option is one selectable branch of a choice.
type Option struct {
	Text         string
	Hint         string
	Consequences []Consequence
	Response     string
	FollowUps    []FollowUp
}

type optionWire struct {
	Text         string           `json:"text" yaml:"text"`
	Consequences *ConsequenceSpec `json:"consequences,omitempty" yaml:"consequences"`
	Response     string           `json:"response,omitempty" yaml:"response"`
	FollowUps    []FollowUp       `json:"followUp,omitempty" yaml:"followUp"`
}

func (o *Option) fromWire(w optionWire) {
	*o = Option{Text: w.Text, Response: w.Response, FollowUps: w.FollowUps}
	if w.Consequences != nil {
		o.Hint = w.Consequences.Hint
		o.Consequences = w.Consequences.Compile()
	}
}

func (o Option) toWire() optionWire {
	return optionWire{
		Text:         o.Text,
		Consequences: specOf(o.Consequences, o.Hint),
		Response:     o.Response,
		FollowUps:    o.FollowUps,
	}
}

func (o Option) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.toWire())
}

func (o *Option) UnmarshalJSON(data []byte) error {
	var w optionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	o.fromWire(w)
	return nil
}

func (o *Option) UnmarshalYAML(value *yaml.Node) error {
	var w optionWire
	if err := value.Decode(&w); err != nil {
		return err
	}
	o.fromWire(w)
	return nil
}

// HasReputation reports whether any consequence touches reputation.
func (o Option) HasReputation() bool {
	for _, c := range o.Consequences {
		if _, ok := c.(ReputationDelta); ok {
			return true
		}
	}
	return false
}

// Injures reports whether any consequence lowers hp.
func (o Option) Injures() bool {
	for _, c := range o.Consequences {
		if sd, ok := c.(StatDelta); ok && sd.Stat == "hp" && sd.Delta < 0 {
			return true
		}
	}
	return false
}

// Definition is the authored shape of a choice before it is presented.
type Definition struct {
	ID          string         `json:"id,omitempty" yaml:"id"`
	Title       string         `json:"title" yaml:"title"`
	Description string         `json:"description" yaml:"description"`
	Options     []Option       `json:"options" yaml:"options"`
	Context     map[string]any `json:"context,omitempty" yaml:"context"`
}

func (d Definition) Validate() error {
	if len(d.Options) == 0 {
		return gameerr.New(gameerr.CodeInvalidInput, fmt.Sprintf("choice %q has no options", d.Title))
	}
	for i, o := range d.Options {
		if o.Text == "" {
			return gameerr.New(gameerr.CodeInvalidInput, fmt.Sprintf("choice %q option %d has no text", d.Title, i))
		}
		for _, f := range o.FollowUps {
			if err := f.validate(); err != nil {
				return gameerr.Wrap(gameerr.CodeInvalidInput, fmt.Sprintf("choice %q option %d", d.Title, i), err)
			}
		}
	}
	return nil
}

// Clone copies d deeply enough that edits to the copy's text, options and
// follow-ups never reach d. Opaque values are shared.
func (d Definition) Clone() Definition {
	out := d
	out.Context = maps.Clone(d.Context)
	out.Options = make([]Option, len(d.Options))
	for i, o := range d.Options {
		o.Consequences = slices.Clone(o.Consequences)
		o.FollowUps = slices.Clone(o.FollowUps)
		for j, f := range o.FollowUps {
			if f.Choice != nil {
				c := f.Choice.Clone()
				o.FollowUps[j].Choice = &c
			}
			o.FollowUps[j].Update = maps.Clone(f.Update)
		}
		out.Options[i] = o
	}
	return out
}

// Choice is a presented, unresolved decision.
type Choice struct {
	ID string `json:"id"`
	Definition
	CreatedAt time.Time `json:"timestamp"`
}

// Record is the immutable history entry of a resolved choice.
type Record struct {
	ChoiceID    string         `json:"choiceId"`
	OptionIndex int            `json:"optionIndex"`
	Option      Option         `json:"selectedOption"`
	Timestamp   time.Time      `json:"timestamp"`
	Context     map[string]any `json:"context,omitempty"`
}

// Resolution is what MakeChoice returns to the caller.
type Resolution struct {
	Record     Record `json:"record"`
	Response   string `json:"response"`
	Commentary string `json:"commentary"`
}
