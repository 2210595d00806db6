package choice

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"sburbterm/internal/debug"
	"sburbterm/internal/game"
	"sburbterm/internal/game/events"
	"sburbterm/internal/gameerr"
	"sburbterm/internal/random"
	"sburbterm/internal/scheduler"
)

// World is the part of the state store consequences are applied to.
type World interface {
	Player() game.Player
	ApplyStat(name string, delta int) bool
	ApplyReputationDelta(faction string, delta int) int
	Reputation(faction string) int
	Unlock(path string) bool
	IsUnlocked(path string) bool
	SetWorldChange(key string, value any)
	WorldChange(key string) (any, bool)
}

// EncounterHandler runs encounter follow-ups.
type EncounterHandler interface {
	TriggerEncounter(id string)
}

// QuestHandler runs quest_update follow-ups.
type QuestHandler interface {
	UpdateQuest(id string, update map[string]any) error
}

// LandNamer supplies {landName} for templates.
type LandNamer interface {
	CurrentLandName() string
}

type Options struct {
	World      World
	Sink       events.Sink
	Scheduler  scheduler.Scheduler
	Clock      scheduler.Clock
	Random     random.Source
	Log        *debug.Logger
	Templates  map[string]Definition
	Encounters EncounterHandler
	Quests     QuestHandler
	Lands      LandNamer
}

// Engine owns the active choices, the choice history and long-term effects.
type Engine struct {
	mu        sync.Mutex
	active    map[string]Choice
	order     []string
	history   []Record
	longTerm  map[string]any
	templates map[string]Definition
	rules     []Rule

	world      World
	sink       events.Sink
	sched      scheduler.Scheduler
	clock      scheduler.Clock
	rng        random.Source
	log        *debug.Logger
	encounters EncounterHandler
	quests     QuestHandler
	lands      LandNamer
}

func New(opts Options) *Engine {
	e := &Engine{
		active:     make(map[string]Choice),
		longTerm:   make(map[string]any),
		templates:  make(map[string]Definition),
		world:      opts.World,
		sink:       opts.Sink,
		sched:      opts.Scheduler,
		clock:      opts.Clock,
		rng:        opts.Random,
		log:        opts.Log,
		encounters: opts.Encounters,
		quests:     opts.Quests,
		lands:      opts.Lands,
	}
	if e.sink == nil {
		e.sink = events.Nop{}
	}
	if e.clock == nil {
		e.clock = scheduler.SystemClock{}
	}
	if e.sched == nil {
		e.sched = scheduler.NewTimers()
	}
	if e.rng == nil {
		e.rng = random.New(0)
	}
	for name, def := range opts.Templates {
		e.templates[name] = def.Clone()
	}
	e.rules = builtinRules()
	return e
}

// SetCollaborators wires handlers that are built after the engine.
func (e *Engine) SetCollaborators(enc EncounterHandler, quests QuestHandler, lands LandNamer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.encounters, e.quests, e.lands = enc, quests, lands
}

// Present stores a choice as active and announces it. Presenting an id that
// is already active replaces the pending choice.
func (e *Engine) Present(id string, def Definition) (Choice, error) {
	if id == "" {
		id = def.ID
	}
	if id == "" {
		return Choice{}, gameerr.New(gameerr.CodeInvalidInput, "choice id is required")
	}
	if err := def.Validate(); err != nil {
		return Choice{}, err
	}
	c := Choice{ID: id, Definition: def.Clone(), CreatedAt: e.clock.Now()}
	c.Definition.ID = id
	if c.Context == nil {
		c.Context = map[string]any{}
	}

	e.mu.Lock()
	_, replaced := e.active[id]
	if !replaced {
		e.order = append(e.order, id)
	}
	e.active[id] = c
	e.mu.Unlock()

	if replaced {
		e.log.Printf("choice: %s presented while still active, replacing pending choice", id)
	}
	e.sink.Emit(events.ChoicePresented, c)
	return c, nil
}

// MakeChoice resolves an active choice. Unknown ids and out-of-range
// indexes fail without touching any state.
func (e *Engine) MakeChoice(id string, index int) (Resolution, error) {
	e.mu.Lock()
	c, ok := e.active[id]
	if !ok {
		e.mu.Unlock()
		e.log.Printf("choice: %s not found", id)
		return Resolution{}, gameerr.New(gameerr.CodeNotFound, fmt.Sprintf("no active choice %q", id))
	}
	if index < 0 || index >= len(c.Options) {
		e.mu.Unlock()
		e.log.Printf("choice: %s invalid option %d", id, index)
		return Resolution{}, gameerr.WithMetadata(gameerr.CodeInvalidInput,
			fmt.Sprintf("option %d is out of range for %q", index+1, c.Title),
			map[string]string{"options": fmt.Sprint(len(c.Options))})
	}
	rec := Record{
		ChoiceID:    id,
		OptionIndex: index,
		Option:      c.Options[index],
		Timestamp:   e.clock.Now(),
		Context:     maps.Clone(c.Context),
	}
	e.history = append(e.history, rec)
	delete(e.active, id)
	e.order = slices.DeleteFunc(e.order, func(s string) bool { return s == id })
	e.mu.Unlock()

	e.apply(id, rec.Option.Consequences)
	e.sink.Emit(events.ChoiceMade, rec)

	res := Resolution{Record: rec, Response: rec.Option.Response}
	if res.Response == "" {
		res.Response = random.Pick(e.rng, genericResponses)
	}
	res.Commentary = random.Pick(e.rng, commentaryPool(rec.Option))

	events.Say(e.sink, events.StyleSystem, "> You chose: "+rec.Option.Text)
	events.Say(e.sink, events.StyleStory, res.Response)
	events.Say(e.sink, events.StyleCommentary, res.Commentary)

	e.schedule(rec)
	return res, nil
}

func (e *Engine) apply(choiceID string, cs []Consequence) {
	for _, c := range cs {
		switch c := c.(type) {
		case StatDelta:
			if e.world == nil || !e.world.ApplyStat(c.Stat, c.Delta) {
				e.log.Printf("choice: %s ignored stat %q", choiceID, c.Stat)
			}
		case ReputationDelta:
			if e.world != nil {
				e.world.ApplyReputationDelta(c.Faction, c.Delta)
			}
		case Unlock:
			if e.world != nil {
				e.world.Unlock(c.Path)
			}
		case WorldChange:
			if e.world != nil {
				e.world.SetWorldChange(c.Key, c.Value)
			}
		case LongTerm:
			e.mu.Lock()
			e.longTerm[choiceID] = c.Payload
			e.mu.Unlock()
		default:
			e.log.Printf("choice: %s unknown consequence %T", choiceID, c)
		}
	}
}

// schedule starts every follow-up timer at once; they fire independently.
func (e *Engine) schedule(rec Record) {
	gen := e.sched.Generation()
	for _, f := range rec.Option.FollowUps {
		e.sched.After(f.delay(), func() {
			if e.sched.Generation() != gen {
				e.log.Printf("choice: dropping stale %s follow-up from %s", f.Type, rec.ChoiceID)
				return
			}
			e.runFollowUp(f, rec)
		})
	}
}

func (e *Engine) runFollowUp(f FollowUp, origin Record) {
	e.mu.Lock()
	enc, quests := e.encounters, e.quests
	e.mu.Unlock()

	switch f.Type {
	case FollowNewChoice:
		var def Definition
		if f.Choice != nil {
			def = *f.Choice
		} else {
			t, err := e.Template(f.Template, e.templateContext())
			if err != nil {
				e.log.Printf("choice: follow-up from %s: %v", origin.ChoiceID, err)
				return
			}
			def = t
		}
		id := f.ChoiceID
		if id == "" {
			id = f.Template
		}
		if _, err := e.Present(id, def); err != nil {
			e.log.Printf("choice: follow-up from %s: %v", origin.ChoiceID, err)
		}
	case FollowNarrative:
		events.Say(e.sink, events.StyleStory, f.Text)
	case FollowEncounter:
		if enc == nil {
			e.log.Printf("choice: no encounter handler for %s", f.EncounterID)
			return
		}
		enc.TriggerEncounter(f.EncounterID)
	case FollowQuestUpdate:
		if quests == nil {
			e.log.Printf("choice: no quest handler for %s", f.QuestID)
			return
		}
		if err := quests.UpdateQuest(f.QuestID, f.Update); err != nil {
			e.log.Printf("choice: quest update %s: %v", f.QuestID, err)
		}
	default:
		e.log.Printf("choice: unknown follow-up type %q", f.Type)
	}
}

// TemplateContext fills template placeholders.
type TemplateContext struct {
	PlayerName string
	LandName   string
}

func (e *Engine) templateContext() TemplateContext {
	var tc TemplateContext
	if e.world != nil {
		tc.PlayerName = e.world.Player().Name
	}
	e.mu.Lock()
	lands := e.lands
	e.mu.Unlock()
	if lands != nil {
		tc.LandName = lands.CurrentLandName()
	}
	return tc
}

// Template returns a copy of the named template with {playerName} and
// {landName} substituted where a value is known.
func (e *Engine) Template(name string, tc TemplateContext) (Definition, error) {
	e.mu.Lock()
	t, ok := e.templates[name]
	e.mu.Unlock()
	if !ok {
		return Definition{}, gameerr.New(gameerr.CodeNotFound, fmt.Sprintf("choice template %q not found", name))
	}
	def := t.Clone()
	if def.ID == "" {
		def.ID = name
	}
	r := strings.NewReplacer(replacements(tc)...)
	def.Title = r.Replace(def.Title)
	def.Description = r.Replace(def.Description)
	for i := range def.Options {
		def.Options[i].Text = r.Replace(def.Options[i].Text)
		def.Options[i].Response = r.Replace(def.Options[i].Response)
	}
	return def, nil
}

func replacements(tc TemplateContext) []string {
	var pairs []string
	if tc.PlayerName != "" {
		pairs = append(pairs, "{playerName}", tc.PlayerName)
	}
	if tc.LandName != "" {
		pairs = append(pairs, "{landName}", tc.LandName)
	}
	return pairs
}

// PresentTemplate presents the named template using the current player and
// land for substitution.
func (e *Engine) PresentTemplate(id, name string) (Choice, error) {
	def, err := e.Template(name, e.templateContext())
	if err != nil {
		return Choice{}, err
	}
	if id == "" {
		id = def.ID
	}
	return e.Present(id, def)
}

// TemplateNames lists the registered templates in sorted order.
func (e *Engine) TemplateNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return sortedKeys(e.templates)
}

// HasChosen reports whether id has been resolved at least once.
func (e *Engine) HasChosen(id string) bool {
	_, ok := e.firstRecord(id)
	return ok
}

// HasChosenOption reports whether the first resolution of id picked index.
func (e *Engine) HasChosenOption(id string, index int) bool {
	rec, ok := e.firstRecord(id)
	return ok && rec.OptionIndex == index
}

func (e *Engine) firstRecord(id string) (Record, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range e.history {
		if r.ChoiceID == id {
			return r, true
		}
	}
	return Record{}, false
}

func (e *Engine) Reputation(faction string) int {
	if e.world == nil {
		return 0
	}
	return e.world.Reputation(faction)
}

func (e *Engine) IsPathUnlocked(path string) bool {
	return e.world != nil && e.world.IsUnlocked(path)
}

func (e *Engine) WorldChange(key string) (any, bool) {
	if e.world == nil {
		return nil, false
	}
	return e.world.WorldChange(key)
}

// LongTermEffect returns the long-term payload stored by choice id.
func (e *Engine) LongTermEffect(id string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.longTerm[id]
	return v, ok
}

// Active returns the pending choices in presentation order.
func (e *Engine) Active() []Choice {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Choice, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.active[id])
	}
	return out
}

// Get returns an active choice.
func (e *Engine) Get(id string) (Choice, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.active[id]
	return c, ok
}

func (e *Engine) History() []Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.history)
}

// Snapshot is the persisted engine state.
type Snapshot struct {
	Active   []Choice       `json:"active"`
	History  []Record       `json:"history"`
	LongTerm map[string]any `json:"longTerm"`
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := Snapshot{
		Active:   make([]Choice, 0, len(e.order)),
		History:  slices.Clone(e.history),
		LongTerm: maps.Clone(e.longTerm),
	}
	for _, id := range e.order {
		snap.Active = append(snap.Active, e.active[id])
	}
	if snap.History == nil {
		snap.History = []Record{}
	}
	return snap
}

func (e *Engine) Restore(snap Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
	e.history = slices.Clone(snap.History)
	for k, v := range snap.LongTerm {
		e.longTerm[k] = v
	}
	for _, c := range snap.Active {
		if _, dup := e.active[c.ID]; !dup {
			e.order = append(e.order, c.ID)
		}
		e.active[c.ID] = c
	}
}

// Reset forgets every active choice, record and long-term effect.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

func (e *Engine) resetLocked() {
	e.active = make(map[string]Choice)
	e.order = nil
	e.history = nil
	e.longTerm = make(map[string]any)
}
