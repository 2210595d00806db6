// Package engine wires the game components together and owns save, load
// and reset.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"sburbterm/internal/content"
	"sburbterm/internal/debug"
	"sburbterm/internal/game"
	"sburbterm/internal/game/choice"
	"sburbterm/internal/game/commands"
	"sburbterm/internal/game/echo"
	"sburbterm/internal/game/events"
	"sburbterm/internal/game/land"
	"sburbterm/internal/game/narrative"
	"sburbterm/internal/game/state"
	"sburbterm/internal/persistence"
	"sburbterm/internal/random"
	"sburbterm/internal/scheduler"
)

// DefaultSlot is the save slot used when none is configured.
const DefaultSlot = "default"

type Options struct {
	Content   content.Pack
	Random    random.Source
	Clock     scheduler.Clock
	Scheduler scheduler.Scheduler
	Sink      events.Sink
	Log       *debug.Logger
	Medium    persistence.Medium
	Slot      string

	Oracle     commands.Oracle
	CommandLog commands.CommandLog

	EchoLimit        int
	NarrativeLength  string
	AutoSave         bool
	AutoSaveInterval time.Duration

	// NewID overrides uuid generation for echoes and lands.
	NewID func() string
}

// Engine is the context object every caller goes through. Components are
// exported for read access by presentation layers.
type Engine struct {
	Narrator *narrative.Generator
	State    *state.Store
	Echoes   *echo.Registry
	Choices  *choice.Engine
	Lands    *land.Registry
	Commands *commands.Dispatcher

	sink   events.Sink
	sched  scheduler.Scheduler
	clock  scheduler.Clock
	log    *debug.Logger
	medium persistence.Medium
	slot   string

	autoSaveInterval time.Duration

	mu           sync.Mutex
	stopAutosave func()
}

// New builds the components leaves first: narrative, state, echoes,
// choices, lands, commands.
func New(opts Options) (*Engine, error) {
	if err := opts.Content.Validate(); err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}
	if opts.Random == nil {
		opts.Random = random.New(0)
	}
	if opts.Sink == nil {
		opts.Sink = events.Nop{}
	}
	if opts.Clock == nil {
		opts.Clock = scheduler.SystemClock{}
	}
	if opts.Scheduler == nil {
		opts.Scheduler = scheduler.NewTimers()
	}
	if opts.Slot == "" {
		opts.Slot = DefaultSlot
	}

	e := &Engine{
		sched:            opts.Scheduler,
		clock:            opts.Clock,
		log:              opts.Log,
		medium:           opts.Medium,
		slot:             opts.Slot,
		autoSaveInterval: opts.AutoSaveInterval,
	}
	opts.Sink = levelUpSink{Sink: opts.Sink, onLevelUp: e.offerDynamicChoice}
	e.sink = opts.Sink

	e.Narrator = narrative.New(opts.Content.Narrative, opts.Random, opts.Log)

	e.State = state.New(opts.Sink, opts.Clock, opts.Log)
	e.State.UpdateSettings(func(s *game.Settings) {
		s.AutoSave = opts.AutoSave
		if opts.NarrativeLength != "" {
			s.NarrativeLength = opts.NarrativeLength
		}
		if opts.EchoLimit > 0 {
			s.EchoLimit = opts.EchoLimit
		}
	})

	e.Echoes = echo.New(echo.Options{
		Limit:    e.State.Settings().EchoLimit,
		Narrator: e.Narrator,
		Store:    e.State,
		Sink:     opts.Sink,
		Clock:    opts.Clock,
		Random:   opts.Random,
		Log:      opts.Log,
		NewID:    opts.NewID,
	})

	e.Choices = choice.New(choice.Options{
		World:     e.State,
		Sink:      opts.Sink,
		Scheduler: opts.Scheduler,
		Clock:     opts.Clock,
		Random:    opts.Random,
		Log:       opts.Log,
		Templates: opts.Content.Choices,
	})

	e.Lands = land.New(land.Options{
		Catalog:  opts.Content.Lands,
		Narrator: e.Narrator,
		Sink:     opts.Sink,
		Clock:    opts.Clock,
		Random:   opts.Random,
		Log:      opts.Log,
		NewID:    opts.NewID,
	})
	e.Choices.SetCollaborators(e.Lands, e.Lands, e.Lands)

	e.Commands = commands.New(commands.Options{
		Store:     e.State,
		Narrator:  e.Narrator,
		Choices:   e.Choices,
		Echoes:    e.Echoes,
		Lands:     e.Lands,
		Session:   e,
		Oracle:    opts.Oracle,
		Log:       opts.CommandLog,
		Scheduler: opts.Scheduler,
		Clock:     opts.Clock,
		Random:    opts.Random,
		Debug:     opts.Log,
	})

	e.log.Printf("engine: ready (slot %s, echo limit %d)", e.slot, e.Echoes.Limit())
	return e, nil
}

// levelUpSink forwards every event and reports level-ups on the side.
type levelUpSink struct {
	events.Sink
	onLevelUp func()
}

func (s levelUpSink) Emit(name events.Name, payload any) {
	s.Sink.Emit(name, payload)
	if name == events.PlayerLevelUp {
		s.onLevelUp()
	}
}

// offerDynamicChoice runs off the emitting goroutine, so the store and the
// choice engine have released their locks by the time it looks at them.
func (e *Engine) offerDynamicChoice() {
	e.sched.After(choice.DefaultFollowUpDelay, func() {
		if c, ok := e.Choices.OfferDynamic(nil); ok {
			e.log.Printf("engine: offered %s", c.ID)
		}
	})
}

// Execute runs one line of player input.
func (e *Engine) Execute(ctx context.Context, input string) (commands.Response, error) {
	return e.Commands.Execute(ctx, input)
}

// Reset returns every component to a fresh game and drops pending
// follow-ups. Settings survive.
func (e *Engine) Reset() {
	e.sched.Reset()
	e.State.Reset()
	e.Choices.Reset()
	e.Echoes.Reset()
	e.Lands.Reset()
	e.Narrator.ClearContext()
	e.log.Printf("engine: reset")
	e.sink.Emit(events.GameReset, nil)
}

// StartAutosave saves on every interval while a session is active. It is a
// no-op when autosave is off, no medium is configured, or it already runs.
func (e *Engine) StartAutosave() {
	if !e.State.Settings().AutoSave || e.medium == nil || e.autoSaveInterval <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopAutosave != nil {
		return
	}
	e.stopAutosave = e.sched.Every(e.autoSaveInterval, func() {
		if e.State.Session().ID == "" {
			return
		}
		if err := e.Save(context.Background()); err != nil {
			e.log.Printf("engine: autosave failed: %v", err)
		}
	})
}

// Close stops autosave and releases the medium.
func (e *Engine) Close() error {
	e.mu.Lock()
	stop := e.stopAutosave
	e.stopAutosave = nil
	e.mu.Unlock()
	if stop != nil {
		stop()
	}
	if t, ok := e.sched.(*scheduler.Timers); ok {
		t.Close()
	}
	if e.medium != nil {
		return e.medium.Close()
	}
	return nil
}

func (e *Engine) span(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer("engine").Start(ctx, name, trace.WithAttributes(
		attribute.String("save.slot", e.slot),
	))
}
