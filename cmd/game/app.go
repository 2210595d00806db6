package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"sburbterm/internal/config"
	"sburbterm/internal/content"
	"sburbterm/internal/debug"
	"sburbterm/internal/engine"
	"sburbterm/internal/game/commands"
	"sburbterm/internal/game/events"
	"sburbterm/internal/llm"
	"sburbterm/internal/logging"
	"sburbterm/internal/observability"
	"sburbterm/internal/persistence"
	"sburbterm/internal/random"
)

type app struct {
	cfg    config.Config
	debug  *debug.Logger
	bus    *events.Bus
	engine *engine.Engine
	ctx    context.Context
}

// createApp wires configuration, tracing, storage and the engine. The
// returned cleanup saves nothing; callers decide whether to save on exit.
func createApp(cfg config.Config) (*app, func(), error) {
	debugLogger := debug.NewFileLogger(cfg.Debug, cfg.Path("debug.log"))

	ctx := observability.WithSessionID(context.Background(), uuid.NewString())
	tracerProvider, err := observability.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		debugLogger.Printf("Failed to initialize tracing: %v", err)
	} else if tracerProvider.IsEnabled() {
		debugLogger.Println("OpenTelemetry tracing initialized and enabled")
	} else {
		debugLogger.Println("OpenTelemetry tracing disabled (set OTEL_TRACES_ENABLED=true to enable)")
	}

	pack, err := content.Load(cfg.ContentPath)
	if err != nil {
		return nil, nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		if seed, err = random.NewSeed(); err != nil {
			return nil, nil, err
		}
	}
	debugLogger.Printf("Random seed: %d", seed)

	medium, err := persistence.Open(cfg.SaveBackend, cfg.Path(cfg.SavePath))
	if err != nil {
		return nil, nil, fmt.Errorf("open saves: %w", err)
	}

	cmdLog, err := logging.NewCommandLogger(cfg.Path(cfg.CommandLogPath))
	if err != nil {
		medium.Close()
		return nil, nil, fmt.Errorf("failed to initialize command logger: %w", err)
	}

	var oracle commands.Oracle
	loreService, err := llm.NewService(cfg.OpenAIKey, cfg.OpenAIModel, debugLogger)
	switch {
	case errors.Is(err, llm.ErrNoKey):
		debugLogger.Println("No OPENAI_API_KEY, lore uses the local narrative chains")
	case err != nil:
		debugLogger.Printf("Lore oracle unavailable: %v", err)
	default:
		oracle = loreService
		debugLogger.Printf("Lore oracle using %s", loreService.Model())
	}

	bus := events.NewBus(debugLogger)
	eng, err := engine.New(engine.Options{
		Content:          pack,
		Random:           random.New(seed),
		Sink:             bus,
		Log:              debugLogger,
		Medium:           medium,
		Slot:             cfg.SaveSlot,
		Oracle:           oracle,
		CommandLog:       cmdLog,
		EchoLimit:        cfg.EchoLimit,
		NarrativeLength:  cfg.NarrativeLength,
		AutoSave:         cfg.AutoSave,
		AutoSaveInterval: cfg.AutoSaveInterval,
	})
	if err != nil {
		cmdLog.Close()
		medium.Close()
		return nil, nil, err
	}
	eng.StartAutosave()

	a := &app{
		cfg:    cfg,
		debug:  debugLogger,
		bus:    bus,
		engine: eng,
		ctx:    ctx,
	}
	cleanup := func() {
		if err := eng.Close(); err != nil {
			debugLogger.Printf("close engine: %v", err)
		}
		cmdLog.Close()
		if tracerProvider != nil {
			tracerProvider.Shutdown(context.Background())
		}
	}
	return a, cleanup, nil
}

// resume loads the configured slot if there is one. A missing save is not an
// error; an incompatible one has already reset the game.
func (a *app) resume() string {
	err := a.engine.Load(a.ctx)
	switch {
	case err == nil:
		return "Session restored from your last save."
	case errors.Is(err, persistence.ErrNoSave):
		return ""
	default:
		a.debug.Printf("resume: %v", err)
		return "Your last save could not be restored. A fresh session awaits."
	}
}
