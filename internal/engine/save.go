package engine

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"sburbterm/internal/game/choice"
	"sburbterm/internal/game/echo"
	"sburbterm/internal/game/events"
	"sburbterm/internal/game/land"
	"sburbterm/internal/game/state"
	"sburbterm/internal/gameerr"
)

//go:embed save.schema.json
var saveSchemaJSON string

var saveSchema = jsonschema.MustCompileString("save.schema.json", saveSchemaJSON)

// Blob is the whole persisted game.
type Blob struct {
	Version   string          `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	State     state.Snapshot  `json:"state"`
	Choices   choice.Snapshot `json:"choices"`
	Echoes    echo.Snapshot   `json:"echoes"`
	Lands     land.Snapshot   `json:"lands"`
}

// Snapshot captures every component. Each component is read atomically; the
// blob as a whole is taken between commands.
func (e *Engine) Snapshot() Blob {
	b := Blob{
		Version:   state.SaveVersion,
		Timestamp: e.clock.Now(),
		State:     e.State.Save(),
		Choices:   e.Choices.Snapshot(),
		Echoes:    e.Echoes.Snapshot(),
		Lands:     e.Lands.Snapshot(),
	}
	if b.Lands.Lands == nil {
		b.Lands.Lands = []land.Land{}
	}
	return b
}

// Export encodes the current game as JSON.
func (e *Engine) Export() ([]byte, error) {
	data, err := json.Marshal(e.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("encode save: %w", err)
	}
	return data, nil
}

// Import validates and applies an encoded game. A blob that fails the
// schema or carries an unknown major version resets the game and returns an
// IncompatibleSave error.
func (e *Engine) Import(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		e.Reset()
		return gameerr.Wrap(gameerr.CodeIncompatibleSave, "save is not valid JSON", err)
	}
	if err := saveSchema.Validate(raw); err != nil {
		e.Reset()
		return gameerr.Wrap(gameerr.CodeIncompatibleSave, "save does not match the expected shape", err)
	}

	var b Blob
	if err := json.Unmarshal(data, &b); err != nil {
		e.Reset()
		return gameerr.Wrap(gameerr.CodeIncompatibleSave, "save could not be decoded", err)
	}
	if !state.Compatible(b.Version) {
		e.Reset()
		return gameerr.WithMetadata(gameerr.CodeIncompatibleSave,
			fmt.Sprintf("save version %q is not compatible with %s", b.Version, state.SaveVersion),
			map[string]string{"version": b.Version})
	}

	e.sched.Reset()
	if err := e.State.Load(b.State); err != nil {
		e.Choices.Reset()
		e.Echoes.Reset()
		e.Lands.Reset()
		return err
	}
	e.Choices.Restore(b.Choices)
	e.Echoes.Restore(b.Echoes)
	e.Echoes.SetLimit(e.State.Settings().EchoLimit)
	e.Lands.Restore(b.Lands)
	return nil
}

// Save writes the game to the configured slot.
func (e *Engine) Save(ctx context.Context) error {
	ctx, span := e.span(ctx, "engine.save")
	defer span.End()

	if e.medium == nil {
		err := errors.New("no save medium configured")
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	data, err := e.Export()
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.Int("save.bytes", len(data)))
	if err := e.medium.Save(ctx, e.slot, data); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return fmt.Errorf("save game: %w", err)
	}
	e.log.Printf("engine: saved %d bytes to %s", len(data), e.slot)
	e.sink.Emit(events.GameSaved, e.slot)
	return nil
}

// Load restores the game from the configured slot. persistence.ErrNoSave is
// returned untouched when the slot is empty.
func (e *Engine) Load(ctx context.Context) error {
	ctx, span := e.span(ctx, "engine.load")
	defer span.End()

	if e.medium == nil {
		err := errors.New("no save medium configured")
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	data, err := e.medium.Load(ctx, e.slot)
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.Int("save.bytes", len(data)))
	if err := e.Import(data); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(gameerr.CodeOf(err)))
		e.log.Printf("engine: load failed: %v", err)
		return err
	}
	e.log.Printf("engine: loaded %s", e.slot)
	e.sink.Emit(events.GameLoaded, e.slot)
	return nil
}
