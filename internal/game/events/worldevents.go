package events

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"sburbterm/internal/debug"
)

// Name is the canonical name of a presentation event.
type Name string

const (
	ChoicePresented Name = "choice:presented"
	ChoiceMade      Name = "choice:made"

	EchoActivated   Name = "echo:activated"
	EchoDeactivated Name = "echo:deactivated"
	EchoUsed        Name = "echo:used"
	EchoGenerated   Name = "echo:generated"
	EchoMutated     Name = "echo:mutated"
	CallFileRun     Name = "echo:call_file"

	PlayerLevelUp      Name = "player:level_up"
	PlayerNameSet      Name = "player:name_set"
	PlayerClasspectSet Name = "player:classpect_set"
	PlayerLunarSwaySet Name = "player:lunar_sway_set"
	PlayerLandSet      Name = "player:land_set"
	PlayerItemAdded    Name = "player:item_added"

	Narrative          Name = "narrative"
	EncounterTriggered Name = "encounter:triggered"
	QuestUpdated       Name = "quest:updated"
	LandGenerated      Name = "land:generated"
	LandExplored       Name = "land:explored"

	SessionStarted Name = "session:started"
	GameSaved      Name = "game:saved"
	GameLoaded     Name = "game:loaded"
	GameReset      Name = "game:reset"
)

// Sink consumes engine notifications. Implementations must not call back
// into the engine synchronously and must not panic; Bus enforces the latter.
type Sink interface {
	Emit(name Name, payload any)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(Name, any) {}

// Event is the canonical record handed to subscribers.
type Event struct {
	ID        string    `json:"id"`
	Name      Name      `json:"name"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NarrativeLine is the payload of a Narrative event.
type NarrativeLine struct {
	Text  string `json:"text"`
	Style string `json:"style,omitempty"`
}

// Line styles understood by the presentation layers.
const (
	StyleStory      = "story"
	StyleCommentary = "commentary"
	StyleSystem     = "system"
	StyleWarning    = "warning"
)

// Say is a shorthand for emitting one narrative line.
func Say(sink Sink, style, text string) {
	if sink == nil || text == "" {
		return
	}
	sink.Emit(Narrative, NarrativeLine{Text: text, Style: style})
}

// Bus fans events out to subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]func(Event)
	next int
	now  func() time.Time
	log  *debug.Logger
}

func NewBus(log *debug.Logger) *Bus {
	return &Bus{subs: make(map[int]func(Event)), now: time.Now, log: log}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

func (b *Bus) Emit(name Name, payload any) {
	ev := Event{
		ID:        ulid.Make().String(),
		Name:      name,
		Payload:   payload,
		Timestamp: b.now(),
	}

	b.mu.RLock()
	subs := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()

	for _, fn := range subs {
		b.deliver(fn, ev)
	}
}

func (b *Bus) deliver(fn func(Event), ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Printf("event subscriber panicked on %s: %v", ev.Name, r)
		}
	}()
	fn(ev)
}

// Recorder keeps every emitted event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(name Name, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Name: name, Payload: payload})
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events named name were recorded.
func (r *Recorder) Count(name Name) int {
	n := 0
	for _, ev := range r.Events() {
		if ev.Name == name {
			n++
		}
	}
	return n
}

// Last returns the most recent event named name.
func (r *Recorder) Last(name Name) (Event, bool) {
	evs := r.Events()
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Name == name {
			return evs[i], true
		}
	}
	return Event{}, false
}

// Lines returns the text of every narrative event, in order.
func (r *Recorder) Lines() []string {
	var out []string
	for _, ev := range r.Events() {
		if line, ok := ev.Payload.(NarrativeLine); ok && ev.Name == Narrative {
			out = append(out, line.Text)
		}
	}
	return out
}
