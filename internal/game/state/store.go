// Package state is the canonical, mutex-guarded record of player, session
// and world facts.
package state

import (
	"maps"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/zyedidia/generic/mapset"

	"sburbterm/internal/debug"
	"sburbterm/internal/game"
	"sburbterm/internal/game/events"
	"sburbterm/internal/scheduler"
)

// CommandLogCapacity bounds the in-memory command log.
const CommandLogCapacity = 1000

// LevelUp is the payload of a player:level_up event.
type LevelUp struct {
	Level int `json:"level"`
	MaxHP int `json:"maxHp"`
}

type pendingEvent struct {
	name    events.Name
	payload any
}

// Store holds every mutable game fact. Each exported method is atomic; events
// are emitted after the lock is released.
type Store struct {
	mu            sync.Mutex
	player        game.Player
	session       game.Session
	settings      game.Settings
	reputation    map[string]int
	relationships map[string]game.Relationship
	unlocked      mapset.Set[string]
	worldChanges  map[string]any
	commands      *game.History[game.CommandEntry]
	book          []game.BookEntry

	sink  events.Sink
	clock scheduler.Clock
	log   *debug.Logger
}

func New(sink events.Sink, clock scheduler.Clock, log *debug.Logger) *Store {
	if sink == nil {
		sink = events.Nop{}
	}
	if clock == nil {
		clock = scheduler.SystemClock{}
	}
	s := &Store{sink: sink, clock: clock, log: log, settings: game.DefaultSettings()}
	s.resetLocked()
	return s
}

func (s *Store) resetLocked() {
	ws := game.NewWorldState()
	s.player = game.NewPlayer()
	s.session = game.Session{}
	s.reputation = ws.Reputation
	s.relationships = ws.Relationships
	s.unlocked = mapset.New[string]()
	s.worldChanges = ws.WorldChanges
	s.commands = game.NewHistory[game.CommandEntry](CommandLogCapacity)
	s.book = nil
}

// Reset returns to a fresh state but keeps settings.
func (s *Store) Reset() {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
	s.log.Printf("state: reset to defaults")
}

func (s *Store) emit(evs []pendingEvent) {
	for _, ev := range evs {
		s.sink.Emit(ev.name, ev.payload)
	}
}

// Player returns a copy of the player record.
func (s *Store) Player() game.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyPlayer(s.player)
}

func copyPlayer(p game.Player) game.Player {
	p.Inventory = append([]game.Item{}, p.Inventory...)
	p.Echoes = append([]string{}, p.Echoes...)
	return p
}

func (s *Store) SetName(name string) {
	s.mu.Lock()
	s.player.Name = name
	s.mu.Unlock()
	s.sink.Emit(events.PlayerNameSet, name)
}

func (s *Store) SetClasspect(classpect string) {
	s.mu.Lock()
	s.player.Classpect = classpect
	s.mu.Unlock()
	s.sink.Emit(events.PlayerClasspectSet, classpect)
}

func (s *Store) SetLunarSway(sway string) {
	s.mu.Lock()
	s.player.LunarSway = sway
	s.mu.Unlock()
	s.sink.Emit(events.PlayerLunarSwaySet, sway)
}

func (s *Store) SetCurrentLand(id string) {
	s.mu.Lock()
	s.player.CurrentLand = id
	s.mu.Unlock()
	s.sink.Emit(events.PlayerLandSet, id)
}

func (s *Store) AddItem(item game.Item) {
	s.mu.Lock()
	s.player.Inventory = append(s.player.Inventory, item)
	s.mu.Unlock()
	s.sink.Emit(events.PlayerItemAdded, item)
}

// AddEcho records an owned echo name once.
func (s *Store) AddEcho(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.player.Echoes {
		if e == name {
			return
		}
	}
	s.player.Echoes = append(s.player.Echoes, name)
}

// ApplyStat adds delta to a named player stat. Unknown names are ignored and
// reported as false.
func (s *Store) ApplyStat(name string, delta int) bool {
	s.mu.Lock()
	var evs []pendingEvent
	p := &s.player
	switch name {
	case game.StatHP:
		p.HP = clamp(p.HP+delta, 0, p.MaxHP)
	case game.StatExperience:
		p.Experience = max(0, p.Experience+delta)
		evs = s.levelUpLocked()
	case game.StatLevel:
		p.Level = max(1, p.Level+delta)
	case game.StatMaxHP:
		p.MaxHP = max(1, p.MaxHP+delta)
		p.HP = clamp(p.HP, 0, p.MaxHP)
	default:
		s.mu.Unlock()
		s.log.Printf("state: ignoring unknown stat %q", name)
		return false
	}
	s.mu.Unlock()
	s.emit(evs)
	return true
}

// levelUpLocked spends experience on as many levels as it covers.
func (s *Store) levelUpLocked() []pendingEvent {
	var evs []pendingEvent
	p := &s.player
	for threshold := game.LevelThreshold(p.Level); p.Experience >= threshold; threshold = game.LevelThreshold(p.Level) {
		p.Level++
		p.Experience -= threshold
		p.MaxHP += 10
		p.HP = p.MaxHP
		evs = append(evs, pendingEvent{events.PlayerLevelUp, LevelUp{Level: p.Level, MaxHP: p.MaxHP}})
	}
	return evs
}

// ApplyReputationDelta adds delta to a faction and returns the new score.
func (s *Store) ApplyReputationDelta(faction string, delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reputation[faction] += delta
	return s.reputation[faction]
}

// Reputation is 0 for factions never touched.
func (s *Store) Reputation(faction string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reputation[faction]
}

func (s *Store) Reputations() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.reputation)
}

// Unlock adds path to the grow-only set. It reports whether the path is new.
func (s *Store) Unlock(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unlocked.Has(path) {
		return false
	}
	s.unlocked.Put(path)
	return true
}

func (s *Store) IsUnlocked(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unlocked.Has(path)
}

func (s *Store) UnlockedPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unlockedLocked()
}

func (s *Store) unlockedLocked() []string {
	out := make([]string, 0, s.unlocked.Size())
	s.unlocked.Each(func(p string) { out = append(out, p) })
	sort.Strings(out)
	return out
}

// SetWorldChange records a fact; the last write wins.
func (s *Store) SetWorldChange(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.worldChanges[key] = value
}

func (s *Store) WorldChange(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.worldChanges[key]
	return v, ok
}

func (s *Store) SetRelationship(id string, rel game.Relationship) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relationships[id] = maps.Clone(rel)
}

func (s *Store) Relationship(id string) (game.Relationship, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rel, ok := s.relationships[id]
	return maps.Clone(rel), ok
}

// World returns a copy of the world facts.
func (s *Store) World() game.WorldState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.worldLocked()
}

func (s *Store) worldLocked() game.WorldState {
	rels := make(map[string]game.Relationship, len(s.relationships))
	for id, rel := range s.relationships {
		rels[id] = maps.Clone(rel)
	}
	return game.WorldState{
		Reputation:    maps.Clone(s.reputation),
		Relationships: rels,
		UnlockedPaths: s.unlockedLocked(),
		WorldChanges:  maps.Clone(s.worldChanges),
	}
}

// StartSession begins a new play session with a fresh id.
func (s *Store) StartSession() game.Session {
	s.mu.Lock()
	s.session = game.Session{ID: uuid.NewString(), StartTime: s.clock.Now()}
	sess := s.session
	s.mu.Unlock()
	s.sink.Emit(events.SessionStarted, sess)
	return sess
}

func (s *Store) Session() game.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// RecordCommand appends to the bounded command log.
func (s *Store) RecordCommand(command, response string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	s.commands.Add(game.CommandEntry{Command: command, Response: response, Timestamp: now})
	s.session.CommandCount++
	s.session.LastCommand = now
}

func (s *Store) Commands() []game.CommandEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commands.GetEntries()
}

// AddBookEntry writes a page in the Book of Numbers.
func (s *Store) AddBookEntry(title, content, kind string) game.BookEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := game.BookEntry{
		ID:        ulid.Make().String(),
		Title:     title,
		Content:   content,
		Kind:      kind,
		Timestamp: s.clock.Now(),
	}
	s.book = append(s.book, entry)
	return entry
}

func (s *Store) Book() []game.BookEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]game.BookEntry(nil), s.book...)
}

func (s *Store) Settings() game.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Store) UpdateSettings(fn func(*game.Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.settings)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
