package state

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/zyedidia/generic/mapset"

	"sburbterm/internal/game"
	"sburbterm/internal/gameerr"
)

// SaveVersion is stamped on every snapshot. Any 2.x snapshot loads.
const SaveVersion = "2.0.1"

// Snapshot is the serializable form of a Store.
type Snapshot struct {
	Version   string              `json:"version"`
	Timestamp time.Time           `json:"timestamp"`
	Player    game.Player         `json:"player"`
	Session   game.Session        `json:"session"`
	Settings  game.Settings       `json:"settings"`
	World     game.WorldState     `json:"world"`
	Commands  []game.CommandEntry `json:"commands"`
	Book      []game.BookEntry    `json:"book"`
}

// Compatible reports whether a snapshot version can be loaded.
func Compatible(version string) bool {
	return strings.HasPrefix(version, "2.")
}

func (s *Store) Save() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Version:   SaveVersion,
		Timestamp: s.clock.Now(),
		Player:    copyPlayer(s.player),
		Session:   s.session,
		Settings:  s.settings,
		World:     s.worldLocked(),
		Commands:  s.commands.GetEntries(),
		Book:      append([]game.BookEntry(nil), s.book...),
	}
}

// Load replaces the whole state with snap. An incompatible version resets to
// defaults, keeping settings, and returns an IncompatibleSave error.
func (s *Store) Load(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !Compatible(snap.Version) {
		s.resetLocked()
		return gameerr.WithMetadata(gameerr.CodeIncompatibleSave,
			fmt.Sprintf("save version %q is not compatible with %s", snap.Version, SaveVersion),
			map[string]string{"version": snap.Version})
	}

	s.resetLocked()
	s.player = copyPlayer(snap.Player)
	if s.player.Level < 1 {
		s.player.Level = 1
	}
	if s.player.MaxHP < 1 {
		s.player.MaxHP = game.NewPlayer().MaxHP
	}
	s.player.HP = clamp(s.player.HP, 0, s.player.MaxHP)
	s.session = snap.Session
	if snap.Settings.EchoLimit > 0 {
		s.settings = snap.Settings
	}

	for f, v := range snap.World.Reputation {
		s.reputation[f] = v
	}
	for id, rel := range snap.World.Relationships {
		r := maps.Clone(rel)
		game.NormalizeValue(r)
		s.relationships[id] = r
	}
	s.unlocked = mapset.New[string]()
	for _, p := range snap.World.UnlockedPaths {
		s.unlocked.Put(p)
	}
	for k, v := range snap.World.WorldChanges {
		s.worldChanges[k] = game.NormalizeValue(v)
	}
	for _, c := range snap.Commands {
		s.commands.Add(c)
	}
	s.book = append([]game.BookEntry(nil), snap.Book...)
	return nil
}
