package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"sburbterm/internal/game"
	"sburbterm/internal/game/events"
	"sburbterm/internal/gameerr"
	"sburbterm/internal/random"
	"sburbterm/internal/scheduler"
)

func newTestStore(t *testing.T) (*Store, *events.Recorder) {
	t.Helper()
	rec := &events.Recorder{}
	clock := scheduler.NewManual(time.Date(2009, 4, 13, 0, 0, 0, 0, time.UTC))
	return New(rec, clock, nil), rec
}

func TestReputationDefaultsToZeroAndSums(t *testing.T) {
	s, _ := newTestStore(t)
	if s.Reputation("carapacians") != 0 {
		t.Fatalf("untouched faction should read 0")
	}
	sum := 0
	for _, d := range []int{3, -7, 2, 11} {
		s.ApplyReputationDelta("carapacians", d)
		sum += d
	}
	if got := s.Reputation("carapacians"); got != sum {
		t.Fatalf("reputation = %d, want %d", got, sum)
	}
	if s.Reputations()["echoes"] != 0 {
		t.Fatalf("seeded faction missing")
	}
}

func TestExperienceLevelUpPreservesOverflow(t *testing.T) {
	s, rec := newTestStore(t)
	s.ApplyStat(game.StatExperience, 95)
	s.ApplyStat(game.StatHP, -40)
	s.ApplyStat(game.StatExperience, 10)

	p := s.Player()
	if p.Level != 2 || p.Experience != 5 || p.MaxHP != 110 || p.HP != 110 {
		t.Fatalf("after level up: %+v", p)
	}
	ev, ok := rec.Last(events.PlayerLevelUp)
	if !ok || ev.Payload.(LevelUp).Level != 2 {
		t.Fatalf("missing level up event: %+v", rec.Events())
	}
}

func TestExperienceBelowThresholdDoesNotLevel(t *testing.T) {
	s, rec := newTestStore(t)
	s.ApplyStat(game.StatExperience, 10)
	p := s.Player()
	if p.Level != 1 || p.Experience != 10 {
		t.Fatalf("player = %+v", p)
	}
	if rec.Count(events.PlayerLevelUp) != 0 {
		t.Fatalf("unexpected level up")
	}
}

func TestMultiLevelGainLoops(t *testing.T) {
	s, rec := newTestStore(t)
	s.ApplyStat(game.StatExperience, 350)
	p := s.Player()
	if p.Level != 3 || p.Experience != 50 || p.MaxHP != 120 || p.HP != 120 {
		t.Fatalf("player = %+v", p)
	}
	if rec.Count(events.PlayerLevelUp) != 2 {
		t.Fatalf("expected two level up events, got %d", rec.Count(events.PlayerLevelUp))
	}
}

func TestExperienceAwardIsAssociative(t *testing.T) {
	splits := [][]int{
		{1234},
		{600, 634},
		{100, 100, 100, 934},
		{1, 2, 3, 4, 1224},
		{999, 235},
	}
	var want game.Player
	for i, split := range splits {
		s, _ := newTestStore(t)
		for _, e := range split {
			s.ApplyStat(game.StatExperience, e)
		}
		got := s.Player()
		if i == 0 {
			want = got
			continue
		}
		if got.Level != want.Level || got.Experience != want.Experience || got.MaxHP != want.MaxHP || got.HP != want.HP {
			t.Fatalf("split %v gave %+v, want %+v", split, got, want)
		}
	}
}

func TestHPAlwaysClamped(t *testing.T) {
	s, _ := newTestStore(t)
	src := random.New(612)
	for i := 0; i < 500; i++ {
		s.ApplyStat(game.StatHP, src.Intn(401)-200)
		p := s.Player()
		if p.HP < 0 || p.HP > p.MaxHP {
			t.Fatalf("hp %d escaped [0,%d] at step %d", p.HP, p.MaxHP, i)
		}
	}
}

func TestOtherStats(t *testing.T) {
	s, rec := newTestStore(t)
	if s.ApplyStat("charisma", 5) {
		t.Fatalf("unknown stat reported as applied")
	}
	s.ApplyStat(game.StatLevel, 2)
	p := s.Player()
	if p.Level != 3 || p.MaxHP != 100 || p.HP != 100 {
		t.Fatalf("level delta had side effects: %+v", p)
	}
	if rec.Count(events.PlayerLevelUp) != 0 {
		t.Fatalf("level delta emitted level up")
	}

	s.ApplyStat(game.StatMaxHP, -30)
	p = s.Player()
	if p.MaxHP != 70 || p.HP != 70 {
		t.Fatalf("maxHp shrink did not clamp hp: %+v", p)
	}
}

func TestUnlockedPathsOnlyGrow(t *testing.T) {
	s, _ := newTestStore(t)
	paths := []string{"chaos_path", "echo_path", "chaos_path", "secret_area"}
	seen := map[string]bool{}
	prev := 0
	for _, p := range paths {
		isNew := s.Unlock(p)
		if isNew == seen[p] {
			t.Fatalf("Unlock(%q) newness = %v", p, isNew)
		}
		seen[p] = true
		size := len(s.UnlockedPaths())
		if size < prev {
			t.Fatalf("unlocked set shrank")
		}
		prev = size
		for q := range seen {
			if !s.IsUnlocked(q) {
				t.Fatalf("%q lost membership", q)
			}
		}
	}
	if got := s.UnlockedPaths(); !reflect.DeepEqual(got, []string{"chaos_path", "echo_path", "secret_area"}) {
		t.Fatalf("UnlockedPaths = %v", got)
	}
}

func TestWorldChangeLastWriteWins(t *testing.T) {
	s, _ := newTestStore(t)
	s.SetWorldChange("gate_1", "sealed")
	s.SetWorldChange("gate_1", "open")
	v, ok := s.WorldChange("gate_1")
	if !ok || v != "open" {
		t.Fatalf("WorldChange = %v %v", v, ok)
	}
	if _, ok := s.WorldChange("gate_2"); ok {
		t.Fatalf("missing key reported present")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	s.SetName("John")
	s.ApplyReputationDelta("consorts", 4)
	s.ApplyReputationDelta("dersites", -2)
	s.Unlock("echo_path")
	s.Unlock("danger_zone")
	s.SetWorldChange("sburb_installed", true)
	s.SetRelationship("nanna", game.Relationship{"trust": 3})
	s.AddBookEntry("Entry", "A frog sits on a rock.", "lore")
	s.RecordCommand("look", "You see a frog.")

	snap := s.Save()
	if snap.Version != SaveVersion {
		t.Fatalf("version = %q", snap.Version)
	}

	restored, _ := newTestStore(t)
	if err := restored.Load(snap); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(restored.Reputations(), s.Reputations()) {
		t.Fatalf("reputation differs: %v vs %v", restored.Reputations(), s.Reputations())
	}
	if !reflect.DeepEqual(restored.UnlockedPaths(), s.UnlockedPaths()) {
		t.Fatalf("unlocked differs")
	}
	if !reflect.DeepEqual(restored.World().WorldChanges, s.World().WorldChanges) {
		t.Fatalf("world changes differ")
	}
	if restored.Player().Name != "John" || len(restored.Book()) != 1 || len(restored.Commands()) != 1 {
		t.Fatalf("player, book or commands not restored")
	}
}

func TestSaveLoadThroughJSON(t *testing.T) {
	s, _ := newTestStore(t)
	s.ApplyReputationDelta("echoes", 2)
	s.Unlock("knowledge_path")
	s.SetWorldChange("weather", "rain")
	s.SetWorldChange("frog_count", 413)
	s.SetWorldChange("tide", 0.5)
	s.SetWorldChange("gates", map[string]any{"first": 1})
	s.SetRelationship("wv", game.Relationship{"trust": 3, "mood": "hopeful"})

	raw, err := json.Marshal(s.Save())
	if err != nil {
		t.Fatal(err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		t.Fatal(err)
	}
	restored, _ := newTestStore(t)
	if err := restored.Load(snap); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if restored.Reputation("echoes") != 2 || !restored.IsUnlocked("knowledge_path") {
		t.Fatalf("json round trip lost state")
	}
	if v, _ := restored.WorldChange("weather"); v != "rain" {
		t.Fatalf("weather = %v", v)
	}
	if v, _ := restored.WorldChange("frog_count"); v != 413 {
		t.Fatalf("frog_count = %#v, want int 413", v)
	}
	if v, _ := restored.WorldChange("tide"); v != 0.5 {
		t.Fatalf("tide = %#v", v)
	}
	if v, _ := restored.WorldChange("gates"); v.(map[string]any)["first"] != 1 {
		t.Fatalf("gates = %#v", v)
	}
	if rel, _ := restored.Relationship("wv"); rel["trust"] != 3 || rel["mood"] != "hopeful" {
		t.Fatalf("relationship = %#v", rel)
	}
}

func TestLoadIncompatibleResetsToDefaults(t *testing.T) {
	for _, version := range []string{"", "1.9.0", "3.0.0"} {
		t.Run(fmt.Sprintf("version %q", version), func(t *testing.T) {
			s, _ := newTestStore(t)
			s.UpdateSettings(func(st *game.Settings) { st.NarrativeLength = "long" })
			s.Unlock("chaos_path")
			s.ApplyStat(game.StatExperience, 250)

			snap := s.Save()
			snap.Version = version
			err := s.Load(snap)
			if !errors.Is(err, gameerr.ErrIncompatibleSave) {
				t.Fatalf("err = %v", err)
			}
			p := s.Player()
			if p.Level != 1 || p.Experience != 0 || s.IsUnlocked("chaos_path") {
				t.Fatalf("state not reset: %+v", p)
			}
			if s.Settings().NarrativeLength != "long" {
				t.Fatalf("settings were not preserved")
			}
		})
	}
}

func TestCommandLogIsBounded(t *testing.T) {
	s, _ := newTestStore(t)
	for i := 0; i < CommandLogCapacity+25; i++ {
		s.RecordCommand(fmt.Sprintf("cmd %d", i), "")
	}
	cmds := s.Commands()
	if len(cmds) != CommandLogCapacity || cmds[0].Command != "cmd 25" {
		t.Fatalf("len=%d first=%q", len(cmds), cmds[0].Command)
	}
	if s.Session().CommandCount != CommandLogCapacity+25 {
		t.Fatalf("session count = %d", s.Session().CommandCount)
	}
}

func TestStartSession(t *testing.T) {
	s, rec := newTestStore(t)
	sess := s.StartSession()
	if sess.ID == "" || sess.StartTime.IsZero() {
		t.Fatalf("session = %+v", sess)
	}
	if rec.Count(events.SessionStarted) != 1 {
		t.Fatalf("missing session event")
	}
	if s.StartSession().ID == sess.ID {
		t.Fatalf("session ids must differ")
	}
}

type reentrantSink struct{ store *Store }

func (r *reentrantSink) Emit(events.Name, any) { _ = r.store.Player() }

func TestEventsEmittedOutsideLock(t *testing.T) {
	sink := &reentrantSink{}
	s := New(sink, nil, nil)
	sink.store = s

	done := make(chan struct{})
	go func() {
		s.ApplyStat(game.StatExperience, 100)
		s.SetName("Rose")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("store deadlocked when the sink read it back")
	}
}

func TestPlayerReturnsCopy(t *testing.T) {
	s, rec := newTestStore(t)
	s.AddItem(game.Item{Name: "pogo hammer"})
	p := s.Player()
	p.Inventory[0].Name = "mutated"
	if s.Player().Inventory[0].Name != "pogo hammer" {
		t.Fatalf("Player leaked inventory storage")
	}
	if rec.Count(events.PlayerItemAdded) != 1 {
		t.Fatalf("missing item event")
	}
	s.AddEcho("strife")
	s.AddEcho("strife")
	if len(s.Player().Echoes) != 1 {
		t.Fatalf("AddEcho duplicated")
	}
}
