package echo

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"sburbterm/internal/game/events"
	"sburbterm/internal/game/narrative"
	"sburbterm/internal/game/state"
	"sburbterm/internal/gameerr"
	"sburbterm/internal/random"
	"sburbterm/internal/scheduler"
)

type stubNarrator struct{ calls []string }

func (s *stubNarrator) GenerateNarrative(_, typ string, _ narrative.Length) string {
	s.calls = append(s.calls, typ)
	return "The " + typ + " unfolds."
}

type fixture struct {
	reg   *Registry
	store *state.Store
	clock *scheduler.Manual
	rec   *events.Recorder
	narr  *stubNarrator
}

func newFixture(t *testing.T, rng random.Source) fixture {
	t.Helper()
	rec := &events.Recorder{}
	clock := scheduler.NewManual(time.Date(2009, 4, 13, 0, 0, 0, 0, time.UTC))
	store := state.New(rec, clock, nil)
	narr := &stubNarrator{}
	if rng == nil {
		rng = random.New(413)
	}
	n := 0
	reg := New(Options{
		Narrator: narr,
		Store:    store,
		Sink:     rec,
		Clock:    clock,
		Random:   rng,
		NewID: func() string {
			n++
			return fmt.Sprintf("gen_%d", n)
		},
	})
	return fixture{reg: reg, store: store, clock: clock, rec: rec, narr: narr}
}

func TestCoreCatalog(t *testing.T) {
	f := newFixture(t, nil)
	all := f.reg.All()
	if len(all) != 6 {
		t.Fatalf("core catalog has %d echoes, want 6", len(all))
	}
	strife, ok := f.reg.Get("echo_strife")
	if !ok || strife.Power != 5 || strife.Cooldown != 2 {
		t.Fatalf("unexpected strife definition: %+v", strife)
	}
	if got := len(f.reg.CallFiles()); got != 3 {
		t.Fatalf("call files = %d, want 3", got)
	}
	if len(f.reg.ByType(TypeTemporal)) != 2 {
		t.Fatalf("expected two temporal core echoes")
	}
	if e, ok := f.reg.Resolve("strife"); !ok || e.ID != "echo_strife" {
		t.Fatalf("resolve by short id failed")
	}
	if e, ok := f.reg.Resolve("sprite prototyping"); !ok || e.ID != "echo_prototype" {
		t.Fatalf("resolve by name failed")
	}
}

func TestCooldownWindow(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.reg.Activate("echo_strife"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := f.reg.Use("echo_strife", ""); err != nil {
		t.Fatalf("first use: %v", err)
	}
	if got := f.reg.CooldownRemaining("echo_strife"); got != 2 {
		t.Fatalf("remaining = %d, want 2", got)
	}

	f.clock.Advance(30 * time.Second)
	_, err := f.reg.Use("echo_strife", "")
	if !errors.Is(err, gameerr.ErrOnCooldown) {
		t.Fatalf("second use err = %v, want on cooldown", err)
	}
	if got := f.reg.CooldownRemaining("echo_strife"); got != 1 {
		t.Fatalf("remaining = %d, want 1", got)
	}

	f.clock.Advance(31 * time.Second)
	if _, err := f.reg.Use("echo_strife", ""); err != nil {
		t.Fatalf("use after window: %v", err)
	}
}

func TestZeroCooldownNeverBlocks(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.reg.Activate("echo_alchemize"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := f.reg.Use("echo_alchemize", ""); err != nil {
			t.Fatalf("use %d: %v", i, err)
		}
	}
	if f.reg.CooldownRemaining("echo_alchemize") != 0 {
		t.Fatalf("zero cooldown echo reported remaining turns")
	}
}

func TestActivateErrors(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.reg.Activate("echo_missing"); !errors.Is(err, gameerr.ErrNotFound) {
		t.Fatalf("missing echo err = %v", err)
	}

	if _, err := f.reg.Activate("echo_strife"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := f.reg.Activate("echo_strife"); !errors.Is(err, gameerr.ErrInvalidInput) {
		t.Fatalf("double activate err = %v, want invalid input", err)
	}
	if _, err := f.reg.Use("echo_strife", ""); err != nil {
		t.Fatalf("use: %v", err)
	}
	if _, err := f.reg.Activate("echo_strife"); !errors.Is(err, gameerr.ErrOnCooldown) {
		t.Fatalf("activate while cooling down err = %v", err)
	}

	f.store.SetClasspect("Knight of Blood")
	if _, err := f.reg.Activate("echo_time_travel"); !errors.Is(err, gameerr.ErrAffinityMismatch) {
		t.Fatalf("affinity err = %v", err)
	}
	if _, err := f.reg.Activate("echo_explore"); !errors.Is(err, gameerr.ErrAffinityMismatch) {
		t.Fatalf("seer/heir echo should not resonate with a knight")
	}
}

func TestAffinitySkippedWithoutClasspect(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.reg.Activate("echo_time_travel"); err != nil {
		t.Fatalf("activation without classpect should skip affinity: %v", err)
	}
	f.store.SetClasspect("Heir of Breath")
	if _, err := f.reg.Activate("echo_explore"); err != nil {
		t.Fatalf("heir should resonate with exploration: %v", err)
	}
}

func TestCapacity(t *testing.T) {
	f := newFixture(t, nil)
	f.reg.SetLimit(2)
	for _, id := range []string{"echo_alchemize", "echo_strife"} {
		if _, err := f.reg.Activate(id); err != nil {
			t.Fatalf("activate %s: %v", id, err)
		}
	}
	if _, err := f.reg.Activate("echo_explore"); !errors.Is(err, gameerr.ErrCapacityExceeded) {
		t.Fatalf("third activation err = %v", err)
	}
	if err := f.reg.Deactivate("echo_strife"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := f.reg.Activate("echo_explore"); err != nil {
		t.Fatalf("activation after freeing a slot: %v", err)
	}
	if err := f.reg.Deactivate("echo_strife"); !errors.Is(err, gameerr.ErrNotActive) {
		t.Fatalf("deactivate inactive err = %v", err)
	}
}

func TestUseRequiresActive(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.reg.Use("echo_explore", ""); !errors.Is(err, gameerr.ErrNotActive) {
		t.Fatalf("use inactive err = %v", err)
	}
}

func TestUseJournalsAndEmits(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.reg.Activate("echo_explore"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	res, err := f.reg.Use("echo_explore", "the lab")
	if err != nil {
		t.Fatalf("use: %v", err)
	}
	if res.Effect != "area_discovered" || !strings.HasPrefix(res.Message, "Exploration reveals new possibilities. ") {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(f.narr.calls) != 1 || f.narr.calls[0] != "discovery" {
		t.Fatalf("narrator calls = %v", f.narr.calls)
	}
	ev, ok := f.rec.Last(events.EchoUsed)
	if !ok {
		t.Fatalf("no echo:used event")
	}
	if ev.Payload.(UseEvent).Result.Effect != "area_discovered" {
		t.Fatalf("event carries wrong result")
	}
	book := f.store.Book()
	if len(book) != 2 || book[1].Title != "Echo Used: Dimensional Exploration" {
		t.Fatalf("unexpected book: %+v", book)
	}
	if f.rec.Count(events.EchoActivated) != 1 {
		t.Fatalf("activation not emitted")
	}
}

func TestGenerate(t *testing.T) {
	t.Run("fan uses classpect", func(t *testing.T) {
		// kind pick is skipped, blueprint 0, power offset 2 => 5.
		f := newFixture(t, random.NewScripted(nil, []int{0, 2}))
		e := f.reg.Generate(KindFan, "Rogue of Heart")
		if e.Name != "Narrative Intervention" || e.Power != 5 || e.Cooldown != 2 {
			t.Fatalf("unexpected fan echo %+v", e)
		}
		if strings.Join(e.Affinity, ",") != "Rogue,Heart" {
			t.Fatalf("affinity = %v", e.Affinity)
		}
		if _, ok := f.reg.Get(e.ID); !ok {
			t.Fatalf("generated echo not registered")
		}
		if f.reg.IsActive(e.ID) {
			t.Fatalf("generated echo must not be auto-activated")
		}
		if f.rec.Count(events.EchoGenerated) != 1 {
			t.Fatalf("echo:generated not emitted")
		}
	})
	t.Run("fan without classpect", func(t *testing.T) {
		f := newFixture(t, random.NewScripted(nil, []int{2, 0}))
		e := f.reg.Generate(KindFan, "")
		if e.Name != "Meme Reality" || e.Power != 2 || e.Cooldown != 1 {
			t.Fatalf("unexpected fan echo %+v", e)
		}
		if len(e.Affinity) != 1 || e.Affinity[0] != "Any" {
			t.Fatalf("affinity = %v", e.Affinity)
		}
	})
	t.Run("developer", func(t *testing.T) {
		f := newFixture(t, random.NewScripted(nil, []int{1}))
		e := f.reg.Generate(KindDeveloper, "")
		if e.Name != "State Manipulation" || e.Power != 10 || e.Cooldown != 0 || e.Affinity[0] != "Admin" {
			t.Fatalf("unexpected developer echo %+v", e)
		}
	})
	t.Run("temporal", func(t *testing.T) {
		f := newFixture(t, random.NewScripted(nil, []int{0}))
		e := f.reg.Generate(KindTemporal, "")
		if e.Name != "Doomed Timeline" || e.Power != 8 || e.Cooldown != 5 {
			t.Fatalf("unexpected temporal echo %+v", e)
		}
	})
	t.Run("random dispatches", func(t *testing.T) {
		// kind index 2 => temporal, blueprint 2 => Paradox Resolution.
		f := newFixture(t, random.NewScripted(nil, []int{2, 2}))
		e := f.reg.Generate(KindRandom, "")
		if e.Type != TypeTemporal || e.Name != "Paradox Resolution" || e.Cooldown != 7 {
			t.Fatalf("unexpected random echo %+v", e)
		}
	})
}

func TestFanPowerRanges(t *testing.T) {
	f := newFixture(t, random.New(7))
	want := map[string][2]int{
		"Narrative Intervention": {3, 7},
		"Character Summon":       {4, 7},
		"Meme Reality":           {2, 7},
	}
	for i := 0; i < 200; i++ {
		e := f.reg.Generate(KindFan, "")
		r := want[e.Name]
		if e.Power < r[0] || e.Power > r[1] {
			t.Fatalf("%s power %d outside %v", e.Name, e.Power, r)
		}
		if e.Cooldown != e.Power/2 {
			t.Fatalf("cooldown %d for power %d", e.Cooldown, e.Power)
		}
	}
}

func TestMutate(t *testing.T) {
	f := newFixture(t, random.NewScripted([]float64{0.9, 0.1}, nil))
	up, err := f.reg.Mutate("echo_strife")
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if up.Name != "Strife Engagement [MUTATED]" || up.Power != 6 || up.MutatedFrom != "echo_strife" || up.ID == "echo_strife" {
		t.Fatalf("unexpected mutation %+v", up)
	}

	if err := f.reg.Register(Echo{ID: "weak", Name: "Weak", Power: 1, EffectKey: effectGeneric}); err != nil {
		t.Fatalf("register: %v", err)
	}
	down, err := f.reg.Mutate("weak")
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if down.Power != 1 {
		t.Fatalf("power floor violated: %d", down.Power)
	}
	if _, err := f.reg.Mutate("nope"); !errors.Is(err, gameerr.ErrNotFound) {
		t.Fatalf("mutate missing err = %v", err)
	}
	orig, _ := f.reg.Get("echo_strife")
	if orig.Power != 5 {
		t.Fatalf("original changed by mutation")
	}
}

func TestProcessCommand(t *testing.T) {
	f := newFixture(t, nil)
	if _, handled := f.reg.ProcessCommand("fight", nil); handled {
		t.Fatalf("inactive echo commands must not be handled")
	}
	if _, err := f.reg.Activate("echo_strife"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	out, handled := f.reg.ProcessCommand("FIGHT", []string{"the", "imp"})
	if !handled || out.Source != SourceEcho || out.EchoID != "echo_strife" || out.Err != nil {
		t.Fatalf("unexpected outcome %+v handled=%v", out, handled)
	}
	if out.Result.Effect != "combat_started" {
		t.Fatalf("effect = %s", out.Result.Effect)
	}
	out, handled = f.reg.ProcessCommand("attack", nil)
	if !handled || !errors.Is(out.Err, gameerr.ErrOnCooldown) {
		t.Fatalf("cooldown should surface through the outcome: %+v", out)
	}

	out, handled = f.reg.ProcessCommand("echo_scratch", nil)
	if !handled || out.Source != SourceCallFile || out.Result.Magnitude != "timeline_altering" {
		t.Fatalf("call file outcome %+v", out)
	}
	if f.rec.Count(events.CallFileRun) != 1 {
		t.Fatalf("call file event missing")
	}
	if _, handled := f.reg.ProcessCommand("dance", nil); handled {
		t.Fatalf("unknown token handled")
	}
}

func TestDebugEffectReadsState(t *testing.T) {
	f := newFixture(t, random.NewScripted(nil, []int{0}))
	e := f.reg.Generate(KindDeveloper, "")
	if _, err := f.reg.Activate(e.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	res, err := f.reg.Use(e.ID, "")
	if err != nil {
		t.Fatalf("use: %v", err)
	}
	data, ok := res.Data.(map[string]any)
	if !ok || data["activeEchoes"] != 1 {
		t.Fatalf("debug data = %#v", res.Data)
	}
}

func TestSnapshotRestore(t *testing.T) {
	f := newFixture(t, nil)
	gen := f.reg.Generate(KindTemporal, "")
	if _, err := f.reg.Activate(gen.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := f.reg.Use(gen.ID, ""); err != nil {
		t.Fatalf("use: %v", err)
	}
	snap := f.reg.Snapshot()
	if len(snap.Catalog) != 1 || len(snap.Active) != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}

	g := newFixture(t, nil)
	g.reg.Restore(snap)
	if len(g.reg.All()) != 7 {
		t.Fatalf("restored catalog has %d echoes", len(g.reg.All()))
	}
	res, err := g.reg.Use(gen.ID, "")
	if !errors.Is(err, gameerr.ErrOnCooldown) {
		t.Fatalf("restored cooldown lost: res=%+v err=%v", res, err)
	}
	g.clock.Advance(gen.Window())
	res, err = g.reg.Use(gen.ID, "")
	if err != nil || res.Effect != "temporal_event" {
		t.Fatalf("restored effect not rebound: %+v %v", res, err)
	}

	g.reg.Restore(Snapshot{Active: []Active{{Echo: Echo{ID: "ghost"}}}})
	if len(g.reg.Active()) != 0 {
		t.Fatalf("unknown active echo should be dropped")
	}
}

func TestForClasspectNeedsDeclaredAffinity(t *testing.T) {
	f := newFixture(t, nil)
	for _, e := range []Echo{
		{ID: "open_door", Name: "Open Door", Type: TypeFan},
		{ID: "heart_song", Name: "Heart Song", Type: TypeFan, Affinity: []string{"Heart"}},
		{ID: "wildcard", Name: "Wildcard", Type: TypeFan, Affinity: []string{"Any"}},
		{ID: "rage_spike", Name: "Rage Spike", Type: TypeFan, Affinity: []string{"Rage"}},
	} {
		if err := f.reg.Register(e); err != nil {
			t.Fatalf("register %s: %v", e.ID, err)
		}
	}

	got := map[string]bool{}
	for _, e := range f.reg.ForClasspect("Maid of Heart") {
		got[e.ID] = true
	}
	if !got["heart_song"] || !got["wildcard"] {
		t.Fatalf("missing matching echoes: %v", got)
	}
	if got["open_door"] || got["rage_spike"] {
		t.Fatalf("unexpected echoes listed: %v", got)
	}
	if len(f.reg.ForClasspect("")) != 0 {
		t.Fatal("no classpect lists nothing")
	}
}
