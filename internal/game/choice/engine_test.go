package choice

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"sburbterm/internal/game/events"
	"sburbterm/internal/game/state"
	"sburbterm/internal/gameerr"
	"sburbterm/internal/random"
	"sburbterm/internal/scheduler"
)

type fakeEncounters struct{ ids []string }

func (f *fakeEncounters) TriggerEncounter(id string) { f.ids = append(f.ids, id) }

type fakeQuests struct {
	ids     []string
	updates []map[string]any
}

func (f *fakeQuests) UpdateQuest(id string, update map[string]any) error {
	f.ids = append(f.ids, id)
	f.updates = append(f.updates, update)
	return nil
}

type fakeLands string

func (f fakeLands) CurrentLandName() string { return string(f) }

type fixture struct {
	engine *Engine
	store  *state.Store
	clock  *scheduler.Manual
	rec    *events.Recorder
	enc    *fakeEncounters
	quests *fakeQuests
}

func newFixture(t *testing.T, templates map[string]Definition) fixture {
	t.Helper()
	rec := &events.Recorder{}
	clock := scheduler.NewManual(time.Date(2009, 4, 13, 0, 0, 0, 0, time.UTC))
	store := state.New(rec, clock, nil)
	enc := &fakeEncounters{}
	quests := &fakeQuests{}
	e := New(Options{
		World:      store,
		Sink:       rec,
		Scheduler:  clock,
		Clock:      clock,
		Random:     random.New(612),
		Templates:  templates,
		Encounters: enc,
		Quests:     quests,
		Lands:      fakeLands("Land of Frost and Frogs"),
	})
	return fixture{engine: e, store: store, clock: clock, rec: rec, enc: enc, quests: quests}
}

func sessionStart() Definition {
	return Definition{
		Title:       "Your Session Begins",
		Description: "The disc spins up.",
		Options: []Option{
			{Text: "Dive in", Consequences: []Consequence{StatDelta{Stat: "experience", Delta: 10}}},
			{Text: "Study", Consequences: []Consequence{StatDelta{Stat: "experience", Delta: 5}}},
		},
	}
}

func TestSessionStartExperience(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.engine.Present("session_start", sessionStart()); err != nil {
		t.Fatalf("present: %v", err)
	}
	if _, err := f.engine.MakeChoice("session_start", 0); err != nil {
		t.Fatalf("make choice: %v", err)
	}
	p := f.store.Player()
	if p.Experience != 10 || p.Level != 1 {
		t.Fatalf("player = level %d exp %d, want level 1 exp 10", p.Level, p.Experience)
	}
}

func TestResolvedChoiceLeavesActiveSet(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.engine.Present("session_start", sessionStart()); err != nil {
		t.Fatalf("present: %v", err)
	}
	if _, err := f.engine.MakeChoice("session_start", 1); err != nil {
		t.Fatalf("make choice: %v", err)
	}
	if len(f.engine.Active()) != 0 {
		t.Fatalf("resolved choice still active")
	}
	if h := f.engine.History(); len(h) != 1 || h[0].OptionIndex != 1 {
		t.Fatalf("history = %+v", h)
	}
	if _, err := f.engine.MakeChoice("session_start", 0); !errors.Is(err, gameerr.ErrNotFound) {
		t.Fatalf("second resolution err = %v, want not found", err)
	}
	if len(f.engine.History()) != 1 {
		t.Fatalf("second resolution changed history")
	}
	if !f.engine.HasChosen("session_start") || !f.engine.HasChosenOption("session_start", 1) || f.engine.HasChosenOption("session_start", 0) {
		t.Fatalf("history queries disagree with the record")
	}
	if f.rec.Count(events.ChoiceMade) != 1 || f.rec.Count(events.ChoicePresented) != 1 {
		t.Fatalf("unexpected event counts")
	}
}

func TestInvalidOptionLeavesStateAlone(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.engine.Present("session_start", sessionStart()); err != nil {
		t.Fatalf("present: %v", err)
	}
	for _, idx := range []int{-1, 2, 99} {
		if _, err := f.engine.MakeChoice("session_start", idx); !errors.Is(err, gameerr.ErrInvalidInput) {
			t.Fatalf("index %d err = %v", idx, err)
		}
	}
	if len(f.engine.Active()) != 1 || len(f.engine.History()) != 0 {
		t.Fatalf("failed choice mutated the engine")
	}
	if f.store.Player().Experience != 0 {
		t.Fatalf("failed choice applied consequences")
	}
}

func TestConsequencesApplied(t *testing.T) {
	f := newFixture(t, nil)
	def := Definition{
		Title: "Spire",
		Options: []Option{{
			Text: "Climb",
			Consequences: []Consequence{
				StatDelta{Stat: "hp", Delta: -10},
				ReputationDelta{Faction: "consorts", Delta: 2},
				Unlock{Path: "danger_zone"},
				WorldChange{Key: "spire", Value: "climbed"},
				LongTerm{Payload: map[string]any{"curse": true}},
			},
		}},
	}
	if _, err := f.engine.Present("spire", def); err != nil {
		t.Fatalf("present: %v", err)
	}
	if _, err := f.engine.MakeChoice("spire", 0); err != nil {
		t.Fatalf("make choice: %v", err)
	}
	if f.store.Player().HP != 90 {
		t.Fatalf("hp = %d, want 90", f.store.Player().HP)
	}
	if f.engine.Reputation("consorts") != 2 || !f.engine.IsPathUnlocked("danger_zone") {
		t.Fatalf("reputation or unlock not applied")
	}
	if v, ok := f.engine.WorldChange("spire"); !ok || v != "climbed" {
		t.Fatalf("world change = %v %v", v, ok)
	}
	if v, ok := f.engine.LongTermEffect("spire"); !ok || v.(map[string]any)["curse"] != true {
		t.Fatalf("long-term effect = %v %v", v, ok)
	}
}

func TestResponseAndCommentary(t *testing.T) {
	f := newFixture(t, nil)
	def := sessionStart()
	def.Options[0].Response = "You leap."
	if _, err := f.engine.Present("a", def); err != nil {
		t.Fatalf("present: %v", err)
	}
	res, err := f.engine.MakeChoice("a", 0)
	if err != nil {
		t.Fatalf("make choice: %v", err)
	}
	if res.Response != "You leap." {
		t.Fatalf("response = %q", res.Response)
	}
	if !slices.Contains(commentary, res.Commentary) {
		t.Fatalf("commentary %q not from base pool", res.Commentary)
	}
	lines := f.rec.Lines()
	if len(lines) != 3 || lines[0] != "> You chose: Dive in" || lines[1] != "You leap." {
		t.Fatalf("narrative lines = %q", lines)
	}

	if _, err := f.engine.Present("b", sessionStart()); err != nil {
		t.Fatalf("present: %v", err)
	}
	res, err = f.engine.MakeChoice("b", 1)
	if err != nil {
		t.Fatalf("make choice: %v", err)
	}
	if !slices.Contains(genericResponses, res.Response) {
		t.Fatalf("fallback response %q not generic", res.Response)
	}
}

func TestCommentaryPoolExtension(t *testing.T) {
	plain := Option{Text: "x"}
	if len(commentaryPool(plain)) != 5 {
		t.Fatalf("base pool size = %d", len(commentaryPool(plain)))
	}
	rep := Option{Consequences: []Consequence{ReputationDelta{Faction: "denizen", Delta: -1}}}
	if len(commentaryPool(rep)) != 7 {
		t.Fatalf("reputation pool size = %d", len(commentaryPool(rep)))
	}
	both := Option{Consequences: []Consequence{
		ReputationDelta{Faction: "denizen", Delta: 1},
		StatDelta{Stat: "hp", Delta: -5},
	}}
	if len(commentaryPool(both)) != 9 {
		t.Fatalf("combined pool size = %d", len(commentaryPool(both)))
	}
	heal := Option{Consequences: []Consequence{StatDelta{Stat: "hp", Delta: 5}}}
	if len(commentaryPool(heal)) != 5 {
		t.Fatalf("healing should not extend the pool")
	}
}

func TestFollowUpsFireIndependently(t *testing.T) {
	templates := map[string]Definition{
		"chaos_path": {
			Title:       "Chaos Beckons, {playerName}",
			Description: "The ground of {landName} cracks open.",
			Options:     []Option{{Text: "Jump"}},
		},
	}
	f := newFixture(t, templates)
	f.store.SetName("John")
	def := Definition{
		Title: "Start",
		Options: []Option{{
			Text: "Go",
			FollowUps: []FollowUp{
				{Type: FollowNewChoice, Delay: 2000, ChoiceID: "chaos_follow_up", Template: "chaos_path"},
				{Type: FollowNarrative, Delay: 500, Text: "The game watches."},
				{Type: FollowEncounter, EncounterID: "echo_mentor"},
				{Type: FollowQuestUpdate, Delay: 1500, QuestID: "q1", Update: map[string]any{"progress": 1}},
			},
		}},
	}
	if _, err := f.engine.Present("start", def); err != nil {
		t.Fatalf("present: %v", err)
	}
	if _, err := f.engine.MakeChoice("start", 0); err != nil {
		t.Fatalf("make choice: %v", err)
	}
	if f.clock.Pending() != 4 {
		t.Fatalf("pending = %d, want 4", f.clock.Pending())
	}

	f.clock.Advance(600 * time.Millisecond)
	lines := f.rec.Lines()
	if lines[len(lines)-1] != "The game watches." {
		t.Fatalf("narrative follow-up did not fire first: %q", lines)
	}
	if len(f.enc.ids) != 0 {
		t.Fatalf("encounter fired early")
	}

	f.clock.Advance(400 * time.Millisecond)
	if len(f.enc.ids) != 1 || f.enc.ids[0] != "echo_mentor" {
		t.Fatalf("encounter follow-up = %v", f.enc.ids)
	}

	f.clock.Advance(time.Second)
	if len(f.quests.ids) != 1 || f.quests.updates[0]["progress"] != 1 {
		t.Fatalf("quest follow-up = %v %v", f.quests.ids, f.quests.updates)
	}
	c, ok := f.engine.Get("chaos_follow_up")
	if !ok {
		t.Fatalf("new_choice follow-up did not present")
	}
	if c.Title != "Chaos Beckons, John" || c.Description != "The ground of Land of Frost and Frogs cracks open." {
		t.Fatalf("template not substituted: %q / %q", c.Title, c.Description)
	}
}

func TestResetDropsPendingFollowUps(t *testing.T) {
	f := newFixture(t, nil)
	def := Definition{
		Title:   "Start",
		Options: []Option{{Text: "Go", FollowUps: []FollowUp{{Type: FollowNarrative, Text: "late"}}}},
	}
	if _, err := f.engine.Present("start", def); err != nil {
		t.Fatalf("present: %v", err)
	}
	if _, err := f.engine.MakeChoice("start", 0); err != nil {
		t.Fatalf("make choice: %v", err)
	}
	f.clock.Reset()
	f.clock.Advance(5 * time.Second)
	if slices.Contains(f.rec.Lines(), "late") {
		t.Fatalf("stale follow-up fired after reset")
	}
}

func TestDuplicatePresentReplaces(t *testing.T) {
	f := newFixture(t, nil)
	first := sessionStart()
	second := sessionStart()
	second.Title = "Replaced"
	if _, err := f.engine.Present("dup", first); err != nil {
		t.Fatalf("present: %v", err)
	}
	if _, err := f.engine.Present("dup", second); err != nil {
		t.Fatalf("present: %v", err)
	}
	active := f.engine.Active()
	if len(active) != 1 || active[0].Title != "Replaced" {
		t.Fatalf("active = %+v", active)
	}
}

func TestPresentRejectsEmptyChoices(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.engine.Present("empty", Definition{Title: "Nothing"}); !errors.Is(err, gameerr.ErrInvalidInput) {
		t.Fatalf("err = %v", err)
	}
	bad := Definition{Title: "Bad", Options: []Option{{Text: "x", FollowUps: []FollowUp{{Type: "teleport"}}}}}
	if _, err := f.engine.Present("bad", bad); !errors.Is(err, gameerr.ErrInvalidInput) {
		t.Fatalf("err = %v", err)
	}
}

func TestGenerateDynamic(t *testing.T) {
	f := newFixture(t, nil)
	if _, ok := f.engine.GenerateDynamic(nil); ok {
		t.Fatalf("no rule should match at level 1")
	}
	f.store.ApplyStat("level", 4)
	def, ok := f.engine.GenerateDynamic(nil)
	if !ok || def.ID != "advanced_training" || len(def.Options) != 2 {
		t.Fatalf("dynamic choice = %+v %v", def, ok)
	}
	if _, err := f.engine.Present(def.ID, def); err != nil {
		t.Fatalf("present: %v", err)
	}
	if _, err := f.engine.MakeChoice(def.ID, 0); err != nil {
		t.Fatalf("make choice: %v", err)
	}
	if !f.engine.IsPathUnlocked("advanced_abilities") {
		t.Fatalf("training unlock missing")
	}
	if _, ok := f.engine.GenerateDynamic(nil); ok {
		t.Fatalf("rule should not fire twice")
	}

	f.engine.AddRule(Rule{
		ID:    "fallback",
		When:  func(*Engine, Situation) bool { return true },
		Build: func(Situation) Definition { return Definition{Title: "Fallback", Options: []Option{{Text: "ok"}}} },
	})
	def, ok = f.engine.GenerateDynamic(nil)
	if !ok || def.ID != "fallback" {
		t.Fatalf("appended rule not used: %+v", def)
	}
}

func TestTemplateNotFound(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.engine.Template("nope", TemplateContext{}); !errors.Is(err, gameerr.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestOptionDecodesAuthoredConsequences(t *testing.T) {
	src := `
text: Venture toward the spire
consequences:
  stats: {hp: -10, experience: 15}
  reputation: {denizen: -1}
  unlocks: [danger_zone]
  hint: risky
followUp:
  - type: narrative
    delay: 1500
    text: The spire hums.
`
	var o Option
	if err := yaml.Unmarshal([]byte(src), &o); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []Consequence{
		StatDelta{Stat: "hp", Delta: -10},
		StatDelta{Stat: "experience", Delta: 15},
		ReputationDelta{Faction: "denizen", Delta: -1},
		Unlock{Path: "danger_zone"},
	}
	if !slices.Equal(o.Consequences, want) {
		t.Fatalf("consequences = %#v", o.Consequences)
	}
	if o.Hint != "risky" || len(o.FollowUps) != 1 || o.FollowUps[0].delay() != 1500*time.Millisecond {
		t.Fatalf("option = %+v", o)
	}
	if !o.Injures() || !o.HasReputation() {
		t.Fatalf("option predicates wrong")
	}
}

func TestStatsApplyInAuthoredOrder(t *testing.T) {
	cases := []struct {
		name, stats string
		wantHP      int
	}{
		{"injury then level", "{hp: -10, experience: 200}", 110},
		{"level then injury", "{experience: 200, hp: -10}", 100},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newFixture(t, nil)
			var o Option
			if err := yaml.Unmarshal([]byte("text: Go\nconsequences:\n  stats: "+c.stats+"\n"), &o); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if _, err := f.engine.Present("gate", Definition{Title: "Gate", Options: []Option{o}}); err != nil {
				t.Fatal(err)
			}
			if _, err := f.engine.MakeChoice("gate", 0); err != nil {
				t.Fatal(err)
			}
			p := f.store.Player()
			if p.Level != 2 || p.HP != c.wantHP {
				t.Fatalf("level %d hp %d, want level 2 hp %d", p.Level, p.HP, c.wantHP)
			}
		})
	}
}

func TestConsequenceOrderSurvivesJSON(t *testing.T) {
	var o Option
	src := `{"text":"Go","consequences":{"stats":{"maxHp":5,"hp":-3},"worldChanges":{"zeta":1,"alpha":"a"}}}`
	if err := json.Unmarshal([]byte(src), &o); err != nil {
		t.Fatalf("decode: %v", err)
	}
	raw, err := json.Marshal(o)
	if err != nil {
		t.Fatal(err)
	}
	var back Option
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}
	want := []Consequence{
		StatDelta{Stat: "maxHp", Delta: 5},
		StatDelta{Stat: "hp", Delta: -3},
		WorldChange{Key: "zeta", Value: 1},
		WorldChange{Key: "alpha", Value: "a"},
	}
	if !slices.Equal(back.Consequences, want) {
		t.Fatalf("consequences = %#v", back.Consequences)
	}
}

func TestSnapshotRestore(t *testing.T) {
	f := newFixture(t, nil)
	def := sessionStart()
	def.Options[0].Consequences = append(def.Options[0].Consequences, LongTerm{Payload: "remembered"})
	if _, err := f.engine.Present("s", def); err != nil {
		t.Fatalf("present: %v", err)
	}
	if _, err := f.engine.Present("pending", sessionStart()); err != nil {
		t.Fatalf("present: %v", err)
	}
	if _, err := f.engine.MakeChoice("s", 0); err != nil {
		t.Fatalf("make choice: %v", err)
	}

	data, err := json.Marshal(f.engine.Snapshot())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	g := newFixture(t, nil)
	g.engine.Restore(snap)
	if !g.engine.HasChosenOption("s", 0) {
		t.Fatalf("history not restored")
	}
	if v, ok := g.engine.LongTermEffect("s"); !ok || v != "remembered" {
		t.Fatalf("long-term not restored: %v", v)
	}
	if _, ok := g.engine.Get("pending"); !ok {
		t.Fatalf("pending choice not restored")
	}
	if _, err := g.engine.MakeChoice("pending", 1); err != nil {
		t.Fatalf("restored choice not selectable: %v", err)
	}
	if g.store.Player().Experience != 5 {
		t.Fatalf("restored option consequences lost")
	}
}
