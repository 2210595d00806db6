package commands

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sburbterm/internal/content"
	"sburbterm/internal/game/choice"
	"sburbterm/internal/game/echo"
	"sburbterm/internal/game/events"
	"sburbterm/internal/game/land"
	"sburbterm/internal/game/narrative"
	"sburbterm/internal/game/state"
	"sburbterm/internal/gameerr"
	"sburbterm/internal/observability"
	"sburbterm/internal/random"
	"sburbterm/internal/scheduler"
)

type loggedCommand struct {
	session, command, response string
}

type fakeLog struct{ entries []loggedCommand }

func (f *fakeLog) Log(_ context.Context, sessionID, command, response string) error {
	f.entries = append(f.entries, loggedCommand{sessionID, command, response})
	return nil
}

type fakeOracle struct {
	answer  string
	err     error
	topics  []string
	context map[string]any
}

func (f *fakeOracle) Lore(ctx context.Context, topic string) (string, error) {
	f.topics = append(f.topics, topic)
	f.context = observability.GameContextFrom(ctx)
	return f.answer, f.err
}

type fakeSession struct {
	saves, loads, resets int
	loadErr              error
}

func (f *fakeSession) Save(context.Context) error { f.saves++; return nil }
func (f *fakeSession) Load(context.Context) error { f.loads++; return f.loadErr }
func (f *fakeSession) Reset()                     { f.resets++ }

type fixture struct {
	d      *Dispatcher
	store  *state.Store
	echoes *echo.Registry
	choice *choice.Engine
	lands  *land.Registry
	clock  *scheduler.Manual
	rec    *events.Recorder
	log    *fakeLog
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	pack, err := content.Default()
	if err != nil {
		t.Fatalf("content: %v", err)
	}
	rec := &events.Recorder{}
	clock := scheduler.NewManual(time.Date(2009, 4, 13, 16, 13, 0, 0, time.UTC))
	rng := random.New(413)

	gen := narrative.New(pack.Narrative, rng, nil)
	store := state.New(rec, clock, nil)
	echoes := echo.New(echo.Options{Narrator: gen, Store: store, Sink: rec, Clock: clock, Random: rng})
	choices := choice.New(choice.Options{
		World: store, Sink: rec, Scheduler: clock, Clock: clock, Random: rng, Templates: pack.Choices,
	})
	lands := land.New(land.Options{Catalog: pack.Lands, Narrator: gen, Sink: rec, Clock: clock, Random: rng})
	choices.SetCollaborators(lands, lands, lands)

	log := &fakeLog{}
	d := New(Options{
		Store: store, Narrator: gen, Choices: choices, Echoes: echoes, Lands: lands,
		Log: log, Scheduler: clock, Clock: clock, Random: rng,
	})
	return fixture{d: d, store: store, echoes: echoes, choice: choices, lands: lands, clock: clock, rec: rec, log: log}
}

func (f fixture) run(t *testing.T, input string) Response {
	t.Helper()
	resp, err := f.d.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("%q: %v", input, err)
	}
	return resp
}

func TestEmptyInputRejected(t *testing.T) {
	f := newFixture(t)
	for _, in := range []string{"", "   ", "\t"} {
		_, err := f.d.Execute(context.Background(), in)
		if gameerr.CodeOf(err) != gameerr.CodeInvalidInput {
			t.Fatalf("%q: expected InvalidInput, got %v", in, err)
		}
	}
	if n := len(f.store.Commands()); n != 0 {
		t.Fatalf("blank input must not be recorded, got %d entries", n)
	}
}

func TestUnknownCommandSuggestions(t *testing.T) {
	f := newFixture(t)

	resp := f.run(t, "helpp")
	if resp.Kind != KindError || !strings.Contains(resp.Message, "Did you mean 'help'?") {
		t.Fatalf("expected suggestion for helpp, got %q", resp.Message)
	}

	resp = f.run(t, "xyzzyplugh")
	if !strings.Contains(resp.Message, "Type 'help' for available commands.") {
		t.Fatalf("expected generic hint, got %q", resp.Message)
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"help", "help", 0},
		{"helpp", "help", 1},
		{"statsu", "status", 2},
		{"kitten", "sitting", 3},
	}
	for _, c := range cases {
		if got := levenshtein(c.a, c.b); got != c.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestCommandsAreRecorded(t *testing.T) {
	f := newFixture(t)
	f.run(t, "begin")
	f.run(t, "STATUS")

	cmds := f.store.Commands()
	if len(cmds) != 2 || cmds[1].Command != "STATUS" {
		t.Fatalf("unexpected command log %+v", cmds)
	}
	if f.store.Session().CommandCount != 2 {
		t.Fatalf("expected command count 2, got %d", f.store.Session().CommandCount)
	}
	if len(f.log.entries) != 2 {
		t.Fatalf("expected 2 durable entries, got %d", len(f.log.entries))
	}
	if f.log.entries[1].session == "" || f.log.entries[1].session != f.store.Session().ID {
		t.Fatalf("durable log should carry the session id, got %+v", f.log.entries[1])
	}
}

func TestResponseCommandIsCanonicalVerb(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		input, want string
	}{
		{"name John", "name"},
		{"ST", "status"},
		{"moon", "lunar"},
		{"Helpp", "helpp"},
	}
	for _, c := range cases {
		if got := f.run(t, c.input).Command; got != c.want {
			t.Errorf("%q: command %q, want %q", c.input, got, c.want)
		}
	}
	cmds := f.store.Commands()
	if cmds[0].Command != "name John" {
		t.Fatalf("the log keeps the raw line, got %q", cmds[0].Command)
	}
}

func TestBeginPresentsOpeningChoice(t *testing.T) {
	f := newFixture(t)

	resp := f.run(t, "begin")
	if resp.Kind != KindSuccess {
		t.Fatalf("begin: %+v", resp)
	}
	if f.store.Session().ID == "" {
		t.Fatal("session should be active")
	}
	l, ok := f.lands.Current()
	if !ok {
		t.Fatal("begin should generate a land")
	}
	if f.store.Player().CurrentLand != l.ID {
		t.Fatalf("player land %q, want %q", f.store.Player().CurrentLand, l.ID)
	}
	if len(f.choice.Active()) != 0 {
		t.Fatal("opening choice should wait for the delay")
	}

	f.clock.Advance(DefaultBeginDelay)
	if _, ok := f.choice.Get(SessionStartChoice); !ok {
		t.Fatal("opening choice should be presented after the delay")
	}

	if resp := f.run(t, "begin"); resp.Kind != KindInfo || !strings.Contains(resp.Message, "already active") {
		t.Fatalf("second begin: %+v", resp)
	}
}

func TestChooseResolvesPendingChoice(t *testing.T) {
	f := newFixture(t)
	f.run(t, "begin")
	f.clock.Advance(DefaultBeginDelay)

	list := f.run(t, "choices")
	if !strings.Contains(list.Message, "1. Embrace the chaos") {
		t.Fatalf("choices listing: %q", list.Message)
	}

	resp := f.run(t, "choose 1")
	if resp.Kind != KindSuccess || !strings.HasPrefix(resp.Message, "> You chose: Embrace the chaos") {
		t.Fatalf("choose: %+v", resp)
	}
	if got := f.store.Player().Experience; got != 10 {
		t.Fatalf("experience %d, want 10", got)
	}
	if !f.store.IsUnlocked("chaos_path") {
		t.Fatal("chaos_path should be unlocked")
	}

	if resp := f.run(t, "choose 1"); resp.Kind != KindWarning {
		t.Fatalf("nothing pending should warn, got %+v", resp)
	}
}

func TestChooseRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	if _, err := f.choice.PresentTemplate("a", "session_start"); err != nil {
		t.Fatal(err)
	}
	if resp := f.run(t, "choose a nine"); resp.Kind != KindError {
		t.Fatalf("non-number: %+v", resp)
	}
	if resp := f.run(t, "choose a 7"); resp.Kind != KindError {
		t.Fatalf("out of range: %+v", resp)
	}
	if _, ok := f.choice.Get("a"); !ok {
		t.Fatal("failed choose must leave the choice pending")
	}

	if _, err := f.choice.PresentTemplate("b", "land_exploration"); err != nil {
		t.Fatal(err)
	}
	if resp := f.run(t, "choose 1"); resp.Kind != KindWarning {
		t.Fatalf("ambiguous choose should warn, got %+v", resp)
	}
	if resp := f.run(t, "choose b 3"); resp.Kind != KindSuccess {
		t.Fatalf("explicit choose: %+v", resp)
	}
}

func TestEchoCommandsRouteBeforeVerbs(t *testing.T) {
	f := newFixture(t)

	if resp := f.run(t, "activate strife"); resp.Kind != KindSuccess {
		t.Fatalf("activate: %+v", resp)
	}
	if !f.echoes.IsActive("echo_strife") {
		t.Fatal("strife should be active")
	}

	resp := f.run(t, "fight the imp")
	if resp.Kind != KindSuccess {
		t.Fatalf("fight: %+v", resp)
	}
	if f.rec.Count(events.EchoUsed) != 1 {
		t.Fatalf("expected one echo use, got %d", f.rec.Count(events.EchoUsed))
	}

	if resp := f.run(t, "fight"); resp.Kind != KindError || !strings.Contains(resp.Message, "cooldown") {
		t.Fatalf("second fight should be on cooldown, got %+v", resp)
	}

	f.clock.Advance(61 * time.Second)
	if resp := f.run(t, "attack"); resp.Kind != KindSuccess {
		t.Fatalf("after cooldown: %+v", resp)
	}
}

func TestCallFileRuns(t *testing.T) {
	f := newFixture(t)
	resp := f.run(t, "echo_scratch")
	if resp.Kind != KindSuccess {
		t.Fatalf("call file: %+v", resp)
	}
	if f.rec.Count(events.CallFileRun) != 1 {
		t.Fatal("expected a call file event")
	}
}

func TestEchoVerbs(t *testing.T) {
	f := newFixture(t)

	if resp := f.run(t, "activate nonsense"); resp.Kind != KindError {
		t.Fatalf("unknown echo: %+v", resp)
	}
	if resp := f.run(t, "deactivate strife"); resp.Kind != KindError {
		t.Fatalf("deactivate inactive: %+v", resp)
	}
	if resp := f.run(t, "use strife"); resp.Kind != KindError {
		t.Fatalf("use inactive: %+v", resp)
	}

	before := len(f.echoes.All())
	if resp := f.run(t, "generate fan"); resp.Kind != KindSuccess {
		t.Fatalf("generate: %+v", resp)
	}
	if len(f.echoes.All()) != before+1 {
		t.Fatal("generate should register an echo")
	}
	if resp := f.run(t, "mutate alchemize"); resp.Kind != KindSuccess || !strings.Contains(resp.Message, "[MUTATED]") {
		t.Fatalf("mutate: %+v", resp)
	}

	f.run(t, "activate Dimensional Exploration")
	if !f.echoes.IsActive("echo_explore") {
		t.Fatal("activation by full name should work")
	}
	if resp := f.run(t, "echoes"); !strings.Contains(resp.Message, "Dimensional Exploration") {
		t.Fatalf("echoes listing: %q", resp.Message)
	}
	if resp := f.run(t, "echoes all"); !strings.Contains(resp.Message, "* Dimensional Exploration") {
		t.Fatalf("catalog listing should mark active echoes: %q", resp.Message)
	}
	if resp := f.run(t, "deactivate explore"); resp.Kind != KindSuccess {
		t.Fatalf("deactivate: %+v", resp)
	}
}

func TestPlayerVerbs(t *testing.T) {
	f := newFixture(t)

	f.run(t, "name John Egbert")
	if got := f.store.Player().Name; got != "John Egbert" {
		t.Fatalf("name %q", got)
	}
	f.run(t, "classpect heir breath")
	if got := f.store.Player().Classpect; got != "Heir of Breath" {
		t.Fatalf("classpect %q", got)
	}
	if resp := f.run(t, "classpect"); !strings.Contains(resp.Message, "Heir of Breath") {
		t.Fatalf("classpect query: %q", resp.Message)
	}

	f.run(t, "lunar")
	sway := f.store.Player().LunarSway
	if sway != "Prospit" && sway != "Derse" {
		t.Fatalf("unexpected sway %q", sway)
	}

	resp := f.run(t, "st")
	for _, want := range []string{"Name: John Egbert", "Classpect: Heir of Breath", "HP: 100/100", "Session: Inactive"} {
		if !strings.Contains(resp.Message, want) {
			t.Fatalf("status missing %q:\n%s", want, resp.Message)
		}
	}
}

func TestLandVerbsNeedALand(t *testing.T) {
	f := newFixture(t)
	for _, verb := range []string{"land", "explore", "map", "quest", "consorts", "look"} {
		if resp := f.run(t, verb); resp.Kind != KindWarning {
			t.Fatalf("%s before begin: %+v", verb, resp)
		}
	}

	f.run(t, "begin")
	resp := f.run(t, "explore")
	if resp.Kind != KindSuccess {
		t.Fatalf("explore: %+v", resp)
	}
	if f.store.Player().Experience == 0 {
		t.Fatal("exploring should award experience")
	}
	if resp := f.run(t, "map"); !strings.Contains(resp.Message, "@") {
		t.Fatalf("map should show the player:\n%s", resp.Message)
	}
	if resp := f.run(t, "quest"); !strings.Contains(resp.Message, "Progress: 0/") {
		t.Fatalf("quest: %q", resp.Message)
	}
	if resp := f.run(t, "consorts"); !strings.Contains(resp.Message, "Species:") {
		t.Fatalf("consorts: %q", resp.Message)
	}
}

func TestHelp(t *testing.T) {
	f := newFixture(t)
	resp := f.run(t, "help")
	for _, want := range []string{"SESSION:", "ECHOES:", "CALL FILES:", "echo_cascade"} {
		if !strings.Contains(resp.Message, want) {
			t.Fatalf("help missing %q", want)
		}
	}
	resp = f.run(t, "help pick")
	if !strings.Contains(resp.Message, "Command: choose") || !strings.Contains(resp.Message, "Usage: choose") {
		t.Fatalf("help by alias: %q", resp.Message)
	}
}

func TestSessionVerbs(t *testing.T) {
	f := newFixture(t)
	if resp := f.run(t, "save"); resp.Kind != KindWarning {
		t.Fatalf("save without a session handler should warn: %+v", resp)
	}

	s := &fakeSession{loadErr: gameerr.New(gameerr.CodeIncompatibleSave, "old")}
	f.d.SetSession(s)
	if resp := f.run(t, "save"); resp.Kind != KindSuccess {
		t.Fatalf("save: %+v", resp)
	}
	if resp := f.run(t, "load"); resp.Kind != KindWarning || !strings.Contains(resp.Message, "another timeline") {
		t.Fatalf("incompatible load: %+v", resp)
	}
	f.run(t, "reset")
	if s.saves != 1 || s.loads != 1 || s.resets != 1 {
		t.Fatalf("unexpected session calls %+v", s)
	}
}

func TestBookAndStory(t *testing.T) {
	f := newFixture(t)
	if resp := f.run(t, "book"); !strings.Contains(resp.Message, "empty") {
		t.Fatalf("empty book: %q", resp.Message)
	}
	f.run(t, "activate strife")
	if resp := f.run(t, "book"); !strings.Contains(resp.Message, "Echo Activated: Strife Engagement") {
		t.Fatalf("book: %q", resp.Message)
	}
	if resp := f.run(t, "story"); resp.Kind != KindSuccess || !strings.Contains(resp.Message, "A tale unfolds:") {
		t.Fatalf("story: %+v", resp)
	}
	if resp := f.run(t, "lore skaia"); !strings.Contains(resp.Message, "Lore about skaia:") {
		t.Fatalf("lore: %q", resp.Message)
	}
}

func TestPanickingVerbIsContained(t *testing.T) {
	f := newFixture(t)
	f.d.Register(Verb{Name: "boom", Category: CategorySystem, Run: func(context.Context, *Dispatcher, []string) Response {
		panic("kaboom")
	}})
	resp := f.run(t, "boom")
	if resp.Kind != KindError || !strings.Contains(resp.Message, "cosmic machinery") {
		t.Fatalf("panic should become an error response: %+v", resp)
	}
}

func TestLoreOracle(t *testing.T) {
	f := newFixture(t)
	oracle := &fakeOracle{answer: "Skaia is where the frogs sleep."}
	f.d.oracle = oracle

	f.run(t, "classpect seer light")
	resp := f.run(t, "lore skaia")
	if !strings.Contains(resp.Message, "Skaia is where the frogs sleep.") {
		t.Fatalf("oracle answer missing: %q", resp.Message)
	}
	if len(oracle.topics) != 1 || oracle.topics[0] != "skaia" {
		t.Fatalf("oracle topics %v", oracle.topics)
	}
	if oracle.context["player.classpect"] != "Seer of Light" || oracle.context["player.level"] != 1 {
		t.Fatalf("game context %v", oracle.context)
	}
	if _, ok := oracle.context["land"]; ok {
		t.Fatal("no land yet, so none should be sent")
	}
	book := f.store.Book()
	if len(book) == 0 || book[len(book)-1].Title != "Lore: skaia" {
		t.Fatalf("lore should be written to the book: %+v", book)
	}

	oracle.err = errors.New("offline")
	if resp := f.run(t, "lore derse"); !strings.Contains(resp.Message, "Lore about derse:") {
		t.Fatalf("failing oracle should fall back to local chains: %q", resp.Message)
	}
}
