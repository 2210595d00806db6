package land

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/zyedidia/generic/mapset"

	"sburbterm/internal/debug"
	"sburbterm/internal/game/events"
	"sburbterm/internal/game/narrative"
	"sburbterm/internal/gameerr"
	"sburbterm/internal/random"
	"sburbterm/internal/scheduler"
)

var areas = []string{
	"crystal_caverns", "ancient_ruins", "hidden_grove", "mysterious_structure",
	"consort_village", "resource_deposit", "puzzle_chamber", "scenic_overlook",
	"dangerous_territory", "quest_location",
}

var discoveries = []string{
	"valuable_resource", "quest_item", "consort_settlement", "ancient_artifact",
	"hidden_passage", "puzzle_mechanism", "lore_fragment", "nothing_special",
}

// CurrentQuest addresses the quest of the current land.
const CurrentQuest = "current"

type Narrator interface {
	GenerateNarrative(context, typ string, length narrative.Length) string
}

type Options struct {
	Catalog  Catalog
	Narrator Narrator
	Sink     events.Sink
	Clock    scheduler.Clock
	Random   random.Source
	Log      *debug.Logger
	NewID    func() string
}

// Registry owns every generated land. Lands are never deleted; at most one
// is current.
type Registry struct {
	mu       sync.Mutex
	lands    map[string]*Land
	order    []string
	explored map[string]mapset.Set[string]
	current  string

	catalog  Catalog
	narrator Narrator
	sink     events.Sink
	clock    scheduler.Clock
	rng      random.Source
	log      *debug.Logger
	newID    func() string
}

func New(opts Options) *Registry {
	r := &Registry{
		lands:    make(map[string]*Land),
		explored: make(map[string]mapset.Set[string]),
		catalog:  opts.Catalog,
		narrator: opts.Narrator,
		sink:     opts.Sink,
		clock:    opts.Clock,
		rng:      opts.Random,
		log:      opts.Log,
		newID:    opts.NewID,
	}
	if r.sink == nil {
		r.sink = events.Nop{}
	}
	if r.clock == nil {
		r.clock = scheduler.SystemClock{}
	}
	if r.rng == nil {
		r.rng = random.New(0)
	}
	if r.newID == nil {
		r.newID = uuid.NewString
	}
	return r
}

// Generate builds a land. With interests the best-scoring template wins,
// otherwise one is picked uniformly.
func (r *Registry) Generate(interests []string) (Land, error) {
	if len(r.catalog.Templates) == 0 {
		return Land{}, gameerr.New(gameerr.CodeNotFound, "no land templates loaded")
	}
	var t Template
	if len(interests) > 0 {
		t = r.catalog.bestTemplate(interests)
	} else {
		t = random.Pick(r.rng, r.catalog.Templates)
	}

	consorts := r.selectConsorts(t)
	l := &Land{
		ID:          r.newID(),
		Name:        "Land of " + t.Name,
		Template:    t.ID,
		Themes:      slices.Clone(t.Themes),
		Description: t.Description,
		Terrain:     slices.Clone(t.Terrain),
		Hazards:     slices.Clone(t.Hazards),
		Resources:   slices.Clone(t.Resources),
		Consorts:    consorts,
		Quest:       r.catalog.quest(t, consorts),
		Denizen:     r.denizen(t),
		Map:         generateMap(r.catalog, t, r.rng),
		Explored:    Explored{Areas: []string{EntryPoint}, Percentage: percentage(1)},
		Events:      []Event{},
		CreatedAt:   r.clock.Now(),
	}

	r.mu.Lock()
	r.lands[l.ID] = l
	r.order = append(r.order, l.ID)
	set := mapset.New[string]()
	set.Put(EntryPoint)
	r.explored[l.ID] = set
	out := l.clone()
	r.mu.Unlock()

	r.log.Printf("land: generated %s (%s)", out.Name, out.ID)
	r.sink.Emit(events.LandGenerated, out)
	return out, nil
}

func (c Catalog) bestTemplate(interests []string) Template {
	keywords := strings.ToLower(strings.Join(interests, " "))
	best, bestScore := c.Templates[0], 0
	for _, t := range c.Templates {
		score := 0
		for _, theme := range t.Themes {
			if strings.Contains(keywords, theme) {
				score += 3
			}
		}
		for _, terrain := range t.Terrain {
			if strings.Contains(keywords, Humanize(terrain)) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = t, score
		}
	}
	return best
}

func (r *Registry) selectConsorts(t Template) []Species {
	var compatible []Species
	for _, s := range r.catalog.Species {
		if habitatFits(s.Habitat, t.Themes) {
			compatible = append(compatible, s)
		}
	}
	if len(compatible) == 0 {
		return []Species{random.Pick(r.rng, r.catalog.Species)}
	}
	n := 1
	if r.rng.Float64() > 0.7 {
		n = 2
	}
	var out []Species
	for i := 0; i < n && len(compatible) > 0; i++ {
		idx := r.rng.Intn(len(compatible))
		out = append(out, compatible[idx])
		compatible = slices.Delete(compatible, idx, idx+1)
	}
	return out
}

func habitatFits(habitat, themes []string) bool {
	for _, h := range habitat {
		for _, t := range themes {
			if strings.Contains(h, t) || strings.Contains(t, h) {
				return true
			}
		}
	}
	return false
}

func (c Catalog) quest(t Template, consorts []Species) Quest {
	qt, ok := c.Quests[t.QuestType]
	typ := t.QuestType
	if !ok {
		qt, typ = c.Quests[c.DefaultQuest], c.DefaultQuest
	}
	q := Quest{
		Type:        typ,
		Title:       qt.Title,
		Description: qt.Description,
		Objectives:  slices.Clone(qt.Objectives),
	}
	for _, s := range consorts {
		specialty := "patience"
		if len(s.Specialties) > 0 {
			specialty = Humanize(s.Specialties[0])
		}
		tips := []string{fmt.Sprintf("The %s suggest: %q", s.Name,
			strings.TrimSuffix(strings.ToLower(qt.Description), ".")+" requires "+specialty+".")}
		switch s.Helpfulness {
		case "high":
			if len(qt.Objectives) > 0 {
				tips = append(tips, fmt.Sprintf("They offer to help with %s.", strings.ToLower(qt.Objectives[0])))
			}
		case "medium":
			tips = append(tips, "They might help if you prove yourself worthy.")
		default:
			tips = append(tips, "They seem uninterested in helping directly.")
		}
		q.ConsortAdvice = append(q.ConsortAdvice, Advice{Species: s.Name, Tips: tips})
	}
	return q
}

func (r *Registry) denizen(t Template) Denizen {
	name := t.Denizen
	if name == "" {
		name = "The Ancient Guardian"
	}
	return Denizen{
		Name:        name,
		Description: "The powerful denizen who rules over the " + t.Name,
		Power:       random.Between(r.rng, 8, 12),
	}
}

func percentage(areas int) int {
	return min(100, areas*100/AreaCount)
}

func (r *Registry) Get(id string) (Land, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lands[id]
	if !ok {
		return Land{}, false
	}
	return l.clone(), true
}

// All returns every land in creation order.
func (r *Registry) All() []Land {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Land, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.lands[id].clone())
	}
	return out
}

func (r *Registry) ByTheme(theme string) []Land {
	var out []Land
	for _, l := range r.All() {
		if slices.Contains(l.Themes, theme) {
			out = append(out, l)
		}
	}
	return out
}

func (r *Registry) Current() (Land, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lands[r.current]
	if !ok {
		return Land{}, false
	}
	return l.clone(), true
}

// CurrentLandName returns the current land's name or "".
func (r *Registry) CurrentLandName() string {
	l, ok := r.Current()
	if !ok {
		return ""
	}
	return l.Name
}

func (r *Registry) SetCurrent(id string) error {
	r.mu.Lock()
	l, ok := r.lands[id]
	if !ok {
		r.mu.Unlock()
		return gameerr.New(gameerr.CodeNotFound, fmt.Sprintf("land %s not found", id))
	}
	r.current = id
	name := l.Name
	r.mu.Unlock()

	r.log.Printf("land: current is now %s", name)
	return nil
}

func (r *Registry) lookupLocked(id string) (*Land, error) {
	l, ok := r.lands[id]
	if !ok {
		return nil, gameerr.New(gameerr.CodeNotFound, fmt.Sprintf("land %s not found", id))
	}
	return l, nil
}

// Explore visits area (or a random one when area is empty) and records the
// result. Experience in the result is for the caller to award.
func (r *Registry) Explore(id, area string) (Exploration, error) {
	r.mu.Lock()
	l, err := r.lookupLocked(id)
	if err != nil {
		r.mu.Unlock()
		return Exploration{}, err
	}
	name := l.Name
	themes, terrain, resources := slices.Clone(l.Themes), slices.Clone(l.Terrain), slices.Clone(l.Resources)
	r.mu.Unlock()

	if area == "" || area == "random" {
		area = random.Pick(r.rng, areas)
	}
	ex := Exploration{
		LandID:     id,
		Area:       area,
		Discovery:  random.Pick(r.rng, discoveries),
		Experience: random.Between(r.rng, 10, 29),
	}
	if ex.Discovery == "valuable_resource" && len(resources) > 0 {
		ex.Resources = []string{random.Pick(r.rng, resources)}
	}
	ex.Narrative = r.exploreNarrative(name, themes, terrain, ex)

	r.mu.Lock()
	l, err = r.lookupLocked(id)
	if err != nil {
		r.mu.Unlock()
		return Exploration{}, err
	}
	seen, ok := r.explored[id]
	if !ok {
		seen = mapset.New[string]()
		r.explored[id] = seen
	}
	if !seen.Has(area) {
		seen.Put(area)
		l.Explored.Areas = append(l.Explored.Areas, area)
		l.Explored.Percentage = percentage(len(l.Explored.Areas))
		ex.NewArea = true
	}
	ex.Percentage = l.Explored.Percentage
	l.Events = append(l.Events, Event{Type: "exploration", Area: area, Detail: ex.Discovery, Timestamp: r.clock.Now()})
	r.mu.Unlock()

	r.log.Printf("land: explored %s in %s -> %s", area, id, ex.Discovery)
	r.sink.Emit(events.LandExplored, ex)
	return ex, nil
}

func (r *Registry) exploreNarrative(name string, themes, terrain []string, ex Exploration) string {
	var base string
	if r.narrator != nil {
		ctx := fmt.Sprintf("exploring %s in %s, discovering %s", Humanize(ex.Area), name, Humanize(ex.Discovery))
		base = r.narrator.GenerateNarrative(ctx, "discovery", narrative.Medium)
	}
	if len(themes) == 0 || len(terrain) == 0 {
		return base
	}
	flavor := fmt.Sprintf("The %s essence of this place is evident in the %s around you.",
		random.Pick(r.rng, themes), Humanize(random.Pick(r.rng, terrain)))
	return strings.TrimSpace(base + " " + flavor)
}

// MapSection returns a w by h window of the map starting at x, y.
func (r *Registry) MapSection(id string, x, y, w, h int) (string, error) {
	if w <= 0 || h <= 0 {
		return "", gameerr.New(gameerr.CodeInvalidInput, "map section needs a positive size")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	l, err := r.lookupLocked(id)
	if err != nil {
		return "", err
	}
	if !l.Map.In(max(0, x), max(0, y)) {
		return "", gameerr.New(gameerr.CodeInvalidInput, fmt.Sprintf("map position %d,%d is outside the map", x, y))
	}
	return l.Map.Section(x, y, w, h), nil
}

// UpdateMapLocation writes a single glyph.
func (r *Registry) UpdateMapLocation(id string, x, y int, symbol rune) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, err := r.lookupLocked(id)
	if err != nil {
		return err
	}
	if !l.Map.In(x, y) {
		return gameerr.New(gameerr.CodeInvalidInput, fmt.Sprintf("map position %d,%d is outside the map", x, y))
	}
	l.Map.set(x, y, symbol)
	return nil
}

// Legend lists the glyphs used on a land's map.
func (r *Registry) Legend(id string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, err := r.lookupLocked(id)
	if err != nil {
		return nil, err
	}
	lines := []string{string(PlayerSymbol) + " You", "- | Paths"}
	for _, t := range l.Terrain {
		lines = append(lines, string(r.catalog.symbol(t))+" "+Label(t))
	}
	return lines, nil
}

// UpdateQuest advances a quest. id is a land id, a quest type, or
// "current"; the current land is preferred when several share a quest type. update may
// carry "progress" (default 1) and "completed".
func (r *Registry) UpdateQuest(id string, update map[string]any) error {
	r.mu.Lock()
	l := r.questLandLocked(id)
	if l == nil {
		r.mu.Unlock()
		return gameerr.New(gameerr.CodeNotFound, fmt.Sprintf("quest %s not found", id))
	}
	step := 1
	if v, ok := update["progress"]; ok {
		if n, ok := asInt(v); ok {
			step = n
		}
	}
	q := &l.Quest
	q.Progress = max(0, q.Progress+step)
	if done, ok := update["completed"].(bool); ok && done {
		q.Progress = max(q.Progress, len(q.Objectives))
	}
	if len(q.Objectives) > 0 && q.Progress >= len(q.Objectives) {
		q.Progress = len(q.Objectives)
		q.Completed = true
	}
	l.Events = append(l.Events, Event{Type: "quest", Detail: fmt.Sprintf("%d/%d", q.Progress, len(q.Objectives)), Timestamp: r.clock.Now()})
	snapshot := *q
	r.mu.Unlock()

	r.log.Printf("land: quest %s progress %d/%d", snapshot.Type, snapshot.Progress, len(snapshot.Objectives))
	r.sink.Emit(events.QuestUpdated, snapshot)
	return nil
}

func (r *Registry) questLandLocked(id string) *Land {
	if id == CurrentQuest {
		return r.lands[r.current]
	}
	if l, ok := r.lands[id]; ok {
		return l
	}
	if l, ok := r.lands[r.current]; ok && l.Quest.Type == id {
		return l
	}
	for _, lid := range r.order {
		if r.lands[lid].Quest.Type == id {
			return r.lands[lid]
		}
	}
	return nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// Encounter is the payload of encounter:triggered.
type Encounter struct {
	ID        string `json:"id"`
	LandID    string `json:"landId,omitempty"`
	Narrative string `json:"narrative"`
}

// TriggerEncounter narrates an encounter on the current land. The
// "denizen" encounter marks the denizen as met.
func (r *Registry) TriggerEncounter(id string) {
	var text string
	if r.narrator != nil {
		text = r.narrator.GenerateNarrative("encounter "+Humanize(id), "conflict", narrative.Short)
	}

	r.mu.Lock()
	enc := Encounter{ID: id, Narrative: text}
	if l, ok := r.lands[r.current]; ok {
		enc.LandID = l.ID
		if id == "denizen" {
			l.Denizen.Encountered = true
		}
		l.Events = append(l.Events, Event{Type: "encounter", Detail: id, Timestamp: r.clock.Now()})
	}
	r.mu.Unlock()

	r.log.Printf("land: encounter %s", id)
	r.sink.Emit(events.EncounterTriggered, enc)
	events.Say(r.sink, events.StyleStory, text)
}

// Snapshot is the persisted land state.
type Snapshot struct {
	Lands   []Land `json:"lands"`
	Current string `json:"current,omitempty"`
}

func (r *Registry) Snapshot() Snapshot {
	return Snapshot{Lands: r.All(), Current: r.currentID()}
}

func (r *Registry) currentID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Registry) Restore(snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked()
	for _, l := range snap.Lands {
		if l.ID == "" {
			continue
		}
		c := l.clone()
		if _, dup := r.lands[c.ID]; !dup {
			r.order = append(r.order, c.ID)
		}
		r.lands[c.ID] = &c
		set := mapset.New[string]()
		for _, a := range c.Explored.Areas {
			set.Put(a)
		}
		r.explored[c.ID] = set
	}
	if _, ok := r.lands[snap.Current]; ok {
		r.current = snap.Current
	}
}

func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked()
}

func (r *Registry) resetLocked() {
	r.lands = make(map[string]*Land)
	r.order = nil
	r.explored = make(map[string]mapset.Set[string])
	r.current = ""
}
