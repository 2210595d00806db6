package echo

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"sburbterm/internal/debug"
	"sburbterm/internal/game"
	"sburbterm/internal/game/events"
	"sburbterm/internal/game/narrative"
	"sburbterm/internal/gameerr"
	"sburbterm/internal/random"
	"sburbterm/internal/scheduler"
)

// Narrator produces the prose some effects append to their message.
type Narrator interface {
	GenerateNarrative(context, typ string, length narrative.Length) string
}

// Store is the slice of the world state the registry reads and journals to.
type Store interface {
	Player() game.Player
	AddBookEntry(title, content, kind string) game.BookEntry
}

type Options struct {
	Limit    int
	Narrator Narrator
	Store    Store
	Sink     events.Sink
	Clock    scheduler.Clock
	Random   random.Source
	Log      *debug.Logger
	// NewID overrides uuid generation for generated and mutated echoes.
	NewID func() string
}

// Registry owns the echo catalog and the active set.
type Registry struct {
	mu        sync.Mutex
	catalog   map[string]Echo
	order     []string
	active    []*Active
	callFiles map[string]CallFile
	limit     int

	narrator Narrator
	store    Store
	sink     events.Sink
	clock    scheduler.Clock
	rng      random.Source
	log      *debug.Logger
	newID    func() string
}

func New(opts Options) *Registry {
	r := &Registry{
		limit:    opts.Limit,
		narrator: opts.Narrator,
		store:    opts.Store,
		sink:     opts.Sink,
		clock:    opts.Clock,
		rng:      opts.Random,
		log:      opts.Log,
		newID:    opts.NewID,
	}
	if r.limit <= 0 {
		r.limit = DefaultLimit
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
	r.resetLocked()
	return r
}

func (r *Registry) resetLocked() {
	r.catalog = make(map[string]Echo)
	r.order = nil
	r.active = nil
	for _, e := range coreEchoes() {
		r.registerLocked(e)
	}
	r.callFiles = make(map[string]CallFile)
	for _, cf := range coreCallFiles() {
		r.callFiles[cf.Command] = cf
	}
}

// Reset restores the core catalog and clears the active set.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked()
}

func (r *Registry) registerLocked(e Echo) {
	if _, ok := r.catalog[e.ID]; !ok {
		r.order = append(r.order, e.ID)
	}
	r.catalog[e.ID] = e
}

// SetLimit changes the active capacity. Already-active echoes are kept.
func (r *Registry) SetLimit(n int) {
	if n <= 0 {
		return
	}
	r.mu.Lock()
	r.limit = n
	r.mu.Unlock()
}

func (r *Registry) Limit() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.limit
}

// All returns the catalog in registration order.
func (r *Registry) All() []Echo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Echo, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.catalog[id].clone())
	}
	return out
}

func (r *Registry) Get(id string) (Echo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.catalog[id]
	return e.clone(), ok
}

// Resolve finds an echo by id, by id without the "echo_" prefix, or by
// case-insensitive name.
func (r *Registry) Resolve(ref string) (Echo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref = strings.TrimSpace(ref)
	if e, ok := r.catalog[ref]; ok {
		return e.clone(), true
	}
	if e, ok := r.catalog["echo_"+strings.ToLower(ref)]; ok {
		return e.clone(), true
	}
	for _, id := range r.order {
		if strings.EqualFold(r.catalog[id].Name, ref) {
			return r.catalog[id].clone(), true
		}
	}
	return Echo{}, false
}

func (r *Registry) Active() []Active {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Active, 0, len(r.active))
	for _, a := range r.active {
		c := *a
		c.Echo = a.Echo.clone()
		out = append(out, c)
	}
	return out
}

func (r *Registry) IsActive(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findActiveLocked(id) != nil
}

func (r *Registry) ByType(t Type) []Echo {
	var out []Echo
	for _, e := range r.All() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// ForClasspect returns the echoes that declare an affinity for classpect.
// Echoes without an affinity can be activated by anyone but are not listed.
func (r *Registry) ForClasspect(classpect string) []Echo {
	var out []Echo
	if classpect == "" {
		return out
	}
	for _, e := range r.All() {
		if len(e.Affinity) > 0 && affinityMatches(e.Affinity, classpect) {
			out = append(out, e)
		}
	}
	return out
}

// CallFiles returns the call file catalog sorted by command.
func (r *Registry) CallFiles() []CallFile {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CallFile, 0, len(r.callFiles))
	for _, cf := range r.callFiles {
		out = append(out, cf)
	}
	slices.SortFunc(out, func(a, b CallFile) int { return strings.Compare(a.Command, b.Command) })
	return out
}

func affinityMatches(affinity []string, classpect string) bool {
	if len(affinity) == 0 || classpect == "" {
		return true
	}
	for _, token := range affinity {
		if token == "Any" || strings.Contains(classpect, token) {
			return true
		}
	}
	return false
}

func (r *Registry) findActiveLocked(id string) *Active {
	for _, a := range r.active {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (r *Registry) onCooldownLocked(a *Active, now time.Time) bool {
	if a.Cooldown <= 0 || a.LastUsed.IsZero() {
		return false
	}
	return now.Sub(a.LastUsed) < a.Window()
}

func (r *Registry) classpect() string {
	if r.store == nil {
		return ""
	}
	return r.store.Player().Classpect
}

func (r *Registry) journal(title, content, kind string) {
	if r.store == nil {
		return
	}
	r.store.AddBookEntry(title, content, kind)
}

// Activate moves a catalog echo into the active set.
func (r *Registry) Activate(id string) (Active, error) {
	classpect := r.classpect()

	r.mu.Lock()
	e, ok := r.catalog[id]
	if !ok {
		r.mu.Unlock()
		return Active{}, gameerr.New(gameerr.CodeNotFound, fmt.Sprintf("echo %s not found", id))
	}
	if len(r.active) >= r.limit {
		r.mu.Unlock()
		return Active{}, gameerr.WithMetadata(gameerr.CodeCapacityExceeded,
			fmt.Sprintf("maximum active echoes (%d) reached", r.limit),
			map[string]string{"limit": fmt.Sprint(r.limit)})
	}
	now := r.clock.Now()
	if a := r.findActiveLocked(id); a != nil {
		onCooldown := r.onCooldownLocked(a, now)
		r.mu.Unlock()
		if onCooldown {
			return Active{}, gameerr.New(gameerr.CodeOnCooldown, fmt.Sprintf("%s is on cooldown", e.Name))
		}
		return Active{}, gameerr.New(gameerr.CodeInvalidInput, fmt.Sprintf("%s is already active", e.Name))
	}
	if !affinityMatches(e.Affinity, classpect) {
		r.mu.Unlock()
		return Active{}, gameerr.WithMetadata(gameerr.CodeAffinityMismatch,
			fmt.Sprintf("%s does not resonate with %s", e.Name, classpect),
			map[string]string{"affinity": strings.Join(e.Affinity, ","), "classpect": classpect})
	}
	a := &Active{Echo: e.clone(), ActivatedAt: now}
	r.active = append(r.active, a)
	out := *a
	r.mu.Unlock()

	r.log.Printf("echo: activated %s", e.ID)
	r.journal("Echo Activated: "+e.Name, e.Description, "echo")
	r.sink.Emit(events.EchoActivated, out)
	return out, nil
}

func (r *Registry) Deactivate(id string) error {
	r.mu.Lock()
	idx := slices.IndexFunc(r.active, func(a *Active) bool { return a.ID == id })
	if idx < 0 {
		r.mu.Unlock()
		return gameerr.New(gameerr.CodeNotActive, fmt.Sprintf("echo %s is not active", id))
	}
	removed := *r.active[idx]
	r.active = slices.Delete(r.active, idx, idx+1)
	r.mu.Unlock()

	r.log.Printf("echo: deactivated %s", id)
	r.sink.Emit(events.EchoDeactivated, removed.Echo)
	return nil
}

// Use invokes an active echo's effect and starts its cooldown.
func (r *Registry) Use(id, context string) (Result, error) {
	r.mu.Lock()
	a := r.findActiveLocked(id)
	if a == nil {
		r.mu.Unlock()
		return Result{}, gameerr.New(gameerr.CodeNotActive, fmt.Sprintf("echo %s is not active", id))
	}
	now := r.clock.Now()
	if r.onCooldownLocked(a, now) {
		remaining := r.remainingLocked(a, now)
		r.mu.Unlock()
		return Result{}, gameerr.WithMetadata(gameerr.CodeOnCooldown,
			fmt.Sprintf("%s is on cooldown for %d more turn(s)", a.Name, remaining),
			map[string]string{"remaining": fmt.Sprint(remaining)})
	}
	a.LastUsed = now
	used := *a
	used.Echo = a.Echo.clone()
	r.mu.Unlock()

	res := r.invoke(used.EffectKey, used.Name, context)
	r.log.Printf("echo: used %s -> %s", used.ID, res.Effect)
	r.journal("Echo Used: "+used.Name, used.Description+" Result: "+res.Message, "echo")
	r.sink.Emit(events.EchoUsed, UseEvent{Echo: used, Result: res})
	return res, nil
}

// CooldownRemaining is the whole number of turns left before id can be
// used again. Inactive echoes report 0.
func (r *Registry) CooldownRemaining(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.findActiveLocked(id)
	if a == nil {
		return 0
	}
	return r.remainingLocked(a, r.clock.Now())
}

func (r *Registry) remainingLocked(a *Active, now time.Time) int {
	if a.Cooldown <= 0 || a.LastUsed.IsZero() {
		return 0
	}
	left := a.Window() - now.Sub(a.LastUsed)
	if left <= 0 {
		return 0
	}
	return int((left + Turn - 1) / Turn)
}

// Register adds or replaces a catalog entry. Core ids cannot be replaced.
func (r *Registry) Register(e Echo) error {
	if e.ID == "" || e.Name == "" {
		return gameerr.New(gameerr.CodeInvalidInput, "echo needs an id and a name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if isCore(e.ID) {
		return gameerr.New(gameerr.CodeInvalidInput, fmt.Sprintf("echo %s is a core echo", e.ID))
	}
	r.registerLocked(e.clone())
	return nil
}

// Mutate registers a variant of id with a small power drift.
func (r *Registry) Mutate(id string) (Echo, error) {
	r.mu.Lock()
	orig, ok := r.catalog[id]
	if !ok {
		r.mu.Unlock()
		return Echo{}, gameerr.New(gameerr.CodeNotFound, fmt.Sprintf("echo %s not found", id))
	}
	m := orig.clone()
	m.ID = r.newID()
	m.Name = orig.Name + mutationMarker
	if r.rng.Float64() > 0.5 {
		m.Power++
	} else {
		m.Power--
	}
	m.Power = max(1, m.Power)
	m.MutatedFrom = orig.ID
	m.CreatedAt = r.clock.Now()
	r.registerLocked(m)
	r.mu.Unlock()

	r.log.Printf("echo: mutated %s into %s (power %d)", orig.ID, m.ID, m.Power)
	r.sink.Emit(events.EchoMutated, Mutation{Original: orig.clone(), Mutated: m.clone()})
	return m.clone(), nil
}

// ProcessCommand routes a command token to an active echo or a call file.
// The bool is false when nothing claims the token.
func (r *Registry) ProcessCommand(token string, args []string) (Outcome, bool) {
	lower := strings.ToLower(token)
	context := strings.Join(args, " ")

	r.mu.Lock()
	var matched string
	for _, a := range r.active {
		if slices.ContainsFunc(a.Commands, func(c string) bool { return strings.ToLower(c) == lower }) {
			matched = a.ID
			break
		}
	}
	cf, isCall := r.callFiles[token]
	r.mu.Unlock()

	if matched != "" {
		res, err := r.Use(matched, context)
		return Outcome{Source: SourceEcho, EchoID: matched, Result: res, Err: err}, true
	}
	if isCall {
		res := r.invoke(cf.EffectKey, cf.Name, context)
		r.log.Printf("echo: call file %s", cf.Command)
		r.journal("Echo Call: "+cf.Name, res.Message, "echo_call")
		r.sink.Emit(events.CallFileRun, struct {
			CallFile CallFile `json:"callFile"`
			Result   Result   `json:"result"`
		}{cf, res})
		return Outcome{Source: SourceCallFile, Result: res}, true
	}
	return Outcome{}, false
}
