// Package commands turns a line of player input into engine operations.
package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"sburbterm/internal/debug"
	"sburbterm/internal/game/choice"
	"sburbterm/internal/game/echo"
	"sburbterm/internal/game/land"
	"sburbterm/internal/game/narrative"
	"sburbterm/internal/game/state"
	"sburbterm/internal/gameerr"
	"sburbterm/internal/observability"
	"sburbterm/internal/random"
	"sburbterm/internal/scheduler"
)

// Response kinds.
const (
	KindInfo    = "info"
	KindSuccess = "success"
	KindWarning = "warning"
	KindError   = "error"
)

// Response is what the player sees after one command. Command is the
// canonical verb that handled the input, with aliases resolved; echo and
// unknown commands carry the lower-cased first token. The raw input line
// goes to the command log.
type Response struct {
	Command   string    `json:"command"`
	Message   string    `json:"message"`
	Kind      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// Verb is one entry in the command table.
type Verb struct {
	Name        string
	Aliases     []string
	Category    string
	Usage       string
	Description string
	Run         func(ctx context.Context, d *Dispatcher, args []string) Response
}

// Session is implemented by the engine for verbs that act on the whole game.
type Session interface {
	Save(ctx context.Context) error
	Load(ctx context.Context) error
	Reset()
}

// Oracle answers lore questions. It may be nil.
type Oracle interface {
	Lore(ctx context.Context, topic string) (string, error)
}

// CommandLog durably records commands. It may be nil.
type CommandLog interface {
	Log(ctx context.Context, sessionID, command, response string) error
}

type Options struct {
	Store     *state.Store
	Narrator  *narrative.Generator
	Choices   *choice.Engine
	Echoes    *echo.Registry
	Lands     *land.Registry
	Session   Session
	Oracle    Oracle
	Log       CommandLog
	Scheduler scheduler.Scheduler
	Clock     scheduler.Clock
	Random    random.Source
	Debug     *debug.Logger

	// BeginDelay is how long after "begin" the opening choice appears.
	BeginDelay time.Duration
}

// DefaultBeginDelay matches the pause before the first choice.
const DefaultBeginDelay = 2 * time.Second

// Dispatcher owns the verb table. It holds no game state of its own.
type Dispatcher struct {
	store    *state.Store
	narrator *narrative.Generator
	choices  *choice.Engine
	echoes   *echo.Registry
	lands    *land.Registry
	session  Session
	oracle   Oracle
	cmdLog   CommandLog
	sched    scheduler.Scheduler
	clock    scheduler.Clock
	rng      random.Source
	log      *debug.Logger

	beginDelay time.Duration
	verbs      map[string]*Verb
	aliases    map[string]string
}

func New(opts Options) *Dispatcher {
	if opts.Clock == nil {
		opts.Clock = scheduler.SystemClock{}
	}
	if opts.BeginDelay <= 0 {
		opts.BeginDelay = DefaultBeginDelay
	}
	d := &Dispatcher{
		store:      opts.Store,
		narrator:   opts.Narrator,
		choices:    opts.Choices,
		echoes:     opts.Echoes,
		lands:      opts.Lands,
		session:    opts.Session,
		oracle:     opts.Oracle,
		cmdLog:     opts.Log,
		sched:      opts.Scheduler,
		clock:      opts.Clock,
		rng:        opts.Random,
		log:        opts.Debug,
		beginDelay: opts.BeginDelay,
		verbs:      make(map[string]*Verb),
		aliases:    make(map[string]string),
	}
	for _, v := range builtinVerbs() {
		d.Register(v)
	}
	return d
}

// SetSession wires the engine once it exists.
func (d *Dispatcher) SetSession(s Session) {
	d.session = s
}

// Register adds or replaces a verb and its aliases.
func (d *Dispatcher) Register(v Verb) {
	d.verbs[v.Name] = &v
	for _, a := range v.Aliases {
		d.aliases[a] = v.Name
	}
}

// Lookup resolves a verb by name or alias.
func (d *Dispatcher) Lookup(name string) (*Verb, bool) {
	if target, ok := d.aliases[name]; ok {
		name = target
	}
	v, ok := d.verbs[name]
	return v, ok
}

// Verbs lists the table sorted by name.
func (d *Dispatcher) Verbs() []Verb {
	out := make([]Verb, 0, len(d.verbs))
	for _, v := range d.verbs {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute runs one line of input. Blank input is rejected with an
// InvalidInput error and is not recorded.
func (d *Dispatcher) Execute(ctx context.Context, input string) (Response, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return d.respond("", "speak up there, player, the void doesn't respond to silence", KindWarning, "warning"),
			gameerr.New(gameerr.CodeInvalidInput, "empty command")
	}

	fields := strings.Fields(trimmed)
	token := strings.ToLower(fields[0])
	args := fields[1:]

	tracer := otel.Tracer("command-dispatcher")
	attrs := []attribute.KeyValue{
		attribute.String("command.token", token),
		attribute.Int("command.args", len(args)),
	}
	if sessionID := observability.SessionIDFromContext(ctx); sessionID != "" {
		attrs = append(attrs, attribute.String("session.id", sessionID))
	}
	ctx, span := tracer.Start(ctx, "command.execute", trace.WithAttributes(attrs...))
	defer span.End()

	resp := d.dispatch(ctx, token, args, span)
	if resp.Command == "" {
		resp.Command = token
	}

	if resp.Kind == KindError {
		span.SetStatus(codes.Error, resp.Message)
	}
	span.SetAttributes(attribute.String("command.result", resp.Kind))

	d.store.RecordCommand(trimmed, resp.Message)
	if d.cmdLog != nil {
		if err := d.cmdLog.Log(ctx, d.store.Session().ID, trimmed, resp.Message); err != nil {
			span.RecordError(err)
			d.log.Printf("commands: command log write failed: %v", err)
		}
	}
	return resp, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, token string, args []string, span trace.Span) Response {
	if out, ok := d.echoes.ProcessCommand(token, args); ok {
		span.SetAttributes(attribute.String("command.route", out.Source))
		if out.Err != nil {
			span.RecordError(out.Err)
			return d.respond(token, out.Err.Error(), KindError, "error")
		}
		return d.respond(token, out.Result.Message, KindSuccess, "echo")
	}

	v, ok := d.Lookup(token)
	if !ok {
		span.SetAttributes(attribute.String("command.route", "unknown"))
		if suggestion := d.suggest(token); suggestion != "" {
			return d.respond(token, fmt.Sprintf("Unknown command '%s'. Did you mean '%s'?", token, suggestion), KindError, "error")
		}
		return d.respond(token, fmt.Sprintf("Unknown command '%s'. Type 'help' for available commands.", token), KindError, "error")
	}
	span.SetAttributes(attribute.String("command.route", "verb"), attribute.String("command.verb", v.Name))
	return d.run(ctx, v, args)
}

func (d *Dispatcher) run(ctx context.Context, v *Verb, args []string) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Printf("commands: %s panicked: %v", v.Name, r)
			resp = d.respond(v.Name, "Something went wrong in the cosmic machinery. The paradox space hiccupped.", KindError, "error")
		}
	}()
	resp = v.Run(ctx, d, args)
	resp.Command = v.Name
	return resp
}

// suggest returns the closest verb or alias within edit distance 2.
func (d *Dispatcher) suggest(token string) string {
	names := make([]string, 0, len(d.verbs)+len(d.aliases))
	for n := range d.verbs {
		names = append(names, n)
	}
	for a := range d.aliases {
		names = append(names, a)
	}
	sort.Strings(names)

	best, bestDist := "", 3
	for _, n := range names {
		if dist := levenshtein(token, n); dist < bestDist {
			best, bestDist = n, dist
		}
	}
	return best
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
