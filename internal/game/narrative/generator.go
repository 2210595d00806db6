// Package narrative produces flavor text from weighted templates and
// first-order word chains.
package narrative

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"sburbterm/internal/debug"
	"sburbterm/internal/game"
	"sburbterm/internal/random"
)

type Length string

const (
	Short  Length = "short"
	Medium Length = "medium"
	Long   Length = "long"
)

// SentenceCount maps a length to how many sentences are generated.
func SentenceCount(l Length) int {
	switch l {
	case Short:
		return 1
	case Long:
		return 3
	default:
		return 2
	}
}

const (
	// ContextCapacity bounds the rolling buffer of recent contexts.
	ContextCapacity = 50

	templateProbability = 0.7
	sentenceTokens      = 15
	responseTokens      = 25
)

// Corpus is everything the generator draws from.
type Corpus struct {
	Seeds  []Seed              `yaml:"seeds"`
	Chains map[string][]string `yaml:"chains"`
	Codex  Codex               `yaml:"codex"`
}

// Validate reports malformed data. The generator itself never fails on bad
// data; callers validate at load time.
func (c Corpus) Validate() error {
	for i, s := range c.Seeds {
		if strings.TrimSpace(s.Type) == "" {
			return fmt.Errorf("seed %d: missing type", i)
		}
		if strings.TrimSpace(s.Template) == "" {
			return fmt.Errorf("seed %d (%s): empty template", i, s.Type)
		}
	}
	for name, texts := range c.Chains {
		if len(texts) == 0 {
			return fmt.Errorf("chain %q: no texts", name)
		}
	}
	for _, rule := range c.Codex.Keywords {
		if _, ok := c.Chains[rule.Chain]; !ok {
			return fmt.Errorf("keyword rule references unknown chain %q", rule.Chain)
		}
	}
	return nil
}

// Generator is safe for concurrent use. Only the context buffer mutates
// after construction.
type Generator struct {
	seeds      []Seed
	chains     map[string]*chain
	chainNames []string
	codex      Codex
	rng        random.Source
	log        *debug.Logger

	mu      sync.Mutex
	context *game.History[string]
}

func New(corpus Corpus, rng random.Source, log *debug.Logger) *Generator {
	g := &Generator{
		seeds:   append([]Seed(nil), corpus.Seeds...),
		chains:  make(map[string]*chain, len(corpus.Chains)),
		codex:   corpus.Codex,
		rng:     rng,
		log:     log,
		context: game.NewHistory[string](ContextCapacity),
	}
	for name, texts := range corpus.Chains {
		g.chains[name] = buildChain(texts)
		g.chainNames = append(g.chainNames, name)
	}
	sort.Strings(g.chainNames)
	return g
}

// GenerateNarrative writes one to three sentences of flavor. Seeds are
// filtered by typ unless typ is empty or "general".
func (g *Generator) GenerateNarrative(context, typ string, length Length) string {
	g.remember(context)

	relevant := g.seedsFor(typ)
	count := SentenceCount(length)
	parts := make([]string, 0, count)
	for i := 0; i < count; i++ {
		if g.rng.Float64() < templateProbability && len(relevant) > 0 {
			parts = append(parts, fillTemplate(pickWeighted(relevant, g.rng), g.rng))
			continue
		}
		parts = append(parts, g.randomChainSentence())
	}

	out := PostProcess(strings.Join(parts, " "))
	if out == "" {
		g.log.Printf("narrative: empty output for type=%q, using fallback", typ)
		out = PostProcess(FallbackText)
	}
	return out
}

// GenerateFromChain walks the named chain for at most maxLength tokens.
func (g *Generator) GenerateFromChain(name string, maxLength int) string {
	c, ok := g.chains[name]
	if !ok {
		return FallbackText
	}
	return c.walk(g.rng, maxLength)
}

// ContextualResponse answers free text using the first keyword rule that
// matches any input word.
func (g *Generator) ContextualResponse(input string) string {
	words := strings.Fields(strings.ToLower(input))
	target := g.codex.DefaultChain
	if target == "" {
		target = DefaultResponseChain
	}
	for _, rule := range g.codex.Keywords {
		if containsAny(words, rule.Words) {
			target = rule.Chain
			break
		}
	}
	return PostProcess(g.GenerateFromChain(target, responseTokens))
}

func (g *Generator) GenerateClasspect() Classpect {
	classes := g.codex.classNames()
	if len(classes) == 0 || len(g.codex.Aspects) == 0 {
		return Classpect{}
	}
	class := random.Pick(g.rng, classes)
	aspect := random.Pick(g.rng, g.codex.Aspects)
	return g.codex.Describe(class, aspect)
}

func (g *Generator) GenerateLunarSway() string {
	if len(g.codex.LunarSways) == 0 {
		return game.LunarProspit
	}
	return random.Pick(g.rng, g.codex.LunarSways)
}

func (g *Generator) GenerateLandName() string {
	if len(g.codex.LandThemes) == 0 {
		return "Land of Mystery and Paradox"
	}
	return "Land of " + random.Pick(g.rng, g.codex.LandThemes)
}

// Codex exposes the lookup tables.
func (g *Generator) Codex() Codex {
	return g.codex
}

// ChainNames lists the loaded chains in sorted order.
func (g *Generator) ChainNames() []string {
	return append([]string(nil), g.chainNames...)
}

// Context returns the recent contexts, oldest first.
func (g *Generator) Context() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.context.GetEntries()
}

func (g *Generator) ClearContext() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.context.Clear()
}

func (g *Generator) remember(context string) {
	context = strings.TrimSpace(context)
	if context == "" {
		return
	}
	g.mu.Lock()
	g.context.Add(context)
	g.mu.Unlock()
}

func (g *Generator) seedsFor(typ string) []Seed {
	if typ == "" || typ == "general" {
		return g.seeds
	}
	var out []Seed
	for _, s := range g.seeds {
		if s.Type == typ {
			out = append(out, s)
		}
	}
	return out
}

func (g *Generator) randomChainSentence() string {
	if len(g.chainNames) == 0 {
		return FallbackText + ". "
	}
	name := random.Pick(g.rng, g.chainNames)
	return g.GenerateFromChain(name, sentenceTokens) + ". "
}

func containsAny(words, targets []string) bool {
	for _, w := range words {
		for _, t := range targets {
			if w == t {
				return true
			}
		}
	}
	return false
}
