package choice

import "sburbterm/internal/game"

// Situation is what dynamic rules inspect.
type Situation struct {
	Player  game.Player
	Context map[string]any
}

// Rule builds a choice when its predicate holds. Rules are evaluated in
// registration order and the first match wins.
type Rule struct {
	ID    string
	When  func(e *Engine, s Situation) bool
	Build func(s Situation) Definition
}

func builtinRules() []Rule {
	return []Rule{
		{
			ID: "advanced_training",
			When: func(e *Engine, s Situation) bool {
				return s.Player.Level >= 5 && !e.HasChosen("advanced_training")
			},
			Build: func(Situation) Definition {
				return Definition{
					ID:          "advanced_training",
					Title:       "Advanced Training Opportunity",
					Description: "Your growing power attracts the attention of a mysterious mentor.",
					Options: []Option{
						{
							Text: "Accept the challenging training",
							Consequences: []Consequence{
								StatDelta{Stat: game.StatExperience, Delta: 50},
								StatDelta{Stat: game.StatHP, Delta: -20},
								Unlock{Path: "advanced_abilities"},
							},
						},
						{
							Text:         "Politely decline and continue on your own",
							Consequences: []Consequence{StatDelta{Stat: game.StatExperience, Delta: 10}},
						},
					},
				}
			},
		},
	}
}

// AddRule appends a dynamic rule after the existing ones.
func (e *Engine) AddRule(r Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, r)
}

// OfferDynamic presents the first rule-built choice that applies, unless a
// choice with that id is already pending. The engine calls it shortly after
// every level-up.
func (e *Engine) OfferDynamic(ctx map[string]any) (Choice, bool) {
	def, ok := e.GenerateDynamic(ctx)
	if !ok {
		return Choice{}, false
	}
	if _, pending := e.Get(def.ID); pending {
		return Choice{}, false
	}
	c, err := e.Present(def.ID, def)
	if err != nil {
		e.log.Printf("choice: dynamic %s rejected: %v", def.ID, err)
		return Choice{}, false
	}
	return c, true
}

// GenerateDynamic returns the first rule-built choice whose predicate holds
// for the current player. The returned definition carries its id.
func (e *Engine) GenerateDynamic(ctx map[string]any) (Definition, bool) {
	s := Situation{Context: ctx}
	if e.world != nil {
		s.Player = e.world.Player()
	}
	e.mu.Lock()
	rules := append([]Rule(nil), e.rules...)
	e.mu.Unlock()

	for _, r := range rules {
		if r.When(e, s) {
			def := r.Build(s)
			if def.ID == "" {
				def.ID = r.ID
			}
			return def, true
		}
	}
	return Definition{}, false
}
