package narrative

import (
	"sort"
	"strings"

	"sburbterm/internal/random"
)

// Seed is a weighted template with named placeholders such as {object}.
type Seed struct {
	Type      string              `yaml:"type" json:"type"`
	Weight    int                 `yaml:"weight" json:"weight"`
	Template  string              `yaml:"template" json:"template"`
	Variables map[string][]string `yaml:"variables" json:"variables"`
}

func (s Seed) weight() int {
	if s.Weight <= 0 {
		return 1
	}
	return s.Weight
}

// pickWeighted samples a seed with probability weight/total. A seed without
// a weight counts as 1.
func pickWeighted(seeds []Seed, src random.Source) Seed {
	total := 0
	for _, s := range seeds {
		total += s.weight()
	}
	r := src.Float64() * float64(total)
	for _, s := range seeds {
		r -= float64(s.weight())
		if r <= 0 {
			return s
		}
	}
	return seeds[len(seeds)-1]
}

// fillTemplate replaces every occurrence of each placeholder with a single
// uniformly chosen candidate. Placeholders with no candidates stay literal.
func fillTemplate(seed Seed, src random.Source) string {
	result := seed.Template
	names := make([]string, 0, len(seed.Variables))
	for name := range seed.Variables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		placeholder := "{" + name + "}"
		candidates := seed.Variables[name]
		if len(candidates) == 0 || !strings.Contains(result, placeholder) {
			continue
		}
		result = strings.ReplaceAll(result, placeholder, random.Pick(src, candidates))
	}
	return result
}
