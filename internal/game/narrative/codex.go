package narrative

import (
	"sort"
	"strings"
)

// DefaultResponseChain answers free text that matches no keyword rule when
// the codex names no default.
const DefaultResponseChain = "confirmations"

// Codex holds the tables used for character and land flavor.
type Codex struct {
	// Classes maps a class name to a description containing {aspect}.
	Classes    map[string]string `yaml:"classes"`
	Aspects    []string          `yaml:"aspects"`
	LunarSways []string          `yaml:"lunarSways"`
	LandThemes []string          `yaml:"landThemes"`
	// Keywords route free-text input to a chain, first match wins.
	Keywords     []KeywordRule `yaml:"keywords"`
	DefaultChain string        `yaml:"defaultChain"`
}

type KeywordRule struct {
	Chain string   `yaml:"chain"`
	Words []string `yaml:"words"`
}

// Classpect is a player archetype, "<Class> of <Aspect>".
type Classpect struct {
	Class       string `json:"class"`
	Aspect      string `json:"aspect"`
	Full        string `json:"full"`
	Description string `json:"description"`
}

func (c Codex) classNames() []string {
	names := make([]string, 0, len(c.Classes))
	for name := range c.Classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe builds a Classpect for a class and aspect pair.
func (c Codex) Describe(class, aspect string) Classpect {
	desc := strings.ReplaceAll(c.Classes[class], "{aspect}", aspect)
	return Classpect{
		Class:       class,
		Aspect:      aspect,
		Full:        class + " of " + aspect,
		Description: desc,
	}
}

// ParseClasspect splits "Heir of Breath" into its parts.
func ParseClasspect(s string) (class, aspect string, ok bool) {
	class, aspect, ok = strings.Cut(strings.TrimSpace(s), " of ")
	if !ok || class == "" || aspect == "" {
		return "", "", false
	}
	return class, aspect, true
}
