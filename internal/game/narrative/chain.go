package narrative

import (
	"strings"

	"sburbterm/internal/random"
)

// FallbackText is returned whenever a chain cannot produce anything.
const FallbackText = "the narrative flows in mysterious ways"

// chain is a first-order successor map. keys keeps first-seen order so a
// seeded source always walks the same path.
type chain struct {
	next map[string][]string
	keys []string
}

func buildChain(texts []string) *chain {
	c := &chain{next: make(map[string][]string)}
	for _, text := range texts {
		words := strings.Fields(strings.ToLower(text))
		for i := 0; i < len(words)-1; i++ {
			w := words[i]
			if _, ok := c.next[w]; !ok {
				c.keys = append(c.keys, w)
			}
			c.next[w] = append(c.next[w], words[i+1])
		}
	}
	return c
}

func (c *chain) walk(src random.Source, maxLength int) string {
	if c == nil || len(c.keys) == 0 || maxLength < 1 {
		return FallbackText
	}
	current := random.Pick(src, c.keys)
	result := []string{current}
	for i := 0; i < maxLength-1; i++ {
		successors := c.next[current]
		if len(successors) == 0 {
			break
		}
		current = random.Pick(src, successors)
		result = append(result, current)
	}
	return strings.Join(result, " ")
}
