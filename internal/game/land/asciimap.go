package land

import (
	"strings"

	"sburbterm/internal/random"
)

// Map is a grid of glyph rows. Rows are strings so the map serializes as
// plain text lines; indexing is by rune.
type Map []string

func (m Map) String() string {
	return strings.Join(m, "\n")
}

func (m Map) Height() int {
	return len(m)
}

func (m Map) Width() int {
	if len(m) == 0 {
		return 0
	}
	return len([]rune(m[0]))
}

func (m Map) In(x, y int) bool {
	return y >= 0 && y < len(m) && x >= 0 && x < len([]rune(m[y]))
}

// At returns the glyph at x, y. Callers check In first.
func (m Map) At(x, y int) rune {
	return []rune(m[y])[x]
}

func (m Map) set(x, y int, r rune) {
	row := []rune(m[y])
	row[x] = r
	m[y] = string(row)
}

// Section returns the rows [y, y+h) clipped to [x, x+w).
func (m Map) Section(x, y, w, h int) string {
	var rows []string
	for row := max(0, y); row < min(len(m), y+h); row++ {
		runes := []rune(m[row])
		from, to := max(0, x), min(len(runes), x+w)
		if from >= to {
			rows = append(rows, "")
			continue
		}
		rows = append(rows, string(runes[from:to]))
	}
	return strings.Join(rows, "\n")
}

type grid [][]rune

func newGrid(w, h int) grid {
	g := make(grid, h)
	for y := range g {
		g[y] = []rune(strings.Repeat(string(emptySymbol), w))
	}
	return g
}

func (g grid) placeIfEmpty(x, y int, r rune) {
	if y >= 0 && y < len(g) && x >= 0 && x < len(g[y]) && g[y][x] == emptySymbol {
		g[y][x] = r
	}
}

func (g grid) toMap() Map {
	m := make(Map, len(g))
	for y, row := range g {
		m[y] = string(row)
	}
	return m
}

func (c Catalog) symbol(terrain string) rune {
	if s, ok := c.Symbols[terrain]; ok {
		if r := []rune(s); len(r) == 1 {
			return r[0]
		}
	}
	return '#'
}

// generateMap scatters 3-7 glyphs per terrain tag on free cells, lays three
// horizontal and two vertical paths, then marks the entry point.
func generateMap(c Catalog, t Template, rng random.Source) Map {
	g := newGrid(MapWidth, MapHeight)
	for _, terrain := range t.Terrain {
		sym := c.symbol(terrain)
		n := random.Between(rng, 3, 7)
		for i := 0; i < n; i++ {
			g.placeIfEmpty(rng.Intn(MapWidth), rng.Intn(MapHeight), sym)
		}
	}

	for i := 0; i < 3; i++ {
		y := rng.Intn(MapHeight)
		start := rng.Intn(MapWidth / 3)
		end := start + rng.Intn(MapWidth/2) + 5
		for x := start; x < min(end, MapWidth); x++ {
			g.placeIfEmpty(x, y, '-')
		}
	}
	for i := 0; i < 2; i++ {
		x := rng.Intn(MapWidth)
		start := rng.Intn(MapHeight / 3)
		end := start + rng.Intn(MapHeight/2) + 3
		for y := start; y < min(end, MapHeight); y++ {
			g.placeIfEmpty(x, y, '|')
		}
	}

	g[MapHeight-2][MapWidth/2] = PlayerSymbol
	return g.toMap()
}
