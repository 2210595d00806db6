// Package random provides the single injectable randomness source used by
// the engine. Nothing in the game reads ambient global randomness.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"
)

// Source is the subset of *rand.Rand the engine depends on.
type Source interface {
	Intn(n int) int
	Float64() float64
}

// Locked is a *rand.Rand safe for use from scheduler goroutines.
type Locked struct {
	mu   sync.Mutex
	r    *rand.Rand
	seed int64
}

// New creates a seeded source. A zero seed draws one from crypto/rand.
func New(seed int64) *Locked {
	if seed == 0 {
		s, err := NewSeed()
		if err != nil {
			s = 1
		}
		seed = s
	}
	return &Locked{r: rand.New(rand.NewSource(seed)), seed: seed}
}

// Seed returns the seed the source was created with.
func (l *Locked) Seed() int64 {
	return l.seed
}

func (l *Locked) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func (l *Locked) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// Pick returns a uniformly chosen element. It panics on an empty slice, so
// callers guard length first.
func Pick[T any](src Source, items []T) T {
	return items[src.Intn(len(items))]
}

// Between returns an integer in [lo, hi].
func Between(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.Intn(hi-lo+1)
}
