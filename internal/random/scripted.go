package random

import "sync"

// Scripted replays fixed values, for tests that assert exact output.
// Once a script is exhausted it keeps returning zero.
type Scripted struct {
	mu     sync.Mutex
	floats []float64
	ints   []int
}

// NewScripted returns a source that yields floats for Float64 and ints for
// Intn, in order. Ints are reduced modulo n.
func NewScripted(floats []float64, ints []int) *Scripted {
	return &Scripted{floats: floats, ints: ints}
}

func (s *Scripted) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.floats) == 0 {
		return 0
	}
	f := s.floats[0]
	s.floats = s.floats[1:]
	return f
}

func (s *Scripted) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || len(s.ints) == 0 {
		return 0
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	if v < 0 {
		v = -v
	}
	return v % n
}
