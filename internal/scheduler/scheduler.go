// Package scheduler runs deferred callbacks (choice follow-ups) and periodic
// ticks (autosave). Tasks are fire-and-forget and unordered relative to each
// other; each task remembers the generation it was scheduled in and is
// dropped if the scheduler was reset before it fired.
package scheduler

import (
	"sync"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Scheduler schedules deferred and periodic work.
type Scheduler interface {
	After(d time.Duration, fn func())
	Every(d time.Duration, fn func()) (stop func())
	Generation() uint64
	Reset()
}

// Timers is the production scheduler backed by time.AfterFunc.
type Timers struct {
	mu      sync.Mutex
	gen     uint64
	pending map[*time.Timer]struct{}
	tickers map[chan struct{}]struct{}
	closed  bool
}

func NewTimers() *Timers {
	return &Timers{
		pending: make(map[*time.Timer]struct{}),
		tickers: make(map[chan struct{}]struct{}),
	}
}

func (t *Timers) After(d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	gen := t.gen
	var timer *time.Timer
	timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		delete(t.pending, timer)
		stale := gen != t.gen || t.closed
		t.mu.Unlock()
		if stale {
			return
		}
		fn()
	})
	t.pending[timer] = struct{}{}
}

func (t *Timers) Every(d time.Duration, fn func()) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	done := make(chan struct{})
	if t.closed {
		close(done)
		return func() {}
	}
	t.tickers[done] = struct{}{}

	ticker := time.NewTicker(d)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			if _, ok := t.tickers[done]; ok {
				delete(t.tickers, done)
				close(done)
			}
			t.mu.Unlock()
		})
	}
}

func (t *Timers) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen
}

// Reset invalidates every pending one-shot task. Periodic ticks keep running.
func (t *Timers) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	for timer := range t.pending {
		timer.Stop()
	}
	t.pending = make(map[*time.Timer]struct{})
}

// Close stops all pending and periodic work.
func (t *Timers) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.gen++
	for timer := range t.pending {
		timer.Stop()
	}
	for done := range t.tickers {
		close(done)
	}
	t.pending = nil
	t.tickers = nil
}
