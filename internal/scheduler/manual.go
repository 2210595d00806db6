package scheduler

import (
	"sync"
	"time"
)

type manualTask struct {
	at    time.Time
	seq   uint64
	gen   uint64
	every time.Duration
	fn    func()
	dead  *bool
}

// Manual is a virtual clock and scheduler. Time only moves on Advance, which
// runs every task that falls due in timestamp order.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	gen   uint64
	seq   uint64
	tasks []*manualTask
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) After(d time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.push(&manualTask{at: m.now.Add(d), gen: m.gen, fn: fn})
}

func (m *Manual) Every(d time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	dead := false
	m.push(&manualTask{at: m.now.Add(d), gen: m.gen, every: d, fn: fn, dead: &dead})
	return func() {
		m.mu.Lock()
		dead = true
		m.mu.Unlock()
	}
}

func (m *Manual) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

func (m *Manual) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	kept := m.tasks[:0]
	for _, task := range m.tasks {
		if task.every > 0 {
			task.gen = m.gen
			kept = append(kept, task)
		}
	}
	m.tasks = kept
}

// Pending reports how many tasks are queued.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Advance moves the clock forward by d, firing due tasks outside the lock so
// callbacks may schedule more work.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		idx := -1
		for i, task := range m.tasks {
			if task.at.After(target) {
				continue
			}
			if idx < 0 || task.at.Before(m.tasks[idx].at) ||
				(task.at.Equal(m.tasks[idx].at) && task.seq < m.tasks[idx].seq) {
				idx = i
			}
		}
		if idx < 0 {
			m.now = target
			m.mu.Unlock()
			return
		}
		task := m.tasks[idx]
		m.tasks = append(m.tasks[:idx], m.tasks[idx+1:]...)
		m.now = task.at
		run := task.gen == m.gen && (task.dead == nil || !*task.dead)
		if task.every > 0 && run {
			m.push(&manualTask{at: task.at.Add(task.every), gen: task.gen, every: task.every, fn: task.fn, dead: task.dead})
		}
		m.mu.Unlock()

		if run {
			task.fn()
		}
	}
}

func (m *Manual) push(task *manualTask) {
	m.seq++
	task.seq = m.seq
	m.tasks = append(m.tasks, task)
}
