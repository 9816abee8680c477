// Package clocktest provides a deterministic clock.Scheduler for tests.
package clocktest

import (
	"sort"
	"sync"
	"time"
)

type task struct {
	id     int
	due    time.Duration
	period time.Duration
	fn     func()
	done   bool
}

// Manual is a Scheduler whose time only moves when Advance is called.
// Callbacks run synchronously on the caller's goroutine, in due order.
type Manual struct {
	mu    sync.Mutex
	now   time.Duration
	next  int
	tasks []*task
}

// New returns a Manual scheduler at t=0.
func New() *Manual { return &Manual{} }

func (m *Manual) add(d, period time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	t := &task{id: m.next, due: m.now + d, period: period, fn: fn}
	m.tasks = append(m.tasks, t)
	return func() {
		m.mu.Lock()
		t.done = true
		m.mu.Unlock()
	}
}

// Every schedules fn every d.
func (m *Manual) Every(d time.Duration, fn func()) func() { return m.add(d, d, fn) }

// After schedules fn once after d.
func (m *Manual) After(d time.Duration, fn func()) func() { return m.add(d, 0, fn) }

// Advance moves time forward by d, firing every callback that falls due.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()
	for {
		m.mu.Lock()
		t := m.nextDue(target)
		if t == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = t.due
		if t.period > 0 {
			t.due += t.period
		} else {
			t.done = true
		}
		fn := t.fn
		m.mu.Unlock()
		fn()
	}
}

// nextDue returns the earliest live task due at or before target. Caller holds mu.
func (m *Manual) nextDue(target time.Duration) *task {
	live := m.tasks[:0]
	for _, t := range m.tasks {
		if !t.done {
			live = append(live, t)
		}
	}
	m.tasks = live
	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].due == m.tasks[j].due {
			return m.tasks[i].id < m.tasks[j].id
		}
		return m.tasks[i].due < m.tasks[j].due
	})
	if len(m.tasks) == 0 || m.tasks[0].due > target {
		return nil
	}
	return m.tasks[0]
}

// Pending returns the number of scheduled callbacks that have not been
// cancelled or fired.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.done {
			n++
		}
	}
	return n
}

// Now returns the scheduler's elapsed time.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}
