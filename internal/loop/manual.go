package loop

import (
	"sort"
	"sync"
	"time"
)

// Manual is a virtual-clock Scheduler. Callbacks run only inside Advance,
// on the caller's goroutine, in due-time order.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*manualTimer
}

var _ Scheduler = (*Manual)(nil)

// NewManual returns a manual scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

type manualTimer struct {
	m    *Manual
	due  time.Time
	seq  uint64
	f    func()
	done bool
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	t.m.remove(t)
	return true
}

// Now returns the virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc schedules f at Now()+d.
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, due: m.now.Add(d), seq: m.seq, f: f}
	m.timers = append(m.timers, t)
	sort.SliceStable(m.timers, func(i, j int) bool {
		a, b := m.timers[i], m.timers[j]
		if a.due.Equal(b.due) {
			return a.seq < b.seq
		}
		return a.due.Before(b.due)
	})
	return t
}

// Pending returns the number of scheduled callbacks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Advance moves the clock forward by d, running every callback that falls
// due, including ones scheduled by callbacks during the advance.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		if len(m.timers) == 0 || m.timers[0].due.After(target) {
			m.now = target
			m.mu.Unlock()
			return
		}
		t := m.timers[0]
		m.timers = m.timers[1:]
		t.done = true
		if t.due.After(m.now) {
			m.now = t.due
		}
		m.mu.Unlock()
		t.f()
	}
}

// Flush runs callbacks until none remain or limit callbacks have run, and
// reports how many ran.
func (m *Manual) Flush(limit int) int {
	n := 0
	for n < limit {
		m.mu.Lock()
		if len(m.timers) == 0 {
			m.mu.Unlock()
			return n
		}
		next := m.timers[0].due.Sub(m.now)
		m.mu.Unlock()
		m.step(next)
		n++
	}
	return n
}

// step runs exactly the earliest timer after moving the clock by d.
func (m *Manual) step(d time.Duration) {
	m.mu.Lock()
	t := m.timers[0]
	m.timers = m.timers[1:]
	t.done = true
	m.now = m.now.Add(d)
	m.mu.Unlock()
	t.f()
}

func (m *Manual) remove(t *manualTimer) {
	for i, x := range m.timers {
		if x == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}
