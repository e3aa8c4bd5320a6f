package schedule

import (
	"sync"
	"time"

	"github.com/samber/lo"
)

// Manual is a Scheduler whose clock only moves when Advance is called.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	seq     int
	pending []*manualTimer
}

type manualTimer struct {
	owner *Manual
	at    time.Time
	seq   int
	f     func()
	done  bool
}

// NewManual returns a manual scheduler starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTimer{owner: m, at: m.now.Add(d), seq: m.seq, f: f}
	m.pending = append(m.pending, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()

	if t.done {
		return false
	}
	t.done = true
	t.owner.removeLocked(t)
	return true
}

func (m *Manual) removeLocked(t *manualTimer) {
	for i, p := range m.pending {
		if p == t {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}

// Pending returns the number of timers that have not fired or been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Advance moves the clock forward by d, running every timer that falls due in
// deadline order. Timers scheduled by fired callbacks run too if they fall
// within the window. Callbacks run without the scheduler lock held.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	deadline := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDueLocked(deadline)
		if next == nil {
			m.now = deadline
			m.mu.Unlock()
			return
		}

		next.done = true
		m.removeLocked(next)
		if next.at.After(m.now) {
			m.now = next.at
		}
		m.mu.Unlock()

		next.f()
	}
}

func (m *Manual) nextDueLocked(deadline time.Time) *manualTimer {
	due := lo.Filter(m.pending, func(t *manualTimer, _ int) bool {
		return !t.at.After(deadline)
	})
	if len(due) == 0 {
		return nil
	}

	return lo.MinBy(due, func(a, b *manualTimer) bool {
		if a.at.Equal(b.at) {
			return a.seq < b.seq
		}
		return a.at.Before(b.at)
	})
}
