// Package clock schedules the deferred callbacks a game session depends on.
//
// Clock abstracts time.AfterFunc so that the engine can run against the wall
// clock in production and against a Manual clock in tests, where time only
// moves when the test advances it.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Timer is a handle to a scheduled callback.
type Timer interface {
	// Stop cancels the callback. It reports whether the call stopped the
	// timer before it fired.
	Stop() bool
}

// Clock schedules one-shot callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Manual is a Clock whose time only moves through Advance.
// Callbacks run on the goroutine calling Advance, in due order.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	clock *Manual
	due   time.Time
	seq   int
	f     func()
	done  bool
}

// NewManual creates a manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc schedules f to run once the clock has advanced by d.
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTimer{
		clock: m,
		due:   m.now.Add(d),
		seq:   m.seq,
		f:     f,
	}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves the clock forward by d, firing every callback that falls due.
// Callbacks scheduled by other callbacks fire too if they fall inside the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDueLocked(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		next.done = true
		m.now = next.due
		m.removeLocked(next)
		m.mu.Unlock()

		next.f()
	}
}

// Pending returns the number of scheduled callbacks that have not fired or
// been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func (m *Manual) nextDueLocked(target time.Time) *manualTimer {
	if len(m.timers) == 0 {
		return nil
	}
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].due.Equal(m.timers[j].due) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].due.Before(m.timers[j].due)
	})
	if m.timers[0].due.After(target) {
		return nil
	}
	return m.timers[0]
}

func (m *Manual) removeLocked(t *manualTimer) {
	for i, other := range m.timers {
		if other == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

// Stop cancels the timer if it has not fired yet.
func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.done {
		return false
	}
	t.done = true
	t.clock.removeLocked(t)
	return true
}
