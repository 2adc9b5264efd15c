package sequence

import "time"

const maxFlushSteps = 1 << 16

// ManualScheduler fires timers only when stepped. Useful for simulation and
// tests; not safe for concurrent use.
type ManualScheduler struct {
	timers []*manualTimer
}

type manualTimer struct {
	d       time.Duration
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() { t.stopped = true }

func (m *ManualScheduler) Every(d time.Duration, fn func()) Timer {
	t := &manualTimer{d: d, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

// Step fires every live timer once and returns how many fired.
func (m *ManualScheduler) Step() int {
	snapshot := append([]*manualTimer(nil), m.timers...)
	n := 0
	for _, t := range snapshot {
		if t.stopped {
			continue
		}
		t.fn()
		n++
	}
	m.prune()
	return n
}

// Flush steps until no timer is live and returns the number of steps.
func (m *ManualScheduler) Flush() int {
	steps := 0
	for m.Active() > 0 && steps < maxFlushSteps {
		m.Step()
		steps++
	}
	return steps
}

// Active returns the number of live timers.
func (m *ManualScheduler) Active() int {
	m.prune()
	return len(m.timers)
}

func (m *ManualScheduler) prune() {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.stopped {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(m.timers); i++ {
		m.timers[i] = nil
	}
	m.timers = live
}
