package clock

import (
	"sort"
	"time"

	"github.com/aretw0/reel/pkg/ports"
)

// Real schedules callbacks with time.AfterFunc. Callbacks run on their own goroutine.
type Real struct{}

func (Real) AfterFunc(d time.Duration, f func()) ports.Timer {
	return time.AfterFunc(d, f)
}

// Manual is a virtual clock. Timers fire synchronously, on the caller's
// goroutine, when Advance moves the clock past their deadline.
// It is not safe for concurrent use.
type Manual struct {
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	deadline time.Duration
	seq      int
	fn       func()
	stopped  bool
	fired    bool
}

func (t *manualTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// NewManual creates a virtual clock at time zero.
func NewManual() *Manual {
	return &Manual{}
}

// AfterFunc implements ports.Scheduler.
func (m *Manual) AfterFunc(d time.Duration, f func()) ports.Timer {
	m.seq++
	t := &manualTimer{deadline: m.now + d, seq: m.seq, fn: f}
	m.timers = append(m.timers, t)
	return t
}

// Now returns the virtual time elapsed since creation.
func (m *Manual) Now() time.Duration {
	return m.now
}

// Advance moves the clock forward by d, firing every due timer in deadline order.
// Timers scheduled by a firing callback are honored if they fall inside the window.
func (m *Manual) Advance(d time.Duration) {
	end := m.now + d
	for {
		next := m.nextDue(end)
		if next == nil {
			break
		}
		m.now = next.deadline
		next.fired = true
		next.fn()
	}
	m.now = end
	m.compact()
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (m *Manual) Pending() int {
	n := 0
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (m *Manual) nextDue(end time.Duration) *manualTimer {
	var due []*manualTimer
	for _, t := range m.timers {
		if !t.stopped && !t.fired && t.deadline <= end {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].deadline != due[j].deadline {
			return due[i].deadline < due[j].deadline
		}
		return due[i].seq < due[j].seq
	})
	return due[0]
}

func (m *Manual) compact() {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	m.timers = live
}
