package playback

import (
	"sync"
	"time"
)

// Timer is a pending callback. Stop reports whether the call prevented the
// callback from running.
type Timer interface {
	Stop() bool
}

// Scheduler arms one-shot callbacks.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealScheduler schedules on the runtime timer.
type RealScheduler struct{}

// AfterFunc implements Scheduler.
func (RealScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManualScheduler runs callbacks only when told to. It lets callers step
// through autoplay deterministically, including callbacks that fire after
// they were cancelled.
type ManualScheduler struct {
	mu      sync.Mutex
	pending []*manualTimer
	delays  []time.Duration
}

type manualTimer struct {
	s       *ManualScheduler
	f       func()
	stopped bool
	fired   bool
}

// AfterFunc implements Scheduler.
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{s: s, f: f}
	s.pending = append(s.pending, t)
	s.delays = append(s.delays, d)
	return t
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Pending returns the number of armed, unstopped callbacks.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.pending {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Delays returns every delay requested so far, in order.
func (s *ManualScheduler) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// Fire runs the oldest armed callback and reports whether there was one.
func (s *ManualScheduler) Fire() bool {
	return s.fire(false)
}

// FireStale runs the oldest callback even if it was stopped, the way a
// timer that already expired races a concurrent Stop.
func (s *ManualScheduler) FireStale() bool {
	return s.fire(true)
}

func (s *ManualScheduler) fire(includeStopped bool) bool {
	s.mu.Lock()
	var next *manualTimer
	for _, t := range s.pending {
		if !t.fired && (includeStopped || !t.stopped) {
			next = t
			break
		}
	}
	if next == nil {
		s.mu.Unlock()
		return false
	}
	next.fired = true
	s.mu.Unlock()

	next.f()
	return true
}
