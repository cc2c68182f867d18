package playback

import (
	"sync"
	"time"
)

// Task is a handle to a scheduled callback.
type Task interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the task before it fired.
	Stop() bool
}

// Scheduler runs a callback once after a delay.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) Task
}

// ClockScheduler schedules callbacks on the wall clock using time.AfterFunc.
type ClockScheduler struct{}

// Schedule implements Scheduler.
func (ClockScheduler) Schedule(d time.Duration, fn func()) Task {
	return time.AfterFunc(d, fn)
}

// ManualScheduler is a Scheduler whose tasks only run when Fire is called.
// It makes autoplay deterministic in tests and in step-by-step drivers.
type ManualScheduler struct {
	mu        sync.Mutex
	tasks     []*manualTask
	lastDelay time.Duration
}

type manualTask struct {
	owner   *ManualScheduler
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTask) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// NewManualScheduler creates an empty ManualScheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Schedule implements Scheduler.
func (s *ManualScheduler) Schedule(d time.Duration, fn func()) Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTask{owner: s, fn: fn}
	s.tasks = append(s.tasks, t)
	s.lastDelay = d
	return t
}

// Pending returns the number of tasks that are neither stopped nor fired.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// LastDelay returns the delay of the most recently scheduled task.
func (s *ManualScheduler) LastDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastDelay
}

// Fire runs the oldest active task on the calling goroutine.
// It reports false when no task is active.
func (s *ManualScheduler) Fire() bool {
	s.mu.Lock()
	var next *manualTask
	for _, t := range s.tasks {
		if !t.stopped && !t.fired {
			next = t
			break
		}
	}
	if next == nil {
		s.mu.Unlock()
		return false
	}
	next.fired = true
	s.compact()
	s.mu.Unlock()

	next.fn()
	return true
}

// FireAll keeps firing until no task is active or limit callbacks have run.
// It returns the number of callbacks run.
func (s *ManualScheduler) FireAll(limit int) int {
	n := 0
	for n < limit && s.Fire() {
		n++
	}
	return n
}

// compact drops finished tasks. Caller holds s.mu.
func (s *ManualScheduler) compact() {
	live := s.tasks[:0]
	for _, t := range s.tasks {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	s.tasks = live
}
