// Package scheduler provides the single-slot timer that drives credential renewal.
package scheduler

import (
	"sync"
	"time"
)

// Scheduler holds at most one pending callback.
type Scheduler interface {
	// Arm replaces any pending callback with fn, to run after d. A d <= 0 runs fn as soon as
	// possible instead of being skipped.
	Arm(d time.Duration, fn func())

	// Cancel drops the pending callback, if any.
	Cancel()
}

var _ Scheduler = (*TimerScheduler)(nil)

// TimerScheduler is a Scheduler backed by time.AfterFunc.
type TimerScheduler struct {
	mu    sync.Mutex
	timer *time.Timer
	// seq identifies the currently armed callback. A timer that already fired but lost the
	// race with Arm or Cancel sees a different seq and does nothing.
	seq uint64
}

func New() *TimerScheduler {
	return &TimerScheduler{}
}

func (s *TimerScheduler) Arm(d time.Duration, fn func()) {
	if d < 0 {
		d = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.seq++
	armed := s.seq
	s.timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		if armed != s.seq {
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.mu.Unlock()
		fn()
	})
}

func (s *TimerScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.seq++
}

// Pending reports whether a callback is armed and has not run yet.
func (s *TimerScheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

func (s *TimerScheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
