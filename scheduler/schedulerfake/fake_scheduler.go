package schedulerfake

import (
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-session/scheduler"
)

var _ scheduler.Scheduler = (*FakeScheduler)(nil)

// FakeScheduler records what was armed and only runs callbacks when Fire is called.
type FakeScheduler struct {
	mu      sync.Mutex
	fn      func()
	delay   time.Duration
	armed   bool
	armings int
}

func NewFakeScheduler() *FakeScheduler {
	return &FakeScheduler{}
}

func (s *FakeScheduler) Arm(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn = fn
	s.delay = d
	s.armed = true
	s.armings++
}

func (s *FakeScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn = nil
	s.armed = false
}

// Armed reports whether a callback is pending.
func (s *FakeScheduler) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed
}

// Delay returns the delay of the pending callback.
func (s *FakeScheduler) Delay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delay
}

// Armings counts every call to Arm.
func (s *FakeScheduler) Armings() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armings
}

// Fire runs the pending callback on the calling goroutine. It returns false when nothing was
// armed.
func (s *FakeScheduler) Fire() bool {
	s.mu.Lock()
	fn := s.fn
	s.fn = nil
	s.armed = false
	s.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}
