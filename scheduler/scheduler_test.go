package scheduler_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-session/scheduler"
	"github.com/stretchr/testify/require"
)

const jitter = 200 * time.Millisecond

func TestTimerScheduler_FiresAfterDelay(t *testing.T) {
	s := scheduler.New()
	delay := 50 * time.Millisecond

	fired := make(chan time.Time, 1)
	start := time.Now()
	s.Arm(delay, func() { fired <- time.Now() })
	require.True(t, s.Pending())

	select {
	case at := <-fired:
		elapsed := at.Sub(start)
		require.GreaterOrEqual(t, elapsed, delay)
		require.Less(t, elapsed, delay+jitter)
	case <-time.After(delay + jitter):
		t.Fatal("callback did not fire")
	}
	require.Eventually(t, func() bool { return !s.Pending() }, time.Second, time.Millisecond)
}

func TestTimerScheduler_NonPositiveDelayFiresImmediately(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Minute} {
		s := scheduler.New()
		fired := make(chan struct{})
		s.Arm(d, func() { close(fired) })

		select {
		case <-fired:
		case <-time.After(jitter):
			t.Fatalf("callback armed with %v was skipped", d)
		}
	}
}

func TestTimerScheduler_ArmReplacesPending(t *testing.T) {
	s := scheduler.New()
	var first, second atomic.Int32

	s.Arm(20*time.Millisecond, func() { first.Add(1) })
	s.Arm(40*time.Millisecond, func() { second.Add(1) })

	require.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int32(0), first.Load())
	require.Equal(t, int32(1), second.Load())
}

func TestTimerScheduler_Cancel(t *testing.T) {
	s := scheduler.New()
	s.Cancel() // nothing armed

	var calls atomic.Int32
	s.Arm(10*time.Millisecond, func() { calls.Add(1) })
	s.Cancel()
	require.False(t, s.Pending())

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int32(0), calls.Load())
}
