package shorty

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	mu    sync.Mutex
	calls int
	times []time.Time
}

func (s *countingSweeper) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.times = append(s.times, now)
	return 0
}

func (s *countingSweeper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestSchedulerSweepsImmediately(t *testing.T) {
	target := &countingSweeper{}
	s := NewScheduler(target, time.Hour, nil, nil)
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool { return target.count() == 1 }, time.Second, time.Millisecond)
}

func TestSchedulerSweepsPeriodically(t *testing.T) {
	target := &countingSweeper{}
	s := NewScheduler(target, 5*time.Millisecond, nil, nil)
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool { return target.count() >= 4 }, time.Second, time.Millisecond)
}

func TestSchedulerUsesClock(t *testing.T) {
	clock := newFakeClock()
	target := &countingSweeper{}
	s := NewScheduler(target, time.Hour, clock.Now, nil)
	s.Start()

	require.Eventually(t, func() bool { return target.count() == 1 }, time.Second, time.Millisecond)
	s.Stop()

	target.mu.Lock()
	defer target.mu.Unlock()
	assert.Equal(t, clock.Now(), target.times[0])
}

func TestSchedulerStop(t *testing.T) {
	target := &countingSweeper{}
	s := NewScheduler(target, 5*time.Millisecond, nil, nil)
	s.Start()
	s.Start()

	require.Eventually(t, func() bool { return target.count() >= 2 }, time.Second, time.Millisecond)

	s.Stop()
	s.Stop()

	stopped := target.count()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, target.count())
}

func TestSchedulerStopBeforeStart(t *testing.T) {
	target := &countingSweeper{}
	s := NewScheduler(target, 5*time.Millisecond, nil, nil)
	s.Stop()
	s.Start()

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, target.count())
}

func TestSchedulerDisabled(t *testing.T) {
	target := &countingSweeper{}
	s := NewScheduler(target, 0, nil, nil)
	s.Start()
	defer s.Stop()

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, target.count())
}
