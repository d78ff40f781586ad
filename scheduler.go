package shorty

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper removes expired entries as of now and reports how many it removed.
type Sweeper interface {
	Sweep(now time.Time) int
}

// Scheduler calls a Sweeper on a fixed interval from its own goroutine,
// independent of request traffic.
type Scheduler struct {
	target   Sweeper
	interval time.Duration
	clock    func() time.Time
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler returns a stopped scheduler. A nil clock means time.Now, a nil
// logger means slog.Default().
func NewScheduler(target Sweeper, interval time.Duration, clock func() time.Time, logger *slog.Logger) *Scheduler {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		target:   target,
		interval: interval,
		clock:    clock,
		logger:   logger.With(slog.String("component", "scheduler")),
	}
}

// Start launches the sweep loop. The first sweep runs immediately. Calling
// Start on a running or stopped scheduler does nothing, and so does a
// non-positive interval.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.interval <= 0 {
		return
	}
	s.started = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("eviction scheduler started", slog.Duration("interval", s.interval))
}

// Stop ends the sweep loop and waits for it to exit. Stop is safe to call
// multiple times, and before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		// never start after a Stop
		s.started = true
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	// cancel outside the lock; a sweep in progress finishes first
	cancel()
	s.wg.Wait()

	s.logger.Info("eviction scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	s.sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Scheduler) sweep() {
	start := time.Now()
	evicted := s.target.Sweep(s.clock())
	s.logger.Debug("sweep finished",
		slog.Int("evicted", evicted),
		slog.Duration("took", time.Since(start)),
	)
}
