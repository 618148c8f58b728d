package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"backend/internal/models"
	"backend/internal/service"
)

// Snapshotter periodically materializes the weekly and monthly leaderboards
// into historical records. The scoring engine itself has no scheduler; this
// is the out-of-band caller driving SaveSnapshot. Lazy rollover makes any
// cadence safe: each run snapshots the current window only.
type Snapshotter struct {
	service  *service.ScoreService
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
	running  atomic.Bool

	runs     atomic.Int64
	failures atomic.Int64
}

// NewSnapshotter creates a new snapshot scheduler
func NewSnapshotter(service *service.ScoreService, interval time.Duration) *Snapshotter {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Snapshotter{
		service:  service,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the snapshot loop
func (s *Snapshotter) Start(ctx context.Context) error {
	if s.running.Load() {
		return fmt.Errorf("snapshotter already running")
	}
	s.running.Store(true)

	log.Printf("Snapshotter started (interval: %v)", s.interval)

	s.wg.Add(1)
	go s.loop(ctx)
	return nil
}

// Stop gracefully stops the snapshot loop
func (s *Snapshotter) Stop() {
	if !s.running.Load() {
		return
	}
	s.running.Store(false)
	close(s.stopCh)
	s.wg.Wait()

	log.Printf("Snapshotter stopped (runs: %d, failures: %d)", s.runs.Load(), s.failures.Load())
}

// IsRunning returns whether the scheduler is currently running
func (s *Snapshotter) IsRunning() bool {
	return s.running.Load()
}

// RunOnce saves the weekly and monthly snapshots immediately
func (s *Snapshotter) RunOnce(ctx context.Context) {
	s.runs.Add(1)
	for _, period := range []models.PeriodType{models.PeriodWeekly, models.PeriodMonthly} {
		saved, err := s.service.SaveSnapshot(ctx, period)
		if err != nil {
			s.failures.Add(1)
			log.Printf("Snapshot run failed for %s: %v", period, err)
			continue
		}
		log.Printf("Snapshot run saved %d %s entries", saved, period)
	}
}

// loop is the main scheduler loop
func (s *Snapshotter) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-s.stopCh:
			return

		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}
