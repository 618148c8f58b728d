package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"backend/internal/models"
	"backend/internal/repository"
)

// RefreshTask asks the pool to recompute one period's leaderboard and
// rewrite its Redis cache entry
type RefreshTask struct {
	Period models.PeriodType
}

// LeaderboardSource computes a live leaderboard from the ledger.
// Implemented by service.ScoreService; kept as an interface so the pool
// does not depend on the service layer.
type LeaderboardSource interface {
	Leaderboard(ctx context.Context, period models.PeriodType, limit int) (*models.LeaderboardResponse, error)
}

// WorkerPool re-warms the leaderboard cache asynchronously after scoring
// mutations. Refreshes are best-effort: under backpressure tasks are
// dropped and the next read repopulates the cache instead.
type WorkerPool struct {
	jobs        chan RefreshTask
	workerCount int
	source      LeaderboardSource
	cache       *repository.RedisRepository
	cacheTTL    time.Duration
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	metrics     *PoolMetrics
}

// PoolMetrics tracks worker pool performance
type PoolMetrics struct {
	mu              sync.RWMutex
	processed       int64
	failed          int64
	backpressure    int64
	totalProcessing time.Duration
}

// NewWorkerPool creates a new cache-refresh pool
func NewWorkerPool(workerCount, queueSize int, source LeaderboardSource, cache *repository.RedisRepository, cacheTTL time.Duration) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		jobs:        make(chan RefreshTask, queueSize),
		workerCount: workerCount,
		source:      source,
		cache:       cache,
		cacheTTL:    cacheTTL,
		ctx:         ctx,
		cancel:      cancel,
		metrics:     &PoolMetrics{},
	}
}

// Start initializes and starts all worker goroutines
func (wp *WorkerPool) Start() {
	log.Printf("Starting cache-refresh pool with %d workers and queue size %d", wp.workerCount, cap(wp.jobs))

	for i := 1; i <= wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// worker is the main worker loop that processes refresh tasks
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-wp.ctx.Done():
			return

		case task, ok := <-wp.jobs:
			if !ok {
				return
			}
			wp.processTask(id, task)
		}
	}
}

// processTask recomputes one leaderboard and rewrites its cache entry
func (wp *WorkerPool) processTask(workerID int, task RefreshTask) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Worker #%d panic recovered: %v (period: %s)", workerID, r, task.Period)
			wp.metrics.incrementFailed()
		}
	}()

	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	response, err := wp.source.Leaderboard(ctx, task.Period, models.DefaultLeaderboardLimit)
	if err != nil {
		log.Printf("Worker #%d failed to compute %s leaderboard: %v", workerID, task.Period, err)
		wp.metrics.incrementFailed()
		return
	}

	payload, err := json.Marshal(response)
	if err != nil {
		log.Printf("Worker #%d failed to marshal %s leaderboard: %v", workerID, task.Period, err)
		wp.metrics.incrementFailed()
		return
	}

	if err := wp.cache.StoreLeaderboard(ctx, task.Period, payload, wp.cacheTTL); err != nil {
		log.Printf("Worker #%d failed to cache %s leaderboard: %v", workerID, task.Period, err)
		wp.metrics.incrementFailed()
		return
	}

	wp.metrics.recordSuccess(time.Since(startTime))
}

// Submit attempts to queue a refresh with backpressure handling
func (wp *WorkerPool) Submit(task RefreshTask) error {
	select {
	case wp.jobs <- task:
		return nil

	default:
		// Queue full - drop the refresh; the cache TTL bounds staleness
		wp.metrics.incrementBackpressure()
		return fmt.Errorf("cache-refresh queue full (backpressure)")
	}
}

// Shutdown gracefully stops the worker pool
func (wp *WorkerPool) Shutdown(timeout time.Duration) error {
	log.Printf("Shutting down cache-refresh pool...")

	close(wp.jobs)

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.printMetrics()
		return nil

	case <-time.After(timeout):
		wp.cancel()
		return fmt.Errorf("shutdown timeout exceeded")
	}
}

// GetMetrics returns a snapshot of the pool metrics
func (wp *WorkerPool) GetMetrics() map[string]interface{} {
	wp.metrics.mu.RLock()
	defer wp.metrics.mu.RUnlock()

	avgProcessing := time.Duration(0)
	if wp.metrics.processed > 0 {
		avgProcessing = wp.metrics.totalProcessing / time.Duration(wp.metrics.processed)
	}

	return map[string]interface{}{
		"processed":           wp.metrics.processed,
		"failed":              wp.metrics.failed,
		"backpressure_events": wp.metrics.backpressure,
		"avg_processing_time": avgProcessing.String(),
		"queue_utilization":   fmt.Sprintf("%d/%d", len(wp.jobs), cap(wp.jobs)),
	}
}

// printMetrics logs the final metrics
func (wp *WorkerPool) printMetrics() {
	metrics := wp.GetMetrics()
	log.Printf("Cache-refresh pool metrics: processed=%v failed=%v backpressure=%v avg=%v",
		metrics["processed"], metrics["failed"], metrics["backpressure_events"], metrics["avg_processing_time"])
}

func (pm *PoolMetrics) recordSuccess(duration time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.processed++
	pm.totalProcessing += duration
}

func (pm *PoolMetrics) incrementFailed() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.failed++
}

func (pm *PoolMetrics) incrementBackpressure() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.backpressure++
}
