package retry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/flowsend/webhook-engine/internal/adapter"
	"github.com/flowsend/webhook-engine/internal/logger"
	"github.com/flowsend/webhook-engine/internal/store"
	"github.com/flowsend/webhook-engine/internal/store/schema"
)

//go:generate mockgen -source=worker.go -destination=../mocks/deliverer.go -package=mocks -mock_names=Deliverer=MockDeliverer

// Result is the outcome of one redelivery attempt
type Result struct {
	// Success means the endpoint acknowledged the delivery
	Success bool
	// Retryable is meaningful only when Success is false and reports
	// whether another attempt could still succeed
	Retryable bool
	// StatusCode is the HTTP response status, if a response was received
	StatusCode *int
	// Error is a short description of the failure
	Error string
}

// Deliverer performs a redelivery attempt for a claimed retry entry
type Deliverer interface {
	Redeliver(ctx context.Context, entry *schema.RetryEntry) Result
}

// WorkerConfig holds configuration for the retry worker
type WorkerConfig struct {
	BatchSize      int           // Entries to claim per cycle
	WorkerPoolSize int           // Concurrent redeliveries
	PollEvery      time.Duration // Time to sleep between cycles
	ClaimLease     time.Duration // Processing entries older than this are reclaimed
}

func (c WorkerConfig) normalize() WorkerConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.WorkerPoolSize <= 0 {
		c.WorkerPoolSize = 20
	}
	if c.PollEvery <= 0 {
		c.PollEvery = 15 * time.Second
	}
	if c.ClaimLease <= 0 {
		c.ClaimLease = 5 * time.Minute
	}
	return c
}

// Worker drains the retry queue: it claims due entries in batches, redelivers
// them through the deliverer, and records each outcome.
type Worker struct {
	config    WorkerConfig
	store     store.Store
	deliverer Deliverer
	schedule  Schedule
	clock     adapter.Clock
	pool      pond.Pool
	running   atomic.Bool
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

// NewWorker creates a retry queue worker
func NewWorker(config WorkerConfig, st store.Store, deliverer Deliverer, schedule Schedule, clock adapter.Clock) *Worker {
	if clock == nil {
		clock = adapter.NewClock()
	}
	return &Worker{
		config:    config.normalize(),
		store:     st,
		deliverer: deliverer,
		schedule:  schedule.Normalize(),
		clock:     clock,
		stopChan:  make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Name returns the worker's name
func (w *Worker) Name() string {
	return "retry-worker"
}

// Start begins the worker's main loop, stopping when the context is canceled
// or Stop is called
func (w *Worker) Start(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return fmt.Errorf("worker already running")
	}
	defer func() {
		w.running.Store(false)
		close(w.stoppedCh)
	}()

	logger.InfoCtx(ctx, "Starting retry worker",
		zap.Int("batch_size", w.config.BatchSize),
		zap.Int("worker_pool_size", w.config.WorkerPoolSize),
		zap.Duration("poll_every", w.config.PollEvery),
		zap.Duration("claim_lease", w.config.ClaimLease),
	)

	w.pool = pond.NewPool(
		w.config.WorkerPoolSize,
		pond.WithQueueSize(w.config.BatchSize),
		pond.WithContext(ctx),
	)

	for {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Retry worker stopping due to context cancellation", zap.Error(ctx.Err()))
			w.cleanup()
			return nil
		case <-w.stopChan:
			logger.InfoCtx(ctx, "Retry worker stop requested")
			w.cleanup()
			return nil
		default:
			if err := w.runCycle(ctx); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.ErrorCtx(ctx, err)
				}
			}
		}
	}
}

// cleanup stops the worker pool and waits for in-flight redeliveries
func (w *Worker) cleanup() {
	if w.pool != nil {
		w.pool.StopAndWait()
	}
}

// Stop gracefully stops the worker with timeout support
func (w *Worker) Stop(ctx context.Context) error {
	if !w.running.CompareAndSwap(true, false) {
		return nil // Already stopped
	}

	logger.InfoCtx(ctx, "Stopping retry worker")
	close(w.stopChan)

	select {
	case <-w.stoppedCh:
		logger.InfoCtx(ctx, "Retry worker stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Retry worker stop interrupted by context timeout")
		return ctx.Err()
	}
}

// runCycle runs a single claim-and-redeliver cycle
func (w *Worker) runCycle(ctx context.Context) error {
	startTime := w.clock.Now()

	// Return entries orphaned by crashed workers to the queue first so they
	// are eligible for this cycle's claim
	released, err := w.store.ReleaseStaleClaims(ctx, startTime.Add(-w.config.ClaimLease))
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to release stale claims: %w", err))
	} else if released > 0 {
		logger.WarnCtx(ctx, "Released stale retry claims", zap.Int64("count", released))
	}

	entries, err := w.store.ClaimDueRetryEntries(ctx, startTime, w.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to claim due retry entries: %w", err)
	}

	if len(entries) == 0 {
		if !w.sleep(ctx, w.config.PollEvery) {
			return ctx.Err()
		}
		return nil
	}

	logger.InfoCtx(ctx, "Claimed retry entries", zap.Int("count", len(entries)))

	var succeeded, rescheduled, exhausted atomic.Int32

	for _, entry := range entries {
		w.pool.Submit(func() {
			w.process(ctx, entry, &succeeded, &rescheduled, &exhausted)
		})
	}

	w.pool.StopAndWait()

	// Recreate pool for next cycle
	w.pool = pond.NewPool(
		w.config.WorkerPoolSize,
		pond.WithQueueSize(w.config.BatchSize),
		pond.WithContext(ctx),
	)

	logger.InfoCtx(ctx, "Retry cycle completed",
		zap.Duration("duration", w.clock.Since(startTime)),
		zap.Int("total_claimed", len(entries)),
		zap.Int32("succeeded", succeeded.Load()),
		zap.Int32("rescheduled", rescheduled.Load()),
		zap.Int32("exhausted", exhausted.Load()),
	)

	if !w.sleep(ctx, w.config.PollEvery) {
		return ctx.Err()
	}

	return nil
}

// process redelivers a single claimed entry and records the outcome
func (w *Worker) process(ctx context.Context, entry *schema.RetryEntry, succeeded, rescheduled, exhausted *atomic.Int32) {
	result := w.deliverer.Redeliver(ctx, entry)

	switch {
	case result.Success:
		succeeded.Add(1)
		if err := w.store.MarkRetryEntry(ctx, entry.ID, store.RetryOutcome{
			Status:     schema.RetryStatusSucceeded,
			LastStatus: result.StatusCode,
		}); err != nil {
			logger.ErrorCtx(ctx, err, zap.Uint64("entry_id", entry.ID))
		}

	case !result.Retryable:
		exhausted.Add(1)
		logger.InfoCtx(ctx, "Redelivery failed with non-retryable outcome",
			zap.Uint64("entry_id", entry.ID),
			zap.String("webhook_id", entry.WebhookID),
			zap.String("error", result.Error),
		)
		if err := w.store.MarkRetryEntry(ctx, entry.ID, store.RetryOutcome{
			Status:     schema.RetryStatusExhausted,
			LastError:  result.Error,
			LastStatus: result.StatusCode,
		}); err != nil {
			logger.ErrorCtx(ctx, err, zap.Uint64("entry_id", entry.ID))
		}

	case result.StatusCode != nil && w.schedule.IsStopStatus(*result.StatusCode):
		exhausted.Add(1)
		logger.InfoCtx(ctx, "Redelivery stopped by terminal status code",
			zap.Uint64("entry_id", entry.ID),
			zap.String("webhook_id", entry.WebhookID),
			zap.Int("status_code", *result.StatusCode),
		)
		if err := w.store.MarkRetryEntry(ctx, entry.ID, store.RetryOutcome{
			Status:     schema.RetryStatusExhausted,
			LastError:  result.Error,
			LastStatus: result.StatusCode,
		}); err != nil {
			logger.ErrorCtx(ctx, err, zap.Uint64("entry_id", entry.ID))
		}

	case entry.AttemptNumber >= entry.MaxAttempts:
		exhausted.Add(1)
		logger.WarnCtx(ctx, "Redelivery attempts exhausted",
			zap.Uint64("entry_id", entry.ID),
			zap.String("webhook_id", entry.WebhookID),
			zap.Int("attempt_number", entry.AttemptNumber),
		)
		if err := w.store.MarkRetryEntry(ctx, entry.ID, store.RetryOutcome{
			Status:     schema.RetryStatusExhausted,
			LastError:  result.Error,
			LastStatus: result.StatusCode,
		}); err != nil {
			logger.ErrorCtx(ctx, err, zap.Uint64("entry_id", entry.ID))
		}

	default:
		rescheduled.Add(1)
		nextAttempt := entry.AttemptNumber + 1
		nextRetryAt := w.clock.Now().Add(w.schedule.Delay(nextAttempt - 1))
		if err := w.store.RescheduleRetryEntry(ctx, entry.ID, nextAttempt, nextRetryAt, result.Error, result.StatusCode); err != nil {
			logger.ErrorCtx(ctx, err, zap.Uint64("entry_id", entry.ID))
		}
	}
}

// sleep sleeps for the given duration but can be interrupted by context
// cancellation or a stop request. Returns false when interrupted.
func (w *Worker) sleep(ctx context.Context, duration time.Duration) bool {
	select {
	case <-w.clock.After(duration):
		return true
	case <-ctx.Done():
		return false
	case <-w.stopChan:
		return false
	}
}
