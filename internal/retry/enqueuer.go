package retry

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/flowsend/webhook-engine/internal/adapter"
	"github.com/flowsend/webhook-engine/internal/logger"
	"github.com/flowsend/webhook-engine/internal/store"
	"github.com/flowsend/webhook-engine/internal/store/schema"
)

// EnqueueInput describes a failed delivery attempt that may warrant retries
type EnqueueInput struct {
	WebhookID string
	// LogID references the delivery log row of the failed attempt
	LogID     *uint64
	EventID   string
	EventType string
	// Payload is the original event payload, snapshotted so the redelivery
	// does not depend on upstream state
	Payload datatypes.JSON
	// FailureError is a short description of what went wrong
	FailureError string
	// StatusCode is the HTTP status of the failed attempt, if a response
	// was received
	StatusCode *int
}

// Enqueuer schedules redelivery of failed webhook deliveries
type Enqueuer struct {
	store    store.Store
	schedule Schedule
	clock    adapter.Clock
}

// NewEnqueuer creates an enqueuer with the given backoff schedule
func NewEnqueuer(st store.Store, schedule Schedule, clock adapter.Clock) *Enqueuer {
	if clock == nil {
		clock = adapter.NewClock()
	}
	return &Enqueuer{
		store:    st,
		schedule: schedule.Normalize(),
		clock:    clock,
	}
}

// Enqueue schedules the next redelivery attempt for a failed delivery.
// Attempt numbering continues across entries for the same webhook and event,
// so a crashed worker that already burned attempts cannot reset the count.
// Returns nil without scheduling when the failure is non-retryable or the
// attempt budget is spent.
func (e *Enqueuer) Enqueue(ctx context.Context, input EnqueueInput) (*schema.RetryEntry, error) {
	if input.StatusCode != nil && e.schedule.IsStopStatus(*input.StatusCode) {
		logger.InfoCtx(ctx, "Skipping retry for non-retryable response status",
			zap.String("webhook_id", input.WebhookID),
			zap.String("event_id", input.EventID),
			zap.Int("status_code", *input.StatusCode),
		)
		return nil, nil
	}

	latest, err := e.store.LatestRetryAttempt(ctx, input.WebhookID, input.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve retry attempt number: %w", err)
	}
	if latest == 0 {
		// The original delivery counts as attempt 1
		latest = 1
	}

	nextAttempt := latest + 1
	if nextAttempt > e.schedule.MaxAttempts {
		logger.InfoCtx(ctx, "Retry budget exhausted, not scheduling",
			zap.String("webhook_id", input.WebhookID),
			zap.String("event_id", input.EventID),
			zap.Int("max_attempts", e.schedule.MaxAttempts),
		)
		return nil, nil
	}

	now := e.clock.Now()
	nextRetryAt := now.Add(e.schedule.Delay(nextAttempt - 1))

	entry, err := e.store.CreateRetryEntry(ctx, store.CreateRetryEntryInput{
		WebhookID:     input.WebhookID,
		LogID:         input.LogID,
		EventID:       input.EventID,
		EventType:     input.EventType,
		Payload:       input.Payload,
		AttemptNumber: nextAttempt,
		MaxAttempts:   e.schedule.MaxAttempts,
		NextRetryAt:   nextRetryAt,
		LastError:     input.FailureError,
		LastStatus:    input.StatusCode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue retry: %w", err)
	}

	logger.InfoCtx(ctx, "Scheduled redelivery",
		zap.String("webhook_id", input.WebhookID),
		zap.String("event_id", input.EventID),
		zap.Int("attempt_number", nextAttempt),
		zap.Time("next_retry_at", nextRetryAt),
	)

	return entry, nil
}
