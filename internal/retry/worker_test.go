package retry_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowsend/webhook-engine/internal/logger"
	"github.com/flowsend/webhook-engine/internal/mocks"
	"github.com/flowsend/webhook-engine/internal/retry"
	"github.com/flowsend/webhook-engine/internal/store"
	"github.com/flowsend/webhook-engine/internal/store/schema"
)

type testWorkerMocks struct {
	ctrl      *gomock.Controller
	store     *mocks.MockStore
	deliverer *mocks.MockDeliverer
	clock     *mocks.MockClock
	worker    *retry.Worker
	now       time.Time
}

func setupTestWorker(t *testing.T) *testWorkerMocks {
	require.NoError(t, logger.Initialize(logger.Config{Debug: true}))

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	tm := &testWorkerMocks{
		ctrl:      ctrl,
		store:     mocks.NewMockStore(ctrl),
		deliverer: mocks.NewMockDeliverer(ctrl),
		clock:     mocks.NewMockClock(ctrl),
		now:       time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}

	tm.clock.EXPECT().Now().Return(tm.now).AnyTimes()
	tm.clock.EXPECT().Since(gomock.Any()).Return(time.Second).AnyTimes()
	// Make After return a channel that closes after a brief delay so Stop
	// gets a chance to run between cycles
	tm.clock.EXPECT().After(gomock.Any()).DoAndReturn(func(d time.Duration) <-chan time.Time {
		ch := make(chan time.Time)
		go func() {
			time.Sleep(10 * time.Millisecond)
			close(ch)
		}()
		return ch
	}).AnyTimes()

	config := retry.WorkerConfig{
		BatchSize:      10,
		WorkerPoolSize: 2,
		PollEvery:      15 * time.Second,
		ClaimLease:     5 * time.Minute,
	}
	schedule := retry.Schedule{
		InitialDelay: 30 * time.Second,
		MaxDelay:     time.Hour,
		Multiplier:   2.0,
		MaxAttempts:  5,
	}
	tm.worker = retry.NewWorker(config, tm.store, tm.deliverer, schedule, tm.clock)

	return tm
}

// runWorker starts the worker, waits briefly, then stops it
func runWorker(t *testing.T, tm *testWorkerMocks) {
	ctx := context.Background()
	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = tm.worker.Stop(ctx)
	}()
	require.NoError(t, tm.worker.Start(ctx))
}

func claimedEntry(id uint64, attempt, maxAttempts int) *schema.RetryEntry {
	claimedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return &schema.RetryEntry{
		ID:            id,
		WebhookID:     "wh-1",
		EventID:       "evt-1",
		EventType:     "order.created",
		AttemptNumber: attempt,
		MaxAttempts:   maxAttempts,
		Status:        schema.RetryStatusProcessing,
		ClaimedAt:     &claimedAt,
	}
}

func TestWorkerName(t *testing.T) {
	tm := setupTestWorker(t)
	assert.Equal(t, "retry-worker", tm.worker.Name())
}

func TestWorkerStopBeforeStart(t *testing.T) {
	tm := setupTestWorker(t)
	require.NoError(t, tm.worker.Stop(context.Background()))
}

func TestWorkerMarksSuccess(t *testing.T) {
	tm := setupTestWorker(t)
	entry := claimedEntry(1, 2, 5)

	tm.store.EXPECT().ReleaseStaleClaims(gomock.Any(), tm.now.Add(-5*time.Minute)).Return(int64(0), nil).MinTimes(1)
	tm.store.EXPECT().
		ClaimDueRetryEntries(gomock.Any(), tm.now, 10).
		Return([]*schema.RetryEntry{entry}, nil)
	tm.store.EXPECT().
		ClaimDueRetryEntries(gomock.Any(), tm.now, 10).
		Return(nil, nil).
		AnyTimes()

	status := 200
	tm.deliverer.EXPECT().
		Redeliver(gomock.Any(), entry).
		Return(retry.Result{Success: true, StatusCode: &status})

	tm.store.EXPECT().
		MarkRetryEntry(gomock.Any(), uint64(1), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uint64, outcome store.RetryOutcome) error {
			assert.Equal(t, schema.RetryStatusSucceeded, outcome.Status)
			return nil
		})

	runWorker(t, tm)
}

func TestWorkerReschedulesRetryableFailure(t *testing.T) {
	tm := setupTestWorker(t)
	entry := claimedEntry(2, 2, 5)

	tm.store.EXPECT().ReleaseStaleClaims(gomock.Any(), gomock.Any()).Return(int64(0), nil).MinTimes(1)
	tm.store.EXPECT().
		ClaimDueRetryEntries(gomock.Any(), tm.now, 10).
		Return([]*schema.RetryEntry{entry}, nil)
	tm.store.EXPECT().
		ClaimDueRetryEntries(gomock.Any(), tm.now, 10).
		Return(nil, nil).
		AnyTimes()

	status := 503
	tm.deliverer.EXPECT().
		Redeliver(gomock.Any(), entry).
		Return(retry.Result{Retryable: true, StatusCode: &status, Error: "endpoint returned 503"})

	// Attempt 3 is the second retry: 30s * 2
	tm.store.EXPECT().
		RescheduleRetryEntry(gomock.Any(), uint64(2), 3, tm.now.Add(time.Minute), "endpoint returned 503", &status).
		Return(nil)

	runWorker(t, tm)
}

func TestWorkerExhaustsAtMaxAttempts(t *testing.T) {
	tm := setupTestWorker(t)
	entry := claimedEntry(3, 5, 5)

	tm.store.EXPECT().ReleaseStaleClaims(gomock.Any(), gomock.Any()).Return(int64(0), nil).MinTimes(1)
	tm.store.EXPECT().
		ClaimDueRetryEntries(gomock.Any(), tm.now, 10).
		Return([]*schema.RetryEntry{entry}, nil)
	tm.store.EXPECT().
		ClaimDueRetryEntries(gomock.Any(), tm.now, 10).
		Return(nil, nil).
		AnyTimes()

	tm.deliverer.EXPECT().
		Redeliver(gomock.Any(), entry).
		Return(retry.Result{Retryable: true, Error: "timeout"})

	tm.store.EXPECT().
		MarkRetryEntry(gomock.Any(), uint64(3), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uint64, outcome store.RetryOutcome) error {
			assert.Equal(t, schema.RetryStatusExhausted, outcome.Status)
			assert.Equal(t, "timeout", outcome.LastError)
			return nil
		})

	runWorker(t, tm)
}

func TestWorkerExhaustsNonRetryableOutcome(t *testing.T) {
	tm := setupTestWorker(t)
	entry := claimedEntry(4, 2, 5)

	tm.store.EXPECT().ReleaseStaleClaims(gomock.Any(), gomock.Any()).Return(int64(0), nil).MinTimes(1)
	tm.store.EXPECT().
		ClaimDueRetryEntries(gomock.Any(), tm.now, 10).
		Return([]*schema.RetryEntry{entry}, nil)
	tm.store.EXPECT().
		ClaimDueRetryEntries(gomock.Any(), tm.now, 10).
		Return(nil, nil).
		AnyTimes()

	status := 410
	tm.deliverer.EXPECT().
		Redeliver(gomock.Any(), entry).
		Return(retry.Result{Retryable: false, StatusCode: &status, Error: "endpoint returned 410"})

	tm.store.EXPECT().
		MarkRetryEntry(gomock.Any(), uint64(4), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uint64, outcome store.RetryOutcome) error {
			assert.Equal(t, schema.RetryStatusExhausted, outcome.Status)
			return nil
		})

	runWorker(t, tm)
}

func TestWorkerExhaustsStopStatusEvenWhenRetryable(t *testing.T) {
	tm := setupTestWorker(t)
	entry := claimedEntry(5, 2, 5)

	tm.store.EXPECT().ReleaseStaleClaims(gomock.Any(), gomock.Any()).Return(int64(0), nil).MinTimes(1)
	tm.store.EXPECT().
		ClaimDueRetryEntries(gomock.Any(), tm.now, 10).
		Return([]*schema.RetryEntry{entry}, nil)
	tm.store.EXPECT().
		ClaimDueRetryEntries(gomock.Any(), tm.now, 10).
		Return(nil, nil).
		AnyTimes()

	// The endpoint started answering 404 mid-retry. Even though the result is
	// flagged retryable, a stop-listed status must exhaust the entry rather
	// than reschedule it.
	status := 404
	tm.deliverer.EXPECT().
		Redeliver(gomock.Any(), entry).
		Return(retry.Result{Retryable: true, StatusCode: &status, Error: "endpoint returned 404"})

	tm.store.EXPECT().
		MarkRetryEntry(gomock.Any(), uint64(5), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uint64, outcome store.RetryOutcome) error {
			assert.Equal(t, schema.RetryStatusExhausted, outcome.Status)
			assert.Equal(t, "endpoint returned 404", outcome.LastError)
			require.NotNil(t, outcome.LastStatus)
			assert.Equal(t, 404, *outcome.LastStatus)
			return nil
		})

	runWorker(t, tm)
}

func TestWorkerReleasesStaleClaims(t *testing.T) {
	tm := setupTestWorker(t)

	tm.store.EXPECT().
		ReleaseStaleClaims(gomock.Any(), tm.now.Add(-5*time.Minute)).
		Return(int64(2), nil).
		MinTimes(1)
	tm.store.EXPECT().
		ClaimDueRetryEntries(gomock.Any(), tm.now, 10).
		Return(nil, nil).
		AnyTimes()

	runWorker(t, tm)
}

func TestWorkerDoubleStart(t *testing.T) {
	tm := setupTestWorker(t)

	tm.store.EXPECT().ReleaseStaleClaims(gomock.Any(), gomock.Any()).Return(int64(0), nil).AnyTimes()
	tm.store.EXPECT().ClaimDueRetryEntries(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	ctx := context.Background()
	errChan := make(chan error, 1)
	go func() {
		errChan <- tm.worker.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	err := tm.worker.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	require.NoError(t, tm.worker.Stop(ctx))
	require.NoError(t, <-errChan)
}
