package retry_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/flowsend/webhook-engine/internal/logger"
	"github.com/flowsend/webhook-engine/internal/mocks"
	"github.com/flowsend/webhook-engine/internal/retry"
	"github.com/flowsend/webhook-engine/internal/store"
	"github.com/flowsend/webhook-engine/internal/store/schema"
)

type testEnqueuerMocks struct {
	ctrl     *gomock.Controller
	store    *mocks.MockStore
	clock    *mocks.MockClock
	enqueuer *retry.Enqueuer
	now      time.Time
}

func setupTestEnqueuer(t *testing.T) *testEnqueuerMocks {
	require.NoError(t, logger.Initialize(logger.Config{Debug: true}))

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	tm := &testEnqueuerMocks{
		ctrl:  ctrl,
		store: mocks.NewMockStore(ctrl),
		clock: mocks.NewMockClock(ctrl),
		now:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	tm.clock.EXPECT().Now().Return(tm.now).AnyTimes()

	schedule := retry.Schedule{
		InitialDelay: 30 * time.Second,
		MaxDelay:     time.Hour,
		Multiplier:   2.0,
		MaxAttempts:  5,
	}
	tm.enqueuer = retry.NewEnqueuer(tm.store, schedule, tm.clock)

	return tm
}

func TestEnqueueFirstRetry(t *testing.T) {
	tm := setupTestEnqueuer(t)

	tm.store.EXPECT().
		LatestRetryAttempt(gomock.Any(), "wh-1", "evt-1").
		Return(0, nil)

	var captured store.CreateRetryEntryInput
	tm.store.EXPECT().
		CreateRetryEntry(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, input store.CreateRetryEntryInput) (*schema.RetryEntry, error) {
			captured = input
			return &schema.RetryEntry{ID: 7, AttemptNumber: input.AttemptNumber}, nil
		})

	status := 500
	entry, err := tm.enqueuer.Enqueue(context.Background(), retry.EnqueueInput{
		WebhookID:    "wh-1",
		EventID:      "evt-1",
		EventType:    "order.created",
		Payload:      datatypes.JSON(`{"id":"o-1"}`),
		FailureError: "endpoint returned 500",
		StatusCode:   &status,
	})
	require.NoError(t, err)
	require.NotNil(t, entry)

	// The original delivery was attempt 1, so the first retry is attempt 2
	// and waits the initial delay
	assert.Equal(t, 2, captured.AttemptNumber)
	assert.Equal(t, 5, captured.MaxAttempts)
	assert.Equal(t, tm.now.Add(30*time.Second), captured.NextRetryAt)
	assert.Equal(t, "endpoint returned 500", captured.LastError)
	require.NotNil(t, captured.LastStatus)
	assert.Equal(t, 500, *captured.LastStatus)
}

func TestEnqueueContinuesAttemptNumbering(t *testing.T) {
	tm := setupTestEnqueuer(t)

	tm.store.EXPECT().
		LatestRetryAttempt(gomock.Any(), "wh-1", "evt-1").
		Return(3, nil)

	var captured store.CreateRetryEntryInput
	tm.store.EXPECT().
		CreateRetryEntry(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, input store.CreateRetryEntryInput) (*schema.RetryEntry, error) {
			captured = input
			return &schema.RetryEntry{ID: 8, AttemptNumber: input.AttemptNumber}, nil
		})

	entry, err := tm.enqueuer.Enqueue(context.Background(), retry.EnqueueInput{
		WebhookID:    "wh-1",
		EventID:      "evt-1",
		EventType:    "order.created",
		Payload:      datatypes.JSON(`{}`),
		FailureError: "connection refused",
	})
	require.NoError(t, err)
	require.NotNil(t, entry)

	// Attempt 4 is the third retry: 30s * 2^2
	assert.Equal(t, 4, captured.AttemptNumber)
	assert.Equal(t, tm.now.Add(2*time.Minute), captured.NextRetryAt)
}

func TestEnqueueStopStatusNotScheduled(t *testing.T) {
	tm := setupTestEnqueuer(t)

	status := 404
	entry, err := tm.enqueuer.Enqueue(context.Background(), retry.EnqueueInput{
		WebhookID:  "wh-1",
		EventID:    "evt-1",
		EventType:  "order.created",
		Payload:    datatypes.JSON(`{}`),
		StatusCode: &status,
	})
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestEnqueueBudgetExhausted(t *testing.T) {
	tm := setupTestEnqueuer(t)

	tm.store.EXPECT().
		LatestRetryAttempt(gomock.Any(), "wh-1", "evt-1").
		Return(5, nil)

	entry, err := tm.enqueuer.Enqueue(context.Background(), retry.EnqueueInput{
		WebhookID:    "wh-1",
		EventID:      "evt-1",
		EventType:    "order.created",
		Payload:      datatypes.JSON(`{}`),
		FailureError: "timeout",
	})
	require.NoError(t, err)
	assert.Nil(t, entry)
}
