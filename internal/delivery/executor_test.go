package delivery_test

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/flowsend/webhook-engine/internal/breaker"
	"github.com/flowsend/webhook-engine/internal/conditions"
	"github.com/flowsend/webhook-engine/internal/config"
	"github.com/flowsend/webhook-engine/internal/delivery"
	"github.com/flowsend/webhook-engine/internal/domain"
	"github.com/flowsend/webhook-engine/internal/logger"
	"github.com/flowsend/webhook-engine/internal/mocks"
	"github.com/flowsend/webhook-engine/internal/ratelimit"
	"github.com/flowsend/webhook-engine/internal/retry"
	"github.com/flowsend/webhook-engine/internal/safeurl"
	"github.com/flowsend/webhook-engine/internal/secrets"
	"github.com/flowsend/webhook-engine/internal/store"
	"github.com/flowsend/webhook-engine/internal/store/schema"
	"github.com/flowsend/webhook-engine/internal/transform"
)

var testAppKey = []byte("0123456789abcdef0123456789abcdef")

// publicResolver resolves every hostname to the given addresses
type publicResolver struct {
	addrs []net.IPAddr
}

func (r *publicResolver) LookupIPAddr(_ context.Context, _ string) ([]net.IPAddr, error) {
	return r.addrs, nil
}

type testExecutorMocks struct {
	ctrl     *gomock.Controller
	store    *mocks.MockStore
	redis    *mocks.MockRedisClient
	http     *mocks.MockHTTPClient
	clock    *mocks.MockClock
	executor *delivery.Executor
	now      time.Time
}

func setupTestExecutor(t *testing.T, resolverIP string) *testExecutorMocks {
	require.NoError(t, logger.Initialize(logger.Config{Debug: true}))

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	tm := &testExecutorMocks{
		ctrl:  ctrl,
		store: mocks.NewMockStore(ctrl),
		redis: mocks.NewMockRedisClient(ctrl),
		http:  mocks.NewMockHTTPClient(ctrl),
		clock: mocks.NewMockClock(ctrl),
		now:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	tm.clock.EXPECT().Now().Return(tm.now).AnyTimes()
	tm.clock.EXPECT().Since(gomock.Any()).Return(250 * time.Millisecond).AnyTimes()

	secretManager, err := secrets.NewManager(tm.store, testAppKey, time.Hour, tm.clock)
	require.NoError(t, err)

	limiter := ratelimit.NewLimiter(config.RateLimitConfig{
		KeyPrefix: "test:limiter:",
		Window:    time.Minute,
		Policy:    "fail_open",
		Limits:    map[string]int{"deliveries": 100},
	}, tm.redis, tm.clock)

	breakerManager := breaker.NewManager(tm.store, breaker.Settings{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		OpenTimeout:      time.Minute,
	}, tm.clock)

	resolver := &publicResolver{addrs: []net.IPAddr{{IP: net.ParseIP(resolverIP)}}}
	validator := safeurl.NewValidator(resolver, safeurl.Config{})

	evaluator := conditions.NewEvaluator(tm.store, domain.FailOpen)
	transformer := transform.NewTransformer()
	enqueuer := retry.NewEnqueuer(tm.store, retry.Schedule{
		InitialDelay: 30 * time.Second,
		MaxDelay:     time.Hour,
		Multiplier:   2.0,
		MaxAttempts:  5,
	}, tm.clock)

	tm.executor = delivery.NewExecutor(
		delivery.Config{UserAgent: "Flowsend-Webhooks/1.0"},
		tm.store,
		secretManager,
		limiter,
		nil,
		breakerManager,
		validator,
		evaluator,
		transformer,
		enqueuer,
		tm.http,
		tm.clock,
	)

	return tm
}

func testWebhook() *schema.Webhook {
	return &schema.Webhook{
		ID:             "wh-1",
		WorkspaceID:    "ws-1",
		TargetURL:      "https://hooks.example.com/receive",
		IsActive:       true,
		EventTypes:     datatypes.JSON(`["*"]`),
		TimeoutSeconds: 10,
	}
}

// expectSecrets stubs GetSecretsForDelivery with one current secret and
// returns the plaintext it will decrypt to
func (tm *testExecutorMocks) expectSecrets(t *testing.T) string {
	plaintext, err := secrets.GenerateSecret()
	require.NoError(t, err)
	ciphertext, err := secrets.Encrypt(testAppKey, "wh-1", plaintext)
	require.NoError(t, err)

	tm.store.EXPECT().
		GetSecretsForDelivery(gomock.Any(), "wh-1", tm.now).
		Return([]*schema.WebhookSecret{
			{ID: 1, WebhookID: "wh-1", Ciphertext: ciphertext, Last4: secrets.Last4(plaintext)},
		}, nil)

	return plaintext
}

// expectBreaker stubs WithBreakerState to run callbacks against the given row
func (tm *testExecutorMocks) expectBreaker(state *schema.CircuitBreakerState, times int) {
	tm.store.EXPECT().
		WithBreakerState(gomock.Any(), "wh-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, fn func(*schema.CircuitBreakerState) error) error {
			return fn(state)
		}).
		Times(times)
}

func TestDeliverSuccess(t *testing.T) {
	tm := setupTestExecutor(t, "93.184.216.34")
	webhook := testWebhook()
	webhook.CustomHeaders = datatypes.JSON(`{"X-Environment":"prod","X-Webhook-Secret":"forged"}`)

	tm.store.EXPECT().GetWebhookByID(gomock.Any(), "wh-1").Return(webhook, nil)
	tm.redis.EXPECT().IncrWindow(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(1), nil)
	// Allow plus RecordSuccess
	tm.expectBreaker(&schema.CircuitBreakerState{WebhookID: "wh-1", State: schema.BreakerStateClosed}, 2)
	plaintext := tm.expectSecrets(t)

	var sentHeaders map[string]string
	var sentBody []byte
	tm.http.EXPECT().
		PostWithHeaders(gomock.Any(), "https://hooks.example.com/receive", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, headers map[string]string, body io.Reader) (*http.Response, error) {
			sentHeaders = headers
			data, err := io.ReadAll(body)
			require.NoError(t, err)
			sentBody = data
			return &http.Response{
				StatusCode: 200,
				Body:       io.NopCloser(strings.NewReader(`{"received":true}`)),
			}, nil
		})

	var savedLog *schema.WebhookLog
	tm.store.EXPECT().
		CreateWebhookLog(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, log *schema.WebhookLog) error {
			savedLog = log
			return nil
		})

	outcome, err := tm.executor.Deliver(context.Background(), "wh-1", "order.created",
		map[string]interface{}{"order_id": "o-1"}, delivery.Options{})
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	require.NotNil(t, outcome.StatusCode)
	assert.Equal(t, 200, *outcome.StatusCode)

	// Signature covers the exact bytes that went on the wire
	assert.Equal(t, delivery.Sign(plaintext, sentBody), sentHeaders[delivery.HeaderSignature])
	assert.True(t, delivery.VerifySignature(plaintext, sentBody, sentHeaders[delivery.HeaderSignature]))
	assert.Equal(t, plaintext, sentHeaders[delivery.HeaderSecret])
	assert.Equal(t, "application/json", sentHeaders[delivery.HeaderContentType])
	assert.Equal(t, "Flowsend-Webhooks/1.0", sentHeaders[delivery.HeaderUserAgent])
	assert.Equal(t, outcome.DeliveryID, sentHeaders[delivery.HeaderDelivery])
	assert.Equal(t, "1785585600000", sentHeaders[delivery.HeaderTimestamp])
	assert.NotContains(t, sentHeaders, delivery.HeaderSecretPrevious)

	// Custom headers ride along but can never override reserved ones
	assert.Equal(t, "prod", sentHeaders["X-Environment"])
	assert.NotEqual(t, "forged", sentHeaders[delivery.HeaderSecret])

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(sentBody, &payload))
	assert.Equal(t, "o-1", payload["order_id"])

	require.NotNil(t, savedLog)
	assert.True(t, savedLog.Success)
	assert.Equal(t, `{"received":true}`, savedLog.ResponseBody)
	assert.Equal(t, 1, savedLog.AttemptNumber)
	assert.Equal(t, int64(250), savedLog.DurationMs)
}

func TestDeliverFailureSchedulesRetry(t *testing.T) {
	tm := setupTestExecutor(t, "93.184.216.34")
	webhook := testWebhook()

	tm.store.EXPECT().GetWebhookByID(gomock.Any(), "wh-1").Return(webhook, nil)
	tm.redis.EXPECT().IncrWindow(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(1), nil)
	// Allow plus RecordFailure
	tm.expectBreaker(&schema.CircuitBreakerState{WebhookID: "wh-1", State: schema.BreakerStateClosed}, 2)
	tm.expectSecrets(t)

	tm.http.EXPECT().
		PostWithHeaders(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&http.Response{
			StatusCode: 503,
			Body:       io.NopCloser(strings.NewReader("overloaded")),
		}, nil)

	var savedLog *schema.WebhookLog
	tm.store.EXPECT().
		CreateWebhookLog(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, log *schema.WebhookLog) error {
			log.ID = 42
			savedLog = log
			return nil
		})

	tm.store.EXPECT().LatestRetryAttempt(gomock.Any(), "wh-1", gomock.Any()).Return(0, nil)

	var retryInput store.CreateRetryEntryInput
	tm.store.EXPECT().
		CreateRetryEntry(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, input store.CreateRetryEntryInput) (*schema.RetryEntry, error) {
			retryInput = input
			return &schema.RetryEntry{ID: 1}, nil
		})

	outcome, err := tm.executor.Deliver(context.Background(), "wh-1", "order.created",
		map[string]interface{}{"order_id": "o-1"}, delivery.Options{})
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.True(t, outcome.Retryable)

	require.NotNil(t, savedLog)
	assert.False(t, savedLog.Success)
	assert.Equal(t, "overloaded", savedLog.ResponseBody)

	assert.Equal(t, 2, retryInput.AttemptNumber)
	assert.Equal(t, tm.now.Add(30*time.Second), retryInput.NextRetryAt)
	require.NotNil(t, retryInput.LogID)
	assert.Equal(t, uint64(42), *retryInput.LogID)
	require.NotNil(t, retryInput.LastStatus)
	assert.Equal(t, 503, *retryInput.LastStatus)
}

func TestDeliverNetworkErrorCountsAsFailure(t *testing.T) {
	tm := setupTestExecutor(t, "93.184.216.34")
	webhook := testWebhook()

	tm.store.EXPECT().GetWebhookByID(gomock.Any(), "wh-1").Return(webhook, nil)
	tm.redis.EXPECT().IncrWindow(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(1), nil)
	state := &schema.CircuitBreakerState{WebhookID: "wh-1", State: schema.BreakerStateClosed}
	tm.expectBreaker(state, 2)
	tm.expectSecrets(t)

	tm.http.EXPECT().
		PostWithHeaders(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, context.DeadlineExceeded)

	tm.store.EXPECT().CreateWebhookLog(gomock.Any(), gomock.Any()).Return(nil)
	tm.store.EXPECT().LatestRetryAttempt(gomock.Any(), "wh-1", gomock.Any()).Return(0, nil)
	tm.store.EXPECT().CreateRetryEntry(gomock.Any(), gomock.Any()).Return(&schema.RetryEntry{ID: 1}, nil)

	outcome, err := tm.executor.Deliver(context.Background(), "wh-1", "order.created",
		map[string]interface{}{}, delivery.Options{})
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.True(t, outcome.Retryable)
	assert.Nil(t, outcome.StatusCode)
	assert.Equal(t, 1, state.ConsecutiveFailures)
}

func TestDeliverCircuitOpenSkips(t *testing.T) {
	tm := setupTestExecutor(t, "93.184.216.34")
	webhook := testWebhook()

	openedAt := time.Date(2026, 8, 1, 11, 59, 30, 0, time.UTC)
	tm.store.EXPECT().GetWebhookByID(gomock.Any(), "wh-1").Return(webhook, nil)
	tm.redis.EXPECT().IncrWindow(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(1), nil)
	// Only the Allow check touches the breaker; a skipped attempt records
	// no outcome
	tm.expectBreaker(&schema.CircuitBreakerState{
		WebhookID: "wh-1",
		State:     schema.BreakerStateOpen,
		OpenedAt:  &openedAt,
	}, 1)

	var savedLog *schema.WebhookLog
	tm.store.EXPECT().
		CreateWebhookLog(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, log *schema.WebhookLog) error {
			savedLog = log
			return nil
		})

	outcome, err := tm.executor.Deliver(context.Background(), "wh-1", "order.created",
		map[string]interface{}{"order_id": "o-1"}, delivery.Options{})
	require.ErrorIs(t, err, domain.ErrCircuitOpen)
	assert.Equal(t, schema.SkipReasonCircuitOpen, outcome.SkipReason)

	require.NotNil(t, savedLog)
	assert.Equal(t, schema.SkipReasonCircuitOpen, savedLog.SkipReason)
	assert.False(t, savedLog.Success)
	assert.Nil(t, savedLog.ResponseStatus)
}

func TestDeliverBlockedURLSkips(t *testing.T) {
	// Target hostname resolves to a private address
	tm := setupTestExecutor(t, "10.0.0.8")
	webhook := testWebhook()

	tm.store.EXPECT().GetWebhookByID(gomock.Any(), "wh-1").Return(webhook, nil)
	tm.redis.EXPECT().IncrWindow(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(1), nil)
	tm.expectBreaker(&schema.CircuitBreakerState{WebhookID: "wh-1", State: schema.BreakerStateClosed}, 1)

	var savedLog *schema.WebhookLog
	tm.store.EXPECT().
		CreateWebhookLog(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, log *schema.WebhookLog) error {
			savedLog = log
			return nil
		})

	outcome, err := tm.executor.Deliver(context.Background(), "wh-1", "order.created",
		map[string]interface{}{}, delivery.Options{})
	require.ErrorIs(t, err, domain.ErrURLBlocked)
	assert.Equal(t, schema.SkipReasonURLBlocked, outcome.SkipReason)

	require.NotNil(t, savedLog)
	assert.Equal(t, schema.SkipReasonURLBlocked, savedLog.SkipReason)
	assert.NotEmpty(t, savedLog.ErrorMessage)
}

func TestDeliverFilteredSkips(t *testing.T) {
	tm := setupTestExecutor(t, "93.184.216.34")
	webhook := testWebhook()
	webhook.ConditionsEnabled = true

	tm.store.EXPECT().GetWebhookByID(gomock.Any(), "wh-1").Return(webhook, nil)
	tm.redis.EXPECT().IncrWindow(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(1), nil)
	tm.expectBreaker(&schema.CircuitBreakerState{WebhookID: "wh-1", State: schema.BreakerStateClosed}, 1)

	tm.store.EXPECT().
		GetConditionsByWebhookID(gomock.Any(), "wh-1").
		Return([]*schema.WebhookCondition{
			{WebhookID: "wh-1", FieldPath: "amount", Operator: schema.ConditionOperatorGreaterThan, Value: "100"},
		}, nil)

	var savedLog *schema.WebhookLog
	tm.store.EXPECT().
		CreateWebhookLog(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, log *schema.WebhookLog) error {
			savedLog = log
			return nil
		})

	outcome, err := tm.executor.Deliver(context.Background(), "wh-1", "order.created",
		map[string]interface{}{"amount": 50.0}, delivery.Options{})
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.Equal(t, schema.SkipReasonFiltered, outcome.SkipReason)

	require.NotNil(t, savedLog)
	assert.Equal(t, schema.SkipReasonFiltered, savedLog.SkipReason)
}

func TestDeliverNotSubscribed(t *testing.T) {
	tm := setupTestExecutor(t, "93.184.216.34")
	webhook := testWebhook()
	webhook.EventTypes = datatypes.JSON(`["order.created"]`)

	tm.store.EXPECT().GetWebhookByID(gomock.Any(), "wh-1").Return(webhook, nil)
	tm.redis.EXPECT().IncrWindow(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(1), nil)

	outcome, err := tm.executor.Deliver(context.Background(), "wh-1", "invoice.paid",
		map[string]interface{}{}, delivery.Options{})
	require.NoError(t, err)
	assert.Equal(t, "not_subscribed", outcome.SkipReason)
}

func TestDeliverRateLimited(t *testing.T) {
	tm := setupTestExecutor(t, "93.184.216.34")
	webhook := testWebhook()

	tm.store.EXPECT().GetWebhookByID(gomock.Any(), "wh-1").Return(webhook, nil)
	tm.redis.EXPECT().IncrWindow(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(101), nil)

	_, err := tm.executor.Deliver(context.Background(), "wh-1", "order.created",
		map[string]interface{}{}, delivery.Options{})
	require.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestDeliverUnknownWebhook(t *testing.T) {
	tm := setupTestExecutor(t, "93.184.216.34")

	tm.store.EXPECT().GetWebhookByID(gomock.Any(), "wh-404").Return(nil, nil)

	_, err := tm.executor.Deliver(context.Background(), "wh-404", "order.created",
		map[string]interface{}{}, delivery.Options{})
	require.ErrorIs(t, err, domain.ErrWebhookNotFound)
}

func TestDeliverInactiveWebhook(t *testing.T) {
	tm := setupTestExecutor(t, "93.184.216.34")
	webhook := testWebhook()
	webhook.IsActive = false

	tm.store.EXPECT().GetWebhookByID(gomock.Any(), "wh-1").Return(webhook, nil)

	_, err := tm.executor.Deliver(context.Background(), "wh-1", "order.created",
		map[string]interface{}{}, delivery.Options{})
	require.ErrorIs(t, err, domain.ErrWebhookInactive)
}

func TestRedeliverSuccess(t *testing.T) {
	tm := setupTestExecutor(t, "93.184.216.34")
	webhook := testWebhook()

	tm.store.EXPECT().GetWebhookByID(gomock.Any(), "wh-1").Return(webhook, nil)
	tm.expectBreaker(&schema.CircuitBreakerState{WebhookID: "wh-1", State: schema.BreakerStateClosed}, 2)
	tm.expectSecrets(t)

	tm.http.EXPECT().
		PostWithHeaders(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&http.Response{StatusCode: 204, Body: io.NopCloser(strings.NewReader(""))}, nil)

	var savedLog *schema.WebhookLog
	tm.store.EXPECT().
		CreateWebhookLog(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, log *schema.WebhookLog) error {
			savedLog = log
			return nil
		})

	entry := &schema.RetryEntry{
		ID:            9,
		WebhookID:     "wh-1",
		EventID:       "evt-original",
		EventType:     "order.created",
		Payload:       datatypes.JSON(`{"order_id":"o-1"}`),
		AttemptNumber: 3,
		MaxAttempts:   5,
	}

	result := tm.executor.Redeliver(context.Background(), entry)
	assert.True(t, result.Success)

	// Redeliveries keep the original event id and attempt number and skip
	// rate limit admission entirely
	require.NotNil(t, savedLog)
	assert.Equal(t, "evt-original", savedLog.EventID)
	assert.Equal(t, 3, savedLog.AttemptNumber)
}

func TestRedeliverFailureIsRetryable(t *testing.T) {
	tm := setupTestExecutor(t, "93.184.216.34")
	webhook := testWebhook()

	tm.store.EXPECT().GetWebhookByID(gomock.Any(), "wh-1").Return(webhook, nil)
	tm.expectBreaker(&schema.CircuitBreakerState{WebhookID: "wh-1", State: schema.BreakerStateClosed}, 2)
	tm.expectSecrets(t)

	tm.http.EXPECT().
		PostWithHeaders(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&http.Response{StatusCode: 500, Body: io.NopCloser(strings.NewReader("boom"))}, nil)

	tm.store.EXPECT().CreateWebhookLog(gomock.Any(), gomock.Any()).Return(nil)

	entry := &schema.RetryEntry{
		ID:            9,
		WebhookID:     "wh-1",
		EventID:       "evt-original",
		EventType:     "order.created",
		Payload:       datatypes.JSON(`{}`),
		AttemptNumber: 2,
		MaxAttempts:   5,
	}

	result := tm.executor.Redeliver(context.Background(), entry)
	assert.False(t, result.Success)
	assert.True(t, result.Retryable)
	require.NotNil(t, result.StatusCode)
	assert.Equal(t, 500, *result.StatusCode)
}

func TestRedeliverInactiveWebhookNotRetryable(t *testing.T) {
	tm := setupTestExecutor(t, "93.184.216.34")
	webhook := testWebhook()
	webhook.IsActive = false

	tm.store.EXPECT().GetWebhookByID(gomock.Any(), "wh-1").Return(webhook, nil)

	entry := &schema.RetryEntry{
		ID:        9,
		WebhookID: "wh-1",
		EventType: "order.created",
		Payload:   datatypes.JSON(`{}`),
	}

	result := tm.executor.Redeliver(context.Background(), entry)
	assert.False(t, result.Success)
	assert.False(t, result.Retryable)
}
