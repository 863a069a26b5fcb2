package rest_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/flowsend/webhook-engine/internal/api/middleware"
	"github.com/flowsend/webhook-engine/internal/api/rest"
	"github.com/flowsend/webhook-engine/internal/delivery"
	"github.com/flowsend/webhook-engine/internal/domain"
	"github.com/flowsend/webhook-engine/internal/logger"
	"github.com/flowsend/webhook-engine/internal/mocks"
	"github.com/flowsend/webhook-engine/internal/safeurl"
	"github.com/flowsend/webhook-engine/internal/secrets"
	"github.com/flowsend/webhook-engine/internal/store"
	"github.com/flowsend/webhook-engine/internal/store/schema"
)

const testAPIKey = "test-api-key"

type testHandlerMocks struct {
	ctrl      *gomock.Controller
	store     *mocks.MockStore
	executor  *mocks.MockDeliveryExecutor
	secrets   *mocks.MockSecretService
	validator *mocks.MockURLValidator
	router    *gin.Engine
}

func setupTestHandler(t *testing.T) *testHandlerMocks {
	require.NoError(t, logger.Initialize(logger.Config{Debug: true}))
	gin.SetMode(gin.TestMode)

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	tm := &testHandlerMocks{
		ctrl:      ctrl,
		store:     mocks.NewMockStore(ctrl),
		executor:  mocks.NewMockDeliveryExecutor(ctrl),
		secrets:   mocks.NewMockSecretService(ctrl),
		validator: mocks.NewMockURLValidator(ctrl),
	}

	handler := rest.NewHandler(tm.store, tm.executor, tm.secrets, tm.validator)

	tm.router = gin.New()
	rest.SetupRoutes(tm.router, handler, middleware.AuthConfig{APIKeys: []string{testAPIKey}})

	return tm
}

// doJSON performs an authenticated JSON request against the test router
func (tm *testHandlerMocks) doJSON(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "APIKey "+testAPIKey)

	w := httptest.NewRecorder()
	tm.router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	tm := setupTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	tm.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCreateDeliveryRequiresAuth(t *testing.T) {
	tm := setupTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/deliveries", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	tm.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateDeliverySuccess(t *testing.T) {
	tm := setupTestHandler(t)

	status := 200
	tm.executor.EXPECT().
		Deliver(gomock.Any(), "wh-1", "order.created", gomock.Any(), delivery.Options{}).
		Return(&delivery.Outcome{
			DeliveryID: "d-1",
			EventID:    "evt-1",
			Success:    true,
			StatusCode: &status,
			Log:        &schema.WebhookLog{DurationMs: 120, AttemptNumber: 1},
		}, nil)

	w := tm.doJSON(t, http.MethodPost, "/api/v1/deliveries", gin.H{
		"webhook_id": "wh-1",
		"event_type": "order.created",
		"payload":    gin.H{"order_id": "o-1"},
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, float64(200), resp["status"])
	assert.Equal(t, float64(120), resp["duration_ms"])
}

func TestCreateDeliveryEndpointFailureIsData(t *testing.T) {
	tm := setupTestHandler(t)

	status := 503
	tm.executor.EXPECT().
		Deliver(gomock.Any(), "wh-1", "order.created", gomock.Any(), delivery.Options{}).
		Return(&delivery.Outcome{
			DeliveryID: "d-1",
			EventID:    "evt-1",
			StatusCode: &status,
			Retryable:  true,
			Log:        &schema.WebhookLog{ErrorMessage: "endpoint returned 503", AttemptNumber: 1},
		}, nil)

	w := tm.doJSON(t, http.MethodPost, "/api/v1/deliveries", gin.H{
		"webhook_id": "wh-1",
		"event_type": "order.created",
		"payload":    gin.H{},
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["ok"])
	assert.Equal(t, true, resp["will_retry"])
	assert.Equal(t, "endpoint returned 503", resp["error"])
}

func TestCreateDeliveryCircuitOpenIsData(t *testing.T) {
	tm := setupTestHandler(t)

	tm.executor.EXPECT().
		Deliver(gomock.Any(), "wh-1", "order.created", gomock.Any(), delivery.Options{}).
		Return(&delivery.Outcome{
			DeliveryID: "d-1",
			EventID:    "evt-1",
			SkipReason: schema.SkipReasonCircuitOpen,
			Log:        &schema.WebhookLog{SkipReason: schema.SkipReasonCircuitOpen},
		}, domain.ErrCircuitOpen)

	w := tm.doJSON(t, http.MethodPost, "/api/v1/deliveries", gin.H{
		"webhook_id": "wh-1",
		"event_type": "order.created",
		"payload":    gin.H{},
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["ok"])
	assert.Equal(t, "circuit_open", resp["skip_reason"])
}

func TestCreateDeliveryErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unknown webhook", domain.ErrWebhookNotFound, http.StatusNotFound},
		{"inactive webhook", domain.ErrWebhookInactive, http.StatusBadRequest},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := setupTestHandler(t)
			tm.executor.EXPECT().
				Deliver(gomock.Any(), "wh-1", "order.created", gomock.Any(), delivery.Options{}).
				Return(nil, tt.err)

			w := tm.doJSON(t, http.MethodPost, "/api/v1/deliveries", gin.H{
				"webhook_id": "wh-1",
				"event_type": "order.created",
				"payload":    gin.H{},
			})
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestCreateDeliveryMalformedBody(t *testing.T) {
	tm := setupTestHandler(t)

	w := tm.doJSON(t, http.MethodPost, "/api/v1/deliveries", gin.H{
		"event_type": "order.created",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateWebhook(t *testing.T) {
	tm := setupTestHandler(t)

	tm.validator.EXPECT().
		ValidateForWorkspace(gomock.Any(), "https://hooks.example.com/receive", gomock.Nil()).
		Return(safeurl.Result{Valid: true})

	var input store.CreateWebhookInput
	tm.store.EXPECT().
		CreateWebhook(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ interface{}, in store.CreateWebhookInput) (*schema.Webhook, error) {
			input = in
			return &schema.Webhook{
				ID:             in.ID,
				WorkspaceID:    in.WorkspaceID,
				TargetURL:      in.TargetURL,
				IsActive:       true,
				EventTypes:     datatypes.JSON(`["order.created"]`),
				TimeoutSeconds: in.TimeoutSeconds,
				CreatedAt:      time.Now(),
			}, nil
		})

	tm.secrets.EXPECT().
		CreateIfMissing(gomock.Any(), gomock.Any()).
		Return(&secrets.CreateResult{Created: true, Plaintext: "whsec_abc", Last4: "wxyz"}, nil)

	w := tm.doJSON(t, http.MethodPost, "/api/v1/webhooks", gin.H{
		"workspace_id": "ws-1",
		"target_url":   "https://hooks.example.com/receive",
		"event_types":  []string{"order.created"},
	})

	require.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "whsec_abc", resp["secret"])
	assert.Equal(t, "wxyz", resp["secret_last4"])
	assert.Equal(t, "ws-1", resp["workspace_id"])

	assert.Equal(t, domain.DefaultDeliveryTimeoutSeconds, input.TimeoutSeconds)
	assert.NotEmpty(t, input.ID)
}

func TestCreateWebhookRejectsUnsafeURL(t *testing.T) {
	tm := setupTestHandler(t)

	tm.validator.EXPECT().
		ValidateForWorkspace(gomock.Any(), "https://169.254.169.254/latest", gomock.Nil()).
		Return(safeurl.Result{Valid: false, Reason: "resolves to internal address"})

	w := tm.doJSON(t, http.MethodPost, "/api/v1/webhooks", gin.H{
		"workspace_id": "ws-1",
		"target_url":   "https://169.254.169.254/latest",
		"event_types":  []string{"*"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCreateWebhookRejectsUnknownOperator(t *testing.T) {
	tm := setupTestHandler(t)

	tm.validator.EXPECT().
		ValidateForWorkspace(gomock.Any(), gomock.Any(), gomock.Nil()).
		Return(safeurl.Result{Valid: true})

	w := tm.doJSON(t, http.MethodPost, "/api/v1/webhooks", gin.H{
		"workspace_id": "ws-1",
		"target_url":   "https://hooks.example.com/receive",
		"event_types":  []string{"*"},
		"conditions": []gin.H{
			{"field_path": "a", "operator": "matches_regex", "value": "x"},
		},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSecretActionClaimLatest(t *testing.T) {
	tm := setupTestHandler(t)

	tm.store.EXPECT().
		GetWebhookByID(gomock.Any(), "wh-1").
		Return(&schema.Webhook{ID: "wh-1", EventTypes: datatypes.JSON(`["*"]`)}, nil)
	tm.secrets.EXPECT().
		ClaimLatest(gomock.Any(), "wh-1").
		Return(&secrets.ClaimResult{Plaintext: "whsec_abc", Last4: "wxyz"}, nil)

	w := tm.doJSON(t, http.MethodPost, "/api/v1/webhooks/wh-1/secret", gin.H{
		"action": "claim_latest",
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "whsec_abc", resp["secret"])
	assert.NotContains(t, resp, "already_claimed")
}

func TestSecretActionAlreadyClaimed(t *testing.T) {
	tm := setupTestHandler(t)

	tm.store.EXPECT().
		GetWebhookByID(gomock.Any(), "wh-1").
		Return(&schema.Webhook{ID: "wh-1", EventTypes: datatypes.JSON(`["*"]`)}, nil)
	tm.secrets.EXPECT().
		ClaimLatest(gomock.Any(), "wh-1").
		Return(&secrets.ClaimResult{AlreadyClaimed: true, Last4: "wxyz"}, nil)

	w := tm.doJSON(t, http.MethodPost, "/api/v1/webhooks/wh-1/secret", gin.H{
		"action": "claim_latest",
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["already_claimed"])
	assert.NotContains(t, resp, "secret")
	assert.Equal(t, "wxyz", resp["secret_last4"])
}

func TestSecretEndpointRejectsJWTAuth(t *testing.T) {
	tm := setupTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/wh-1/secret",
		bytes.NewReader([]byte(`{"action":"claim_latest"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer some.jwt.token")
	w := httptest.NewRecorder()
	tm.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRotateSecret(t *testing.T) {
	tm := setupTestHandler(t)

	tm.store.EXPECT().
		GetWebhookByID(gomock.Any(), "wh-1").
		Return(&schema.Webhook{ID: "wh-1", EventTypes: datatypes.JSON(`["*"]`)}, nil)
	tm.secrets.EXPECT().
		Rotate(gomock.Any(), "wh-1").
		Return(&secrets.CreateResult{Created: true, Plaintext: "whsec_new", Last4: "4321"}, nil)

	w := tm.doJSON(t, http.MethodPost, "/api/v1/webhooks/wh-1/secret/rotate", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "whsec_new", resp["secret"])
}

func TestRotateSecretWithoutSecret(t *testing.T) {
	tm := setupTestHandler(t)

	tm.store.EXPECT().
		GetWebhookByID(gomock.Any(), "wh-1").
		Return(&schema.Webhook{ID: "wh-1", EventTypes: datatypes.JSON(`["*"]`)}, nil)
	tm.secrets.EXPECT().
		Rotate(gomock.Any(), "wh-1").
		Return(nil, domain.ErrSecretNotFound)

	w := tm.doJSON(t, http.MethodPost, "/api/v1/webhooks/wh-1/secret/rotate", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestValidateURL(t *testing.T) {
	tm := setupTestHandler(t)

	tm.validator.EXPECT().
		ValidateForWorkspace(gomock.Any(), "https://localhost/hook", gomock.Any()).
		Return(safeurl.Result{Valid: false, Reason: "hostname is blocked"})

	w := tm.doJSON(t, http.MethodPost, "/api/v1/urls/validate", gin.H{
		"url": "https://localhost/hook",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"valid":false,"reason":"hostname is blocked"}`, w.Body.String())
}

func TestListLogs(t *testing.T) {
	tm := setupTestHandler(t)

	status := 200
	tm.store.EXPECT().
		GetWebhookByID(gomock.Any(), "wh-1").
		Return(&schema.Webhook{ID: "wh-1", EventTypes: datatypes.JSON(`["*"]`)}, nil)
	tm.store.EXPECT().
		ListWebhookLogs(gomock.Any(), "wh-1", 2, uint64(20)).
		Return([]*schema.WebhookLog{
			{ID: 12, DeliveryID: "d-2", EventID: "evt-2", Success: true, ResponseStatus: &status},
			{ID: 11, DeliveryID: "d-1", EventID: "evt-1", SkipReason: schema.SkipReasonFiltered},
		}, uint64(11), nil)

	w := tm.doJSON(t, http.MethodGet, "/api/v1/webhooks/wh-1/logs?limit=2&cursor=20", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	logs := resp["logs"].([]interface{})
	assert.Len(t, logs, 2)
	assert.Equal(t, float64(11), resp["next_cursor"])
}

func TestListLogsUnknownWebhook(t *testing.T) {
	tm := setupTestHandler(t)

	tm.store.EXPECT().GetWebhookByID(gomock.Any(), "wh-404").Return(nil, nil)

	w := tm.doJSON(t, http.MethodGet, "/api/v1/webhooks/wh-404/logs", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetConditions(t *testing.T) {
	tm := setupTestHandler(t)

	tm.store.EXPECT().
		GetWebhookByID(gomock.Any(), "wh-1").
		Return(&schema.Webhook{ID: "wh-1", EventTypes: datatypes.JSON(`["*"]`)}, nil)

	var replaced []*schema.WebhookCondition
	tm.store.EXPECT().
		ReplaceWebhookConditions(gomock.Any(), "wh-1", gomock.Any()).
		DoAndReturn(func(_ interface{}, _ string, conds []*schema.WebhookCondition) error {
			replaced = conds
			return nil
		})

	w := tm.doJSON(t, http.MethodPut, "/api/v1/webhooks/wh-1/conditions", []gin.H{
		{"field_path": "status", "operator": "equals", "value": "paid"},
		{"field_path": "amount", "operator": "greater_than", "value": "100", "logic_operator": "or"},
	})

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, replaced, 2)
	assert.Equal(t, 0, replaced[0].Position)
	assert.Equal(t, schema.ConditionLogicAnd, replaced[0].LogicOperator)
	assert.Equal(t, schema.ConditionLogicOr, replaced[1].LogicOperator)
	assert.Equal(t, "wh-1", replaced[1].WebhookID)
}
