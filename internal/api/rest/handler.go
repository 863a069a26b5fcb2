package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/flowsend/webhook-engine/internal/api/rest/dto"
	"github.com/flowsend/webhook-engine/internal/delivery"
	"github.com/flowsend/webhook-engine/internal/domain"
	"github.com/flowsend/webhook-engine/internal/safeurl"
	"github.com/flowsend/webhook-engine/internal/secrets"
	"github.com/flowsend/webhook-engine/internal/store"
	"github.com/flowsend/webhook-engine/internal/store/schema"
)

//go:generate mockgen -source=handler.go -destination=../../mocks/api.go -package=mocks -mock_names=DeliveryExecutor=MockDeliveryExecutor,SecretService=MockSecretService,URLValidator=MockURLValidator

// DeliveryExecutor runs delivery attempts on behalf of the API
type DeliveryExecutor interface {
	Deliver(ctx context.Context, webhookID, eventType string, payload map[string]interface{}, opts delivery.Options) (*delivery.Outcome, error)
}

// SecretService issues, disclosures, and rotates signing secrets
type SecretService interface {
	CreateIfMissing(ctx context.Context, webhookID string) (*secrets.CreateResult, error)
	ClaimLatest(ctx context.Context, webhookID string) (*secrets.ClaimResult, error)
	Rotate(ctx context.Context, webhookID string) (*secrets.CreateResult, error)
}

// URLValidator checks target URLs against the outbound safety policy
type URLValidator interface {
	ValidateForWorkspace(ctx context.Context, rawURL string, allowedDomains []string) safeurl.Result
}

// Handler defines the REST API surface
type Handler interface {
	// CreateDelivery performs a synchronous delivery attempt
	// POST /api/v1/deliveries
	CreateDelivery(c *gin.Context)

	// CreateWebhook registers a new webhook endpoint
	// POST /api/v1/webhooks
	CreateWebhook(c *gin.Context)

	// ListWebhooks lists a workspace's webhooks
	// GET /api/v1/webhooks?workspace_id=<id>
	ListWebhooks(c *gin.Context)

	// GetWebhook retrieves a single webhook
	// GET /api/v1/webhooks/:id
	GetWebhook(c *gin.Context)

	// SecretAction creates or claims a webhook's signing secret
	// POST /api/v1/webhooks/:id/secret
	SecretAction(c *gin.Context)

	// RotateSecret replaces a webhook's signing secret, keeping the old one
	// valid for the grace window
	// POST /api/v1/webhooks/:id/secret/rotate
	RotateSecret(c *gin.Context)

	// SetConditions replaces a webhook's delivery filters
	// PUT /api/v1/webhooks/:id/conditions
	SetConditions(c *gin.Context)

	// ListLogs pages through a webhook's delivery logs
	// GET /api/v1/webhooks/:id/logs?limit=<n>&cursor=<id>
	ListLogs(c *gin.Context)

	// ValidateURL checks a URL against the outbound safety policy
	// POST /api/v1/urls/validate
	ValidateURL(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	store     store.Store
	executor  DeliveryExecutor
	secrets   SecretService
	validator URLValidator
}

// NewHandler creates a new REST handler
func NewHandler(st store.Store, executor DeliveryExecutor, secretService SecretService, validator URLValidator) Handler {
	return &handler{
		store:     st,
		executor:  executor,
		secrets:   secretService,
		validator: validator,
	}
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateDelivery performs a synchronous delivery attempt. Endpoint failures
// come back as ok=false in a 200 body; only malformed requests, unknown or
// inactive webhooks, and rate limit rejections are non-2xx.
func (h *handler) CreateDelivery(c *gin.Context) {
	var req dto.DeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	outcome, err := h.executor.Deliver(c.Request.Context(), req.WebhookID, req.EventType, req.Payload, delivery.Options{})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrWebhookNotFound):
			respondNotFound(c, "Webhook not found")
			return
		case errors.Is(err, domain.ErrWebhookInactive):
			respondBadRequest(c, "Webhook is inactive")
			return
		case errors.Is(err, domain.ErrRateLimited):
			respondRateLimited(c)
			return
		case errors.Is(err, domain.ErrCircuitOpen), errors.Is(err, domain.ErrURLBlocked):
			// The attempt was admitted and recorded; the skip is data
		default:
			respondInternalError(c, err, "Delivery failed",
				zap.String("webhook_id", req.WebhookID),
			)
			return
		}
	}

	resp := dto.DeliveryResponse{
		OK:         outcome.Success,
		DeliveryID: outcome.DeliveryID,
		EventID:    outcome.EventID,
		Status:     outcome.StatusCode,
		SkipReason: outcome.SkipReason,
		WillRetry:  outcome.Retryable,
	}
	if outcome.Log != nil {
		resp.DurationMs = outcome.Log.DurationMs
		resp.ResponseBody = outcome.Log.ResponseBody
		resp.Error = outcome.Log.ErrorMessage
		resp.AttemptNumber = outcome.Log.AttemptNumber
	}

	c.JSON(http.StatusOK, resp)
}

// CreateWebhook registers a new webhook endpoint, validates its target URL,
// stores its filters, and mints its signing secret. The secret plaintext is
// returned on this response only.
func (h *handler) CreateWebhook(c *gin.Context) {
	var req dto.CreateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	verdict := h.validator.ValidateForWorkspace(c.Request.Context(), req.TargetURL, nil)
	if !verdict.Valid {
		respondValidationError(c, fmt.Sprintf("target_url rejected: %s", verdict.Reason))
		return
	}

	if req.TimeoutSeconds < 0 || req.TimeoutSeconds > domain.MaxDeliveryTimeoutSeconds {
		respondValidationError(c, fmt.Sprintf("timeout_seconds must be between 0 and %d", domain.MaxDeliveryTimeoutSeconds))
		return
	}

	conds, err := mapConditions(req.Conditions)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	var template datatypes.JSON
	if req.Template != nil {
		raw, err := json.Marshal(req.Template)
		if err != nil {
			respondValidationError(c, "template is not valid JSON")
			return
		}
		template = raw
	}

	timeout := req.TimeoutSeconds
	if timeout == 0 {
		timeout = domain.DefaultDeliveryTimeoutSeconds
	}

	webhook, err := h.store.CreateWebhook(c.Request.Context(), store.CreateWebhookInput{
		ID:                uuid.NewString(),
		WorkspaceID:       req.WorkspaceID,
		TargetURL:         req.TargetURL,
		EventTypes:        req.EventTypes,
		CustomHeaders:     req.CustomHeaders,
		TimeoutSeconds:    timeout,
		ConditionsEnabled: len(conds) > 0,
		TransformEnabled:  template != nil,
		Template:          template,
	})
	if err != nil {
		respondInternalError(c, err, "Failed to create webhook")
		return
	}

	if len(conds) > 0 {
		for _, cond := range conds {
			cond.WebhookID = webhook.ID
		}
		if err := h.store.ReplaceWebhookConditions(c.Request.Context(), webhook.ID, conds); err != nil {
			respondInternalError(c, err, "Failed to store webhook conditions",
				zap.String("webhook_id", webhook.ID),
			)
			return
		}
	}

	secret, err := h.secrets.CreateIfMissing(c.Request.Context(), webhook.ID)
	if err != nil {
		respondInternalError(c, err, "Failed to create signing secret",
			zap.String("webhook_id", webhook.ID),
		)
		return
	}

	resp, err := mapWebhook(webhook)
	if err != nil {
		respondInternalError(c, err, "Failed to map webhook")
		return
	}
	resp.Secret = secret.Plaintext
	resp.SecretLast4 = secret.Last4

	c.JSON(http.StatusCreated, resp)
}

// ListWebhooks lists a workspace's webhooks
func (h *handler) ListWebhooks(c *gin.Context) {
	workspaceID := c.Query("workspace_id")
	if workspaceID == "" {
		respondBadRequest(c, "workspace_id is required")
		return
	}

	webhooks, err := h.store.ListWebhooksByWorkspace(c.Request.Context(), workspaceID)
	if err != nil {
		respondInternalError(c, err, "Failed to list webhooks")
		return
	}

	resp := dto.WebhookListResponse{Webhooks: make([]dto.WebhookResponse, 0, len(webhooks))}
	for _, webhook := range webhooks {
		mapped, err := mapWebhook(webhook)
		if err != nil {
			respondInternalError(c, err, "Failed to map webhook")
			return
		}
		resp.Webhooks = append(resp.Webhooks, *mapped)
	}
	resp.Total = len(resp.Webhooks)

	c.JSON(http.StatusOK, resp)
}

// GetWebhook retrieves a single webhook
func (h *handler) GetWebhook(c *gin.Context) {
	webhook, ok := h.loadWebhook(c)
	if !ok {
		return
	}

	resp, err := mapWebhook(webhook)
	if err != nil {
		respondInternalError(c, err, "Failed to map webhook")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SecretAction creates or claims a webhook's signing secret. Claiming
// discloses the plaintext exactly once; every later claim reports
// already_claimed with the fingerprint only.
func (h *handler) SecretAction(c *gin.Context) {
	webhook, ok := h.loadWebhook(c)
	if !ok {
		return
	}

	var req dto.SecretActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	switch req.Action {
	case "create_if_missing":
		result, err := h.secrets.CreateIfMissing(c.Request.Context(), webhook.ID)
		if err != nil {
			respondInternalError(c, err, "Failed to create signing secret",
				zap.String("webhook_id", webhook.ID),
			)
			return
		}
		c.JSON(http.StatusOK, dto.SecretResponse{
			Secret:      result.Plaintext,
			SecretLast4: result.Last4,
			Created:     result.Created,
		})

	case "claim_latest":
		result, err := h.secrets.ClaimLatest(c.Request.Context(), webhook.ID)
		if err != nil {
			if errors.Is(err, domain.ErrSecretNotFound) {
				respondNotFound(c, "Webhook has no signing secret")
				return
			}
			respondInternalError(c, err, "Failed to claim signing secret",
				zap.String("webhook_id", webhook.ID),
			)
			return
		}
		c.JSON(http.StatusOK, dto.SecretResponse{
			Secret:         result.Plaintext,
			SecretLast4:    result.Last4,
			AlreadyClaimed: result.AlreadyClaimed,
		})

	default:
		respondValidationError(c, fmt.Sprintf("unknown action: %s", req.Action))
	}
}

// RotateSecret replaces a webhook's signing secret. The outgoing secret keeps
// signing deliveries until its grace window closes.
func (h *handler) RotateSecret(c *gin.Context) {
	webhook, ok := h.loadWebhook(c)
	if !ok {
		return
	}

	result, err := h.secrets.Rotate(c.Request.Context(), webhook.ID)
	if err != nil {
		if errors.Is(err, domain.ErrSecretNotFound) {
			respondNotFound(c, "Webhook has no signing secret")
			return
		}
		respondInternalError(c, err, "Failed to rotate signing secret",
			zap.String("webhook_id", webhook.ID),
		)
		return
	}

	c.JSON(http.StatusOK, dto.SecretResponse{
		Secret:      result.Plaintext,
		SecretLast4: result.Last4,
		Created:     result.Created,
	})
}

// SetConditions replaces a webhook's delivery filters
func (h *handler) SetConditions(c *gin.Context) {
	webhook, ok := h.loadWebhook(c)
	if !ok {
		return
	}

	var req []dto.ConditionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	conds, err := mapConditions(req)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}
	for _, cond := range conds {
		cond.WebhookID = webhook.ID
	}

	if err := h.store.ReplaceWebhookConditions(c.Request.Context(), webhook.ID, conds); err != nil {
		respondInternalError(c, err, "Failed to store webhook conditions",
			zap.String("webhook_id", webhook.ID),
		)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(conds)})
}

// ListLogs pages through a webhook's delivery logs, newest first
func (h *handler) ListLogs(c *gin.Context) {
	webhook, ok := h.loadWebhook(c)
	if !ok {
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			respondBadRequest(c, "limit must be an integer between 1 and 500")
			return
		}
		limit = parsed
	}

	var cursor uint64
	if raw := c.Query("cursor"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondBadRequest(c, "cursor must be a non-negative integer")
			return
		}
		cursor = parsed
	}

	logs, nextCursor, err := h.store.ListWebhookLogs(c.Request.Context(), webhook.ID, limit, cursor)
	if err != nil {
		respondInternalError(c, err, "Failed to list webhook logs",
			zap.String("webhook_id", webhook.ID),
		)
		return
	}

	resp := dto.LogListResponse{
		Logs:       make([]dto.LogEntryDTO, 0, len(logs)),
		NextCursor: nextCursor,
	}
	for _, log := range logs {
		resp.Logs = append(resp.Logs, dto.LogEntryDTO{
			ID:             log.ID,
			DeliveryID:     log.DeliveryID,
			EventID:        log.EventID,
			EventType:      log.EventType,
			ResponseStatus: log.ResponseStatus,
			ResponseBody:   log.ResponseBody,
			ErrorMessage:   log.ErrorMessage,
			Success:        log.Success,
			SkipReason:     log.SkipReason,
			DurationMs:     log.DurationMs,
			AttemptNumber:  log.AttemptNumber,
			CreatedAt:      log.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// ValidateURL checks a URL against the outbound safety policy without
// registering anything
func (h *handler) ValidateURL(c *gin.Context) {
	var req dto.ValidateURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	verdict := h.validator.ValidateForWorkspace(c.Request.Context(), req.URL, req.AllowedDomains)

	c.JSON(http.StatusOK, dto.ValidateURLResponse{
		Valid:  verdict.Valid,
		Reason: verdict.Reason,
	})
}

// loadWebhook resolves the :id path parameter, responding 404 when the
// webhook does not exist
func (h *handler) loadWebhook(c *gin.Context) (*schema.Webhook, bool) {
	id := c.Param("id")

	webhook, err := h.store.GetWebhookByID(c.Request.Context(), id)
	if err != nil {
		respondInternalError(c, err, "Failed to load webhook", zap.String("webhook_id", id))
		return nil, false
	}
	if webhook == nil {
		respondNotFound(c, "Webhook not found")
		return nil, false
	}

	return webhook, true
}

// mapConditions validates and converts request filters to schema rows
func mapConditions(in []dto.ConditionDTO) ([]*schema.WebhookCondition, error) {
	conds := make([]*schema.WebhookCondition, 0, len(in))
	for i, c := range in {
		operator := schema.ConditionOperator(c.Operator)
		switch operator {
		case schema.ConditionOperatorEquals, schema.ConditionOperatorContains,
			schema.ConditionOperatorGreaterThan, schema.ConditionOperatorLessThan,
			schema.ConditionOperatorIsEmpty, schema.ConditionOperatorIsNotEmpty:
		default:
			return nil, fmt.Errorf("conditions[%d]: unknown operator %q", i, c.Operator)
		}

		logic := schema.ConditionLogicAnd
		switch schema.ConditionLogic(c.LogicOperator) {
		case schema.ConditionLogicOr:
			logic = schema.ConditionLogicOr
		case schema.ConditionLogicAnd, "":
		default:
			return nil, fmt.Errorf("conditions[%d]: unknown logic_operator %q", i, c.LogicOperator)
		}

		conds = append(conds, &schema.WebhookCondition{
			Position:      i,
			FieldPath:     c.FieldPath,
			Operator:      operator,
			Value:         c.Value,
			LogicOperator: logic,
		})
	}
	return conds, nil
}

// mapWebhook converts a schema row to its response form
func mapWebhook(webhook *schema.Webhook) (*dto.WebhookResponse, error) {
	var eventTypes []string
	if err := json.Unmarshal(webhook.EventTypes, &eventTypes); err != nil {
		return nil, fmt.Errorf("failed to parse event types: %w", err)
	}

	var customHeaders map[string]string
	if len(webhook.CustomHeaders) > 0 {
		if err := json.Unmarshal(webhook.CustomHeaders, &customHeaders); err != nil {
			return nil, fmt.Errorf("failed to parse custom headers: %w", err)
		}
	}

	return &dto.WebhookResponse{
		ID:             webhook.ID,
		WorkspaceID:    webhook.WorkspaceID,
		TargetURL:      webhook.TargetURL,
		IsActive:       webhook.IsActive,
		EventTypes:     eventTypes,
		CustomHeaders:  customHeaders,
		TimeoutSeconds: webhook.TimeoutSeconds,
		CreatedAt:      webhook.CreatedAt,
	}, nil
}
