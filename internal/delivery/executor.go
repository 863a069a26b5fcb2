package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/flowsend/webhook-engine/internal/adapter"
	"github.com/flowsend/webhook-engine/internal/breaker"
	"github.com/flowsend/webhook-engine/internal/conditions"
	"github.com/flowsend/webhook-engine/internal/domain"
	"github.com/flowsend/webhook-engine/internal/logger"
	"github.com/flowsend/webhook-engine/internal/ratelimit"
	"github.com/flowsend/webhook-engine/internal/retry"
	"github.com/flowsend/webhook-engine/internal/safeurl"
	"github.com/flowsend/webhook-engine/internal/secrets"
	"github.com/flowsend/webhook-engine/internal/store"
	"github.com/flowsend/webhook-engine/internal/store/schema"
	"github.com/flowsend/webhook-engine/internal/transform"
)

// endpointDeliveries is the rate limit endpoint key for delivery admission
const endpointDeliveries = "deliveries"

// Options tunes a single delivery attempt
type Options struct {
	// EventID identifies the delivery across retries. A fresh ULID is
	// generated when empty.
	EventID string
	// AttemptNumber is 1 for the original delivery and increments per retry
	AttemptNumber int
	// FromRetry marks a redelivery driven by the retry worker. Redeliveries
	// bypass workspace rate limit admission and never enqueue themselves;
	// the worker owns rescheduling.
	FromRetry bool
}

// Outcome describes what happened to one delivery attempt
type Outcome struct {
	// DeliveryID is the unique identifier sent with this attempt
	DeliveryID string
	// EventID identifies the delivery across retries
	EventID string
	// Success means the endpoint acknowledged with a 2xx
	Success bool
	// StatusCode is the HTTP response status, if a response was received
	StatusCode *int
	// SkipReason is set when the attempt ended without an HTTP call
	SkipReason string
	// Retryable reports whether a failed attempt is worth retrying
	Retryable bool
	// Log is the audit record written for this attempt, if any
	Log *schema.WebhookLog
}

// Config holds executor configuration
type Config struct {
	// UserAgent is sent with every outbound request
	UserAgent string
}

// Executor orchestrates a webhook delivery attempt end to end: admission,
// safety validation, filtering, transformation, signing, the HTTP call, and
// the bookkeeping that follows it.
type Executor struct {
	config     Config
	store      store.Store
	secrets    *secrets.Manager
	limiter    *ratelimit.Limiter
	burst      *ratelimit.BurstGuard
	breaker    *breaker.Manager
	validator  *safeurl.Validator
	conditions *conditions.Evaluator
	transform  *transform.Transformer
	enqueuer   *retry.Enqueuer
	http       adapter.HTTPClient
	clock      adapter.Clock
}

// NewExecutor creates a delivery executor
func NewExecutor(
	config Config,
	st store.Store,
	secretManager *secrets.Manager,
	limiter *ratelimit.Limiter,
	burst *ratelimit.BurstGuard,
	breakerManager *breaker.Manager,
	validator *safeurl.Validator,
	evaluator *conditions.Evaluator,
	transformer *transform.Transformer,
	enqueuer *retry.Enqueuer,
	httpClient adapter.HTTPClient,
	clock adapter.Clock,
) *Executor {
	if clock == nil {
		clock = adapter.NewClock()
	}
	return &Executor{
		config:     config,
		store:      st,
		secrets:    secretManager,
		limiter:    limiter,
		burst:      burst,
		breaker:    breakerManager,
		validator:  validator,
		conditions: evaluator,
		transform:  transformer,
		enqueuer:   enqueuer,
		http:       httpClient,
		clock:      clock,
	}
}

// Deliver performs one delivery attempt. Per attempt it writes at most one
// log row, applies at most one circuit breaker outcome, and schedules at most
// one retry entry. Unknown or inactive webhooks produce no side effects.
func (e *Executor) Deliver(ctx context.Context, webhookID, eventType string, payload map[string]interface{}, opts Options) (*Outcome, error) {
	webhook, err := e.store.GetWebhookByID(ctx, webhookID)
	if err != nil {
		return nil, fmt.Errorf("failed to load webhook: %w", err)
	}
	if webhook == nil {
		return nil, domain.ErrWebhookNotFound
	}
	if !webhook.IsActive {
		return nil, domain.ErrWebhookInactive
	}

	outcome := &Outcome{
		DeliveryID: uuid.NewString(),
		EventID:    opts.EventID,
	}
	if outcome.EventID == "" {
		outcome.EventID = ulid.MustNewDefault(e.clock.Now()).String()
	}
	attemptNumber := opts.AttemptNumber
	if attemptNumber <= 0 {
		attemptNumber = 1
	}

	if !opts.FromRetry {
		decision := e.limiter.Check(ctx, ratelimit.PerWorkspace, webhook.WorkspaceID, endpointDeliveries)
		if !decision.Allowed {
			return nil, domain.ErrRateLimited
		}
		if e.burst != nil && !e.burst.Allow(ctx, webhookID) {
			return nil, domain.ErrRateLimited
		}
	}

	subscribed, err := subscribesTo(webhook, eventType)
	if err != nil {
		return nil, fmt.Errorf("failed to parse webhook subscriptions: %w", err)
	}
	if !subscribed {
		outcome.SkipReason = "not_subscribed"
		return outcome, nil
	}

	allowed, breakerState, err := e.breaker.Allow(ctx, webhookID)
	if err != nil {
		return nil, fmt.Errorf("failed to check circuit breaker: %w", err)
	}
	if !allowed {
		logger.WarnCtx(ctx, "Delivery skipped, circuit breaker open",
			zap.String("webhook_id", webhookID),
			zap.String("event_id", outcome.EventID),
			zap.String("breaker_state", string(breakerState)),
		)
		outcome.SkipReason = schema.SkipReasonCircuitOpen
		e.writeSkippedLog(ctx, webhook, outcome, eventType, payload, attemptNumber, "circuit breaker is open")
		return outcome, domain.ErrCircuitOpen
	}

	// The target is re-validated on every attempt so a DNS record that
	// changed since registration cannot steer the delivery inside the
	// network
	verdict := e.validator.Validate(ctx, webhook.TargetURL)
	if !verdict.Valid {
		logger.WarnCtx(ctx, "Delivery blocked by URL safety validation",
			zap.String("webhook_id", webhookID),
			zap.String("event_id", outcome.EventID),
			zap.String("reason", verdict.Reason),
		)
		outcome.SkipReason = schema.SkipReasonURLBlocked
		e.writeSkippedLog(ctx, webhook, outcome, eventType, payload, attemptNumber, verdict.Reason)
		return outcome, domain.ErrURLBlocked
	}

	if !e.conditions.Evaluate(ctx, webhook, payload) {
		outcome.SkipReason = schema.SkipReasonFiltered
		e.writeSkippedLog(ctx, webhook, outcome, eventType, payload, attemptNumber, "")
		return outcome, nil
	}

	outbound := e.transform.Apply(ctx, webhook, payload)
	body, err := json.Marshal(outbound)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal delivery payload: %w", err)
	}

	deliverySecrets, err := e.secrets.ForDelivery(ctx, webhookID)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing secrets: %w", err)
	}

	headers, err := e.buildHeaders(webhook, outcome, deliverySecrets, body)
	if err != nil {
		return nil, err
	}

	timeout := deliveryTimeout(webhook)
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := e.clock.Now()
	resp, httpErr := e.http.PostWithHeaders(callCtx, webhook.TargetURL, headers, bytes.NewReader(body))
	duration := e.clock.Since(start)

	log := &schema.WebhookLog{
		WebhookID:     webhookID,
		DeliveryID:    outcome.DeliveryID,
		EventID:       outcome.EventID,
		EventType:     eventType,
		Payload:       body,
		DurationMs:    duration.Milliseconds(),
		AttemptNumber: attemptNumber,
	}

	if httpErr != nil {
		// Timeouts and connection failures count against the endpoint the
		// same as error responses
		log.ErrorMessage = httpErr.Error()
		outcome.Retryable = true
	} else {
		status := resp.StatusCode
		log.ResponseStatus = &status
		log.ResponseBody = readCappedBody(resp.Body)
		outcome.StatusCode = &status

		if status >= 200 && status < 300 {
			log.Success = true
			outcome.Success = true
		} else {
			log.ErrorMessage = fmt.Sprintf("endpoint returned %d", status)
			outcome.Retryable = true
		}
	}

	if err := e.store.CreateWebhookLog(ctx, log); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to write delivery log: %w", err),
			zap.String("webhook_id", webhookID),
			zap.String("delivery_id", outcome.DeliveryID),
		)
	} else {
		outcome.Log = log
	}

	if outcome.Success {
		if err := e.breaker.RecordSuccess(ctx, webhookID); err != nil {
			logger.ErrorCtx(ctx, err, zap.String("webhook_id", webhookID))
		}
		logger.InfoCtx(ctx, "Delivery succeeded",
			zap.String("webhook_id", webhookID),
			zap.String("event_id", outcome.EventID),
			zap.String("delivery_id", outcome.DeliveryID),
			zap.Intp("status", outcome.StatusCode),
			zap.Duration("duration", duration),
		)
		return outcome, nil
	}

	if err := e.breaker.RecordFailure(ctx, webhookID); err != nil {
		logger.ErrorCtx(ctx, err, zap.String("webhook_id", webhookID))
	}

	logger.WarnCtx(ctx, "Delivery failed",
		zap.String("webhook_id", webhookID),
		zap.String("event_id", outcome.EventID),
		zap.String("delivery_id", outcome.DeliveryID),
		zap.Intp("status", outcome.StatusCode),
		zap.String("error", log.ErrorMessage),
	)

	if !opts.FromRetry {
		var logID *uint64
		if outcome.Log != nil {
			logID = &outcome.Log.ID
		}
		// Snapshot the pre-transform payload so redeliveries run the full
		// pipeline against the original event
		snapshot, marshalErr := json.Marshal(payload)
		if marshalErr != nil {
			snapshot = body
		}
		if _, err := e.enqueuer.Enqueue(ctx, retry.EnqueueInput{
			WebhookID:    webhookID,
			LogID:        logID,
			EventID:      outcome.EventID,
			EventType:    eventType,
			Payload:      snapshot,
			FailureError: log.ErrorMessage,
			StatusCode:   outcome.StatusCode,
		}); err != nil {
			logger.ErrorCtx(ctx, err, zap.String("webhook_id", webhookID))
		}
	}

	return outcome, nil
}

// Redeliver performs a redelivery attempt for a claimed retry entry
func (e *Executor) Redeliver(ctx context.Context, entry *schema.RetryEntry) retry.Result {
	var payload map[string]interface{}
	if err := json.Unmarshal(entry.Payload, &payload); err != nil {
		return retry.Result{Error: fmt.Sprintf("corrupt payload snapshot: %v", err)}
	}

	outcome, err := e.Deliver(ctx, entry.WebhookID, entry.EventType, payload, Options{
		EventID:       entry.EventID,
		AttemptNumber: entry.AttemptNumber,
		FromRetry:     true,
	})
	if err != nil {
		switch {
		case outcome != nil && outcome.SkipReason == schema.SkipReasonCircuitOpen:
			// The endpoint may recover before the next attempt
			return retry.Result{Retryable: true, Error: err.Error()}
		default:
			// Unknown, inactive, or unsafe webhooks cannot be delivered to
			// no matter how often we retry
			return retry.Result{Error: err.Error()}
		}
	}

	if outcome.Success {
		return retry.Result{Success: true, StatusCode: outcome.StatusCode}
	}
	if outcome.SkipReason != "" {
		// Filtered or unsubscribed deliveries are settled, not failed
		return retry.Result{Error: "delivery skipped: " + outcome.SkipReason}
	}

	errMsg := ""
	if outcome.Log != nil {
		errMsg = outcome.Log.ErrorMessage
	}
	return retry.Result{
		Retryable:  outcome.Retryable,
		StatusCode: outcome.StatusCode,
		Error:      errMsg,
	}
}

// buildHeaders assembles the outbound header set. Custom webhook headers are
// applied first and reserved headers written last, so a webhook can never
// override signing or identification headers.
func (e *Executor) buildHeaders(webhook *schema.Webhook, outcome *Outcome, ds *secrets.DeliverySecrets, body []byte) (map[string]string, error) {
	headers := make(map[string]string)

	if len(webhook.CustomHeaders) > 0 {
		var custom map[string]string
		if err := json.Unmarshal(webhook.CustomHeaders, &custom); err != nil {
			return nil, fmt.Errorf("failed to parse custom headers: %w", err)
		}
		for name, value := range custom {
			if reservedHeader(name) {
				continue
			}
			headers[name] = value
		}
	}

	headers[HeaderContentType] = "application/json"
	headers[HeaderUserAgent] = e.config.UserAgent
	headers[HeaderDelivery] = outcome.DeliveryID
	headers[HeaderTimestamp] = strconv.FormatInt(e.clock.Now().UnixMilli(), 10)
	headers[HeaderSecret] = ds.Current
	headers[HeaderSignature] = Sign(ds.Current, body)
	if ds.Previous != "" {
		headers[HeaderSecretPrevious] = ds.Previous
	}

	return headers, nil
}

// writeSkippedLog records an attempt that ended before any HTTP call
func (e *Executor) writeSkippedLog(ctx context.Context, webhook *schema.Webhook, outcome *Outcome, eventType string, payload map[string]interface{}, attemptNumber int, errMsg string) {
	snapshot, err := json.Marshal(payload)
	if err != nil {
		snapshot = nil
	}

	log := &schema.WebhookLog{
		WebhookID:     webhook.ID,
		DeliveryID:    outcome.DeliveryID,
		EventID:       outcome.EventID,
		EventType:     eventType,
		Payload:       snapshot,
		ErrorMessage:  errMsg,
		SkipReason:    outcome.SkipReason,
		AttemptNumber: attemptNumber,
	}

	if err := e.store.CreateWebhookLog(ctx, log); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to write skipped delivery log: %w", err),
			zap.String("webhook_id", webhook.ID),
			zap.String("delivery_id", outcome.DeliveryID),
		)
		return
	}
	outcome.Log = log
}

// subscribesTo reports whether the webhook's subscription list covers the
// event type. A wildcard entry matches everything.
func subscribesTo(webhook *schema.Webhook, eventType string) (bool, error) {
	var eventTypes []string
	if err := json.Unmarshal(webhook.EventTypes, &eventTypes); err != nil {
		return false, err
	}

	for _, subscribed := range eventTypes {
		if subscribed == domain.EventTypeWildcard || subscribed == eventType {
			return true, nil
		}
	}
	return false, nil
}

// deliveryTimeout clamps the webhook's configured timeout to the platform
// bounds
func deliveryTimeout(webhook *schema.Webhook) time.Duration {
	seconds := webhook.TimeoutSeconds
	if seconds <= 0 {
		seconds = domain.DefaultDeliveryTimeoutSeconds
	}
	if seconds > domain.MaxDeliveryTimeoutSeconds {
		seconds = domain.MaxDeliveryTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second
}

// readCappedBody drains and closes a response body, retaining at most
// MaxResponseBodyBytes
func readCappedBody(body io.ReadCloser) string {
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(io.LimitReader(body, domain.MaxResponseBodyBytes))
	if err != nil {
		return ""
	}
	return string(data)
}
