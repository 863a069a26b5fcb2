package dto

import "time"

// CreateWebhookRequest registers a new delivery endpoint
type CreateWebhookRequest struct {
	WorkspaceID    string            `json:"workspace_id" binding:"required"`
	TargetURL      string            `json:"target_url" binding:"required"`
	EventTypes     []string          `json:"event_types" binding:"required,min=1"`
	CustomHeaders  map[string]string `json:"custom_headers,omitempty"`
	TimeoutSeconds int               `json:"timeout_seconds,omitempty"`
	Conditions     []ConditionDTO    `json:"conditions,omitempty"`
	Template       interface{}       `json:"template,omitempty"`
}

// ConditionDTO is one delivery filter in request or response form
type ConditionDTO struct {
	FieldPath     string `json:"field_path" binding:"required"`
	Operator      string `json:"operator" binding:"required"`
	Value         string `json:"value,omitempty"`
	LogicOperator string `json:"logic_operator,omitempty"`
}

// WebhookResponse describes a registered webhook. The signing secret never
// appears here; only its fingerprint does.
type WebhookResponse struct {
	ID             string            `json:"id"`
	WorkspaceID    string            `json:"workspace_id"`
	TargetURL      string            `json:"target_url"`
	IsActive       bool              `json:"is_active"`
	EventTypes     []string          `json:"event_types"`
	CustomHeaders  map[string]string `json:"custom_headers,omitempty"`
	TimeoutSeconds int               `json:"timeout_seconds"`
	SecretLast4    string            `json:"secret_last4,omitempty"`
	Secret         string            `json:"secret,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// WebhookListResponse wraps a workspace's webhooks
type WebhookListResponse struct {
	Webhooks []WebhookResponse `json:"webhooks"`
	Total    int               `json:"total"`
}

// DeliveryRequest asks for a synchronous delivery attempt
type DeliveryRequest struct {
	WebhookID string                 `json:"webhook_id" binding:"required"`
	EventType string                 `json:"event_type" binding:"required"`
	Payload   map[string]interface{} `json:"payload" binding:"required"`
	Timestamp *time.Time             `json:"timestamp,omitempty"`
}

// DeliveryResponse reports what happened to the attempt. Endpoint failures
// are data, not transport errors: ok=false with a 200 response.
type DeliveryResponse struct {
	OK            bool   `json:"ok"`
	DeliveryID    string `json:"delivery_id"`
	EventID       string `json:"event_id"`
	Status        *int   `json:"status,omitempty"`
	SkipReason    string `json:"skip_reason,omitempty"`
	ResponseBody  string `json:"response_body,omitempty"`
	Error         string `json:"error,omitempty"`
	DurationMs    int64  `json:"duration_ms"`
	WillRetry     bool   `json:"will_retry"`
	AttemptNumber int    `json:"attempt_number"`
}

// SecretActionRequest controls secret issuance and disclosure
type SecretActionRequest struct {
	Action string `json:"action" binding:"required,oneof=create_if_missing claim_latest"`
}

// SecretResponse carries a secret disclosure result. Secret is populated at
// most once per secret lifetime.
type SecretResponse struct {
	Secret         string `json:"secret,omitempty"`
	SecretLast4    string `json:"secret_last4"`
	Created        bool   `json:"created,omitempty"`
	AlreadyClaimed bool   `json:"already_claimed,omitempty"`
}

// ValidateURLRequest asks whether a target URL passes safety validation
type ValidateURLRequest struct {
	URL            string   `json:"url" binding:"required"`
	AllowedDomains []string `json:"allowed_domains,omitempty"`
}

// ValidateURLResponse is the validation verdict
type ValidateURLResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// LogEntryDTO is one delivery attempt audit record
type LogEntryDTO struct {
	ID             uint64    `json:"id"`
	DeliveryID     string    `json:"delivery_id"`
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	ResponseStatus *int      `json:"response_status,omitempty"`
	ResponseBody   string    `json:"response_body,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	Success        bool      `json:"success"`
	SkipReason     string    `json:"skip_reason,omitempty"`
	DurationMs     int64     `json:"duration_ms"`
	AttemptNumber  int       `json:"attempt_number"`
	CreatedAt      time.Time `json:"created_at"`
}

// LogListResponse is a page of delivery logs with cursor pagination
type LogListResponse struct {
	Logs       []LogEntryDTO `json:"logs"`
	NextCursor uint64        `json:"next_cursor,omitempty"`
}
