package schema

import (
	"time"

	"gorm.io/datatypes"
)

// Skip reasons recorded when an attempt ends without an HTTP call
const (
	SkipReasonCircuitOpen = "circuit_open"
	SkipReasonURLBlocked  = "url_blocked"
	SkipReasonFiltered    = "filtered"
)

// WebhookLog represents the webhook_logs table - immutable per-attempt audit
// records. Response bodies are truncated before storage and the signing secret
// never appears here.
type WebhookLog struct {
	// ID is an auto-incrementing sequence number
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// WebhookID is the webhook this attempt was for
	WebhookID string `gorm:"column:webhook_id;not null;index;type:varchar(36)"`
	// DeliveryID is the unique identifier sent with the attempt
	DeliveryID string `gorm:"column:delivery_id;not null;type:varchar(36)"`
	// EventID identifies the original delivery across retries
	EventID string `gorm:"column:event_id;not null;index;type:varchar(36)"`
	// EventType is the type of event delivered
	EventType string `gorm:"column:event_type;not null;type:varchar(100)"`
	// Payload is the outbound payload snapshot
	Payload datatypes.JSON `gorm:"column:payload;type:jsonb"`
	// ResponseStatus is the HTTP status code returned by the endpoint
	ResponseStatus *int `gorm:"column:response_status"`
	// ResponseBody is the endpoint's response, capped at 4KB
	ResponseBody string `gorm:"column:response_body;type:text"`
	// ErrorMessage contains error details if the attempt failed
	ErrorMessage string `gorm:"column:error_message;type:text"`
	// Success indicates whether the endpoint acknowledged with a 2xx
	Success bool `gorm:"column:success;not null;default:false"`
	// SkipReason is set when no HTTP call was made (circuit open, filtered, blocked URL)
	SkipReason string `gorm:"column:skip_reason;type:varchar(50)"`
	// DurationMs is how long the HTTP call took
	DurationMs int64 `gorm:"column:duration_ms;not null;default:0"`
	// AttemptNumber is which attempt this was for the original delivery
	AttemptNumber int `gorm:"column:attempt_number;not null;default:1"`
	// CreatedAt is the timestamp of the attempt
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the WebhookLog model
func (WebhookLog) TableName() string {
	return "webhook_logs"
}
