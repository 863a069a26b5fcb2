package schema

import (
	"time"

	"gorm.io/datatypes"
)

// RetryStatus is the lifecycle state of a retry queue entry
type RetryStatus string

const (
	// RetryStatusPending means the entry is waiting for its next attempt
	RetryStatusPending RetryStatus = "pending"
	// RetryStatusProcessing means a worker has claimed the entry
	RetryStatusProcessing RetryStatus = "processing"
	// RetryStatusSucceeded means a redelivery attempt succeeded
	RetryStatusSucceeded RetryStatus = "succeeded"
	// RetryStatusFailed means the last attempt failed but more remain
	RetryStatusFailed RetryStatus = "failed"
	// RetryStatusExhausted means no further attempts will be scheduled
	RetryStatusExhausted RetryStatus = "exhausted"
)

// Terminal reports whether the status admits no further attempts
func (s RetryStatus) Terminal() bool {
	return s == RetryStatusSucceeded || s == RetryStatusExhausted
}

// RetryEntry represents the webhook_retry_queue table - failed deliveries
// awaiting redelivery with exponential backoff.
type RetryEntry struct {
	// ID is an auto-incrementing sequence number
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// WebhookID is the webhook this entry redelivers to
	WebhookID string `gorm:"column:webhook_id;not null;index;type:varchar(36)"`
	// LogID references the log row of the attempt that created this entry
	LogID *uint64 `gorm:"column:log_id"`
	// EventID identifies the original delivery across its attempts
	EventID string `gorm:"column:event_id;not null;index;type:varchar(36)"`
	// EventType is the type of event being redelivered
	EventType string `gorm:"column:event_type;not null;type:varchar(100)"`
	// Payload is the event payload snapshot taken at enqueue time
	Payload datatypes.JSON `gorm:"column:payload;not null;type:jsonb"`
	// AttemptNumber is the delivery attempt this entry will perform
	AttemptNumber int `gorm:"column:attempt_number;not null;default:1"`
	// MaxAttempts is the ceiling after which the entry is exhausted
	MaxAttempts int `gorm:"column:max_attempts;not null;default:5"`
	// NextRetryAt is when the entry becomes due
	NextRetryAt time.Time `gorm:"column:next_retry_at;not null;index;type:timestamptz"`
	// Status is the current lifecycle state
	Status RetryStatus `gorm:"column:status;not null;default:pending;index"`
	// LastError contains error details from the most recent attempt
	LastError string `gorm:"column:last_error;type:text"`
	// LastStatusCode is the HTTP status of the most recent attempt, if any
	LastStatusCode *int `gorm:"column:last_status_code"`
	// ClaimedAt is the lease marker set when a worker claims the entry
	ClaimedAt *time.Time `gorm:"column:claimed_at;type:timestamptz"`
	// CreatedAt is the timestamp when this entry was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this entry was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the RetryEntry model
func (RetryEntry) TableName() string {
	return "webhook_retry_queue"
}
