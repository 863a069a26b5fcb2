package schema

import "time"

// BreakerState is the health state of a webhook endpoint
type BreakerState string

const (
	// BreakerStateClosed allows deliveries to pass through
	BreakerStateClosed BreakerState = "closed"
	// BreakerStateOpen blocks all deliveries
	BreakerStateOpen BreakerState = "open"
	// BreakerStateHalfOpen allows probe deliveries to test recovery
	BreakerStateHalfOpen BreakerState = "half_open"
)

// CircuitBreakerState represents the circuit_breaker_states table - per-webhook
// endpoint health. Created lazily on first delivery and mutated atomically on
// every outcome.
type CircuitBreakerState struct {
	// ID is an auto-incrementing sequence number
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// WebhookID is the webhook this breaker guards
	WebhookID string `gorm:"column:webhook_id;not null;unique;type:varchar(36)"`
	// State is the current breaker state: closed, open, half_open
	State BreakerState `gorm:"column:state;not null;default:closed"`
	// ConsecutiveFailures counts failures since the last success
	ConsecutiveFailures int `gorm:"column:consecutive_failures;not null;default:0"`
	// ConsecutiveSuccesses counts successes since the last failure
	ConsecutiveSuccesses int `gorm:"column:consecutive_successes;not null;default:0"`
	// TotalFailures counts lifetime failures
	TotalFailures int64 `gorm:"column:total_failures;not null;default:0"`
	// TotalSuccesses counts lifetime successes
	TotalSuccesses int64 `gorm:"column:total_successes;not null;default:0"`
	// OpenedAt is when the breaker last opened
	OpenedAt *time.Time `gorm:"column:opened_at;type:timestamptz"`
	// HalfOpenedAt is when the breaker last started probing
	HalfOpenedAt *time.Time `gorm:"column:half_opened_at;type:timestamptz"`
	// LastFailureAt is the timestamp of the most recent failure
	LastFailureAt *time.Time `gorm:"column:last_failure_at;type:timestamptz"`
	// LastSuccessAt is the timestamp of the most recent success
	LastSuccessAt *time.Time `gorm:"column:last_success_at;type:timestamptz"`
	// CreatedAt is the timestamp when this state row was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this state row was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the CircuitBreakerState model
func (CircuitBreakerState) TableName() string {
	return "circuit_breaker_states"
}
