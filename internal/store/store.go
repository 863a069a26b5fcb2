package store

import (
	"context"
	"time"

	"gorm.io/datatypes"

	"github.com/flowsend/webhook-engine/internal/store/schema"
)

//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore

// CreateWebhookInput carries the fields for registering a new webhook
type CreateWebhookInput struct {
	ID                string
	WorkspaceID       string
	TargetURL         string
	EventTypes        []string
	CustomHeaders     map[string]string
	TimeoutSeconds    int
	ConditionsEnabled bool
	TransformEnabled  bool
	Template          datatypes.JSON
}

// CreateRetryEntryInput carries the fields for scheduling a redelivery
type CreateRetryEntryInput struct {
	WebhookID     string
	LogID         *uint64
	EventID       string
	EventType     string
	Payload       datatypes.JSON
	AttemptNumber int
	MaxAttempts   int
	NextRetryAt   time.Time
	LastError     string
	LastStatus    *int
}

// RetryOutcome records the result of a processed retry attempt
type RetryOutcome struct {
	Status     schema.RetryStatus
	LastError  string
	LastStatus *int
}

// Store defines the interface for database operations
type Store interface {
	// CreateWebhook registers a new webhook endpoint
	CreateWebhook(ctx context.Context, input CreateWebhookInput) (*schema.Webhook, error)
	// GetWebhookByID retrieves a webhook by its ID
	GetWebhookByID(ctx context.Context, webhookID string) (*schema.Webhook, error)
	// ListWebhooksByWorkspace retrieves all webhooks for a workspace
	ListWebhooksByWorkspace(ctx context.Context, workspaceID string) ([]*schema.Webhook, error)

	// CreateWebhookSecret inserts a secret row for a webhook
	CreateWebhookSecret(ctx context.Context, secret *schema.WebhookSecret) error
	// GetCurrentSecret retrieves the newest non-retired secret for a webhook
	GetCurrentSecret(ctx context.Context, webhookID string) (*schema.WebhookSecret, error)
	// GetSecretsForDelivery retrieves the current secret plus any secret still inside
	// its rotation grace window, newest first
	GetSecretsForDelivery(ctx context.Context, webhookID string, now time.Time) ([]*schema.WebhookSecret, error)
	// MarkSecretClaimed stamps the secret as disclosed. Returns false when another
	// caller already claimed it.
	MarkSecretClaimed(ctx context.Context, secretID uint64, now time.Time) (bool, error)
	// RotateSecret retires the current secret with a grace expiry and inserts the
	// replacement in a single transaction
	RotateSecret(ctx context.Context, webhookID string, replacement *schema.WebhookSecret, graceExpiresAt time.Time) error

	// GetBreakerState retrieves the circuit breaker row for a webhook, or nil when
	// the webhook has never been delivered to
	GetBreakerState(ctx context.Context, webhookID string) (*schema.CircuitBreakerState, error)
	// WithBreakerState runs fn against the webhook's breaker row under a row-level
	// lock, creating the row on first use. Mutations made by fn are persisted when
	// fn returns nil.
	WithBreakerState(ctx context.Context, webhookID string, fn func(state *schema.CircuitBreakerState) error) error

	// GetConditionsByWebhookID retrieves a webhook's filter conditions ordered by position
	GetConditionsByWebhookID(ctx context.Context, webhookID string) ([]*schema.WebhookCondition, error)
	// ReplaceWebhookConditions atomically swaps a webhook's condition list
	ReplaceWebhookConditions(ctx context.Context, webhookID string, conditions []*schema.WebhookCondition) error

	// CreateWebhookLog appends an immutable delivery attempt record
	CreateWebhookLog(ctx context.Context, log *schema.WebhookLog) error
	// ListWebhookLogs retrieves attempt records for a webhook, newest first,
	// keyset-paginated on id. The returned cursor fetches the next page and
	// is zero when there are no further rows.
	ListWebhookLogs(ctx context.Context, webhookID string, limit int, cursor uint64) ([]*schema.WebhookLog, uint64, error)

	// CreateRetryEntry schedules a redelivery
	CreateRetryEntry(ctx context.Context, input CreateRetryEntryInput) (*schema.RetryEntry, error)
	// LatestRetryAttempt returns the highest attempt number recorded for an event
	// on a webhook, or 0 when none exists
	LatestRetryAttempt(ctx context.Context, webhookID, eventID string) (int, error)
	// ClaimDueRetryEntries atomically claims up to limit pending entries whose
	// next_retry_at has passed, moving them to processing
	ClaimDueRetryEntries(ctx context.Context, now time.Time, limit int) ([]*schema.RetryEntry, error)
	// MarkRetryEntry finalizes a claimed entry with a terminal or failed outcome
	MarkRetryEntry(ctx context.Context, entryID uint64, outcome RetryOutcome) error
	// RescheduleRetryEntry returns a claimed entry to pending with a bumped attempt
	// counter and a new due time
	RescheduleRetryEntry(ctx context.Context, entryID uint64, attemptNumber int, nextRetryAt time.Time, lastError string, lastStatus *int) error
	// ReleaseStaleClaims returns entries stuck in processing past the lease window
	// to pending so another worker can pick them up
	ReleaseStaleClaims(ctx context.Context, claimedBefore time.Time) (int64, error)
}
