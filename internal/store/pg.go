package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/flowsend/webhook-engine/internal/domain"
	"github.com/flowsend/webhook-engine/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// It accesses the underlying *sql.DB and sets the pool configuration.
// If any of the pool settings are 0 or empty, reasonable defaults are used:
//   - MaxOpenConns: 20 (if 0)
//   - MaxIdleConns: 5 (if 0)
//   - ConnMaxLifetime: 5 minutes (if 0)
//   - ConnMaxIdleTime: 10 minutes (if 0)
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
//
// Notes:
//   - database/sql treats MaxOpenConns=0 as "unlimited"
//   - database/sql treats MaxIdleConns=0 as "no idle connections"
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	// Set defaults if not provided
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// Ensure MaxIdleConns doesn't exceed MaxOpenConns
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// CreateWebhook registers a new webhook endpoint
func (s *pgStore) CreateWebhook(ctx context.Context, input CreateWebhookInput) (*schema.Webhook, error) {
	eventTypes, err := json.Marshal(input.EventTypes)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event types: %w", err)
	}

	headers := input.CustomHeaders
	if headers == nil {
		headers = map[string]string{}
	}
	customHeaders, err := json.Marshal(headers)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal custom headers: %w", err)
	}

	webhook := schema.Webhook{
		ID:                input.ID,
		WorkspaceID:       input.WorkspaceID,
		TargetURL:         input.TargetURL,
		IsActive:          true,
		EventTypes:        eventTypes,
		CustomHeaders:     customHeaders,
		TimeoutSeconds:    input.TimeoutSeconds,
		ConditionsEnabled: input.ConditionsEnabled,
		TransformEnabled:  input.TransformEnabled,
		Template:          input.Template,
	}

	if err := s.db.WithContext(ctx).Create(&webhook).Error; err != nil {
		return nil, fmt.Errorf("failed to create webhook: %w", err)
	}

	return &webhook, nil
}

// GetWebhookByID retrieves a webhook by its ID
func (s *pgStore) GetWebhookByID(ctx context.Context, webhookID string) (*schema.Webhook, error) {
	var webhook schema.Webhook
	err := s.db.WithContext(ctx).Where("id = ?", webhookID).First(&webhook).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get webhook: %w", err)
	}

	return &webhook, nil
}

// ListWebhooksByWorkspace retrieves all webhooks for a workspace
func (s *pgStore) ListWebhooksByWorkspace(ctx context.Context, workspaceID string) ([]*schema.Webhook, error) {
	var webhooks []*schema.Webhook
	err := s.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").
		Find(&webhooks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}

	return webhooks, nil
}

// CreateWebhookSecret inserts a secret row for a webhook
func (s *pgStore) CreateWebhookSecret(ctx context.Context, secret *schema.WebhookSecret) error {
	if err := s.db.WithContext(ctx).Create(secret).Error; err != nil {
		return fmt.Errorf("failed to create webhook secret: %w", err)
	}
	return nil
}

// GetCurrentSecret retrieves the newest non-retired secret for a webhook
func (s *pgStore) GetCurrentSecret(ctx context.Context, webhookID string) (*schema.WebhookSecret, error) {
	var secret schema.WebhookSecret
	err := s.db.WithContext(ctx).
		Where("webhook_id = ? AND grace_expires_at IS NULL", webhookID).
		Order("id DESC").
		First(&secret).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get current secret: %w", err)
	}

	return &secret, nil
}

// GetSecretsForDelivery retrieves the current secret plus any secret still inside
// its rotation grace window, newest first
func (s *pgStore) GetSecretsForDelivery(ctx context.Context, webhookID string, now time.Time) ([]*schema.WebhookSecret, error) {
	var secrets []*schema.WebhookSecret
	err := s.db.WithContext(ctx).
		Where("webhook_id = ? AND (grace_expires_at IS NULL OR grace_expires_at > ?)", webhookID, now).
		Order("id DESC").
		Find(&secrets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get secrets for delivery: %w", err)
	}

	return secrets, nil
}

// MarkSecretClaimed stamps the secret as disclosed. The compare-and-set on
// claimed_at guarantees at most one caller wins.
func (s *pgStore) MarkSecretClaimed(ctx context.Context, secretID uint64, now time.Time) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&schema.WebhookSecret{}).
		Where("id = ? AND claimed_at IS NULL", secretID).
		Update("claimed_at", now)
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark secret claimed: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// RotateSecret retires the current secret with a grace expiry and inserts the
// replacement in a single transaction
func (s *pgStore) RotateSecret(ctx context.Context, webhookID string, replacement *schema.WebhookSecret, graceExpiresAt time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the current secret row so concurrent rotations serialize
		var current schema.WebhookSecret
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("webhook_id = ? AND grace_expires_at IS NULL", webhookID).
			Order("id DESC").
			First(&current).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrSecretNotFound
			}
			return fmt.Errorf("failed to lock current secret: %w", err)
		}

		now := time.Now()
		if err := tx.Model(&schema.WebhookSecret{}).
			Where("id = ?", current.ID).
			Updates(map[string]interface{}{
				"rotated_at":       now,
				"grace_expires_at": graceExpiresAt,
			}).Error; err != nil {
			return fmt.Errorf("failed to retire current secret: %w", err)
		}

		if err := tx.Create(replacement).Error; err != nil {
			return fmt.Errorf("failed to create replacement secret: %w", err)
		}

		return nil
	})
}

// GetBreakerState retrieves the circuit breaker row for a webhook
func (s *pgStore) GetBreakerState(ctx context.Context, webhookID string) (*schema.CircuitBreakerState, error) {
	var state schema.CircuitBreakerState
	err := s.db.WithContext(ctx).Where("webhook_id = ?", webhookID).First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get breaker state: %w", err)
	}

	return &state, nil
}

// WithBreakerState runs fn against the webhook's breaker row under a row-level
// lock, creating the row on first use. Concurrent deliveries to the same webhook
// serialize here so consecutive counters never lose updates.
func (s *pgStore) WithBreakerState(ctx context.Context, webhookID string, fn func(state *schema.CircuitBreakerState) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Insert-if-missing first so the row exists to lock
		seed := schema.CircuitBreakerState{
			WebhookID: webhookID,
			State:     schema.BreakerStateClosed,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "webhook_id"}},
			DoNothing: true,
		}).Create(&seed).Error; err != nil {
			return fmt.Errorf("failed to seed breaker state: %w", err)
		}

		var state schema.CircuitBreakerState
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("webhook_id = ?", webhookID).
			First(&state).Error; err != nil {
			return fmt.Errorf("failed to lock breaker state: %w", err)
		}

		if err := fn(&state); err != nil {
			return err
		}

		if err := tx.Save(&state).Error; err != nil {
			return fmt.Errorf("failed to save breaker state: %w", err)
		}

		return nil
	})
}

// GetConditionsByWebhookID retrieves a webhook's filter conditions ordered by position
func (s *pgStore) GetConditionsByWebhookID(ctx context.Context, webhookID string) ([]*schema.WebhookCondition, error) {
	var conditions []*schema.WebhookCondition
	err := s.db.WithContext(ctx).
		Where("webhook_id = ?", webhookID).
		Order("position ASC").
		Find(&conditions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get conditions: %w", err)
	}

	return conditions, nil
}

// ReplaceWebhookConditions atomically swaps a webhook's condition list
func (s *pgStore) ReplaceWebhookConditions(ctx context.Context, webhookID string, conditions []*schema.WebhookCondition) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("webhook_id = ?", webhookID).
			Delete(&schema.WebhookCondition{}).Error; err != nil {
			return fmt.Errorf("failed to delete old conditions: %w", err)
		}

		if len(conditions) == 0 {
			return nil
		}

		for i, condition := range conditions {
			condition.WebhookID = webhookID
			condition.Position = i
		}

		if err := tx.Create(&conditions).Error; err != nil {
			return fmt.Errorf("failed to create conditions: %w", err)
		}

		return nil
	})
}

// CreateWebhookLog appends an immutable delivery attempt record
func (s *pgStore) CreateWebhookLog(ctx context.Context, log *schema.WebhookLog) error {
	if err := s.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("failed to create webhook log: %w", err)
	}
	return nil
}

// ListWebhookLogs retrieves attempt records for a webhook, newest first,
// keyset-paginated on id. A zero cursor starts from the newest row; the
// returned cursor fetches the next page and is zero once the page came up
// short.
func (s *pgStore) ListWebhookLogs(ctx context.Context, webhookID string, limit int, cursor uint64) ([]*schema.WebhookLog, uint64, error) {
	query := s.db.WithContext(ctx).Model(&schema.WebhookLog{}).Where("webhook_id = ?", webhookID)
	if cursor > 0 {
		query = query.Where("id < ?", cursor)
	}

	var logs []*schema.WebhookLog
	if err := query.Order("id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list webhook logs: %w", err)
	}

	var nextCursor uint64
	if len(logs) == limit {
		nextCursor = logs[len(logs)-1].ID
	}

	return logs, nextCursor, nil
}

// CreateRetryEntry schedules a redelivery
func (s *pgStore) CreateRetryEntry(ctx context.Context, input CreateRetryEntryInput) (*schema.RetryEntry, error) {
	entry := schema.RetryEntry{
		WebhookID:      input.WebhookID,
		LogID:          input.LogID,
		EventID:        input.EventID,
		EventType:      input.EventType,
		Payload:        input.Payload,
		AttemptNumber:  input.AttemptNumber,
		MaxAttempts:    input.MaxAttempts,
		NextRetryAt:    input.NextRetryAt,
		Status:         schema.RetryStatusPending,
		LastError:      input.LastError,
		LastStatusCode: input.LastStatus,
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("failed to create retry entry: %w", err)
	}

	return &entry, nil
}

// LatestRetryAttempt returns the highest attempt number recorded for an event
// on a webhook, or 0 when none exists
func (s *pgStore) LatestRetryAttempt(ctx context.Context, webhookID, eventID string) (int, error) {
	var entry schema.RetryEntry
	err := s.db.WithContext(ctx).
		Where("webhook_id = ? AND event_id = ?", webhookID, eventID).
		Order("attempt_number DESC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get latest retry attempt: %w", err)
	}

	return entry.AttemptNumber, nil
}

// ClaimDueRetryEntries atomically claims up to limit pending entries whose
// next_retry_at has passed, moving them to processing. SKIP LOCKED lets
// multiple workers drain the queue without contending on the same rows.
func (s *pgStore) ClaimDueRetryEntries(ctx context.Context, now time.Time, limit int) ([]*schema.RetryEntry, error) {
	var claimed []*schema.RetryEntry

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entries []*schema.RetryEntry
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND next_retry_at <= ?", schema.RetryStatusPending, now).
			Order("next_retry_at ASC").
			Limit(limit).
			Find(&entries).Error; err != nil {
			return fmt.Errorf("failed to select due retry entries: %w", err)
		}

		if len(entries) == 0 {
			return nil
		}

		ids := make([]uint64, len(entries))
		for i, entry := range entries {
			ids[i] = entry.ID
		}

		if err := tx.Model(&schema.RetryEntry{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"status":     schema.RetryStatusProcessing,
				"claimed_at": now,
			}).Error; err != nil {
			return fmt.Errorf("failed to claim retry entries: %w", err)
		}

		for _, entry := range entries {
			entry.Status = schema.RetryStatusProcessing
			claimedAt := now
			entry.ClaimedAt = &claimedAt
		}

		claimed = entries
		return nil
	})
	if err != nil {
		return nil, err
	}

	return claimed, nil
}

// MarkRetryEntry finalizes a claimed entry with a terminal or failed outcome
func (s *pgStore) MarkRetryEntry(ctx context.Context, entryID uint64, outcome RetryOutcome) error {
	if !outcome.Status.Terminal() {
		return fmt.Errorf("retry outcome status %q is not terminal", outcome.Status)
	}

	updates := map[string]interface{}{
		"status":     outcome.Status,
		"claimed_at": nil,
	}
	if outcome.LastError != "" {
		updates["last_error"] = outcome.LastError
	}
	if outcome.LastStatus != nil {
		updates["last_status_code"] = *outcome.LastStatus
	}

	result := s.db.WithContext(ctx).
		Model(&schema.RetryEntry{}).
		Where("id = ?", entryID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to mark retry entry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrRetryEntryNotFound
	}

	return nil
}

// RescheduleRetryEntry returns a claimed entry to pending with a bumped attempt
// counter and a new due time
func (s *pgStore) RescheduleRetryEntry(ctx context.Context, entryID uint64, attemptNumber int, nextRetryAt time.Time, lastError string, lastStatus *int) error {
	updates := map[string]interface{}{
		"status":         schema.RetryStatusPending,
		"claimed_at":     nil,
		"attempt_number": attemptNumber,
		"next_retry_at":  nextRetryAt,
		"last_error":     lastError,
	}
	if lastStatus != nil {
		updates["last_status_code"] = *lastStatus
	}

	result := s.db.WithContext(ctx).
		Model(&schema.RetryEntry{}).
		Where("id = ?", entryID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to reschedule retry entry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrRetryEntryNotFound
	}

	return nil
}

// ReleaseStaleClaims returns entries stuck in processing past the lease window
// to pending so another worker can pick them up. Covers workers that crashed
// mid-attempt.
func (s *pgStore) ReleaseStaleClaims(ctx context.Context, claimedBefore time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&schema.RetryEntry{}).
		Where("status = ? AND claimed_at IS NOT NULL AND claimed_at < ?", schema.RetryStatusProcessing, claimedBefore).
		Updates(map[string]interface{}{
			"status":     schema.RetryStatusPending,
			"claimed_at": nil,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to release stale claims: %w", result.Error)
	}

	return result.RowsAffected, nil
}
