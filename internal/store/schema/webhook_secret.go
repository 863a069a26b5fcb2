package schema

import "time"

// WebhookSecret represents the webhook_secrets table - encrypted signing secrets.
//
// The newest row without a grace expiry is the current secret. A rotation
// stamps the outgoing row's GraceExpiresAt and inserts a fresh row, so both
// secrets sign deliveries until the grace window closes.
type WebhookSecret struct {
	// ID is an auto-incrementing sequence number
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// WebhookID is the webhook this secret belongs to
	WebhookID string `gorm:"column:webhook_id;not null;index;type:varchar(36)"`
	// Ciphertext is the AES-256-GCM encrypted secret, base64-encoded
	Ciphertext string `gorm:"column:ciphertext;not null;type:text"`
	// Last4 is the non-secret fingerprint shown in dashboards
	Last4 string `gorm:"column:last4;not null;type:varchar(4)"`
	// ClaimedAt marks the one-time plaintext disclosure; nil means unclaimed
	ClaimedAt *time.Time `gorm:"column:claimed_at;type:timestamptz"`
	// RotatedAt is when this secret was replaced by a newer one
	RotatedAt *time.Time `gorm:"column:rotated_at;type:timestamptz"`
	// GraceExpiresAt is when a rotated-out secret stops signing; nil for the current secret
	GraceExpiresAt *time.Time `gorm:"column:grace_expires_at;type:timestamptz"`
	// CreatedAt is the timestamp when this secret was issued
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the WebhookSecret model
func (WebhookSecret) TableName() string {
	return "webhook_secrets"
}

// Current reports whether this secret is the active signing secret
func (s *WebhookSecret) Current() bool {
	return s.GraceExpiresAt == nil
}

// InGrace reports whether a rotated-out secret may still sign at the given time
func (s *WebhookSecret) InGrace(now time.Time) bool {
	return s.GraceExpiresAt != nil && now.Before(*s.GraceExpiresAt)
}
