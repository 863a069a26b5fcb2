package secrets

import (
	"context"
	"time"

	"github.com/flowsend/webhook-engine/internal/adapter"
	"github.com/flowsend/webhook-engine/internal/domain"
	"github.com/flowsend/webhook-engine/internal/store"
	"github.com/flowsend/webhook-engine/internal/store/schema"
)

// CreateResult reports the outcome of creating or rotating a secret. Plaintext
// is populated only when this call minted the secret.
type CreateResult struct {
	Created   bool
	Plaintext string
	Last4     string
}

// ClaimResult reports the outcome of claiming a secret's plaintext
type ClaimResult struct {
	AlreadyClaimed bool
	Plaintext      string
	Last4          string
}

// DeliverySecrets holds the plaintext secrets valid for signing right now.
// Previous is empty unless a rotated secret is still inside its grace window.
type DeliverySecrets struct {
	Current       string
	CurrentLast4  string
	Previous      string
	PreviousLast4 string
}

// Manager issues, rotates, and discloses per-webhook signing secrets.
// Plaintext exists only transiently in memory; storage is always encrypted.
type Manager struct {
	store       store.Store
	appKey      []byte
	gracePeriod time.Duration
	clock       adapter.Clock
}

// NewManager creates a secret manager. gracePeriod controls how long a rotated
// secret keeps signing alongside its replacement.
func NewManager(s store.Store, appKey []byte, gracePeriod time.Duration, clock adapter.Clock) (*Manager, error) {
	if err := ValidateAppKey(appKey); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = adapter.NewClock()
	}

	return &Manager{
		store:       s,
		appKey:      appKey,
		gracePeriod: gracePeriod,
		clock:       clock,
	}, nil
}

// CreateIfMissing mints a secret for the webhook unless one already exists.
// The plaintext is disclosed only on the call that created it; when a secret
// already exists only the last-4 fingerprint comes back.
func (m *Manager) CreateIfMissing(ctx context.Context, webhookID string) (*CreateResult, error) {
	current, err := m.store.GetCurrentSecret(ctx, webhookID)
	if err != nil {
		return nil, err
	}
	if current != nil {
		return &CreateResult{Created: false, Last4: current.Last4}, nil
	}

	plaintext, err := GenerateSecret()
	if err != nil {
		return nil, err
	}

	ciphertext, err := Encrypt(m.appKey, webhookID, plaintext)
	if err != nil {
		return nil, err
	}

	secret := &schema.WebhookSecret{
		WebhookID:  webhookID,
		Ciphertext: ciphertext,
		Last4:      Last4(plaintext),
	}
	if err := m.store.CreateWebhookSecret(ctx, secret); err != nil {
		return nil, err
	}

	return &CreateResult{Created: true, Plaintext: plaintext, Last4: secret.Last4}, nil
}

// ClaimLatest discloses the current secret's plaintext exactly once ever. The
// claim is a compare-and-set, so under concurrent calls precisely one caller
// receives the plaintext and every other sees already-claimed.
func (m *Manager) ClaimLatest(ctx context.Context, webhookID string) (*ClaimResult, error) {
	current, err := m.store.GetCurrentSecret(ctx, webhookID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrSecretNotFound
	}

	if current.ClaimedAt != nil {
		return &ClaimResult{AlreadyClaimed: true, Last4: current.Last4}, nil
	}

	won, err := m.store.MarkSecretClaimed(ctx, current.ID, m.clock.Now())
	if err != nil {
		return nil, err
	}
	if !won {
		return &ClaimResult{AlreadyClaimed: true, Last4: current.Last4}, nil
	}

	plaintext, err := Decrypt(m.appKey, webhookID, current.Ciphertext)
	if err != nil {
		return nil, err
	}

	return &ClaimResult{Plaintext: plaintext, Last4: current.Last4}, nil
}

// Rotate issues a replacement secret while the previous one keeps signing
// until its grace window expires. The new plaintext is disclosed here and the
// replacement is marked claimed, so ClaimLatest cannot disclose it a second
// time.
func (m *Manager) Rotate(ctx context.Context, webhookID string) (*CreateResult, error) {
	plaintext, err := GenerateSecret()
	if err != nil {
		return nil, err
	}

	ciphertext, err := Encrypt(m.appKey, webhookID, plaintext)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	replacement := &schema.WebhookSecret{
		WebhookID:  webhookID,
		Ciphertext: ciphertext,
		Last4:      Last4(plaintext),
		ClaimedAt:  &now,
	}

	if err := m.store.RotateSecret(ctx, webhookID, replacement, now.Add(m.gracePeriod)); err != nil {
		return nil, err
	}

	return &CreateResult{Created: true, Plaintext: plaintext, Last4: replacement.Last4}, nil
}

// ForDelivery returns the plaintext secrets valid for signing an outbound
// request right now
func (m *Manager) ForDelivery(ctx context.Context, webhookID string) (*DeliverySecrets, error) {
	rows, err := m.store.GetSecretsForDelivery(ctx, webhookID, m.clock.Now())
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrSecretNotFound
	}

	result := &DeliverySecrets{}
	for _, row := range rows {
		plaintext, err := Decrypt(m.appKey, webhookID, row.Ciphertext)
		if err != nil {
			return nil, err
		}

		if row.GraceExpiresAt == nil {
			result.Current = plaintext
			result.CurrentLast4 = row.Last4
		} else if result.Previous == "" {
			result.Previous = plaintext
			result.PreviousLast4 = row.Last4
		}
	}

	if result.Current == "" {
		return nil, domain.ErrSecretNotFound
	}

	return result, nil
}
