package breaker

import (
	"context"

	"github.com/flowsend/webhook-engine/internal/adapter"
	"github.com/flowsend/webhook-engine/internal/store"
	"github.com/flowsend/webhook-engine/internal/store/schema"
)

// Manager mediates all breaker decisions through the store. Every mutation
// happens inside a transaction holding the webhook's breaker row lock, so
// concurrent delivery outcomes never under-count.
type Manager struct {
	store    store.Store
	settings Settings
	clock    adapter.Clock
}

// NewManager creates a store-backed circuit breaker manager
func NewManager(s store.Store, settings Settings, clock adapter.Clock) *Manager {
	if clock == nil {
		clock = adapter.NewClock()
	}
	return &Manager{
		store:    s,
		settings: settings.Normalize(),
		clock:    clock,
	}
}

// Allow reports whether a delivery to the webhook may proceed. The breaker row
// is created lazily on first use; an open circuit past the open timeout
// transitions to half-open here.
func (m *Manager) Allow(ctx context.Context, webhookID string) (bool, schema.BreakerState, error) {
	var (
		allowed bool
		state   schema.BreakerState
	)

	err := m.store.WithBreakerState(ctx, webhookID, func(row *schema.CircuitBreakerState) error {
		allowed = allow(row, m.settings, m.clock.Now())
		state = row.State
		return nil
	})
	if err != nil {
		return false, "", err
	}

	return allowed, state, nil
}

// RecordSuccess registers a successful delivery outcome
func (m *Manager) RecordSuccess(ctx context.Context, webhookID string) error {
	return m.store.WithBreakerState(ctx, webhookID, func(row *schema.CircuitBreakerState) error {
		recordSuccess(row, m.settings, m.clock.Now())
		return nil
	})
}

// RecordFailure registers a failed delivery outcome
func (m *Manager) RecordFailure(ctx context.Context, webhookID string) error {
	return m.store.WithBreakerState(ctx, webhookID, func(row *schema.CircuitBreakerState) error {
		recordFailure(row, m.settings, m.clock.Now())
		return nil
	})
}

// State returns the webhook's breaker row, or nil when the webhook has never
// been delivered to
func (m *Manager) State(ctx context.Context, webhookID string) (*schema.CircuitBreakerState, error) {
	return m.store.GetBreakerState(ctx, webhookID)
}
