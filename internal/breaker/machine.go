// Package breaker tracks per-webhook endpoint health and fast-fails deliveries
// to endpoints that keep failing. State lives in the database so every
// delivering process sees the same circuit.
package breaker

import (
	"time"

	"github.com/flowsend/webhook-engine/internal/store/schema"
)

// Settings holds the breaker thresholds
type Settings struct {
	// FailureThreshold is how many consecutive failures open the circuit
	FailureThreshold int
	// SuccessThreshold is how many consecutive half-open successes close it
	SuccessThreshold int
	// OpenTimeout is how long an open circuit waits before probing
	OpenTimeout time.Duration
}

// Normalize applies the defaults for unset settings
func (s Settings) Normalize() Settings {
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = 5
	}
	if s.SuccessThreshold <= 0 {
		s.SuccessThreshold = 2
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 60 * time.Second
	}
	return s
}

// allow reports whether one delivery may proceed, transitioning an open
// circuit to half-open once the open timeout has elapsed
func allow(state *schema.CircuitBreakerState, settings Settings, now time.Time) bool {
	switch state.State {
	case schema.BreakerStateClosed, schema.BreakerStateHalfOpen:
		return true
	case schema.BreakerStateOpen:
		if state.OpenedAt != nil && now.Sub(*state.OpenedAt) >= settings.OpenTimeout {
			state.State = schema.BreakerStateHalfOpen
			state.HalfOpenedAt = &now
			state.ConsecutiveSuccesses = 0
			return true
		}
		return false
	default:
		return false
	}
}

// recordSuccess registers a successful delivery outcome. Enough consecutive
// successes while half-open close the circuit.
func recordSuccess(state *schema.CircuitBreakerState, settings Settings, now time.Time) {
	state.TotalSuccesses++
	state.ConsecutiveSuccesses++
	state.ConsecutiveFailures = 0
	state.LastSuccessAt = &now

	if state.State == schema.BreakerStateHalfOpen && state.ConsecutiveSuccesses >= settings.SuccessThreshold {
		state.State = schema.BreakerStateClosed
		state.OpenedAt = nil
		state.HalfOpenedAt = nil
	}
}

// recordFailure registers a failed delivery outcome. The failure threshold
// opens a closed circuit; any failure while half-open reopens it immediately.
func recordFailure(state *schema.CircuitBreakerState, settings Settings, now time.Time) {
	state.TotalFailures++
	state.ConsecutiveFailures++
	state.ConsecutiveSuccesses = 0
	state.LastFailureAt = &now

	switch state.State {
	case schema.BreakerStateClosed:
		if state.ConsecutiveFailures >= settings.FailureThreshold {
			state.State = schema.BreakerStateOpen
			state.OpenedAt = &now
		}
	case schema.BreakerStateHalfOpen:
		state.State = schema.BreakerStateOpen
		state.OpenedAt = &now
		state.HalfOpenedAt = nil
	}
}
