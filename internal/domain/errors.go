package domain

import "errors"

var (
	// ErrWebhookNotFound is returned when a webhook does not exist
	ErrWebhookNotFound = errors.New("webhook not found")

	// ErrWebhookInactive is returned when delivery is requested for a deactivated webhook
	ErrWebhookInactive = errors.New("webhook is inactive")

	// ErrRateLimited is returned when the caller exceeded its delivery quota
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCircuitOpen is returned when the endpoint's circuit breaker is open
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrURLBlocked is returned when a target URL fails safety validation
	ErrURLBlocked = errors.New("target URL blocked by safety policy")

	// ErrSecretNotFound is returned when a webhook has no signing secret
	ErrSecretNotFound = errors.New("signing secret not found")

	// ErrRetryEntryNotFound is returned when a retry queue entry does not exist
	ErrRetryEntryNotFound = errors.New("retry entry not found")
)
