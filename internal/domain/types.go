package domain

const (
	// EventTypeWildcard is a special subscription filter that matches all event types
	EventTypeWildcard = "*"

	// MaxDeliveryTimeoutSeconds is the platform ceiling for per-webhook HTTP timeouts
	MaxDeliveryTimeoutSeconds = 30

	// DefaultDeliveryTimeoutSeconds is used when a webhook has no timeout configured
	DefaultDeliveryTimeoutSeconds = 10

	// MaxResponseBodyBytes caps how much of an endpoint's response is retained
	MaxResponseBodyBytes = 4 * 1024
)

// FailurePolicy decides what a component does when it cannot complete a check.
// Fail-open allows the operation to proceed, fail-closed denies it.
type FailurePolicy string

const (
	FailOpen   FailurePolicy = "fail_open"
	FailClosed FailurePolicy = "fail_closed"
)

// Valid reports whether the policy is one of the recognized values.
func (p FailurePolicy) Valid() bool {
	return p == FailOpen || p == FailClosed
}
