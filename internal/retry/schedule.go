package retry

import (
	"math"
	"time"
)

const (
	defaultInitialDelay = 30 * time.Second
	defaultMaxDelay     = time.Hour
	defaultMultiplier   = 2.0
	defaultMaxAttempts  = 5
)

// defaultStopStatusCodes are responses that indicate a request-level problem
// no amount of retrying will fix
var defaultStopStatusCodes = []int{400, 401, 403, 404, 405, 410, 422}

// Schedule defines the exponential backoff policy for redelivery attempts
type Schedule struct {
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	Multiplier      float64
	MaxAttempts     int
	StopStatusCodes []int
}

// Normalize fills zero values with defaults
func (s Schedule) Normalize() Schedule {
	if s.InitialDelay <= 0 {
		s.InitialDelay = defaultInitialDelay
	}
	if s.MaxDelay <= 0 {
		s.MaxDelay = defaultMaxDelay
	}
	if s.MaxDelay < s.InitialDelay {
		s.MaxDelay = s.InitialDelay
	}
	if s.Multiplier < 1 {
		s.Multiplier = defaultMultiplier
	}
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = defaultMaxAttempts
	}
	if len(s.StopStatusCodes) == 0 {
		s.StopStatusCodes = defaultStopStatusCodes
	}
	return s
}

// Delay returns the wait before the given retry. Retries are numbered from 1,
// so the first retry waits InitialDelay and each later one multiplies from
// there, capped at MaxDelay.
func (s Schedule) Delay(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}

	delay := float64(s.InitialDelay) * math.Pow(s.Multiplier, float64(retry-1))
	if delay > float64(s.MaxDelay) || delay < 0 {
		return s.MaxDelay
	}

	return time.Duration(delay)
}

// IsStopStatus reports whether the response code rules out further retries
func (s Schedule) IsStopStatus(code int) bool {
	for _, stop := range s.StopStatusCodes {
		if code == stop {
			return true
		}
	}
	return false
}
