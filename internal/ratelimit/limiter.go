// Package ratelimit bounds delivery volume per identifier and window. Counters
// live in Redis so every instance shares one fixed window; when Redis is
// unreachable the configured failure policy decides between a local
// approximation and denial.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/flowsend/webhook-engine/internal/adapter"
	"github.com/flowsend/webhook-engine/internal/config"
	"github.com/flowsend/webhook-engine/internal/domain"
	"github.com/flowsend/webhook-engine/internal/logger"
)

// Decision is the outcome of an admission check
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// LimitType is the admission dimension a check counts against. Checks with
// different limit types never share a counter, even for equal identifiers.
type LimitType string

const (
	PerUser      LimitType = "per_user"
	PerWorkspace LimitType = "per_workspace"
	PerIP        LimitType = "per_ip"
)

// Limiter enforces fixed-window limits per (limit type, identifier, endpoint)
type Limiter struct {
	cfg    config.RateLimitConfig
	redis  adapter.RedisClient
	clock  adapter.Clock
	policy domain.FailurePolicy

	// local limiters approximate the shared window while Redis is down
	localMu sync.Mutex
	local   map[string]*rate.Limiter
}

// NewLimiter creates a rate limiter backed by Redis fixed-window counters
func NewLimiter(cfg config.RateLimitConfig, rc adapter.RedisClient, clock adapter.Clock) *Limiter {
	policy := domain.FailurePolicy(cfg.Policy)
	if !policy.Valid() {
		policy = domain.FailOpen
	}
	if clock == nil {
		clock = adapter.NewClock()
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}

	return &Limiter{
		cfg:    cfg,
		redis:  rc,
		clock:  clock,
		policy: policy,
		local:  make(map[string]*rate.Limiter),
	}
}

// Check admits or rejects one request for the identifier on the endpoint
func (l *Limiter) Check(ctx context.Context, limitType LimitType, identifier, endpoint string) Decision {
	return l.CheckTier(ctx, limitType, identifier, endpoint, "")
}

// CheckTier is Check with a pricing tier override. Tier limits take precedence
// over the endpoint defaults when configured.
func (l *Limiter) CheckTier(ctx context.Context, limitType LimitType, identifier, endpoint, tier string) Decision {
	now := l.clock.Now()
	windowStart := now.Truncate(l.cfg.Window)
	resetAt := windowStart.Add(l.cfg.Window)

	limit := l.limitFor(endpoint, tier)
	if limit <= 0 {
		// No limit configured for this endpoint
		return Decision{Allowed: true, Remaining: -1, ResetAt: resetAt}
	}

	key := fmt.Sprintf("%s%s:%s:%s:%d", l.cfg.KeyPrefix, endpoint, limitType, identifier, windowStart.Unix())
	count, err := l.redis.IncrWindow(ctx, key, l.cfg.Window)
	if err != nil {
		return l.degraded(ctx, limitType, identifier, endpoint, limit, resetAt, err)
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count <= int64(limit),
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

// limitFor picks the effective limit: tier-specific first, then the endpoint
// default, then the global default
func (l *Limiter) limitFor(endpoint, tier string) int {
	if tier != "" {
		if tierLimits, ok := l.cfg.TierLimits[tier]; ok {
			if limit, ok := tierLimits[endpoint]; ok {
				return limit
			}
		}
	}
	if limit, ok := l.cfg.Limits[endpoint]; ok {
		return limit
	}
	return l.cfg.Limits["default"]
}

// degraded handles a Redis failure according to the configured policy:
// fail_closed denies outright, fail_open falls back to a per-process
// token bucket approximating the shared window.
func (l *Limiter) degraded(ctx context.Context, limitType LimitType, identifier, endpoint string, limit int, resetAt time.Time, cause error) Decision {
	logger.WarnCtx(ctx, "Rate limit counter unavailable, applying failure policy",
		zap.String("endpoint", endpoint),
		zap.String("policy", string(l.policy)),
		zap.Error(cause))

	if l.policy == domain.FailClosed {
		return Decision{Allowed: false, Remaining: 0, ResetAt: resetAt}
	}

	allowed := l.localLimiter(limitType, identifier, endpoint, limit).Allow()
	return Decision{Allowed: allowed, Remaining: -1, ResetAt: resetAt}
}

func (l *Limiter) localLimiter(limitType LimitType, identifier, endpoint string, limit int) *rate.Limiter {
	key := endpoint + ":" + string(limitType) + ":" + identifier

	l.localMu.Lock()
	defer l.localMu.Unlock()

	limiter, ok := l.local[key]
	if !ok {
		perSecond := float64(limit) / l.cfg.Window.Seconds()
		if perSecond <= 0 {
			perSecond = 1
		}
		limiter = rate.NewLimiter(rate.Limit(perSecond), limit)
		l.local[key] = limiter
	}

	return limiter
}
