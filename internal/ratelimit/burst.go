package ratelimit

import (
	"context"

	"github.com/go-redis/redis_rate/v10"
	"go.uber.org/zap"

	"github.com/flowsend/webhook-engine/internal/adapter"
	"github.com/flowsend/webhook-engine/internal/logger"
)

// BurstGuard smooths per-webhook delivery spikes below the fixed window's
// granularity using a shared GCRA limiter. It is advisory: the fixed-window
// limiter stays authoritative and guard failures never block delivery.
type BurstGuard struct {
	limiter   adapter.RedisRateLimiter
	perSecond int
}

// NewBurstGuard creates a burst guard allowing perSecond deliveries per
// webhook. Returns nil when perSecond is zero, which disables the guard.
func NewBurstGuard(rc adapter.RedisClient, perSecond int) *BurstGuard {
	if perSecond <= 0 {
		return nil
	}
	return &BurstGuard{limiter: rc.NewRateLimiter(), perSecond: perSecond}
}

// Allow reports whether one more delivery to the webhook fits the burst budget
func (g *BurstGuard) Allow(ctx context.Context, webhookID string) bool {
	if g == nil {
		return true
	}

	result, err := g.limiter.Allow(ctx, "burst:"+webhookID, redis_rate.PerSecond(g.perSecond))
	if err != nil {
		logger.WarnCtx(ctx, "Burst guard unavailable, allowing delivery",
			zap.String("webhook_id", webhookID),
			zap.Error(err))
		return true
	}

	return result.Allowed > 0
}
