package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/donora/internal/config"
)

const keyOrgWrites = "donora:ratelimit:writes:%s"

// WriteLimiter throttles mutating API calls per organization.
type WriteLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

// NewWriteLimiter returns nil when rate limiting is off or redis is absent.
func NewWriteLimiter(cfg config.Config, client *redis.Client) *WriteLimiter {
	if !cfg.RateLimit.Enabled || client == nil {
		return nil
	}
	return &WriteLimiter{
		bucket: NewTokenBucket(client),
		rate:   cfg.RateLimit.WriteRate,
		burst:  cfg.RateLimit.WriteBurst,
	}
}

func (l *WriteLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *WriteLimiter) AllowOrg(ctx context.Context, orgID string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyOrgWrites, strings.TrimSpace(orgID)), l.rate, l.burst)
}
