package ratelimit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joshuatxtcllc/framekraft-sub002/internal/auth/domain"
)

// Decision carries the advisory metadata returned on both the accept and
// reject path.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
	// Delay is only set by the slow-down limiter: how long to stall the
	// request instead of rejecting it.
	Delay time.Duration
}

// Limiter is a fixed-window counter over redis, shared by every process in
// the deployment. Fixed windows admit up to 2x the quota across a window
// boundary (a burst at the end of one window and another at the start of
// the next); that is acceptable here because redis outages already fail
// open with a logged warning: the limiter is advisory, the account lockout
// and the credential-failure counter in Postgres still hold.
type Limiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func NewLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{
		rdb:    rdb,
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

// Allow counts a hit against key and reports whether it fits the window.
func (l *Limiter) Allow(ctx context.Context, key string) *Decision {
	return l.allow(ctx, key, l.limit)
}

// AllowForRole applies the per-role quota multiplier: elevated roles get
// more headroom, view-only roles get less.
func (l *Limiter) AllowForRole(ctx context.Context, key string, role domain.Role) *Decision {
	return l.allow(ctx, key, scaledLimit(l.limit, role))
}

func (l *Limiter) allow(ctx context.Context, key string, limit int) *Decision {
	count, ttl, err := l.hit(ctx, key)
	if err != nil {
		log.Printf("rate limiter unavailable, failing open: %v", err)
		return &Decision{Allowed: true, Limit: limit, Remaining: limit}
	}

	resetAt := time.Now().Add(ttl)
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	d := &Decision{
		Allowed:   int(count) <= limit,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
	if !d.Allowed {
		d.RetryAfter = ttl
	}

	return d
}

func (l *Limiter) hit(ctx context.Context, key string) (int64, time.Duration, error) {
	fullKey := l.prefix + ":" + key

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, l.window)
	ttlCmd := pipe.PTTL(ctx, fullKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("rate limit hit failed: %w", err)
	}

	ttl := ttlCmd.Val()
	if ttl < 0 {
		ttl = l.window
	}

	return incr.Val(), ttl, nil
}

func scaledLimit(base int, role domain.Role) int {
	switch role {
	case domain.RoleAdmin:
		return base * 4
	case domain.RoleOwner:
		return base * 2
	case domain.RoleViewer:
		return base / 2
	default:
		return base
	}
}

// SlowDownLimiter is the alternative to hard rejection: requests beyond the
// free quota are delayed by a linear increment up to a cap rather than
// refused.
type SlowDownLimiter struct {
	rdb       *redis.Client
	prefix    string
	freeQuota int
	step      time.Duration
	maxDelay  time.Duration
	window    time.Duration
}

func NewSlowDownLimiter(rdb *redis.Client, prefix string, freeQuota int, step, maxDelay, window time.Duration) *SlowDownLimiter {
	return &SlowDownLimiter{
		rdb:       rdb,
		prefix:    prefix,
		freeQuota: freeQuota,
		step:      step,
		maxDelay:  maxDelay,
		window:    window,
	}
}

// Delay returns how long the caller should stall this request. Zero inside
// the free quota, and zero on redis failure.
func (s *SlowDownLimiter) Delay(ctx context.Context, key string) time.Duration {
	fullKey := s.prefix + ":" + key

	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, s.window)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("slow-down limiter unavailable, failing open: %v", err)
		return 0
	}

	over := incr.Val() - int64(s.freeQuota)
	if over <= 0 {
		return 0
	}

	delay := time.Duration(over) * s.step
	if delay > s.maxDelay {
		delay = s.maxDelay
	}

	return delay
}
