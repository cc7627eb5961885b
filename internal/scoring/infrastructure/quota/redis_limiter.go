package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/talentforge/hirespark/internal/scoring/domain"
	"github.com/redis/go-redis/v9"
)

// usageTTL keeps month counters alive well past the month they cover so a
// late read never recreates an expired key mid-month.
const usageTTL = 40 * 24 * time.Hour

// RedisLimiter meters scoring attempts per owner per calendar month in
// Redis. Counters are shared across instances, so a horizontally scaled
// deployment enforces one allowance.
type RedisLimiter struct {
	client    *redis.Client
	allowance int
}

// NewRedisLimiter creates a limiter with the given monthly allowance. An
// allowance of zero or less disables metering.
func NewRedisLimiter(client *redis.Client, monthlyAllowance int) *RedisLimiter {
	return &RedisLimiter{client: client, allowance: monthlyAllowance}
}

// usageKey namespaces the counter: hirespark:quota:{owner_id}:{YYYY-MM}.
func usageKey(owner domain.Owner) string {
	return fmt.Sprintf("hirespark:quota:%s:%s", owner.ID, time.Now().UTC().Format("2006-01"))
}

// CheckAllowance returns domain.ErrScoreLimitReached once the owner has used
// up this month's allowance.
func (l *RedisLimiter) CheckAllowance(ctx context.Context, owner domain.Owner) error {
	if l.allowance <= 0 {
		return nil
	}
	used, err := l.client.Get(ctx, usageKey(owner)).Int()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read quota counter: %w", err)
	}
	if used >= l.allowance {
		return domain.ErrScoreLimitReached
	}
	return nil
}

// RecordScore counts one scoring attempt against this month's allowance.
func (l *RedisLimiter) RecordScore(ctx context.Context, owner domain.Owner) error {
	if l.allowance <= 0 {
		return nil
	}
	key := usageKey(owner)
	used, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("increment quota counter: %w", err)
	}
	if used == 1 {
		if err := l.client.Expire(ctx, key, usageTTL).Err(); err != nil {
			return fmt.Errorf("set quota counter ttl: %w", err)
		}
	}
	return nil
}
