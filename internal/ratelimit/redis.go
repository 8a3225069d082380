package ratelimit

import (
	"context"
	"time"

	"financing-workers/internal/common/errors"
	"financing-workers/internal/common/logger"
	"financing-workers/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

// Redis shares counters between worker instances. The window opens with the
// first INCR, which also sets the key's expiry.
type Redis struct {
	client redis.Cmdable
	prefix string
	log    logger.Logger
}

func NewRedis(client redis.Cmdable, prefix string, log logger.Logger) *Redis {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &Redis{
		client: client,
		prefix: prefix,
		log:    log.WithFields(map[string]interface{}{"component": "ratelimit"}),
	}
}

func (r *Redis) key(k string) string {
	return r.prefix + ":" + k
}

func (r *Redis) Allow(ctx context.Context, key string, rule Rule) (Decision, error) {
	k := r.key(key)
	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return Decision{}, r.fail("incr", key, err)
	}
	if count == 1 {
		if err := r.client.PExpire(ctx, k, rule.Window).Err(); err != nil {
			return Decision{}, r.fail("pexpire", key, err)
		}
	}

	ttl, err := r.client.PTTL(ctx, k).Result()
	if err != nil {
		return Decision{}, r.fail("pttl", key, err)
	}
	if ttl < 0 {
		// expiry lost, e.g. the PEXPIRE after a crash never ran
		if err := r.client.PExpire(ctx, k, rule.Window).Err(); err != nil {
			return Decision{}, r.fail("pexpire", key, err)
		}
		ttl = rule.Window
	}

	if count > int64(rule.Max) {
		metrics.RateLimitRejections.WithLabelValues(rule.Name).Inc()
		return Decision{Allowed: false, Remaining: 0, ResetIn: ttl}, nil
	}
	return Decision{Allowed: true, Remaining: rule.Max - int(count), ResetIn: ttl}, nil
}

func (r *Redis) Reset(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return r.fail("del", key, err)
	}
	return nil
}

func (r *Redis) fail(op, key string, err error) error {
	r.log.Error("rate limit backend error", map[string]interface{}{
		"op":    op,
		"key":   key,
		"error": err.Error(),
	})
	return errors.NewDependencyError(errors.ErrCodeStoreUnavailable, "redis", err)
}

var _ Limiter = (*Redis)(nil)
var _ Limiter = (*Memory)(nil)

// ttlOrZero clamps negative durations reported for missing keys.
func ttlOrZero(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

// TimeUntilReset reports how long until key's window closes.
func (r *Redis) TimeUntilReset(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := r.client.PTTL(ctx, r.key(key)).Result()
	if err != nil {
		return 0, r.fail("pttl", key, err)
	}
	return ttlOrZero(ttl), nil
}
