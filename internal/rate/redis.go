package rate

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// admitLua applies the fixed window atomically.
// KEYS[1] = counter key
// ARGV[1] = max admissions
// ARGV[2] = window in milliseconds
//
// Returns 1 when admitted, 0 when denied.
var admitLua = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then
  redis.call('SET', KEYS[1], 1, 'PX', ARGV[2])
  return 1
end
if tonumber(current) >= tonumber(ARGV[1]) then
  return 0
end
redis.call('INCR', KEYS[1])
return 1
`)

// RedisLimiter shares fixed-window counters across instances. Window reset
// is delegated to key expiry.
type RedisLimiter struct {
	redis redis.UniversalClient
	cfg   Config
}

// NewRedis returns a RedisLimiter backed by redisClient.
func NewRedis(redisClient redis.UniversalClient, cfg Config) (*RedisLimiter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	return &RedisLimiter{redis: redisClient, cfg: cfg}, nil
}

// Allow reports whether key is admitted in the current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	res, err := admitLua.Run(ctx, l.redis, []string{l.key(key)}, l.cfg.Max, l.cfg.Window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return res == 1, nil
}

func (l *RedisLimiter) key(k string) string {
	return l.cfg.Prefix + k
}
