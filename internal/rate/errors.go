package rate

import "errors"

var (
	// ErrRedisUnavailable wraps transport failures from the Redis limiter.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrInvalidConfig is returned when Max or Window is not positive.
	ErrInvalidConfig = errors.New("invalid rate limit config")
)
