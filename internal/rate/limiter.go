package rate

import (
	"context"
	"time"
)

const (
	// DefaultMax is the number of admissions per window.
	DefaultMax = 3
	// DefaultWindow is the fixed window length.
	DefaultWindow = 15 * time.Minute
	// DefaultPrefix namespaces Redis keys.
	DefaultPrefix = "ml:"
)

// Config holds limiter tuning parameters.
type Config struct {
	Max    int
	Window time.Duration
	Prefix string
}

// DefaultConfig returns 3 admissions per 15 minutes.
func DefaultConfig() Config {
	return Config{Max: DefaultMax, Window: DefaultWindow, Prefix: DefaultPrefix}
}

func (c Config) validate() error {
	if c.Max <= 0 || c.Window <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Limiter decides whether one more request for key is admitted.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
