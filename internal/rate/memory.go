package rate

import (
	"context"
	"sync"
	"time"
)

const sweepThreshold = 4096

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a process-local fixed-window limiter. See the package
// documentation for its multi-instance limitation.
type MemoryLimiter struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*window
}

// NewMemory returns a MemoryLimiter. A nil clock selects time.Now.
func NewMemory(cfg Config, now func() time.Time) (*MemoryLimiter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryLimiter{
		cfg:     cfg,
		now:     now,
		entries: make(map[string]*window),
	}, nil
}

// Allow never returns an error.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) >= sweepThreshold {
		l.sweepLocked(now)
	}

	entry, ok := l.entries[key]
	if !ok || now.After(entry.resetAt) {
		l.entries[key] = &window{count: 1, resetAt: now.Add(l.cfg.Window)}
		return true, nil
	}

	if entry.count >= l.cfg.Max {
		return false, nil
	}

	entry.count++
	return true, nil
}

// Len reports how many keys are currently tracked.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *MemoryLimiter) sweepLocked(now time.Time) {
	for key, entry := range l.entries {
		if now.After(entry.resetAt) {
			delete(l.entries, key)
		}
	}
}
