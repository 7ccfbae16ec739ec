package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/MrEthical07/magicAuth"
	"github.com/MrEthical07/magicAuth/store/memory"
	"github.com/MrEthical07/magicAuth/store/postgres"
	"github.com/MrEthical07/magicAuth/store/redisstore"
	"github.com/redis/go-redis/v9"
)

// backends are the storage collaborators chosen from settings.
type backends struct {
	db     *sql.DB
	redis  *redis.Client
	users  magicAuth.UserStore
	tokens magicAuth.TokenStore
}

func openBackends(ctx context.Context, s settings, logger *slog.Logger) (*backends, error) {
	b := &backends{}

	if s.RedisAddr != "" {
		b.redis = redis.NewClient(&redis.Options{Addr: s.RedisAddr})
		if err := b.redis.Ping(ctx).Err(); err != nil {
			b.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
	}

	switch {
	case s.DatabaseURL != "":
		db, err := postgres.Open(ctx, s.DatabaseURL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.db = db
		b.users = postgres.NewUsers(db)
		b.tokens = postgres.NewTokens(db)
	default:
		logger.Warn("DATABASE_URL not set; users and tokens are kept in memory")
		store := memory.New(nil)
		b.users = store
		b.tokens = store.Tokens()
	}

	if s.TokenStore == "redis" {
		if b.redis == nil {
			b.Close()
			return nil, fmt.Errorf("TOKEN_STORE=redis requires REDIS_ADDR")
		}
		b.tokens = redisstore.New(b.redis, redisstore.Config{})
	}
	return b, nil
}

// ready reports whether every opened backend answers.
func (b *backends) ready(ctx context.Context) error {
	if b.db != nil {
		if err := b.db.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if b.redis != nil {
		if err := b.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (b *backends) Close() {
	if b.db != nil {
		_ = b.db.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}
