// Package redisstore implements magicAuth.TokenStore on Redis.
//
// Each token is a hash keyed by id with a secondary key from token hash to
// id and a per-email set of unused ids. Supersession and consumption run as
// Lua scripts so they are atomic across instances.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/magicAuth"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultPrefix namespaces all keys written by Tokens.
	DefaultPrefix = "magicauth:vt:"

	// DefaultRetention keeps expired tokens around long enough to report
	// them as expired rather than unknown.
	DefaultRetention = 24 * time.Hour
)

// createLua stores a token and indexes it.
// KEYS[1] = token key, KEYS[2] = hash index key, KEYS[3] = email set key
// ARGV[1] = id, ARGV[2] = hash, ARGV[3] = email, ARGV[4] = expires ms,
// ARGV[5] = created ms, ARGV[6] = absolute key expiry ms
var createLua = redis.NewScript(`
redis.call('HSET', KEYS[1], 'hash', ARGV[2], 'email', ARGV[3], 'exp', ARGV[4], 'used', '0', 'created', ARGV[5])
redis.call('PEXPIREAT', KEYS[1], ARGV[6])
redis.call('SET', KEYS[2], ARGV[1])
redis.call('PEXPIREAT', KEYS[2], ARGV[6])
redis.call('SADD', KEYS[3], ARGV[1])
redis.call('PEXPIREAT', KEYS[3], ARGV[6])
return 1
`)

// invalidateLua marks every unused token of an email as used.
// KEYS[1] = email set key
// ARGV[1] = token key prefix
//
// Returns the number of tokens flipped.
var invalidateLua = redis.NewScript(`
local ids = redis.call('SMEMBERS', KEYS[1])
local n = 0
for _, id in ipairs(ids) do
  local key = ARGV[1] .. id
  if redis.call('HGET', key, 'used') == '0' then
    redis.call('HSET', key, 'used', '1')
    n = n + 1
  end
end
redis.call('DEL', KEYS[1])
return n
`)

// replaceLua is invalidateLua followed by createLua in one script.
// KEYS and ARGV[1..6] as createLua, ARGV[7] = token key prefix
//
// Returns the number of tokens flipped.
var replaceLua = redis.NewScript(`
local ids = redis.call('SMEMBERS', KEYS[3])
local n = 0
for _, id in ipairs(ids) do
  local key = ARGV[7] .. id
  if redis.call('HGET', key, 'used') == '0' then
    redis.call('HSET', key, 'used', '1')
    n = n + 1
  end
end
redis.call('DEL', KEYS[3])
redis.call('HSET', KEYS[1], 'hash', ARGV[2], 'email', ARGV[3], 'exp', ARGV[4], 'used', '0', 'created', ARGV[5])
redis.call('PEXPIREAT', KEYS[1], ARGV[6])
redis.call('SET', KEYS[2], ARGV[1])
redis.call('PEXPIREAT', KEYS[2], ARGV[6])
redis.call('SADD', KEYS[3], ARGV[1])
redis.call('PEXPIREAT', KEYS[3], ARGV[6])
return n
`)

// consumeLua flips used from 0 to 1.
// KEYS[1] = token key, KEYS[2] = email set key
// ARGV[1] = id
//
// Returns 1 when this call performed the flip.
var consumeLua = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'used') ~= '0' then
  return 0
end
redis.call('HSET', KEYS[1], 'used', '1')
redis.call('SREM', KEYS[2], ARGV[1])
return 1
`)

// Config tunes key layout and retention.
type Config struct {
	Prefix    string
	Retention time.Duration
}

// Tokens is a magicAuth.TokenStore backed by Redis.
type Tokens struct {
	redis redis.UniversalClient
	cfg   Config
	now   func() time.Time
}

// Option configures Tokens.
type Option func(*Tokens)

// WithClock overrides the clock used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(t *Tokens) {
		if now != nil {
			t.now = now
		}
	}
}

// New returns a Tokens store using client.
func New(client redis.UniversalClient, cfg Config, opts ...Option) *Tokens {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	t := &Tokens{redis: client, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tokens) tokenPrefix() string          { return t.cfg.Prefix + "id:" }
func (t *Tokens) tokenKey(id string) string    { return t.tokenPrefix() + id }
func (t *Tokens) hashKey(hash string) string   { return t.cfg.Prefix + "hash:" + hash }
func (t *Tokens) emailKey(email string) string { return t.cfg.Prefix + "email:" + email }

// FindByHash resolves tokenHash through the hash index. Unknown or
// evicted tokens yield magicAuth.ErrTokenNotFound.
func (t *Tokens) FindByHash(ctx context.Context, tokenHash string) (magicAuth.VerificationToken, error) {
	id, err := t.redis.Get(ctx, t.hashKey(tokenHash)).Result()
	if errors.Is(err, redis.Nil) {
		return magicAuth.VerificationToken{}, magicAuth.ErrTokenNotFound
	}
	if err != nil {
		return magicAuth.VerificationToken{}, fmt.Errorf("redis error: %w", err)
	}

	fields, err := t.redis.HGetAll(ctx, t.tokenKey(id)).Result()
	if err != nil {
		return magicAuth.VerificationToken{}, fmt.Errorf("redis error: %w", err)
	}
	if len(fields) == 0 {
		return magicAuth.VerificationToken{}, magicAuth.ErrTokenNotFound
	}
	return decode(id, fields)
}

// Create stores a new unused token with its indexes.
func (t *Tokens) Create(ctx context.Context, input magicAuth.NewVerificationToken) (magicAuth.VerificationToken, error) {
	return t.store(ctx, createLua, input)
}

// ReplaceUnused supersedes the unused tokens of input.Email and stores
// input in a single script.
func (t *Tokens) ReplaceUnused(ctx context.Context, input magicAuth.NewVerificationToken) (magicAuth.VerificationToken, error) {
	return t.store(ctx, replaceLua, input, t.tokenPrefix())
}

func (t *Tokens) store(ctx context.Context, script *redis.Script, input magicAuth.NewVerificationToken, extra ...any) (magicAuth.VerificationToken, error) {
	rec := magicAuth.VerificationToken{
		ID:        uuid.NewString(),
		TokenHash: input.TokenHash,
		Email:     input.Email,
		ExpiresAt: input.ExpiresAt.UTC().Truncate(time.Millisecond),
		CreatedAt: t.now().UTC().Truncate(time.Millisecond),
	}
	keyExpiry := rec.ExpiresAt.Add(t.cfg.Retention).UnixMilli()

	args := append([]any{
		rec.ID, rec.TokenHash, rec.Email, rec.ExpiresAt.UnixMilli(), rec.CreatedAt.UnixMilli(), keyExpiry,
	}, extra...)
	err := script.Run(ctx, t.redis,
		[]string{t.tokenKey(rec.ID), t.hashKey(rec.TokenHash), t.emailKey(rec.Email)},
		args...,
	).Err()
	if err != nil {
		return magicAuth.VerificationToken{}, fmt.Errorf("redis error: %w", err)
	}
	return rec, nil
}

// InvalidateAllUnused marks every unused token of email as used.
func (t *Tokens) InvalidateAllUnused(ctx context.Context, email string) error {
	if err := invalidateLua.Run(ctx, t.redis, []string{t.emailKey(email)}, t.tokenPrefix()).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

// MarkUsedIfUnused flips used on id and reports whether this call did it.
// Unknown or evicted ids report false.
func (t *Tokens) MarkUsedIfUnused(ctx context.Context, id string) (bool, error) {
	email, err := t.redis.HGet(ctx, t.tokenKey(id), "email").Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}

	n, err := consumeLua.Run(ctx, t.redis, []string{t.tokenKey(id), t.emailKey(email)}, id).Int64()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return n == 1, nil
}

func decode(id string, fields map[string]string) (magicAuth.VerificationToken, error) {
	exp, err := strconv.ParseInt(fields["exp"], 10, 64)
	if err != nil {
		return magicAuth.VerificationToken{}, fmt.Errorf("redis error: corrupt token %s: %w", id, err)
	}
	created, err := strconv.ParseInt(fields["created"], 10, 64)
	if err != nil {
		return magicAuth.VerificationToken{}, fmt.Errorf("redis error: corrupt token %s: %w", id, err)
	}
	return magicAuth.VerificationToken{
		ID:        id,
		TokenHash: fields["hash"],
		Email:     fields["email"],
		ExpiresAt: time.UnixMilli(exp).UTC(),
		Used:      fields["used"] == "1",
		CreatedAt: time.UnixMilli(created).UTC(),
	}, nil
}
