package magicAuth

import (
	"context"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "leeway within bound",
			mutate: func(c *Config) {
				c.Session.Leeway = 45 * time.Second
			},
			wantValid: true,
		},
		{
			name: "leeway too large",
			mutate: func(c *Config) {
				c.Session.Leeway = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "refresh threshold not shorter than ttl",
			mutate: func(c *Config) {
				c.Session.RefreshThreshold = c.Session.TTL
			},
			wantValid: false,
		},
		{
			name: "short secret in production",
			mutate: func(c *Config) {
				c.Security.ProductionMode = true
				c.Session.Secret = []byte("short")
			},
			wantValid: false,
		},
		{
			name: "missing secret is allowed",
			mutate: func(c *Config) {
				c.Security.ProductionMode = true
				c.Session.Secret = nil
			},
			wantValid: true,
		},
		{
			name: "token too short",
			mutate: func(c *Config) {
				c.Token.ByteLength = 8
			},
			wantValid: false,
		},
		{
			name: "zero token ttl",
			mutate: func(c *Config) {
				c.Token.TTL = 0
			},
			wantValid: false,
		},
		{
			name: "zero rate limit",
			mutate: func(c *Config) {
				c.RateLimit.Max = 0
			},
			wantValid: false,
		},
		{
			name: "empty cookie name",
			mutate: func(c *Config) {
				c.Cookie.Name = ""
			},
			wantValid: false,
		},
		{
			name: "unknown welcome policy",
			mutate: func(c *Config) {
				c.Email.WelcomeFailurePolicy = WelcomeFailurePolicy(9)
			},
			wantValid: false,
		},
		{
			name: "audit without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCookieSecureInProduction(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.cookieSecure() {
		t.Fatal("default config must not force Secure")
	}
	cfg.Security.ProductionMode = true
	if !cfg.cookieSecure() {
		t.Fatal("production mode must force Secure")
	}
}

func TestLintDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	codes := cfg.Lint().Codes()

	for _, want := range []string{"secret_missing", "cookie_insecure", "audit_disabled"} {
		if !slices.Contains(codes, want) {
			t.Errorf("expected %q in %v", want, codes)
		}
	}
	if slices.Contains(codes, "rate_limit_loose") {
		t.Errorf("default rate limit must not be reported as loose")
	}
}

func TestSecurityReportReflectsLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := DefaultConfig()
	cfg.Security.ProductionMode = true
	cfg.Session.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Audit.Enabled = true

	build := func(withRedis bool) *Engine {
		b := New().
			WithConfig(cfg).
			WithUserStore(nopUsers{}).
			WithTokenStore(nopTokens{}).
			WithEmailSender(nopSender{}).
			WithLogger(slog.New(slog.DiscardHandler))
		if withRedis {
			b.WithRedis(rdb)
		}
		e, err := b.Build()
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		t.Cleanup(e.Close)
		return e
	}

	local := build(false).SecurityReport()
	if local.DistributedRateLimit || !slices.Contains(LintWarnings(local.Warnings).Codes(), "rate_limit_local") {
		t.Fatalf("expected local limiter warning, got %+v", local)
	}

	shared := build(true).SecurityReport()
	if !shared.DistributedRateLimit || len(shared.Warnings) != 0 {
		t.Fatalf("expected clean report, got %+v", shared)
	}
	if !shared.CookieSecure || !shared.SecretConfigured || shared.TokenEntropyBits != 256 {
		t.Fatalf("unexpected report %+v", shared)
	}
}

type nopUsers struct{}

func (nopUsers) FindByEmail(context.Context, string) (User, error) { return User{}, ErrUserNotFound }
func (nopUsers) FindByID(context.Context, string) (User, error)    { return User{}, ErrUserNotFound }
func (nopUsers) Create(_ context.Context, in NewUser) (User, error) {
	return User{ID: "u", Email: in.Email}, nil
}
func (nopUsers) Update(context.Context, string, UserPatch) (User, error) {
	return User{}, ErrUserNotFound
}

type nopTokens struct{}

func (nopTokens) FindByHash(context.Context, string) (VerificationToken, error) {
	return VerificationToken{}, ErrTokenNotFound
}
func (nopTokens) Create(_ context.Context, in NewVerificationToken) (VerificationToken, error) {
	return VerificationToken{ID: "t", TokenHash: in.TokenHash, Email: in.Email, ExpiresAt: in.ExpiresAt}, nil
}
func (nopTokens) InvalidateAllUnused(context.Context, string) error     { return nil }
func (nopTokens) MarkUsedIfUnused(context.Context, string) (bool, error) { return false, nil }

type nopSender struct{}

func (nopSender) SendMagicLink(context.Context, string, string, string) error { return nil }
func (nopSender) SendWelcome(context.Context, string, string) error           { return nil }
