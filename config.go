package magicAuth

import (
	"errors"
	"time"
)

// Config is the complete engine configuration. Start from DefaultConfig and
// override fields; Builder.Build validates the result.
type Config struct {
	Session   SessionConfig
	Token     TokenConfig
	RateLimit RateLimitConfig
	Cookie    CookieConfig
	Email     EmailConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	Tracing   TracingConfig
	Security  SecurityConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the signed session credential.
type SessionConfig struct {
	// Secret signs session credentials. It is required, but its absence is
	// only reported (as ErrConfiguration) when a credential is first signed
	// or verified.
	Secret []byte
	TTL    time.Duration
	// RefreshThreshold is the remaining lifetime below which authenticated
	// reads re-issue the credential.
	RefreshThreshold time.Duration
	Issuer           string
	Leeway           time.Duration
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls magic-link tokens.
type TokenConfig struct {
	TTL        time.Duration
	ByteLength int
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig gates magic-link issuance per normalized email.
type RateLimitConfig struct {
	Max    int
	Window time.Duration
	// Prefix namespaces keys when the limiter is Redis backed.
	Prefix string
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig controls the session cookie. The Secure attribute is set
// when either Secure or Security.ProductionMode is true.
type CookieConfig struct {
	Name   string
	Domain string
	Secure bool
}

/*
====================================
EMAIL CONFIG
====================================
*/

// WelcomeFailurePolicy decides what a failed welcome email does to the
// login that triggered it.
type WelcomeFailurePolicy uint8

const (
	// WelcomeFailureLog logs the failure and completes the login.
	WelcomeFailureLog WelcomeFailurePolicy = iota
	// WelcomeFailureFail returns the delivery error. The token stays
	// consumed and no session cookie is written.
	WelcomeFailureFail
)

// EmailConfig controls outbound email behavior of the engine.
type EmailConfig struct {
	WelcomeFailurePolicy WelcomeFailurePolicy
	// DefaultWelcomeName is used in the welcome email for users without a name.
	DefaultWelcomeName string
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// TracingConfig controls OpenTelemetry spans around engine operations.
type TracingConfig struct {
	Enabled    bool
	TracerName string
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds deployment-wide switches.
type SecurityConfig struct {
	ProductionMode bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the documented defaults: 7 day sessions refreshed
// within the last hour, 15 minute tokens, and 3 issuances per 15 minutes.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			TTL:              7 * 24 * time.Hour,
			RefreshThreshold: 60 * time.Minute,
		},
		Token: TokenConfig{
			TTL:        15 * time.Minute,
			ByteLength: 32,
		},
		RateLimit: RateLimitConfig{
			Max:    3,
			Window: 15 * time.Minute,
			Prefix: "ml:",
		},
		Cookie: CookieConfig{
			Name: "auth_token",
		},
		Email: EmailConfig{
			WelcomeFailurePolicy: WelcomeFailureLog,
			DefaultWelcomeName:   "there",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		Tracing: TracingConfig{
			Enabled:    true,
			TracerName: "github.com/MrEthical07/magicAuth",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Session.Secret = cloneBytes(cfg.Session.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (c *Config) cookieSecure() bool {
	return c.Cookie.Secure || c.Security.ProductionMode
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks structural consistency. It does not require
// Session.Secret.
func (c *Config) Validate() error {
	// Session
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if c.Session.RefreshThreshold < 0 {
		return errors.New("Session RefreshThreshold must be >= 0")
	}
	if c.Session.RefreshThreshold >= c.Session.TTL {
		return errors.New("Session RefreshThreshold must be shorter than Session TTL")
	}
	if c.Session.Leeway < 0 || c.Session.Leeway > 2*time.Minute {
		return errors.New("Session Leeway must be between 0 and 2m")
	}
	if c.Security.ProductionMode && len(c.Session.Secret) > 0 && len(c.Session.Secret) < 32 {
		return errors.New("Session Secret must be at least 32 bytes in production")
	}

	// Token
	if c.Token.TTL <= 0 {
		return errors.New("Token TTL must be > 0")
	}
	if c.Token.ByteLength < 16 {
		return errors.New("Token ByteLength must be >= 16")
	}

	// Rate limit
	if c.RateLimit.Max <= 0 {
		return errors.New("RateLimit Max must be > 0")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("RateLimit Window must be > 0")
	}

	// Cookie
	if c.Cookie.Name == "" {
		return errors.New("Cookie Name must not be empty")
	}

	// Email
	if c.Email.WelcomeFailurePolicy != WelcomeFailureLog && c.Email.WelcomeFailurePolicy != WelcomeFailureFail {
		return errors.New("unsupported Email WelcomeFailurePolicy")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}
