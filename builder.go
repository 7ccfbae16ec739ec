package magicAuth

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/magicAuth/cookie"
	internalaudit "github.com/MrEthical07/magicAuth/internal/audit"
	"github.com/MrEthical07/magicAuth/internal/rate"
	"github.com/MrEthical07/magicAuth/internal/security"
	"github.com/MrEthical07/magicAuth/internal/token"
	"github.com/MrEthical07/magicAuth/jwt"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Builder assembles an Engine. A Builder is single use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users   UserStore
	tokens  TokenStore
	sender  EmailSender
	billing BillingLinker
	limiter RateLimiter

	auditSink      AuditSink
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	now            func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSecret sets Config.Session.Secret.
func (b *Builder) WithSecret(secret []byte) *Builder {
	b.config.Session.Secret = cloneBytes(secret)
	return b
}

// WithUserStore sets the required user store.
func (b *Builder) WithUserStore(s UserStore) *Builder {
	b.users = s
	return b
}

// WithTokenStore sets the required verification token store.
func (b *Builder) WithTokenStore(s TokenStore) *Builder {
	b.tokens = s
	return b
}

// WithEmailSender sets the required email sender.
func (b *Builder) WithEmailSender(s EmailSender) *Builder {
	b.sender = s
	return b
}

// WithBillingLinker attaches an optional billing hook run for new users.
func (b *Builder) WithBillingLinker(l BillingLinker) *Builder {
	b.billing = l
	return b
}

// WithRateLimiter overrides the issuance limiter. It takes precedence over
// WithRedis.
func (b *Builder) WithRateLimiter(l RateLimiter) *Builder {
	b.limiter = l
	return b
}

// WithRedis backs the issuance limiter with Redis so that every instance
// shares one budget per address. Without it the limiter is process local.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets the sink of the audit dispatcher and enables it.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func (b *Builder) WithTracerProvider(tp trace.TracerProvider) *Builder {
	b.tracerProvider = tp
	return b
}

// WithClock overrides time.Now for tokens, sessions and rate limiting.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the verification latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns the Engine. A missing
// signing secret is not reported here; it surfaces as ErrConfiguration the
// first time a session is signed or verified.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if b.tokens == nil {
		return nil, errors.New("token store required")
	}
	if b.sender == nil {
		return nil, errors.New("email sender required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	session, err := jwt.NewCodec(jwt.Config{
		Secret: cfg.Session.Secret,
		TTL:    cfg.Session.TTL,
		Issuer: cfg.Session.Issuer,
		Leeway: cfg.Session.Leeway,
		Now:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("session codec: %w", err)
	}

	limiter := b.limiter
	distributed := false
	if limiter == nil {
		rcfg := rate.Config{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
			Prefix: cfg.RateLimit.Prefix,
		}
		if b.redis != nil {
			limiter, err = rate.NewRedis(b.redis, rcfg)
			distributed = true
		} else {
			limiter, err = rate.NewMemory(rcfg, now)
		}
		if err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	var tracer trace.Tracer
	if cfg.Tracing.Enabled {
		tp := b.tracerProvider
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
		tracer = tp.Tracer(cfg.Tracing.TracerName)
	} else {
		tracer = noop.NewTracerProvider().Tracer("")
	}

	e := &Engine{
		config:     cfg,
		users:      b.users,
		tokens:     b.tokens,
		sender:     b.sender,
		billing:    b.billing,
		limiter:    limiter,
		session:    session,
		tokenCodec: token.NewCodec(cfg.Token.ByteLength, now),
		cookie: cookie.New(cfg.cookieSecure(),
			cookie.WithName(cfg.Cookie.Name),
			cookie.WithMaxAge(cfg.Session.TTL),
			cookie.WithDomain(cfg.Cookie.Domain),
		),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
		logger:  logger,
		tracer:  tracer,
		now:     now,

		distributedLimiter: distributed,
	}
	e.buildFlowDeps()

	for _, w := range security.Lint(cfg.reportInput(distributed)) {
		logger.Warn("auth configuration warning", "code", w.Code, "message", w.Message)
	}

	b.built = true
	return e, nil
}
