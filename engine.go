package magicAuth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/magicAuth/cookie"
	internalaudit "github.com/MrEthical07/magicAuth/internal/audit"
	"github.com/MrEthical07/magicAuth/internal/flows"
	"github.com/MrEthical07/magicAuth/internal/token"
	"github.com/MrEthical07/magicAuth/jwt"
	"github.com/MrEthical07/magicAuth/validate"
	"go.opentelemetry.io/otel/trace"
)

// Engine runs the magic-link protocol: issuing and consuming single-use
// tokens, and minting, reading, refreshing and clearing session cookies.
//
// Engine instances are configured once through Builder and are safe for
// concurrent use afterwards.
type Engine struct {
	config Config

	users   UserStore
	tokens  TokenStore
	sender  EmailSender
	billing BillingLinker
	limiter RateLimiter

	// distributedLimiter is set when the built-in limiter is Redis backed.
	distributedLimiter bool

	session    *jwt.Codec
	tokenCodec *token.Codec
	cookie     *cookie.Transport

	audit   *internalaudit.Dispatcher
	metrics *Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time

	flows flows.Deps
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were dropped because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// CookieName returns the name of the session cookie.
func (e *Engine) CookieName() string {
	return e.cookie.Name()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) signSession(user flows.MagicLinkUser) (string, error) {
	tok, err := e.session.Sign(user.ID, user.Email)
	if err != nil {
		return "", configError(err)
	}
	return tok, nil
}

func configError(err error) error {
	if errors.Is(err, jwt.ErrMissingSecret) {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return err
}

func toFlowUser(u User) flows.MagicLinkUser {
	return flows.MagicLinkUser{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Verified: u.EmailVerifiedAt != nil,
	}
}

func (e *Engine) findUserByEmail(ctx context.Context, email string) (flows.MagicLinkUser, error) {
	u, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		return flows.MagicLinkUser{}, err
	}
	return toFlowUser(u), nil
}

func (e *Engine) createUser(ctx context.Context, email, name string) (flows.MagicLinkUser, error) {
	u, err := e.users.Create(ctx, NewUser{Email: email, Name: name})
	if err != nil {
		return flows.MagicLinkUser{}, err
	}
	return toFlowUser(u), nil
}

// replaceToken is nil unless the token store can supersede atomically.
func (e *Engine) replaceToken() func(context.Context, string, string, time.Time) error {
	r, ok := e.tokens.(TokenReplacer)
	if !ok {
		return nil
	}
	return func(ctx context.Context, hash, email string, expiresAt time.Time) error {
		_, err := r.ReplaceUnused(ctx, NewVerificationToken{TokenHash: hash, Email: email, ExpiresAt: expiresAt})
		return err
	}
}

// linkBilling attaches an external billing customer to a freshly created
// user. It never fails the calling operation.
func (e *Engine) linkBilling(ctx context.Context, fu flows.MagicLinkUser) {
	if e.billing == nil {
		return
	}
	user := User{ID: fu.ID, Email: fu.Email, Name: fu.Name}
	customerID, err := e.billing.LinkCustomer(ctx, user)
	if err != nil {
		e.metricInc(MetricBillingLinkFailure)
		e.logger.WarnContext(ctx, "billing customer link failed", "user_id", fu.ID, "error", err)
		return
	}
	if customerID == "" {
		return
	}
	if _, err := e.users.Update(ctx, fu.ID, UserPatch{BillingCustomerID: &customerID}); err != nil {
		e.metricInc(MetricBillingLinkFailure)
		e.logger.WarnContext(ctx, "billing customer id not stored", "user_id", fu.ID, "error", err)
	}
}

func (e *Engine) markVerified(ctx context.Context, id string) error {
	at := e.now().UTC()
	_, err := e.users.Update(ctx, id, UserPatch{EmailVerifiedAt: &at})
	return err
}

func (e *Engine) buildFlowDeps() {
	users := flows.UserLookupDeps{
		FindUserByEmail: e.findUserByEmail,
		CreateUser:      e.createUser,
		OnUserCreated:   e.linkBilling,
	}
	observer := flows.Observer{
		Logger:        e.logger,
		MetricInc:     func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit:     e.emitAudit,
		EmitRateLimit: e.emitRateLimit,
	}
	metrics := flows.MagicLinkMetrics{
		Requested:       int(MetricMagicLinkRequested),
		RateLimited:     int(MetricMagicLinkRateLimited),
		InvalidEmail:    int(MetricMagicLinkInvalidEmail),
		DeliveryFailure: int(MetricMagicLinkDeliveryFailure),
		TokenSuperseded: int(MetricTokenSuperseded),
		VerifySuccess:   int(MetricVerifySuccess),
		VerifyInvalid:   int(MetricVerifyInvalid),
		VerifyUsed:      int(MetricVerifyUsed),
		VerifyExpired:   int(MetricVerifyExpired),
		ReplayDetected:  int(MetricReplayDetected),
		UserCreated:     int(MetricUserCreated),
		WelcomeFailure:  int(MetricWelcomeEmailFailure),
		SessionIssued:   int(MetricSessionIssued),
	}
	events := flows.MagicLinkEvents{
		Request: auditEventMagicLinkRequest,
		Verify:  auditEventMagicLinkVerify,
	}
	errs := flows.MagicLinkErrors{
		EngineNotReady:     ErrEngineNotReady,
		InvalidEmail:       newValidationError("email", MessageInvalidEmail),
		TokenRequired:      newValidationError("token", MessageTokenRequired),
		RateLimited:        ErrRateLimited,
		LimiterUnavailable: ErrRateLimiterUnavailable,
		InvalidToken:       ErrInvalidToken,
		TokenUsed:          ErrTokenUsed,
		TokenExpired:       ErrTokenExpired,
		UserNotFound:       ErrUserNotFound,
		UserExists:         ErrEmailTaken,
		TokenNotFound:      ErrTokenNotFound,
		Delivery:           ErrEmailDelivery,
	}

	e.flows.Issue = flows.MagicLinkIssueDeps{
		TokenTTL:       e.config.Token.TTL,
		Now:            e.now,
		ExpiryAt:       e.tokenCodec.ExpiryAt,
		NormalizeEmail: validate.NormalizeEmail,
		NormalizeName: func(raw string) (string, bool) {
			if !validate.IsValidName(raw) {
				return "", false
			}
			return validate.NormalizeName(raw), true
		},
		Allow:            e.limiter.Allow,
		Users:            users,
		InvalidateUnused: e.tokens.InvalidateAllUnused,
		GenerateToken:    e.tokenCodec.Generate,
		HashToken:        token.Hash,
		CreateToken: func(ctx context.Context, hash, email string, expiresAt time.Time) error {
			_, err := e.tokens.Create(ctx, NewVerificationToken{TokenHash: hash, Email: email, ExpiresAt: expiresAt})
			return err
		},
		ReplaceToken:  e.replaceToken(),
		SendMagicLink: e.sender.SendMagicLink,
		Observer:      observer,
		Metrics:       metrics,
		Events:        events,
		Errors:        errs,
	}

	e.flows.Verify = flows.MagicLinkVerifyDeps{
		Now:        e.now,
		IsNonEmpty: validate.IsNonEmpty,
		IsExpired:  e.tokenCodec.IsExpired,
		HashToken:  token.Hash,
		FindTokenByHash: func(ctx context.Context, hash string) (flows.MagicLinkToken, error) {
			rec, err := e.tokens.FindByHash(ctx, hash)
			if err != nil {
				return flows.MagicLinkToken{}, err
			}
			return flows.MagicLinkToken{ID: rec.ID, Email: rec.Email, ExpiresAt: rec.ExpiresAt, Used: rec.Used}, nil
		},
		MarkUsedIfUnused:    e.tokens.MarkUsedIfUnused,
		Users:               users,
		MarkVerified:        e.markVerified,
		SendWelcome:         e.sender.SendWelcome,
		WelcomeFailureFatal: e.config.Email.WelcomeFailurePolicy == WelcomeFailureFail,
		DefaultWelcomeName:  e.config.Email.DefaultWelcomeName,
		SignSession:         e.signSession,
		ObserveLatency: func(d time.Duration) {
			if e.metrics != nil {
				e.metrics.Observe(MetricVerifyLatency, d)
			}
		},
		Observer: observer,
		Metrics:  metrics,
		Events:   events,
		Errors:   errs,
	}

	e.flows.Refresh = flows.SessionRefreshDeps{
		IsExpiringSoon:  e.session.IsExpiringSoon,
		SignSession:     e.signSession,
		Threshold:       e.config.Session.RefreshThreshold,
		Observer:        observer,
		RefreshedMetric: int(MetricSessionRefreshed),
		Event:           auditEventSessionRefresh,
		EngineNotReady:  ErrEngineNotReady,
	}
}
