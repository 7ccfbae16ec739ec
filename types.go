package magicAuth

import (
	"context"
	"io"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/magicAuth/internal/audit"
	internalmetrics "github.com/MrEthical07/magicAuth/internal/metrics"
	"github.com/MrEthical07/magicAuth/jwt"
)

// User is the identity record owned by a UserStore.
type User struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	Name              string     `json:"name,omitempty"`
	BillingCustomerID string     `json:"billingCustomerId,omitempty"`
	EmailVerifiedAt   *time.Time `json:"emailVerifiedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// NewUser is the input to UserStore.Create. Name may be empty.
type NewUser struct {
	Email string
	Name  string
}

// UserPatch lists the mutable user fields. Nil fields are left unchanged.
// ID and CreatedAt are immutable and have no patch field.
type UserPatch struct {
	Email             *string    `json:"email,omitempty"`
	Name              *string    `json:"name,omitempty"`
	BillingCustomerID *string    `json:"billingCustomerId,omitempty"`
	EmailVerifiedAt   *time.Time `json:"emailVerifiedAt,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Email == nil && p.Name == nil && p.BillingCustomerID == nil && p.EmailVerifiedAt == nil
}

// VerificationToken is a stored magic-link token. Only the hash of the raw
// token is ever persisted.
type VerificationToken struct {
	ID        string
	TokenHash string
	Email     string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// NewVerificationToken is the input to TokenStore.Create.
type NewVerificationToken struct {
	TokenHash string
	Email     string
	ExpiresAt time.Time
}

// UserStore persists users. Lookups that find nothing return
// ErrUserNotFound; Create and Update return ErrEmailTaken on a duplicate
// email.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	Create(ctx context.Context, input NewUser) (User, error)
	Update(ctx context.Context, id string, patch UserPatch) (User, error)
}

// TokenStore persists verification tokens.
//
// MarkUsedIfUnused must be an atomic compare-and-set: it flips used from
// false to true and reports whether this call performed the flip. Of any
// number of concurrent calls for the same id, at most one returns true.
type TokenStore interface {
	FindByHash(ctx context.Context, tokenHash string) (VerificationToken, error)
	Create(ctx context.Context, input NewVerificationToken) (VerificationToken, error)
	InvalidateAllUnused(ctx context.Context, email string) error
	MarkUsedIfUnused(ctx context.Context, id string) (bool, error)
}

// TokenReplacer is an optional TokenStore capability. ReplaceUnused
// invalidates every unused token of input.Email and stores input as one
// atomic step, so concurrent issuances for one address leave exactly one
// live token. Stores without it get InvalidateAllUnused then Create.
type TokenReplacer interface {
	ReplaceUnused(ctx context.Context, input NewVerificationToken) (VerificationToken, error)
}

// EmailSender delivers magic-link and welcome emails. Implementations build
// the link from the raw token.
type EmailSender interface {
	SendMagicLink(ctx context.Context, to, rawToken, name string) error
	SendWelcome(ctx context.Context, to, name string) error
}

// BillingLinker creates an external billing customer for a new user and
// returns its id. Failures never block authentication.
type BillingLinker interface {
	LinkCustomer(ctx context.Context, user User) (string, error)
}

// RateLimiter admits or denies one more issuance for key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// IssueResult acknowledges a magic-link issuance.
type IssueResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// VerifyResult is returned by a successful VerifyAndConsume.
type VerifyResult struct {
	User      User `json:"user"`
	IsNewUser bool `json:"isNewUser"`
}

// SessionClaims is the verified content of a session credential.
type SessionClaims = jwt.Claims

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink is an [AuditSink] that logs events through a [slog.Logger].
type SlogSink = internalaudit.SlogSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewSlogSink creates a [SlogSink]. A nil logger selects slog.Default.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}

// MetricID identifies a counter or histogram in the in-process metrics.
type MetricID = internalmetrics.MetricID

const (
	MetricMagicLinkRequested       = MetricID(internalmetrics.MetricMagicLinkRequested)
	MetricMagicLinkRateLimited     = MetricID(internalmetrics.MetricMagicLinkRateLimited)
	MetricMagicLinkInvalidEmail    = MetricID(internalmetrics.MetricMagicLinkInvalidEmail)
	MetricMagicLinkDeliveryFailure = MetricID(internalmetrics.MetricMagicLinkDeliveryFailure)
	MetricTokenSuperseded          = MetricID(internalmetrics.MetricTokenSuperseded)
	MetricVerifySuccess            = MetricID(internalmetrics.MetricVerifySuccess)
	MetricVerifyInvalid            = MetricID(internalmetrics.MetricVerifyInvalid)
	MetricVerifyUsed               = MetricID(internalmetrics.MetricVerifyUsed)
	MetricVerifyExpired            = MetricID(internalmetrics.MetricVerifyExpired)
	MetricReplayDetected           = MetricID(internalmetrics.MetricReplayDetected)
	MetricUserCreated              = MetricID(internalmetrics.MetricUserCreated)
	MetricWelcomeEmailFailure      = MetricID(internalmetrics.MetricWelcomeEmailFailure)
	MetricBillingLinkFailure       = MetricID(internalmetrics.MetricBillingLinkFailure)
	MetricSessionIssued            = MetricID(internalmetrics.MetricSessionIssued)
	MetricSessionRefreshed         = MetricID(internalmetrics.MetricSessionRefreshed)
	MetricSessionRejected          = MetricID(internalmetrics.MetricSessionRejected)
	MetricLogout                   = MetricID(internalmetrics.MetricLogout)
	MetricUserUpdated              = MetricID(internalmetrics.MetricUserUpdated)
	MetricVerifyLatency            = MetricID(internalmetrics.MetricVerifyLatency)
)

// Metrics holds atomic counters and optional latency histograms.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a [Metrics] instance. When Enabled is false, all
// operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
