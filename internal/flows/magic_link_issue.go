package flows

import (
	"context"
	"fmt"
	"time"
)

type MagicLinkIssueDeps struct {
	TokenTTL time.Duration
	Now      func() time.Time
	ExpiryAt func(time.Duration) time.Time

	NormalizeEmail func(string) (string, bool)
	NormalizeName  func(string) (string, bool)

	Allow func(context.Context, string) (bool, error)

	Users UserLookupDeps

	InvalidateUnused func(context.Context, string) error
	GenerateToken    func() (string, error)
	HashToken        func(string) string
	CreateToken      func(context.Context, string, string, time.Time) error
	// ReplaceToken, when set, supersedes and stores in one atomic step and
	// is used instead of InvalidateUnused followed by CreateToken.
	ReplaceToken func(context.Context, string, string, time.Time) error

	SendMagicLink func(context.Context, string, string, string) error

	Observer

	Metrics MagicLinkMetrics
	Events  MagicLinkEvents
	Errors  MagicLinkErrors
}

type MagicLinkIssueResult struct {
	UserID      string
	Email       string
	UserCreated bool
}

func normalizeMagicLinkIssueDeps(deps *MagicLinkIssueDeps) {
	deps.Observer.normalize()
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ExpiryAt == nil {
		now := deps.Now
		deps.ExpiryAt = func(ttl time.Duration) time.Time { return now().Add(ttl) }
	}
}

// RunIssueMagicLink validates the address, applies the rate limit, ensures
// the user exists, supersedes older tokens, stores a fresh token hash and
// emails the raw token. Priors are invalidated before the new token is
// written so two live tokens for one email are never observable. Two
// concurrent issuances for one email can only both leave a live token when
// the store lacks ReplaceToken.
func RunIssueMagicLink(ctx context.Context, rawEmail, rawName string, deps MagicLinkIssueDeps) (MagicLinkIssueResult, error) {
	normalizeMagicLinkIssueDeps(&deps)

	if deps.NormalizeEmail == nil || deps.Allow == nil || deps.Users.FindUserByEmail == nil ||
		deps.Users.CreateUser == nil || deps.GenerateToken == nil || deps.HashToken == nil ||
		deps.SendMagicLink == nil || (deps.ReplaceToken == nil && (deps.InvalidateUnused == nil || deps.CreateToken == nil)) {
		return MagicLinkIssueResult{}, deps.Errors.EngineNotReady
	}

	email, ok := deps.NormalizeEmail(rawEmail)
	if !ok {
		deps.MetricInc(deps.Metrics.InvalidEmail)
		deps.EmitAudit(ctx, deps.Events.Request, false, "", "", deps.Errors.InvalidEmail, func() map[string]string {
			return map[string]string{
				"reason": "invalid_email",
			}
		})
		return MagicLinkIssueResult{}, deps.Errors.InvalidEmail
	}

	allowed, err := deps.Allow(ctx, email)
	if err != nil {
		deps.Logger.ErrorContext(ctx, "magic link rate limiter failed", "error", err)
		return MagicLinkIssueResult{}, fmt.Errorf("%w: %v", deps.Errors.LimiterUnavailable, err)
	}
	if !allowed {
		deps.MetricInc(deps.Metrics.RateLimited)
		deps.EmitAudit(ctx, deps.Events.Request, false, "", email, deps.Errors.RateLimited, nil)
		deps.EmitRateLimit(ctx, "magic_link_request", email, nil)
		return MagicLinkIssueResult{}, deps.Errors.RateLimited
	}

	name := ""
	if deps.NormalizeName != nil {
		if n, ok := deps.NormalizeName(rawName); ok {
			name = n
		}
	}

	user, created, err := findOrCreateUser(ctx, email, name, deps.Users, deps.Errors)
	if err != nil {
		return MagicLinkIssueResult{}, err
	}
	if created {
		deps.MetricInc(deps.Metrics.UserCreated)
	}

	raw, err := deps.GenerateToken()
	if err != nil {
		return MagicLinkIssueResult{}, fmt.Errorf("generate token: %w", err)
	}
	hash, expiresAt := deps.HashToken(raw), deps.ExpiryAt(deps.TokenTTL)

	if deps.ReplaceToken != nil {
		if err := deps.ReplaceToken(ctx, hash, email, expiresAt); err != nil {
			return MagicLinkIssueResult{}, fmt.Errorf("store token: %w", err)
		}
	} else {
		if err := deps.InvalidateUnused(ctx, email); err != nil {
			return MagicLinkIssueResult{}, fmt.Errorf("invalidate previous tokens: %w", err)
		}
		if err := deps.CreateToken(ctx, hash, email, expiresAt); err != nil {
			return MagicLinkIssueResult{}, fmt.Errorf("store token: %w", err)
		}
	}
	deps.MetricInc(deps.Metrics.TokenSuperseded)

	if err := deps.SendMagicLink(ctx, email, raw, user.Name); err != nil {
		deps.MetricInc(deps.Metrics.DeliveryFailure)
		deps.EmitAudit(ctx, deps.Events.Request, false, user.ID, email, deps.Errors.Delivery, func() map[string]string {
			return map[string]string{
				"reason": "delivery_failed",
			}
		})
		return MagicLinkIssueResult{}, fmt.Errorf("%w: %v", deps.Errors.Delivery, err)
	}

	deps.MetricInc(deps.Metrics.Requested)
	deps.EmitAudit(ctx, deps.Events.Request, true, user.ID, email, nil, func() map[string]string {
		if !created {
			return nil
		}
		return map[string]string{
			"user_created": "true",
		}
	})

	return MagicLinkIssueResult{UserID: user.ID, Email: email, UserCreated: created}, nil
}
