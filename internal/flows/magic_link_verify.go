package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type MagicLinkVerifyDeps struct {
	Now func() time.Time

	IsNonEmpty func(string) bool
	IsExpired  func(time.Time) bool

	HashToken        func(string) string
	FindTokenByHash  func(context.Context, string) (MagicLinkToken, error)
	MarkUsedIfUnused func(context.Context, string) (bool, error)

	Users UserLookupDeps
	// MarkVerified records the first completed login for a user. It runs
	// after the welcome email unless that email failed under a fatal policy.
	MarkVerified func(context.Context, string) error

	SendWelcome         func(context.Context, string, string) error
	WelcomeFailureFatal bool
	DefaultWelcomeName  string

	SignSession  func(MagicLinkUser) (string, error)
	WriteSession func(string)

	ObserveLatency func(time.Duration)

	Observer

	Metrics MagicLinkMetrics
	Events  MagicLinkEvents
	Errors  MagicLinkErrors
}

type MagicLinkVerifyResult struct {
	User      MagicLinkUser
	IsNewUser bool
	Session   string
}

func normalizeMagicLinkVerifyDeps(deps *MagicLinkVerifyDeps) {
	deps.Observer.normalize()
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.IsNonEmpty == nil {
		deps.IsNonEmpty = func(s string) bool { return strings.TrimSpace(s) != "" }
	}
	if deps.IsExpired == nil {
		now := deps.Now
		deps.IsExpired = func(at time.Time) bool { return now().After(at) }
	}
	if deps.ObserveLatency == nil {
		deps.ObserveLatency = func(time.Duration) {}
	}
	if deps.DefaultWelcomeName == "" {
		deps.DefaultWelcomeName = "there"
	}
}

// RunVerifyMagicLink consumes a raw token exactly once and opens a session.
// The used flag is flipped with a compare-and-set, so of any number of
// concurrent callers presenting the same token at most one proceeds past it.
func RunVerifyMagicLink(ctx context.Context, raw string, deps MagicLinkVerifyDeps) (MagicLinkVerifyResult, error) {
	normalizeMagicLinkVerifyDeps(&deps)

	if deps.HashToken == nil || deps.FindTokenByHash == nil || deps.MarkUsedIfUnused == nil ||
		deps.Users.FindUserByEmail == nil || deps.Users.CreateUser == nil ||
		deps.SignSession == nil || deps.WriteSession == nil {
		return MagicLinkVerifyResult{}, deps.Errors.EngineNotReady
	}

	if !deps.IsNonEmpty(raw) {
		deps.MetricInc(deps.Metrics.VerifyInvalid)
		return MagicLinkVerifyResult{}, deps.Errors.TokenRequired
	}

	start := deps.Now()
	defer func() {
		deps.ObserveLatency(deps.Now().Sub(start))
	}()

	fail := func(metric int, email string, err error, reason string) (MagicLinkVerifyResult, error) {
		deps.MetricInc(metric)
		deps.EmitAudit(ctx, deps.Events.Verify, false, "", email, err, func() map[string]string {
			return map[string]string{
				"reason": reason,
			}
		})
		return MagicLinkVerifyResult{}, err
	}

	rec, err := deps.FindTokenByHash(ctx, deps.HashToken(raw))
	if err != nil {
		if errors.Is(err, deps.Errors.TokenNotFound) {
			return fail(deps.Metrics.VerifyInvalid, "", deps.Errors.InvalidToken, "not_found")
		}
		return MagicLinkVerifyResult{}, fmt.Errorf("find token: %w", err)
	}
	if rec.Used {
		return fail(deps.Metrics.VerifyUsed, rec.Email, deps.Errors.TokenUsed, "used")
	}
	if deps.IsExpired(rec.ExpiresAt) {
		return fail(deps.Metrics.VerifyExpired, rec.Email, deps.Errors.TokenExpired, "expired")
	}

	won, err := deps.MarkUsedIfUnused(ctx, rec.ID)
	if err != nil {
		return MagicLinkVerifyResult{}, fmt.Errorf("consume token: %w", err)
	}
	if !won {
		deps.MetricInc(deps.Metrics.ReplayDetected)
		return fail(deps.Metrics.VerifyUsed, rec.Email, deps.Errors.TokenUsed, "replay")
	}

	user, created, err := findOrCreateUser(ctx, rec.Email, "", deps.Users, deps.Errors)
	if err != nil {
		return MagicLinkVerifyResult{}, err
	}
	if created {
		deps.MetricInc(deps.Metrics.UserCreated)
	}

	// A user row may predate the first login because issuance creates it.
	// The verified stamp is withheld while a fatal welcome failure is
	// refusing the login, so the next attempt is still the first.
	first := created || !user.Verified
	if first {
		if deps.SendWelcome != nil {
			name := user.Name
			if name == "" {
				name = deps.DefaultWelcomeName
			}
			if err := deps.SendWelcome(ctx, user.Email, name); err != nil {
				deps.MetricInc(deps.Metrics.WelcomeFailure)
				if deps.WelcomeFailureFatal {
					return MagicLinkVerifyResult{}, fmt.Errorf("%w: welcome email: %v", deps.Errors.Delivery, err)
				}
				deps.Logger.WarnContext(ctx, "welcome email failed", "user_id", user.ID, "error", err)
			}
		}
		if deps.MarkVerified != nil {
			if err := deps.MarkVerified(ctx, user.ID); err != nil {
				return MagicLinkVerifyResult{}, fmt.Errorf("mark verified: %w", err)
			}
		}
		user.Verified = true
	}

	session, err := deps.SignSession(user)
	if err != nil {
		return MagicLinkVerifyResult{}, fmt.Errorf("sign session: %w", err)
	}
	deps.WriteSession(session)

	deps.MetricInc(deps.Metrics.VerifySuccess)
	deps.MetricInc(deps.Metrics.SessionIssued)
	deps.EmitAudit(ctx, deps.Events.Verify, true, user.ID, user.Email, nil, func() map[string]string {
		if !first {
			return nil
		}
		return map[string]string{
			"first_login": "true",
		}
	})

	return MagicLinkVerifyResult{User: user, IsNewUser: first, Session: session}, nil
}
