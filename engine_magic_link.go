package magicAuth

import (
	"context"
	"net/http"

	"github.com/MrEthical07/magicAuth/internal/flows"
	"go.opentelemetry.io/otel/attribute"
)

// IssueMagicLink emails a fresh single-use login link to email. Any
// previously issued unused link for the same address stops working.
//
// It fails with a *ValidationError for an invalid address, ErrRateLimited
// when the address exceeded its issuance budget, and wraps
// ErrEmailDelivery when the link could not be sent. A user row created
// before a later step fails is not rolled back.
func (e *Engine) IssueMagicLink(ctx context.Context, email, name string) (IssueResult, error) {
	ctx, span := e.startSpan(ctx, "IssueMagicLink")
	res, err := flows.RunIssueMagicLink(ctx, email, name, e.flows.Issue)
	if err == nil {
		span.SetAttributes(attribute.Bool("magicauth.user_created", res.UserCreated))
	}
	endSpan(span, err)
	if err != nil {
		return IssueResult{}, err
	}
	return IssueResult{Success: true, Message: "Magic link sent to your email"}, nil
}

// VerifyAndConsume redeems rawToken, writes the session cookie to w and
// returns the authenticated user. Of concurrent calls presenting the same
// token, at most one succeeds; the rest fail with ErrTokenUsed.
//
// IsNewUser is true on the first completed login of an address.
func (e *Engine) VerifyAndConsume(ctx context.Context, w http.ResponseWriter, rawToken string) (VerifyResult, error) {
	ctx, span := e.startSpan(ctx, "VerifyAndConsume")

	deps := e.flows.Verify
	deps.WriteSession = func(tok string) {
		e.cookie.Write(w, tok)
	}

	res, err := flows.RunVerifyMagicLink(ctx, rawToken, deps)
	endSpan(span, err)
	if err != nil {
		return VerifyResult{}, err
	}

	user, err := e.users.FindByID(ctx, res.User.ID)
	if err != nil {
		e.logger.WarnContext(ctx, "reload verified user failed", "user_id", res.User.ID, "error", err)
		user = User{ID: res.User.ID, Email: res.User.Email, Name: res.User.Name}
	}
	return VerifyResult{User: user, IsNewUser: res.IsNewUser}, nil
}
