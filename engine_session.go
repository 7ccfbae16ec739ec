package magicAuth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/magicAuth/internal/flows"
	"github.com/MrEthical07/magicAuth/jwt"
	"github.com/MrEthical07/magicAuth/validate"
)

// readSession returns the verified claims of the request's session cookie.
// Absent and invalid cookies are ErrUnauthenticated; a missing signing
// secret is ErrConfiguration.
func (e *Engine) readSession(r *http.Request) (*SessionClaims, error) {
	raw, ok := e.cookie.Read(r)
	if !ok {
		return nil, ErrUnauthenticated
	}
	claims, err := e.session.Verify(raw)
	if err != nil {
		if errors.Is(err, jwt.ErrMissingSecret) {
			return nil, configError(err)
		}
		e.metricInc(MetricSessionRejected)
		if e.logger.Enabled(r.Context(), slog.LevelDebug) {
			if c, ok := e.session.DecodeUnsafe(raw); ok {
				e.logger.DebugContext(r.Context(), "session rejected", "claimed_user_id", c.UserID)
			}
		}
		return nil, ErrUnauthenticated
	}
	return claims, nil
}

// CurrentSession returns the session carried by r, if any. It never fails:
// a missing, malformed, forged or expired cookie all yield false.
func (e *Engine) CurrentSession(r *http.Request) (*SessionClaims, bool) {
	claims, err := e.readSession(r)
	if err != nil {
		if errors.Is(err, ErrConfiguration) {
			e.logger.ErrorContext(r.Context(), "session verification misconfigured", "error", err)
		}
		return nil, false
	}
	return claims, true
}

// RequireSession is CurrentSession as a hard gate. It returns
// ErrUnauthenticated when r carries no acceptable session.
func (e *Engine) RequireSession(r *http.Request) (*SessionClaims, error) {
	return e.readSession(r)
}

// RequireUser resolves the session subject to a stored user. A malformed
// subject id or a user that no longer exists is ErrUnauthenticated.
func (e *Engine) RequireUser(ctx context.Context, r *http.Request) (User, error) {
	ctx, span := e.startSpan(ctx, "RequireUser")
	user, err := e.requireUser(ctx, r)
	endSpan(span, err)
	return user, err
}

func (e *Engine) requireUser(ctx context.Context, r *http.Request) (User, error) {
	claims, err := e.readSession(r)
	if err != nil {
		return User{}, err
	}
	if !validate.IsValidID(claims.UserID) {
		e.metricInc(MetricSessionRejected)
		e.emitAudit(ctx, auditEventSessionRejected, false, "", claims.Email, ErrUnauthenticated, func() map[string]string {
			return map[string]string{
				"reason": "malformed_subject",
			}
		})
		return User{}, ErrUnauthenticated
	}

	user, err := e.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricSessionRejected)
			e.emitAudit(ctx, auditEventSessionRejected, false, claims.UserID, claims.Email, ErrUnauthenticated, func() map[string]string {
				return map[string]string{
					"reason": "user_not_found",
				}
			})
			return User{}, ErrUnauthenticated
		}
		return User{}, fmt.Errorf("find session user: %w", err)
	}
	return user, nil
}

// RefreshIfNeeded re-issues the session cookie for user when the cookie on
// r expires within threshold. A zero threshold selects
// Config.Session.RefreshThreshold. It reports whether a new cookie was
// written; requests without a session cookie are left alone.
func (e *Engine) RefreshIfNeeded(w http.ResponseWriter, r *http.Request, user User, threshold time.Duration) (bool, error) {
	deps := e.flows.Refresh
	if threshold > 0 {
		deps.Threshold = threshold
	}
	deps.ReadSession = func() (string, bool) {
		return e.cookie.Read(r)
	}
	deps.WriteSession = func(tok string) {
		e.cookie.Write(w, tok)
	}
	return flows.RunSessionRefresh(r.Context(), toFlowUser(user), deps)
}

// Refresh resolves the request's user and slides its session when needed.
// It is what page guards call before deciding where a visitor belongs. The
// returned user is nil when the request is anonymous.
func (e *Engine) Refresh(w http.ResponseWriter, r *http.Request) (*User, error) {
	ctx := r.Context()
	user, err := e.requireUser(ctx, r)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return nil, nil
		}
		return nil, err
	}
	if _, err := e.RefreshIfNeeded(w, r, user, 0); err != nil {
		e.logger.WarnContext(ctx, "session refresh failed", "user_id", user.ID, "error", err)
	}
	return &user, nil
}

// GetMe is the session probe behind "who am I". It never fails: anonymous
// requests, sessions whose user has disappeared and store errors all yield
// nil. The session of an active user is slid forward.
func (e *Engine) GetMe(ctx context.Context, w http.ResponseWriter, r *http.Request) *User {
	ctx, span := e.startSpan(ctx, "GetMe")
	user, err := e.Refresh(w, r.WithContext(ctx))
	endSpan(span, err)
	if err != nil {
		e.logger.ErrorContext(ctx, "session probe failed", "error", err)
		return nil
	}
	return user
}

// Logout clears the session cookie. It succeeds whether or not a session
// existed.
func (e *Engine) Logout(ctx context.Context, w http.ResponseWriter) {
	e.cookie.Clear(w)
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, "", "", nil, nil)
}
