package flows

import (
	"context"
	"fmt"
	"time"
)

type SessionRefreshDeps struct {
	ReadSession    func() (string, bool)
	IsExpiringSoon func(string, time.Duration) bool
	SignSession    func(MagicLinkUser) (string, error)
	WriteSession   func(string)
	Threshold      time.Duration

	Observer

	RefreshedMetric int
	Event           string
	EngineNotReady  error
}

// RunSessionRefresh reissues the session cookie for user when the presented
// token is close to expiry. It reports whether a new token was written. A
// request without a session cookie is left untouched.
func RunSessionRefresh(ctx context.Context, user MagicLinkUser, deps SessionRefreshDeps) (bool, error) {
	deps.Observer.normalize()
	if deps.ReadSession == nil || deps.IsExpiringSoon == nil || deps.SignSession == nil || deps.WriteSession == nil {
		return false, deps.EngineNotReady
	}

	current, ok := deps.ReadSession()
	if !ok {
		return false, nil
	}
	if !deps.IsExpiringSoon(current, deps.Threshold) {
		return false, nil
	}

	next, err := deps.SignSession(user)
	if err != nil {
		return false, fmt.Errorf("sign session: %w", err)
	}
	deps.WriteSession(next)
	deps.MetricInc(deps.RefreshedMetric)
	deps.EmitAudit(ctx, deps.Event, true, user.ID, user.Email, nil, nil)
	return true, nil
}
