package flows

import (
	"context"
	"log/slog"
	"time"
)

// MagicLinkUser is the flow-side view of a user record.
type MagicLinkUser struct {
	ID    string
	Email string
	Name  string
	// Verified is true once the user has completed a login.
	Verified bool
}

// MagicLinkToken is the flow-side view of a stored verification token.
type MagicLinkToken struct {
	ID        string
	Email     string
	ExpiresAt time.Time
	Used      bool
}

type MagicLinkMetrics struct {
	Requested       int
	RateLimited     int
	InvalidEmail    int
	DeliveryFailure int
	TokenSuperseded int
	VerifySuccess   int
	VerifyInvalid   int
	VerifyUsed      int
	VerifyExpired   int
	ReplayDetected  int
	UserCreated     int
	WelcomeFailure  int
	SessionIssued   int
}

type MagicLinkEvents struct {
	Request string
	Verify  string
}

type MagicLinkErrors struct {
	EngineNotReady     error
	InvalidEmail       error
	TokenRequired      error
	RateLimited        error
	LimiterUnavailable error
	InvalidToken       error
	TokenUsed          error
	TokenExpired       error
	UserNotFound       error
	UserExists         error
	TokenNotFound      error
	Delivery           error
}

// UserLookupDeps is shared by every flow that may create a user on demand.
type UserLookupDeps struct {
	FindUserByEmail func(context.Context, string) (MagicLinkUser, error)
	CreateUser      func(context.Context, string, string) (MagicLinkUser, error)
	// OnUserCreated runs after a user row is inserted. It must not fail the
	// calling flow.
	OnUserCreated func(context.Context, MagicLinkUser)
}

type Observer struct {
	Logger        *slog.Logger
	MetricInc     func(int)
	EmitAudit     func(context.Context, string, bool, string, string, error, func() map[string]string)
	EmitRateLimit func(context.Context, string, string, func() map[string]string)
}

func (o *Observer) normalize() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.MetricInc == nil {
		o.MetricInc = func(int) {}
	}
	if o.EmitAudit == nil {
		o.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if o.EmitRateLimit == nil {
		o.EmitRateLimit = func(context.Context, string, string, func() map[string]string) {}
	}
}
