package security

import (
	"sort"
	"time"
)

// Report summarizes the security posture of a configured engine. It never
// carries secret material.
type Report struct {
	ProductionMode       bool          `json:"productionMode"`
	SigningAlgorithm     string        `json:"signingAlgorithm"`
	SecretConfigured     bool          `json:"secretConfigured"`
	CookieSecure         bool          `json:"cookieSecure"`
	SessionTTL           time.Duration `json:"sessionTtl"`
	RefreshThreshold     time.Duration `json:"refreshThreshold"`
	TokenTTL             time.Duration `json:"tokenTtl"`
	TokenEntropyBits     int           `json:"tokenEntropyBits"`
	RateLimitMax         int           `json:"rateLimitMax"`
	RateLimitWindow      time.Duration `json:"rateLimitWindow"`
	DistributedRateLimit bool          `json:"distributedRateLimit"`
	AuditEnabled         bool          `json:"auditEnabled"`
	WelcomeFailureFatal  bool          `json:"welcomeFailureFatal"`
	Warnings             []Warning     `json:"warnings,omitempty"`
}

// ReportInput is the flattened configuration BuildReport inspects.
type ReportInput struct {
	ProductionMode       bool
	SecretLength         int
	CookieSecure         bool
	SessionTTL           time.Duration
	RefreshThreshold     time.Duration
	TokenTTL             time.Duration
	TokenBytes           int
	RateLimitMax         int
	RateLimitWindow      time.Duration
	DistributedRateLimit bool
	AuditEnabled         bool
	WelcomeFailureFatal  bool
}

// Warning is one finding of Lint.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Warnings is a list of findings.
type Warnings []Warning

// Codes returns the warning codes in sorted order.
func (ws Warnings) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	sort.Strings(out)
	return out
}

// Thresholds above which Lint reports a lifetime as long.
const (
	LongSessionTTL  = 30 * 24 * time.Hour
	LongTokenTTL    = time.Hour
	LooseRateLimit  = 10
	MinSecretLength = 32
)

// Lint reports configurations that are valid but risky.
func Lint(in ReportInput) Warnings {
	var ws Warnings
	add := func(code, msg string) {
		ws = append(ws, Warning{Code: code, Message: msg})
	}

	switch {
	case in.SecretLength == 0:
		add("secret_missing", "no session signing secret; every login will fail with a configuration error")
	case in.SecretLength < MinSecretLength:
		add("secret_short", "session signing secret is shorter than 32 bytes")
	}
	if !in.CookieSecure {
		add("cookie_insecure", "session cookie is sent over plain HTTP")
	}
	if in.SessionTTL > LongSessionTTL {
		add("session_ttl_long", "sessions live longer than 30 days")
	}
	if in.TokenTTL > LongTokenTTL {
		add("token_ttl_long", "magic links stay valid for more than an hour")
	}
	if in.RateLimitMax > LooseRateLimit {
		add("rate_limit_loose", "more than 10 magic links per window are allowed per address")
	}
	if in.ProductionMode && !in.DistributedRateLimit {
		add("rate_limit_local", "rate limiting is per process; use Redis when running several instances")
	}
	if !in.AuditEnabled {
		add("audit_disabled", "audit events are not recorded")
	}
	return ws
}

// BuildReport derives the posture summary and lint findings from input.
func BuildReport(input ReportInput) Report {
	return Report{
		ProductionMode:       input.ProductionMode,
		SigningAlgorithm:     "HS256",
		SecretConfigured:     input.SecretLength > 0,
		CookieSecure:         input.CookieSecure,
		SessionTTL:           input.SessionTTL,
		RefreshThreshold:     input.RefreshThreshold,
		TokenTTL:             input.TokenTTL,
		TokenEntropyBits:     input.TokenBytes * 8,
		RateLimitMax:         input.RateLimitMax,
		RateLimitWindow:      input.RateLimitWindow,
		DistributedRateLimit: input.DistributedRateLimit,
		AuditEnabled:         input.AuditEnabled,
		WelcomeFailureFatal:  input.WelcomeFailureFatal,
		Warnings:             Lint(input),
	}
}
