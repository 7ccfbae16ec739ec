package magicAuth

import (
	"github.com/MrEthical07/magicAuth/internal/security"
)

// SecurityReport summarizes the engine's effective security settings.
type SecurityReport = security.Report

// LintWarning is a valid but risky configuration finding.
type LintWarning = security.Warning

// LintWarnings is the result of Config.Lint.
type LintWarnings = security.Warnings

// SecurityReport returns the posture of the built engine, including lint
// findings.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	return security.BuildReport(e.config.reportInput(e.distributedLimiter))
}

// Lint reports settings that pass Validate but weaken security. It assumes
// an in-process rate limiter.
func (c *Config) Lint() LintWarnings {
	return security.Lint(c.reportInput(false))
}

func (c *Config) reportInput(distributed bool) security.ReportInput {
	return security.ReportInput{
		ProductionMode:       c.Security.ProductionMode,
		SecretLength:         len(c.Session.Secret),
		CookieSecure:         c.cookieSecure(),
		SessionTTL:           c.Session.TTL,
		RefreshThreshold:     c.Session.RefreshThreshold,
		TokenTTL:             c.Token.TTL,
		TokenBytes:           c.Token.ByteLength,
		RateLimitMax:         c.RateLimit.Max,
		RateLimitWindow:      c.RateLimit.Window,
		DistributedRateLimit: distributed,
		AuditEnabled:         c.Audit.Enabled,
		WelcomeFailureFatal:  c.Email.WelcomeFailurePolicy == WelcomeFailureFail,
	}
}
