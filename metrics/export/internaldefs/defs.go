package internaldefs

import (
	"github.com/MrEthical07/magicAuth"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   magicAuth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram for exporters.
type HistogramDef struct {
	ID   magicAuth.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter of audit events lost to backpressure.
const (
	AuditDroppedName = "magicauth_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: magicAuth.MetricMagicLinkRequested, Name: "magicauth_magic_link_requested_total", Help: "Magic links issued."},
	{ID: magicAuth.MetricMagicLinkRateLimited, Name: "magicauth_magic_link_rate_limited_total", Help: "Magic link requests denied by the rate limiter."},
	{ID: magicAuth.MetricMagicLinkInvalidEmail, Name: "magicauth_magic_link_invalid_email_total", Help: "Magic link requests with an invalid email."},
	{ID: magicAuth.MetricMagicLinkDeliveryFailure, Name: "magicauth_magic_link_delivery_failure_total", Help: "Magic link emails that could not be sent."},
	{ID: magicAuth.MetricTokenSuperseded, Name: "magicauth_token_superseded_total", Help: "Issuances that invalidated earlier unused tokens."},
	{ID: magicAuth.MetricVerifySuccess, Name: "magicauth_verify_success_total", Help: "Successful token verifications."},
	{ID: magicAuth.MetricVerifyInvalid, Name: "magicauth_verify_invalid_total", Help: "Verifications of unknown tokens."},
	{ID: magicAuth.MetricVerifyUsed, Name: "magicauth_verify_used_total", Help: "Verifications of already used tokens."},
	{ID: magicAuth.MetricVerifyExpired, Name: "magicauth_verify_expired_total", Help: "Verifications of expired tokens."},
	{ID: magicAuth.MetricReplayDetected, Name: "magicauth_replay_detected_total", Help: "Concurrent redemptions that lost the consume race."},
	{ID: magicAuth.MetricUserCreated, Name: "magicauth_user_created_total", Help: "Users created on first contact."},
	{ID: magicAuth.MetricWelcomeEmailFailure, Name: "magicauth_welcome_email_failure_total", Help: "Welcome emails that could not be sent."},
	{ID: magicAuth.MetricBillingLinkFailure, Name: "magicauth_billing_link_failure_total", Help: "Failed billing customer links."},
	{ID: magicAuth.MetricSessionIssued, Name: "magicauth_session_issued_total", Help: "Session credentials issued at login."},
	{ID: magicAuth.MetricSessionRefreshed, Name: "magicauth_session_refreshed_total", Help: "Session credentials re-issued near expiry."},
	{ID: magicAuth.MetricSessionRejected, Name: "magicauth_session_rejected_total", Help: "Session cookies rejected as invalid or stale."},
	{ID: magicAuth.MetricLogout, Name: "magicauth_logout_total", Help: "Logout operations."},
	{ID: magicAuth.MetricUserUpdated, Name: "magicauth_user_updated_total", Help: "Profile updates."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: magicAuth.MetricVerifyLatency, Name: "magicauth_verify_latency_seconds", Help: "Token verification latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The last
// engine bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// NormalizeBuckets copies raw into a fixed array, zero filling.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
