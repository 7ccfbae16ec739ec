package security

import (
	"reflect"
	"testing"
	"time"
)

func hardened() ReportInput {
	return ReportInput{
		ProductionMode:       true,
		SecretLength:         64,
		CookieSecure:         true,
		SessionTTL:           7 * 24 * time.Hour,
		RefreshThreshold:     time.Hour,
		TokenTTL:             15 * time.Minute,
		TokenBytes:           32,
		RateLimitMax:         3,
		RateLimitWindow:      15 * time.Minute,
		DistributedRateLimit: true,
		AuditEnabled:         true,
	}
}

func TestLintHardenedConfigIsClean(t *testing.T) {
	if ws := Lint(hardened()); len(ws) != 0 {
		t.Fatalf("expected no warnings, got %v", ws.Codes())
	}
}

func TestLintFindings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ReportInput)
		want   string
	}{
		{"missing secret", func(in *ReportInput) { in.SecretLength = 0 }, "secret_missing"},
		{"short secret", func(in *ReportInput) { in.SecretLength = 8 }, "secret_short"},
		{"insecure cookie", func(in *ReportInput) { in.CookieSecure = false }, "cookie_insecure"},
		{"long session", func(in *ReportInput) { in.SessionTTL = 90 * 24 * time.Hour }, "session_ttl_long"},
		{"long token", func(in *ReportInput) { in.TokenTTL = 2 * time.Hour }, "token_ttl_long"},
		{"loose limit", func(in *ReportInput) { in.RateLimitMax = 50 }, "rate_limit_loose"},
		{"local limiter", func(in *ReportInput) { in.DistributedRateLimit = false }, "rate_limit_local"},
		{"no audit", func(in *ReportInput) { in.AuditEnabled = false }, "audit_disabled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := hardened()
			tt.mutate(&in)
			codes := Lint(in).Codes()
			if !reflect.DeepEqual(codes, []string{tt.want}) {
				t.Fatalf("got %v, want [%s]", codes, tt.want)
			}
		})
	}
}

func TestLocalLimiterOnlyWarnsInProduction(t *testing.T) {
	in := hardened()
	in.ProductionMode = false
	in.DistributedRateLimit = false
	if ws := Lint(in); len(ws) != 0 {
		t.Fatalf("expected no warnings outside production, got %v", ws.Codes())
	}
}

func TestBuildReport(t *testing.T) {
	r := BuildReport(hardened())
	if !r.SecretConfigured || r.TokenEntropyBits != 256 || r.SigningAlgorithm != "HS256" {
		t.Fatalf("unexpected report %+v", r)
	}
	if len(r.Warnings) != 0 {
		t.Fatalf("unexpected warnings %v", r.Warnings)
	}
}
