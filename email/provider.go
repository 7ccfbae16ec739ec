package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Sender is the method set shared by every provider. It matches
// magicAuth.EmailSender.
type Sender interface {
	SendMagicLink(ctx context.Context, to, rawToken, name string) error
	SendWelcome(ctx context.Context, to, name string) error
}

// ProviderConfig selects and configures a provider by name.
type ProviderConfig struct {
	// Provider is one of console, smtp (alias nodemailer) or resend. Empty
	// selects console.
	Provider     string
	SMTP         SMTPConfig
	ResendAPIKey string
}

// NewProvider returns the sender named by pc.Provider.
func NewProvider(cfg Config, pc ProviderConfig, logger *slog.Logger) (Sender, error) {
	switch strings.ToLower(strings.TrimSpace(pc.Provider)) {
	case "", "console":
		return NewConsole(cfg, logger), nil
	case "smtp", "nodemailer":
		return NewSMTP(cfg, pc.SMTP)
	case "resend":
		return NewResend(cfg, pc.ResendAPIKey)
	default:
		return nil, fmt.Errorf("email: unknown provider %q", pc.Provider)
	}
}
