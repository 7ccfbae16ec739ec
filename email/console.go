package email

import (
	"context"
	"log/slog"
)

// ConsoleSender logs messages instead of delivering them. The magic link
// appears in the log, so it is meant for local development only.
type ConsoleSender struct {
	cfg    Config
	logger *slog.Logger
}

// NewConsole returns a ConsoleSender. A nil logger selects slog.Default.
func NewConsole(cfg Config, logger *slog.Logger) *ConsoleSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsoleSender{cfg: cfg, logger: logger}
}

func (s *ConsoleSender) SendMagicLink(ctx context.Context, to, rawToken, name string) error {
	msg, err := RenderMagicLink(s.cfg, rawToken, name)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "magic link email",
		"to", to,
		"from", s.cfg.from(),
		"subject", msg.Subject,
		"greeting", greeting(name),
		"link", s.cfg.MagicLinkURL(rawToken),
		"expires_in_minutes", s.cfg.linkMinutes(),
	)
	return nil
}

func (s *ConsoleSender) SendWelcome(ctx context.Context, to, name string) error {
	msg, err := RenderWelcome(s.cfg, name)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "welcome email",
		"to", to,
		"from", s.cfg.from(),
		"subject", msg.Subject,
		"get_started", s.cfg.AppURL,
	)
	return nil
}
