package email

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

type resendEmails interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendSender delivers through the Resend API.
type ResendSender struct {
	cfg    Config
	emails resendEmails
}

// NewResend returns a ResendSender authenticated with apiKey.
func NewResend(cfg Config, apiKey string) (*ResendSender, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend: api key is required")
	}
	return &ResendSender{cfg: cfg, emails: resend.NewClient(apiKey).Emails}, nil
}

func (s *ResendSender) SendMagicLink(ctx context.Context, to, rawToken, name string) error {
	msg, err := RenderMagicLink(s.cfg, rawToken, name)
	if err != nil {
		return err
	}
	return s.send(ctx, to, msg)
}

func (s *ResendSender) SendWelcome(ctx context.Context, to, name string) error {
	msg, err := RenderWelcome(s.cfg, name)
	if err != nil {
		return err
	}
	return s.send(ctx, to, msg)
}

func (s *ResendSender) send(ctx context.Context, to string, rendered Message) error {
	_, err := s.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.cfg.from(),
		To:      []string{to},
		Subject: rendered.Subject,
		Html:    rendered.HTML,
		Text:    rendered.Text,
	})
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}
