package email

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// DefaultSMTPPort is the submission port used when SMTPConfig.Port is zero.
const DefaultSMTPPort = 587

// SMTPConfig holds relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// ImplicitTLS selects SMTPS (usually port 465) instead of STARTTLS.
	ImplicitTLS bool
}

type mailClient interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPSender delivers through an SMTP relay.
type SMTPSender struct {
	cfg    Config
	client mailClient
}

// NewSMTP builds the go-mail client. No connection is opened until the
// first message is sent.
func NewSMTP(cfg Config, smtp SMTPConfig) (*SMTPSender, error) {
	if smtp.Host == "" {
		return nil, fmt.Errorf("smtp: host is required")
	}
	if smtp.Port == 0 {
		smtp.Port = DefaultSMTPPort
	}

	opts := []mail.Option{
		mail.WithPort(smtp.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if smtp.ImplicitTLS {
		opts = append(opts, mail.WithSSL())
	}
	if smtp.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(smtp.Username),
			mail.WithPassword(smtp.Password),
		)
	}

	client, err := mail.NewClient(smtp.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp: %w", err)
	}
	return &SMTPSender{cfg: cfg, client: client}, nil
}

func (s *SMTPSender) SendMagicLink(ctx context.Context, to, rawToken, name string) error {
	msg, err := RenderMagicLink(s.cfg, rawToken, name)
	if err != nil {
		return err
	}
	return s.send(ctx, to, msg)
}

func (s *SMTPSender) SendWelcome(ctx context.Context, to, name string) error {
	msg, err := RenderWelcome(s.cfg, name)
	if err != nil {
		return err
	}
	return s.send(ctx, to, msg)
}

func (s *SMTPSender) send(ctx context.Context, to string, rendered Message) error {
	m := mail.NewMsg()
	if err := m.FromFormat(s.cfg.fromName(), s.cfg.FromEmail); err != nil {
		return fmt.Errorf("smtp: from: %w", err)
	}
	if err := m.To(to); err != nil {
		return fmt.Errorf("smtp: to: %w", err)
	}
	m.Subject(rendered.Subject)
	m.SetBodyString(mail.TypeTextPlain, rendered.Text)
	m.AddAlternativeString(mail.TypeTextHTML, rendered.HTML)

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp: send: %w", err)
	}
	return nil
}
