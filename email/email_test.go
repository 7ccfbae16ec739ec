package email

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

var testConfig = Config{
	FromEmail: "noreply@example.com",
	FromName:  "Acme",
	AppURL:    "https://app.example.com/",
}

func TestMagicLinkURL(t *testing.T) {
	assert.Equal(t, "https://app.example.com/verify?token=abc123", testConfig.MagicLinkURL("abc123"))
	assert.Equal(t, "https://app.example.com/verify?token=a%2Bb", testConfig.MagicLinkURL("a+b"))
}

func TestRenderMagicLink(t *testing.T) {
	msg, err := RenderMagicLink(testConfig, "tok", "")
	require.NoError(t, err)
	assert.Equal(t, "Your Magic Link", msg.Subject)
	assert.Contains(t, msg.HTML, "Hi there!")
	assert.Contains(t, msg.HTML, `href="https://app.example.com/verify?token=tok"`)
	assert.Contains(t, msg.HTML, "expire in 15 minutes")
	assert.Contains(t, msg.Text, "This link expires in 15 minutes.")

	msg, err = RenderMagicLink(testConfig, "tok", "<b>Eve</b>")
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "<b>Eve</b>")
	assert.Contains(t, msg.HTML, "Hi &lt;b&gt;Eve&lt;/b&gt;")
}

func TestRenderWelcome(t *testing.T) {
	msg, err := RenderWelcome(testConfig, "")
	require.NoError(t, err)
	assert.Equal(t, "Welcome to Acme!", msg.Subject)
	assert.Contains(t, msg.HTML, "Hi there!")
	assert.Contains(t, msg.Text, "Get started: https://app.example.com/")
}

func TestConsoleSenderLogsLink(t *testing.T) {
	var buf bytes.Buffer
	s := NewConsole(testConfig, slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, s.SendMagicLink(context.Background(), "a@example.com", "tok", "Ann"))
	require.NoError(t, s.SendWelcome(context.Background(), "a@example.com", "Ann"))

	out := buf.String()
	assert.Contains(t, out, `"link":"https://app.example.com/verify?token=tok"`)
	assert.Contains(t, out, `"greeting":"Hi Ann"`)
	assert.Contains(t, out, `"subject":"Welcome to Acme!"`)
}

type fakeMailClient struct {
	sent []*mail.Msg
	err  error
}

func (f *fakeMailClient) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	f.sent = append(f.sent, messages...)
	return f.err
}

func TestSMTPSender(t *testing.T) {
	client := &fakeMailClient{}
	s := &SMTPSender{cfg: testConfig, client: client}

	require.NoError(t, s.SendMagicLink(context.Background(), "a@example.com", "tok", ""))
	require.Len(t, client.sent, 1)

	msg := client.sent[0]
	assert.Equal(t, []string{"Your Magic Link"}, msg.GetGenHeader(mail.HeaderSubject))
	to, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com"}, to)

	var raw bytes.Buffer
	_, err = msg.WriteTo(&raw)
	require.NoError(t, err)
	assert.True(t, strings.Contains(raw.String(), "Acme"), "from name missing")

	client.err = errors.New("relay down")
	err = s.SendWelcome(context.Background(), "a@example.com", "Ann")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay down")
}

func TestNewSMTPRequiresHost(t *testing.T) {
	_, err := NewSMTP(testConfig, SMTPConfig{})
	require.Error(t, err)

	s, err := NewSMTP(testConfig, SMTPConfig{Host: "smtp.example.com", Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.NotNil(t, s.client)
}

type fakeResend struct {
	last *resend.SendEmailRequest
	err  error
}

func (f *fakeResend) SendWithContext(_ context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	f.last = params
	if f.err != nil {
		return nil, f.err
	}
	return &resend.SendEmailResponse{Id: "em_1"}, nil
}

func TestResendSender(t *testing.T) {
	api := &fakeResend{}
	s := &ResendSender{cfg: testConfig, emails: api}

	require.NoError(t, s.SendMagicLink(context.Background(), "a@example.com", "tok", "Ann"))
	require.NotNil(t, api.last)
	assert.Equal(t, "Acme <noreply@example.com>", api.last.From)
	assert.Equal(t, []string{"a@example.com"}, api.last.To)
	assert.Contains(t, api.last.Html, "Hi Ann!")

	api.err = errors.New("429")
	require.Error(t, s.SendWelcome(context.Background(), "a@example.com", "Ann"))

	_, err := NewResend(testConfig, "")
	require.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	s, err := NewProvider(testConfig, ProviderConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &ConsoleSender{}, s)

	s, err = NewProvider(testConfig, ProviderConfig{Provider: "Resend", ResendAPIKey: "re_123"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &ResendSender{}, s)

	s, err = NewProvider(testConfig, ProviderConfig{Provider: "nodemailer", SMTP: SMTPConfig{Host: "localhost"}}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SMTPSender{}, s)

	_, err = NewProvider(testConfig, ProviderConfig{Provider: "pigeon"}, nil)
	require.Error(t, err)
}
