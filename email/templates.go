package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"
)

// DefaultFromName is used when Config.FromName is empty.
const DefaultFromName = "MagicAuth"

// Config is shared by every sender.
type Config struct {
	FromEmail string
	FromName  string
	// AppURL is the public base URL of the application, without a trailing
	// slash.
	AppURL string
	// LinkTTL is quoted in the magic-link message. Zero means 15 minutes.
	LinkTTL time.Duration
}

func (c Config) fromName() string {
	if c.FromName == "" {
		return DefaultFromName
	}
	return c.FromName
}

func (c Config) from() string {
	return fmt.Sprintf("%s <%s>", c.fromName(), c.FromEmail)
}

// MagicLinkURL returns the verification URL for rawToken.
func (c Config) MagicLinkURL(rawToken string) string {
	return strings.TrimRight(c.AppURL, "/") + "/verify?token=" + url.QueryEscape(rawToken)
}

func (c Config) linkMinutes() int {
	if c.LinkTTL <= 0 {
		return 15
	}
	return int(c.LinkTTL / time.Minute)
}

// Message is a rendered email.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

type templateData struct {
	Greeting string
	Name     string
	URL      string
	AppURL   string
	AppName  string
	Minutes  int
	Year     int
}

var magicLinkHTML = template.Must(template.New("magic-link").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Your Magic Link</title>
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f4f4f5; margin: 0; padding: 40px 20px;">
  <div style="max-width: 560px; margin: 0 auto; background-color: #ffffff; border-radius: 12px; overflow: hidden;">
    <div style="background: #6366f1; padding: 32px; text-align: center;">
      <h1 style="color: #ffffff; font-size: 24px; margin: 0;">Magic Link</h1>
    </div>
    <div style="padding: 32px;">
      <p style="color: #374151; font-size: 16px;">{{.Greeting}}!</p>
      <p style="color: #374151; font-size: 16px;">Click the button below to sign in to your account. This link will expire in {{.Minutes}} minutes.</p>
      <div style="text-align: center; margin: 32px 0;">
        <a href="{{.URL}}" style="display: inline-block; background: #6366f1; color: #ffffff; text-decoration: none; padding: 14px 32px; border-radius: 8px; font-weight: 600;">Sign In to Your Account</a>
      </div>
      <p style="color: #6b7280; font-size: 14px;">If you didn't request this email, you can safely ignore it.</p>
      <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 24px 0;">
      <p style="color: #9ca3af; font-size: 12px;">If the button doesn't work, copy and paste this link into your browser:<br>
        <a href="{{.URL}}" style="color: #6366f1; word-break: break-all;">{{.URL}}</a></p>
    </div>
    <div style="background-color: #f9fafb; padding: 20px; text-align: center;">
      <p style="color: #9ca3af; font-size: 12px; margin: 0;">&copy; {{.Year}} {{.AppName}}. All rights reserved.</p>
    </div>
  </div>
</body>
</html>`))

var welcomeHTML = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Welcome!</title>
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f4f4f5; margin: 0; padding: 40px 20px;">
  <div style="max-width: 560px; margin: 0 auto; background-color: #ffffff; border-radius: 12px; overflow: hidden;">
    <div style="background: #10b981; padding: 32px; text-align: center;">
      <h1 style="color: #ffffff; font-size: 24px; margin: 0;">Welcome!</h1>
    </div>
    <div style="padding: 32px;">
      <p style="color: #374151; font-size: 16px;">Hi {{.Name}}!</p>
      <p style="color: #374151; font-size: 16px;">Welcome to {{.AppName}}! Your account has been successfully created.</p>
      <p style="color: #374151; font-size: 16px;">We're excited to have you on board. If you have any questions, feel free to reach out.</p>
      <div style="text-align: center; margin: 32px 0;">
        <a href="{{.AppURL}}" style="display: inline-block; background: #10b981; color: #ffffff; text-decoration: none; padding: 14px 32px; border-radius: 8px; font-weight: 600;">Get Started</a>
      </div>
    </div>
    <div style="background-color: #f9fafb; padding: 20px; text-align: center;">
      <p style="color: #9ca3af; font-size: 12px; margin: 0;">&copy; {{.Year}} {{.AppName}}. All rights reserved.</p>
    </div>
  </div>
</body>
</html>`))

func greeting(name string) string {
	if name == "" {
		return "Hi there"
	}
	return "Hi " + name
}

// RenderMagicLink renders the sign-in message for rawToken.
func RenderMagicLink(cfg Config, rawToken, name string) (Message, error) {
	data := templateData{
		Greeting: greeting(name),
		URL:      cfg.MagicLinkURL(rawToken),
		AppName:  cfg.fromName(),
		Minutes:  cfg.linkMinutes(),
		Year:     time.Now().Year(),
	}

	var buf bytes.Buffer
	if err := magicLinkHTML.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("render magic link: %w", err)
	}

	text := fmt.Sprintf("%s!\n\nClick the link below to sign in:\n\n  %s\n\nThis link expires in %d minutes.\n",
		data.Greeting, data.URL, data.Minutes)

	return Message{
		Subject: "Your Magic Link",
		HTML:    buf.String(),
		Text:    text,
	}, nil
}

// RenderWelcome renders the first-login message.
func RenderWelcome(cfg Config, name string) (Message, error) {
	if name == "" {
		name = "there"
	}
	data := templateData{
		Name:    name,
		AppURL:  cfg.AppURL,
		AppName: cfg.fromName(),
		Year:    time.Now().Year(),
	}

	var buf bytes.Buffer
	if err := welcomeHTML.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("render welcome: %w", err)
	}

	text := fmt.Sprintf("Hi %s!\n\nWelcome to %s!\nYour account has been successfully created.\n\nGet started: %s\n",
		name, data.AppName, cfg.AppURL)

	return Message{
		Subject: "Welcome to " + data.AppName + "!",
		HTML:    buf.String(),
		Text:    text,
	}, nil
}
