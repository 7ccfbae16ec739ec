package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/magicAuth"
	"github.com/MrEthical07/magicAuth/email"
)

// settings is the process configuration assembled from the environment.
type settings struct {
	HTTPAddr    string
	Production  bool
	DatabaseURL string
	RedisAddr   string
	TokenStore  string
	LogLevel    slog.Level

	Auth     magicAuth.Config
	Email    email.Config
	Provider email.ProviderConfig
}

var errMissingDatabaseURL = errors.New("DATABASE_URL is required")

// loadSettings reads the environment through getenv. Unset variables keep
// their defaults; malformed ones are errors.
func loadSettings(getenv func(string) string) (settings, error) {
	s := settings{
		HTTPAddr:    valueOr(getenv("HTTP_ADDR"), ":3000"),
		Production:  strings.EqualFold(getenv("APP_ENV"), "production"),
		DatabaseURL: getenv("DATABASE_URL"),
		RedisAddr:   getenv("REDIS_ADDR"),
		TokenStore:  strings.ToLower(getenv("TOKEN_STORE")),
		LogLevel:    slog.LevelInfo,
		Auth:        magicAuth.DefaultConfig(),
	}

	if lvl := getenv("LOG_LEVEL"); lvl != "" {
		if err := s.LogLevel.UnmarshalText([]byte(lvl)); err != nil {
			return settings{}, fmt.Errorf("LOG_LEVEL: %w", err)
		}
	}

	s.Auth.Session.Secret = []byte(getenv("JWT_SECRET"))
	s.Auth.Security.ProductionMode = s.Production
	s.Auth.Cookie.Domain = getenv("COOKIE_DOMAIN")
	s.Auth.RateLimit.Prefix = valueOr(getenv("RATE_LIMIT_PREFIX"), s.Auth.RateLimit.Prefix)

	if v := getenv("RATE_LIMIT_MAX"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return settings{}, fmt.Errorf("RATE_LIMIT_MAX: %w", err)
		}
		s.Auth.RateLimit.Max = n
	}
	for _, d := range []struct {
		env string
		dst *time.Duration
	}{
		{"RATE_LIMIT_WINDOW", &s.Auth.RateLimit.Window},
		{"TOKEN_TTL", &s.Auth.Token.TTL},
		{"SESSION_TTL", &s.Auth.Session.TTL},
		{"SESSION_REFRESH_THRESHOLD", &s.Auth.Session.RefreshThreshold},
	} {
		v := getenv(d.env)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return settings{}, fmt.Errorf("%s: %w", d.env, err)
		}
		*d.dst = parsed
	}
	if strings.EqualFold(getenv("WELCOME_FAILURE_POLICY"), "fail") {
		s.Auth.Email.WelcomeFailurePolicy = magicAuth.WelcomeFailureFail
	}
	s.Auth.Audit.Enabled = getenv("AUDIT_LOG") != ""

	switch s.TokenStore {
	case "", "sql", "redis":
	default:
		return settings{}, fmt.Errorf("TOKEN_STORE: unknown store %q", s.TokenStore)
	}

	s.Email = email.Config{
		FromEmail: valueOr(getenv("EMAIL_FROM"), "noreply@example.com"),
		FromName:  getenv("EMAIL_FROM_NAME"),
		AppURL:    valueOr(getenv("APP_URL"), "http://localhost:3000"),
		LinkTTL:   s.Auth.Token.TTL,
	}

	s.Provider = email.ProviderConfig{
		Provider:     getenv("EMAIL_PROVIDER"),
		ResendAPIKey: getenv("RESEND_API_KEY"),
		SMTP: email.SMTPConfig{
			Host:     getenv("SMTP_HOST"),
			Username: getenv("SMTP_USER"),
			Password: getenv("SMTP_PASS"),
		},
	}
	if v := getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return settings{}, fmt.Errorf("SMTP_PORT: %w", err)
		}
		s.Provider.SMTP.Port = port
	}
	if v := getenv("SMTP_SECURE"); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return settings{}, fmt.Errorf("SMTP_SECURE: %w", err)
		}
		s.Provider.SMTP.ImplicitTLS = secure
	}

	return s, nil
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func newLogger(s settings) *slog.Logger {
	opts := &slog.HandlerOptions{Level: s.LogLevel}
	if s.Production {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
