package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/magicAuth"
	"github.com/MrEthical07/magicAuth/store/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadSettingsDefaults(t *testing.T) {
	s, err := loadSettings(envFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, ":3000", s.HTTPAddr)
	assert.False(t, s.Production)
	assert.Equal(t, 3, s.Auth.RateLimit.Max)
	assert.Equal(t, 15*time.Minute, s.Auth.Token.TTL)
	assert.Equal(t, "http://localhost:3000", s.Email.AppURL)
	assert.Equal(t, "", s.Provider.Provider)
	assert.Empty(t, s.Auth.Session.Secret)
}

func TestLoadSettingsOverrides(t *testing.T) {
	s, err := loadSettings(envFrom(map[string]string{
		"APP_ENV":                "production",
		"JWT_SECRET":             "s3cret-s3cret-s3cret-s3cret-s3cret",
		"RATE_LIMIT_MAX":         "5",
		"RATE_LIMIT_WINDOW":      "1h",
		"TOKEN_TTL":              "10m",
		"EMAIL_PROVIDER":         "smtp",
		"SMTP_HOST":              "mail.example.com",
		"SMTP_PORT":              "465",
		"SMTP_SECURE":            "true",
		"APP_URL":                "https://app.example.com",
		"WELCOME_FAILURE_POLICY": "fail",
		"LOG_LEVEL":              "debug",
		"TOKEN_STORE":            "redis",
	}))
	require.NoError(t, err)

	assert.True(t, s.Production)
	assert.True(t, s.Auth.Security.ProductionMode)
	assert.Equal(t, []byte("s3cret-s3cret-s3cret-s3cret-s3cret"), s.Auth.Session.Secret)
	assert.Equal(t, 5, s.Auth.RateLimit.Max)
	assert.Equal(t, time.Hour, s.Auth.RateLimit.Window)
	assert.Equal(t, 10*time.Minute, s.Email.LinkTTL)
	assert.Equal(t, 465, s.Provider.SMTP.Port)
	assert.True(t, s.Provider.SMTP.ImplicitTLS)
	assert.Equal(t, magicAuth.WelcomeFailureFail, s.Auth.Email.WelcomeFailurePolicy)
	assert.Equal(t, slog.LevelDebug, s.LogLevel)
	assert.Equal(t, "redis", s.TokenStore)
}

func TestLoadSettingsRejectsMalformed(t *testing.T) {
	for _, env := range []map[string]string{
		{"RATE_LIMIT_MAX": "many"},
		{"RATE_LIMIT_WINDOW": "soon"},
		{"SMTP_PORT": "x"},
		{"SMTP_SECURE": "maybe"},
		{"LOG_LEVEL": "loud"},
		{"TOKEN_STORE": "mongo"},
	} {
		_, err := loadSettings(envFrom(env))
		assert.Error(t, err, "%v", env)
	}
}

func TestOpenBackendsInMemory(t *testing.T) {
	s, err := loadSettings(envFrom(nil))
	require.NoError(t, err)

	be, err := openBackends(context.Background(), s, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer be.Close()

	assert.NotNil(t, be.users)
	assert.NotNil(t, be.tokens)
	assert.NoError(t, be.ready(context.Background()))
}

func TestOpenBackendsRedisTokens(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := loadSettings(envFrom(map[string]string{
		"REDIS_ADDR":  mr.Addr(),
		"TOKEN_STORE": "redis",
	}))
	require.NoError(t, err)

	be, err := openBackends(context.Background(), s, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer be.Close()
	require.NoError(t, be.ready(context.Background()))

	rec, err := be.tokens.Create(context.Background(), magicAuth.NewVerificationToken{
		TokenHash: "h", Email: "a@example.com", ExpiresAt: time.Now().Add(time.Minute),
	})
	require.NoError(t, err)
	assert.True(t, mr.Exists("magicauth:vt:id:"+rec.ID))

	mr.Close()
	assert.Error(t, be.ready(context.Background()))
}

func TestOpenBackendsRedisTokensNeedRedis(t *testing.T) {
	s, err := loadSettings(envFrom(map[string]string{"TOKEN_STORE": "redis"}))
	require.NoError(t, err)

	_, err = openBackends(context.Background(), s, slog.New(slog.DiscardHandler))
	assert.Error(t, err)
}

func TestSeedIsIdempotent(t *testing.T) {
	store := memory.New(nil)
	var out bytes.Buffer

	require.NoError(t, seed(context.Background(), store, &out))
	require.NoError(t, seed(context.Background(), store, &out))

	u, err := store.FindByEmail(context.Background(), "demo@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Demo User", u.Name)
	assert.Equal(t, 2, strings.Count(out.String(), "created"))
	assert.Equal(t, 2, strings.Count(out.String(), "exists"))
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version", "--short"})

	require.NoError(t, root.Execute())
	assert.Equal(t, version+"\n", out.String())
}

func TestMigrateRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	root := newRootCmd()
	root.SetArgs([]string{"migrate"})

	assert.ErrorIs(t, root.Execute(), errMissingDatabaseURL)
}

func TestRunCheck(t *testing.T) {
	s, err := loadSettings(envFrom(map[string]string{"JWT_SECRET": "0123456789abcdef0123456789abcdef"}))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runCheck(s, false, &out))
	assert.Contains(t, out.String(), `"secretConfigured": true`)
	assert.Contains(t, out.String(), `"cookie_insecure"`)

	assert.Error(t, runCheck(s, true, &bytes.Buffer{}))
}
