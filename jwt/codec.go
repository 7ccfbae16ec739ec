package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the lifetime of a freshly signed session credential.
const DefaultTTL = 7 * 24 * time.Hour

var (
	// ErrMissingSecret is returned by Sign and Verify when no secret is configured.
	ErrMissingSecret = errors.New("jwt: signing secret is not configured")
	// ErrInvalidToken covers every verification failure.
	ErrInvalidToken = errors.New("jwt: invalid token")
	// ErrInvalidConfig is returned by NewCodec.
	ErrInvalidConfig = errors.New("jwt: invalid configuration")
)

// Config configures a Codec.
type Config struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	Leeway time.Duration
	// Now overrides the clock; nil selects time.Now.
	Now func() time.Time
}

// Claims is the session claim set.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// IssuedAtTime returns iat or the zero time.
func (c *Claims) IssuedAtTime() time.Time {
	if c == nil || c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// ExpiresAtTime returns exp or the zero time.
func (c *Claims) ExpiresAtTime() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Codec is safe for concurrent use.
type Codec struct {
	config Config
}

// NewCodec validates cfg and returns a Codec. An empty secret is accepted
// here and reported by the first Sign or Verify call.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.TTL < 0 {
		return nil, ErrInvalidConfig
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, ErrInvalidConfig
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.Secret = append([]byte(nil), cfg.Secret...)
	return &Codec{config: cfg}, nil
}

// TTL returns the configured credential lifetime.
func (c *Codec) TTL() time.Duration {
	return c.config.TTL
}

// Sign returns a credential for the user valid for TTL from now.
func (c *Codec) Sign(userID, email string) (string, error) {
	if len(c.config.Secret) == 0 {
		return "", ErrMissingSecret
	}

	now := c.config.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.config.TTL)),
			Issuer:    c.config.Issuer,
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.config.Secret)
}

// Verify checks signature, algorithm, expiry and issuer. Every failure other
// than a missing secret is reported as ErrInvalidToken.
func (c *Codec) Verify(token string) (*Claims, error) {
	if len(c.config.Secret) == 0 {
		return nil, ErrMissingSecret
	}
	if token == "" {
		return nil, ErrInvalidToken
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.config.Now),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return c.config.Secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// DecodeUnsafe parses claims without verifying the signature.
func (c *Codec) DecodeUnsafe(token string) (*Claims, bool) {
	if token == "" {
		return nil, false
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// ExpiresAt returns the unverified exp claim.
func (c *Codec) ExpiresAt(token string) (time.Time, bool) {
	claims, ok := c.DecodeUnsafe(token)
	if !ok || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// IsExpiringSoon reports whether fewer than threshold remain before expiry.
// Tokens whose expiry cannot be read count as expiring.
func (c *Codec) IsExpiringSoon(token string, threshold time.Duration) bool {
	exp, ok := c.ExpiresAt(token)
	if !ok {
		return true
	}
	return exp.Sub(c.config.Now()) < threshold
}
