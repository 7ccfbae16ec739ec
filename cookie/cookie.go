// Package cookie moves the session credential in and out of HTTP cookies.
package cookie

import (
	"net/http"
	"time"
)

const (
	// DefaultName is the session cookie name.
	DefaultName = "auth_token"
	// DefaultMaxAge matches the default session lifetime.
	DefaultMaxAge = 7 * 24 * time.Hour
)

// Transport writes, reads and clears the session cookie. Every cookie it
// emits is HttpOnly, SameSite=Lax and scoped to "/". Write, Read and Clear
// share the same name and attributes, so a cleared cookie always replaces
// the written one.
type Transport struct {
	name   string
	secure bool
	maxAge time.Duration
	domain string
}

// Option configures a Transport.
type Option func(*Transport)

// WithName overrides DefaultName.
func WithName(name string) Option {
	return func(t *Transport) {
		if name != "" {
			t.name = name
		}
	}
}

// WithMaxAge overrides DefaultMaxAge.
func WithMaxAge(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.maxAge = d
		}
	}
}

// WithDomain sets the Domain attribute.
func WithDomain(domain string) Option {
	return func(t *Transport) {
		t.domain = domain
	}
}

// New returns a Transport. secure should be true in production.
func New(secure bool, opts ...Option) *Transport {
	t := &Transport{
		name:   DefaultName,
		secure: secure,
		maxAge: DefaultMaxAge,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the cookie name.
func (t *Transport) Name() string {
	return t.name
}

// Write sets the session cookie to token.
func (t *Transport) Write(w http.ResponseWriter, token string) {
	c := t.base()
	c.Value = token
	c.MaxAge = int(t.maxAge / time.Second)
	c.Expires = time.Now().Add(t.maxAge)
	http.SetCookie(w, c)
}

// Read returns the session cookie value, if present and non-empty.
func (t *Transport) Read(r *http.Request) (string, bool) {
	c, err := r.Cookie(t.name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// Clear expires the session cookie immediately. It is safe to call when no
// cookie was set.
func (t *Transport) Clear(w http.ResponseWriter) {
	c := t.base()
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	http.SetCookie(w, c)
}

func (t *Transport) base() *http.Cookie {
	return &http.Cookie{
		Name:     t.name,
		Path:     "/",
		Domain:   t.domain,
		HttpOnly: true,
		Secure:   t.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
