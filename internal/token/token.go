// Package token generates and hashes single-use magic-link tokens.
//
// Raw tokens leave the process exactly once, inside the emailed link. The
// only form that is stored or compared is the SHA-256 hex digest.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// DefaultByteLength yields a 64 character hex token.
const DefaultByteLength = 32

// ErrInvalidLength is returned by Generate for non-positive lengths.
var ErrInvalidLength = errors.New("token: invalid byte length")

// Codec issues tokens and expiry timestamps against an injectable clock.
type Codec struct {
	byteLength int
	now        func() time.Time
}

// NewCodec returns a Codec. A non-positive byteLength selects
// DefaultByteLength and a nil clock selects time.Now.
func NewCodec(byteLength int, now func() time.Time) *Codec {
	if byteLength <= 0 {
		byteLength = DefaultByteLength
	}
	if now == nil {
		now = time.Now
	}
	return &Codec{byteLength: byteLength, now: now}
}

// Generate returns a fresh hex-encoded token of the configured length.
func (c *Codec) Generate() (string, error) {
	return Generate(c.byteLength)
}

// ExpiryAt returns the instant ttl from now.
func (c *Codec) ExpiryAt(ttl time.Duration) time.Time {
	return c.now().Add(ttl)
}

// IsExpired reports whether at lies strictly in the past.
func (c *Codec) IsExpired(at time.Time) bool {
	return c.now().After(at)
}

// Generate reads n bytes from crypto/rand and hex-encodes them.
func Generate(n int) (string, error) {
	if n <= 0 {
		return "", ErrInvalidLength
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Hash returns the lowercase hex SHA-256 digest of raw.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
