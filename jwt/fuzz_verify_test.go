package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// FuzzVerify feeds arbitrary strings to Verify and DecodeUnsafe.
// Neither may panic, and Verify only accepts credentials it could have signed.
func FuzzVerify(f *testing.F) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	c, err := NewCodec(Config{Secret: testSecret, Now: func() time.Time { return now }})
	if err != nil {
		f.Fatalf("new codec: %v", err)
	}

	f.Add("")
	f.Add("abc")
	f.Add("a.b.c")
	f.Add("eyJhbGciOiJub25lIn0.eyJ1c2VySWQiOiJ4In0.")
	if tok, err := c.Sign("user-1", "a@example.com"); err == nil {
		f.Add(tok)
		f.Add(tok + "x")
		f.Add(strings.Replace(tok, ".", "..", 1))
	}

	f.Fuzz(func(t *testing.T, input string) {
		claims, err := c.Verify(input)
		if _, ok := c.DecodeUnsafe(input); !ok && err == nil {
			t.Fatalf("verified a credential that does not decode")
		}
		_ = c.IsExpiringSoon(input, time.Hour)

		if err != nil {
			if !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("unexpected error class: %v", err)
			}
			return
		}
		if claims.UserID == "" {
			t.Fatal("verified claims without a user id")
		}
		if !claims.ExpiresAtTime().After(now) {
			t.Fatalf("verified an expired credential: exp=%v", claims.ExpiresAtTime())
		}
	})
}
