package token

import (
	"encoding/hex"
	"testing"
	"time"
)

func TestGenerateDefaultLength(t *testing.T) {
	codec := NewCodec(0, nil)
	tok, err := codec.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(tok) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(tok))
	}
	if _, err := hex.DecodeString(tok); err != nil {
		t.Fatalf("token is not hex: %v", err)
	}
}

func TestGenerateUnique(t *testing.T) {
	seen := make(map[string]struct{}, 256)
	for i := 0; i < 256; i++ {
		tok, err := Generate(DefaultByteLength)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate token after %d draws", i)
		}
		seen[tok] = struct{}{}
	}
}

func TestGenerateRejectsBadLength(t *testing.T) {
	if _, err := Generate(0); err != ErrInvalidLength {
		t.Fatalf("expected ErrInvalidLength, got %v", err)
	}
}

func TestHashDeterministicAndDistinct(t *testing.T) {
	a := Hash("alpha")
	if a != Hash("alpha") {
		t.Fatal("hash must be deterministic")
	}
	if a == Hash("alphb") {
		t.Fatal("distinct inputs must hash differently")
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}

	seen := make(map[string]string, 128)
	for i := 0; i < 128; i++ {
		raw, _ := Generate(16)
		h := Hash(raw)
		if prev, ok := seen[h]; ok && prev != raw {
			t.Fatalf("collision between %q and %q", prev, raw)
		}
		seen[h] = raw
	}
}

func TestExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	codec := NewCodec(DefaultByteLength, func() time.Time { return now })

	exp := codec.ExpiryAt(15 * time.Minute)
	if !exp.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", exp)
	}
	if codec.IsExpired(exp) {
		t.Fatal("future timestamp reported expired")
	}
	if codec.IsExpired(now) {
		t.Fatal("current instant must not count as expired")
	}
	if !codec.IsExpired(now.Add(-time.Nanosecond)) {
		t.Fatal("past timestamp not reported expired")
	}
}
