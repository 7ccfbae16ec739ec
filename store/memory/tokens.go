package memory

import (
	"context"

	"github.com/MrEthical07/magicAuth"
	"github.com/google/uuid"
)

// Tokens adapts Store to magicAuth.TokenStore. Its method names overlap
// with the user side, so the token half is exposed as a separate view.
type Tokens struct {
	s *Store
}

// Tokens returns the TokenStore view of s.
func (s *Store) Tokens() *Tokens {
	return &Tokens{s: s}
}

// FindByHash returns the token stored under tokenHash, or
// magicAuth.ErrTokenNotFound.
func (t *Tokens) FindByHash(_ context.Context, tokenHash string) (magicAuth.VerificationToken, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	id, ok := t.s.byHash[tokenHash]
	if !ok {
		return magicAuth.VerificationToken{}, magicAuth.ErrTokenNotFound
	}
	return *t.s.tokens[id], nil
}

// Create stores a new unused token.
func (t *Tokens) Create(_ context.Context, input magicAuth.NewVerificationToken) (magicAuth.VerificationToken, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	return t.insert(input), nil
}

// ReplaceUnused invalidates every unused token of input.Email and stores
// input under the same lock.
func (t *Tokens) ReplaceUnused(_ context.Context, input magicAuth.NewVerificationToken) (magicAuth.VerificationToken, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	t.invalidate(input.Email)
	return t.insert(input), nil
}

func (t *Tokens) insert(input magicAuth.NewVerificationToken) magicAuth.VerificationToken {
	rec := &magicAuth.VerificationToken{
		ID:        uuid.NewString(),
		TokenHash: input.TokenHash,
		Email:     input.Email,
		ExpiresAt: input.ExpiresAt,
		CreatedAt: t.s.now().UTC(),
	}
	t.s.tokens[rec.ID] = rec
	t.s.byHash[rec.TokenHash] = rec.ID
	return *rec
}

// InvalidateAllUnused marks every unused token of email as used.
func (t *Tokens) InvalidateAllUnused(_ context.Context, email string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	t.invalidate(email)
	return nil
}

func (t *Tokens) invalidate(email string) {
	for _, rec := range t.s.tokens {
		if rec.Email == email && !rec.Used {
			rec.Used = true
		}
	}
}

// MarkUsedIfUnused flips used on id and reports whether this call did it.
// Unknown ids report false.
func (t *Tokens) MarkUsedIfUnused(_ context.Context, id string) (bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	rec, ok := t.s.tokens[id]
	if !ok || rec.Used {
		return false, nil
	}
	rec.Used = true
	return true, nil
}

// Unused counts the live tokens for email, expired or not.
func (t *Tokens) Unused(email string) int {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	n := 0
	for _, rec := range t.s.tokens {
		if rec.Email == email && !rec.Used {
			n++
		}
	}
	return n
}
