package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/magicAuth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ magicAuth.UserStore     = (*Store)(nil)
	_ magicAuth.TokenStore    = (*Tokens)(nil)
	_ magicAuth.TokenReplacer = (*Tokens)(nil)
)

func TestUserLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	_, err := s.FindByEmail(ctx, "a@example.com")
	require.ErrorIs(t, err, magicAuth.ErrUserNotFound)

	u, err := s.Create(ctx, magicAuth.NewUser{Email: "a@example.com", Name: "Ann"})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	_, err = s.Create(ctx, magicAuth.NewUser{Email: "a@example.com"})
	require.ErrorIs(t, err, magicAuth.ErrEmailTaken)

	got, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
}

func TestUpdateMovesEmailIndex(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	a, err := s.Create(ctx, magicAuth.NewUser{Email: "a@example.com"})
	require.NoError(t, err)
	_, err = s.Create(ctx, magicAuth.NewUser{Email: "b@example.com"})
	require.NoError(t, err)

	taken := "b@example.com"
	_, err = s.Update(ctx, a.ID, magicAuth.UserPatch{Email: &taken})
	require.ErrorIs(t, err, magicAuth.ErrEmailTaken)

	next := "c@example.com"
	verified := time.Now()
	updated, err := s.Update(ctx, a.ID, magicAuth.UserPatch{Email: &next, EmailVerifiedAt: &verified})
	require.NoError(t, err)
	assert.Equal(t, next, updated.Email)
	require.NotNil(t, updated.EmailVerifiedAt)

	_, err = s.FindByEmail(ctx, "a@example.com")
	require.ErrorIs(t, err, magicAuth.ErrUserNotFound)
	_, err = s.FindByEmail(ctx, next)
	require.NoError(t, err)

	_, err = s.Update(ctx, "missing", magicAuth.UserPatch{Email: &next})
	require.ErrorIs(t, err, magicAuth.ErrUserNotFound)
}

func TestTokenSupersessionAndCAS(t *testing.T) {
	ctx := context.Background()
	tokens := New(nil).Tokens()
	exp := time.Now().Add(time.Minute)

	first, err := tokens.Create(ctx, magicAuth.NewVerificationToken{TokenHash: "h1", Email: "a@example.com", ExpiresAt: exp})
	require.NoError(t, err)
	require.NoError(t, tokens.InvalidateAllUnused(ctx, "a@example.com"))
	_, err = tokens.Create(ctx, magicAuth.NewVerificationToken{TokenHash: "h2", Email: "a@example.com", ExpiresAt: exp})
	require.NoError(t, err)
	assert.Equal(t, 1, tokens.Unused("a@example.com"))

	rec, err := tokens.FindByHash(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, rec.Used)

	ok, err := tokens.MarkUsedIfUnused(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = tokens.FindByHash(ctx, "nope")
	require.ErrorIs(t, err, magicAuth.ErrTokenNotFound)
}

func TestMarkUsedIfUnusedConcurrent(t *testing.T) {
	ctx := context.Background()
	tokens := New(nil).Tokens()
	rec, err := tokens.Create(ctx, magicAuth.NewVerificationToken{TokenHash: "h", Email: "a@example.com", ExpiresAt: time.Now().Add(time.Minute)})
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := tokens.MarkUsedIfUnused(ctx, rec.ID)
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestReplaceUnusedLeavesOneLiveToken(t *testing.T) {
	ctx := context.Background()
	tokens := New(nil).Tokens()
	exp := time.Now().Add(time.Minute)

	_, err := tokens.Create(ctx, magicAuth.NewVerificationToken{TokenHash: "old", Email: "a@example.com", ExpiresAt: exp})
	require.NoError(t, err)
	_, err = tokens.Create(ctx, magicAuth.NewVerificationToken{TokenHash: "other", Email: "b@example.com", ExpiresAt: exp})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := tokens.ReplaceUnused(ctx, magicAuth.NewVerificationToken{
				TokenHash: fmt.Sprintf("h%d", i),
				Email:     "a@example.com",
				ExpiresAt: exp,
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, tokens.Unused("a@example.com"))
	assert.Equal(t, 1, tokens.Unused("b@example.com"))

	old, err := tokens.FindByHash(ctx, "old")
	require.NoError(t, err)
	assert.True(t, old.Used)
}
