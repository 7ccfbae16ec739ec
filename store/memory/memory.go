// Package memory holds in-process UserStore and TokenStore implementations
// for tests, examples and single-instance development servers.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MrEthical07/magicAuth"
	"github.com/google/uuid"
)

// Store implements magicAuth.UserStore and magicAuth.TokenStore. All state is
// guarded by one mutex, which makes MarkUsedIfUnused a true compare-and-set.
type Store struct {
	mu      sync.Mutex
	now     func() time.Time
	users   map[string]*magicAuth.User
	byEmail map[string]string
	tokens  map[string]*magicAuth.VerificationToken
	byHash  map[string]string
}

// New returns an empty Store. A nil now selects time.Now.
func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:     now,
		users:   map[string]*magicAuth.User{},
		byEmail: map[string]string{},
		tokens:  map[string]*magicAuth.VerificationToken{},
		byHash:  map[string]string{},
	}
}

// FindByEmail returns the user with email, or magicAuth.ErrUserNotFound.
func (s *Store) FindByEmail(_ context.Context, email string) (magicAuth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return magicAuth.User{}, magicAuth.ErrUserNotFound
	}
	return copyUser(s.users[id]), nil
}

// FindByID returns the user with id, or magicAuth.ErrUserNotFound.
func (s *Store) FindByID(_ context.Context, id string) (magicAuth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return magicAuth.User{}, magicAuth.ErrUserNotFound
	}
	return copyUser(u), nil
}

// Create inserts a user with a fresh UUID. A taken email yields
// magicAuth.ErrEmailTaken.
func (s *Store) Create(_ context.Context, input magicAuth.NewUser) (magicAuth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[input.Email]; ok {
		return magicAuth.User{}, magicAuth.ErrEmailTaken
	}
	now := s.now().UTC()
	u := &magicAuth.User{
		ID:        uuid.NewString(),
		Email:     input.Email,
		Name:      input.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.users[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return copyUser(u), nil
}

// Update applies the non-nil fields of patch and bumps UpdatedAt.
func (s *Store) Update(_ context.Context, id string, patch magicAuth.UserPatch) (magicAuth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return magicAuth.User{}, magicAuth.ErrUserNotFound
	}
	if patch.Email != nil && *patch.Email != u.Email {
		if _, taken := s.byEmail[*patch.Email]; taken {
			return magicAuth.User{}, magicAuth.ErrEmailTaken
		}
		delete(s.byEmail, u.Email)
		u.Email = *patch.Email
		s.byEmail[u.Email] = u.ID
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.BillingCustomerID != nil {
		u.BillingCustomerID = *patch.BillingCustomerID
	}
	if patch.EmailVerifiedAt != nil {
		at := *patch.EmailVerifiedAt
		u.EmailVerifiedAt = &at
	}
	u.UpdatedAt = s.now().UTC()
	return copyUser(u), nil
}

// Users returns every user ordered by creation time.
func (s *Store) Users() []magicAuth.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]magicAuth.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func copyUser(u *magicAuth.User) magicAuth.User {
	out := *u
	if u.EmailVerifiedAt != nil {
		at := *u.EmailVerifiedAt
		out.EmailVerifiedAt = &at
	}
	return out
}
