package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrEthical07/magicAuth"
)

const userColumns = `id, email, name, billing_customer_id, email_verified_at, created_at, updated_at`

// Users is a magicAuth.UserStore.
type Users struct {
	db DBTX
}

// NewUsers returns a Users store on db.
func NewUsers(db DBTX) *Users {
	return &Users{db: db}
}

func scanUser(row *sql.Row) (magicAuth.User, error) {
	var (
		u        magicAuth.User
		name     sql.NullString
		billing  sql.NullString
		verified sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &name, &billing, &verified, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return magicAuth.User{}, err
	}
	u.Name = name.String
	u.BillingCustomerID = billing.String
	if verified.Valid {
		at := verified.Time
		u.EmailVerifiedAt = &at
	}
	return u, nil
}

func (r *Users) findOne(ctx context.Context, query string, arg string) (magicAuth.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || pgCode(err) == pgInvalidTextRepr {
			return magicAuth.User{}, magicAuth.ErrUserNotFound
		}
		return magicAuth.User{}, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

// FindByEmail returns the user with email, or magicAuth.ErrUserNotFound.
func (r *Users) FindByEmail(ctx context.Context, email string) (magicAuth.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE email = $1
		 `
	return r.findOne(ctx, query, email)
}

// FindByID returns the user with id. Ids that are not valid UUIDs are
// reported as magicAuth.ErrUserNotFound.
func (r *Users) FindByID(ctx context.Context, id string) (magicAuth.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE id = $1
		 `
	return r.findOne(ctx, query, id)
}

// Create inserts a user. A duplicate email yields magicAuth.ErrEmailTaken.
func (r *Users) Create(ctx context.Context, input magicAuth.NewUser) (magicAuth.User, error) {
	query :=
		`INSERT INTO users (email, name)
		 VALUES ($1, NULLIF($2, ''))
		 RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRowContext(ctx, query, input.Email, input.Name))
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return magicAuth.User{}, magicAuth.ErrEmailTaken
		}
		return magicAuth.User{}, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

// Update leaves columns whose patch field is nil untouched.
func (r *Users) Update(ctx context.Context, id string, patch magicAuth.UserPatch) (magicAuth.User, error) {
	query :=
		`UPDATE users SET
		   email = COALESCE($2, email),
		   name = COALESCE($3, name),
		   billing_customer_id = COALESCE($4, billing_customer_id),
		   email_verified_at = COALESCE($5, email_verified_at),
		   updated_at = now()
		 WHERE id = $1
		 RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRowContext(ctx, query,
		id, patch.Email, patch.Name, patch.BillingCustomerID, patch.EmailVerifiedAt))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows), pgCode(err) == pgInvalidTextRepr:
			return magicAuth.User{}, magicAuth.ErrUserNotFound
		case pgCode(err) == pgUniqueViolation:
			return magicAuth.User{}, magicAuth.ErrEmailTaken
		}
		return magicAuth.User{}, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}
