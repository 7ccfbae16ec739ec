package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrEthical07/magicAuth"
)

// Tokens is a magicAuth.TokenStore. MarkUsedIfUnused relies on the
// conditional UPDATE being atomic per row.
type Tokens struct {
	db DBTX
}

// txBeginner is satisfied by *sql.DB. A *sql.Tx does not satisfy it, and
// ReplaceUnused then joins the caller's transaction.
type txBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// NewTokens returns a Tokens store on db.
func NewTokens(db DBTX) *Tokens {
	return &Tokens{db: db}
}

// FindByHash returns the token stored under tokenHash, or
// magicAuth.ErrTokenNotFound.
func (r *Tokens) FindByHash(ctx context.Context, tokenHash string) (magicAuth.VerificationToken, error) {
	query :=
		`SELECT id, token_hash, email, expires_at, used, created_at FROM verification_tokens
		 WHERE token_hash = $1
		 `

	var t magicAuth.VerificationToken
	err := r.db.QueryRowContext(ctx, query, tokenHash).
		Scan(&t.ID, &t.TokenHash, &t.Email, &t.ExpiresAt, &t.Used, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return magicAuth.VerificationToken{}, magicAuth.ErrTokenNotFound
		}
		return magicAuth.VerificationToken{}, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

// Create inserts a new unused token.
func (r *Tokens) Create(ctx context.Context, input magicAuth.NewVerificationToken) (magicAuth.VerificationToken, error) {
	query :=
		`INSERT INTO verification_tokens (token_hash, email, expires_at)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at
		 `

	t := magicAuth.VerificationToken{
		TokenHash: input.TokenHash,
		Email:     input.Email,
		ExpiresAt: input.ExpiresAt,
	}
	err := r.db.QueryRowContext(ctx, query, input.TokenHash, input.Email, input.ExpiresAt).
		Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return magicAuth.VerificationToken{}, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

// InvalidateAllUnused marks every unused token of email as used.
func (r *Tokens) InvalidateAllUnused(ctx context.Context, email string) error {
	query :=
		`UPDATE verification_tokens SET used = TRUE
		 WHERE email = $1 AND used = FALSE
		 `

	if _, err := r.db.ExecContext(ctx, query, email); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ReplaceUnused invalidates the unused tokens of input.Email and inserts
// input in one transaction. A transaction-scoped advisory lock on the email
// serializes concurrent replacements, so the later one always sees and
// supersedes the earlier insert.
func (r *Tokens) ReplaceUnused(ctx context.Context, input magicAuth.NewVerificationToken) (magicAuth.VerificationToken, error) {
	b, ok := r.db.(txBeginner)
	if !ok {
		return replaceUnused(ctx, r.db, input)
	}

	tx, err := b.BeginTx(ctx, nil)
	if err != nil {
		return magicAuth.VerificationToken{}, fmt.Errorf("db error: %w", err)
	}
	t, err := replaceUnused(ctx, tx, input)
	if err != nil {
		_ = tx.Rollback()
		return magicAuth.VerificationToken{}, err
	}
	if err := tx.Commit(); err != nil {
		return magicAuth.VerificationToken{}, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func replaceUnused(ctx context.Context, db DBTX, input magicAuth.NewVerificationToken) (magicAuth.VerificationToken, error) {
	query :=
		`SELECT pg_advisory_xact_lock(hashtext($1))
		 `
	if _, err := db.ExecContext(ctx, query, input.Email); err != nil {
		return magicAuth.VerificationToken{}, fmt.Errorf("db error: %w", err)
	}

	scoped := &Tokens{db: db}
	if err := scoped.InvalidateAllUnused(ctx, input.Email); err != nil {
		return magicAuth.VerificationToken{}, err
	}
	return scoped.Create(ctx, input)
}

// MarkUsedIfUnused flips used on id and reports whether this call did it.
func (r *Tokens) MarkUsedIfUnused(ctx context.Context, id string) (bool, error) {
	query :=
		`UPDATE verification_tokens SET used = TRUE
		 WHERE id = $1 AND used = FALSE
		 `

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}
