package magicAuth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/MrEthical07/magicAuth/validate"
)

// UpdateUser applies patch to the user behind r's session and returns the
// stored result. Only Email and Name may be changed by the user; other
// patch fields are ignored.
//
// Errors: ErrUnauthenticated without a usable session, a *ValidationError
// when nothing is left to update or a field is invalid, ErrEmailTaken when
// the new email belongs to another user.
func (e *Engine) UpdateUser(ctx context.Context, r *http.Request, patch UserPatch) (User, error) {
	ctx, span := e.startSpan(ctx, "UpdateUser")
	user, err := e.updateUser(ctx, r, patch)
	endSpan(span, err)
	return user, err
}

func (e *Engine) updateUser(ctx context.Context, r *http.Request, patch UserPatch) (User, error) {
	user, err := e.requireUser(ctx, r)
	if err != nil {
		return User{}, err
	}

	clean := UserPatch{Email: patch.Email, Name: patch.Name}
	if clean.IsEmpty() {
		return User{}, newValidationError("", MessageNothingUpdated)
	}

	if clean.Email != nil {
		email, ok := validate.NormalizeEmail(*clean.Email)
		if !ok {
			return User{}, newValidationError("email", MessageInvalidEmail)
		}
		if email != user.Email {
			other, err := e.users.FindByEmail(ctx, email)
			switch {
			case err == nil && other.ID != user.ID:
				e.emitAudit(ctx, auditEventUserUpdate, false, user.ID, user.Email, ErrEmailTaken, nil)
				return User{}, ErrEmailTaken
			case err != nil && !errors.Is(err, ErrUserNotFound):
				return User{}, fmt.Errorf("find user by email: %w", err)
			}
		}
		clean.Email = &email
	}

	if clean.Name != nil {
		if !validate.IsValidName(*clean.Name) {
			return User{}, newValidationError("name", MessageInvalidName)
		}
		name := validate.NormalizeName(strings.TrimSpace(*clean.Name))
		clean.Name = &name
	}

	updated, err := e.users.Update(ctx, user.ID, clean)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) || errors.Is(err, ErrUserNotFound) {
			e.emitAudit(ctx, auditEventUserUpdate, false, user.ID, user.Email, err, nil)
			return User{}, err
		}
		return User{}, fmt.Errorf("update user: %w", err)
	}

	e.metricInc(MetricUserUpdated)
	e.emitAudit(ctx, auditEventUserUpdate, true, updated.ID, updated.Email, nil, func() map[string]string {
		md := map[string]string{}
		if clean.Email != nil {
			md["email_changed"] = "true"
		}
		if clean.Name != nil {
			md["name_changed"] = "true"
		}
		return md
	})
	return updated, nil
}
