package flows

import (
	"context"
	"errors"
	"fmt"
)

// findOrCreateUser returns the user for email, creating it when absent. The
// second result is true only when this call inserted the row. A concurrent
// insert that wins the race is resolved by re-reading.
func findOrCreateUser(ctx context.Context, email, name string, deps UserLookupDeps, errs MagicLinkErrors) (MagicLinkUser, bool, error) {
	user, err := deps.FindUserByEmail(ctx, email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, errs.UserNotFound) {
		return MagicLinkUser{}, false, fmt.Errorf("find user: %w", err)
	}

	user, err = deps.CreateUser(ctx, email, name)
	if err == nil {
		if deps.OnUserCreated != nil {
			deps.OnUserCreated(ctx, user)
		}
		return user, true, nil
	}
	if !errors.Is(err, errs.UserExists) {
		return MagicLinkUser{}, false, fmt.Errorf("create user: %w", err)
	}

	user, err = deps.FindUserByEmail(ctx, email)
	if err != nil {
		return MagicLinkUser{}, false, fmt.Errorf("find user after conflict: %w", err)
	}
	return user, false, nil
}
