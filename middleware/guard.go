package middleware

import (
	"context"
	"net/http"

	"github.com/MrEthical07/magicAuth"
)

type userContextKey struct{}

// UserFromContext returns the user stored by one of the guards.
func UserFromContext(ctx context.Context) (*magicAuth.User, bool) {
	u, ok := ctx.Value(userContextKey{}).(*magicAuth.User)
	return u, ok && u != nil
}

func withUser(r *http.Request, u *magicAuth.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userContextKey{}, u))
}

// RequireSession is the API guard. Requests without a session whose user
// still exists get 401; everything else continues with the user in context
// and a slid session cookie when it was close to expiry.
func RequireSession(engine *magicAuth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			user, err := engine.Refresh(w, r)
			if err != nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			if user == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, withUser(r, user))
		})
	}
}
