package middleware

import (
	"net/http"
	"net/url"

	"github.com/MrEthical07/magicAuth"
)

// DefaultLoginPath and DefaultHomePath are the redirect targets used when
// the guards are given an empty path.
const (
	DefaultLoginPath = "/login"
	DefaultHomePath  = "/dashboard"
)

// RequireAuth guards pages for signed-in users. Anonymous visitors are
// redirected to loginPath with the requested path in the redirect query
// parameter. The session is refreshed before the decision.
func RequireAuth(engine *magicAuth.Engine, loginPath string) func(http.Handler) http.Handler {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := engine.Refresh(w, r)
			if err != nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			if user == nil {
				target := loginPath + "?" + url.Values{"redirect": {r.URL.RequestURI()}}.Encode()
				http.Redirect(w, r, target, http.StatusFound)
				return
			}
			next.ServeHTTP(w, withUser(r, user))
		})
	}
}

// RequireGuest guards login and registration pages. Visitors that already
// have a session are redirected to homePath.
func RequireGuest(engine *magicAuth.Engine, homePath string) func(http.Handler) http.Handler {
	if homePath == "" {
		homePath = DefaultHomePath
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := engine.Refresh(w, r)
			if err != nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			if user != nil {
				http.Redirect(w, r, homePath, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
