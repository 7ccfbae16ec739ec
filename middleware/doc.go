// Package middleware exposes net/http guards built on magicAuth.Engine.
//
// # Guards
//
//   - [RequireSession]: API guard, 401 without a session.
//   - [RequireAuth]: page guard, redirects anonymous visitors to the login page.
//   - [RequireGuest]: page guard, redirects signed-in visitors away from login pages.
//
// Every guard calls Engine.Refresh first, so a near-expiry session cookie is
// re-issued before the redirect decision is made, and stores the resolved
// user in the request context ([UserFromContext]).
//
// # What this package must NOT do
//
//   - Parse or create session tokens directly (delegates to Engine).
//   - Make decisions beyond pass, redirect or reject.
package middleware
