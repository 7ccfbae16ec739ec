// Package jwt signs and verifies the session credential carried in the
// auth cookie.
//
// Credentials are HS256 JWTs holding the user id, the email, and the
// standard iat/exp (and optional iss) claims. Verification failures are
// deliberately collapsed into a single ErrInvalidToken so that callers
// cannot leak why a credential was rejected. A missing signing secret is
// not detected at construction; it surfaces as ErrMissingSecret the first
// time Sign or Verify runs.
//
// DecodeUnsafe, ExpiresAt and IsExpiringSoon read claims without checking
// the signature. They exist for diagnostics and refresh scheduling and must
// never drive an authorization decision.
package jwt
