// Package magicAuth provides passwordless authentication through emailed,
// single-use magic links and signed session cookies.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Protocol
//
// [Engine.IssueMagicLink] normalizes an address, applies the issuance rate
// limit, ensures a user row exists, supersedes every earlier unused token for
// the address and emails a fresh one. Only the SHA-256 hash of a token is
// stored. [Engine.VerifyAndConsume] redeems a token exactly once through the
// token store's compare-and-set and writes the session cookie.
//
// Session reads ([Engine.CurrentSession], [Engine.RequireSession],
// [Engine.RequireUser]) verify the cookie on every call; nothing is cached.
// [Engine.RefreshIfNeeded] slides a session that is close to expiry.
//
// # Architecture boundaries
//
// magicAuth is the public surface. It exposes [Engine], [Builder], [Config], the
// collaborator interfaces ([UserStore], [TokenStore], [EmailSender],
// [BillingLinker], [RateLimiter]) and value types. Flow orchestration, token
// generation, rate limiting, audit dispatch and metrics live under internal/.
//
// # What this package must NOT do
//
//   - Persist raw tokens or log them.
//   - Tell clients which of invalid, used or expired a token was.
//   - Import any sub-package that re-imports magicAuth (no import cycles).
//
// The default rate limiter is process local. Deployments with more than one
// instance under-count unless the engine is built [Builder.WithRedis].
package magicAuth
