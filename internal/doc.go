// Package internal groups the private building blocks of magicAuth.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - flows: flow orchestrators behind every Engine operation
//   - metrics: lock-free counters and the verify latency histogram
//   - rate: fixed-window limiters (local and Redis-backed)
//   - security: configuration lint and the security report
//   - token: magic-link token generation and hashing
//
// # What this package must NOT do
//
//   - Export types that appear in the public magicAuth API.
//   - Be imported by any package outside the magicAuth module.
package internal
