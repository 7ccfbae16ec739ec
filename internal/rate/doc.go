// Package rate provides the admission control that gates magic-link
// issuance.
//
// # Window semantics
//
// Both limiters implement the same fixed window per key:
//   - no entry, or the window has elapsed: reset to count=1 and allow
//   - count already at Max: deny without touching the entry
//   - otherwise: increment and allow
//
// # Deployment limits
//
// MemoryLimiter keeps its counters in process memory. Behind a load
// balancer every instance counts separately, so a client can receive up to
// Max admissions per instance per window. RedisLimiter shares the counters
// through Redis and is the extension point for multi-instance deployments.
//
// # What this package must NOT do
//
//   - Normalize keys; callers pass the already-normalized email.
//   - Be imported outside the magicAuth module.
package rate
