// Package flows contains pure-function orchestrators for every Engine
// operation.
//
// Each flow function (RunIssueMagicLink, RunVerifyMagicLink,
// RunSessionRefresh) accepts a typed dependency struct and returns results
// without side-effects beyond those dependencies. The Engine builds the
// dependency sets once and stays thin.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the user and token stores, the rate
// limiter, the email sender, the session codec, audit and metrics. They do
// NOT own any of these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import magicAuth (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
package flows
