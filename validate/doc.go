// Package validate normalizes and validates the user-supplied values that
// reach the magic-link engine: email addresses, display names, and opaque
// record identifiers.
//
// Every function is pure and safe for concurrent use. Nothing here returns
// an error for bad input; callers receive a boolean and convert it into a
// typed failure at their own boundary.
package validate
