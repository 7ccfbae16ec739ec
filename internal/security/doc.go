// Package security derives a configuration posture report and lint
// findings for the engine. It performs no I/O.
package security
