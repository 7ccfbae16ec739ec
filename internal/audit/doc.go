// Package audit implements async event dispatching for magic-link and
// session operations.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, slog, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured audit record with timestamp, type, user, IP, request id, metadata.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; the Engine and flow functions do.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import magicAuth or any sibling internal package.
//   - Carry raw magic-link tokens or session credentials in events.
package audit
