// Package otel publishes magicAuth engine metrics through an OpenTelemetry
// Meter.
//
// Related counters share an instrument and are told apart by attributes:
// magicauth.verify.attempts carries outcome=success|invalid|used|expired|replay,
// magicauth.sessions carries event=issued|refreshed|rejected|logout, and so
// on. Verification latency is reported as cumulative gauges keyed by an le
// attribute in seconds. A single callback reads
// [magicAuth.Engine.MetricsSnapshot] on each collection cycle. Callers own
// the MeterProvider.
package otel
