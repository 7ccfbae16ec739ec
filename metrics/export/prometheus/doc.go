// Package prometheus exposes magicAuth engine metrics as a
// prometheus.Collector.
//
// [NewCollector] reads [magicAuth.Engine.MetricsSnapshot] on every scrape.
// Counters are named magicauth_*_total; verification latency is the
// magicauth_verify_latency_seconds histogram. Callers register the
// collector in their own registry or mount [Handler], which uses a private
// one.
package prometheus
