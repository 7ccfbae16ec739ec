// Package metrics counts magic-link issuance, verification outcomes and
// session events, and records how long verification takes.
//
// Every [MetricID] owns one cache-line-padded counter slot. Only
// MetricVerifyLatency also fills a histogram: seven bounded buckets from 5ms
// up to 500ms plus an overflow bucket. Writes are single atomic adds and do
// not allocate; [Metrics.Snapshot] copies the slots into maps.
//
// Exporters in metrics/export read snapshots. This package performs no I/O
// and does not import magicAuth.
package metrics
