// Package internaldefs holds the Prometheus metric names and help text, the
// latency bucket bounds and the bucket helpers the exporters share.
package internaldefs
