package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestDisabledMetricsAreNoOps(t *testing.T) {
	m := New(Config{Enabled: false})
	m.Inc(MetricVerifySuccess)
	m.Observe(MetricVerifyLatency, time.Millisecond)

	if m.Value(MetricVerifySuccess) != 0 {
		t.Fatal("disabled metrics must not count")
	}
	if len(m.Snapshot().Counters) != 0 {
		t.Fatal("disabled snapshot must be empty")
	}

	var nilMetrics *Metrics
	nilMetrics.Inc(MetricLogout)
	if nilMetrics.Enabled() {
		t.Fatal("nil metrics must report disabled")
	}
}

func TestConcurrentIncrements(t *testing.T) {
	m := New(Config{Enabled: true})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Inc(MetricMagicLinkRequested)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricMagicLinkRequested); got != 3200 {
		t.Fatalf("expected 3200, got %d", got)
	}
	if got := m.Snapshot().Counters[MetricMagicLinkRequested]; got != 3200 {
		t.Fatalf("snapshot mismatch: %d", got)
	}
}

func TestLatencyHistogram(t *testing.T) {
	m := New(Config{Enabled: true, EnableLatency: true})
	m.Observe(MetricVerifyLatency, 3*time.Millisecond)
	m.Observe(MetricVerifyLatency, 40*time.Millisecond)
	m.Observe(MetricVerifyLatency, 2*time.Second)
	m.Observe(MetricLogout, time.Millisecond)

	buckets := m.Snapshot().Histograms[MetricVerifyLatency]
	if len(buckets) != HistogramBucketCount {
		t.Fatalf("expected %d buckets, got %d", HistogramBucketCount, len(buckets))
	}
	if buckets[0] != 1 || buckets[3] != 1 || buckets[7] != 1 {
		t.Fatalf("unexpected buckets %v", buckets)
	}
}

func TestLatencyRequiresEnabled(t *testing.T) {
	m := New(Config{Enabled: false, EnableLatency: true})
	if m.LatencyEnabled() {
		t.Fatal("latency must follow the master switch")
	}
}
