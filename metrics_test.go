package gnauth

import (
	"testing"
	"time"
)

func TestMetricsCountersAndHistogram(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricRouteFallback)
	m.ObserveLoginLatency(80 * time.Millisecond)
	m.ObserveLoginLatency(30 * time.Second)

	snap := m.SnapshotNow()
	if snap.Counters[MetricLoginSuccess] != 2 {
		t.Fatalf("login success = %d", snap.Counters[MetricLoginSuccess])
	}
	if snap.Counters[MetricRouteFallback] != 1 {
		t.Fatalf("fallback = %d", snap.Counters[MetricRouteFallback])
	}

	buckets := snap.Histograms[MetricLoginLatency]
	if len(buckets) != len(latencyBucketBoundsMs)+1 {
		t.Fatalf("bucket count = %d", len(buckets))
	}
	if buckets[1] != 1 { // 80ms lands in the <=100ms bucket
		t.Fatalf("80ms bucket = %d", buckets[1])
	}
	if buckets[len(buckets)-1] != 1 { // 30s lands in the overflow bucket
		t.Fatalf("overflow bucket = %d", buckets[len(buckets)-1])
	}
}

func TestMetricsDisabledIsNoOp(t *testing.T) {
	m := NewMetrics(MetricsConfig{})
	m.Inc(MetricLoginSuccess)
	m.ObserveLoginLatency(time.Second)

	snap := m.SnapshotNow()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("disabled metrics recorded data: %+v", snap)
	}
}
