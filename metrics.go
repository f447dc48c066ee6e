package gnauth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a counter or histogram in the in-process metrics
// system.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful password logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts failed password logins.
	MetricLoginFailure
	// MetricTokenLoginSuccess counts successful one-time-token hand-offs.
	MetricTokenLoginSuccess
	// MetricTokenLoginFailure counts failed one-time-token hand-offs.
	MetricTokenLoginFailure
	// MetricPinUnlockSuccess counts successful PIN unlocks.
	MetricPinUnlockSuccess
	// MetricPinUnlockFailure counts rejected PIN unlocks.
	MetricPinUnlockFailure
	// MetricBiometricUnlockSuccess counts successful biometric unlocks.
	MetricBiometricUnlockSuccess
	// MetricBiometricUnlockFailure counts failed biometric unlocks.
	MetricBiometricUnlockFailure
	// MetricBiometricCancelled counts user-dismissed biometric prompts.
	MetricBiometricCancelled
	// MetricRouteFallback counts requests retried via the ?rest_route= form.
	MetricRouteFallback
	// MetricSessionLocked counts lock transitions.
	MetricSessionLocked
	// MetricSessionRefreshed counts profile re-fetches.
	MetricSessionRefreshed
	// MetricLogout counts logouts.
	MetricLogout
	// MetricPinRegistered counts PIN registrations and rotations.
	MetricPinRegistered
	// MetricPinRemoved counts PIN removals.
	MetricPinRemoved
	// MetricPasswordChanged counts successful password changes.
	MetricPasswordChanged
	// MetricDiagnosticsRun counts diagnostics runs.
	MetricDiagnosticsRun
	// MetricDiagnosticsReady counts diagnostics runs that reached ready.
	MetricDiagnosticsReady
	// MetricDiagnosticsFailed counts diagnostics runs that failed a check.
	MetricDiagnosticsFailed
	// MetricLoginLatency is the password-login latency histogram.
	MetricLoginLatency

	metricIDCount
)

var latencyBucketBoundsMs = [...]uint64{50, 100, 250, 500, 1000, 2500, 5000, 10000}

// Metrics holds atomic counters and optional latency histograms. All methods
// are safe for concurrent use and no-ops when metrics are disabled.
type Metrics struct {
	enabled   bool
	histogram bool
	counters  [metricIDCount]atomic.Uint64
	buckets   [len(latencyBucketBoundsMs) + 1]atomic.Uint64
}

// Snapshot is a point-in-time deep copy of all metrics.
type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a Metrics instance per cfg. When Enabled is false every
// operation is a no-op.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled, histogram: cfg.EnableLatencyHistograms}
}

// Inc increments a counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// ObserveLoginLatency records a password-login duration.
func (m *Metrics) ObserveLoginLatency(d time.Duration) {
	if m == nil || !m.enabled || !m.histogram {
		return
	}
	ms := uint64(d.Milliseconds())
	for i, bound := range latencyBucketBoundsMs {
		if ms <= bound {
			m.buckets[i].Add(1)
			return
		}
	}
	m.buckets[len(latencyBucketBoundsMs)].Add(1)
}

// SnapshotNow returns a deep copy of all counters and histograms.
func (m *Metrics) SnapshotNow() Snapshot {
	snap := Snapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if v := m.counters[id].Load(); v != 0 {
			snap.Counters[id] = v
		}
	}
	if m.histogram {
		buckets := make([]uint64, len(m.buckets))
		for i := range m.buckets {
			buckets[i] = m.buckets[i].Load()
		}
		snap.Histograms[MetricLoginLatency] = buckets
	}
	return snap
}
