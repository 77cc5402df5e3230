package authgate

import (
	"sync/atomic"
	"time"
)

// MetricID defines a public type used by authgate APIs.
//
// MetricID instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricID uint16

const (
	// MetricLoginSuccess is an exported constant or variable used by the authentication engine.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure is an exported constant or variable used by the authentication engine.
	MetricLoginFailure
	// MetricSessionRotated is an exported constant or variable used by the authentication engine.
	MetricSessionRotated
	// MetricSessionRejected is an exported constant or variable used by the authentication engine.
	MetricSessionRejected
	// MetricSignupSuccess is an exported constant or variable used by the authentication engine.
	MetricSignupSuccess
	// MetricSignupDuplicate is an exported constant or variable used by the authentication engine.
	MetricSignupDuplicate
	// MetricProfileUpdate is an exported constant or variable used by the authentication engine.
	MetricProfileUpdate
	// MetricVerificationIssued is an exported constant or variable used by the authentication engine.
	MetricVerificationIssued
	// MetricVerificationConfirmed is an exported constant or variable used by the authentication engine.
	MetricVerificationConfirmed
	// MetricVerificationFailure is an exported constant or variable used by the authentication engine.
	MetricVerificationFailure
	// MetricVerificationRateLimited is an exported constant or variable used by the authentication engine.
	MetricVerificationRateLimited
	// MetricResetIssued is an exported constant or variable used by the authentication engine.
	MetricResetIssued
	// MetricResetConfirmed is an exported constant or variable used by the authentication engine.
	MetricResetConfirmed
	// MetricResetFailure is an exported constant or variable used by the authentication engine.
	MetricResetFailure
	// MetricResetRateLimited is an exported constant or variable used by the authentication engine.
	MetricResetRateLimited
	// MetricDeliveryFailure is an exported constant or variable used by the authentication engine.
	MetricDeliveryFailure
	// MetricRateLimitHit is an exported constant or variable used by the authentication engine.
	MetricRateLimitHit
	// MetricValidateLatency is an exported constant or variable used by the authentication engine.
	MetricValidateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and an optional validate-latency
// histogram for the engine's operations.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a [Metrics] instance configured by cfg. When Enabled is
// false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled describes the enabled operation and its observable behavior.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc describes the inc operation and its observable behavior.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe describes the observe operation and its observable behavior.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricValidateLatency {
		return
	}

	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

// Value describes the value operation and its observable behavior.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot describes the snapshot operation and its observable behavior.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricValidateLatency].buckets[i])
		}
		s.Histograms[MetricValidateLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
