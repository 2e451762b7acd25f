package sessionguard

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a counter or histogram in the in-process metrics system.
type MetricID uint16

const (
	// MetricCheckRequested counts CheckSession calls, including callers that joined an in-flight check.
	MetricCheckRequested MetricID = iota
	// MetricCheckStarted counts logical session checks; each runs its own remote calls.
	MetricCheckStarted
	// MetricCheckAuthenticated counts checks that resolved with a session.
	MetricCheckAuthenticated
	// MetricCheckAnonymous counts checks that resolved without a session and without error.
	MetricCheckAnonymous
	// MetricCheckFailure counts checks that resolved with an error.
	MetricCheckFailure
	// MetricCheckRetry counts retry attempts after a retryable error.
	MetricCheckRetry
	// MetricCheckRetryExhausted counts checks that failed after spending the retry budget.
	MetricCheckRetryExhausted
	// MetricCheckTerminalError counts checks that failed on a non-retryable error.
	MetricCheckTerminalError
	// MetricRedirectLanding counts redirects to the anonymous landing location.
	MetricRedirectLanding
	// MetricRedirectHome counts redirects to the authenticated home location.
	MetricRedirectHome
	// MetricRedirectSkipped counts redirect guards that failed open on a check error.
	MetricRedirectSkipped
	// MetricEventSignedIn counts SIGNED_IN transitions.
	MetricEventSignedIn
	// MetricEventSignedOut counts SIGNED_OUT or session-less transitions.
	MetricEventSignedOut
	// MetricEventTokenRefreshed counts TOKEN_REFRESHED transitions.
	MetricEventTokenRefreshed
	// MetricEventOther counts transitions with no dedicated handling.
	MetricEventOther
	// MetricAuditDropped counts audit events that never reached the sink:
	// full buffer, cancelled caller or abandoned flush on Close.
	MetricAuditDropped
	// MetricAuditSinkError counts audit events the sink rejected.
	MetricAuditSinkError
	// MetricCheckLatency is the latency histogram of logical session checks.
	MetricCheckLatency
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

// Metrics holds lock-free counters and the check latency histogram.
//
// All methods are safe on a nil receiver.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a copy of every counter and histogram at one instant.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a Metrics instance honoring cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc atomically increments the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Only MetricCheckLatency has one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricCheckLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current counter value for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters and, when enabled, the latency histogram.
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
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricCheckLatency].buckets[i])
		}
		s.Histograms[MetricCheckLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 50:
		return 0
	case ms <= 100:
		return 1
	case ms <= 250:
		return 2
	case ms <= 500:
		return 3
	case ms <= 1000:
		return 4
	case ms <= 2500:
		return 5
	case ms <= 5000:
		return 6
	default:
		return 7
	}
}
