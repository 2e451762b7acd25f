package internaldefs

import (
	"github.com/MrEthical07/sessionguard"
)

// BucketCount is the number of latency histogram buckets, +Inf included.
const BucketCount = 8

// CounterDef binds a guard counter to its exported name.
type CounterDef struct {
	ID   sessionguard.MetricID
	Name string
	Help string
}

// HistogramDef binds a guard histogram to its exported name.
type HistogramDef struct {
	ID   sessionguard.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: sessionguard.MetricCheckRequested, Name: "sessionguard_check_requested_total", Help: "Session check calls, including callers that joined an in-flight check."},
	{ID: sessionguard.MetricCheckStarted, Name: "sessionguard_check_started_total", Help: "Logical session checks that reached the provider."},
	{ID: sessionguard.MetricCheckAuthenticated, Name: "sessionguard_check_authenticated_total", Help: "Checks that resolved with a session."},
	{ID: sessionguard.MetricCheckAnonymous, Name: "sessionguard_check_anonymous_total", Help: "Checks that resolved without a session."},
	{ID: sessionguard.MetricCheckFailure, Name: "sessionguard_check_failure_total", Help: "Checks that resolved with an error."},
	{ID: sessionguard.MetricCheckRetry, Name: "sessionguard_check_retry_total", Help: "Provider calls repeated after a retryable error."},
	{ID: sessionguard.MetricCheckRetryExhausted, Name: "sessionguard_check_retry_exhausted_total", Help: "Checks that failed after the retry budget was spent."},
	{ID: sessionguard.MetricCheckTerminalError, Name: "sessionguard_check_terminal_error_total", Help: "Checks that failed on a non-retryable error."},
	{ID: sessionguard.MetricRedirectLanding, Name: "sessionguard_redirect_landing_total", Help: "Redirects to the anonymous landing location."},
	{ID: sessionguard.MetricRedirectHome, Name: "sessionguard_redirect_home_total", Help: "Redirects to the authenticated home location."},
	{ID: sessionguard.MetricRedirectSkipped, Name: "sessionguard_redirect_skipped_total", Help: "Redirect guards that failed open on a check error."},
	{ID: sessionguard.MetricEventSignedIn, Name: "sessionguard_event_signed_in_total", Help: "SIGNED_IN transitions."},
	{ID: sessionguard.MetricEventSignedOut, Name: "sessionguard_event_signed_out_total", Help: "SIGNED_OUT or session-less transitions."},
	{ID: sessionguard.MetricEventTokenRefreshed, Name: "sessionguard_event_token_refreshed_total", Help: "TOKEN_REFRESHED transitions."},
	{ID: sessionguard.MetricEventOther, Name: "sessionguard_event_other_total", Help: "Transitions without dedicated handling."},
	{ID: sessionguard.MetricAuditDropped, Name: "sessionguard_audit_dropped_total", Help: "Audit events that never reached the sink."},
	{ID: sessionguard.MetricAuditSinkError, Name: "sessionguard_audit_sink_error_total", Help: "Audit events the sink rejected."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: sessionguard.MetricCheckLatency, Name: "sessionguard_check_latency_seconds", Help: "Latency of logical session checks, retries included."},
}

// HistogramBounds are the Prometheus le labels, matching the guard's
// millisecond buckets.
var HistogramBounds = [BucketCount]string{
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"5",
	"+Inf",
}

// HistogramBoundSuffix names per-bucket OTel gauges.
var HistogramBoundSuffix = [BucketCount]string{
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"5",
	"inf",
}

// Cumulative turns per-bucket counts into running totals. Missing buckets
// count as zero and extra ones are ignored.
func Cumulative(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < BucketCount; i++ {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
