// Package prometheus renders sessionguard metrics in the Prometheus text
// exposition format.
//
// [NewExporter] reads a guard's MetricsSnapshot on every scrape. Counter
// names are sessionguard_*_total; the single histogram is
// sessionguard_check_latency_seconds.
//
// # What this package must NOT do
//
//   - Register into a global Prometheus registry; callers mount the Handler.
//   - Mutate guard state.
package prometheus
