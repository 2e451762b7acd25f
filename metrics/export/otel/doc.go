// Package otel publishes sessionguard metrics through an OpenTelemetry Meter.
//
// [NewExporter] registers one Int64ObservableCounter per guard counter and
// one Int64ObservableGauge per cumulative histogram bucket. A single
// callback reads the guard's MetricsSnapshot on each collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate guard state.
package otel
