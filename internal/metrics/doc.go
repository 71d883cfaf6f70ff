// Package metrics provides lock-free counters for the authentication
// engine. Counters are sampled via Snapshot and exported by the optional
// OpenTelemetry exporter.
package metrics
