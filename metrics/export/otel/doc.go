// Package otel provides OpenTelemetry metric exporter bindings for the
// engine counters.
//
// [NewExporter] registers one Int64ObservableCounter per engine metric
// plus the dropped-audit-event counter. A single callback reads
// [authcore.Engine.MetricsSnapshot] on each collection cycle, so the
// exporter adds no work to authentication hot paths.
//
// The caller owns the OTel MeterProvider; this package only registers
// instruments on a supplied Meter.
package otel
