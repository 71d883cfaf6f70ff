package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"github.com/tidegate/authcore"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// counterDef binds an engine MetricID to its exported instrument.
type counterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

var counterDefs = []counterDef{
	{authcore.MetricLoginSuccess, "authcore_login_success_total", "Successful password logins."},
	{authcore.MetricLoginFailure, "authcore_login_failure_total", "Rejected password logins."},
	{authcore.MetricLockoutTriggered, "authcore_lockout_triggered_total", "Accounts locked after reaching the failure threshold."},
	{authcore.MetricLockoutRejected, "authcore_lockout_rejected_total", "Attempts rejected while an account lock held."},
	{authcore.MetricOTPSent, "authcore_otp_sent_total", "One-time codes generated and handed to the notifier."},
	{authcore.MetricOTPSuccess, "authcore_otp_success_total", "Successful second-factor verifications."},
	{authcore.MetricOTPFailure, "authcore_otp_failure_total", "Rejected second-factor verifications."},
	{authcore.MetricTokensIssued, "authcore_tokens_issued_total", "Access/refresh pairs minted."},
	{authcore.MetricRefreshSuccess, "authcore_refresh_success_total", "Successful refresh rotations."},
	{authcore.MetricRefreshFailure, "authcore_refresh_failure_total", "Rejected refresh rotations."},
	{authcore.MetricRefreshExpired, "authcore_refresh_expired_total", "Refresh tokens rejected for expiry."},
	{authcore.MetricRefreshReuseDetected, "authcore_refresh_reuse_total", "Already-rotated refresh tokens presented again."},
	{authcore.MetricRevoke, "authcore_revoke_total", "Refresh records revoked."},
	{authcore.MetricResetRequested, "authcore_reset_requested_total", "Password reset tokens issued."},
	{authcore.MetricResetSuccess, "authcore_reset_success_total", "Completed password resets."},
	{authcore.MetricResetFailure, "authcore_reset_failure_total", "Rejected password reset attempts."},
}

type metricsSource interface {
	MetricsSnapshot() authcore.MetricsSnapshot
	AuditDropped() uint64
}

type observedCounter struct {
	id         authcore.MetricID
	instrument metric.Int64ObservableCounter
}

// Exporter mirrors engine counters into OpenTelemetry observable
// instruments.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []observedCounter
	auditDropped metric.Int64ObservableCounter
}

// NewExporter registers the engine's counters on the meter.
func NewExporter(meter metric.Meter, engine *authcore.Engine) (*Exporter, error) {
	return NewExporterFromSource(meter, engine)
}

// NewExporterFromSource is NewExporter for any snapshot source, which
// keeps the exporter testable without a built engine.
func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &Exporter{
		source:   source,
		counters: make([]observedCounter, 0, len(counterDefs)),
	}

	observables := make([]metric.Observable, 0, len(counterDefs)+1)
	for _, def := range counterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		exporter.counters = append(exporter.counters, observedCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	auditDropped, err := meter.Int64ObservableCounter(
		"authcore_audit_dropped_total",
		metric.WithDescription("Dropped audit events due to dispatcher backpressure."),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	exporter.auditDropped = auditDropped
	observables = append(observables, auditDropped)

	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		snapshot := exporter.source.MetricsSnapshot()
		for _, c := range exporter.counters {
			observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
		}
		observer.ObserveInt64(exporter.auditDropped, int64(exporter.source.AuditDropped()))
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
