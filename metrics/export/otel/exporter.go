package otel

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/MrEthical07/magicAuth"
	"github.com/MrEthical07/magicAuth/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() magicAuth.MetricsSnapshot
	AuditDropped() uint64
}

// series is one engine counter reported as a data point of a shared
// instrument, distinguished by its attribute set.
type series struct {
	id    magicAuth.MetricID
	attrs metric.ObserveOption
}

func point(id magicAuth.MetricID, key, value string) series {
	return series{id: id, attrs: metric.WithAttributes(attribute.String(key, value))}
}

// instrumentDef groups engine counters under one OTel instrument.
type instrumentDef struct {
	name   string
	unit   string
	help   string
	series []series
}

var instrumentDefs = []instrumentDef{
	{
		name: "magicauth.magic_link.requests",
		unit: "{request}",
		help: "Magic link requests by outcome.",
		series: []series{
			point(magicAuth.MetricMagicLinkRequested, "outcome", "issued"),
			point(magicAuth.MetricMagicLinkRateLimited, "outcome", "rate_limited"),
			point(magicAuth.MetricMagicLinkInvalidEmail, "outcome", "invalid_email"),
			point(magicAuth.MetricMagicLinkDeliveryFailure, "outcome", "delivery_failure"),
		},
	},
	{
		name:   "magicauth.token.superseded",
		unit:   "{issuance}",
		help:   "Issuances that invalidated earlier unused tokens.",
		series: []series{{id: magicAuth.MetricTokenSuperseded}},
	},
	{
		name: "magicauth.verify.attempts",
		unit: "{attempt}",
		help: "Token verifications by outcome.",
		series: []series{
			point(magicAuth.MetricVerifySuccess, "outcome", "success"),
			point(magicAuth.MetricVerifyInvalid, "outcome", "invalid"),
			point(magicAuth.MetricVerifyUsed, "outcome", "used"),
			point(magicAuth.MetricVerifyExpired, "outcome", "expired"),
			point(magicAuth.MetricReplayDetected, "outcome", "replay"),
		},
	},
	{
		name: "magicauth.users",
		unit: "{user}",
		help: "User records written by the engine.",
		series: []series{
			point(magicAuth.MetricUserCreated, "event", "created"),
			point(magicAuth.MetricUserUpdated, "event", "updated"),
		},
	},
	{
		name: "magicauth.sessions",
		unit: "{session}",
		help: "Session cookie lifecycle events.",
		series: []series{
			point(magicAuth.MetricSessionIssued, "event", "issued"),
			point(magicAuth.MetricSessionRefreshed, "event", "refreshed"),
			point(magicAuth.MetricSessionRejected, "event", "rejected"),
			point(magicAuth.MetricLogout, "event", "logout"),
		},
	},
	{
		name: "magicauth.side_effect.failures",
		unit: "{failure}",
		help: "Best-effort side effects that failed without failing the login.",
		series: []series{
			point(magicAuth.MetricWelcomeEmailFailure, "kind", "welcome_email"),
			point(magicAuth.MetricBillingLinkFailure, "kind", "billing_link"),
		},
	},
}

type observedInstrument struct {
	instrument metric.Int64ObservableCounter
	series     []series
}

// Exporter publishes engine metrics as observable OTel instruments.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []observedInstrument
	latency      metric.Int64ObservableGauge
	latencyCount metric.Int64ObservableGauge
	latencyLE    []metric.ObserveOption
	auditDropped metric.Int64ObservableCounter
}

// NewExporter registers instruments on meter that read engine's snapshot
// on every collection.
func NewExporter(meter metric.Meter, engine *magicAuth.Engine) (*Exporter, error) {
	return NewExporterFromSource(meter, engine)
}

func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &Exporter{
		source:   source,
		counters: make([]observedInstrument, 0, len(instrumentDefs)),
	}
	observables := make([]metric.Observable, 0, len(instrumentDefs)+3)

	for _, def := range instrumentDefs {
		ins, err := meter.Int64ObservableCounter(def.name,
			metric.WithDescription(def.help),
			metric.WithUnit(def.unit),
		)
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.name, err)
		}
		exporter.counters = append(exporter.counters, observedInstrument{instrument: ins, series: def.series})
		observables = append(observables, ins)
	}

	latency, err := meter.Int64ObservableGauge("magicauth.verify.latency.bucket",
		metric.WithDescription("Cumulative count of verifications at or under the le bound in seconds."),
		metric.WithUnit("{verification}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create latency bucket gauge: %w", err)
	}
	latencyCount, err := meter.Int64ObservableGauge("magicauth.verify.latency.count",
		metric.WithDescription("Verifications with a recorded latency."),
		metric.WithUnit("{verification}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create latency count gauge: %w", err)
	}
	exporter.latency = latency
	exporter.latencyCount = latencyCount
	for _, bound := range internaldefs.HistogramUpperBounds {
		le := strconv.FormatFloat(bound, 'f', -1, 64)
		exporter.latencyLE = append(exporter.latencyLE, metric.WithAttributes(attribute.String("le", le)))
	}
	exporter.latencyLE = append(exporter.latencyLE, metric.WithAttributes(attribute.String("le", "+Inf")))
	observables = append(observables, latency, latencyCount)

	auditDropped, err := meter.Int64ObservableCounter("magicauth.audit.dropped",
		metric.WithDescription(internaldefs.AuditDroppedHelp),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	exporter.auditDropped = auditDropped
	observables = append(observables, auditDropped)

	registration, err := meter.RegisterCallback(exporter.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

func (e *Exporter) observe(_ context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		for _, s := range c.series {
			if s.attrs == nil {
				observer.ObserveInt64(c.instrument, int64(snapshot.Counters[s.id]))
				continue
			}
			observer.ObserveInt64(c.instrument, int64(snapshot.Counters[s.id]), s.attrs)
		}
	}

	if raw, ok := snapshot.Histograms[magicAuth.MetricVerifyLatency]; ok {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i, le := range e.latencyLE {
			observer.ObserveInt64(e.latency, int64(cumulative[i]), le)
		}
		observer.ObserveInt64(e.latencyCount, int64(cumulative[len(cumulative)-1]))
	}

	observer.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
