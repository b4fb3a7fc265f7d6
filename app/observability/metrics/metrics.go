package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "go-trip-planner"

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	TripSyncRequestsTotal   metric.Int64Counter
	TripChangesTotal        metric.Int64Counter
	CacheHitsTotal          metric.Int64Counter
	CacheMissesTotal        metric.Int64Counter
	SlotLookupsTotal        metric.Int64Counter
	DbQueryDurationSeconds  metric.Float64Histogram
	DbQueryErrorsTotal      metric.Int64Counter
	ExternalCallDurationSec metric.Float64Histogram
}

var (
	appMetrics *AppMetrics
	initErr    error
	once       sync.Once
)

// New creates the instruments on meter.
func New(meter metric.Meter) (*AppMetrics, error) {
	m := &AppMetrics{}
	var errs []error
	counter := func(name, desc, unit string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		errs = append(errs, err)
		return c
	}
	histogram := func(name, desc string) metric.Float64Histogram {
		h, err := meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
		errs = append(errs, err)
		return h
	}

	m.TripSyncRequestsTotal = counter("trip_sync_requests_total", "Trip update requests by outcome", "{request}")
	m.TripChangesTotal = counter("trip_changes_total", "Itinerary changes applied, by kind", "{change}")
	m.CacheHitsTotal = counter("cache_hits_total", "TTL cache hits", "{hit}")
	m.CacheMissesTotal = counter("cache_misses_total", "TTL cache misses, by reason", "{miss}")
	m.SlotLookupsTotal = counter("slot_lookups_total", "Free slot lookups, by result", "{lookup}")
	m.DbQueryDurationSeconds = histogram("db_query_duration_seconds", "Duration of database queries in seconds")
	m.DbQueryErrorsTotal = counter("db_query_errors_total", "Total number of database query errors", "{error}")
	m.ExternalCallDurationSec = histogram("external_call_duration_seconds", "Duration of calls to external providers in seconds")

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// InitAppMetrics creates the shared instruments once from the global
// MeterProvider. Instruments created before the provider is installed are
// delegated to it once it is.
func InitAppMetrics() error {
	once.Do(func() {
		appMetrics, initErr = New(otel.GetMeterProvider().Meter(meterName))
	})
	return initErr
}

// Get returns the shared instruments, creating them on first use. The result
// is nil when creation failed; every Record method accepts a nil receiver.
func Get() *AppMetrics {
	_ = InitAppMetrics()
	return appMetrics
}

func (m *AppMetrics) RecordCacheHit(ctx context.Context, cache string) {
	if m == nil || m.CacheHitsTotal == nil {
		return
	}
	m.CacheHitsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("cache", cache)))
}

func (m *AppMetrics) RecordCacheMiss(ctx context.Context, cache, reason string) {
	if m == nil || m.CacheMissesTotal == nil {
		return
	}
	m.CacheMissesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", cache),
		attribute.String("reason", reason),
	))
}

func (m *AppMetrics) RecordSlotLookup(ctx context.Context, found bool) {
	if m == nil || m.SlotLookupsTotal == nil {
		return
	}
	result := "none"
	if found {
		result = "found"
	}
	m.SlotLookupsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordTripSync counts one update request and the changes it carried.
func (m *AppMetrics) RecordTripSync(ctx context.Context, outcome string, changes map[string]int) {
	if m == nil || m.TripSyncRequestsTotal == nil {
		return
	}
	m.TripSyncRequestsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	for kind, n := range changes {
		if n > 0 {
			m.TripChangesTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String("kind", kind)))
		}
	}
}

// RecordDBQuery observes the duration of a query started at start.
func (m *AppMetrics) RecordDBQuery(ctx context.Context, op string, start time.Time, err error) {
	if m == nil || m.DbQueryDurationSeconds == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("db.operation", op))
	m.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		m.DbQueryErrorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordExternalCall observes a call to an outside provider.
func (m *AppMetrics) RecordExternalCall(ctx context.Context, target string, start time.Time, err error) {
	if m == nil || m.ExternalCallDurationSec == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ExternalCallDurationSec.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("target", target),
		attribute.String("status", status),
	))
}
