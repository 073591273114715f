package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics are the engine counters. A nil *Metrics records nothing.
type Metrics struct {
	votes               metric.Int64Counter
	writeConflicts      metric.Int64Counter
	aggregationFailures metric.Int64Counter
	cacheHits           metric.Int64Counter
	cacheMisses         metric.Int64Counter
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(instrumentationName)
	m := &Metrics{}
	var err error

	if m.votes, err = meter.Int64Counter("agora_votes_applied_total",
		metric.WithDescription("Vote toggles applied, by target type and resulting state")); err != nil {
		return nil, err
	}
	if m.writeConflicts, err = meter.Int64Counter("agora_vote_write_conflicts_total",
		metric.WithDescription("Vote toggles retried after a storage write conflict")); err != nil {
		return nil, err
	}
	if m.aggregationFailures, err = meter.Int64Counter("agora_aggregation_failures_total",
		metric.WithDescription("Counter recomputes that failed after a ledger write")); err != nil {
		return nil, err
	}
	if m.cacheHits, err = meter.Int64Counter("agora_query_cache_hits_total",
		metric.WithDescription("Content listing cache hits")); err != nil {
		return nil, err
	}
	if m.cacheMisses, err = meter.Int64Counter("agora_query_cache_misses_total",
		metric.WithDescription("Content listing cache misses")); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) VoteApplied(ctx context.Context, targetType, state string) {
	if m == nil {
		return
	}
	m.votes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("target_type", targetType),
		attribute.String("state", state),
	))
}

func (m *Metrics) WriteConflict(ctx context.Context) {
	if m == nil {
		return
	}
	m.writeConflicts.Add(ctx, 1)
}

func (m *Metrics) AggregationFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.aggregationFailures.Add(ctx, 1)
}

// CacheHit and CacheMiss satisfy utils.CacheStats.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Add(context.Background(), 1)
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Add(context.Background(), 1)
}
