package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics holds the enrichment pipeline instruments.
type PipelineMetrics struct {
	ObservationsFetched   metric.Int64Counter
	ObservationsMatched   metric.Int64Counter
	ObservationsUnmatched metric.Int64Counter
	FusionConflicts       metric.Int64Counter
	ProviderFailures      metric.Int64Counter
	RunDuration           metric.Float64Histogram
}

// NewPipelineMetrics creates the pipeline instrument bundle on the meter.
func NewPipelineMetrics(m metric.Meter) (*PipelineMetrics, error) {
	var (
		pm  PipelineMetrics
		err error
	)
	if pm.ObservationsFetched, err = m.Int64Counter("enrich.observations.fetched",
		metric.WithDescription("Observations fetched from providers")); err != nil {
		return nil, err
	}
	if pm.ObservationsMatched, err = m.Int64Counter("enrich.observations.matched",
		metric.WithDescription("Observations matched to at least one edge")); err != nil {
		return nil, err
	}
	if pm.ObservationsUnmatched, err = m.Int64Counter("enrich.observations.unmatched",
		metric.WithDescription("Observations dropped for matching no edge")); err != nil {
		return nil, err
	}
	if pm.FusionConflicts, err = m.Int64Counter("enrich.fusion.conflicts",
		metric.WithDescription("Edge attributes fused with disagreeing observations")); err != nil {
		return nil, err
	}
	if pm.ProviderFailures, err = m.Int64Counter("enrich.provider.failures",
		metric.WithDescription("Provider fetches that failed or timed out")); err != nil {
		return nil, err
	}
	if pm.RunDuration, err = m.Float64Histogram("enrich.run.duration",
		metric.WithDescription("Pipeline run duration"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return &pm, nil
}

// RecordFetched records fetched observations attributed to a source.
func (pm *PipelineMetrics) RecordFetched(ctx context.Context, source string, n int64) {
	if pm == nil {
		return
	}
	pm.ObservationsFetched.Add(ctx, n, metric.WithAttributes(attribute.String("source", source)))
}

// RecordUnmatched records an observation that matched no edge.
func (pm *PipelineMetrics) RecordUnmatched(ctx context.Context, source string) {
	if pm == nil {
		return
	}
	pm.ObservationsUnmatched.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// RecordFailure records a provider fetch failure.
func (pm *PipelineMetrics) RecordFailure(ctx context.Context, source string) {
	if pm == nil {
		return
	}
	pm.ProviderFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// SearchMetrics holds the route search instruments.
type SearchMetrics struct {
	Expansions     metric.Int64Counter
	CandidateLoops metric.Int64Counter
	SearchDuration metric.Float64Histogram
}

// NewSearchMetrics creates the search instrument bundle on the meter.
func NewSearchMetrics(m metric.Meter) (*SearchMetrics, error) {
	var (
		sm  SearchMetrics
		err error
	)
	if sm.Expansions, err = m.Int64Counter("search.expansions",
		metric.WithDescription("Search states expanded")); err != nil {
		return nil, err
	}
	if sm.CandidateLoops, err = m.Int64Counter("search.candidates",
		metric.WithDescription("Candidate loops accepted before ranking")); err != nil {
		return nil, err
	}
	if sm.SearchDuration, err = m.Float64Histogram("search.duration",
		metric.WithDescription("Loop search duration"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return &sm, nil
}
