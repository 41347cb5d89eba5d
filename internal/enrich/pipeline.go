package enrich

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/looproute/looproute/internal/fusion"
	"github.com/looproute/looproute/internal/geo"
	"github.com/looproute/looproute/internal/graph"
	"github.com/looproute/looproute/internal/provider/resilience"
	"github.com/looproute/looproute/internal/spatial"
	"github.com/looproute/looproute/internal/telemetry"
)

// PipelineConfig holds configuration for the enrichment pipeline.
type PipelineConfig struct {
	// Providers are queried concurrently; a failing provider degrades
	// coverage but never aborts the run.
	Providers []Provider

	// ProviderTimeout bounds each provider fetch. Default: 30 seconds.
	ProviderTimeout time.Duration

	// MatchWorkers is the number of concurrent observation-matching
	// workers. Default: 4.
	MatchWorkers int

	// Fusion configures the fusion strategies for this run.
	Fusion fusion.Config

	// Index configures the spatial index built for this run.
	Index spatial.IndexConfig

	// Logger for pipeline operations.
	Logger zerolog.Logger

	// Metrics is optional; nil disables instrument recording.
	Metrics *telemetry.PipelineMetrics

	// Health is optional; when set, providers exposing a resilient client
	// are registered on it, fetch outcomes are recorded, and the run's
	// Stats carry a per-source health snapshot.
	Health *resilience.Registry
}

// resilientProvider is implemented by providers backed by a resilient
// client, such as HTTPProvider.
type resilientProvider interface {
	Client() *resilience.Client
}

// Pipeline enriches a street graph from external observation providers.
// Each Run builds its own spatial index and fusion engine, so concurrent
// runs over different graphs are independent.
type Pipeline struct {
	providers []Provider
	cfg       PipelineConfig
	logger    zerolog.Logger
}

// NewPipeline creates an enrichment pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.ProviderTimeout == 0 {
		cfg.ProviderTimeout = 30 * time.Second
	}
	if cfg.MatchWorkers == 0 {
		cfg.MatchWorkers = 4
	}
	if cfg.Health != nil {
		for _, provider := range cfg.Providers {
			if rp, ok := provider.(resilientProvider); ok {
				cfg.Health.Register(string(provider.Source()), rp.Client())
			}
		}
	}
	return &Pipeline{
		providers: cfg.Providers,
		cfg:       cfg,
		logger:    cfg.Logger,
	}
}

// fetchResult is one provider's outcome, delivered at the fan-in point.
type fetchResult struct {
	source       graph.DataSource
	observations []graph.Observation
	err          error
	duration     time.Duration
}

// matchResult is one observation resolved against the spatial index.
type matchResult struct {
	obs   graph.Observation
	edges []graph.EdgeID
}

// Run fetches observations for the region, matches them onto edges,
// fuses per (edge, attribute) and writes results into the graph in
// place. The returned Stats report is immutable. Re-running with
// identical provider responses reproduces identical enrichment state.
func (p *Pipeline) Run(ctx context.Context, g *graph.Graph, bounds geo.BoundingBox) (*Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	builder := newStatsBuilder()
	index := spatial.NewIndex(g, p.cfg.Index)
	engine := fusion.NewDefaultEngine(p.cfg.Fusion)

	p.logger.Info().
		Int("providers", len(p.providers)).
		Int("edges", g.EdgeCount()).
		Msg("starting enrichment pipeline")

	observations := p.fetchAll(ctx, bounds, builder)
	groups := p.matchAll(ctx, index, observations, builder)
	p.fuseAndWrite(g, engine, groups, builder)

	stats := builder.build()
	if p.cfg.Health != nil {
		stats.SourceHealth = p.cfg.Health.AllHealth()
	}
	if p.cfg.Metrics != nil {
		p.cfg.Metrics.ObservationsMatched.Add(ctx, int64(stats.TotalMatched))
		p.cfg.Metrics.FusionConflicts.Add(ctx, int64(stats.Conflicts))
		p.cfg.Metrics.RunDuration.Record(ctx, time.Since(start).Seconds())
	}
	p.logger.Info().
		Int("fetched", stats.TotalFetched).
		Int("matched", stats.TotalMatched).
		Int("unmatched", stats.TotalUnmatched).
		Int("enriched_edges", stats.EnrichedEdges).
		Int("conflicts", stats.Conflicts).
		Dur("duration", stats.Duration).
		Msg("enrichment pipeline completed")
	return stats, nil
}

// fetchAll queries every provider concurrently with a per-provider
// timeout and joins the results. Failures are absorbed into statistics.
func (p *Pipeline) fetchAll(ctx context.Context, bounds geo.BoundingBox, builder *statsBuilder) []graph.Observation {
	results := make(chan fetchResult, len(p.providers))
	var wg sync.WaitGroup

	declared := make(map[graph.DataSource]map[graph.AttributeKind]struct{}, len(p.providers))
	for _, provider := range p.providers {
		kinds := make(map[graph.AttributeKind]struct{}, len(provider.Attributes()))
		for _, kind := range provider.Attributes() {
			kinds[kind] = struct{}{}
		}
		declared[provider.Source()] = kinds

		wg.Add(1)
		go func(provider Provider) {
			defer wg.Done()
			fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.ProviderTimeout)
			defer cancel()

			started := time.Now()
			obs, err := provider.FetchObservations(fetchCtx, bounds)
			results <- fetchResult{
				source:       provider.Source(),
				observations: obs,
				err:          err,
				duration:     time.Since(started),
			}
		}(provider)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// Single collector: the only writer of the stats builder.
	var all []graph.Observation
	for res := range results {
		ps := builder.provider(res.source)
		ps.Duration = res.duration
		if res.err != nil {
			ps.Failed = true
			ps.Error = res.err.Error()
			p.cfg.Metrics.RecordFailure(ctx, string(res.source))
			if p.cfg.Health != nil {
				p.cfg.Health.RecordFailure(string(res.source), res.err)
			}
			p.logger.Warn().
				Err(res.err).
				Str("source", string(res.source)).
				Msg("provider fetch failed; continuing with partial coverage")
			continue
		}
		for _, o := range res.observations {
			if _, ok := declared[res.source][o.Attribute]; !ok {
				ps.Discarded++
				continue
			}
			ps.Fetched++
			builder.stats.TotalFetched++
			all = append(all, o)
		}
		if ps.Discarded > 0 {
			p.logger.Warn().
				Str("source", string(res.source)).
				Int("discarded", ps.Discarded).
				Msg("discarded observations outside declared attribute coverage")
		}
		p.cfg.Metrics.RecordFetched(ctx, string(res.source), int64(ps.Fetched))
		if p.cfg.Health != nil {
			p.cfg.Health.RecordSuccess(string(res.source))
		}
	}
	return all
}

// matchAll resolves each observation to its owning edges via the spatial
// index using a worker pool. The single collector serializes all stats
// and grouping writes.
func (p *Pipeline) matchAll(ctx context.Context, index *spatial.Index, observations []graph.Observation, builder *statsBuilder) map[graph.EdgeID]map[graph.AttributeKind][]graph.Observation {
	jobs := make(chan graph.Observation, len(observations))
	results := make(chan matchResult, len(observations))

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.MatchWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for obs := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				matches := index.Match(obs.Geometry)
				edges := make([]graph.EdgeID, len(matches))
				for i, m := range matches {
					edges[i] = m.EdgeID
				}
				results <- matchResult{obs: obs, edges: edges}
			}
		}()
	}

	for _, obs := range observations {
		jobs <- obs
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	groups := make(map[graph.EdgeID]map[graph.AttributeKind][]graph.Observation)
	for res := range results {
		ps := builder.provider(res.obs.Source)
		if len(res.edges) == 0 {
			ps.Unmatched++
			builder.stats.TotalUnmatched++
			p.cfg.Metrics.RecordUnmatched(ctx, string(res.obs.Source))
			continue
		}
		ps.Matched++
		builder.stats.TotalMatched++
		if len(res.edges) > 1 {
			builder.stats.MultiEdgeMatches++
		}
		for _, edgeID := range res.edges {
			byKind, ok := groups[edgeID]
			if !ok {
				byKind = make(map[graph.AttributeKind][]graph.Observation)
				groups[edgeID] = byKind
			}
			byKind[res.obs.Attribute] = append(byKind[res.obs.Attribute], res.obs)
		}
	}
	return groups
}

// fuseAndWrite fuses each (edge, attribute) group and writes the result
// onto the edge. Groups are ordered and pre-sorted so identical inputs
// yield identical enrichment.
func (p *Pipeline) fuseAndWrite(g *graph.Graph, engine *fusion.Engine, groups map[graph.EdgeID]map[graph.AttributeKind][]graph.Observation, builder *statsBuilder) {
	edgeIDs := make([]graph.EdgeID, 0, len(groups))
	for id := range groups {
		edgeIDs = append(edgeIDs, id)
	}
	sort.Slice(edgeIDs, func(i, j int) bool { return edgeIDs[i] < edgeIDs[j] })

	for _, edgeID := range edgeIDs {
		edge := g.Edge(edgeID)
		if edge == nil {
			continue
		}
		enrichedAny := false
		for kind, obs := range groups[edgeID] {
			sortObservations(obs)
			enr := engine.Fuse(kind, obs)
			if enr == nil {
				continue
			}
			edge.SetEnrichment(kind, enr)
			builder.recordFused(kind, enr)
			enrichedAny = true
		}
		if enrichedAny {
			builder.stats.EnrichedEdges++
		}
	}
}

// sortObservations orders a fusion group deterministically: by source,
// then timestamp, then confidence.
func sortObservations(obs []graph.Observation) {
	sort.SliceStable(obs, func(i, j int) bool {
		if obs[i].Source != obs[j].Source {
			return obs[i].Source < obs[j].Source
		}
		ti, tj := obs[i].ObservedAt, obs[j].ObservedAt
		switch {
		case ti == nil && tj != nil:
			return true
		case ti != nil && tj == nil:
			return false
		case ti != nil && tj != nil && !ti.Equal(*tj):
			return ti.Before(*tj)
		}
		return obs[i].Confidence < obs[j].Confidence
	})
}
