package enrich

import (
	"sort"
	"time"

	"github.com/looproute/looproute/internal/graph"
	"github.com/looproute/looproute/internal/provider/resilience"
)

// ProviderStats reports one provider's contribution to a pipeline run.
type ProviderStats struct {
	Source    graph.DataSource
	Fetched   int
	Matched   int
	Unmatched int
	Discarded int // observations outside the provider's declared coverage
	Failed    bool
	Error     string
	Duration  time.Duration
}

// MatchRate returns the fraction of fetched observations that matched at
// least one edge.
func (s ProviderStats) MatchRate() float64 {
	if s.Fetched == 0 {
		return 0
	}
	return float64(s.Matched) / float64(s.Fetched)
}

// BucketCounts counts fused results per confidence bucket:
// high >= 0.7, medium in [0.4, 0.7), low < 0.4.
type BucketCounts struct {
	High   int
	Medium int
	Low    int
}

func (b *BucketCounts) add(confidence float64) {
	switch {
	case confidence >= 0.7:
		b.High++
	case confidence >= 0.4:
		b.Medium++
	default:
		b.Low++
	}
}

// Stats is the immutable report of one pipeline run.
type Stats struct {
	Providers []ProviderStats

	TotalFetched     int
	TotalMatched     int
	TotalUnmatched   int
	MultiEdgeMatches int

	EnrichedEdges int
	Conflicts     int

	Confidence map[graph.AttributeKind]BucketCounts

	// SourceHealth is the per-source health snapshot taken after the run,
	// present only when the pipeline carries a health registry.
	SourceHealth []*resilience.SourceHealth

	StartedAt time.Time
	Duration  time.Duration
}

// statsBuilder accumulates run statistics; the collector goroutine is the
// only writer.
type statsBuilder struct {
	providers map[graph.DataSource]*ProviderStats
	stats     Stats
}

func newStatsBuilder() *statsBuilder {
	return &statsBuilder{
		providers: make(map[graph.DataSource]*ProviderStats),
		stats: Stats{
			Confidence: make(map[graph.AttributeKind]BucketCounts),
			StartedAt:  time.Now(),
		},
	}
}

func (b *statsBuilder) provider(source graph.DataSource) *ProviderStats {
	ps, ok := b.providers[source]
	if !ok {
		ps = &ProviderStats{Source: source}
		b.providers[source] = ps
	}
	return ps
}

func (b *statsBuilder) recordFused(kind graph.AttributeKind, enr *graph.AttributeEnrichment) {
	counts := b.stats.Confidence[kind]
	counts.add(enr.Confidence)
	b.stats.Confidence[kind] = counts
	if enr.Conflict {
		b.stats.Conflicts++
	}
}

func (b *statsBuilder) build() *Stats {
	out := b.stats
	out.Providers = make([]ProviderStats, 0, len(b.providers))
	for _, ps := range b.providers {
		out.Providers = append(out.Providers, *ps)
	}
	sort.Slice(out.Providers, func(i, j int) bool {
		return out.Providers[i].Source < out.Providers[j].Source
	})
	out.Duration = time.Since(out.StartedAt)
	return &out
}
