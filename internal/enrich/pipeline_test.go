package enrich_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looproute/looproute/internal/enrich"
	"github.com/looproute/looproute/internal/geo"
	"github.com/looproute/looproute/internal/graph"
	"github.com/looproute/looproute/internal/provider/resilience"
)

// One east-west street of two edges.
func pipelineGraph() *graph.Graph {
	nodes := []*graph.Node{
		{ID: 1, Coord: geo.Coordinate{Lat: 52.0, Lon: 4.0}},
		{ID: 2, Coord: geo.Coordinate{Lat: 52.0, Lon: 4.005}},
		{ID: 3, Coord: geo.Coordinate{Lat: 52.0, Lon: 4.01}},
	}
	edges := []*graph.Edge{
		{
			ID: 10, From: 1, To: 2, Class: graph.ClassResidential,
			Geometry: []geo.Coordinate{{Lat: 52.0, Lon: 4.0}, {Lat: 52.0, Lon: 4.005}},
		},
		{
			ID: 11, From: 2, To: 3, Class: graph.ClassResidential,
			Geometry: []geo.Coordinate{{Lat: 52.0, Lon: 4.005}, {Lat: 52.0, Lon: 4.01}},
		},
	}
	return graph.New(nodes, edges)
}

func surfaceObservation(lon float64, s graph.SurfaceType, conf float64) graph.Observation {
	return graph.Observation{
		Attribute:  graph.AttrSurface,
		Source:     graph.SourceCommunity,
		Value:      graph.SurfaceValue(s),
		Confidence: conf,
		Geometry:   []geo.Coordinate{{Lat: 52.0, Lon: lon}},
	}
}

func TestPipelineEnrichesEdges(t *testing.T) {
	g := pipelineGraph()
	provider := &enrich.StaticProvider{
		DataSource: graph.SourceCommunity,
		Provides:   []graph.AttributeKind{graph.AttrSurface},
		Observations: []graph.Observation{
			surfaceObservation(4.002, graph.SurfaceGravel, 0.9),
			surfaceObservation(4.003, graph.SurfaceGravel, 0.8),
		},
	}
	pipeline := enrich.NewPipeline(enrich.PipelineConfig{
		Providers: []enrich.Provider{provider},
		Logger:    zerolog.Nop(),
	})

	stats, err := pipeline.Run(context.Background(), g, g.Bounds())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalFetched)
	assert.Equal(t, 2, stats.TotalMatched)
	assert.Equal(t, 1, stats.EnrichedEdges)
	assert.Zero(t, stats.Conflicts)

	enr := g.Edge(10).EnrichmentFor(graph.AttrSurface)
	require.NotNil(t, enr)
	assert.Equal(t, graph.SurfaceGravel, enr.Value.Surface)
	assert.InDelta(t, 0.98, enr.Confidence, 1e-9)
	assert.Nil(t, g.Edge(11).EnrichmentFor(graph.AttrSurface))
}

func TestPipelineCountsConflicts(t *testing.T) {
	g := pipelineGraph()
	provider := &enrich.StaticProvider{
		DataSource: graph.SourceCommunity,
		Provides:   []graph.AttributeKind{graph.AttrSurface},
		Observations: []graph.Observation{
			surfaceObservation(4.002, graph.SurfaceAsphalt, 0.6),
			surfaceObservation(4.003, graph.SurfaceGravel, 0.9),
		},
	}
	pipeline := enrich.NewPipeline(enrich.PipelineConfig{
		Providers: []enrich.Provider{provider},
		Logger:    zerolog.Nop(),
	})

	stats, err := pipeline.Run(context.Background(), g, g.Bounds())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Conflicts)
	enr := g.Edge(10).EnrichmentFor(graph.AttrSurface)
	require.NotNil(t, enr)
	assert.True(t, enr.Conflict)
	assert.Equal(t, graph.SurfaceGravel, enr.Value.Surface)
}

func TestPipelineAbsorbsProviderFailure(t *testing.T) {
	g := pipelineGraph()
	healthy := &enrich.StaticProvider{
		DataSource: graph.SourceCommunity,
		Provides:   []graph.AttributeKind{graph.AttrSurface},
		Observations: []graph.Observation{
			surfaceObservation(4.002, graph.SurfaceGravel, 0.9),
		},
	}
	broken := &enrich.StaticProvider{
		DataSource: graph.SourceMunicipal,
		Provides:   []graph.AttributeKind{graph.AttrSpeedLimit},
		FetchErr:   errors.New("upstream down"),
	}
	pipeline := enrich.NewPipeline(enrich.PipelineConfig{
		Providers: []enrich.Provider{healthy, broken},
		Logger:    zerolog.Nop(),
	})

	stats, err := pipeline.Run(context.Background(), g, g.Bounds())
	require.NoError(t, err)

	// Partial coverage: the healthy provider's work still lands.
	assert.Equal(t, 1, stats.EnrichedEdges)
	require.Len(t, stats.Providers, 2)
	for _, ps := range stats.Providers {
		if ps.Source == graph.SourceMunicipal {
			assert.True(t, ps.Failed)
			assert.Contains(t, ps.Error, "upstream down")
		} else {
			assert.False(t, ps.Failed)
		}
	}
}

// resilientStatic is a static provider carrying a resilient client, the
// way the HTTP provider does.
type resilientStatic struct {
	enrich.StaticProvider
	client *resilience.Client
}

func (p *resilientStatic) Client() *resilience.Client { return p.client }

func TestPipelineRecordsSourceHealth(t *testing.T) {
	g := pipelineGraph()
	registry := resilience.NewRegistry()
	healthy := &resilientStatic{
		StaticProvider: enrich.StaticProvider{
			DataSource: graph.SourceCommunity,
			Provides:   []graph.AttributeKind{graph.AttrSurface},
			Observations: []graph.Observation{
				surfaceObservation(4.002, graph.SurfaceGravel, 0.9),
			},
		},
		client: resilience.NewClient(resilience.ClientConfig{Name: "community", Logger: zerolog.Nop()}),
	}
	broken := &resilientStatic{
		StaticProvider: enrich.StaticProvider{
			DataSource: graph.SourceMunicipal,
			Provides:   []graph.AttributeKind{graph.AttrSpeedLimit},
			FetchErr:   errors.New("upstream down"),
		},
		client: resilience.NewClient(resilience.ClientConfig{Name: "municipal", Logger: zerolog.Nop()}),
	}
	pipeline := enrich.NewPipeline(enrich.PipelineConfig{
		Providers: []enrich.Provider{healthy, broken},
		Logger:    zerolog.Nop(),
		Health:    registry,
	})

	stats, err := pipeline.Run(context.Background(), g, g.Bounds())
	require.NoError(t, err)

	require.Len(t, stats.SourceHealth, 2)
	bySource := map[string]*resilience.SourceHealth{}
	for _, h := range stats.SourceHealth {
		bySource[h.Name] = h
	}

	h := bySource[string(graph.SourceCommunity)]
	require.NotNil(t, h)
	assert.True(t, h.Healthy())
	assert.NotNil(t, h.LastSuccessAt)
	assert.Nil(t, h.LastFailureAt)

	h = bySource[string(graph.SourceMunicipal)]
	require.NotNil(t, h)
	assert.NotNil(t, h.LastFailureAt)
	assert.Nil(t, h.LastSuccessAt)
	assert.Contains(t, h.LastError, "upstream down")
}

func TestPipelineDiscardsUndeclaredAttributes(t *testing.T) {
	g := pipelineGraph()
	provider := &enrich.StaticProvider{
		DataSource: graph.SourceCommunity,
		Provides:   []graph.AttributeKind{graph.AttrSurface},
		Observations: []graph.Observation{
			surfaceObservation(4.002, graph.SurfaceGravel, 0.9),
			{
				Attribute:  graph.AttrSpeedLimit, // not declared
				Source:     graph.SourceCommunity,
				Value:      graph.NumberValue(30),
				Confidence: 0.9,
				Geometry:   []geo.Coordinate{{Lat: 52.0, Lon: 4.002}},
			},
		},
	}
	pipeline := enrich.NewPipeline(enrich.PipelineConfig{
		Providers: []enrich.Provider{provider},
		Logger:    zerolog.Nop(),
	})

	stats, err := pipeline.Run(context.Background(), g, g.Bounds())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TotalFetched)
	require.Len(t, stats.Providers, 1)
	assert.Equal(t, 1, stats.Providers[0].Discarded)
	assert.Nil(t, g.Edge(10).EnrichmentFor(graph.AttrSpeedLimit))
}

func TestPipelineCountsUnmatched(t *testing.T) {
	g := pipelineGraph()
	provider := &enrich.StaticProvider{
		DataSource: graph.SourceCommunity,
		Provides:   []graph.AttributeKind{graph.AttrSurface},
		Observations: []graph.Observation{
			surfaceObservation(4.002, graph.SurfaceGravel, 0.9),
			// No geometry at all: always fetched, never matched.
			{
				Attribute:  graph.AttrSurface,
				Source:     graph.SourceCommunity,
				Value:      graph.SurfaceValue(graph.SurfaceGravel),
				Confidence: 0.9,
			},
		},
	}
	pipeline := enrich.NewPipeline(enrich.PipelineConfig{
		Providers: []enrich.Provider{provider},
		Logger:    zerolog.Nop(),
	})

	stats, err := pipeline.Run(context.Background(), g, g.Bounds())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalFetched)
	assert.Equal(t, 1, stats.TotalMatched)
	assert.Equal(t, 1, stats.TotalUnmatched)
	require.Len(t, stats.Providers, 1)
	assert.InDelta(t, 0.5, stats.Providers[0].MatchRate(), 1e-9)
}

func TestPipelineDeterministicRerun(t *testing.T) {
	observations := []graph.Observation{
		surfaceObservation(4.002, graph.SurfaceAsphalt, 0.6),
		surfaceObservation(4.003, graph.SurfaceGravel, 0.9),
	}
	run := func() *graph.AttributeEnrichment {
		g := pipelineGraph()
		pipeline := enrich.NewPipeline(enrich.PipelineConfig{
			Providers: []enrich.Provider{&enrich.StaticProvider{
				DataSource:   graph.SourceCommunity,
				Provides:     []graph.AttributeKind{graph.AttrSurface},
				Observations: observations,
			}},
			Logger: zerolog.Nop(),
		})
		_, err := pipeline.Run(context.Background(), g, g.Bounds())
		require.NoError(t, err)
		return g.Edge(10).EnrichmentFor(graph.AttrSurface)
	}

	first := run()
	require.NotNil(t, first)
	for i := 0; i < 5; i++ {
		again := run()
		require.NotNil(t, again)
		assert.Equal(t, first.Value, again.Value)
		assert.Equal(t, first.Confidence, again.Confidence)
		assert.Equal(t, first.Conflict, again.Conflict)
	}
}
