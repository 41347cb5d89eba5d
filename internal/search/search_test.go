package search_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looproute/looproute/internal/corridor"
	"github.com/looproute/looproute/internal/geo"
	"github.com/looproute/looproute/internal/graph"
	"github.com/looproute/looproute/internal/search"
)

// ringNetwork is a square loop of four corridors, 2.5 km per side.
func ringNetwork() *corridor.Network {
	corners := []geo.Coordinate{
		{Lat: 52.0, Lon: 4.0},
		{Lat: 52.0225, Lon: 4.0},
		{Lat: 52.0225, Lon: 4.0365},
		{Lat: 52.0, Lon: 4.0365},
	}
	nodes := make([]*graph.Node, 4)
	for i, c := range corners {
		nodes[i] = &graph.Node{ID: graph.NodeID(i + 1), Coord: c}
	}
	edges := make([]*graph.Edge, 4)
	corridors := make([]*corridor.Corridor, 4)
	for i := 0; i < 4; i++ {
		from, to := graph.NodeID(i+1), graph.NodeID((i+1)%4+1)
		edges[i] = &graph.Edge{
			ID: graph.EdgeID(i + 1), From: from, To: to,
			Geometry:     []geo.Coordinate{corners[i], corners[(i+1)%4]},
			LengthMeters: 2500,
			Class:        graph.ClassResidential,
		}
		corridors[i] = &corridor.Corridor{
			ID:           int64(i + 1),
			Type:         corridor.TypeNeighborhood,
			EdgeIDs:      []graph.EdgeID{edges[i].ID},
			StartNode:    from,
			EndNode:      to,
			LengthMeters: 2500,
			Scores: map[corridor.ActivityType]corridor.Score{
				corridor.ActivityCycling: {Flow: 0.8, Overall: 0.8},
			},
		}
	}
	g := graph.New(nodes, edges)
	return corridor.NewNetwork(g, corridors, nil)
}

func TestSearchFindsLoop(t *testing.T) {
	net := ringNetwork()
	searcher := search.NewSearcher(net, search.Config{}, zerolog.Nop(), nil)

	result, err := searcher.Search(context.Background(), search.Request{
		Start:             geo.Coordinate{Lat: 52.0, Lon: 4.0},
		MinDistanceMeters: 8000,
		MaxDistanceMeters: 12000,
		Activity:          corridor.ActivityCycling,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Routes)

	route := result.Routes[0]
	assert.NotEmpty(t, route.ID)
	assert.Len(t, route.Segments, 4)
	assert.NotEmpty(t, route.Polyline)

	// Distance bound.
	assert.GreaterOrEqual(t, route.Stats.DistanceMeters, 8000.0)
	assert.LessOrEqual(t, route.Stats.DistanceMeters, 12000.0)

	// Closure: the loop ends where it started.
	require.NotEmpty(t, route.Geometry)
	first, last := route.Geometry[0], route.Geometry[len(route.Geometry)-1]
	assert.LessOrEqual(t, geo.Distance(first, last), 100.0)

	assert.Equal(t, 10000.0, route.Stats.DistanceByType[corridor.TypeNeighborhood])
	assert.InDelta(t, 0.8, route.Stats.FlowScore, 1e-9)
	assert.InDelta(t, 0.8, route.Score, 1e-9)
}

func TestSearchDeduplicatesReversedLoop(t *testing.T) {
	net := ringNetwork()
	searcher := search.NewSearcher(net, search.Config{}, zerolog.Nop(), nil)

	result, err := searcher.Search(context.Background(), search.Request{
		Start:             geo.Coordinate{Lat: 52.0, Lon: 4.0},
		MinDistanceMeters: 8000,
		MaxDistanceMeters: 12000,
		MaxAlternatives:   5,
		Activity:          corridor.ActivityCycling,
	})
	require.NoError(t, err)

	// Clockwise and counterclockwise are the same loop.
	assert.Len(t, result.Routes, 1)
}

func TestSearchNoQualifyingRoute(t *testing.T) {
	net := ringNetwork()
	searcher := search.NewSearcher(net, search.Config{}, zerolog.Nop(), nil)

	// The only loop is 10 km; the window asks for far less.
	_, err := searcher.Search(context.Background(), search.Request{
		Start:             geo.Coordinate{Lat: 52.0, Lon: 4.0},
		MinDistanceMeters: 1000,
		MaxDistanceMeters: 3000,
		Activity:          corridor.ActivityCycling,
	})
	assert.ErrorIs(t, err, search.ErrNoQualifyingRoute)
}

func TestSearchInvalidRequest(t *testing.T) {
	searcher := search.NewSearcher(ringNetwork(), search.Config{}, zerolog.Nop(), nil)

	cases := []search.Request{
		{Start: geo.Coordinate{Lat: 52, Lon: 4}, MinDistanceMeters: 0, MaxDistanceMeters: 5000},
		{Start: geo.Coordinate{Lat: 52, Lon: 4}, MinDistanceMeters: 9000, MaxDistanceMeters: 5000},
		{Start: geo.Coordinate{Lat: 99, Lon: 4}, MinDistanceMeters: 1000, MaxDistanceMeters: 5000},
	}
	for _, req := range cases {
		_, err := searcher.Search(context.Background(), req)
		assert.ErrorIs(t, err, search.ErrInvalidRequest)
	}
}

func TestSearchSegmentStructure(t *testing.T) {
	net := ringNetwork()
	searcher := search.NewSearcher(net, search.Config{}, zerolog.Nop(), nil)

	result, err := searcher.Search(context.Background(), search.Request{
		Start:             geo.Coordinate{Lat: 52.0, Lon: 4.0},
		MinDistanceMeters: 8000,
		MaxDistanceMeters: 12000,
		Activity:          corridor.ActivityCycling,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Routes)

	// The ring visits each corridor exactly once, one edge per segment.
	seen := map[int64]bool{}
	for _, seg := range result.Routes[0].Segments {
		assert.Equal(t, search.SegmentCorridor, seg.Kind)
		assert.Len(t, seg.EdgeIDs, 1)
		assert.False(t, seen[seg.ElementID])
		seen[seg.ElementID] = true
	}
	assert.Len(t, seen, 4)
}

func TestSearchHonorsContext(t *testing.T) {
	net := ringNetwork()
	searcher := search.NewSearcher(net, search.Config{}, zerolog.Nop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := searcher.Search(ctx, search.Request{
		Start:             geo.Coordinate{Lat: 52.0, Lon: 4.0},
		MinDistanceMeters: 8000,
		MaxDistanceMeters: 12000,
		Activity:          corridor.ActivityCycling,
	})
	assert.ErrorIs(t, err, context.Canceled)
}
