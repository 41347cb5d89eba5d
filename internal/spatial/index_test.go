package spatial_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looproute/looproute/internal/geo"
	"github.com/looproute/looproute/internal/graph"
	"github.com/looproute/looproute/internal/spatial"
)

// Two parallel east-west streets about 111 meters apart.
func buildIndexedGraph() *graph.Graph {
	nodes := []*graph.Node{
		{ID: 1, Coord: geo.Coordinate{Lat: 52.0, Lon: 4.0}},
		{ID: 2, Coord: geo.Coordinate{Lat: 52.0, Lon: 4.01}},
		{ID: 3, Coord: geo.Coordinate{Lat: 52.001, Lon: 4.0}},
		{ID: 4, Coord: geo.Coordinate{Lat: 52.001, Lon: 4.01}},
	}
	edges := []*graph.Edge{
		{
			ID: 10, From: 1, To: 2, Class: graph.ClassResidential,
			Geometry: []geo.Coordinate{{Lat: 52.0, Lon: 4.0}, {Lat: 52.0, Lon: 4.005}, {Lat: 52.0, Lon: 4.01}},
		},
		{
			ID: 11, From: 3, To: 4, Class: graph.ClassResidential,
			Geometry: []geo.Coordinate{{Lat: 52.001, Lon: 4.0}, {Lat: 52.001, Lon: 4.005}, {Lat: 52.001, Lon: 4.01}},
		},
	}
	return graph.New(nodes, edges)
}

func TestMatchPoint(t *testing.T) {
	index := spatial.NewIndex(buildIndexedGraph(), spatial.IndexConfig{ToleranceMeters: 30})

	t.Run("on the southern street", func(t *testing.T) {
		matches := index.MatchPoint(geo.Coordinate{Lat: 52.0, Lon: 4.004})
		require.Len(t, matches, 1)
		assert.Equal(t, graph.EdgeID(10), matches[0].EdgeID)
	})

	t.Run("between the streets matches neither", func(t *testing.T) {
		matches := index.MatchPoint(geo.Coordinate{Lat: 52.0005, Lon: 4.004})
		assert.Empty(t, matches)
	})

	t.Run("far away matches nothing", func(t *testing.T) {
		matches := index.MatchPoint(geo.Coordinate{Lat: 53.0, Lon: 5.0})
		assert.Empty(t, matches)
	})
}

func TestMatchPointMidSegment(t *testing.T) {
	// A single straight segment about a kilometer long. A point on the
	// street near its middle is roughly 500 meters from either vertex and
	// must still match.
	nodes := []*graph.Node{
		{ID: 1, Coord: geo.Coordinate{Lat: 52.0, Lon: 4.0}},
		{ID: 2, Coord: geo.Coordinate{Lat: 52.0, Lon: 4.0146}},
	}
	edges := []*graph.Edge{
		{
			ID: 10, From: 1, To: 2, Class: graph.ClassResidential,
			Geometry: []geo.Coordinate{{Lat: 52.0, Lon: 4.0}, {Lat: 52.0, Lon: 4.0146}},
		},
	}
	index := spatial.NewIndex(graph.New(nodes, edges), spatial.IndexConfig{ToleranceMeters: 30})

	matches := index.MatchPoint(geo.Coordinate{Lat: 52.0, Lon: 4.0073})
	require.Len(t, matches, 1)
	assert.Equal(t, graph.EdgeID(10), matches[0].EdgeID)
	assert.Less(t, matches[0].DistanceMeters, 1.0)
}

func TestMatchPolyline(t *testing.T) {
	index := spatial.NewIndex(buildIndexedGraph(), spatial.IndexConfig{ToleranceMeters: 30})

	t.Run("slightly offset trace matches", func(t *testing.T) {
		trace := []geo.Coordinate{
			{Lat: 52.00005, Lon: 4.001},
			{Lat: 52.00005, Lon: 4.008},
		}
		matches := index.Match(trace)
		require.NotEmpty(t, matches)
		assert.Equal(t, graph.EdgeID(10), matches[0].EdgeID)
	})

	t.Run("empty geometry matches nothing", func(t *testing.T) {
		assert.Nil(t, index.Match(nil))
	})
}

func TestEdgesInBound(t *testing.T) {
	index := spatial.NewIndex(buildIndexedGraph(), spatial.IndexConfig{})

	box := geo.NewBoundingBox([]geo.Coordinate{
		{Lat: 51.999, Lon: 3.999},
		{Lat: 52.002, Lon: 4.011},
	})
	assert.Equal(t, []graph.EdgeID{10, 11}, index.EdgesInBound(box))

	south := geo.NewBoundingBox([]geo.Coordinate{
		{Lat: 51.9995, Lon: 3.999},
		{Lat: 52.0005, Lon: 4.011},
	})
	assert.Equal(t, []graph.EdgeID{10}, index.EdgesInBound(south))
}

func TestEmptyGraphIndex(t *testing.T) {
	index := spatial.NewIndex(graph.New(nil, nil), spatial.IndexConfig{})

	assert.Nil(t, index.MatchPoint(geo.Coordinate{Lat: 52, Lon: 4}))
	assert.Nil(t, index.EdgesInBound(geo.NewBoundingBox([]geo.Coordinate{{Lat: 52, Lon: 4}})))
}

func TestNearestNode(t *testing.T) {
	index := spatial.NewIndex(buildIndexedGraph(), spatial.IndexConfig{})

	id, ok := index.NearestNode(geo.Coordinate{Lat: 52.0, Lon: 4.0001}, []graph.NodeID{1, 2, 3, 4})
	require.True(t, ok)
	assert.Equal(t, graph.NodeID(1), id)

	_, ok = index.NearestNode(geo.Coordinate{Lat: 52, Lon: 4}, nil)
	assert.False(t, ok)
}
