package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looproute/looproute/internal/geo"
	"github.com/looproute/looproute/internal/graph"
)

func buildTestGraph() *graph.Graph {
	nodes := []*graph.Node{
		{ID: 1, Coord: geo.Coordinate{Lat: 52.0, Lon: 4.0}},
		{ID: 2, Coord: geo.Coordinate{Lat: 52.001, Lon: 4.0}},
		{ID: 3, Coord: geo.Coordinate{Lat: 52.002, Lon: 4.0}},
	}
	edges := []*graph.Edge{
		{
			ID: 10, From: 1, To: 2, Class: graph.ClassResidential,
			Geometry: []geo.Coordinate{{Lat: 52.0, Lon: 4.0}, {Lat: 52.001, Lon: 4.0}},
		},
		{
			ID: 11, From: 2, To: 3, Class: graph.ClassResidential,
			Geometry: []geo.Coordinate{{Lat: 52.001, Lon: 4.0}, {Lat: 52.002, Lon: 4.0}},
		},
	}
	return graph.New(nodes, edges)
}

func TestNewComputesLengths(t *testing.T) {
	g := buildTestGraph()

	e := g.Edge(10)
	require.NotNil(t, e)
	// About 111 meters per 0.001 degree of latitude.
	assert.InDelta(t, 111, e.LengthMeters, 2)
}

func TestAdjacency(t *testing.T) {
	g := buildTestGraph()

	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 2, g.EdgeCount())
	assert.Equal(t, 1, g.Degree(1))
	assert.Equal(t, 2, g.Degree(2))
	assert.Equal(t, []graph.EdgeID{10, 11}, g.EdgesAt(2))
	assert.Equal(t, []graph.EdgeID{10, 11}, g.EdgeIDs())

	e := g.Edge(10)
	assert.Equal(t, graph.NodeID(2), g.OtherEnd(e, 1))
	assert.Equal(t, graph.NodeID(1), g.OtherEnd(e, 2))
}

func TestEnrichmentRoundTrip(t *testing.T) {
	g := buildTestGraph()
	e := g.Edge(10)

	assert.Nil(t, e.EnrichmentFor(graph.AttrSurface))

	e.SetEnrichment(graph.AttrSurface, &graph.AttributeEnrichment{
		Value:      graph.SurfaceValue(graph.SurfaceGravel),
		Confidence: 0.9,
	})
	enr := e.EnrichmentFor(graph.AttrSurface)
	require.NotNil(t, enr)
	assert.Equal(t, graph.SurfaceGravel, enr.Value.Surface)

	// A second pass replaces, never merges.
	e.SetEnrichment(graph.AttrSurface, &graph.AttributeEnrichment{
		Value:      graph.SurfaceValue(graph.SurfaceAsphalt),
		Confidence: 0.7,
	})
	assert.Equal(t, graph.SurfaceAsphalt, e.EnrichmentFor(graph.AttrSurface).Value.Surface)
}

func TestAttributeFamilies(t *testing.T) {
	assert.Equal(t, graph.FamilyCategorical, graph.AttrSurface.Family())
	assert.Equal(t, graph.FamilyNumeric, graph.AttrSpeedLimit.Family())
	assert.Equal(t, graph.FamilyNumeric, graph.AttrScenic.Family())
	assert.Equal(t, graph.FamilyBoolean, graph.AttrBicycleInfra.Family())
	assert.Equal(t, graph.FamilyBoolean, graph.AttrTrafficCalming.Family())
	assert.Equal(t, graph.FamilyPointDetection, graph.AttrStopSign.Family())
	assert.Equal(t, graph.FamilyPointDetection, graph.AttrTrafficSignal.Family())
	assert.Equal(t, graph.FamilyPointDetection, graph.AttrCrossing.Family())
}

func TestParseRoadClass(t *testing.T) {
	assert.Equal(t, graph.ClassMotorway, graph.ParseRoadClass("motorway"))
	assert.Equal(t, graph.ClassCycleway, graph.ParseRoadClass("cycleway"))
	assert.Equal(t, graph.ClassUnclassified, graph.ParseRoadClass("living_street"))
}

func TestParseSurface(t *testing.T) {
	assert.Equal(t, graph.SurfaceAsphalt, graph.ParseSurface("asphalt"))
	assert.Equal(t, graph.SurfaceGravel, graph.ParseSurface("gravel"))
	assert.Equal(t, graph.SurfaceUnknown, graph.ParseSurface("cobblestone:flattened"))
}

func TestClassGroups(t *testing.T) {
	assert.Equal(t, graph.GroupLadder, graph.ClassMotorway.Group())
	assert.Equal(t, graph.GroupLadder, graph.ClassTertiary.Group())
	assert.Equal(t, graph.GroupLocal, graph.ClassResidential.Group())
	assert.Equal(t, graph.GroupCycleway, graph.ClassCycleway.Group())
	assert.Equal(t, graph.GroupPathFoot, graph.ClassFootway.Group())
	assert.Equal(t, graph.GroupTrack, graph.ClassTrack.Group())
}

func TestSurfacePaved(t *testing.T) {
	assert.True(t, graph.SurfaceAsphalt.Paved())
	assert.True(t, graph.SurfacePavingStones.Paved())
	assert.False(t, graph.SurfaceGravel.Paved())
	assert.False(t, graph.SurfaceUnknown.Paved())
}
