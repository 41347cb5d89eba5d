package scoring_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looproute/looproute/internal/corridor"
	"github.com/looproute/looproute/internal/geo"
	"github.com/looproute/looproute/internal/graph"
	"github.com/looproute/looproute/internal/scoring"
)

func TestDefaultParamsValidate(t *testing.T) {
	for _, activity := range []corridor.ActivityType{
		corridor.ActivityCycling,
		corridor.ActivityRunning,
		corridor.ActivityWalking,
	} {
		t.Run(string(activity), func(t *testing.T) {
			p := scoring.DefaultParams(activity)
			assert.NoError(t, p.Validate())
		})
	}
}

func TestValidateRejects(t *testing.T) {
	t.Run("unrecognized dimension", func(t *testing.T) {
		p := scoring.DefaultParams(corridor.ActivityCycling)
		p.DimensionWeights["sparkle"] = 0
		assert.ErrorIs(t, p.Validate(), scoring.ErrInvalidParams)
	})

	t.Run("bad weight sum", func(t *testing.T) {
		p := scoring.DefaultParams(corridor.ActivityCycling)
		p.DimensionWeights[scoring.DimFlow] += 0.2
		assert.ErrorIs(t, p.Validate(), scoring.ErrInvalidParams)
	})

	t.Run("penalty out of range", func(t *testing.T) {
		p := scoring.DefaultParams(corridor.ActivityCycling)
		p.SurfacePenalties[graph.SurfaceGravel] = 1.5
		assert.ErrorIs(t, p.Validate(), scoring.ErrInvalidParams)
	})
}

func scoringCorridor(surface graph.SurfaceType, edges []graph.EdgeID, length float64) *corridor.Corridor {
	return &corridor.Corridor{
		ID:                 1,
		Type:               corridor.TypeNeighborhood,
		EdgeIDs:            edges,
		LengthMeters:       length,
		PredominantSurface: surface,
		InfraContinuity:    0.5,
	}
}

func scoringGraph() *graph.Graph {
	edges := []*graph.Edge{
		{ID: 1, From: 1, To: 2, LengthMeters: 500, Class: graph.ClassResidential},
		{ID: 2, From: 2, To: 3, LengthMeters: 500, Class: graph.ClassResidential},
	}
	// Lengths are preset, no geometry needed.
	return graph.New(nil, edges)
}

func TestScoreCorridorDeterminism(t *testing.T) {
	engine, err := scoring.NewEngine(scoring.DefaultParams(corridor.ActivityCycling), zerolog.Nop())
	require.NoError(t, err)

	g := scoringGraph()
	c := scoringCorridor(graph.SurfaceAsphalt, []graph.EdgeID{1, 2}, 1000)

	first := engine.ScoreCorridor(c, g)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, engine.ScoreCorridor(c, g))
	}
	assert.GreaterOrEqual(t, first.Overall, 0.0)
	assert.LessOrEqual(t, first.Overall, 1.0)
}

func TestSurfacePenaltyOrdering(t *testing.T) {
	engine, err := scoring.NewEngine(scoring.DefaultParams(corridor.ActivityCycling), zerolog.Nop())
	require.NoError(t, err)

	g := scoringGraph()
	asphalt := engine.ScoreCorridor(scoringCorridor(graph.SurfaceAsphalt, []graph.EdgeID{1, 2}, 1000), g)
	gravel := engine.ScoreCorridor(scoringCorridor(graph.SurfaceGravel, []graph.EdgeID{1, 2}, 1000), g)
	grass := engine.ScoreCorridor(scoringCorridor(graph.SurfaceGrass, []graph.EdgeID{1, 2}, 1000), g)

	assert.Greater(t, asphalt.Surface, gravel.Surface)
	assert.Greater(t, gravel.Surface, grass.Surface)
	assert.Greater(t, asphalt.Overall, grass.Overall)
}

func TestStopsReduceFlow(t *testing.T) {
	engine, err := scoring.NewEngine(scoring.DefaultParams(corridor.ActivityCycling), zerolog.Nop())
	require.NoError(t, err)

	quiet := scoringGraph()
	busy := scoringGraph()
	busy.Edge(1).SetEnrichment(graph.AttrTrafficSignal, &graph.AttributeEnrichment{
		Value:      graph.PointValue(geo.Coordinate{Lat: 52, Lon: 4}),
		Confidence: 0.9,
	})

	c := scoringCorridor(graph.SurfaceAsphalt, []graph.EdgeID{1, 2}, 1000)
	assert.Greater(t, engine.ScoreCorridor(c, quiet).Flow, engine.ScoreCorridor(c, busy).Flow)
}

func TestSpeedLimitReducesSafety(t *testing.T) {
	engine, err := scoring.NewEngine(scoring.DefaultParams(corridor.ActivityCycling), zerolog.Nop())
	require.NoError(t, err)

	calm := scoringGraph()
	fast := scoringGraph()
	limit := 80.0
	fast.Edge(1).SpeedLimitKPH = &limit
	fast.Edge(2).SpeedLimitKPH = &limit

	c := scoringCorridor(graph.SurfaceAsphalt, []graph.EdgeID{1, 2}, 1000)
	assert.Greater(t, engine.ScoreCorridor(c, calm).Safety, engine.ScoreCorridor(c, fast).Safety)
}

func TestScoreNetworkAnnotatesPerActivity(t *testing.T) {
	g := scoringGraph()
	net := corridor.NewNetwork(g,
		[]*corridor.Corridor{scoringCorridor(graph.SurfaceAsphalt, []graph.EdgeID{1, 2}, 1000)}, nil)

	for _, activity := range []corridor.ActivityType{corridor.ActivityCycling, corridor.ActivityRunning} {
		engine, err := scoring.NewEngine(scoring.DefaultParams(activity), zerolog.Nop())
		require.NoError(t, err)
		engine.ScoreNetwork(net)
	}

	c := net.Corridors[0]
	require.Contains(t, c.Scores, corridor.ActivityCycling)
	require.Contains(t, c.Scores, corridor.ActivityRunning)
}
