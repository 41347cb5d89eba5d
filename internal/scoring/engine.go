package scoring

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/looproute/looproute/internal/corridor"
	"github.com/looproute/looproute/internal/graph"
)

// Engine scores corridors against a parameter record. Scoring is pure:
// the same corridor state and params always produce the same score.
type Engine struct {
	params Params
	logger zerolog.Logger
}

// NewEngine validates the parameter record and returns a scoring engine.
func NewEngine(params Params, logger zerolog.Logger) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Engine{params: params, logger: logger}, nil
}

// ScoreNetwork scores every corridor in the network and writes the
// result under the engine's activity key.
func (e *Engine) ScoreNetwork(net *corridor.Network) {
	for _, c := range net.Corridors {
		score := e.ScoreCorridor(c, net.Graph())
		if c.Scores == nil {
			c.Scores = make(map[corridor.ActivityType]corridor.Score)
		}
		c.Scores[e.params.Activity] = score
	}
	e.logger.Debug().
		Str("activity", string(e.params.Activity)).
		Int("corridors", len(net.Corridors)).
		Msg("network scored")
}

// neutralElevation stands in for the elevation dimension until the graph
// model carries elevation samples; every corridor gets the midpoint so the
// dimension neither rewards nor penalizes.
const neutralElevation = 0.5

// ScoreCorridor computes the dimension scores and weighted composite for
// one corridor.
func (e *Engine) ScoreCorridor(c *corridor.Corridor, g *graph.Graph) corridor.Score {
	s := corridor.Score{
		Flow:      e.flowScore(c, g),
		Safety:    e.safetyScore(c, g),
		Surface:   e.surfaceScore(c),
		Character: characterAffinity(e.params.Activity, c.Type),
		Scenic:    scenicScore(c),
		Elevation: neutralElevation,
	}
	w := e.params.DimensionWeights
	s.Overall = clamp01(w[DimFlow]*s.Flow +
		w[DimSafety]*s.Safety +
		w[DimSurface]*s.Surface +
		w[DimCharacter]*s.Character +
		w[DimScenic]*s.Scenic +
		w[DimElevation]*s.Elevation)
	return s
}

// flowScore rewards long uninterrupted stretches. Length saturates at
// two kilometers; traffic-control density discounts the result.
func (e *Engine) flowScore(c *corridor.Corridor, g *graph.Graph) float64 {
	lengthFactor := math.Min(1, c.LengthMeters/2000)
	stops := 0
	for _, id := range c.EdgeIDs {
		edge := g.Edge(id)
		for _, kind := range []graph.AttributeKind{graph.AttrStopSign, graph.AttrTrafficSignal} {
			if edge.EnrichmentFor(kind) != nil {
				stops++
			}
		}
	}
	stopsPerKm := float64(stops) / math.Max(c.LengthMeters/1000, 0.001)
	return clamp01(lengthFactor / (1 + 0.5*stopsPerKm))
}

// safetyScore blends the corridor type's base exposure, infrastructure
// continuity, and the length-weighted speed-limit excess over the
// comfort threshold.
func (e *Engine) safetyScore(c *corridor.Corridor, g *graph.Graph) float64 {
	base := typeSafetyBase(c.Type)
	score := base + (1-base)*c.InfraContinuity*0.8

	var excessSum, limitLength float64
	for _, id := range c.EdgeIDs {
		edge := g.Edge(id)
		limit := effectiveSpeedLimit(edge)
		if limit == nil {
			continue
		}
		limitLength += edge.LengthMeters
		if *limit > e.params.SpeedComfortKPH {
			excessSum += (*limit - e.params.SpeedComfortKPH) * edge.LengthMeters
		}
	}
	if limitLength > 0 {
		// 40 km/h over the comfort threshold zeroes the speed factor.
		excess := excessSum / limitLength
		score *= clamp01(1 - excess/40)
	}
	return clamp01(score)
}

func (e *Engine) surfaceScore(c *corridor.Corridor) float64 {
	if c.PredominantSurface == graph.SurfaceUnknown {
		return 0.5
	}
	return clamp01(1 - e.params.SurfacePenalties[c.PredominantSurface])
}

func scenicScore(c *corridor.Corridor) float64 {
	if c.ScenicRating == nil {
		return 0.5
	}
	// Ratings arrive on a 0-5 scale.
	return clamp01(*c.ScenicRating / 5)
}

// effectiveSpeedLimit prefers the fused enrichment over the static
// attribute.
func effectiveSpeedLimit(e *graph.Edge) *float64 {
	if enr := e.EnrichmentFor(graph.AttrSpeedLimit); enr != nil {
		v := enr.Value.Number
		return &v
	}
	return e.SpeedLimitKPH
}

func typeSafetyBase(t corridor.CorridorType) float64 {
	switch t {
	case corridor.TypeCycleway:
		return 0.95
	case corridor.TypeTrail:
		return 0.90
	case corridor.TypeTrack:
		return 0.80
	case corridor.TypeNeighborhood:
		return 0.70
	default:
		return 0.40
	}
}

// characterAffinity is how well a corridor type suits the activity.
func characterAffinity(activity corridor.ActivityType, t corridor.CorridorType) float64 {
	switch activity {
	case corridor.ActivityRunning:
		switch t {
		case corridor.TypeTrail:
			return 1.0
		case corridor.TypeTrack:
			return 0.9
		case corridor.TypeCycleway:
			return 0.7
		case corridor.TypeNeighborhood:
			return 0.6
		default:
			return 0.2
		}
	case corridor.ActivityWalking:
		switch t {
		case corridor.TypeTrail:
			return 1.0
		case corridor.TypeNeighborhood:
			return 0.8
		case corridor.TypeTrack:
			return 0.7
		case corridor.TypeCycleway:
			return 0.5
		default:
			return 0.1
		}
	default:
		switch t {
		case corridor.TypeCycleway:
			return 1.0
		case corridor.TypeNeighborhood:
			return 0.8
		case corridor.TypeTrack:
			return 0.6
		case corridor.TypeTrail:
			return 0.4
		default:
			return 0.3
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
