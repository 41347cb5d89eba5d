package fusion

import (
	"math"

	"github.com/looproute/looproute/internal/geo"
	"github.com/looproute/looproute/internal/graph"
)

// categoricalStrategy fuses categorical values (surface type). Values
// agree only when identical.
type categoricalStrategy struct {
	penalty float64
}

func (s *categoricalStrategy) Fuse(obs []graph.Observation) *graph.AttributeEnrichment {
	if len(obs) == 1 {
		return single(obs)
	}
	agree := true
	for _, o := range obs[1:] {
		if o.Value.Surface != obs[0].Value.Surface {
			agree = false
			break
		}
	}
	if agree {
		return agreed(obs, obs[0].Value)
	}
	return conflicted(obs, winner(obs).Value, s.penalty)
}

// numericStrategy fuses numeric values (speed limit, scenic rating).
// Values agree when the spread stays within the absolute tolerance; the
// fused value is then the confidence-weighted mean.
type numericStrategy struct {
	tolerance float64
	penalty   float64
}

func (s *numericStrategy) Fuse(obs []graph.Observation) *graph.AttributeEnrichment {
	if len(obs) == 1 {
		return single(obs)
	}
	lo, hi := obs[0].Value.Number, obs[0].Value.Number
	for _, o := range obs[1:] {
		lo = math.Min(lo, o.Value.Number)
		hi = math.Max(hi, o.Value.Number)
	}
	if hi-lo <= s.tolerance {
		return agreed(obs, graph.NumberValue(weightedMean(obs)))
	}
	return conflicted(obs, winner(obs).Value, s.penalty)
}

// booleanStrategy fuses boolean values (bicycle infra, traffic calming).
type booleanStrategy struct {
	penalty float64
}

func (s *booleanStrategy) Fuse(obs []graph.Observation) *graph.AttributeEnrichment {
	if len(obs) == 1 {
		return single(obs)
	}
	agree := true
	for _, o := range obs[1:] {
		if o.Value.Bool != obs[0].Value.Bool {
			agree = false
			break
		}
	}
	if agree {
		return agreed(obs, obs[0].Value)
	}
	return conflicted(obs, winner(obs).Value, s.penalty)
}

// pointStrategy fuses point detections (stop signs, signals, crossings).
// Detections agree when every pair falls within the distance tolerance,
// regardless of exact coordinate equality. The fused location is the
// highest-confidence detection's.
type pointStrategy struct {
	toleranceMeters float64
	penalty         float64
}

func (s *pointStrategy) Fuse(obs []graph.Observation) *graph.AttributeEnrichment {
	if len(obs) == 1 {
		return single(obs)
	}
	agree := true
	for i := 0; i < len(obs) && agree; i++ {
		for j := i + 1; j < len(obs); j++ {
			if geo.Distance(obs[i].Value.Point, obs[j].Value.Point) > s.toleranceMeters {
				agree = false
				break
			}
		}
	}
	if agree {
		return agreed(obs, winner(obs).Value)
	}
	return conflicted(obs, winner(obs).Value, s.penalty)
}

func single(obs []graph.Observation) *graph.AttributeEnrichment {
	return &graph.AttributeEnrichment{
		Value:        obs[0].Value,
		Confidence:   clamp01(obs[0].Confidence),
		Conflict:     false,
		Observations: obs,
	}
}

func agreed(obs []graph.Observation, value graph.AttributeValue) *graph.AttributeEnrichment {
	return &graph.AttributeEnrichment{
		Value:        value,
		Confidence:   combineAgreeing(obs),
		Conflict:     false,
		Observations: obs,
	}
}

func conflicted(obs []graph.Observation, value graph.AttributeValue, penalty float64) *graph.AttributeEnrichment {
	return &graph.AttributeEnrichment{
		Value:        value,
		Confidence:   penalizedConfidence(obs, penalty),
		Conflict:     true,
		Observations: obs,
	}
}

func weightedMean(obs []graph.Observation) float64 {
	var sum, weight float64
	for _, o := range obs {
		c := clamp01(o.Confidence)
		sum += o.Value.Number * c
		weight += c
	}
	if weight == 0 {
		return obs[0].Value.Number
	}
	return sum / weight
}
