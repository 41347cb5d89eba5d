package corridor

import (
	"errors"
	"fmt"
	"math"

	"github.com/looproute/looproute/internal/graph"
)

// ErrInvalidConfig rejects a compatibility configuration before any
// clustering runs.
var ErrInvalidConfig = errors.New("invalid compatibility configuration")

// Weights are the edge-compatibility term weights. They must sum to 1.
type Weights struct {
	RoadClass      float64
	Surface        float64
	Infrastructure float64
	Name           float64
}

// DefaultWeights returns the standard compatibility weights.
func DefaultWeights() Weights {
	return Weights{
		RoadClass:      0.45,
		Surface:        0.25,
		Infrastructure: 0.20,
		Name:           0.10,
	}
}

// CompatibilityConfig controls edge compatibility scoring and clustering.
type CompatibilityConfig struct {
	// Weights for the compatibility terms. Default: DefaultWeights.
	Weights Weights

	// SpeedLimitCutoffKPH is the absolute speed-limit difference above
	// which two edges are incompatible outright, when both report a
	// limit. Default: 30.
	SpeedLimitCutoffKPH float64

	// Threshold is the minimum compatibility for a corridor to keep
	// growing. Default: 0.55.
	Threshold float64

	// MinCorridorLengthMeters is the minimum chain length to qualify as
	// a corridor; shorter chains become connectors. Default: 200.
	MinCorridorLengthMeters float64

	// AllowNameChanges scores a name change 0.5 instead of 0 in the
	// name-continuity term.
	AllowNameChanges bool

	// NameChangeBreaksCorridor forces a chain break at a renamed
	// junction even when the compatibility score stays above threshold.
	NameChangeBreaksCorridor bool
}

// DefaultCompatibilityConfig returns the standard clustering configuration.
func DefaultCompatibilityConfig() CompatibilityConfig {
	return CompatibilityConfig{
		Weights:                 DefaultWeights(),
		SpeedLimitCutoffKPH:     30,
		Threshold:               0.55,
		MinCorridorLengthMeters: 200,
	}
}

// Validate rejects invalid weights and thresholds eagerly.
func (c CompatibilityConfig) Validate() error {
	w := c.Weights
	for name, v := range map[string]float64{
		"road_class":     w.RoadClass,
		"surface":        w.Surface,
		"infrastructure": w.Infrastructure,
		"name":           w.Name,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: weight %s out of range: %v", ErrInvalidConfig, name, v)
		}
	}
	sum := w.RoadClass + w.Surface + w.Infrastructure + w.Name
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("%w: weights sum to %v, want 1.0", ErrInvalidConfig, sum)
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("%w: threshold out of range: %v", ErrInvalidConfig, c.Threshold)
	}
	if c.SpeedLimitCutoffKPH < 0 {
		return fmt.Errorf("%w: negative speed limit cutoff: %v", ErrInvalidConfig, c.SpeedLimitCutoffKPH)
	}
	if c.MinCorridorLengthMeters < 0 {
		return fmt.Errorf("%w: negative minimum corridor length: %v", ErrInvalidConfig, c.MinCorridorLengthMeters)
	}
	return nil
}

// Compatibility scores how well two adjacent edges continue one another,
// in [0, 1]. Symmetric in its arguments.
func (c CompatibilityConfig) Compatibility(a, b *graph.Edge) float64 {
	if a.SpeedLimitKPH != nil && b.SpeedLimitKPH != nil &&
		math.Abs(*a.SpeedLimitKPH-*b.SpeedLimitKPH) > c.SpeedLimitCutoffKPH {
		return 0
	}
	if a.Class.Group() != b.Class.Group() {
		return 0
	}

	classScore := 1.0 - 0.3*math.Abs(float64(a.Class.GroupRank()-b.Class.GroupRank()))
	if classScore < 0 {
		classScore = 0
	}

	surfaceScore := surfaceCompatibility(effectiveSurface(a), effectiveSurface(b))

	agree := 0
	if a.Infra.DedicatedPath == b.Infra.DedicatedPath {
		agree++
	}
	if a.Infra.Shoulder == b.Infra.Shoulder {
		agree++
	}
	if a.Infra.PhysicallySeparated == b.Infra.PhysicallySeparated {
		agree++
	}
	infraScore := float64(agree) / 3.0

	nameScore := 0.0
	switch {
	case a.Name == b.Name:
		nameScore = 1
	case c.AllowNameChanges:
		nameScore = 0.5
	}

	return c.Weights.RoadClass*classScore +
		c.Weights.Surface*surfaceScore +
		c.Weights.Infrastructure*infraScore +
		c.Weights.Name*nameScore
}

// effectiveSurface prefers the fused surface enrichment over the static
// attribute delivered with the parsed graph.
func effectiveSurface(e *graph.Edge) graph.SurfaceType {
	if enr := e.EnrichmentFor(graph.AttrSurface); enr != nil {
		return enr.Value.Surface
	}
	return e.Surface.Type
}

// surfaceCompatibility scores two surfaces: identical 1.0, unknown
// against known 0.5, same paved/unpaved group 0.8, and across groups a
// decay with quality distance.
func surfaceCompatibility(a, b graph.SurfaceType) float64 {
	if a == b {
		return 1
	}
	if a == graph.SurfaceUnknown || b == graph.SurfaceUnknown {
		return 0.5
	}
	if a.Paved() == b.Paved() {
		return 0.8
	}
	d := math.Abs(float64(a.QualityRank() - b.QualityRank()))
	score := 0.8 - 0.15*d
	if score < 0 {
		score = 0
	}
	return score
}
