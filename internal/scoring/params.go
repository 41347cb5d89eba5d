// Package scoring maps corridors and activity parameter records to
// multi-dimensional quality scores.
package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/looproute/looproute/internal/corridor"
	"github.com/looproute/looproute/internal/graph"
)

// ErrInvalidParams rejects a parameter record before any scoring runs.
var ErrInvalidParams = errors.New("invalid scoring parameters")

// Recognized dimension-weight keys.
const (
	DimFlow      = "flow"
	DimSafety    = "safety"
	DimSurface   = "surface"
	DimCharacter = "character"
	DimScenic    = "scenic"
	DimElevation = "elevation"
)

var recognizedDimensions = map[string]bool{
	DimFlow:      true,
	DimSafety:    true,
	DimSurface:   true,
	DimCharacter: true,
	DimScenic:    true,
	DimElevation: true,
}

// Params is an activity-specific scoring parameter record. Records are
// supplied externally and treated as opaque once validated.
type Params struct {
	Activity corridor.ActivityType

	// DimensionWeights keyed by the recognized dimension names. Weights
	// must be non-negative and sum to 1.
	DimensionWeights map[string]float64

	// SurfacePenalties in [0, 1] per surface type; unset surfaces carry
	// no penalty.
	SurfacePenalties map[graph.SurfaceType]float64

	// SpeedComfortKPH is the speed limit above which the safety
	// dimension starts degrading.
	SpeedComfortKPH float64
}

// DefaultParams returns the standard parameter record for an activity.
func DefaultParams(activity corridor.ActivityType) Params {
	p := Params{
		Activity:        activity,
		SpeedComfortKPH: 50,
	}
	switch activity {
	case corridor.ActivityRunning:
		p.DimensionWeights = map[string]float64{
			DimFlow: 0.20, DimSafety: 0.20, DimSurface: 0.15,
			DimCharacter: 0.15, DimScenic: 0.20, DimElevation: 0.10,
		}
		p.SurfacePenalties = map[graph.SurfaceType]float64{
			graph.SurfaceGravel: 0.10,
			graph.SurfaceDirt:   0.20,
			graph.SurfaceGrass:  0.30,
		}
		p.SpeedComfortKPH = 40
	case corridor.ActivityWalking:
		p.DimensionWeights = map[string]float64{
			DimFlow: 0.10, DimSafety: 0.25, DimSurface: 0.10,
			DimCharacter: 0.20, DimScenic: 0.30, DimElevation: 0.05,
		}
		p.SurfacePenalties = map[graph.SurfaceType]float64{
			graph.SurfaceGrass: 0.15,
		}
		p.SpeedComfortKPH = 40
	default:
		p.Activity = corridor.ActivityCycling
		p.DimensionWeights = map[string]float64{
			DimFlow: 0.25, DimSafety: 0.25, DimSurface: 0.20,
			DimCharacter: 0.15, DimScenic: 0.10, DimElevation: 0.05,
		}
		p.SurfacePenalties = map[graph.SurfaceType]float64{
			graph.SurfaceCompacted:  0.10,
			graph.SurfaceFineGravel: 0.20,
			graph.SurfaceGravel:     0.30,
			graph.SurfaceDirt:       0.50,
			graph.SurfaceGrass:      0.70,
		}
	}
	return p
}

// Validate rejects unrecognized dimension keys, out-of-range weights and
// penalties, and weights that do not sum to 1.
func (p Params) Validate() error {
	if len(p.DimensionWeights) == 0 {
		return fmt.Errorf("%w: no dimension weights", ErrInvalidParams)
	}
	sum := 0.0
	for key, w := range p.DimensionWeights {
		if !recognizedDimensions[key] {
			return fmt.Errorf("%w: unrecognized dimension %q", ErrInvalidParams, key)
		}
		if w < 0 || w > 1 {
			return fmt.Errorf("%w: weight %s out of range: %v", ErrInvalidParams, key, w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("%w: dimension weights sum to %v, want 1.0", ErrInvalidParams, sum)
	}
	for surface, penalty := range p.SurfacePenalties {
		if penalty < 0 || penalty > 1 {
			return fmt.Errorf("%w: surface penalty %s out of range: %v", ErrInvalidParams, surface, penalty)
		}
	}
	if p.SpeedComfortKPH < 0 {
		return fmt.Errorf("%w: negative speed comfort threshold: %v", ErrInvalidParams, p.SpeedComfortKPH)
	}
	return nil
}
