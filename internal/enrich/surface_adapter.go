package enrich

import (
	"context"
	"math"
	"time"

	"github.com/looproute/looproute/internal/geo"
	"github.com/looproute/looproute/internal/graph"
)

// SurfaceSource is the narrow source enum of the original surface-only
// provider interface, kept for providers that still speak it.
type SurfaceSource string

const (
	// SurfaceSourceHeiGIT is the ML road-surface prediction feed
	// (paved/unpaved per way, derived from street-level imagery).
	SurfaceSourceHeiGIT SurfaceSource = "heigit"
	// SurfaceSourceOSMTags is surface tags carried by the base map.
	SurfaceSourceOSMTags SurfaceSource = "osm_tags"
)

// SurfacePrediction is one paved/unpaved classification at a way centroid.
type SurfacePrediction struct {
	Location geo.Coordinate
	Paved    bool
	// PredictionCount is the number of imagery samples behind the
	// classification; more samples mean a more reliable prediction.
	PredictionCount int
	PredictedAt     *time.Time
}

// SurfaceProvider is the legacy surface-only provider interface. It
// predates the generalized Provider and is preserved as a bridge target:
// new narrow surface feeds still arrive speaking this shape.
type SurfaceProvider interface {
	SurfaceSource() SurfaceSource
	FetchSurfaces(ctx context.Context, bounds geo.BoundingBox) ([]SurfacePrediction, error)
}

// AdaptSurfaceProvider wraps a legacy surface provider as a general
// Provider declaring surface coverage only.
func AdaptSurfaceProvider(p SurfaceProvider) Provider {
	return &surfaceAdapter{inner: p}
}

type surfaceAdapter struct {
	inner SurfaceProvider
}

func (a *surfaceAdapter) Source() graph.DataSource {
	switch a.inner.SurfaceSource() {
	case SurfaceSourceHeiGIT:
		return graph.SourceHeiGIT
	case SurfaceSourceOSMTags:
		return graph.SourceOSM
	default:
		return graph.SourceCommunity
	}
}

func (a *surfaceAdapter) Attributes() []graph.AttributeKind {
	return []graph.AttributeKind{graph.AttrSurface}
}

func (a *surfaceAdapter) FetchObservations(ctx context.Context, bounds geo.BoundingBox) ([]graph.Observation, error) {
	preds, err := a.inner.FetchSurfaces(ctx, bounds)
	if err != nil {
		return nil, err
	}
	obs := make([]graph.Observation, 0, len(preds))
	for _, pred := range preds {
		// The legacy feed only distinguishes paved from unpaved; map to
		// the broadest member of each surface group.
		surface := graph.SurfaceGravel
		if pred.Paved {
			surface = graph.SurfaceAsphalt
		}
		obs = append(obs, graph.Observation{
			Attribute:  graph.AttrSurface,
			Source:     a.Source(),
			Value:      graph.SurfaceValue(surface),
			Confidence: predictionConfidence(pred.PredictionCount),
			ObservedAt: pred.PredictedAt,
			Geometry:   []geo.Coordinate{pred.Location},
		})
	}
	return obs, nil
}

// predictionConfidence maps an imagery sample count to a source
// confidence: one sample is weak evidence, confidence saturates at 0.95.
func predictionConfidence(count int) float64 {
	if count <= 0 {
		return 0.5
	}
	return math.Min(0.95, 0.55+0.04*float64(count))
}
