// Package fusion combines multiple observations of one edge attribute
// into a single fused value with a confidence score and conflict flag.
package fusion

import (
	"time"

	"github.com/looproute/looproute/internal/graph"
)

// Config holds the fusion tolerances. Zero values take defaults.
type Config struct {
	// SpeedLimitToleranceKPH is the absolute difference within which two
	// speed-limit observations agree. Default: 5.
	SpeedLimitToleranceKPH float64

	// ScenicTolerance is the absolute difference within which two scenic
	// ratings (0-5 scale) agree. Default: 1.5.
	ScenicTolerance float64

	// PointAgreementToleranceMeters is the distance within which two
	// point detections (signs, signals, crossings) are the same feature.
	// Default: 25.
	PointAgreementToleranceMeters float64

	// DisagreementPenalty scales the mean confidence of conflicting
	// observations down to reflect uncertainty. Default: 0.6.
	DisagreementPenalty float64
}

func (c Config) withDefaults() Config {
	if c.SpeedLimitToleranceKPH == 0 {
		c.SpeedLimitToleranceKPH = 5
	}
	if c.ScenicTolerance == 0 {
		c.ScenicTolerance = 1.5
	}
	if c.PointAgreementToleranceMeters == 0 {
		c.PointAgreementToleranceMeters = 25
	}
	if c.DisagreementPenalty == 0 {
		c.DisagreementPenalty = 0.6
	}
	return c
}

// Strategy fuses the observations attributed to one edge for one
// attribute. Implementations must be deterministic: identical input
// slices yield identical results.
type Strategy interface {
	Fuse(obs []graph.Observation) *graph.AttributeEnrichment
}

// Engine dispatches fusion to the strategy registered for each attribute
// kind.
type Engine struct {
	strategies map[graph.AttributeKind]Strategy
}

// NewDefaultEngine returns an engine with a fresh default strategy set.
// Each pipeline run gets its own engine; there is no shared registry.
func NewDefaultEngine(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{strategies: map[graph.AttributeKind]Strategy{
		graph.AttrSurface:        &categoricalStrategy{penalty: cfg.DisagreementPenalty},
		graph.AttrSpeedLimit:     &numericStrategy{tolerance: cfg.SpeedLimitToleranceKPH, penalty: cfg.DisagreementPenalty},
		graph.AttrScenic:         &numericStrategy{tolerance: cfg.ScenicTolerance, penalty: cfg.DisagreementPenalty},
		graph.AttrBicycleInfra:   &booleanStrategy{penalty: cfg.DisagreementPenalty},
		graph.AttrTrafficCalming: &booleanStrategy{penalty: cfg.DisagreementPenalty},
		graph.AttrStopSign:       &pointStrategy{toleranceMeters: cfg.PointAgreementToleranceMeters, penalty: cfg.DisagreementPenalty},
		graph.AttrTrafficSignal:  &pointStrategy{toleranceMeters: cfg.PointAgreementToleranceMeters, penalty: cfg.DisagreementPenalty},
		graph.AttrCrossing:       &pointStrategy{toleranceMeters: cfg.PointAgreementToleranceMeters, penalty: cfg.DisagreementPenalty},
	}}
}

// Fuse combines the observations for one attribute kind. Zero
// observations, or an unregistered kind, produce no enrichment entry.
func (e *Engine) Fuse(kind graph.AttributeKind, obs []graph.Observation) *graph.AttributeEnrichment {
	if len(obs) == 0 {
		return nil
	}
	s, ok := e.strategies[kind]
	if !ok {
		return nil
	}
	return s.Fuse(obs)
}

// combineAgreeing folds independent agreeing confidences with noisy-or:
// 1 - prod(1 - ci). Monotonically non-decreasing in the number of
// observations, capped at 1.
func combineAgreeing(obs []graph.Observation) float64 {
	remain := 1.0
	for _, o := range obs {
		c := clamp01(o.Confidence)
		remain *= 1 - c
	}
	conf := 1 - remain
	return clamp01(conf)
}

// winner picks the observation whose value a conflict resolves to:
// highest confidence first, newer ObservedAt breaks confidence ties,
// input order breaks the rest.
func winner(obs []graph.Observation) graph.Observation {
	best := obs[0]
	for _, o := range obs[1:] {
		if o.Confidence > best.Confidence {
			best = o
			continue
		}
		if o.Confidence == best.Confidence && newer(o.ObservedAt, best.ObservedAt) {
			best = o
		}
	}
	return best
}

// newer reports whether a is strictly more recent than b. A set
// timestamp beats an absent one.
func newer(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.After(*b)
	}
}

// penalizedConfidence is the fused confidence on the conflict path: the
// mean contributing confidence scaled by the disagreement penalty.
func penalizedConfidence(obs []graph.Observation, penalty float64) float64 {
	var sum float64
	for _, o := range obs {
		sum += clamp01(o.Confidence)
	}
	return clamp01(sum / float64(len(obs)) * penalty)
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
