// Package search finds loop routes over a scored corridor network.
package search

import (
	"errors"
	"time"

	"github.com/looproute/looproute/internal/corridor"
	"github.com/looproute/looproute/internal/geo"
	"github.com/looproute/looproute/internal/graph"
)

// Sentinel errors returned by the searcher.
var (
	ErrInvalidRequest    = errors.New("invalid search request")
	ErrNoQualifyingRoute = errors.New("no loop satisfies the distance window")
)

// TurnFrequency expresses how many corridor transitions a rider
// tolerates.
type TurnFrequency string

const (
	TurnsMinimal  TurnFrequency = "minimal"
	TurnsModerate TurnFrequency = "moderate"
	TurnsFrequent TurnFrequency = "frequent"
)

// Request describes one loop search.
type Request struct {
	Start             geo.Coordinate
	MinDistanceMeters float64
	MaxDistanceMeters float64

	// PreferredBearing in degrees [0, 360) biases the first hop when set.
	PreferredBearing *float64

	// TurnFrequency defaults to moderate.
	TurnFrequency TurnFrequency

	// MaxAlternatives caps the returned routes. Default: 3.
	MaxAlternatives int

	Activity corridor.ActivityType
}

// Validate rejects malformed requests before any expansion runs.
func (r Request) Validate() error {
	if !r.Start.Valid() {
		return ErrInvalidRequest
	}
	if r.MinDistanceMeters <= 0 || r.MaxDistanceMeters < r.MinDistanceMeters {
		return ErrInvalidRequest
	}
	if r.PreferredBearing != nil && (*r.PreferredBearing < 0 || *r.PreferredBearing >= 360) {
		return ErrInvalidRequest
	}
	return nil
}

// Config controls the search budget and cost shaping.
type Config struct {
	// ClosureToleranceMeters is how close to the start a loop must
	// return. Default: 100.
	ClosureToleranceMeters float64

	// MaxExpansions caps the number of states expanded. Default: 100000.
	MaxExpansions int

	// Budget is the wall-clock cap per search. Default: 5 seconds.
	Budget time.Duration

	// QualityPenaltyWeight scales how strongly low corridor scores
	// inflate effective cost. Default: 1.
	QualityPenaltyWeight float64

	// TransitionPenaltyMeters is the added cost per element transition,
	// keyed by turn-frequency preference.
	TransitionPenaltyMeters map[TurnFrequency]float64

	// BearingBiasWeight scales the first-hop bearing penalty. Default: 0.3.
	BearingBiasWeight float64
}

func (c Config) withDefaults() Config {
	if c.ClosureToleranceMeters == 0 {
		c.ClosureToleranceMeters = 100
	}
	if c.MaxExpansions == 0 {
		c.MaxExpansions = 100000
	}
	if c.Budget == 0 {
		c.Budget = 5 * time.Second
	}
	if c.QualityPenaltyWeight == 0 {
		c.QualityPenaltyWeight = 1
	}
	if c.TransitionPenaltyMeters == nil {
		c.TransitionPenaltyMeters = map[TurnFrequency]float64{
			TurnsMinimal:  250,
			TurnsModerate: 80,
			TurnsFrequent: 20,
		}
	}
	if c.BearingBiasWeight == 0 {
		c.BearingBiasWeight = 0.3
	}
	return c
}

// SegmentKind distinguishes route segment types.
type SegmentKind string

const (
	SegmentCorridor  SegmentKind = "corridor"
	SegmentConnector SegmentKind = "connector"
)

// Segment is one element traversal inside a route.
type Segment struct {
	Kind SegmentKind

	// ElementID is the corridor or connector id.
	ElementID int64

	Name string

	// Reversed reports the element was walked end-to-start.
	Reversed bool

	// EdgeIDs in traversal order.
	EdgeIDs []graph.EdgeID

	LengthMeters float64
}

// RouteStats aggregates what a route is made of.
type RouteStats struct {
	DistanceMeters      float64
	StopCount           int
	DistanceByType      map[corridor.CorridorType]float64
	DistanceBySurface   map[graph.SurfaceType]float64
	ConnectorMeters     float64
	AvgInfraContinuity  float64
	FlowScore           float64

	// Elevation fields stay nil until the graph model carries elevation
	// samples; nil distinguishes "no data" from a flat route.
	ElevationGainMeters *float64
	ElevationLossMeters *float64
	MaxGradePercent     *float64
}

// Route is a ranked loop candidate. Pure output value, never mutated
// after the search returns it.
type Route struct {
	ID       string
	Activity corridor.ActivityType
	Segments []Segment
	Geometry []geo.Coordinate
	Polyline string
	Stats    RouteStats
	Score    float64
}

// Result is the search outcome. Incomplete reports the expansion or
// time budget ran out before the frontier was exhausted; the routes are
// still the best found so far.
type Result struct {
	Routes     []*Route
	Incomplete bool
	Expansions int
}
