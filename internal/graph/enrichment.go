package graph

import (
	"time"

	"github.com/looproute/looproute/internal/geo"
)

// AttributeKind identifies one enrichable edge attribute.
type AttributeKind string

const (
	AttrSurface        AttributeKind = "surface"
	AttrSpeedLimit     AttributeKind = "speed_limit"
	AttrBicycleInfra   AttributeKind = "bicycle_infra"
	AttrTrafficCalming AttributeKind = "traffic_calming"
	AttrStopSign       AttributeKind = "stop_sign"
	AttrTrafficSignal  AttributeKind = "traffic_signal"
	AttrCrossing       AttributeKind = "crossing"
	AttrScenic         AttributeKind = "scenic"
)

// ValueFamily is the value shape an attribute kind carries, and selects
// the fusion strategy for it.
type ValueFamily uint8

const (
	FamilyCategorical = ValueFamily(iota + 1)
	FamilyNumeric
	FamilyBoolean
	FamilyPointDetection
)

// Family returns the value family for the attribute kind.
func (k AttributeKind) Family() ValueFamily {
	switch k {
	case AttrSurface:
		return FamilyCategorical
	case AttrSpeedLimit, AttrScenic:
		return FamilyNumeric
	case AttrBicycleInfra, AttrTrafficCalming:
		return FamilyBoolean
	default:
		return FamilyPointDetection
	}
}

// DataSource identifies an observation provider.
type DataSource string

const (
	SourceOSM       DataSource = "osm"
	SourceHeiGIT    DataSource = "heigit_surface"
	SourceMunicipal DataSource = "municipal_open_data"
	SourceCommunity DataSource = "community"
	SourceManual    DataSource = "manual"
)

// AttributeValue is the tagged value of one observation or fused result.
// Exactly the field selected by Family is meaningful.
type AttributeValue struct {
	Family  ValueFamily
	Surface SurfaceType
	Number  float64
	Bool    bool
	Point   geo.Coordinate
}

// SurfaceValue builds a categorical surface value.
func SurfaceValue(s SurfaceType) AttributeValue {
	return AttributeValue{Family: FamilyCategorical, Surface: s}
}

// NumberValue builds a numeric value (speed limit km/h, scenic rating 0-5).
func NumberValue(n float64) AttributeValue {
	return AttributeValue{Family: FamilyNumeric, Number: n}
}

// BoolValue builds a boolean value.
func BoolValue(b bool) AttributeValue {
	return AttributeValue{Family: FamilyBoolean, Bool: b}
}

// PointValue builds a point-detection value (sign/signal/crossing location).
func PointValue(c geo.Coordinate) AttributeValue {
	return AttributeValue{Family: FamilyPointDetection, Point: c}
}

// Observation is one provider's claim about one attribute at one location.
// Observations are immutable and live only for the duration of a pipeline run.
type Observation struct {
	Attribute  AttributeKind
	Source     DataSource
	Value      AttributeValue
	Confidence float64
	ObservedAt *time.Time
	Geometry   []geo.Coordinate
}

// AttributeEnrichment is the fused result for one edge attribute.
type AttributeEnrichment struct {
	Value      AttributeValue
	Confidence float64
	// Conflict is set when contributing observations disagreed beyond
	// tolerance. Not an error: a first-class data signal.
	Conflict     bool
	Observations []Observation
}
