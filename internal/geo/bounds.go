package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// BoundingBox represents a geographic bounding box.
type BoundingBox struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// NewBoundingBox returns the tightest box enclosing the given coordinates.
// An empty input produces an inverted (empty) box.
func NewBoundingBox(coords []Coordinate) BoundingBox {
	b := BoundingBox{
		MinLat: math.Inf(1), MinLon: math.Inf(1),
		MaxLat: math.Inf(-1), MaxLon: math.Inf(-1),
	}
	for _, c := range coords {
		b = b.Extend(c)
	}
	return b
}

// Extend returns the box grown to include c.
func (b BoundingBox) Extend(c Coordinate) BoundingBox {
	if c.Lat < b.MinLat {
		b.MinLat = c.Lat
	}
	if c.Lat > b.MaxLat {
		b.MaxLat = c.Lat
	}
	if c.Lon < b.MinLon {
		b.MinLon = c.Lon
	}
	if c.Lon > b.MaxLon {
		b.MaxLon = c.Lon
	}
	return b
}

// Contains reports whether c lies inside the box (inclusive).
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat &&
		c.Lon >= b.MinLon && c.Lon <= b.MaxLon
}

// Intersects reports whether the two boxes overlap.
func (b BoundingBox) Intersects(o BoundingBox) bool {
	return b.MinLat <= o.MaxLat && b.MaxLat >= o.MinLat &&
		b.MinLon <= o.MaxLon && b.MaxLon >= o.MinLon
}

// Center returns the center coordinate of the box.
func (b BoundingBox) Center() Coordinate {
	return Coordinate{
		Lat: (b.MinLat + b.MaxLat) / 2,
		Lon: (b.MinLon + b.MaxLon) / 2,
	}
}

// ExpandMeters returns the box padded by approximately meters on all sides.
func (b BoundingBox) ExpandMeters(meters float64) BoundingBox {
	latDelta := meters / 111320.0
	cosLat := math.Cos(b.Center().Lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	lonDelta := meters / (111320.0 * cosLat)
	return BoundingBox{
		MinLat: b.MinLat - latDelta,
		MinLon: b.MinLon - lonDelta,
		MaxLat: b.MaxLat + latDelta,
		MaxLon: b.MaxLon + lonDelta,
	}
}

// Bound converts the box to an orb bound.
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinLon, b.MinLat},
		Max: orb.Point{b.MaxLon, b.MaxLat},
	}
}
