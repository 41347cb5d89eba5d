// Package geo provides the geographic primitives shared by the graph,
// spatial index, corridor builder and route search: coordinates, bounding
// boxes and distance/bearing math on the WGS84 sphere.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// Coordinate represents a geographic point.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Point converts the coordinate to an orb point (lon/lat order).
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// FromPoint converts an orb point (lon/lat order) to a Coordinate.
func FromPoint(p orb.Point) Coordinate {
	return Coordinate{Lat: p[1], Lon: p[0]}
}

// Valid reports whether the coordinate is within WGS84 ranges.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Distance returns the great-circle distance between two coordinates in meters.
func Distance(a, b Coordinate) float64 {
	return orbgeo.Distance(a.Point(), b.Point())
}

// Bearing returns the initial compass bearing from a to b in degrees [0, 360).
func Bearing(a, b Coordinate) float64 {
	deg := orbgeo.Bearing(a.Point(), b.Point())
	if deg < 0 {
		deg += 360
	}
	return deg
}

// BearingDiff returns the absolute angular difference between two bearings
// in degrees [0, 180].
func BearingDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// PolylineLength returns the total length of an ordered line in meters.
// Lines with fewer than two points have zero length.
func PolylineLength(line []Coordinate) float64 {
	var total float64
	for i := 1; i < len(line); i++ {
		total += Distance(line[i-1], line[i])
	}
	return total
}

// Densify returns line with intermediate points inserted so that no two
// consecutive points are more than spacingMeters apart. Intermediate points
// are linearly interpolated, which is accurate at street scale. Lines with
// fewer than two points are returned unchanged.
func Densify(line []Coordinate, spacingMeters float64) []Coordinate {
	if len(line) < 2 || spacingMeters <= 0 {
		return line
	}
	out := make([]Coordinate, 0, len(line))
	out = append(out, line[0])
	for i := 1; i < len(line); i++ {
		a, b := line[i-1], line[i]
		steps := int(math.Ceil(Distance(a, b) / spacingMeters))
		for s := 1; s < steps; s++ {
			t := float64(s) / float64(steps)
			out = append(out, Coordinate{
				Lat: a.Lat + t*(b.Lat-a.Lat),
				Lon: a.Lon + t*(b.Lon-a.Lon),
			})
		}
		out = append(out, b)
	}
	return out
}

// PointToSegmentMeters returns the distance in meters from p to the segment
// [a, b]. The projection is computed in a locally scaled planar frame, which
// is accurate at street scale.
func PointToSegmentMeters(p, a, b Coordinate) float64 {
	closest := closestOnSegment(p, a, b)
	return Distance(p, closest)
}

// PointToPolylineMeters returns the minimum distance in meters from p to any
// segment of line. A single-point line degrades to point distance; an empty
// line returns +Inf.
func PointToPolylineMeters(p Coordinate, line []Coordinate) float64 {
	if len(line) == 0 {
		return math.Inf(1)
	}
	if len(line) == 1 {
		return Distance(p, line[0])
	}
	best := math.Inf(1)
	for i := 1; i < len(line); i++ {
		if d := PointToSegmentMeters(p, line[i-1], line[i]); d < best {
			best = d
		}
	}
	return best
}

// MaxDeviationMeters returns the directed Hausdorff-style deviation from
// line a to line b: the maximum over a's points of the minimum distance to b.
// Returns +Inf when either line is empty.
func MaxDeviationMeters(a, b []Coordinate) float64 {
	if len(a) == 0 || len(b) == 0 {
		return math.Inf(1)
	}
	var worst float64
	for _, p := range a {
		d := PointToPolylineMeters(p, b)
		if d > worst {
			worst = d
		}
	}
	return worst
}

// closestOnSegment projects p onto the segment [a, b] using a cos(lat)
// scaled planar approximation and returns the closest coordinate.
func closestOnSegment(p, a, b Coordinate) Coordinate {
	scale := math.Cos(p.Lat * math.Pi / 180)
	ax, ay := a.Lon*scale, a.Lat
	bx, by := b.Lon*scale, b.Lat
	px, py := p.Lon*scale, p.Lat

	dx, dy := bx-ax, by-ay
	segLenSq := dx*dx + dy*dy
	if segLenSq == 0 {
		return a
	}
	t := ((px-ax)*dx + (py-ay)*dy) / segLenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return Coordinate{
		Lat: a.Lat + t*(b.Lat-a.Lat),
		Lon: a.Lon + t*(b.Lon-a.Lon),
	}
}
