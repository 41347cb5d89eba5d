// Package spatial provides a quadtree index over graph edges for
// bounding-box queries and point/polyline to edge matching.
package spatial

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"

	"github.com/looproute/looproute/internal/geo"
	"github.com/looproute/looproute/internal/graph"
)

// IndexConfig holds configuration for the edge index.
type IndexConfig struct {
	// ToleranceMeters is the maximum deviation between an observation
	// geometry and an edge for the edge to be considered a match.
	// Default: 30 meters.
	ToleranceMeters float64

	// CandidatePadMeters pads the query bound used to gather candidate
	// edges before exact distance filtering. Default: 2x tolerance.
	CandidatePadMeters float64
}

// Match is one edge matched to a query geometry.
type Match struct {
	EdgeID         graph.EdgeID
	DistanceMeters float64
}

// edgePoint is a geometry sample tagged with its owning edge.
type edgePoint struct {
	pt   orb.Point
	edge graph.EdgeID
}

func (p edgePoint) Point() orb.Point { return p.pt }

// Index answers spatial queries against a fixed edge set. Built once per
// graph (or per enrichment pass); safe for concurrent readers.
type Index struct {
	g    *graph.Graph
	tree *quadtree.Quadtree
	cfg  IndexConfig
}

// NewIndex builds the index from each edge's geometry, densified so that
// consecutive samples are at most the candidate pad apart. Any point within
// tolerance of an edge segment then finds a sample inside the padded query
// bound, regardless of how long the segment is.
func NewIndex(g *graph.Graph, cfg IndexConfig) *Index {
	if cfg.ToleranceMeters == 0 {
		cfg.ToleranceMeters = 30
	}
	if cfg.CandidatePadMeters == 0 {
		cfg.CandidatePadMeters = 2 * cfg.ToleranceMeters
	}

	idx := &Index{g: g, cfg: cfg}
	if g.EdgeCount() == 0 {
		return idx
	}

	bound := g.Bounds().ExpandMeters(cfg.CandidatePadMeters).Bound()
	idx.tree = quadtree.New(bound)
	for _, id := range g.EdgeIDs() {
		e := g.Edge(id)
		for _, c := range geo.Densify(e.Geometry, cfg.CandidatePadMeters) {
			// Samples outside the graph bound cannot occur by construction.
			_ = idx.tree.Add(edgePoint{pt: c.Point(), edge: id})
		}
	}
	return idx
}

// EdgesInBound returns the ids of edges with at least one geometry sample
// inside the box, ascending, without duplicates.
func (idx *Index) EdgesInBound(b geo.BoundingBox) []graph.EdgeID {
	if idx.tree == nil {
		return nil
	}
	seen := make(map[graph.EdgeID]struct{})
	for _, ptr := range idx.tree.InBound(nil, b.Bound()) {
		seen[ptr.(edgePoint).edge] = struct{}{}
	}
	ids := make([]graph.EdgeID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// MatchPoint returns the edges within tolerance of the point, closest
// first, ties broken by lower edge id.
func (idx *Index) MatchPoint(c geo.Coordinate) []Match {
	return idx.Match([]geo.Coordinate{c})
}

// Match returns the edges whose geometry lies within tolerance of the
// query geometry, ranked by deviation then edge id. Degenerate geometries
// (zero points) match nothing; a single point falls back to point
// proximity.
func (idx *Index) Match(line []geo.Coordinate) []Match {
	if idx.tree == nil || len(line) == 0 {
		return nil
	}

	queryBound := geo.NewBoundingBox(line).ExpandMeters(idx.cfg.CandidatePadMeters)
	candidates := idx.EdgesInBound(queryBound)
	if len(candidates) == 0 {
		return nil
	}

	matches := make([]Match, 0, 2)
	for _, id := range candidates {
		e := idx.g.Edge(id)
		var d float64
		if len(line) == 1 {
			d = geo.PointToPolylineMeters(line[0], e.Geometry)
		} else {
			d = geo.MaxDeviationMeters(line, e.Geometry)
		}
		if d <= idx.cfg.ToleranceMeters {
			matches = append(matches, Match{EdgeID: id, DistanceMeters: d})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].DistanceMeters != matches[j].DistanceMeters {
			return matches[i].DistanceMeters < matches[j].DistanceMeters
		}
		return matches[i].EdgeID < matches[j].EdgeID
	})
	return matches
}

// NearestNode returns the graph node closest to c among the given node
// ids, or 0 and false when the set is empty.
func (idx *Index) NearestNode(c geo.Coordinate, ids []graph.NodeID) (graph.NodeID, bool) {
	var (
		best     graph.NodeID
		bestDist float64
		found    bool
	)
	for _, id := range ids {
		n := idx.g.Node(id)
		if n == nil {
			continue
		}
		d := geo.Distance(c, n.Coord)
		if !found || d < bestDist || (d == bestDist && id < best) {
			best, bestDist, found = id, d, true
		}
	}
	return best, found
}
