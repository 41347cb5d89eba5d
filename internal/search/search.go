package search

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/looproute/looproute/internal/corridor"
	"github.com/looproute/looproute/internal/geo"
	"github.com/looproute/looproute/internal/graph"
	"github.com/looproute/looproute/internal/telemetry"
	"github.com/looproute/looproute/pkg/polyline"
)

// Searcher runs loop searches over a scored corridor network. A single
// Searcher is safe for concurrent searches: it only reads the network.
type Searcher struct {
	net     *corridor.Network
	cfg     Config
	logger  zerolog.Logger
	metrics *telemetry.SearchMetrics
}

// NewSearcher creates a searcher over the network. Metrics may be nil.
func NewSearcher(net *corridor.Network, cfg Config, logger zerolog.Logger, metrics *telemetry.SearchMetrics) *Searcher {
	return &Searcher{
		net:     net,
		cfg:     cfg.withDefaults(),
		logger:  logger,
		metrics: metrics,
	}
}

// state is one frontier entry. Paths share structure through prev
// pointers; nothing is copied until a loop is accepted.
type state struct {
	node    graph.NodeID
	length  float64
	cost    float64
	ref     corridor.ElementRef
	entered graph.NodeID
	prev    *state
	depth   int
}

type frontier []*state

func (f frontier) Len() int            { return len(f) }
func (f frontier) Less(i, j int) bool  { return f[i].cost < f[j].cost }
func (f frontier) Swap(i, j int)       { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x interface{}) { *f = append(*f, x.(*state)) }
func (f *frontier) Pop() interface{} {
	old := *f
	n := len(old)
	s := old[n-1]
	*f = old[:n-1]
	return s
}

// Search explores loops from the request's start coordinate and returns
// ranked candidates. The expansion stops at the configured budget; a
// truncated search returns what it found with Incomplete set, and fails
// with ErrNoQualifyingRoute only when nothing qualified at all.
func (s *Searcher) Search(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.TurnFrequency == "" {
		req.TurnFrequency = TurnsModerate
	}
	if req.MaxAlternatives == 0 {
		req.MaxAlternatives = 3
	}

	started := time.Now()
	deadline := started.Add(s.cfg.Budget)

	startNode, ok := s.nearestEndpoint(req.Start)
	if !ok {
		return nil, fmt.Errorf("%w: empty corridor network", ErrNoQualifyingRoute)
	}
	startCoord := s.net.Graph().Node(startNode).Coord

	var pq frontier
	heap.Init(&pq)
	heap.Push(&pq, &state{node: startNode})

	var (
		accepted   []*state
		seen       = map[string]bool{}
		expansions int
		incomplete bool
	)
	transition := s.cfg.TransitionPenaltyMeters[req.TurnFrequency]

	for pq.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if expansions >= s.cfg.MaxExpansions || time.Now().After(deadline) {
			incomplete = true
			break
		}
		cur := heap.Pop(&pq).(*state)
		expansions++

		if cur.depth > 0 {
			at := s.net.Graph().Node(cur.node).Coord
			if geo.Distance(at, startCoord) <= s.cfg.ClosureToleranceMeters &&
				cur.length >= req.MinDistanceMeters && cur.length <= req.MaxDistanceMeters {
				sig := s.signature(cur)
				if !seen[sig] {
					seen[sig] = true
					accepted = append(accepted, cur)
					if len(accepted) >= req.MaxAlternatives*4 {
						break
					}
				}
				continue
			}
		}

		for _, ref := range s.net.ElementsAt(cur.node) {
			if s.used(cur, ref) {
				continue
			}
			length := s.net.Length(ref)
			if cur.length+length > req.MaxDistanceMeters {
				continue
			}
			step := length * (1 + s.cfg.QualityPenaltyWeight*(1-s.elementQuality(ref, req.Activity)))
			if cur.depth > 0 {
				step += transition
			}
			if cur.depth == 0 && req.PreferredBearing != nil {
				step *= 1 + s.cfg.BearingBiasWeight*s.bearingMismatch(cur.node, ref, *req.PreferredBearing)
			}
			a, b := s.net.Endpoints(ref)
			next := b
			if cur.node == b {
				next = a
			}
			heap.Push(&pq, &state{
				node:    next,
				length:  cur.length + length,
				cost:    cur.cost + step,
				ref:     ref,
				entered: cur.node,
				prev:    cur,
				depth:   cur.depth + 1,
			})
		}
	}

	if s.metrics != nil {
		s.metrics.Expansions.Add(ctx, int64(expansions))
		s.metrics.CandidateLoops.Add(ctx, int64(len(accepted)))
		s.metrics.SearchDuration.Record(ctx, time.Since(started).Seconds())
	}

	if len(accepted) == 0 {
		s.logger.Info().
			Int("expansions", expansions).
			Bool("budget_exhausted", incomplete).
			Msg("loop search found no qualifying route")
		return nil, fmt.Errorf("%w: min=%.0fm max=%.0fm", ErrNoQualifyingRoute, req.MinDistanceMeters, req.MaxDistanceMeters)
	}

	routes := make([]*Route, 0, len(accepted))
	for _, st := range accepted {
		routes = append(routes, s.buildRoute(st, req))
	}
	sort.SliceStable(routes, func(i, j int) bool { return routes[i].Score > routes[j].Score })
	if len(routes) > req.MaxAlternatives {
		routes = routes[:req.MaxAlternatives]
	}

	s.logger.Info().
		Int("expansions", expansions).
		Int("routes", len(routes)).
		Float64("best_score", routes[0].Score).
		Dur("duration", time.Since(started)).
		Msg("loop search completed")
	return &Result{Routes: routes, Incomplete: incomplete, Expansions: expansions}, nil
}

// nearestEndpoint picks the corridor network endpoint closest to the
// coordinate.
func (s *Searcher) nearestEndpoint(c geo.Coordinate) (graph.NodeID, bool) {
	nodes := s.net.EndpointNodes()
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	var (
		best     graph.NodeID
		bestDist = math.Inf(1)
	)
	for _, id := range nodes {
		n := s.net.Graph().Node(id)
		if n == nil {
			continue
		}
		if d := geo.Distance(c, n.Coord); d < bestDist {
			best, bestDist = id, d
		}
	}
	return best, !math.IsInf(bestDist, 1)
}

// used reports whether the path already traversed the element, or would
// immediately U-turn over it.
func (s *Searcher) used(st *state, ref corridor.ElementRef) bool {
	for cur := st; cur != nil && cur.depth > 0; cur = cur.prev {
		if cur.ref == ref {
			return true
		}
	}
	return false
}

// elementQuality is the corridor's overall score for the activity, or a
// crossing-difficulty discount for connectors.
func (s *Searcher) elementQuality(ref corridor.ElementRef, activity corridor.ActivityType) float64 {
	if ref.Kind == corridor.ElementCorridor {
		if score, ok := s.net.Corridors[ref.Index].Scores[activity]; ok {
			return score.Overall
		}
		return 0.5
	}
	conn := s.net.Connectors[ref.Index]
	q := 0.6
	if conn.HasSignal || conn.HasStopSign {
		q -= 0.1
	}
	if conn.CrossesMajorRoad {
		q -= 0.2
	}
	if q < 0 {
		q = 0
	}
	return q
}

// bearingMismatch is the normalized [0, 1] angular distance between the
// preferred bearing and the element's initial bearing from the node.
func (s *Searcher) bearingMismatch(from graph.NodeID, ref corridor.ElementRef, preferred float64) float64 {
	g := s.net.Graph()
	edges := s.net.Edges(ref)
	a, _ := s.net.Endpoints(ref)
	first := edges[0]
	if from != a {
		first = edges[len(edges)-1]
	}
	e := g.Edge(first)
	far := g.OtherEnd(e, from)
	bearing := geo.Bearing(g.Node(from).Coord, g.Node(far).Coord)
	return geo.BearingDiff(bearing, preferred) / 180
}

// signature canonicalizes the element sequence up to reversal, so a
// loop and its mirror dedupe to one candidate.
func (s *Searcher) signature(st *state) string {
	var refs []corridor.ElementRef
	for cur := st; cur != nil && cur.depth > 0; cur = cur.prev {
		refs = append(refs, cur.ref)
	}
	forward := make([]string, len(refs))
	backward := make([]string, len(refs))
	for i, ref := range refs {
		key := fmt.Sprintf("%d:%d", ref.Kind, ref.Index)
		forward[len(refs)-1-i] = key
		backward[i] = key
	}
	fs, bs := strings.Join(forward, "|"), strings.Join(backward, "|")
	if bs < fs {
		return bs
	}
	return fs
}

// buildRoute materializes an accepted state into a Route value.
func (s *Searcher) buildRoute(st *state, req Request) *Route {
	var steps []*state
	for cur := st; cur != nil && cur.depth > 0; cur = cur.prev {
		steps = append(steps, cur)
	}
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}

	route := &Route{
		ID:       uuid.NewString(),
		Activity: req.Activity,
		Segments: make([]Segment, 0, len(steps)),
	}
	stats := RouteStats{
		DistanceByType:    make(map[corridor.CorridorType]float64),
		DistanceBySurface: make(map[graph.SurfaceType]float64),
	}
	var infraSum, corridorLen, flowSum float64

	for _, step := range steps {
		seg := s.buildSegment(step)
		route.Segments = append(route.Segments, seg)
		route.Geometry = appendLine(route.Geometry, s.segmentLine(step))
		stats.DistanceMeters += seg.LengthMeters

		if step.ref.Kind == corridor.ElementCorridor {
			c := s.net.Corridors[step.ref.Index]
			stats.DistanceByType[c.Type] += seg.LengthMeters
			stats.DistanceBySurface[c.PredominantSurface] += seg.LengthMeters
			infraSum += c.InfraContinuity * seg.LengthMeters
			corridorLen += seg.LengthMeters
			if score, ok := c.Scores[req.Activity]; ok {
				flowSum += score.Flow * seg.LengthMeters
			}
			stats.StopCount += corridorStops(s.net.Graph(), c)
		} else {
			conn := s.net.Connectors[step.ref.Index]
			stats.ConnectorMeters += seg.LengthMeters
			if conn.HasSignal {
				stats.StopCount++
			}
			if conn.HasStopSign {
				stats.StopCount++
			}
		}
	}
	if corridorLen > 0 {
		stats.AvgInfraContinuity = infraSum / corridorLen
		stats.FlowScore = flowSum / corridorLen
	}
	route.Stats = stats
	route.Score = s.routeScore(steps, req.Activity)
	route.Polyline = encodeGeometry(route.Geometry)
	return route
}

func (s *Searcher) buildSegment(step *state) Segment {
	a, _ := s.net.Endpoints(step.ref)
	reversed := step.entered != a
	edges := s.net.Edges(step.ref)
	ordered := make([]graph.EdgeID, len(edges))
	copy(ordered, edges)
	if reversed {
		for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		}
	}
	seg := Segment{
		ElementID:    s.elementID(step.ref),
		Reversed:     reversed,
		EdgeIDs:      ordered,
		LengthMeters: s.net.Length(step.ref),
	}
	if step.ref.Kind == corridor.ElementCorridor {
		seg.Kind = SegmentCorridor
		seg.Name = s.net.Corridors[step.ref.Index].Name
	} else {
		seg.Kind = SegmentConnector
	}
	return seg
}

func (s *Searcher) elementID(ref corridor.ElementRef) int64 {
	if ref.Kind == corridor.ElementCorridor {
		return s.net.Corridors[ref.Index].ID
	}
	return s.net.Connectors[ref.Index].ID
}

// segmentLine walks the element's edges from the entry node, reversing
// edge geometry walked against its stored direction.
func (s *Searcher) segmentLine(step *state) []geo.Coordinate {
	g := s.net.Graph()
	edges := s.net.Edges(step.ref)
	a, _ := s.net.Endpoints(step.ref)
	if step.entered != a {
		rev := make([]graph.EdgeID, len(edges))
		for i, id := range edges {
			rev[len(edges)-1-i] = id
		}
		edges = rev
	}

	var line []geo.Coordinate
	at := step.entered
	for _, id := range edges {
		e := g.Edge(id)
		coords := e.Geometry
		if e.To == at && e.From != at {
			rev := make([]geo.Coordinate, len(coords))
			for i, c := range coords {
				rev[len(coords)-1-i] = c
			}
			coords = rev
		}
		line = append(line, coords...)
		at = g.OtherEnd(e, at)
	}
	return line
}

// routeScore is the length-weighted mean element quality.
func (s *Searcher) routeScore(steps []*state, activity corridor.ActivityType) float64 {
	var sum, total float64
	for _, step := range steps {
		length := s.net.Length(step.ref)
		sum += s.elementQuality(step.ref, activity) * length
		total += length
	}
	if total == 0 {
		return 0
	}
	return sum / total
}

func corridorStops(g *graph.Graph, c *corridor.Corridor) int {
	stops := 0
	for _, id := range c.EdgeIDs {
		e := g.Edge(id)
		if e.EnrichmentFor(graph.AttrStopSign) != nil {
			stops++
		}
		if e.EnrichmentFor(graph.AttrTrafficSignal) != nil {
			stops++
		}
	}
	return stops
}

func encodeGeometry(line []geo.Coordinate) string {
	coords := make([]polyline.Coordinate, len(line))
	for i, c := range line {
		coords[i] = polyline.Coordinate{Lat: c.Lat, Lon: c.Lon}
	}
	return polyline.Encode(coords)
}

// appendLine concatenates a segment line, dropping a duplicated joint
// coordinate.
func appendLine(line, next []geo.Coordinate) []geo.Coordinate {
	for i, c := range next {
		if len(line) > 0 && i == 0 && line[len(line)-1] == c {
			continue
		}
		line = append(line, c)
	}
	return line
}
