package corridor

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/looproute/looproute/internal/graph"
)

// Builder clusters an enriched graph into a corridor network.
type Builder struct {
	cfg    CompatibilityConfig
	logger zerolog.Logger
}

// NewBuilder creates a builder. The configuration is validated eagerly;
// clustering never runs with bad weights.
func NewBuilder(cfg CompatibilityConfig, logger zerolog.Logger) (*Builder, error) {
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights()
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = 0.55
	}
	if cfg.SpeedLimitCutoffKPH == 0 {
		cfg.SpeedLimitCutoffKPH = 30
	}
	if cfg.MinCorridorLengthMeters == 0 {
		cfg.MinCorridorLengthMeters = 200
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Builder{cfg: cfg, logger: logger}, nil
}

// Build partitions every edge into exactly one corridor or connector.
// The walk is a single sequential pass in ascending edge-id order, so
// identical inputs produce identical networks.
func (b *Builder) Build(g *graph.Graph) *Network {
	net := &Network{
		g:      g,
		byNode: make(map[graph.NodeID][]ElementRef),
	}
	visited := make(map[graph.EdgeID]bool, g.EdgeCount())

	var corridorSeq, connectorSeq int64
	for _, seed := range g.EdgeIDs() {
		if visited[seed] {
			continue
		}
		chain, start, end := b.growChain(g, seed, visited)

		var length float64
		for _, id := range chain {
			length += g.Edge(id).LengthMeters
		}

		if length < b.cfg.MinCorridorLengthMeters {
			connectorSeq++
			conn := b.buildConnector(g, connectorSeq, chain, start, end, length)
			net.Connectors = append(net.Connectors, conn)
			net.addElement(ElementRef{Kind: ElementConnector, Index: len(net.Connectors) - 1}, start, end)
			continue
		}

		corridorSeq++
		c := b.buildCorridor(g, corridorSeq, chain, start, end, length)
		net.Corridors = append(net.Corridors, c)
		net.addElement(ElementRef{Kind: ElementCorridor, Index: len(net.Corridors) - 1}, start, end)
	}

	b.logger.Info().
		Int("edges", g.EdgeCount()).
		Int("corridors", len(net.Corridors)).
		Int("connectors", len(net.Connectors)).
		Msg("corridor network built")
	return net
}

// growChain grows a chain from the seed edge in both directions,
// appending connected edges while compatibility holds. Junctions with
// degree other than 2 always break the chain.
func (b *Builder) growChain(g *graph.Graph, seed graph.EdgeID, visited map[graph.EdgeID]bool) (chain []graph.EdgeID, start, end graph.NodeID) {
	seedEdge := g.Edge(seed)
	visited[seed] = true
	chain = []graph.EdgeID{seed}
	start, end = seedEdge.From, seedEdge.To

	end = b.extend(g, visited, &chain, seed, end, false)
	start = b.extend(g, visited, &chain, seed, start, true)
	return chain, start, end
}

// extend walks outward from node, growing the chain until a junction,
// an incompatible neighbor, or no unvisited neighbor remains. Returns
// the final node reached. prepend grows the head of the chain.
func (b *Builder) extend(g *graph.Graph, visited map[graph.EdgeID]bool, chain *[]graph.EdgeID, tail graph.EdgeID, node graph.NodeID, prepend bool) graph.NodeID {
	cur := g.Edge(tail)
	for {
		if g.Degree(node) != 2 {
			return node
		}
		var next *graph.Edge
		for _, id := range g.EdgesAt(node) {
			if id != cur.ID && !visited[id] {
				next = g.Edge(id)
				break
			}
		}
		if next == nil {
			return node
		}
		if b.cfg.NameChangeBreaksCorridor && next.Name != cur.Name {
			return node
		}
		if b.cfg.Compatibility(cur, next) < b.cfg.Threshold {
			return node
		}

		visited[next.ID] = true
		if prepend {
			*chain = append([]graph.EdgeID{next.ID}, *chain...)
		} else {
			*chain = append(*chain, next.ID)
		}
		node = g.OtherEnd(next, node)
		cur = next
	}
}

func (b *Builder) buildConnector(g *graph.Graph, id int64, chain []graph.EdgeID, start, end graph.NodeID, length float64) *Connector {
	conn := &Connector{
		ID:           id,
		EdgeIDs:      chain,
		StartNode:    start,
		EndNode:      end,
		LengthMeters: length,
	}
	inChain := make(map[graph.EdgeID]bool, len(chain))
	for _, eid := range chain {
		inChain[eid] = true
	}
	for _, eid := range chain {
		e := g.Edge(eid)
		if e.EnrichmentFor(graph.AttrTrafficSignal) != nil {
			conn.HasSignal = true
		}
		if e.EnrichmentFor(graph.AttrStopSign) != nil {
			conn.HasStopSign = true
		}
		if e.EnrichmentFor(graph.AttrCrossing) != nil {
			conn.HasCrossing = true
		}
		for _, nodeID := range []graph.NodeID{e.From, e.To} {
			for _, otherID := range g.EdgesAt(nodeID) {
				if inChain[otherID] {
					continue
				}
				if g.Edge(otherID).Class.Group() == graph.GroupLadder {
					conn.CrossesMajorRoad = true
				}
			}
		}
	}
	return conn
}

func (b *Builder) buildCorridor(g *graph.Graph, id int64, chain []graph.EdgeID, start, end graph.NodeID, length float64) *Corridor {
	c := &Corridor{
		ID:           id,
		EdgeIDs:      chain,
		StartNode:    start,
		EndNode:      end,
		LengthMeters: length,
		Scores:       make(map[ActivityType]Score),
	}

	classWeight := make(map[graph.RoadClass]float64)
	surfaceWeight := make(map[graph.SurfaceType]float64)
	var infraLength float64
	sharedName := ""
	nameShared := true

	conf := newConfidenceAccumulator()
	var scenicSum, scenicWeight float64

	for i, eid := range chain {
		e := g.Edge(eid)
		w := e.LengthMeters

		classWeight[e.Class] += w
		surfaceWeight[effectiveSurface(e)] += w
		if edgeHasInfra(e) {
			infraLength += w
		}
		if i == 0 {
			sharedName = e.Name
		} else if e.Name != sharedName {
			nameShared = false
		}

		conf.add(e, w)
		if enr := e.EnrichmentFor(graph.AttrScenic); enr != nil {
			scenicSum += enr.Value.Number * w
			scenicWeight += w
		}
	}

	c.Type = typeForGroup(dominantClass(classWeight).Group())
	if nameShared {
		c.Name = sharedName
	}
	c.PredominantSurface = dominantSurface(surfaceWeight)
	if length > 0 {
		c.InfraContinuity = infraLength / length
	}
	if scenicWeight > 0 {
		rating := scenicSum / scenicWeight
		c.ScenicRating = &rating
	}
	c.Confidence = conf.finish()
	return c
}

// edgeHasInfra reports a dedicated or separated facility, from the
// static flags or a positive bicycle-infra enrichment.
func edgeHasInfra(e *graph.Edge) bool {
	if e.HasInfra() {
		return true
	}
	if enr := e.EnrichmentFor(graph.AttrBicycleInfra); enr != nil && enr.Value.Bool {
		return true
	}
	return false
}

func dominantClass(weights map[graph.RoadClass]float64) graph.RoadClass {
	classes := make([]graph.RoadClass, 0, len(weights))
	for c := range weights {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })
	best := classes[0]
	for _, c := range classes[1:] {
		if weights[c] > weights[best] {
			best = c
		}
	}
	return best
}

func dominantSurface(weights map[graph.SurfaceType]float64) graph.SurfaceType {
	surfaces := make([]graph.SurfaceType, 0, len(weights))
	for s := range weights {
		surfaces = append(surfaces, s)
	}
	sort.Slice(surfaces, func(i, j int) bool { return surfaces[i] < surfaces[j] })
	best := graph.SurfaceUnknown
	bestWeight := 0.0
	for _, s := range surfaces {
		if s == graph.SurfaceUnknown {
			continue
		}
		if weights[s] > bestWeight {
			best, bestWeight = s, weights[s]
		}
	}
	return best
}

// confidenceAccumulator aggregates length-weighted fused confidence per
// dimension, excluding edges that lack the attribute.
type confidenceAccumulator struct {
	sums    [5]float64
	weights [5]float64
}

const (
	dimSurface = iota
	dimSpeedLimit
	dimTrafficControl
	dimInfrastructure
	dimScenic
)

func newConfidenceAccumulator() *confidenceAccumulator {
	return &confidenceAccumulator{}
}

func (a *confidenceAccumulator) add(e *graph.Edge, w float64) {
	if enr := e.EnrichmentFor(graph.AttrSurface); enr != nil {
		a.record(dimSurface, enr.Confidence, w)
	}
	if enr := e.EnrichmentFor(graph.AttrSpeedLimit); enr != nil {
		a.record(dimSpeedLimit, enr.Confidence, w)
	}
	if conf, ok := trafficControlConfidence(e); ok {
		a.record(dimTrafficControl, conf, w)
	}
	if enr := e.EnrichmentFor(graph.AttrBicycleInfra); enr != nil {
		a.record(dimInfrastructure, enr.Confidence, w)
	}
	if enr := e.EnrichmentFor(graph.AttrScenic); enr != nil {
		a.record(dimScenic, enr.Confidence, w)
	}
}

func (a *confidenceAccumulator) record(dim int, conf, w float64) {
	a.sums[dim] += conf * w
	a.weights[dim] += w
}

func (a *confidenceAccumulator) finish() Confidence {
	dim := func(i int) *float64 {
		if a.weights[i] == 0 {
			return nil
		}
		v := a.sums[i] / a.weights[i]
		return &v
	}
	return Confidence{
		Surface:        dim(dimSurface),
		SpeedLimit:     dim(dimSpeedLimit),
		TrafficControl: dim(dimTrafficControl),
		Infrastructure: dim(dimInfrastructure),
		Scenic:         dim(dimScenic),
	}
}

// trafficControlConfidence is the strongest fused confidence among the
// point-detection kinds on the edge.
func trafficControlConfidence(e *graph.Edge) (float64, bool) {
	best := 0.0
	found := false
	for _, kind := range []graph.AttributeKind{graph.AttrStopSign, graph.AttrTrafficSignal, graph.AttrCrossing} {
		if enr := e.EnrichmentFor(kind); enr != nil {
			found = true
			if enr.Confidence > best {
				best = enr.Confidence
			}
		}
	}
	return best, found
}
