// Package graph holds the street-network domain model: nodes, edges with
// their attribute bags, and the per-attribute enrichment written back by
// the enrichment pipeline.
package graph

import (
	"sort"

	"github.com/looproute/looproute/internal/geo"
)

// NodeID identifies a graph node.
type NodeID int64

// EdgeID identifies a graph edge.
type EdgeID int64

// Node is a graph vertex. Immutable after graph construction.
type Node struct {
	ID    NodeID
	Coord geo.Coordinate
}

// InfraFlags are the infrastructure attributes of an edge.
type InfraFlags struct {
	DedicatedPath       bool
	Shoulder            bool
	PhysicallySeparated bool
}

// SurfaceInfo is the surface classification carried on the edge itself
// (as delivered by the parsed-graph supplier, before enrichment).
type SurfaceInfo struct {
	Type       SurfaceType
	Confidence float64
}

// Edge is a street segment between two nodes. Everything except the
// enrichment bag is immutable once the graph is built.
type Edge struct {
	ID            EdgeID
	From          NodeID
	To            NodeID
	Geometry      []geo.Coordinate
	LengthMeters  float64
	Class         RoadClass
	Surface       SurfaceInfo
	SpeedLimitKPH *float64
	Name          string
	Infra         InfraFlags

	// Enrichment is the per-attribute fused observation state, mutated in
	// place by the enrichment pipeline. Partial: absent kinds were never
	// observed.
	Enrichment map[AttributeKind]*AttributeEnrichment
}

// EnrichmentFor returns the enrichment entry for kind, or nil.
func (e *Edge) EnrichmentFor(kind AttributeKind) *AttributeEnrichment {
	if e.Enrichment == nil {
		return nil
	}
	return e.Enrichment[kind]
}

// SetEnrichment writes the fused result for kind, replacing any prior
// entry. Re-running the pipeline with identical inputs reproduces the
// same state.
func (e *Edge) SetEnrichment(kind AttributeKind, enr *AttributeEnrichment) {
	if e.Enrichment == nil {
		e.Enrichment = make(map[AttributeKind]*AttributeEnrichment)
	}
	e.Enrichment[kind] = enr
}

// HasInfra reports whether the edge has a dedicated or physically
// separated facility.
func (e *Edge) HasInfra() bool {
	return e.Infra.DedicatedPath || e.Infra.PhysicallySeparated
}

// Graph is the parsed street network. Nodes and edges are owned here;
// corridors reference edges by id only.
type Graph struct {
	nodes     map[NodeID]*Node
	edges     map[EdgeID]*Edge
	adjacency map[NodeID][]EdgeID
}

// New builds a graph from already-parsed node and edge collections, as
// delivered by the external parsed-graph supplier. Edge lengths are
// computed from geometry when the supplier left them zero.
func New(nodes []*Node, edges []*Edge) *Graph {
	g := &Graph{
		nodes:     make(map[NodeID]*Node, len(nodes)),
		edges:     make(map[EdgeID]*Edge, len(edges)),
		adjacency: make(map[NodeID][]EdgeID),
	}
	for _, n := range nodes {
		g.nodes[n.ID] = n
	}
	for _, e := range edges {
		if e.LengthMeters == 0 {
			e.LengthMeters = geo.PolylineLength(e.Geometry)
		}
		g.edges[e.ID] = e
		g.adjacency[e.From] = append(g.adjacency[e.From], e.ID)
		g.adjacency[e.To] = append(g.adjacency[e.To], e.ID)
	}
	for id := range g.adjacency {
		ids := g.adjacency[id]
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return g
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id NodeID) *Node {
	return g.nodes[id]
}

// Edge returns the edge with the given id, or nil.
func (g *Graph) Edge(id EdgeID) *Edge {
	return g.edges[id]
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// EdgesAt returns the ids of edges incident to the node, in ascending order.
func (g *Graph) EdgesAt(id NodeID) []EdgeID {
	return g.adjacency[id]
}

// Degree returns the number of edges incident to the node.
func (g *Graph) Degree(id NodeID) int {
	return len(g.adjacency[id])
}

// OtherEnd returns the node at the far end of the edge from the given node.
func (g *Graph) OtherEnd(e *Edge, from NodeID) NodeID {
	if e.From == from {
		return e.To
	}
	return e.From
}

// EdgeIDs returns all edge ids in ascending order, for deterministic walks.
func (g *Graph) EdgeIDs() []EdgeID {
	ids := make([]EdgeID, 0, len(g.edges))
	for id := range g.edges {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Bounds returns the bounding box enclosing every node coordinate.
func (g *Graph) Bounds() geo.BoundingBox {
	coords := make([]geo.Coordinate, 0, len(g.nodes))
	for _, n := range g.nodes {
		coords = append(coords, n.Coord)
	}
	return geo.NewBoundingBox(coords)
}
