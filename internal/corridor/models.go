// Package corridor clusters enriched graph edges into corridors --
// maximal chains of similar character -- and connectors, forming the
// network the route search runs on.
package corridor

import (
	"github.com/looproute/looproute/internal/graph"
)

// ActivityType selects the parameter set routes are scored under.
type ActivityType string

const (
	ActivityCycling ActivityType = "cycling"
	ActivityRunning ActivityType = "running"
	ActivityWalking ActivityType = "walking"
)

// CorridorType is the broad character of a corridor, derived from its
// dominant road-class group.
type CorridorType string

const (
	TypeArterial     CorridorType = "arterial"
	TypeNeighborhood CorridorType = "neighborhood"
	TypeCycleway     CorridorType = "cycleway"
	TypeTrail        CorridorType = "trail"
	TypeTrack        CorridorType = "track"
)

func typeForGroup(g graph.ClassGroup) CorridorType {
	switch g {
	case graph.GroupLadder:
		return TypeArterial
	case graph.GroupLocal:
		return TypeNeighborhood
	case graph.GroupCycleway:
		return TypeCycleway
	case graph.GroupPathFoot:
		return TypeTrail
	default:
		return TypeTrack
	}
}

// Score is the multi-dimensional quality of a corridor for one activity.
// All dimensions and the composite are in [0, 1].
type Score struct {
	Flow      float64
	Safety    float64
	Surface   float64
	Character float64
	Scenic    float64
	Elevation float64
	Overall   float64
}

// Confidence is the length-weighted aggregate confidence per data
// dimension across a corridor's member edges. A nil dimension means no
// member edge reported that attribute.
type Confidence struct {
	Surface        *float64
	SpeedLimit     *float64
	TrafficControl *float64
	Infrastructure *float64
	Scenic         *float64
}

// Corridor is a maximal ordered chain of mutually compatible edges.
// Corridors reference edges by id only; the graph keeps ownership.
type Corridor struct {
	ID   int64
	Name string
	Type CorridorType

	// EdgeIDs is ordered: consecutive edges share a node.
	EdgeIDs      []graph.EdgeID
	StartNode    graph.NodeID
	EndNode      graph.NodeID
	LengthMeters float64

	PredominantSurface graph.SurfaceType
	InfraContinuity    float64
	ScenicRating       *float64
	Confidence         Confidence

	// Scores is populated by the scoring engine, one entry per activity.
	Scores map[ActivityType]Score
}

// Connector is a short edge chain linking corridors without qualifying
// as one. It carries crossing-difficulty metadata for the search.
type Connector struct {
	ID           int64
	EdgeIDs      []graph.EdgeID
	StartNode    graph.NodeID
	EndNode      graph.NodeID
	LengthMeters float64

	HasSignal        bool
	HasStopSign      bool
	HasCrossing      bool
	CrossesMajorRoad bool
}

// ElementKind distinguishes network elements.
type ElementKind uint8

const (
	ElementCorridor = ElementKind(iota + 1)
	ElementConnector
)

// ElementRef addresses one corridor or connector inside a network.
type ElementRef struct {
	Kind  ElementKind
	Index int
}

// Network is the corridor set plus connectors, with endpoint adjacency
// for traversal.
type Network struct {
	Corridors  []*Corridor
	Connectors []*Connector

	g      *graph.Graph
	byNode map[graph.NodeID][]ElementRef
}

// NewNetwork assembles a network from prebuilt elements. The builder is
// the usual source; loaders and tests can assemble directly.
func NewNetwork(g *graph.Graph, corridors []*Corridor, connectors []*Connector) *Network {
	n := &Network{
		Corridors:  corridors,
		Connectors: connectors,
		g:          g,
		byNode:     make(map[graph.NodeID][]ElementRef),
	}
	for i, c := range corridors {
		n.addElement(ElementRef{Kind: ElementCorridor, Index: i}, c.StartNode, c.EndNode)
	}
	for i, c := range connectors {
		n.addElement(ElementRef{Kind: ElementConnector, Index: i}, c.StartNode, c.EndNode)
	}
	return n
}

// Graph returns the underlying street graph.
func (n *Network) Graph() *graph.Graph { return n.g }

// ElementsAt returns the elements with an endpoint at the node.
func (n *Network) ElementsAt(id graph.NodeID) []ElementRef {
	return n.byNode[id]
}

// EndpointNodes returns every node that is a corridor or connector
// endpoint.
func (n *Network) EndpointNodes() []graph.NodeID {
	nodes := make([]graph.NodeID, 0, len(n.byNode))
	for id := range n.byNode {
		nodes = append(nodes, id)
	}
	return nodes
}

// Endpoints returns the two endpoint nodes of the element.
func (n *Network) Endpoints(ref ElementRef) (graph.NodeID, graph.NodeID) {
	if ref.Kind == ElementCorridor {
		c := n.Corridors[ref.Index]
		return c.StartNode, c.EndNode
	}
	c := n.Connectors[ref.Index]
	return c.StartNode, c.EndNode
}

// Length returns the element's total length in meters.
func (n *Network) Length(ref ElementRef) float64 {
	if ref.Kind == ElementCorridor {
		return n.Corridors[ref.Index].LengthMeters
	}
	return n.Connectors[ref.Index].LengthMeters
}

// Edges returns the element's ordered edge ids.
func (n *Network) Edges(ref ElementRef) []graph.EdgeID {
	if ref.Kind == ElementCorridor {
		return n.Corridors[ref.Index].EdgeIDs
	}
	return n.Connectors[ref.Index].EdgeIDs
}

func (n *Network) addElement(ref ElementRef, a, b graph.NodeID) {
	n.byNode[a] = append(n.byNode[a], ref)
	if b != a {
		n.byNode[b] = append(n.byNode[b], ref)
	}
}
