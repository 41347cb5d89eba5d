package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/looproute/looproute/internal/geo"
	"github.com/looproute/looproute/internal/graph"
)

// graphFile is the parsed-graph supplier contract: node and edge
// collections produced by an external map parser.
type graphFile struct {
	Nodes []nodeRecord `json:"nodes"`
	Edges []edgeRecord `json:"edges"`
}

type nodeRecord struct {
	ID  int64   `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type edgeRecord struct {
	ID            int64       `json:"id"`
	From          int64       `json:"from"`
	To            int64       `json:"to"`
	Geometry      [][]float64 `json:"geometry"`
	Class         string      `json:"class"`
	Surface       string      `json:"surface,omitempty"`
	SurfaceConf   float64     `json:"surface_confidence,omitempty"`
	SpeedLimitKPH *float64    `json:"speed_limit_kph,omitempty"`
	Name          string      `json:"name,omitempty"`
	Infra         infraRecord `json:"infra,omitempty"`
}

type infraRecord struct {
	DedicatedPath       bool `json:"dedicated_path,omitempty"`
	Shoulder            bool `json:"shoulder,omitempty"`
	PhysicallySeparated bool `json:"physically_separated,omitempty"`
}

func loadGraph(path string) (*graph.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading graph file: %w", err)
	}
	var gf graphFile
	if err := json.Unmarshal(data, &gf); err != nil {
		return nil, fmt.Errorf("decoding graph file: %w", err)
	}

	nodes := make([]*graph.Node, len(gf.Nodes))
	for i, n := range gf.Nodes {
		nodes[i] = &graph.Node{
			ID:    graph.NodeID(n.ID),
			Coord: geo.Coordinate{Lat: n.Lat, Lon: n.Lon},
		}
	}
	edges := make([]*graph.Edge, len(gf.Edges))
	for i, e := range gf.Edges {
		edges[i] = &graph.Edge{
			ID:       graph.EdgeID(e.ID),
			From:     graph.NodeID(e.From),
			To:       graph.NodeID(e.To),
			Geometry: decodeLine(e.Geometry),
			Class:    graph.ParseRoadClass(e.Class),
			Surface: graph.SurfaceInfo{
				Type:       graph.ParseSurface(e.Surface),
				Confidence: e.SurfaceConf,
			},
			SpeedLimitKPH: e.SpeedLimitKPH,
			Name:          e.Name,
			Infra: graph.InfraFlags{
				DedicatedPath:       e.Infra.DedicatedPath,
				Shoulder:            e.Infra.Shoulder,
				PhysicallySeparated: e.Infra.PhysicallySeparated,
			},
		}
	}
	return graph.New(nodes, edges), nil
}

// observationFile is the optional file-backed observation set.
type observationFile struct {
	Source       string              `json:"source"`
	Attributes   []string            `json:"attributes"`
	Observations []observationRecord `json:"observations"`
}

type observationRecord struct {
	Attribute  string      `json:"attribute"`
	Surface    string      `json:"surface,omitempty"`
	Number     float64     `json:"number,omitempty"`
	Bool       bool        `json:"bool,omitempty"`
	Point      []float64   `json:"point,omitempty"`
	Confidence float64     `json:"confidence"`
	ObservedAt *time.Time  `json:"observed_at,omitempty"`
	Geometry   [][]float64 `json:"geometry"`
}

func loadObservations(path string) (graph.DataSource, []graph.AttributeKind, []graph.Observation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, nil, fmt.Errorf("reading observations file: %w", err)
	}
	var of observationFile
	if err := json.Unmarshal(data, &of); err != nil {
		return "", nil, nil, fmt.Errorf("decoding observations file: %w", err)
	}

	source := graph.DataSource(of.Source)
	kinds := make([]graph.AttributeKind, len(of.Attributes))
	for i, a := range of.Attributes {
		kinds[i] = graph.AttributeKind(a)
	}
	observations := make([]graph.Observation, 0, len(of.Observations))
	for _, rec := range of.Observations {
		kind := graph.AttributeKind(rec.Attribute)
		obs := graph.Observation{
			Attribute:  kind,
			Source:     source,
			Confidence: rec.Confidence,
			ObservedAt: rec.ObservedAt,
			Geometry:   decodeLine(rec.Geometry),
		}
		switch kind.Family() {
		case graph.FamilyCategorical:
			obs.Value = graph.SurfaceValue(graph.ParseSurface(rec.Surface))
		case graph.FamilyNumeric:
			obs.Value = graph.NumberValue(rec.Number)
		case graph.FamilyBoolean:
			obs.Value = graph.BoolValue(rec.Bool)
		default:
			if len(rec.Point) == 2 {
				obs.Value = graph.PointValue(geo.Coordinate{Lat: rec.Point[0], Lon: rec.Point[1]})
			} else if len(obs.Geometry) > 0 {
				obs.Value = graph.PointValue(obs.Geometry[0])
			}
		}
		observations = append(observations, obs)
	}
	return source, kinds, observations, nil
}

// decodeLine converts [lat, lon] pairs into coordinates, skipping
// malformed entries.
func decodeLine(pairs [][]float64) []geo.Coordinate {
	coords := make([]geo.Coordinate, 0, len(pairs))
	for _, p := range pairs {
		if len(p) != 2 {
			continue
		}
		coords = append(coords, geo.Coordinate{Lat: p[0], Lon: p[1]})
	}
	return coords
}
