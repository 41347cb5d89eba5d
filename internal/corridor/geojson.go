package corridor

import (
	geojson "github.com/paulmach/go.geojson"

	"github.com/looproute/looproute/internal/geo"
	"github.com/looproute/looproute/internal/graph"
)

// ToGeoJSON exports the network as a feature collection, one LineString
// feature per corridor and connector.
func (n *Network) ToGeoJSON() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, c := range n.Corridors {
		f := geojson.NewLineStringFeature(n.elementLine(c.EdgeIDs, c.StartNode))
		f.SetProperty("kind", "corridor")
		f.SetProperty("id", c.ID)
		f.SetProperty("name", c.Name)
		f.SetProperty("type", string(c.Type))
		f.SetProperty("length_m", c.LengthMeters)
		f.SetProperty("surface", c.PredominantSurface.String())
		f.SetProperty("infra_continuity", c.InfraContinuity)
		if c.ScenicRating != nil {
			f.SetProperty("scenic_rating", *c.ScenicRating)
		}
		for activity, s := range c.Scores {
			f.SetProperty("score_"+string(activity), s.Overall)
		}
		fc.AddFeature(f)
	}
	for _, c := range n.Connectors {
		f := geojson.NewLineStringFeature(n.elementLine(c.EdgeIDs, c.StartNode))
		f.SetProperty("kind", "connector")
		f.SetProperty("id", c.ID)
		f.SetProperty("length_m", c.LengthMeters)
		f.SetProperty("has_signal", c.HasSignal)
		f.SetProperty("has_stop_sign", c.HasStopSign)
		f.SetProperty("has_crossing", c.HasCrossing)
		f.SetProperty("crosses_major_road", c.CrossesMajorRoad)
		fc.AddFeature(f)
	}
	return fc
}

// elementLine concatenates the ordered member-edge geometries into one
// [lon, lat] coordinate sequence, reversing edges walked against their
// stored direction.
func (n *Network) elementLine(edgeIDs []graph.EdgeID, start graph.NodeID) [][]float64 {
	var line [][]float64
	at := start
	for _, id := range edgeIDs {
		e := n.g.Edge(id)
		coords := e.Geometry
		if e.To == at && e.From != at {
			coords = reversed(coords)
		}
		for i, c := range coords {
			if len(line) > 0 && i == 0 {
				continue
			}
			line = append(line, []float64{c.Lon, c.Lat})
		}
		at = n.g.OtherEnd(e, at)
	}
	return line
}

func reversed(coords []geo.Coordinate) []geo.Coordinate {
	out := make([]geo.Coordinate, len(coords))
	for i, c := range coords {
		out[len(coords)-1-i] = c
	}
	return out
}
