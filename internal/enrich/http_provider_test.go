package enrich_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looproute/looproute/internal/enrich"
	"github.com/looproute/looproute/internal/geo"
	"github.com/looproute/looproute/internal/graph"
)

type surfacePayload struct {
	Surface    string      `json:"surface"`
	Confidence float64     `json:"confidence"`
	Geometry   [][]float64 `json:"geometry"`
}

func decodeSurfaces(body []byte) ([]graph.Observation, error) {
	var payload []surfacePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	obs := make([]graph.Observation, 0, len(payload))
	for _, p := range payload {
		geom := make([]geo.Coordinate, 0, len(p.Geometry))
		for _, pair := range p.Geometry {
			geom = append(geom, geo.Coordinate{Lat: pair[0], Lon: pair[1]})
		}
		obs = append(obs, graph.Observation{
			Attribute:  graph.AttrSurface,
			Source:     graph.SourceMunicipal,
			Value:      graph.SurfaceValue(graph.ParseSurface(p.Surface)),
			Confidence: p.Confidence,
			Geometry:   geom,
		})
	}
	return obs, nil
}

func testBounds() geo.BoundingBox {
	return geo.NewBoundingBox([]geo.Coordinate{
		{Lat: 52.0, Lon: 4.0},
		{Lat: 52.1, Lon: 4.1},
	})
}

func TestHTTPProviderFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The bounding box travels as query parameters.
		assert.Equal(t, "52.000000", r.URL.Query().Get("minLat"))
		assert.Equal(t, "4.100000", r.URL.Query().Get("maxLon"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"surface":"gravel","confidence":0.8,"geometry":[[52.05,4.05]]}]`))
	}))
	defer server.Close()

	provider, err := enrich.NewHTTPProvider(enrich.HTTPProviderConfig{
		BaseURL:    server.URL,
		Source:     graph.SourceMunicipal,
		Attributes: []graph.AttributeKind{graph.AttrSurface},
		Decode:     decodeSurfaces,
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)

	obs, err := provider.FetchObservations(context.Background(), testBounds())
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, graph.SurfaceGravel, obs[0].Value.Surface)
	assert.InDelta(t, 0.8, obs[0].Confidence, 1e-9)
}

func TestHTTPProviderNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, err := enrich.NewHTTPProvider(enrich.HTTPProviderConfig{
		BaseURL:    server.URL,
		Source:     graph.SourceMunicipal,
		Attributes: []graph.AttributeKind{graph.AttrSurface},
		Decode:     decodeSurfaces,
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)

	_, err = provider.FetchObservations(context.Background(), testBounds())
	require.Error(t, err)
	assert.ErrorIs(t, err, enrich.ErrProviderUnavailable)

	var provErr *enrich.Error
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "HTTP_404", provErr.Code)
}

func TestHTTPProviderDecodeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	provider, err := enrich.NewHTTPProvider(enrich.HTTPProviderConfig{
		BaseURL:    server.URL,
		Source:     graph.SourceMunicipal,
		Attributes: []graph.AttributeKind{graph.AttrSurface},
		Decode:     decodeSurfaces,
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)

	_, err = provider.FetchObservations(context.Background(), testBounds())
	assert.ErrorIs(t, err, enrich.ErrDecodeFailed)
}

func TestNewHTTPProviderValidation(t *testing.T) {
	_, err := enrich.NewHTTPProvider(enrich.HTTPProviderConfig{Decode: decodeSurfaces})
	assert.Error(t, err)

	_, err = enrich.NewHTTPProvider(enrich.HTTPProviderConfig{BaseURL: "http://localhost"})
	assert.Error(t, err)
}
