// Package enrich orchestrates observation providers over a target region
// and writes fused attribute enrichment back onto the street graph.
package enrich

import (
	"context"
	"errors"

	"github.com/looproute/looproute/internal/geo"
	"github.com/looproute/looproute/internal/graph"
)

// Sentinel errors for provider operations.
var (
	// ErrProviderUnavailable indicates the provider is down or its circuit
	// breaker is open.
	ErrProviderUnavailable = errors.New("observation provider unavailable")
	// ErrDecodeFailed indicates the provider payload could not be decoded.
	ErrDecodeFailed = errors.New("failed to decode provider payload")
)

// Provider supplies observations for a region. One implementation per
// concrete data source.
type Provider interface {
	// Source returns the provider's declared source identifier.
	Source() graph.DataSource
	// Attributes returns the attribute kinds this provider is registered
	// to supply. Observations for other kinds are discarded defensively.
	Attributes() []graph.AttributeKind
	// FetchObservations retrieves observations within the bounding box.
	FetchObservations(ctx context.Context, bounds geo.BoundingBox) ([]graph.Observation, error)
}

// Error provides detailed error information from a provider fetch.
type Error struct {
	Source  graph.DataSource
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StaticProvider serves a fixed observation set, filtered by bounds.
// Used by tests and by the demo binary's file-backed provider.
type StaticProvider struct {
	DataSource   graph.DataSource
	Provides     []graph.AttributeKind
	Observations []graph.Observation
	// FetchErr, when set, makes every fetch fail with it.
	FetchErr error
}

// Source implements Provider.
func (p *StaticProvider) Source() graph.DataSource { return p.DataSource }

// Attributes implements Provider.
func (p *StaticProvider) Attributes() []graph.AttributeKind { return p.Provides }

// FetchObservations returns the observations whose geometry intersects
// the bounds. Observations without geometry are always returned.
func (p *StaticProvider) FetchObservations(_ context.Context, bounds geo.BoundingBox) ([]graph.Observation, error) {
	if p.FetchErr != nil {
		return nil, p.FetchErr
	}
	out := make([]graph.Observation, 0, len(p.Observations))
	for _, o := range p.Observations {
		if len(o.Geometry) == 0 || bounds.Intersects(geo.NewBoundingBox(o.Geometry)) {
			out = append(out, o)
		}
	}
	return out, nil
}
