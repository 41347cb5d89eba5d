// Package reasoning defines the optional natural-language layer around
// route search. The core never depends on a real implementation.
package reasoning

import (
	"context"

	"github.com/looproute/looproute/internal/search"
)

// SearchIntent is a structured reading of a free-text route request.
// Zero-valued fields mean the text expressed no preference.
type SearchIntent struct {
	MinDistanceMeters float64
	MaxDistanceMeters float64
	PreferredBearing  *float64
	TurnFrequency     search.TurnFrequency
	WantsScenic       bool
	WantsUnpaved      bool
}

// Critique is a qualitative assessment of a finished route.
type Critique struct {
	Summary  string
	Warnings []string
}

// Interpreter translates free-text intent and critiques routes.
type Interpreter interface {
	InterpretIntent(ctx context.Context, text string) (SearchIntent, error)
	CritiqueRoute(ctx context.Context, route *search.Route) (Critique, error)
}

// Noop is the stand-in implementation. It returns neutral values and
// never fails.
type Noop struct{}

var _ Interpreter = Noop{}

func (Noop) InterpretIntent(ctx context.Context, text string) (SearchIntent, error) {
	return SearchIntent{}, nil
}

func (Noop) CritiqueRoute(ctx context.Context, route *search.Route) (Critique, error) {
	return Critique{Summary: "no critique available"}, nil
}
