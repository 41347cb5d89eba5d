package reasoning_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looproute/looproute/internal/reasoning"
	"github.com/looproute/looproute/internal/search"
)

func TestNoopNeverFails(t *testing.T) {
	var interp reasoning.Interpreter = reasoning.Noop{}

	intent, err := interp.InterpretIntent(context.Background(), "a scenic 10k gravel loop heading north")
	require.NoError(t, err)
	assert.Zero(t, intent.MinDistanceMeters)
	assert.Nil(t, intent.PreferredBearing)

	critique, err := interp.CritiqueRoute(context.Background(), &search.Route{})
	require.NoError(t, err)
	assert.NotEmpty(t, critique.Summary)
}
