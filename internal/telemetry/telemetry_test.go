package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looproute/looproute/internal/telemetry"
)

func TestInitDisabled(t *testing.T) {
	tp, err := telemetry.Init(context.Background(), telemetry.Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, tp)

	// Noop tracer and meter still work.
	assert.NotNil(t, tp.Tracer)
	assert.NotNil(t, tp.Meter)
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestMetricBundles(t *testing.T) {
	tp, err := telemetry.Init(context.Background(), telemetry.Config{Enabled: false})
	require.NoError(t, err)

	pm, err := telemetry.NewPipelineMetrics(tp.Meter)
	require.NoError(t, err)
	require.NotNil(t, pm)

	// Recording on the noop meter is a no-op but must not panic, and the
	// helpers tolerate a nil bundle.
	ctx := context.Background()
	pm.RecordFetched(ctx, "osm", 10)
	pm.RecordUnmatched(ctx, "osm")
	pm.RecordFailure(ctx, "osm")

	var nilPM *telemetry.PipelineMetrics
	nilPM.RecordFetched(ctx, "osm", 1)
	nilPM.RecordUnmatched(ctx, "osm")
	nilPM.RecordFailure(ctx, "osm")

	sm, err := telemetry.NewSearchMetrics(tp.Meter)
	require.NoError(t, err)
	assert.NotNil(t, sm)
}
