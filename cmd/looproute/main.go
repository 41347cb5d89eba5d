// Package main provides the looproute command: it enriches a parsed
// street graph, clusters it into corridors, scores them for an activity
// and searches for loop routes.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/looproute/looproute/internal/corridor"
	"github.com/looproute/looproute/internal/enrich"
	"github.com/looproute/looproute/internal/geo"
	"github.com/looproute/looproute/internal/provider/resilience"
	"github.com/looproute/looproute/internal/scoring"
	"github.com/looproute/looproute/internal/search"
	"github.com/looproute/looproute/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	var (
		graphPath    = flag.String("graph", "", "parsed graph JSON (required)")
		obsPath      = flag.String("observations", "", "observation set JSON (optional)")
		networkOut   = flag.String("network-out", "network.geojson", "corridor network GeoJSON output")
		routesOut    = flag.String("routes-out", "", "ranked routes JSON output (requires -start)")
		activityFlag = flag.String("activity", "cycling", "activity: cycling, running or walking")
		startFlag    = flag.String("start", "", "loop start as lat,lon")
		minKM        = flag.Float64("min-km", 8, "minimum loop distance in kilometers")
		maxKM        = flag.Float64("max-km", 12, "maximum loop distance in kilometers")
		bearingFlag  = flag.Float64("bearing", -1, "preferred initial bearing in degrees, -1 to disable")
		turnsFlag    = flag.String("turns", "moderate", "turn frequency: minimal, moderate or frequent")
		alternatives = flag.Int("alternatives", 3, "maximum route alternatives")
		debug        = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Str("service", "looproute").
		Str("version", Version).
		Logger()

	if *graphPath == "" {
		flag.Usage()
		log.Fatal().Msg("-graph is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("build_time", BuildTime).Msg("starting looproute")

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "looproute",
		ServiceVersion: Version,
		Environment:    os.Getenv("APP_ENV"),
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Enabled:        os.Getenv("OTEL_ENABLED") == "true",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if err := run(ctx, log, tp, runOptions{
		graphPath:    *graphPath,
		obsPath:      *obsPath,
		networkOut:   *networkOut,
		routesOut:    *routesOut,
		activity:     corridor.ActivityType(*activityFlag),
		start:        *startFlag,
		minMeters:    *minKM * 1000,
		maxMeters:    *maxKM * 1000,
		bearing:      *bearingFlag,
		turns:        search.TurnFrequency(*turnsFlag),
		alternatives: *alternatives,
	}); err != nil {
		log.Fatal().Err(err).Msg("run failed")
	}
}

type runOptions struct {
	graphPath    string
	obsPath      string
	networkOut   string
	routesOut    string
	activity     corridor.ActivityType
	start        string
	minMeters    float64
	maxMeters    float64
	bearing      float64
	turns        search.TurnFrequency
	alternatives int
}

func run(ctx context.Context, log zerolog.Logger, tp *telemetry.Provider, opts runOptions) error {
	g, err := loadGraph(opts.graphPath)
	if err != nil {
		return err
	}
	log.Info().
		Int("nodes", g.NodeCount()).
		Int("edges", g.EdgeCount()).
		Msg("graph loaded")

	var providers []enrich.Provider
	if opts.obsPath != "" {
		source, kinds, observations, err := loadObservations(opts.obsPath)
		if err != nil {
			return err
		}
		providers = append(providers, &enrich.StaticProvider{
			DataSource:   source,
			Provides:     kinds,
			Observations: observations,
		})
		log.Info().
			Str("source", string(source)).
			Int("observations", len(observations)).
			Msg("observation set loaded")
	}

	pipelineMetrics, err := telemetry.NewPipelineMetrics(tp.Meter)
	if err != nil {
		return err
	}
	pipeline := enrich.NewPipeline(enrich.PipelineConfig{
		Providers: providers,
		Logger:    log,
		Metrics:   pipelineMetrics,
		Health:    resilience.NewRegistry(),
	})
	stats, err := pipeline.Run(ctx, g, g.Bounds())
	if err != nil {
		return err
	}
	log.Info().
		Int("enriched_edges", stats.EnrichedEdges).
		Int("conflicts", stats.Conflicts).
		Msg("enrichment complete")
	for _, h := range stats.SourceHealth {
		if !h.Healthy() {
			log.Warn().
				Str("source", h.Name).
				Str("error", h.LastError).
				Msg("observation source unhealthy")
		}
	}

	builder, err := corridor.NewBuilder(corridor.DefaultCompatibilityConfig(), log)
	if err != nil {
		return err
	}
	network := builder.Build(g)

	engine, err := scoring.NewEngine(scoring.DefaultParams(opts.activity), log)
	if err != nil {
		return err
	}
	engine.ScoreNetwork(network)

	if err := writeJSON(opts.networkOut, network.ToGeoJSON()); err != nil {
		return err
	}
	log.Info().Str("path", opts.networkOut).Msg("corridor network written")

	if opts.start == "" {
		return nil
	}

	start, err := parseCoordinate(opts.start)
	if err != nil {
		return err
	}
	req := search.Request{
		Start:             start,
		MinDistanceMeters: opts.minMeters,
		MaxDistanceMeters: opts.maxMeters,
		TurnFrequency:     opts.turns,
		MaxAlternatives:   opts.alternatives,
		Activity:          opts.activity,
	}
	if opts.bearing >= 0 {
		req.PreferredBearing = &opts.bearing
	}

	searchMetrics, err := telemetry.NewSearchMetrics(tp.Meter)
	if err != nil {
		return err
	}
	searcher := search.NewSearcher(network, search.Config{}, log, searchMetrics)
	result, err := searcher.Search(ctx, req)
	if err != nil {
		if errors.Is(err, search.ErrNoQualifyingRoute) {
			log.Warn().Err(err).Msg("no qualifying loop in the requested window")
		}
		return err
	}
	if result.Incomplete {
		log.Warn().Msg("search budget exhausted; results may be incomplete")
	}

	out := opts.routesOut
	if out == "" {
		out = "routes.json"
	}
	if err := writeJSON(out, result.Routes); err != nil {
		return err
	}
	log.Info().
		Str("path", out).
		Int("routes", len(result.Routes)).
		Float64("best_score", result.Routes[0].Score).
		Msg("routes written")
	return nil
}

func parseCoordinate(s string) (geo.Coordinate, error) {
	var c geo.Coordinate
	if _, err := fmt.Sscanf(s, "%f,%f", &c.Lat, &c.Lon); err != nil {
		return c, fmt.Errorf("invalid coordinate %q: %w", s, err)
	}
	if !c.Valid() {
		return c, fmt.Errorf("coordinate %q out of range", s)
	}
	return c, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
