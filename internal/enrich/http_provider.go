package enrich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/looproute/looproute/internal/geo"
	"github.com/looproute/looproute/internal/graph"
	"github.com/looproute/looproute/internal/provider/resilience"
)

// DecodeFunc turns a provider payload into observations.
type DecodeFunc func(body []byte) ([]graph.Observation, error)

// HTTPProviderConfig holds configuration for an HTTP-backed provider.
type HTTPProviderConfig struct {
	// BaseURL is the provider endpoint; the query bounding box is sent as
	// minLat/minLon/maxLat/maxLon query parameters.
	BaseURL string

	// Source is the declared source identifier.
	Source graph.DataSource

	// Attributes is the declared attribute coverage.
	Attributes []graph.AttributeKind

	// Decode converts a response body into observations.
	Decode DecodeFunc

	// Client is the resilient HTTP client; a default one is created when
	// nil.
	Client *resilience.Client

	// Logger for fetch operations.
	Logger zerolog.Logger
}

// HTTPProvider fetches observations from a remote endpoint through the
// resilient client (retry + circuit breaker). Concrete integrations
// supply only a decode function.
type HTTPProvider struct {
	cfg    HTTPProviderConfig
	client *resilience.Client
	logger zerolog.Logger
}

// NewHTTPProvider creates an HTTP-backed observation provider.
func NewHTTPProvider(cfg HTTPProviderConfig) (*HTTPProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("http provider: BaseURL is required")
	}
	if cfg.Decode == nil {
		return nil, fmt.Errorf("http provider: Decode is required")
	}
	client := cfg.Client
	if client == nil {
		client = resilience.NewClient(resilience.ClientConfig{
			Name:   string(cfg.Source),
			Logger: cfg.Logger,
		})
	}
	return &HTTPProvider{cfg: cfg, client: client, logger: cfg.Logger}, nil
}

// Source implements Provider.
func (p *HTTPProvider) Source() graph.DataSource { return p.cfg.Source }

// Attributes implements Provider.
func (p *HTTPProvider) Attributes() []graph.AttributeKind { return p.cfg.Attributes }

// Client exposes the underlying resilient client for health registration.
func (p *HTTPProvider) Client() *resilience.Client { return p.client }

// FetchObservations implements Provider.
func (p *HTTPProvider) FetchObservations(ctx context.Context, bounds geo.BoundingBox) ([]graph.Observation, error) {
	u, err := url.Parse(p.cfg.BaseURL)
	if err != nil {
		return nil, &Error{Source: p.cfg.Source, Code: "BAD_URL", Message: "invalid provider URL", Err: err}
	}
	q := u.Query()
	q.Set("minLat", formatCoord(bounds.MinLat))
	q.Set("minLon", formatCoord(bounds.MinLon))
	q.Set("maxLat", formatCoord(bounds.MaxLat))
	q.Set("maxLon", formatCoord(bounds.MaxLon))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &Error{Source: p.cfg.Source, Code: "BAD_REQUEST", Message: "failed to build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, &Error{Source: p.cfg.Source, Code: "FETCH_FAILED", Message: "provider fetch failed", Err: wrapUnavailable(err)}
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			Source:  p.cfg.Source,
			Code:    "HTTP_" + strconv.Itoa(resp.StatusCode),
			Message: "provider returned non-OK status",
			Err:     ErrProviderUnavailable,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Source: p.cfg.Source, Code: "READ_FAILED", Message: "failed to read provider response", Err: err}
	}

	obs, err := p.cfg.Decode(body)
	if err != nil {
		return nil, &Error{Source: p.cfg.Source, Code: "DECODE_FAILED", Message: "failed to decode provider response", Err: ErrDecodeFailed}
	}

	p.logger.Debug().
		Str("source", string(p.cfg.Source)).
		Int("observations", len(obs)).
		Msg("fetched provider observations")
	return obs, nil
}

func wrapUnavailable(err error) error {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return ErrProviderUnavailable
	}
	return err
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
