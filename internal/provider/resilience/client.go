// Package resilience wraps outbound observation-provider calls with
// circuit breakers, timeouts and exponential-backoff retries so one
// flaky data source cannot stall an enrichment pass.
package resilience

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// Predefined errors for resilient fetches.
var (
	// ErrCircuitOpen is returned when the provider's circuit breaker is open.
	ErrCircuitOpen = errors.New("provider circuit breaker is open")

	// ErrMaxRetriesExceeded is returned when all retry attempts have been
	// exhausted.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// ClientConfig holds configuration for a resilient provider client.
type ClientConfig struct {
	// Name identifies the provider for breaker naming and logs.
	Name string

	// Timeout is the per-request timeout. Default: 10 seconds.
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts. Default: 3.
	MaxRetries uint64

	// InitialInterval is the initial retry backoff. Default: 100ms.
	InitialInterval time.Duration

	// MaxInterval is the maximum retry backoff. Default: 5 seconds.
	MaxInterval time.Duration

	// BreakerTimeout is the open-state period before the breaker probes
	// again. Default: 60 seconds.
	BreakerTimeout time.Duration

	// Logger receives breaker state transitions.
	Logger zerolog.Logger
}

// Client executes provider HTTP requests behind a circuit breaker with
// retry on transient failures.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	config     ClientConfig
}

// NewClient creates a resilient provider client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 5 * time.Second
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 60 * time.Second
	}

	logger := cfg.Logger
	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("provider circuit breaker state change")
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		config:     cfg,
	}
}

// Do executes the request with breaker protection and retries transient
// failures (network errors, 5xx) with exponential backoff. Returns
// ErrCircuitOpen immediately while the breaker is open.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.InitialInterval
	bo.MaxInterval = c.config.MaxInterval
	bo.MaxElapsedTime = 0 // retry count is the only cap

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.config.MaxRetries), ctx)

	var lastResp *http.Response
	operation := func() error {
		resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // caller closes
			r, err := c.httpClient.Do(req.Clone(ctx))
			if err != nil {
				return nil, err
			}
			// 5xx trips the breaker and is retried.
			if r.StatusCode >= 500 {
				return r, &ServerError{StatusCode: r.StatusCode}
			}
			return r, nil
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			if resp != nil {
				lastResp = resp
			}
			return err
		}
		lastResp = resp
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		if lastResp != nil {
			return lastResp, nil
		}
		return nil, err
	}
	return lastResp, nil
}

// State returns the current circuit breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the current circuit breaker counts.
func (c *Client) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}

// ServerError represents an HTTP 5xx response from a provider.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "provider server error: " + http.StatusText(e.StatusCode)
}
