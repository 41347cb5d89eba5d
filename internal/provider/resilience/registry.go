package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// SourceHealth is the health status of one observation source.
type SourceHealth struct {
	// Name is the source identifier.
	Name string

	// CircuitState is the current circuit breaker state.
	CircuitState gobreaker.State

	// Counts contains circuit breaker statistics.
	Counts gobreaker.Counts

	// LastSuccessAt is when the source last returned observations.
	LastSuccessAt *time.Time

	// LastFailureAt is when the source last failed a fetch.
	LastFailureAt *time.Time

	// LastError is the most recent fetch error, if any.
	LastError string
}

// Healthy reports whether the source's circuit is closed.
func (h *SourceHealth) Healthy() bool {
	return h.CircuitState == gobreaker.StateClosed
}

// Registry tracks the resilient clients of registered observation
// sources and their fetch outcomes. A fresh registry is created per
// pipeline owner; there is no process-wide instance.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]*registeredSource
}

type registeredSource struct {
	client        *Client
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewRegistry creates an empty source registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]*registeredSource)}
}

// Register adds a source client to the registry.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[name] = &registeredSource{client: client}
}

// RecordSuccess records a successful fetch for a source.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sources[name]; ok {
		now := time.Now()
		s.lastSuccessAt = &now
	}
}

// RecordFailure records a failed fetch for a source.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sources[name]; ok {
		now := time.Now()
		s.lastFailureAt = &now
		if err != nil {
			s.lastError = err.Error()
		}
	}
}

// Health returns the health of one source, or nil when unknown.
func (r *Registry) Health(name string) *SourceHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[name]
	if !ok {
		return nil
	}
	return healthOf(name, s)
}

// AllHealth returns the health of every registered source, sorted by name.
func (r *Registry) AllHealth() []*SourceHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*SourceHealth, 0, len(r.sources))
	for name, s := range r.sources {
		out = append(out, healthOf(name, s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func healthOf(name string, s *registeredSource) *SourceHealth {
	return &SourceHealth{
		Name:          name,
		CircuitState:  s.client.State(),
		Counts:        s.client.Counts(),
		LastSuccessAt: s.lastSuccessAt,
		LastFailureAt: s.lastFailureAt,
		LastError:     s.lastError,
	}
}
