// Package external orchestrates pluggable external media services:
// probing which service handles an id, rate limiting outbound calls,
// and persisting the subscribed-resource index.
package external

import (
	"context"
	"sort"

	"github.com/sonarhq/sonar/pkg/sonar"
)

// Registry holds the registered external services sorted by priority.
// Registration is one-shot at construction.
type Registry struct {
	services []sonar.ExternalService
}

// NewRegistry sorts the services by ascending priority.
func NewRegistry(services []sonar.ExternalService) *Registry {
	sorted := make([]sonar.ExternalService, len(services))
	copy(sorted, services)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})
	return &Registry{services: sorted}
}

// Services returns the services in priority order.
func (r *Registry) Services() []sonar.ExternalService { return r.services }

// Resolve probes each service in priority order; the first one
// reporting a concrete media type wins.
func (r *Registry) Resolve(ctx context.Context, id sonar.ExternalMediaID) (sonar.ExternalService, sonar.ExternalMediaType, error) {
	for _, svc := range r.services {
		kind, err := svc.Probe(ctx, id)
		if err != nil {
			continue
		}
		if kind != sonar.ExternalUnsupported {
			return svc, kind, nil
		}
	}
	return nil, sonar.ExternalUnsupported,
		sonar.Errorf(sonar.ErrInvalid, "no external service handles %q", id)
}
