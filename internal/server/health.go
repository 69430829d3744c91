package server

import (
	"context"

	"github.com/openroam/tripgraph/internal/graph"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// ArchiveHealthService verifies archive-database connectivity as part of
// health checks. A relay running without an archive always probes healthy.
type ArchiveHealthService struct {
	Client graph.Client
}

// Probe implements the HealthService interface.
func (s ArchiveHealthService) Probe(ctx context.Context) error {
	if s.Client == nil {
		return nil
	}
	return s.Client.VerifyConnectivity(ctx)
}
