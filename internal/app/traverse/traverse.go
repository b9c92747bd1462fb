// Package traverse implements the bounded-depth subgraph query use case
// (§4.2): a thin orchestration layer over the injected DependencyRepository
// that enforces the max-depth cap and resolves the starting service.
package traverse

import (
	"context"

	"github.com/R3E-Network/slo-recommendation-engine/internal/app/ports"
	"github.com/R3E-Network/slo-recommendation-engine/pkg/errors"
)

// UseCase orchestrates bounded subgraph queries.
type UseCase struct {
	services       ports.ServiceRepository
	deps           ports.DependencyRepository
	maxAllowedDepth int
}

// New constructs the traversal use case. maxAllowedDepth is the hard cap
// from configuration (default 10, §6's max_traversal_depth).
func New(services ports.ServiceRepository, deps ports.DependencyRepository, maxAllowedDepth int) *UseCase {
	return &UseCase{services: services, deps: deps, maxAllowedDepth: maxAllowedDepth}
}

// QuerySubgraph resolves startServiceID and performs a bounded traversal,
// per §4.2's contract. depth is clamped into [1, maxAllowedDepth];
// includeStale controls whether stale edges are walked.
func (u *UseCase) QuerySubgraph(ctx context.Context, startServiceID string, direction ports.TraversalDirection, depth int, includeStale bool) (*ports.Subgraph, error) {
	if _, err := u.services.GetByServiceID(ctx, startServiceID); err != nil {
		return nil, err
	}

	if depth < 1 {
		depth = 1
	}
	if u.maxAllowedDepth > 0 && depth > u.maxAllowedDepth {
		depth = u.maxAllowedDepth
	}

	switch direction {
	case ports.DirectionDownstream, ports.DirectionUpstream, ports.DirectionBoth:
	default:
		return nil, errors.InvalidInput("direction", "must be downstream, upstream, or both")
	}

	return u.deps.Traverse(ctx, startServiceID, direction, depth, includeStale)
}
