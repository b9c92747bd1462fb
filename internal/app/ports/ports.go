// Package ports declares the collaborator interfaces the application layer
// depends on: repositories, the telemetry adapter, clock, and PRNG. Every
// use case accepts these as constructor parameters; nothing in this package
// reaches into a concrete adapter.
package ports

import (
	"context"
	"time"

	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/audit"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/graph"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/recommendation"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/service"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/sli"
)

// ServiceFilter narrows a ServiceRepository.ListAll call.
type ServiceFilter struct {
	Team              string
	Criticality       service.Criticality
	IncludeDiscovered bool
}

// ServiceRepository owns Service entities.
type ServiceRepository interface {
	GetByServiceID(ctx context.Context, serviceID string) (*service.Service, error)
	ListAll(ctx context.Context, skip, limit int, filter ServiceFilter) ([]*service.Service, error)
	UpsertMany(ctx context.Context, services []*service.Service) error
}

// TraversalDirection controls which direction DependencyRepository.Traverse
// walks the graph.
type TraversalDirection string

const (
	DirectionDownstream TraversalDirection = "downstream"
	DirectionUpstream   TraversalDirection = "upstream"
	DirectionBoth       TraversalDirection = "both"
)

// Subgraph is the result of a bounded traversal: the reachable node and
// edge sets, the depth actually reached, and whether a cycle was
// encountered along the way.
type Subgraph struct {
	Nodes       []string
	Edges       []*graph.Edge
	ReachedDepth int
	HasCycle    bool
}

// DependencyRepository owns dependency edges.
type DependencyRepository interface {
	UpsertMany(ctx context.Context, edges []*graph.Edge) error
	Traverse(ctx context.Context, start string, direction TraversalDirection, maxDepth int, includeStale bool) (*Subgraph, error)
	ListBySource(ctx context.Context, serviceID string) ([]*graph.Edge, error)
	MarkStaleOlderThan(ctx context.Context, threshold time.Duration) (int, error)
	// DetectCycles runs Tarjan's SCC over the current non-stale edge set
	// restricted to nodeIDs, returning every component with more than one
	// member (§4.2). Ingest calls this against a consistent snapshot after
	// every upsert.
	DetectCycles(ctx context.Context, nodeIDs []string) ([][]string, error)
}

// TelemetryQuery is the read-only collaborator over observed SLI data. Any
// method may return (nil, nil) when the requested data is simply absent —
// that is not itself an error.
type TelemetryQuery interface {
	AvailabilitySLI(ctx context.Context, serviceID string, window sli.Window) (*sli.AvailabilitySLI, error)
	LatencyPercentiles(ctx context.Context, serviceID string, window sli.Window) (*sli.LatencySLI, error)
	RollingAvailability(ctx context.Context, serviceID string, window sli.Window, bucket time.Duration) ([]sli.RollingBucket, error)
	DataCompleteness(ctx context.Context, serviceID string, window sli.Window) (*float64, error)
}

// RecommendationRepository owns Recommendation entities.
type RecommendationRepository interface {
	GetActive(ctx context.Context, serviceID string, sliType *recommendation.SLIType) ([]*recommendation.Recommendation, error)
	Save(ctx context.Context, rec *recommendation.Recommendation) error
	SaveBatch(ctx context.Context, recs []*recommendation.Recommendation) error
	SupersedeActive(ctx context.Context, serviceID string, sliType recommendation.SLIType) error
	ExpireStale(ctx context.Context, now time.Time) (int, error)
}

// AuditStore is the append-only audit log.
type AuditStore interface {
	Append(ctx context.Context, entry *audit.Entry) error
	ListByService(ctx context.Context, serviceID string) ([]*audit.Entry, error)
}

// CycleRepository owns CircularDependencyRecord rows, keyed by their
// canonical sorted-member identity (§3, §8: "exactly one canonical record
// exists" per SCC). Ingest upserts into it after every cycle-detection
// pass; Upsert reports whether the canonical id was previously unseen so
// the ingest report's newly_detected_cycles can be distinguished from
// cycles that were already known.
type CycleRepository interface {
	Upsert(ctx context.Context, rec *graph.CircularDependencyRecord) (isNew bool, err error)
	ListOpen(ctx context.Context) ([]*graph.CircularDependencyRecord, error)
}

// TransactionalRecommendationRepository is an optional capability a
// RecommendationRepository adapter may additionally implement: the
// supersede-then-insert pair of §4.3 step 12 / §4.7 performed as a single
// atomic unit. The pipeline's persist step type-asserts for this and falls
// back to SupersedeActive followed by Save when the injected adapter
// doesn't provide it (acceptable for the in-memory adapter, whose mutex
// already serializes the pair; required for real transactional stores).
type TransactionalRecommendationRepository interface {
	RecommendationRepository
	SupersedeAndInsert(ctx context.Context, rec *recommendation.Recommendation) error
}

// Clock yields the current instant; re-exported here so application code
// depends on the port package rather than reaching into pkg/clock directly.
type Clock interface {
	Now() time.Time
}

// PRNG is a seeded random source for bootstrap resampling.
type PRNG interface {
	IntN(n int) int
}
