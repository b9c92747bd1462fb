// Package graph defines the dependency-edge and circular-dependency entities
// that the ingest, traversal, and composite-math components operate over.
package graph

import (
	"sort"
	"strings"
	"time"

	"github.com/R3E-Network/slo-recommendation-engine/pkg/errors"
)

// CommunicationMode describes how a source service calls a target.
type CommunicationMode string

const (
	CommunicationSync  CommunicationMode = "sync"
	CommunicationAsync CommunicationMode = "async"
)

// Criticality indicates whether a dependency's failure propagates.
type Criticality string

const (
	CriticalityHard Criticality = "hard" // failure propagates
	CriticalitySoft Criticality = "soft" // degraded path permitted
)

// DiscoverySource is the origin of an observed edge, ranked by trust.
type DiscoverySource string

const (
	SourceManual           DiscoverySource = "manual"
	SourceServiceMesh       DiscoverySource = "service_mesh"
	SourceOTelServiceGraph DiscoverySource = "otel_service_graph"
	SourceKubernetes       DiscoverySource = "kubernetes"
)

// sourcePriority ranks discovery sources highest-trust first; lower number
// wins when merging the effective view of a (source, target) pair.
var sourcePriority = map[DiscoverySource]int{
	SourceManual:           0,
	SourceServiceMesh:      1,
	SourceOTelServiceGraph: 2,
	SourceKubernetes:       3,
}

// DefaultConfidence returns the confidence score assigned at ingest time for
// a given discovery source (§4.1). Unknown sources get the lowest baked-in
// confidence rather than failing, since the source set is documented as
// extensible.
func DefaultConfidence(src DiscoverySource) float64 {
	switch src {
	case SourceManual:
		return 1.0
	case SourceServiceMesh:
		return 0.9
	case SourceOTelServiceGraph:
		return 0.7
	case SourceKubernetes:
		return 0.5
	default:
		return 0.5
	}
}

// Priority returns the merge priority of src; lower wins. Unranked sources
// sort after all known ones.
func Priority(src DiscoverySource) int {
	if p, ok := sourcePriority[src]; ok {
		return p
	}
	return len(sourcePriority)
}

// Edge is a directed dependency relationship observed from one source.
type Edge struct {
	Source          string
	Target          string
	CommunicationMode CommunicationMode
	Criticality     Criticality
	Protocol        string
	TimeoutMS       *int
	RetryConfig     string
	DiscoverySource DiscoverySource
	ConfidenceScore float64
	LastObservedAt  time.Time
	IsStale         bool
}

// New validates and constructs an Edge. Source and target must differ — no
// self loops are permitted anywhere in the graph.
func New(source, target string, mode CommunicationMode, crit Criticality, protocol string, discoverySource DiscoverySource, observedAt time.Time) (*Edge, error) {
	if source == "" || target == "" {
		return nil, errors.InvalidInput("source/target", "must not be empty")
	}
	if source == target {
		return nil, errors.InvalidInput("target", "self loops are not permitted: source must differ from target")
	}
	if mode != CommunicationSync && mode != CommunicationAsync {
		return nil, errors.InvalidInput("communication_mode", "must be sync or async")
	}
	if crit != CriticalityHard && crit != CriticalitySoft {
		return nil, errors.InvalidInput("criticality", "must be hard or soft")
	}
	return &Edge{
		Source:            source,
		Target:            target,
		CommunicationMode:  mode,
		Criticality:       crit,
		Protocol:          protocol,
		DiscoverySource:   discoverySource,
		ConfidenceScore:   DefaultConfidence(discoverySource),
		LastObservedAt:    observedAt,
		IsStale:           false,
	}, nil
}

// Key identifies an edge row's uniqueness tuple: the same edge may exist
// once per (source, target, discovery_source).
type Key struct {
	Source          string
	Target          string
	DiscoverySource DiscoverySource
}

func (e *Edge) Key() Key {
	return Key{Source: e.Source, Target: e.Target, DiscoverySource: e.DiscoverySource}
}

// Refresh updates last-observed-at and clears staleness on re-observation,
// per §4.1 step 3.
func (e *Edge) Refresh(observedAt time.Time) {
	e.LastObservedAt = observedAt
	e.IsStale = false
}

// IsStaleAt reports whether the edge should be marked stale given now and a
// configured threshold.
func (e *Edge) IsStaleAt(now time.Time, threshold time.Duration) bool {
	return now.Sub(e.LastObservedAt) > threshold
}

// EffectiveEdge picks the highest-priority row among same-pair candidates
// from different sources, per §4.1's merge rule: priority applies only when
// reading a merged view, every source-tagged row is retained in storage.
func EffectiveEdge(candidates []*Edge) *Edge {
	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if Priority(c.DiscoverySource) < Priority(best.DiscoverySource) {
			best = c
		}
	}
	return best
}

// CircularDependencyStatus tracks operator acknowledgement of a detected cycle.
type CircularDependencyStatus string

const (
	CycleStatusOpen         CircularDependencyStatus = "open"
	CycleStatusAcknowledged CircularDependencyStatus = "acknowledged"
	CycleStatusResolved     CircularDependencyStatus = "resolved"
)

// CircularDependencyRecord represents a strongly connected component of more
// than one service, canonically identified by its sorted member list so
// re-detection across runs does not create duplicate records.
type CircularDependencyRecord struct {
	Members   []string
	Status    CircularDependencyStatus
	DetectedAt time.Time
}

// CanonicalID returns the sorted-tuple identity of a cycle, joined for use
// as a stable storage key.
func CanonicalID(members []string) string {
	sorted := append([]string(nil), members...)
	sort.Strings(sorted)
	return strings.Join(sorted, "|")
}

// NewCircularDependencyRecord constructs a cycle record from a raw SCC
// member set; members are sorted to produce the canonical identity. A
// single-member set is not a cycle and is rejected.
func NewCircularDependencyRecord(members []string, detectedAt time.Time) (*CircularDependencyRecord, error) {
	if len(members) < 2 {
		return nil, errors.InvalidInput("members", "a circular dependency record requires at least two members")
	}
	sorted := append([]string(nil), members...)
	sort.Strings(sorted)
	return &CircularDependencyRecord{
		Members:    sorted,
		Status:     CycleStatusOpen,
		DetectedAt: detectedAt,
	}, nil
}
