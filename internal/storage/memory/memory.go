// Package memory is a thread-safe in-memory implementation of every
// application port, used for tests and local prototyping. It deliberately
// keeps algorithms simple over optimized — correctness under concurrent
// access matters more than traversal speed here.
//
// Each port is backed by its own concrete type (ServiceStore,
// DependencyStore, RecommendationStore, AuditLog, CycleStore) rather than
// one struct implementing every interface, since ServiceRepository.UpsertMany
// and DependencyRepository.UpsertMany share a method name but take different
// argument types — a single receiver cannot satisfy both. Store bundles the
// five for convenient construction and wiring.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	core "github.com/R3E-Network/slo-recommendation-engine/internal/app/corekit"
	"github.com/R3E-Network/slo-recommendation-engine/internal/app/ports"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/audit"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/compute/cycledetect"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/graph"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/recommendation"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/service"
	"github.com/R3E-Network/slo-recommendation-engine/internal/graphtraversal"
	"github.com/R3E-Network/slo-recommendation-engine/pkg/errors"
)

func cloneService(s *service.Service) *service.Service {
	c := *s
	c.Metadata = make(map[string]string, len(s.Metadata))
	for k, v := range s.Metadata {
		c.Metadata[k] = v
	}
	if s.PublishedSLA != nil {
		v := *s.PublishedSLA
		c.PublishedSLA = &v
	}
	return &c
}

func cloneEdge(e *graph.Edge) *graph.Edge {
	c := *e
	if e.TimeoutMS != nil {
		v := *e.TimeoutMS
		c.TimeoutMS = &v
	}
	return &c
}

// ServiceStore implements ports.ServiceRepository.
type ServiceStore struct {
	mu       sync.RWMutex
	services map[string]*service.Service
}

var _ ports.ServiceRepository = (*ServiceStore)(nil)

// NewServiceStore creates an empty ServiceStore.
func NewServiceStore() *ServiceStore {
	return &ServiceStore{services: make(map[string]*service.Service)}
}

func (s *ServiceStore) GetByServiceID(_ context.Context, serviceID string) (*service.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	svc, ok := s.services[serviceID]
	if !ok {
		return nil, errors.ServiceNotFound(serviceID)
	}
	return cloneService(svc), nil
}

// exists reports whether serviceID is registered, without cloning — used
// internally by DependencyStore for traversal start-node validation.
func (s *ServiceStore) exists(serviceID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.services[serviceID]
	return ok
}

func (s *ServiceStore) ListAll(_ context.Context, skip, limit int, filter ports.ServiceFilter) ([]*service.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*service.Service, 0, len(s.services))
	for _, svc := range s.services {
		if !filter.IncludeDiscovered && svc.Discovered {
			continue
		}
		if filter.Team != "" && svc.Team != filter.Team {
			continue
		}
		if filter.Criticality != "" && svc.Criticality != filter.Criticality {
			continue
		}
		matched = append(matched, svc)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ServiceID < matched[j].ServiceID })

	limit = core.ClampLimit(limit, core.DefaultListLimit, core.MaxListLimit)
	if skip >= len(matched) {
		return nil, nil
	}
	end := len(matched)
	if skip+limit < end {
		end = skip + limit
	}
	result := make([]*service.Service, 0, end-skip)
	for _, svc := range matched[skip:end] {
		result = append(result, cloneService(svc))
	}
	return result, nil
}

func (s *ServiceStore) UpsertMany(_ context.Context, services []*service.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, svc := range services {
		s.services[svc.ServiceID] = cloneService(svc)
	}
	return nil
}

// DependencyStore implements ports.DependencyRepository. It holds a
// reference to the ServiceStore so Traverse can validate its start node
// without duplicating the service registry.
type DependencyStore struct {
	mu       sync.RWMutex
	edges    map[graph.Key]*graph.Edge
	services *ServiceStore
}

var _ ports.DependencyRepository = (*DependencyStore)(nil)

// NewDependencyStore creates an empty DependencyStore bound to services for
// existence checks.
func NewDependencyStore(services *ServiceStore) *DependencyStore {
	return &DependencyStore{edges: make(map[graph.Key]*graph.Edge), services: services}
}

func (d *DependencyStore) UpsertMany(_ context.Context, edges []*graph.Edge) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, e := range edges {
		d.edges[e.Key()] = cloneEdge(e)
	}
	return nil
}

func (d *DependencyStore) ListBySource(_ context.Context, serviceID string) ([]*graph.Edge, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []*graph.Edge
	for _, e := range d.edges {
		if e.Source == serviceID {
			result = append(result, cloneEdge(e))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Target < result[j].Target })
	return result, nil
}

func (d *DependencyStore) MarkStaleOlderThan(_ context.Context, threshold time.Duration) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now().UTC()
	count := 0
	for _, e := range d.edges {
		if !e.IsStale && e.IsStaleAt(now, threshold) {
			e.IsStale = true
			count++
		}
	}
	return count, nil
}

// Traverse performs a bounded-depth path-tracked walk, excluding stale edges
// unless includeStale is set, and reports whether a cycle was encountered
// along the walked path.
func (d *DependencyStore) Traverse(_ context.Context, start string, direction ports.TraversalDirection, maxDepth int, includeStale bool) (*ports.Subgraph, error) {
	if d.services != nil && !d.services.exists(start) {
		return nil, errors.ServiceNotFound(start)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	edges := make([]*graph.Edge, 0, len(d.edges))
	for _, e := range d.edges {
		if e.IsStale && !includeStale {
			continue
		}
		edges = append(edges, e)
	}

	return graphtraversal.Walk(edges, start, direction, maxDepth), nil
}

// DetectCycles runs Tarjan's SCC over the full current (non-stale) edge
// set, independent of any single traversal, per §4.2.
func (d *DependencyStore) DetectCycles(_ context.Context, nodeIDs []string) ([][]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var edgePairs [][2]string
	for _, e := range d.edges {
		if e.IsStale {
			continue
		}
		edgePairs = append(edgePairs, [2]string{e.Source, e.Target})
	}
	g := cycledetect.NewGraph(nodeIDs, edgePairs)
	return cycledetect.SCCs(g), nil
}

// RecommendationStore implements ports.RecommendationRepository.
type RecommendationStore struct {
	mu              sync.Mutex
	recommendations map[string]*recommendation.Recommendation
	nextID          int64
}

var _ ports.RecommendationRepository = (*RecommendationStore)(nil)

// NewRecommendationStore creates an empty RecommendationStore.
func NewRecommendationStore() *RecommendationStore {
	return &RecommendationStore{recommendations: make(map[string]*recommendation.Recommendation), nextID: 1}
}

func (r *RecommendationStore) GetActive(_ context.Context, serviceID string, sliType *recommendation.SLIType) ([]*recommendation.Recommendation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*recommendation.Recommendation
	for _, rec := range r.recommendations {
		if rec.ServiceID != serviceID || rec.Status != recommendation.StatusActive {
			continue
		}
		if sliType != nil && rec.SLIType != *sliType {
			continue
		}
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SLIType < result[j].SLIType })
	return result, nil
}

func (r *RecommendationStore) Save(_ context.Context, rec *recommendation.Recommendation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveLocked(rec)
}

func (r *RecommendationStore) saveLocked(rec *recommendation.Recommendation) error {
	if rec.ID == "" {
		rec.ID = r.nextIDLocked()
	}
	r.recommendations[rec.ID] = rec
	return nil
}

func (r *RecommendationStore) nextIDLocked() string {
	id := r.nextID
	r.nextID++
	return formatRecID(id)
}

func formatRecID(id int64) string {
	const prefix = "rec-"
	if id == 0 {
		return prefix + "0"
	}
	var digits []byte
	for id > 0 {
		digits = append([]byte{byte('0' + id%10)}, digits...)
		id /= 10
	}
	return prefix + string(digits)
}

func (r *RecommendationStore) SaveBatch(_ context.Context, recs []*recommendation.Recommendation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range recs {
		if err := r.saveLocked(rec); err != nil {
			return err
		}
	}
	return nil
}

// SupersedeActive marks the current active recommendation for the
// (service, sli_type) pair superseded, on its own. SupersedeAndInsert below
// performs the supersede and the insert of the new active recommendation
// under one critical section, the in-memory counterpart of the postgres
// adapter's single DB transaction.
func (r *RecommendationStore) SupersedeActive(_ context.Context, serviceID string, sliType recommendation.SLIType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.recommendations {
		if rec.ServiceID == serviceID && rec.SLIType == sliType && rec.Status == recommendation.StatusActive {
			rec.Supersede()
		}
	}
	return nil
}

// SupersedeAndInsert performs the supersede-then-insert pair under a single
// critical section, satisfying ports.TransactionalRecommendationRepository.
func (r *RecommendationStore) SupersedeAndInsert(_ context.Context, rec *recommendation.Recommendation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.recommendations {
		if existing.ServiceID == rec.ServiceID && existing.SLIType == rec.SLIType && existing.Status == recommendation.StatusActive {
			existing.Supersede()
		}
	}
	return r.saveLocked(rec)
}

var _ ports.TransactionalRecommendationRepository = (*RecommendationStore)(nil)

func (r *RecommendationStore) ExpireStale(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, rec := range r.recommendations {
		if rec.ExpireIfDue(now) {
			count++
		}
	}
	return count, nil
}

// AuditLog implements ports.AuditStore.
type AuditLog struct {
	mu      sync.Mutex
	entries []*audit.Entry
}

var _ ports.AuditStore = (*AuditLog)(nil)

// NewAuditLog creates an empty AuditLog.
func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

func (a *AuditLog) Append(_ context.Context, entry *audit.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

func (a *AuditLog) ListByService(_ context.Context, serviceID string) ([]*audit.Entry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var result []*audit.Entry
	for _, e := range a.entries {
		if e.ServiceID == serviceID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp.Before(result[j].Timestamp) })
	return result, nil
}

// CycleStore implements ports.CycleRepository.
type CycleStore struct {
	mu      sync.Mutex
	records map[string]*graph.CircularDependencyRecord
}

var _ ports.CycleRepository = (*CycleStore)(nil)

// NewCycleStore creates an empty CycleStore.
func NewCycleStore() *CycleStore {
	return &CycleStore{records: make(map[string]*graph.CircularDependencyRecord)}
}

func (c *CycleStore) Upsert(_ context.Context, rec *graph.CircularDependencyRecord) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := graph.CanonicalID(rec.Members)
	if _, ok := c.records[id]; ok {
		return false, nil
	}
	c.records[id] = rec
	return true, nil
}

func (c *CycleStore) ListOpen(_ context.Context) ([]*graph.CircularDependencyRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var result []*graph.CircularDependencyRecord
	for _, rec := range c.records {
		if rec.Status == graph.CycleStatusOpen {
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return graph.CanonicalID(result[i].Members) < graph.CanonicalID(result[j].Members)
	})
	return result, nil
}

// Store bundles the five port implementations sharing one composition root,
// the way the teacher's Memory type bundled several domain stores behind a
// single constructor.
type Store struct {
	Services        *ServiceStore
	Dependencies    *DependencyStore
	Recommendations *RecommendationStore
	Audit           *AuditLog
	Cycles          *CycleStore
}

// New creates a fully wired in-memory Store.
func New() *Store {
	services := NewServiceStore()
	return &Store{
		Services:        services,
		Dependencies:    NewDependencyStore(services),
		Recommendations: NewRecommendationStore(),
		Audit:           NewAuditLog(),
		Cycles:          NewCycleStore(),
	}
}
