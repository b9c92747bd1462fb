// Package ingest implements the graph ingest & merge use case (§4.1):
// accepting a discovery payload, upserting services and edges, running
// cycle detection against the resulting snapshot, and reporting what
// changed. Services, edges and cycle records are written in that order with
// no enclosing transaction; a storage failure at a later step leaves the
// earlier writes in place.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/R3E-Network/slo-recommendation-engine/internal/app/ports"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/graph"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/service"
	"github.com/R3E-Network/slo-recommendation-engine/internal/metrics"
	"github.com/R3E-Network/slo-recommendation-engine/pkg/errors"
	"github.com/R3E-Network/slo-recommendation-engine/pkg/logger"
)

// NodePayload describes one service as asserted by a discovery source.
// RawMetadata is the adapter's free-form JSON blob; known sub-fields are
// promoted into Metadata.
type NodePayload struct {
	ServiceID    string
	Team         string
	Criticality  service.Criticality
	Type         service.Type
	PublishedSLA *float64
	RawMetadata  json.RawMessage
}

// EdgePayload describes one observed dependency edge. RetryConfig is the
// adapter's free-form JSON blob; known sub-fields (max_attempts,
// backoff_ms) are extracted for warnings/validation, the raw blob is kept
// verbatim for storage.
type EdgePayload struct {
	Source      string
	Target      string
	Mode        graph.CommunicationMode
	Criticality graph.Criticality
	Protocol    string
	TimeoutMS   *int
	RetryConfig json.RawMessage
}

// Payload is the full ingest request: a batch of node and edge
// observations from a single discovery source.
type Payload struct {
	Source graph.DiscoverySource
	Nodes  []NodePayload
	Edges  []EdgePayload
}

// Report summarizes the effect of one ingest call, per §4.1.
type Report struct {
	NodesUpserted       int
	EdgesUpserted       int
	NewlyDetectedCycles [][]string
	Warnings            []string
	Conflicts           []string
}

// UseCase orchestrates graph ingest & merge.
type UseCase struct {
	services ports.ServiceRepository
	deps     ports.DependencyRepository
	cycles   ports.CycleRepository
	clock    ports.Clock
	log      *logger.Logger
}

// New constructs the ingest use case.
func New(services ports.ServiceRepository, deps ports.DependencyRepository, cycles ports.CycleRepository, clock ports.Clock, log *logger.Logger) *UseCase {
	return &UseCase{services: services, deps: deps, cycles: cycles, clock: clock, log: log}
}

// extractMetadata promotes every top-level key of a discovery adapter's
// free-form metadata blob into a flat string map. gjson.ParseBytes avoids
// requiring every adapter to agree on a fully typed schema for arbitrary
// nested JSON (§4.1's "arbitrary metadata mapping").
func extractMetadata(raw json.RawMessage) map[string]string {
	metadata := map[string]string{}
	if len(raw) == 0 {
		return metadata
	}
	gjson.ParseBytes(raw).ForEach(func(key, value gjson.Result) bool {
		metadata[key.String()] = value.String()
		return true
	})
	return metadata
}

// retryConfigSummary extracts the known sub-fields from a free-form
// retry_config blob and renders them as a canonical string, so two payloads
// that describe the same retry policy in differently-formatted JSON (key
// order, whitespace) still compare equal in planEdges' change diff. An
// empty blob yields "", not an error — retry_config is optional per the
// data model. A blob with neither known field (malformed JSON included) falls
// back to the raw bytes, so an edge with a genuinely different, unrecognized
// shape still registers as changed rather than silently collapsing to "".
func retryConfigSummary(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	maxAttempts := gjson.GetBytes(raw, "max_attempts").Int()
	backoffMS := gjson.GetBytes(raw, "backoff_ms").Int()
	if maxAttempts == 0 && backoffMS == 0 {
		return string(raw)
	}
	return fmt.Sprintf("max_attempts=%d,backoff_ms=%d", maxAttempts, backoffMS)
}

// Ingest validates, upserts, and runs cycle detection for one payload, per
// §4.1 steps 1-5. Validation failures (invalid_input) abort before any
// write; storage_failure stops the operation at the failing step, without
// undoing writes already made by earlier steps; cycle_detected is
// informational and attached to the returned Report, never an error.
func (u *UseCase) Ingest(ctx context.Context, payload Payload) (result *Report, err error) {
	if verr := validate(payload); verr != nil {
		return nil, verr
	}

	hooks := metrics.IngestHooks()
	meta := map[string]string{"source": string(payload.Source)}
	start := u.clock.Now()
	hooks.OnStart(ctx, meta)
	defer func() {
		hooks.OnComplete(ctx, meta, err, u.clock.Now().Sub(start))
	}()

	report := &Report{}
	now := u.clock.Now()

	nodeSet, warnings := u.planNodes(ctx, payload)
	report.Warnings = append(report.Warnings, warnings...)

	edgeSet, conflicts, edgeWarnings := u.planEdges(ctx, payload, now)
	report.Conflicts = append(report.Conflicts, conflicts...)
	report.Warnings = append(report.Warnings, edgeWarnings...)

	// Auto-create placeholders for edge endpoints not explicitly listed and
	// not already known, before counting nodes upserted (§4.1: "unreferenced
	// edge endpoints are auto-created as placeholder services").
	u.planDiscoveredEndpoints(ctx, payload, nodeSet)

	var toUpsertServices []*service.Service
	for _, n := range nodeSet {
		if n.changed {
			toUpsertServices = append(toUpsertServices, n.svc)
			report.NodesUpserted++
		}
	}
	if len(toUpsertServices) > 0 {
		if err := u.services.UpsertMany(ctx, toUpsertServices); err != nil {
			return nil, errors.StorageFailure("upsert services", err)
		}
	}

	var toUpsertEdges []*graph.Edge
	for _, e := range edgeSet {
		toUpsertEdges = append(toUpsertEdges, e.edge)
		if e.changed {
			report.EdgesUpserted++
		}
	}
	if len(toUpsertEdges) > 0 {
		if err := u.deps.UpsertMany(ctx, toUpsertEdges); err != nil {
			return nil, errors.StorageFailure("upsert edges", err)
		}
	}

	if err := u.detectCycles(ctx, nodeSet, report); err != nil {
		return nil, err
	}

	if u.log != nil {
		u.log.WithFields(map[string]interface{}{
			"source":         string(payload.Source),
			"nodes_upserted": report.NodesUpserted,
			"edges_upserted": report.EdgesUpserted,
			"cycles":         len(report.NewlyDetectedCycles),
		}).Info("ingest completed")
	}

	return report, nil
}

func validate(payload Payload) error {
	if payload.Source == "" {
		return errors.InvalidInput("source", "discovery source must not be empty")
	}
	for _, e := range payload.Edges {
		if e.Source == "" || e.Target == "" {
			return errors.InvalidInput("edge", "source and target must not be empty")
		}
		if e.Source == e.Target {
			return errors.InvalidInput("edge", "self loops are not permitted: source must differ from target")
		}
	}
	for _, n := range payload.Nodes {
		if n.ServiceID == "" {
			return errors.InvalidInput("node", "service_id must not be empty")
		}
	}
	return nil
}

type plannedNode struct {
	svc     *service.Service
	changed bool
}

// planNodes upserts explicit node observations: new services are created,
// existing placeholders receive the explicit metadata (clearing Discovered
// per §4.1 step 2), and unchanged existing explicit services are left out
// of the write set entirely so idempotent re-submission reports zero.
func (u *UseCase) planNodes(ctx context.Context, payload Payload) (map[string]*plannedNode, []string) {
	var warnings []string
	nodeSet := make(map[string]*plannedNode)

	for _, n := range payload.Nodes {
		metadata := extractMetadata(n.RawMetadata)
		existing, err := u.services.GetByServiceID(ctx, n.ServiceID)
		if err != nil || existing == nil {
			svc, cerr := service.New(n.ServiceID, n.Team, n.Criticality, n.Type, n.PublishedSLA)
			if cerr != nil {
				warnings = append(warnings, "skipped invalid node "+n.ServiceID+": "+cerr.Error())
				continue
			}
			svc.Metadata = metadata
			nodeSet[n.ServiceID] = &plannedNode{svc: svc, changed: true}
			continue
		}

		wasDiscovered := existing.Discovered
		priorTeam, priorCriticality := existing.Team, existing.Criticality
		priorMetadata := existing.Metadata
		if err := existing.ApplyExplicitMetadata(n.Team, n.Criticality, n.Type, n.PublishedSLA); err != nil {
			warnings = append(warnings, "skipped invalid node "+n.ServiceID+": "+err.Error())
			continue
		}
		changed := wasDiscovered || !metadataEqual(priorMetadata, metadata) ||
			priorTeam != n.Team || priorCriticality != n.Criticality
		existing.Metadata = metadata
		nodeSet[n.ServiceID] = &plannedNode{svc: existing, changed: changed}
	}
	return nodeSet, warnings
}

func metadataEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// planDiscoveredEndpoints auto-creates placeholder services for edge
// endpoints that are neither explicitly listed in this payload nor already
// registered.
func (u *UseCase) planDiscoveredEndpoints(ctx context.Context, payload Payload, nodeSet map[string]*plannedNode) {
	for _, e := range payload.Edges {
		for _, id := range []string{e.Source, e.Target} {
			if _, planned := nodeSet[id]; planned {
				continue
			}
			if existing, err := u.services.GetByServiceID(ctx, id); err == nil && existing != nil {
				continue
			}
			nodeSet[id] = &plannedNode{svc: service.NewDiscovered(id), changed: true}
		}
	}
}

type plannedEdgeEntry struct {
	edge    *graph.Edge
	changed bool
}

// planEdges constructs/refreshes an Edge per payload entry, diffing against
// any existing row sharing the same (source, target, discovery_source) key
// so a byte-identical re-observation does not count toward edges_upserted
// even though last_observed_at is always refreshed (§4.1 step 3, §8
// idempotence law). Conflicts are reported (informationally) whenever the
// same (source, target) pair already carries a row from a different,
// higher-priority source, whatever that row's attributes — priority
// merge itself is deferred to read time per §4.1, ingest just surfaces it.
func (u *UseCase) planEdges(ctx context.Context, payload Payload, now time.Time) ([]plannedEdgeEntry, []string, []string) {
	var conflicts, warnings []string
	var result []plannedEdgeEntry

	existingBySource := make(map[string][]*graph.Edge)

	for _, ep := range payload.Edges {
		edge, err := graph.New(ep.Source, ep.Target, ep.Mode, ep.Criticality, ep.Protocol, payload.Source, now)
		if err != nil {
			warnings = append(warnings, "skipped invalid edge "+ep.Source+"->"+ep.Target+": "+err.Error())
			continue
		}
		edge.TimeoutMS = ep.TimeoutMS
		edge.RetryConfig = retryConfigSummary(ep.RetryConfig)

		siblings, ok := existingBySource[ep.Source]
		if !ok {
			siblings, _ = u.deps.ListBySource(ctx, ep.Source)
			existingBySource[ep.Source] = siblings
		}

		var existing *graph.Edge
		for _, s := range siblings {
			if s.Target == ep.Target && s.DiscoverySource == payload.Source {
				existing = s
				break
			}
		}

		changed := true
		if existing != nil {
			changed = existing.CommunicationMode != edge.CommunicationMode ||
				existing.Criticality != edge.Criticality ||
				existing.Protocol != edge.Protocol ||
				!timeoutEqual(existing.TimeoutMS, edge.TimeoutMS) ||
				existing.RetryConfig != edge.RetryConfig
			edge.ConfidenceScore = existing.ConfidenceScore
		}

		for _, s := range siblings {
			if s.Target == ep.Target && s.DiscoverySource != payload.Source && graph.Priority(s.DiscoverySource) < graph.Priority(payload.Source) {
				conflicts = append(conflicts, ep.Source+"->"+ep.Target+": higher-priority row already exists from "+string(s.DiscoverySource))
			}
		}

		result = append(result, plannedEdgeEntry{edge: edge, changed: changed})
	}
	return result, conflicts, warnings
}

func timeoutEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// detectCycles runs Tarjan's SCC over the post-upsert node set and upserts
// each multi-member component into the cycle repository; NewlyDetectedCycles
// on the report carries only those the repository had not previously seen,
// per §4.1 step 4's "record newly detected SCCs".
func (u *UseCase) detectCycles(ctx context.Context, nodeSet map[string]*plannedNode, report *Report) error {
	nodeIDs := make([]string, 0, len(nodeSet))
	for id := range nodeSet {
		nodeIDs = append(nodeIDs, id)
	}

	sccs, err := u.deps.DetectCycles(ctx, nodeIDs)
	if err != nil {
		return errors.StorageFailure("detect cycles", err)
	}
	if u.cycles == nil {
		report.NewlyDetectedCycles = sccs
		return nil
	}

	now := u.clock.Now()
	for _, members := range sccs {
		rec, err := graph.NewCircularDependencyRecord(members, now)
		if err != nil {
			continue
		}
		isNew, err := u.cycles.Upsert(ctx, rec)
		if err != nil {
			return errors.StorageFailure("upsert cycle record", err)
		}
		if isNew {
			report.NewlyDetectedCycles = append(report.NewlyDetectedCycles, members)
		}
	}
	return nil
}
