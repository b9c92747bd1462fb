// Package postgres implements every application port against PostgreSQL
// using sqlx for scanning convenience and lib/pq as the database/sql
// driver. As in internal/storage/memory, ServiceRepository.UpsertMany and
// DependencyRepository.UpsertMany share a method name but differ in
// argument type, so each port is backed by its own concrete type sharing
// one *sqlx.DB handle.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

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

// Open connects to dsn via lib/pq and wraps the handle with sqlx.
func Open(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, errors.StorageFailure("connect", err)
	}
	return db, nil
}

// ServiceStore implements ports.ServiceRepository.
type ServiceStore struct {
	db *sqlx.DB
}

var _ ports.ServiceRepository = (*ServiceStore)(nil)

func NewServiceStore(db *sqlx.DB) *ServiceStore { return &ServiceStore{db: db} }

type serviceRow struct {
	ServiceID    string          `db:"service_id"`
	Team         string          `db:"team"`
	Criticality  string          `db:"criticality"`
	ServiceType  string          `db:"service_type"`
	PublishedSLA sql.NullFloat64 `db:"published_sla"`
	Discovered   bool            `db:"discovered"`
	Metadata     []byte          `db:"metadata"`
}

func (r serviceRow) toDomain() (*service.Service, error) {
	var publishedSLA *float64
	if r.PublishedSLA.Valid {
		v := r.PublishedSLA.Float64
		publishedSLA = &v
	}
	metadata := map[string]string{}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &metadata); err != nil {
			return nil, errors.StorageFailure("decode service metadata", err)
		}
	}
	return &service.Service{
		ServiceID:    r.ServiceID,
		Team:         r.Team,
		Criticality:  service.Criticality(r.Criticality),
		Type:         service.Type(r.ServiceType),
		PublishedSLA: publishedSLA,
		Discovered:   r.Discovered,
		Metadata:     metadata,
	}, nil
}

func (s *ServiceStore) GetByServiceID(ctx context.Context, serviceID string) (*service.Service, error) {
	var row serviceRow
	err := s.db.GetContext(ctx, &row, `
		SELECT service_id, team, criticality, service_type, published_sla, discovered, metadata
		FROM services WHERE service_id = $1
	`, serviceID)
	if err == sql.ErrNoRows {
		return nil, errors.ServiceNotFound(serviceID)
	}
	if err != nil {
		return nil, errors.StorageFailure("get service", err)
	}
	return row.toDomain()
}

func (s *ServiceStore) ListAll(ctx context.Context, skip, limit int, filter ports.ServiceFilter) ([]*service.Service, error) {
	limit = core.ClampLimit(limit, core.DefaultListLimit, core.MaxListLimit)
	query := `
		SELECT service_id, team, criticality, service_type, published_sla, discovered, metadata
		FROM services
		WHERE ($1 OR NOT discovered)
		  AND ($2 = '' OR team = $2)
		  AND ($3 = '' OR criticality = $3)
		ORDER BY service_id
		OFFSET $4
		LIMIT $5`
	args := []interface{}{filter.IncludeDiscovered, filter.Team, string(filter.Criticality), skip, limit}

	var rows []serviceRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.StorageFailure("list services", err)
	}
	result := make([]*service.Service, 0, len(rows))
	for _, row := range rows {
		svc, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, svc)
	}
	return result, nil
}

func (s *ServiceStore) UpsertMany(ctx context.Context, services []*service.Service) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.StorageFailure("begin upsert services", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a documented no-op

	for _, svc := range services {
		metadataJSON, err := json.Marshal(svc.Metadata)
		if err != nil {
			return errors.StorageFailure("encode service metadata", err)
		}
		var publishedSLA interface{}
		if svc.PublishedSLA != nil {
			publishedSLA = *svc.PublishedSLA
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO services (service_id, team, criticality, service_type, published_sla, discovered, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (service_id) DO UPDATE SET
				team = EXCLUDED.team,
				criticality = EXCLUDED.criticality,
				service_type = EXCLUDED.service_type,
				published_sla = EXCLUDED.published_sla,
				discovered = EXCLUDED.discovered,
				metadata = EXCLUDED.metadata
		`, svc.ServiceID, svc.Team, string(svc.Criticality), string(svc.Type), publishedSLA, svc.Discovered, metadataJSON)
		if err != nil {
			return errors.StorageFailure("upsert service", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.StorageFailure("commit upsert services", err)
	}
	return nil
}

// DependencyStore implements ports.DependencyRepository.
type DependencyStore struct {
	db *sqlx.DB
}

var _ ports.DependencyRepository = (*DependencyStore)(nil)

func NewDependencyStore(db *sqlx.DB) *DependencyStore { return &DependencyStore{db: db} }

type edgeRow struct {
	Source          string         `db:"source"`
	Target          string         `db:"target"`
	DiscoverySource string         `db:"discovery_source"`
	Mode            string         `db:"communication_mode"`
	Criticality     string         `db:"criticality"`
	Protocol        string         `db:"protocol"`
	TimeoutMS       sql.NullInt64  `db:"timeout_ms"`
	RetryConfig     string         `db:"retry_config"`
	ConfidenceScore float64        `db:"confidence_score"`
	LastObservedAt  time.Time      `db:"last_observed_at"`
	IsStale         bool           `db:"is_stale"`
}

func (r edgeRow) toDomain() *graph.Edge {
	var timeout *int
	if r.TimeoutMS.Valid {
		v := int(r.TimeoutMS.Int64)
		timeout = &v
	}
	return &graph.Edge{
		Source:            r.Source,
		Target:            r.Target,
		CommunicationMode: graph.CommunicationMode(r.Mode),
		Criticality:       graph.Criticality(r.Criticality),
		Protocol:          r.Protocol,
		TimeoutMS:         timeout,
		RetryConfig:       r.RetryConfig,
		DiscoverySource:   graph.DiscoverySource(r.DiscoverySource),
		ConfidenceScore:   r.ConfidenceScore,
		LastObservedAt:    r.LastObservedAt,
		IsStale:           r.IsStale,
	}
}

func (d *DependencyStore) UpsertMany(ctx context.Context, edges []*graph.Edge) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.StorageFailure("begin upsert edges", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, e := range edges {
		var timeout interface{}
		if e.TimeoutMS != nil {
			timeout = *e.TimeoutMS
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO dependency_edges
				(source, target, discovery_source, communication_mode, criticality, protocol, timeout_ms, retry_config, confidence_score, last_observed_at, is_stale)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (source, target, discovery_source) DO UPDATE SET
				communication_mode = EXCLUDED.communication_mode,
				criticality = EXCLUDED.criticality,
				protocol = EXCLUDED.protocol,
				timeout_ms = EXCLUDED.timeout_ms,
				retry_config = EXCLUDED.retry_config,
				confidence_score = EXCLUDED.confidence_score,
				last_observed_at = EXCLUDED.last_observed_at,
				is_stale = FALSE
		`, e.Source, e.Target, string(e.DiscoverySource), string(e.CommunicationMode), string(e.Criticality), e.Protocol, timeout, e.RetryConfig, e.ConfidenceScore, e.LastObservedAt, e.IsStale)
		if err != nil {
			return errors.StorageFailure("upsert edge", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.StorageFailure("commit upsert edges", err)
	}
	return nil
}

func (d *DependencyStore) ListBySource(ctx context.Context, serviceID string) ([]*graph.Edge, error) {
	var rows []edgeRow
	if err := d.db.SelectContext(ctx, &rows, `
		SELECT source, target, discovery_source, communication_mode, criticality, protocol, timeout_ms, retry_config, confidence_score, last_observed_at, is_stale
		FROM dependency_edges WHERE source = $1 ORDER BY target
	`, serviceID); err != nil {
		return nil, errors.StorageFailure("list edges by source", err)
	}
	result := make([]*graph.Edge, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func (d *DependencyStore) MarkStaleOlderThan(ctx context.Context, threshold time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-threshold)
	result, err := d.db.ExecContext(ctx, `
		UPDATE dependency_edges SET is_stale = TRUE
		WHERE NOT is_stale AND last_observed_at < $1
	`, cutoff)
	if err != nil {
		return 0, errors.StorageFailure("mark stale edges", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.StorageFailure("mark stale edges", err)
	}
	return int(affected), nil
}

// Traverse materializes the full non-stale (or all, if includeStale) edge
// set and walks it in memory — the traversal algorithm itself is storage-
// agnostic (see internal/graphtraversal) and identical to the in-memory
// adapter's; only the edge fetch differs.
func (d *DependencyStore) Traverse(ctx context.Context, start string, direction ports.TraversalDirection, maxDepth int, includeStale bool) (*ports.Subgraph, error) {
	var exists bool
	if err := d.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM services WHERE service_id = $1)`, start); err != nil {
		return nil, errors.StorageFailure("check service existence", err)
	}
	if !exists {
		return nil, errors.ServiceNotFound(start)
	}

	query := `SELECT source, target, discovery_source, communication_mode, criticality, protocol, timeout_ms, retry_config, confidence_score, last_observed_at, is_stale FROM dependency_edges`
	if !includeStale {
		query += ` WHERE NOT is_stale`
	}
	var rows []edgeRow
	if err := d.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.StorageFailure("load edges for traversal", err)
	}
	edges := make([]*graph.Edge, 0, len(rows))
	for _, row := range rows {
		edges = append(edges, row.toDomain())
	}

	return graphtraversal.Walk(edges, start, direction, maxDepth), nil
}

func (d *DependencyStore) DetectCycles(ctx context.Context, nodeIDs []string) ([][]string, error) {
	var rows []edgeRow
	if err := d.db.SelectContext(ctx, &rows, `
		SELECT source, target, discovery_source, communication_mode, criticality, protocol, timeout_ms, retry_config, confidence_score, last_observed_at, is_stale
		FROM dependency_edges WHERE NOT is_stale
	`); err != nil {
		return nil, errors.StorageFailure("load edges for cycle detection", err)
	}
	var pairs [][2]string
	for _, row := range rows {
		pairs = append(pairs, [2]string{row.Source, row.Target})
	}
	g := cycledetect.NewGraph(nodeIDs, pairs)
	return cycledetect.SCCs(g), nil
}

// RecommendationStore implements ports.RecommendationRepository.
type RecommendationStore struct {
	db *sqlx.DB
}

var _ ports.RecommendationRepository = (*RecommendationStore)(nil)
var _ ports.TransactionalRecommendationRepository = (*RecommendationStore)(nil)

func NewRecommendationStore(db *sqlx.DB) *RecommendationStore { return &RecommendationStore{db: db} }

func (r *RecommendationStore) GetActive(ctx context.Context, serviceID string, sliType *recommendation.SLIType) ([]*recommendation.Recommendation, error) {
	query := `SELECT id, service_id, sli_type, metric, tiers, explanation, data_quality, lookback_window_start, lookback_window_end, generated_at, expires_at, status
		FROM recommendations WHERE service_id = $1 AND status = 'active'`
	args := []interface{}{serviceID}
	if sliType != nil {
		query += ` AND sli_type = $2`
		args = append(args, string(*sliType))
	}

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, errors.StorageFailure("get active recommendations", err)
	}
	defer rows.Close()

	var result []*recommendation.Recommendation
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, nil
}

func (r *RecommendationStore) Save(ctx context.Context, rec *recommendation.Recommendation) error {
	return r.saveWith(ctx, r.db, rec)
}

func (r *RecommendationStore) saveWith(ctx context.Context, exec sqlx.ExtContext, rec *recommendation.Recommendation) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	tiersJSON, err := json.Marshal(rec.Tiers)
	if err != nil {
		return errors.StorageFailure("encode tiers", err)
	}
	explanationJSON, err := json.Marshal(rec.Explanation)
	if err != nil {
		return errors.StorageFailure("encode explanation", err)
	}
	dataQualityJSON, err := json.Marshal(rec.DataQuality)
	if err != nil {
		return errors.StorageFailure("encode data_quality", err)
	}
	_, err = sqlx.ExecContext(ctx, exec, `
		INSERT INTO recommendations
			(id, service_id, sli_type, metric, tiers, explanation, data_quality, lookback_window_start, lookback_window_end, generated_at, expires_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status
	`, rec.ID, rec.ServiceID, string(rec.SLIType), rec.Metric, tiersJSON, explanationJSON, dataQualityJSON,
		rec.LookbackWindowStart, rec.LookbackWindowEnd, rec.GeneratedAt, rec.ExpiresAt, string(rec.Status))
	if err != nil {
		return errors.StorageFailure("save recommendation", err)
	}
	return nil
}

func (r *RecommendationStore) SaveBatch(ctx context.Context, recs []*recommendation.Recommendation) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.StorageFailure("begin save batch", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, rec := range recs {
		if err := r.saveWith(ctx, tx, rec); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.StorageFailure("commit save batch", err)
	}
	return nil
}

// SupersedeActive transitions the existing active row for (service, sli_type)
// within the caller's responsibility to pair it with the following Save in
// one logical unit; the pipeline's persist step (§4.3 step 12) uses
// SupersedeAndInsert below for the atomic, single-transaction version
// required by §4.7.
func (r *RecommendationStore) SupersedeActive(ctx context.Context, serviceID string, sliType recommendation.SLIType) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE recommendations SET status = 'superseded'
		WHERE service_id = $1 AND sli_type = $2 AND status = 'active'
	`, serviceID, string(sliType))
	if err != nil {
		return errors.StorageFailure("supersede active recommendation", err)
	}
	return nil
}

// SupersedeAndInsert performs the supersede-then-insert pair in a single
// transaction, so consumers never observe two active rows for the same
// pair (§4.7, §8 atomicity property). Application code should prefer this
// over calling SupersedeActive and Save separately against postgres.
func (r *RecommendationStore) SupersedeAndInsert(ctx context.Context, rec *recommendation.Recommendation) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.StorageFailure("begin supersede and insert", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		UPDATE recommendations SET status = 'superseded'
		WHERE service_id = $1 AND sli_type = $2 AND status = 'active'
	`, rec.ServiceID, string(rec.SLIType)); err != nil {
		return errors.StorageFailure("supersede active recommendation", err)
	}
	if err := r.saveWith(ctx, tx, rec); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.StorageFailure("commit supersede and insert", err)
	}
	return nil
}

func (r *RecommendationStore) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE recommendations SET status = 'expired'
		WHERE status = 'active' AND expires_at < $1
	`, now)
	if err != nil {
		return 0, errors.StorageFailure("expire stale recommendations", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.StorageFailure("expire stale recommendations", err)
	}
	return int(affected), nil
}

func scanRecommendation(rows *sqlx.Rows) (*recommendation.Recommendation, error) {
	var (
		id, serviceID, sliType, metric, status string
		tiersRaw, explanationRaw, dataQualityRaw []byte
		lookbackStart, lookbackEnd, generatedAt, expiresAt time.Time
	)
	if err := rows.Scan(&id, &serviceID, &sliType, &metric, &tiersRaw, &explanationRaw, &dataQualityRaw, &lookbackStart, &lookbackEnd, &generatedAt, &expiresAt, &status); err != nil {
		return nil, errors.StorageFailure("scan recommendation", err)
	}
	var tiers map[recommendation.TierName]recommendation.Tier
	if err := json.Unmarshal(tiersRaw, &tiers); err != nil {
		return nil, errors.StorageFailure("decode tiers", err)
	}
	var explanation recommendation.Explanation
	if err := json.Unmarshal(explanationRaw, &explanation); err != nil {
		return nil, errors.StorageFailure("decode explanation", err)
	}
	var dataQuality recommendation.DataQuality
	if err := json.Unmarshal(dataQualityRaw, &dataQuality); err != nil {
		return nil, errors.StorageFailure("decode data_quality", err)
	}
	return &recommendation.Recommendation{
		ID: id, ServiceID: serviceID, SLIType: recommendation.SLIType(sliType), Metric: metric,
		Tiers: tiers, Explanation: explanation, DataQuality: dataQuality,
		LookbackWindowStart: lookbackStart, LookbackWindowEnd: lookbackEnd,
		GeneratedAt: generatedAt, ExpiresAt: expiresAt, Status: recommendation.Status(status),
	}, nil
}

// CycleStore implements ports.CycleRepository.
type CycleStore struct {
	db *sqlx.DB
}

var _ ports.CycleRepository = (*CycleStore)(nil)

func NewCycleStore(db *sqlx.DB) *CycleStore { return &CycleStore{db: db} }

// Upsert inserts the canonical record if absent, reporting isNew=true only
// on that first insert; a re-detected cycle that already has a row is left
// untouched (its Status, e.g. acknowledged/resolved, is not reset to open).
func (c *CycleStore) Upsert(ctx context.Context, rec *graph.CircularDependencyRecord) (bool, error) {
	membersJSON, err := json.Marshal(rec.Members)
	if err != nil {
		return false, errors.StorageFailure("encode cycle members", err)
	}
	canonicalID := graph.CanonicalID(rec.Members)

	result, err := c.db.ExecContext(ctx, `
		INSERT INTO circular_dependency_records (canonical_id, members, status, detected_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (canonical_id) DO NOTHING
	`, canonicalID, membersJSON, string(rec.Status), rec.DetectedAt)
	if err != nil {
		return false, errors.StorageFailure("upsert cycle record", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.StorageFailure("upsert cycle record", err)
	}
	return affected > 0, nil
}

func (c *CycleStore) ListOpen(ctx context.Context) ([]*graph.CircularDependencyRecord, error) {
	var rows []struct {
		Members    []byte    `db:"members"`
		Status     string    `db:"status"`
		DetectedAt time.Time `db:"detected_at"`
	}
	if err := c.db.SelectContext(ctx, &rows, `
		SELECT members, status, detected_at FROM circular_dependency_records
		WHERE status = 'open' ORDER BY canonical_id
	`); err != nil {
		return nil, errors.StorageFailure("list open cycle records", err)
	}
	result := make([]*graph.CircularDependencyRecord, 0, len(rows))
	for _, row := range rows {
		var members []string
		if err := json.Unmarshal(row.Members, &members); err != nil {
			return nil, errors.StorageFailure("decode cycle members", err)
		}
		result = append(result, &graph.CircularDependencyRecord{
			Members:    members,
			Status:     graph.CircularDependencyStatus(row.Status),
			DetectedAt: row.DetectedAt,
		})
	}
	return result, nil
}

// AuditLog implements ports.AuditStore.
type AuditLog struct {
	db *sqlx.DB
}

var _ ports.AuditStore = (*AuditLog)(nil)

func NewAuditLog(db *sqlx.DB) *AuditLog { return &AuditLog{db: db} }

func (a *AuditLog) Append(ctx context.Context, entry *audit.Entry) error {
	previousJSON, err := json.Marshal(entry.PreviousState)
	if err != nil {
		return errors.StorageFailure("encode previous_state", err)
	}
	newJSON, err := json.Marshal(entry.NewState)
	if err != nil {
		return errors.StorageFailure("encode new_state", err)
	}
	modificationsJSON, err := json.Marshal(entry.Modifications)
	if err != nil {
		return errors.StorageFailure("encode modifications", err)
	}
	_, err = a.db.ExecContext(ctx, `
		INSERT INTO audit_entries (service_id, recommendation_id, action, actor, occurred_at, previous_state, new_state, selected_tier, modifications, rationale)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, entry.ServiceID, entry.RecommendationID, string(entry.Action), entry.Actor, entry.Timestamp, previousJSON, newJSON, entry.SelectedTier, modificationsJSON, entry.Rationale)
	if err != nil {
		return errors.StorageFailure("append audit entry", err)
	}
	return nil
}

func (a *AuditLog) ListByService(ctx context.Context, serviceID string) ([]*audit.Entry, error) {
	rows, err := a.db.QueryxContext(ctx, `
		SELECT service_id, recommendation_id, action, actor, occurred_at, previous_state, new_state, selected_tier, modifications, rationale
		FROM audit_entries WHERE service_id = $1 ORDER BY occurred_at
	`, serviceID)
	if err != nil {
		return nil, errors.StorageFailure("list audit entries", err)
	}
	defer rows.Close()

	var result []*audit.Entry
	for rows.Next() {
		var (
			svcID, recID, action, actor, tier, rationale string
			occurredAt                                   time.Time
			previousRaw, newRaw, modificationsRaw         []byte
		)
		if err := rows.Scan(&svcID, &recID, &action, &actor, &occurredAt, &previousRaw, &newRaw, &tier, &modificationsRaw, &rationale); err != nil {
			return nil, errors.StorageFailure("scan audit entry", err)
		}
		entry := &audit.Entry{
			ServiceID: svcID, RecommendationID: recID, Action: audit.Action(action), Actor: actor,
			Timestamp: occurredAt, SelectedTier: tier, Rationale: rationale,
		}
		if len(previousRaw) > 0 {
			_ = json.Unmarshal(previousRaw, &entry.PreviousState)
		}
		if len(newRaw) > 0 {
			_ = json.Unmarshal(newRaw, &entry.NewState)
		}
		if len(modificationsRaw) > 0 {
			_ = json.Unmarshal(modificationsRaw, &entry.Modifications)
		}
		result = append(result, entry)
	}
	return result, nil
}
