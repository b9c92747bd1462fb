// Package lifecycle implements accept/modify/reject and the expiry sweep
// for recommendations (§4.7), recording an append-only audit trail for
// every action.
package lifecycle

import (
	"context"

	"github.com/R3E-Network/slo-recommendation-engine/internal/app/ports"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/audit"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/recommendation"
	"github.com/R3E-Network/slo-recommendation-engine/pkg/errors"
)

// UseCase implements the lifecycle actions over the recommendation and
// audit ports.
type UseCase struct {
	recs   ports.RecommendationRepository
	audits ports.AuditStore
	clock  ports.Clock
}

// New constructs a UseCase.
func New(recs ports.RecommendationRepository, audits ports.AuditStore, clock ports.Clock) *UseCase {
	return &UseCase{recs: recs, audits: audits, clock: clock}
}

// Accept records acceptance of one of an active recommendation's computed
// tiers. It does not mutate the recommendation row itself: the audit
// entry's SelectedTier is the durable record of the choice.
func (u *UseCase) Accept(ctx context.Context, serviceID string, sliType recommendation.SLIType, tier recommendation.TierName, actor, rationale string) (*audit.Entry, error) {
	rec, err := u.activeRecommendation(ctx, serviceID, sliType)
	if err != nil {
		return nil, err
	}
	if _, ok := rec.Tiers[tier]; !ok {
		return nil, errors.InvalidInput("tier", "selected tier is not one of the recommendation's computed tiers")
	}

	before := snapshot(rec)
	after := snapshot(rec)
	after["selected_tier"] = string(tier)

	entry, err := audit.New(serviceID, rec.ID, audit.ActionAccept, actor, u.clock.Now(), before, after, rationale)
	if err != nil {
		return nil, err
	}
	entry.SelectedTier = string(tier)
	if err := u.audits.Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Modify records a modification against an active recommendation: arbitrary
// key/value deltas a reviewer chose to apply on top of the computed tiers.
func (u *UseCase) Modify(ctx context.Context, serviceID string, sliType recommendation.SLIType, modifications map[string]interface{}, actor, rationale string) (*audit.Entry, error) {
	rec, err := u.activeRecommendation(ctx, serviceID, sliType)
	if err != nil {
		return nil, err
	}
	if len(modifications) == 0 {
		return nil, errors.InvalidInput("modifications", "must supply at least one modification")
	}

	before := snapshot(rec)
	after := snapshot(rec)
	for k, v := range modifications {
		after[k] = v
	}

	entry, err := audit.New(serviceID, rec.ID, audit.ActionModify, actor, u.clock.Now(), before, after, rationale)
	if err != nil {
		return nil, err
	}
	entry.Modifications = modifications
	if err := u.audits.Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Reject records rejection of an active recommendation and supersedes it,
// removing it from future GetActive results for this (service, sli_type).
func (u *UseCase) Reject(ctx context.Context, serviceID string, sliType recommendation.SLIType, actor, rationale string) (*audit.Entry, error) {
	rec, err := u.activeRecommendation(ctx, serviceID, sliType)
	if err != nil {
		return nil, err
	}
	before := snapshot(rec)
	rec.Supersede()
	after := snapshot(rec)

	if err := u.recs.SupersedeActive(ctx, serviceID, sliType); err != nil {
		return nil, err
	}

	entry, err := audit.New(serviceID, rec.ID, audit.ActionReject, actor, u.clock.Now(), before, after, rationale)
	if err != nil {
		return nil, err
	}
	if err := u.audits.Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ExpireSweep transitions every active recommendation whose expiry has
// passed to expired, returning the count transitioned. Intended to be
// invoked on a periodic schedule in addition to any lazy read-time check a
// caller performs on individual rows.
func (u *UseCase) ExpireSweep(ctx context.Context) (int, error) {
	return u.recs.ExpireStale(ctx, u.clock.Now())
}

// History returns the append-only audit trail for a service, in the order
// the store returns it (storage adapters are responsible for the
// monotonic-timestamp ordering guarantee).
func (u *UseCase) History(ctx context.Context, serviceID string) ([]*audit.Entry, error) {
	return u.audits.ListByService(ctx, serviceID)
}

func (u *UseCase) activeRecommendation(ctx context.Context, serviceID string, sliType recommendation.SLIType) (*recommendation.Recommendation, error) {
	recs, err := u.recs.GetActive(ctx, serviceID, &sliType)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, errors.InvalidInput("service_id/sli_type", "no active recommendation found")
	}
	return recs[0], nil
}

func snapshot(rec *recommendation.Recommendation) map[string]interface{} {
	return map[string]interface{}{
		"id":           rec.ID,
		"service_id":   rec.ServiceID,
		"sli_type":     string(rec.SLIType),
		"status":       string(rec.Status),
		"generated_at": rec.GeneratedAt,
		"expires_at":   rec.ExpiresAt,
	}
}
