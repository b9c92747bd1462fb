// Package audit defines the append-only Audit Entry recording lifecycle
// actions taken against recommendations.
package audit

import (
	"time"

	"github.com/R3E-Network/slo-recommendation-engine/pkg/errors"
)

// Action identifies which lifecycle transition an audit entry records.
type Action string

const (
	ActionAccept         Action = "accept"
	ActionModify         Action = "modify"
	ActionReject         Action = "reject"
	ActionAutoApprove    Action = "auto_approve"
	ActionDriftTriggered Action = "drift_triggered"
	ActionExpire         Action = "expire"
)

func (a Action) valid() bool {
	switch a {
	case ActionAccept, ActionModify, ActionReject, ActionAutoApprove, ActionDriftTriggered, ActionExpire:
		return true
	}
	return false
}

// Entry is an append-only record of a single lifecycle action. PreviousState
// and NewState are opaque value snapshots (serialized by the storage
// adapter), never live references.
type Entry struct {
	ServiceID        string
	RecommendationID string
	Action           Action
	Actor            string
	Timestamp        time.Time
	PreviousState    map[string]interface{}
	NewState         map[string]interface{}
	SelectedTier     string // accept only
	Modifications    map[string]interface{} // modify only
	Rationale        string
}

// New validates and constructs an audit Entry.
func New(serviceID, recommendationID string, action Action, actor string, timestamp time.Time, previousState, newState map[string]interface{}, rationale string) (*Entry, error) {
	if serviceID == "" || recommendationID == "" {
		return nil, errors.InvalidInput("service_id/recommendation_id", "must not be empty")
	}
	if !action.valid() {
		return nil, errors.InvalidInput("action", "must be one of accept, modify, reject, auto_approve, drift_triggered, expire")
	}
	if actor == "" {
		return nil, errors.InvalidInput("actor", "must not be empty")
	}
	return &Entry{
		ServiceID:        serviceID,
		RecommendationID: recommendationID,
		Action:           action,
		Actor:            actor,
		Timestamp:        timestamp,
		PreviousState:    previousState,
		NewState:         newState,
		Rationale:        rationale,
	}, nil
}

// ActiveSLO is the materialized result of an accept/modify action: the
// service-level objective a team has actually committed to, as opposed to
// the system's recommendation.
type ActiveSLO struct {
	ServiceID        string
	SLIType          string
	Target           float64
	RecommendationID string
	AcceptedAt       time.Time
	Actor            string
}
