// Package service defines the Service entity: the named participant in the
// dependency graph that every SLI, recommendation, and audit entry ultimately
// references by id.
package service

import "github.com/R3E-Network/slo-recommendation-engine/pkg/errors"

// Criticality ranks how important a service is to the business.
type Criticality string

const (
	CriticalityCritical Criticality = "critical"
	CriticalityHigh     Criticality = "high"
	CriticalityMedium   Criticality = "medium"
	CriticalityLow      Criticality = "low"
)

func (c Criticality) valid() bool {
	switch c {
	case CriticalityCritical, CriticalityHigh, CriticalityMedium, CriticalityLow:
		return true
	}
	return false
}

// Type distinguishes services the fleet operates from third parties it calls.
type Type string

const (
	TypeInternal Type = "internal"
	TypeExternal Type = "external"
)

func (t Type) valid() bool {
	return t == TypeInternal || t == TypeExternal
}

// Service is a named participant in the dependency graph.
type Service struct {
	ServiceID    string
	Team         string
	Criticality  Criticality
	Type         Type
	PublishedSLA *float64 // ratio in (0,1], only set when Type == TypeExternal
	Discovered   bool     // true if auto-created as a placeholder by edge ingestion
	Metadata     map[string]string
}

// New validates and constructs a Service. PublishedSLA must be nil unless
// typ is TypeExternal, per the data model's invariant.
func New(serviceID, team string, criticality Criticality, typ Type, publishedSLA *float64) (*Service, error) {
	if serviceID == "" {
		return nil, errors.InvalidInput("service_id", "must not be empty")
	}
	if !criticality.valid() {
		return nil, errors.InvalidInput("criticality", "must be one of critical, high, medium, low")
	}
	if !typ.valid() {
		return nil, errors.InvalidInput("service_type", "must be one of internal, external")
	}
	if publishedSLA != nil {
		if typ != TypeExternal {
			return nil, errors.InvalidInput("published_sla", "may only be set when service_type is external")
		}
		if *publishedSLA <= 0 || *publishedSLA > 1 {
			return nil, errors.InvalidInput("published_sla", "must be in (0, 1]")
		}
	}
	return &Service{
		ServiceID:    serviceID,
		Team:         team,
		Criticality:  criticality,
		Type:         typ,
		PublishedSLA: publishedSLA,
		Metadata:     map[string]string{},
	}, nil
}

// NewDiscovered constructs a placeholder Service created implicitly by edge
// ingestion when an endpoint has not yet been explicitly registered.
func NewDiscovered(serviceID string) *Service {
	return &Service{
		ServiceID:   serviceID,
		Criticality: CriticalityMedium,
		Type:        TypeInternal,
		Discovered:  true,
		Metadata:    map[string]string{},
	}
}

// ApplyExplicitMetadata merges explicit registration data onto a previously
// discovered placeholder, clearing the Discovered flag. Per §4.1 step 2: a
// discovered placeholder's flag clears the moment real metadata arrives.
func (s *Service) ApplyExplicitMetadata(team string, criticality Criticality, typ Type, publishedSLA *float64) error {
	if !criticality.valid() {
		return errors.InvalidInput("criticality", "must be one of critical, high, medium, low")
	}
	if !typ.valid() {
		return errors.InvalidInput("service_type", "must be one of internal, external")
	}
	if publishedSLA != nil && typ != TypeExternal {
		return errors.InvalidInput("published_sla", "may only be set when service_type is external")
	}
	s.Team = team
	s.Criticality = criticality
	s.Type = typ
	s.PublishedSLA = publishedSLA
	s.Discovered = false
	return nil
}
