// Package composite computes the composite availability bound for a
// service's dependency subgraph: serial products, parallel redundancy, SCC
// supernode collapse, and the external-API adaptive buffer.
package composite

import "sort"

// DependencyKind distinguishes how a dependency contributes to the bound.
type DependencyKind int

const (
	// KindSerialHard is a hard-sync dependency included in the serial product.
	KindSerialHard DependencyKind = iota
	// KindSoft is excluded from the product and reported only as risk.
	KindSoft
)

// Dependency is one input to the composite bound for a single service.
type Dependency struct {
	ServiceID    string
	Availability float64
	Kind         DependencyKind
}

// RedundantGroup is a set of replicas providing the same capability; the
// group's combined availability is computed via parallel redundancy before
// being folded into the serial product as a single effective dependency.
type RedundantGroup struct {
	GroupID  string
	Replicas []float64
}

// GroupAvailability computes 1 - Π(1 - R_replica) for a redundant group.
func GroupAvailability(replicas []float64) float64 {
	product := 1.0
	for _, r := range replicas {
		product *= 1 - r
	}
	return 1 - product
}

// Bound is the result of the composite availability computation.
type Bound struct {
	RComposite   float64
	Bottleneck   string // ServiceID of the dependency contributing the greatest downward delta; empty if none
	HardCount    int
	SoftCount    int
	SoftRisks    []string
}

// Compute folds self-availability, hard-sync dependencies (including
// redundant groups already reduced via GroupAvailability), and SCC
// supernodes (pre-collapsed by the caller to a single Dependency with
// Availability = min(members)) into a single bound.
//
// Soft dependencies never enter the product; their service ids are
// collected as risks. The bottleneck is whichever hard dependency's
// availability is lowest, since removing the single lowest-availability
// factor from the product yields the largest increase in the bound — the
// greatest downward delta it was contributing.
func Compute(selfAvailability float64, deps []Dependency) Bound {
	result := Bound{RComposite: selfAvailability}

	lowestAvailability := 1.0
	bottleneck := ""
	for _, d := range deps {
		switch d.Kind {
		case KindSerialHard:
			result.RComposite *= d.Availability
			result.HardCount++
			if d.Availability < lowestAvailability {
				lowestAvailability = d.Availability
				bottleneck = d.ServiceID
			}
		case KindSoft:
			result.SoftCount++
			result.SoftRisks = append(result.SoftRisks, d.ServiceID)
		}
	}
	sort.Strings(result.SoftRisks)
	result.Bottleneck = bottleneck
	return result
}

// AdaptiveBuffer computes the external API adaptive buffer per §4.5. The
// pointers convey optionality: nil means "not observed"/"not published".
func AdaptiveBuffer(observed, publishedSLA *float64, bufferK, configuredDefault float64) float64 {
	var publishedAdjusted float64
	if publishedSLA != nil {
		publishedAdjusted = 1 - (1-*publishedSLA)*bufferK
	}
	switch {
	case observed != nil && publishedSLA != nil:
		if *observed < publishedAdjusted {
			return *observed
		}
		return publishedAdjusted
	case observed != nil:
		return *observed
	case publishedSLA != nil:
		return publishedAdjusted
	default:
		return configuredDefault
	}
}
