package models

import "time"

// ProblemRequest is the inbound problem description. It is immutable once
// created; the context accumulator only ever copies it.
type ProblemRequest struct {
	// Text is the free-text problem description.
	Text string `json:"text"`
	// Hints are optional explicit domain hints (pattern ids).
	Hints []string `json:"hints,omitempty"`
	// Requester identifies who submitted the problem.
	Requester string `json:"requester"`
	// CreatedAt is when the request was created.
	CreatedAt time.Time `json:"created_at"`
}

// Finding is one result item returned by a specialist.
type Finding struct {
	// ID uniquely identifies the finding.
	ID string `json:"id"`
	// SpecialistID is the specialist that produced the finding.
	SpecialistID SpecialistID `json:"specialist_id"`
	// Summary is the finding content. Its semantics are opaque to the core.
	Summary string `json:"summary"`
	// Resources are resources this finding claims or modifies.
	Resources []string `json:"resources,omitempty"`
	// Requires are resources or specialist ids this finding depends on.
	Requires []string `json:"requires,omitempty"`
	// Patterns are implementation patterns this finding applies.
	Patterns []string `json:"patterns,omitempty"`
	// CreatedAt is when the finding was produced.
	CreatedAt time.Time `json:"created_at"`
}

// IntegrationKind classifies a cross-domain integration record.
type IntegrationKind string

const (
	// IntegrationConflict marks conflicting resource claims between domains.
	IntegrationConflict IntegrationKind = "conflict"
	// IntegrationDependency marks a prerequisite relationship between domains.
	IntegrationDependency IntegrationKind = "dependency"
	// IntegrationSynergy marks matching implementation patterns between domains.
	IntegrationSynergy IntegrationKind = "synergy"
)

// Valid returns true if the kind is a known value.
func (k IntegrationKind) Valid() bool {
	switch k {
	case IntegrationConflict, IntegrationDependency, IntegrationSynergy:
		return true
	default:
		return false
	}
}

// IntegrationRecord captures a detected relationship between two domains'
// findings. Records are append-only.
type IntegrationRecord struct {
	// ID uniquely identifies the record.
	ID string `json:"id"`
	// Kind is the relationship class.
	Kind IntegrationKind `json:"kind"`
	// Domains are the two specialists involved, in merge order.
	Domains [2]SpecialistID `json:"domains"`
	// Detail describes what was detected (the shared resource, the
	// prerequisite, or the matching pattern).
	Detail string `json:"detail"`
	// CreatedAt is when the record was appended.
	CreatedAt time.Time `json:"created_at"`
}

// CoordinationLayer holds session metadata inside a context bundle.
type CoordinationLayer struct {
	// CorrelationID is the owning session's identifier.
	CorrelationID string `json:"correlation_id"`
	// Strategy is the dispatch strategy in effect.
	Strategy Strategy `json:"strategy"`
	// Batch is the zero-based index of the batch being prepared.
	Batch int `json:"batch"`
	// CreatedAt is when the session was opened.
	CreatedAt time.Time `json:"created_at"`
}

// ContextBundle is the layered context handed to a specialist. A bundle is a
// derived, immutable snapshot; the accumulator's internal state is the only
// mutable copy.
type ContextBundle struct {
	// Problem is the immutable problem layer.
	Problem ProblemRequest `json:"problem"`
	// Coordination is the session metadata layer.
	Coordination CoordinationLayer `json:"coordination"`
	// Domain maps each specialist domain to its merged findings. Entries
	// are append-only in the accumulator; the snapshot is a deep copy.
	Domain map[SpecialistID][]Finding `json:"domain"`
	// Integration holds detected cross-domain records.
	Integration []IntegrationRecord `json:"integration"`
	// Historical holds read-only references to archived sessions.
	Historical []SessionRef `json:"historical,omitempty"`
	// DomainFocus names the specialist this snapshot was enriched for.
	DomainFocus SpecialistID `json:"domain_focus,omitempty"`
}
