package models

// Capability represents the problem domain a specialist handler covers.
type Capability string

const (
	// CapabilityTesting covers test failures, mocking, and coverage work.
	CapabilityTesting Capability = "testing"
	// CapabilityDatabase covers schema, query, and migration work.
	CapabilityDatabase Capability = "database"
	// CapabilitySecurity covers auth, vulnerabilities, and hardening.
	CapabilitySecurity Capability = "security"
	// CapabilityPerformance covers latency, memory, and profiling work.
	CapabilityPerformance Capability = "performance"
	// CapabilityFrontend covers UI, layout, and rendering work.
	CapabilityFrontend Capability = "frontend"
	// CapabilityBackend covers API, service, and handler work.
	CapabilityBackend Capability = "backend"
	// CapabilityDocs covers documentation and guides.
	CapabilityDocs Capability = "docs"
	// CapabilityInfrastructure covers deployment and pipeline work.
	CapabilityInfrastructure Capability = "infrastructure"
	// CapabilityMeta is the synthesis level that combines other specialists'
	// results in a meta dispatch.
	CapabilityMeta Capability = "meta"
	// CapabilityGeneral is the fallback for unclassified problems.
	CapabilityGeneral Capability = "general"
)

// Valid returns true if the capability is a known value.
func (c Capability) Valid() bool {
	switch c {
	case CapabilityTesting, CapabilityDatabase, CapabilitySecurity,
		CapabilityPerformance, CapabilityFrontend, CapabilityBackend,
		CapabilityDocs, CapabilityInfrastructure, CapabilityMeta,
		CapabilityGeneral:
		return true
	default:
		return false
	}
}

// SpecialistID uniquely identifies a registered specialist handler.
type SpecialistID string

// Specialist describes a registered handler without exposing its internals.
// The handler implementation itself is an external collaborator.
type Specialist struct {
	// ID is the unique identifier used in dispatch decisions and merges.
	ID SpecialistID `json:"id"`
	// Capability is the problem domain this specialist covers.
	Capability Capability `json:"capability"`
	// Description is a short human-readable summary.
	Description string `json:"description,omitempty"`
}
