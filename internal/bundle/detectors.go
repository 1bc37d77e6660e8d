package bundle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mkarlsen/switchboard/pkg/models"
)

// DetectorFunc inspects an incoming domain's new findings against one
// previously merged domain and returns integration records for anything it
// detects. Record IDs and timestamps are filled in by the accumulator.
// Detection rules are pluggable; the defaults below cover resource
// conflicts, prerequisite dependencies, and shared implementation patterns.
type DetectorFunc func(existing models.SpecialistID, existingFindings []models.Finding, incoming models.SpecialistID, incomingFindings []models.Finding) []models.IntegrationRecord

// DefaultDetectors returns the built-in detector set.
func DefaultDetectors() []DetectorFunc {
	return []DetectorFunc{
		DetectConflicts,
		DetectDependencies,
		DetectSynergies,
	}
}

// DetectConflicts flags resources claimed by both domains.
func DetectConflicts(existing models.SpecialistID, existingFindings []models.Finding, incoming models.SpecialistID, incomingFindings []models.Finding) []models.IntegrationRecord {
	claimed := resourceSet(existingFindings)

	var records []models.IntegrationRecord
	for _, resource := range sortedIntersection(claimed, resourceSet(incomingFindings)) {
		records = append(records, models.IntegrationRecord{
			Kind:    models.IntegrationConflict,
			Domains: [2]models.SpecialistID{existing, incoming},
			Detail:  fmt.Sprintf("both domains claim resource %q", resource),
		})
	}
	return records
}

// DetectDependencies flags prerequisite relationships: one domain requires
// a resource the other provides, in either direction.
func DetectDependencies(existing models.SpecialistID, existingFindings []models.Finding, incoming models.SpecialistID, incomingFindings []models.Finding) []models.IntegrationRecord {
	var records []models.IntegrationRecord

	// Incoming depends on existing.
	provided := resourceSet(existingFindings)
	for _, req := range sortedIntersection(provided, requireSet(incomingFindings)) {
		records = append(records, models.IntegrationRecord{
			Kind:    models.IntegrationDependency,
			Domains: [2]models.SpecialistID{existing, incoming},
			Detail:  fmt.Sprintf("%s requires %q provided by %s", incoming, req, existing),
		})
	}

	// Existing depends on incoming.
	provided = resourceSet(incomingFindings)
	for _, req := range sortedIntersection(provided, requireSet(existingFindings)) {
		records = append(records, models.IntegrationRecord{
			Kind:    models.IntegrationDependency,
			Domains: [2]models.SpecialistID{existing, incoming},
			Detail:  fmt.Sprintf("%s requires %q provided by %s", existing, req, incoming),
		})
	}
	return records
}

// DetectSynergies flags implementation patterns both domains apply.
func DetectSynergies(existing models.SpecialistID, existingFindings []models.Finding, incoming models.SpecialistID, incomingFindings []models.Finding) []models.IntegrationRecord {
	var records []models.IntegrationRecord
	for _, pattern := range sortedIntersection(patternSet(existingFindings), patternSet(incomingFindings)) {
		records = append(records, models.IntegrationRecord{
			Kind:    models.IntegrationSynergy,
			Domains: [2]models.SpecialistID{existing, incoming},
			Detail:  fmt.Sprintf("both domains apply pattern %q", pattern),
		})
	}
	return records
}

func resourceSet(findings []models.Finding) map[string]bool {
	set := make(map[string]bool)
	for _, f := range findings {
		for _, r := range f.Resources {
			set[normalizeKey(r)] = true
		}
	}
	return set
}

func requireSet(findings []models.Finding) map[string]bool {
	set := make(map[string]bool)
	for _, f := range findings {
		for _, r := range f.Requires {
			set[normalizeKey(r)] = true
		}
	}
	return set
}

func patternSet(findings []models.Finding) map[string]bool {
	set := make(map[string]bool)
	for _, f := range findings {
		for _, p := range f.Patterns {
			set[normalizeKey(p)] = true
		}
	}
	return set
}

// sortedIntersection returns the keys present in both sets, sorted so
// detection output is deterministic.
func sortedIntersection(a, b map[string]bool) []string {
	var shared []string
	for k := range a {
		if b[k] {
			shared = append(shared, k)
		}
	}
	sort.Strings(shared)
	return shared
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
