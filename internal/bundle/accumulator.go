// Package bundle accumulates layered context across specialist invocations.
// The accumulator's internal state is the only mutable copy; every bundle
// handed out is a derived, immutable snapshot.
package bundle

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkarlsen/switchboard/pkg/models"
)

// sessionState is the mutable five-layer context owned by one session.
type sessionState struct {
	problem      models.ProblemRequest
	coordination models.CoordinationLayer
	// domain maps each specialist to its merged findings, append-only.
	domain map[models.SpecialistID][]models.Finding
	// domainOrder records first-merge order, used for stable iteration.
	domainOrder []models.SpecialistID
	integration []models.IntegrationRecord
	historical  []models.SessionRef
}

// Accumulator holds the context state for every active session. Bundles are
// never shared across sessions; the accumulator lock only guards the
// session table and the per-session state it hands out copies of.
type Accumulator struct {
	mu        sync.Mutex
	sessions  map[string]*sessionState
	detectors []DetectorFunc

	// now and newID are injectable for deterministic tests.
	now   func() time.Time
	newID func() string
}

// New creates an Accumulator. With no detectors the default conflict,
// dependency, and synergy detectors are installed.
func New(detectors ...DetectorFunc) *Accumulator {
	if len(detectors) == 0 {
		detectors = DefaultDetectors()
	}
	return &Accumulator{
		sessions:  make(map[string]*sessionState),
		detectors: detectors,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// Open starts tracking context for a session. The problem layer is stored
// by value and never mutated afterwards.
func (a *Accumulator) Open(sessionID string, problem models.ProblemRequest, strategy models.Strategy, historical []models.SessionRef) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.sessions[sessionID]; exists {
		return fmt.Errorf("session %q already open", sessionID)
	}

	a.sessions[sessionID] = &sessionState{
		problem: copyProblem(problem),
		coordination: models.CoordinationLayer{
			CorrelationID: sessionID,
			Strategy:      strategy,
			CreatedAt:     a.now(),
		},
		domain:     make(map[models.SpecialistID][]models.Finding),
		historical: append([]models.SessionRef(nil), historical...),
	}
	return nil
}

// SetBatch records the batch index about to be dispatched in the
// coordination layer, so enriched bundles carry it.
func (a *Accumulator) SetBatch(sessionID string, batch int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %q not open", sessionID)
	}
	s.coordination.Batch = batch
	return nil
}

// Enrich returns an immutable snapshot of all layers focused on the target
// specialist. Stored layers are never mutated; parallel batches call Enrich
// for every member before any member's results are merged, so all members
// see the same pre-batch snapshot.
func (a *Accumulator) Enrich(sessionID string, target models.SpecialistID) (models.ContextBundle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.sessions[sessionID]
	if !ok {
		return models.ContextBundle{}, fmt.Errorf("session %q not open", sessionID)
	}

	b := a.snapshotLocked(s)
	b.DomainFocus = target
	return b, nil
}

// Snapshot returns the full accumulated bundle without a domain focus.
// This is what gets handed to the synthesis collaborator.
func (a *Accumulator) Snapshot(sessionID string) (models.ContextBundle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.sessions[sessionID]
	if !ok {
		return models.ContextBundle{}, fmt.Errorf("session %q not open", sessionID)
	}
	return a.snapshotLocked(s), nil
}

// Merge appends the specialist's findings to the domain layer and runs the
// pairwise detectors against every other merged domain, appending any
// integration records they produce. Existing findings are never overwritten.
func (a *Accumulator) Merge(sessionID string, specialist models.SpecialistID, findings []models.Finding) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %q not open", sessionID)
	}
	a.mergeLocked(s, specialist, findings)
	return nil
}

// MergeBatch merges a parallel batch's results. Results are processed in
// specialist-id sort order regardless of completion order, so the merged
// state is reproducible.
func (a *Accumulator) MergeBatch(sessionID string, results map[models.SpecialistID][]models.Finding) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %q not open", sessionID)
	}

	ids := make([]models.SpecialistID, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		a.mergeLocked(s, id, results[id])
	}
	return nil
}

// Close drops the session's context state. Called after archival.
func (a *Accumulator) Close(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.sessions, sessionID)
}

// mergeLocked appends findings and runs pairwise integration detection.
// Caller holds a.mu.
func (a *Accumulator) mergeLocked(s *sessionState, specialist models.SpecialistID, findings []models.Finding) {
	now := a.now()

	incoming := make([]models.Finding, 0, len(findings))
	for _, f := range findings {
		f.SpecialistID = specialist
		if f.ID == "" {
			f.ID = a.newID()
		}
		if f.CreatedAt.IsZero() {
			f.CreatedAt = now
		}
		incoming = append(incoming, f)
	}

	if _, seen := s.domain[specialist]; !seen {
		s.domainOrder = append(s.domainOrder, specialist)
	}
	s.domain[specialist] = append(s.domain[specialist], incoming...)

	// Pairwise comparison of the new findings against every other merged
	// domain, in sorted order for deterministic record sequence.
	others := make([]models.SpecialistID, 0, len(s.domain))
	for id := range s.domain {
		if id != specialist {
			others = append(others, id)
		}
	}
	sort.Slice(others, func(i, j int) bool { return others[i] < others[j] })

	for _, other := range others {
		for _, detect := range a.detectors {
			for _, rec := range detect(other, s.domain[other], specialist, incoming) {
				rec.ID = a.newID()
				rec.CreatedAt = now
				s.integration = append(s.integration, rec)
			}
		}
	}
}

// snapshotLocked deep-copies all layers. Caller holds a.mu.
func (a *Accumulator) snapshotLocked(s *sessionState) models.ContextBundle {
	domain := make(map[models.SpecialistID][]models.Finding, len(s.domain))
	for id, findings := range s.domain {
		domain[id] = copyFindings(findings)
	}

	return models.ContextBundle{
		Problem:      copyProblem(s.problem),
		Coordination: s.coordination,
		Domain:       domain,
		Integration:  append([]models.IntegrationRecord(nil), s.integration...),
		Historical:   append([]models.SessionRef(nil), s.historical...),
	}
}

func copyProblem(p models.ProblemRequest) models.ProblemRequest {
	p.Hints = append([]string(nil), p.Hints...)
	return p
}

func copyFindings(findings []models.Finding) []models.Finding {
	out := make([]models.Finding, len(findings))
	for i, f := range findings {
		f.Resources = append([]string(nil), f.Resources...)
		f.Requires = append([]string(nil), f.Requires...)
		f.Patterns = append([]string(nil), f.Patterns...)
		out[i] = f
	}
	return out
}
