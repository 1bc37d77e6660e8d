package models

import "time"

// PatternState represents the learning phase of a domain pattern.
type PatternState string

const (
	// PatternObserving means the pattern is still collecting outcomes and
	// its confidence is expected to move.
	PatternObserving PatternState = "observing"
	// PatternConverged means the pattern has seen enough outcomes for its
	// confidence to be considered stable.
	PatternConverged PatternState = "converged"
)

// Valid returns true if the state is a known value.
func (s PatternState) Valid() bool {
	switch s {
	case PatternObserving, PatternConverged:
		return true
	default:
		return false
	}
}

// DomainPattern is a named text-matching rule plus its learned statistics.
// Confidence is only mutated by the learning update and stays in [0,1].
type DomainPattern struct {
	// ID is the unique pattern identifier.
	ID string `json:"id"`
	// SpecialistID is the specialist this pattern routes to.
	SpecialistID SpecialistID `json:"specialist_id"`
	// Keywords are single words that indicate this domain.
	Keywords []string `json:"keywords"`
	// Triggers are phrases that strongly indicate this domain.
	Triggers []string `json:"triggers,omitempty"`
	// Confidence is the learned probability that this pattern routes
	// correctly, in [0,1].
	Confidence float64 `json:"confidence"`
	// SuccessCount is the lifetime number of successful outcomes.
	SuccessCount int `json:"success_count"`
	// TotalCount is the lifetime number of recorded outcomes.
	TotalCount int `json:"total_count"`
	// LastSuccess is when the pattern last produced a successful outcome.
	LastSuccess time.Time `json:"last_success,omitempty"`
	// State is the learning phase (observing or converged).
	State PatternState `json:"state"`

	// DecayedSuccess and DecayedTotal are the exponentially time-decayed
	// accumulators backing Confidence. LastUpdate anchors the decay.
	DecayedSuccess float64   `json:"decayed_success"`
	DecayedTotal   float64   `json:"decayed_total"`
	LastUpdate     time.Time `json:"last_update,omitempty"`
}

// Clone returns a deep copy of the pattern.
func (p *DomainPattern) Clone() *DomainPattern {
	c := *p
	c.Keywords = append([]string(nil), p.Keywords...)
	c.Triggers = append([]string(nil), p.Triggers...)
	return &c
}
