package models

// Strategy is the chosen fan-out pattern for a dispatch.
type Strategy string

const (
	// StrategyDirect dispatches to a single specialist.
	StrategyDirect Strategy = "direct"
	// StrategyParallel dispatches all qualifying specialists concurrently.
	StrategyParallel Strategy = "parallel"
	// StrategyMeta dispatches sequential parallel batches and hands the
	// accumulated results to a meta-level specialist for synthesis.
	StrategyMeta Strategy = "meta"
)

// Valid returns true if the strategy is a known value.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyDirect, StrategyParallel, StrategyMeta:
		return true
	default:
		return false
	}
}

// SpecialistScore is one qualifying specialist with its match confidence.
type SpecialistScore struct {
	// SpecialistID is the qualifying specialist.
	SpecialistID SpecialistID `json:"specialist_id"`
	// PatternID is the domain pattern that matched, empty for the fallback.
	PatternID string `json:"pattern_id,omitempty"`
	// Confidence is the classification score that qualified this
	// specialist, in [0,1].
	Confidence float64 `json:"confidence"`
}

// DispatchDecision is the planned fan-out for one problem request.
type DispatchDecision struct {
	// Strategy is the chosen fan-out pattern.
	Strategy Strategy `json:"strategy"`
	// Specialists are the selected specialists ordered by descending
	// confidence (ties broken by specialist id).
	Specialists []SpecialistScore `json:"specialists"`
	// Batches is the ordered batch plan. Each batch is dispatched in
	// parallel; batches run strictly one after another. Every batch size
	// respects the configured ceilings.
	Batches [][]SpecialistID `json:"batches"`
}

// DispatchStatus is the user-visible outcome class of a dispatch.
type DispatchStatus string

const (
	// DispatchComplete means every invoked specialist returned findings.
	DispatchComplete DispatchStatus = "complete"
	// DispatchPartial means some specialists failed or timed out but at
	// least one returned findings.
	DispatchPartial DispatchStatus = "partial"
	// DispatchFailed means no specialist returned findings.
	DispatchFailed DispatchStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s DispatchStatus) Valid() bool {
	switch s {
	case DispatchComplete, DispatchPartial, DispatchFailed:
		return true
	default:
		return false
	}
}

// DegradedSpecialist names a specialist that did not contribute findings and
// the reason why.
type DegradedSpecialist struct {
	// SpecialistID is the degraded specialist.
	SpecialistID SpecialistID `json:"specialist_id"`
	// Reason explains the degradation (timeout, error message, cancelled).
	Reason string `json:"reason"`
}
