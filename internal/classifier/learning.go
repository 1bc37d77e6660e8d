package classifier

import (
	"math"
	"time"

	"github.com/mkarlsen/switchboard/pkg/models"
)

// DefaultDecayHalfLife is the confidence decay half-life: an outcome seven
// days old carries half the weight of a fresh one. The source material only
// states that recent successes weigh higher; seven days keeps a week of
// routing history dominant without letting one bad day erase a pattern.
const DefaultDecayHalfLife = 7 * 24 * time.Hour

// convergenceObservations is the decayed evidence mass at which a pattern
// moves from observing to converged. Long idle periods decay evidence below
// this bar, which drops the pattern back to observing.
const convergenceObservations = 20.0

// priorObservations is the evidence mass given to a seeded confidence value
// so the first recorded outcome adjusts it instead of replacing it.
const priorObservations = 10.0

// RecordOutcome records a dispatch outcome for the pattern and recomputes
// its confidence as an exponentially time-decayed success ratio. The update
// runs as an atomic read-modify-write on the pattern's repository entry, so
// concurrent callers are safe.
func (c *Classifier) RecordOutcome(patternID string, success bool) error {
	now := c.now()
	return c.repo.Update(patternID, func(p *models.DomainPattern) {
		factor := 1.0
		if !p.LastUpdate.IsZero() {
			factor = decayFactor(now.Sub(p.LastUpdate), c.halfLife)
		}
		p.DecayedSuccess *= factor
		p.DecayedTotal *= factor

		p.DecayedTotal++
		p.TotalCount++
		if success {
			p.DecayedSuccess++
			p.SuccessCount++
			p.LastSuccess = now
		}

		p.Confidence = clamp01(p.DecayedSuccess / p.DecayedTotal)
		p.LastUpdate = now

		if p.DecayedTotal >= convergenceObservations {
			p.State = models.PatternConverged
		} else {
			p.State = models.PatternObserving
		}
	})
}

// RecordSession records one session-level outcome against every pattern
// that contributed to the decision. Used when only whole-session success is
// known; callers with per-specialist results use RecordOutcome directly.
func (c *Classifier) RecordSession(decision models.DispatchDecision, success bool) error {
	var firstErr error
	for _, sc := range decision.Specialists {
		if sc.PatternID == "" {
			continue
		}
		if err := c.RecordOutcome(sc.PatternID, success); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// decayFactor returns the weight multiplier for evidence that is elapsed
// old, halving once per half-life.
func decayFactor(elapsed, halfLife time.Duration) float64 {
	if elapsed <= 0 {
		return 1
	}
	return math.Pow(0.5, float64(elapsed)/float64(halfLife))
}

// clamp01 bounds v to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// seedEvidence initializes the decayed accumulators of a pattern that was
// registered with a hand-set confidence, so learning starts from the seed
// instead of from scratch.
func seedEvidence(p *models.DomainPattern) {
	if p.DecayedTotal > 0 || p.Confidence <= 0 {
		return
	}
	p.DecayedTotal = priorObservations
	p.DecayedSuccess = p.Confidence * priorObservations
}
