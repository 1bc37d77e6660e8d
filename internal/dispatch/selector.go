package dispatch

import (
	"sort"

	"github.com/mkarlsen/switchboard/internal/classifier"
	"github.com/mkarlsen/switchboard/internal/config"
	"github.com/mkarlsen/switchboard/pkg/models"
)

// parallelCeiling is the largest domain count handled as one parallel
// batch; anything above it escalates to a meta-dispatch.
const parallelCeiling = 4

// Selector chooses the dispatch strategy and batch plan for a problem.
type Selector struct {
	classifier *classifier.Classifier
	batchSize  int
}

// NewSelector creates a Selector. The effective batch size is the smaller
// of the batch ceiling and the concurrency ceiling.
func NewSelector(c *classifier.Classifier, cfg config.DispatchConfig) *Selector {
	batchSize := cfg.BatchCeiling
	if cfg.ConcurrencyCeiling < batchSize {
		batchSize = cfg.ConcurrencyCeiling
	}
	return &Selector{
		classifier: c,
		batchSize:  batchSize,
	}
}

// Decide maps the detected domain count to a strategy: zero or one domain
// dispatches direct (zero to the fallback specialist at confidence 0), two
// to four run as one parallel batch, five or more become a meta-dispatch of
// sequential batches. Oversized requests are re-chunked, never rejected.
func (s *Selector) Decide(req models.ProblemRequest) models.DispatchDecision {
	scores := s.score(req)

	switch d := len(scores); {
	case d == 0:
		fallback := models.SpecialistScore{
			SpecialistID: s.classifier.Fallback(),
			Confidence:   0,
		}
		return models.DispatchDecision{
			Strategy:    models.StrategyDirect,
			Specialists: []models.SpecialistScore{fallback},
			Batches:     [][]models.SpecialistID{{fallback.SpecialistID}},
		}

	case d == 1:
		return models.DispatchDecision{
			Strategy:    models.StrategyDirect,
			Specialists: scores,
			Batches:     [][]models.SpecialistID{{scores[0].SpecialistID}},
		}

	case d <= parallelCeiling:
		// A parallel dispatch is still chunked: the plan itself never
		// carries a batch above the effective batch size.
		return models.DispatchDecision{
			Strategy:    models.StrategyParallel,
			Specialists: scores,
			Batches:     s.chunk(scores),
		}

	default:
		return models.DispatchDecision{
			Strategy:    models.StrategyMeta,
			Specialists: scores,
			Batches:     s.chunk(scores),
		}
	}
}

// score classifies the problem text and folds in explicit hints. A hint
// names a domain pattern directly and qualifies regardless of text score;
// when both the text and a hint select the same specialist the higher
// confidence wins.
func (s *Selector) score(req models.ProblemRequest) []models.SpecialistScore {
	best := make(map[models.SpecialistID]models.SpecialistScore)

	for _, m := range s.classifier.ClassifyAll(req.Text) {
		best[m.SpecialistID] = models.SpecialistScore{
			SpecialistID: m.SpecialistID,
			PatternID:    m.PatternID,
			Confidence:   m.Score,
		}
	}

	for _, hint := range req.Hints {
		m, ok := s.classifier.HintMatch(hint)
		if !ok {
			debugLog("ignoring unknown hint %q", hint)
			continue
		}
		if prev, seen := best[m.SpecialistID]; !seen || m.Score > prev.Confidence {
			best[m.SpecialistID] = models.SpecialistScore{
				SpecialistID: m.SpecialistID,
				PatternID:    m.PatternID,
				Confidence:   m.Score,
			}
		}
	}

	scores := make([]models.SpecialistScore, 0, len(best))
	for _, sc := range best {
		scores = append(scores, sc)
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Confidence != scores[j].Confidence {
			return scores[i].Confidence > scores[j].Confidence
		}
		return scores[i].SpecialistID < scores[j].SpecialistID
	})
	return scores
}

// chunk splits the selected specialists into confidence-ordered batches no
// larger than the effective batch size.
func (s *Selector) chunk(scores []models.SpecialistScore) [][]models.SpecialistID {
	var batches [][]models.SpecialistID
	for start := 0; start < len(scores); start += s.batchSize {
		end := start + s.batchSize
		if end > len(scores) {
			end = len(scores)
		}
		batch := make([]models.SpecialistID, 0, end-start)
		for _, sc := range scores[start:end] {
			batch = append(batch, sc.SpecialistID)
		}
		batches = append(batches, batch)
	}
	return batches
}
