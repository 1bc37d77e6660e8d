// Package classifier scores free text against learned domain patterns and
// updates pattern confidence from dispatch outcomes.
package classifier

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/mkarlsen/switchboard/pkg/models"
)

const (
	// keywordWeight is the score share carried by keyword overlap.
	keywordWeight = 0.8
	// triggerWeight is the score added per matched trigger phrase.
	triggerWeight = 0.2
	// matchSaturation is the number of keyword hits that counts as full
	// keyword signal. Problem descriptions are short; three independent
	// domain keywords are as telling as ten.
	matchSaturation = 3
)

// DefaultThreshold is the minimum score for a classification to qualify.
const DefaultThreshold = 0.7

// stopWords are common words stripped before keyword matching.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "do": true, "does": true,
	"for": true, "from": true, "has": true, "have": true, "i": true,
	"if": true, "in": true, "is": true, "it": true, "my": true, "not": true,
	"of": true, "on": true, "or": true, "our": true, "so": true,
	"that": true, "the": true, "then": true, "this": true, "to": true,
	"was": true, "we": true, "were": true, "will": true, "with": true,
	"your": true,
}

// Match is one scored classification result.
type Match struct {
	// PatternID is the matched pattern, empty for the unclassified fallback.
	PatternID string
	// SpecialistID is the specialist the pattern routes to.
	SpecialistID models.SpecialistID
	// Score is the final match score in [0,1].
	Score float64
	// totalCount carries the pattern's observation count for tie-breaking.
	totalCount int
}

// Config holds classifier settings.
type Config struct {
	// Threshold is the minimum qualifying score. Zero means DefaultThreshold.
	Threshold float64
	// Fallback is the specialist for unclassified text.
	Fallback models.SpecialistID
	// DecayHalfLife overrides the confidence decay half-life. Zero means
	// DefaultDecayHalfLife.
	DecayHalfLife time.Duration
}

// Classifier scores text against the patterns in an injected repository.
type Classifier struct {
	repo      PatternRepo
	threshold float64
	fallback  models.SpecialistID
	halfLife  time.Duration

	// now is injectable for decay tests.
	now func() time.Time
}

// New creates a Classifier backed by the given pattern repository.
func New(repo PatternRepo, cfg Config) *Classifier {
	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	halfLife := cfg.DecayHalfLife
	if halfLife == 0 {
		halfLife = DefaultDecayHalfLife
	}
	fallback := cfg.Fallback
	if fallback == "" {
		fallback = FallbackSpecialist
	}
	return &Classifier{
		repo:      repo,
		threshold: threshold,
		fallback:  fallback,
		halfLife:  halfLife,
		now:       time.Now,
	}
}

// Threshold returns the qualifying score threshold.
func (c *Classifier) Threshold() float64 {
	return c.threshold
}

// Fallback returns the specialist used for unclassified text.
func (c *Classifier) Fallback() models.SpecialistID {
	return c.fallback
}

// Classify returns the highest-scoring match at or above the threshold, or
// the unclassified fallback (confidence 0) when nothing qualifies.
func (c *Classifier) Classify(text string) Match {
	matches := c.scoreAll(text)
	if len(matches) == 0 || matches[0].Score < c.threshold {
		return Match{SpecialistID: c.fallback, Score: 0}
	}
	return matches[0]
}

// ClassifyAll returns every qualifying match (score >= threshold), one per
// specialist, ordered by descending score. This is how multi-domain
// problems are detected.
func (c *Classifier) ClassifyAll(text string) []Match {
	matches := c.scoreAll(text)

	var qualifying []Match
	seen := make(map[models.SpecialistID]bool)
	for _, m := range matches {
		if m.Score < c.threshold {
			break
		}
		// matches are sorted best-first, so the first entry per
		// specialist is its strongest pattern.
		if seen[m.SpecialistID] {
			continue
		}
		seen[m.SpecialistID] = true
		qualifying = append(qualifying, m)
	}
	return qualifying
}

// HintMatch resolves an explicit domain hint (a pattern id) to a match
// carrying the pattern's current confidence as its score.
func (c *Classifier) HintMatch(patternID string) (Match, bool) {
	p, ok := c.repo.Get(patternID)
	if !ok {
		return Match{}, false
	}
	return Match{
		PatternID:    p.ID,
		SpecialistID: p.SpecialistID,
		Score:        p.Confidence,
		totalCount:   p.TotalCount,
	}, true
}

// scoreAll scores every known pattern against the text and returns all
// non-zero matches in deterministic best-first order.
func (c *Classifier) scoreAll(text string) []Match {
	tokens := Tokenize(text)
	lower := strings.ToLower(text)

	var matches []Match
	for _, p := range c.repo.List() {
		score := scorePattern(p, tokens, lower)
		if score <= 0 {
			continue
		}
		matches = append(matches, Match{
			PatternID:    p.ID,
			SpecialistID: p.SpecialistID,
			Score:        score,
			totalCount:   p.TotalCount,
		})
	}

	// Tie-break: more observations wins, then the lexicographically
	// smaller specialist id, so classification is deterministic.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].totalCount != matches[j].totalCount {
			return matches[i].totalCount > matches[j].totalCount
		}
		return matches[i].SpecialistID < matches[j].SpecialistID
	})
	return matches
}

// scorePattern computes the match score for one pattern: a weighted
// keyword-overlap fraction plus a bonus per matched trigger phrase, scaled
// by the pattern's learned confidence. Each trigger counts once per call
// regardless of how often it occurs in the text.
func scorePattern(p *models.DomainPattern, tokens map[string]bool, lowerText string) float64 {
	if len(p.Keywords) == 0 && len(p.Triggers) == 0 {
		return 0
	}

	matched := 0
	for _, kw := range p.Keywords {
		if tokens[strings.ToLower(kw)] {
			matched++
		}
	}

	saturation := matchSaturation
	if len(p.Keywords) < saturation {
		saturation = len(p.Keywords)
	}

	raw := 0.0
	if saturation > 0 {
		overlap := float64(matched) / float64(saturation)
		if overlap > 1 {
			overlap = 1
		}
		raw = keywordWeight * overlap
	}

	for _, trigger := range p.Triggers {
		if trigger == "" {
			continue
		}
		if strings.Contains(lowerText, strings.ToLower(trigger)) {
			raw += triggerWeight
		}
	}
	if raw > 1 {
		raw = 1
	}

	return raw * p.Confidence
}

// Tokenize lowercases the text, splits on non-alphanumeric runes, and
// strips stop words. The result is the keyword set used for matching.
func Tokenize(text string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		if !stopWords[f] {
			set[f] = true
		}
	}
	return set
}
