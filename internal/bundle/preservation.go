package bundle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mkarlsen/switchboard/internal/classifier"
	"github.com/mkarlsen/switchboard/pkg/models"
)

// minCriticalFieldLength filters short tokens out of the critical field
// set; two- and three-letter words rarely carry routable context.
const minCriticalFieldLength = 4

// Preservation computes the fraction of the problem layer's critical fields
// still present or derivable in the accumulated domain and integration
// layers. The problem layer itself is always carried verbatim, so the
// metric deliberately measures what the specialists' output preserved, not
// what the bundle structure guarantees. Given identical inputs the result
// is bit-for-bit reproducible.
func (a *Accumulator) Preservation(sessionID string) (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.sessions[sessionID]
	if !ok {
		return 0, fmt.Errorf("session %q not open", sessionID)
	}

	fields := criticalFields(s.problem)
	if len(fields) == 0 {
		return 1, nil
	}

	haystack := accumulatedText(s)
	preserved := 0
	for _, field := range fields {
		if strings.Contains(haystack, field) {
			preserved++
		}
	}
	return float64(preserved) / float64(len(fields)), nil
}

// criticalFields derives the problem layer's critical field set: the
// requester, every explicit hint, and each significant keyword of the
// problem text. The result is sorted and lowercased.
func criticalFields(p models.ProblemRequest) []string {
	set := make(map[string]bool)

	if p.Requester != "" {
		set[strings.ToLower(p.Requester)] = true
	}
	for _, hint := range p.Hints {
		if hint != "" {
			set[strings.ToLower(hint)] = true
		}
	}
	for token := range classifier.Tokenize(p.Text) {
		if len(token) >= minCriticalFieldLength {
			set[token] = true
		}
	}

	fields := make([]string, 0, len(set))
	for f := range set {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// accumulatedText flattens the domain and integration layers into one
// lowercased haystack, iterating domains in sorted order.
func accumulatedText(s *sessionState) string {
	var b strings.Builder

	ids := make([]models.SpecialistID, 0, len(s.domain))
	for id := range s.domain {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		b.WriteString(strings.ToLower(string(id)))
		b.WriteByte('\n')
		for _, f := range s.domain[id] {
			b.WriteString(strings.ToLower(f.Summary))
			b.WriteByte('\n')
			for _, r := range f.Resources {
				b.WriteString(strings.ToLower(r))
				b.WriteByte('\n')
			}
			for _, r := range f.Requires {
				b.WriteString(strings.ToLower(r))
				b.WriteByte('\n')
			}
			for _, p := range f.Patterns {
				b.WriteString(strings.ToLower(p))
				b.WriteByte('\n')
			}
		}
	}

	for _, rec := range s.integration {
		b.WriteString(strings.ToLower(rec.Detail))
		b.WriteByte('\n')
	}

	return b.String()
}
