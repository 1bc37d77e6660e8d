package dispatch

import (
	"fmt"
	"testing"

	"github.com/mkarlsen/switchboard/internal/classifier"
	"github.com/mkarlsen/switchboard/internal/config"
	"github.com/mkarlsen/switchboard/pkg/models"
)

// selectorWith builds a selector over n synthetic always-matching patterns,
// plus the seeded defaults when n is zero.
func selectorWith(t *testing.T, n int, cfg config.DispatchConfig) *Selector {
	t.Helper()

	repo := classifier.NewSeededRepo()
	for i := 0; i < n; i++ {
		p := &models.DomainPattern{
			ID:           fmt.Sprintf("synthetic-%02d", i),
			SpecialistID: models.SpecialistID(fmt.Sprintf("synthetic-specialist-%02d", i)),
			Keywords:     []string{"omnibus", "cutover", "rollout"},
			Confidence:   0.95,
		}
		if err := repo.Register(p); err != nil {
			t.Fatalf("register pattern: %v", err)
		}
	}

	cls := classifier.New(repo, classifier.Config{})
	return NewSelector(cls, cfg)
}

func defaultDispatchConfig() config.DispatchConfig {
	return config.DispatchConfig{ConcurrencyCeiling: 10, BatchCeiling: 4}
}

func TestDecide_ZeroMatches(t *testing.T) {
	sel := selectorWith(t, 0, defaultDispatchConfig())

	got := sel.Decide(models.ProblemRequest{Text: "qzx vrb plonk"})

	if got.Strategy != models.StrategyDirect {
		t.Errorf("Strategy = %q, want direct", got.Strategy)
	}
	if len(got.Specialists) != 1 || got.Specialists[0].SpecialistID != classifier.FallbackSpecialist {
		t.Fatalf("Specialists = %+v, want the fallback", got.Specialists)
	}
	if got.Specialists[0].Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", got.Specialists[0].Confidence)
	}
}

func TestDecide_TestingScenario(t *testing.T) {
	sel := selectorWith(t, 0, defaultDispatchConfig())

	got := sel.Decide(models.ProblemRequest{
		Text: "Test failures with async patterns and mock configuration",
	})

	if got.Strategy != models.StrategyDirect {
		t.Errorf("Strategy = %q, want direct", got.Strategy)
	}
	if len(got.Specialists) != 1 || got.Specialists[0].SpecialistID != "test-specialist" {
		t.Fatalf("Specialists = %+v, want test-specialist only", got.Specialists)
	}
	if got.Specialists[0].Confidence < 0.7 {
		t.Errorf("Confidence = %v, want >= 0.7", got.Specialists[0].Confidence)
	}
}

func TestDecide_MultiDomainParallel(t *testing.T) {
	sel := selectorWith(t, 0, defaultDispatchConfig())

	got := sel.Decide(models.ProblemRequest{
		Text: "Flaky test mocks, a database schema migration, and auth token encryption",
	})

	if got.Strategy != models.StrategyParallel {
		t.Errorf("Strategy = %q, want parallel", got.Strategy)
	}
	if len(got.Specialists) != 3 {
		t.Fatalf("selected %d specialists, want 3: %+v", len(got.Specialists), got.Specialists)
	}
	if len(got.Batches) != 1 || len(got.Batches[0]) != 3 {
		t.Errorf("Batches = %v, want one batch of 3", got.Batches)
	}
}

func TestDecide_StrategyMapping(t *testing.T) {
	tests := []struct {
		domains int
		want    models.Strategy
	}{
		{1, models.StrategyDirect},
		{2, models.StrategyParallel},
		{3, models.StrategyParallel},
		{4, models.StrategyParallel},
		{5, models.StrategyMeta},
		{12, models.StrategyMeta},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d domains", tt.domains), func(t *testing.T) {
			sel := selectorWith(t, tt.domains, defaultDispatchConfig())
			got := sel.Decide(models.ProblemRequest{Text: "omnibus cutover rollout"})

			if got.Strategy != tt.want {
				t.Errorf("Strategy = %q, want %q", got.Strategy, tt.want)
			}
			if len(got.Specialists) != tt.domains {
				t.Errorf("selected %d specialists, want %d", len(got.Specialists), tt.domains)
			}
		})
	}
}

func TestDecide_MetaBatchPlan(t *testing.T) {
	sel := selectorWith(t, 12, defaultDispatchConfig())

	got := sel.Decide(models.ProblemRequest{Text: "omnibus cutover rollout"})

	if got.Strategy != models.StrategyMeta {
		t.Fatalf("Strategy = %q, want meta", got.Strategy)
	}
	if len(got.Batches) != 3 {
		t.Fatalf("planned %d batches, want 3: %v", len(got.Batches), got.Batches)
	}
	for i, batch := range got.Batches {
		if len(batch) != 4 {
			t.Errorf("batch %d has %d specialists, want 4", i, len(batch))
		}
	}
}

func TestDecide_BatchBoundedByConcurrencyCeiling(t *testing.T) {
	cfg := config.DispatchConfig{ConcurrencyCeiling: 2, BatchCeiling: 4}

	tests := []struct {
		name    string
		domains int
		want    models.Strategy
	}{
		{"parallel dispatch re-chunks", 4, models.StrategyParallel},
		{"meta dispatch re-chunks", 6, models.StrategyMeta},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := selectorWith(t, tt.domains, cfg)
			got := sel.Decide(models.ProblemRequest{Text: "omnibus cutover rollout"})

			if got.Strategy != tt.want {
				t.Fatalf("Strategy = %q, want %q", got.Strategy, tt.want)
			}
			planned := 0
			for i, batch := range got.Batches {
				if len(batch) > 2 {
					t.Errorf("batch %d has %d specialists, want <= 2", i, len(batch))
				}
				planned += len(batch)
			}
			if planned != tt.domains {
				t.Errorf("plan covers %d specialists, want %d", planned, tt.domains)
			}
		})
	}
}

func TestDecide_HintQualifiesSpecialist(t *testing.T) {
	sel := selectorWith(t, 0, defaultDispatchConfig())

	// The text alone says nothing about security; the hint pulls the
	// domain in with the pattern's learned confidence.
	got := sel.Decide(models.ProblemRequest{
		Text:  "something is off after the deploy",
		Hints: []string{"security"},
	})

	found := false
	for _, sc := range got.Specialists {
		if sc.SpecialistID == "security-specialist" && sc.Confidence > 0 {
			found = true
		}
	}
	if !found {
		t.Errorf("hinted specialist missing from %+v", got.Specialists)
	}
}

func TestDecide_UnknownHintIgnored(t *testing.T) {
	sel := selectorWith(t, 0, defaultDispatchConfig())

	got := sel.Decide(models.ProblemRequest{
		Text:  "qzx vrb plonk",
		Hints: []string{"no-such-pattern"},
	})

	if got.Strategy != models.StrategyDirect || got.Specialists[0].SpecialistID != classifier.FallbackSpecialist {
		t.Errorf("decision = %+v, want fallback direct", got)
	}
}

func TestDecide_OrderedByConfidence(t *testing.T) {
	sel := selectorWith(t, 5, defaultDispatchConfig())

	got := sel.Decide(models.ProblemRequest{Text: "omnibus cutover rollout"})

	for i := 1; i < len(got.Specialists); i++ {
		if got.Specialists[i].Confidence > got.Specialists[i-1].Confidence {
			t.Fatalf("specialists not sorted by confidence: %+v", got.Specialists)
		}
	}
}
