package bundle

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/mkarlsen/switchboard/pkg/models"
)

// testAccumulator returns an accumulator with a fixed clock and sequential
// ids so assertions are deterministic.
func testAccumulator(detectors ...DetectorFunc) *Accumulator {
	a := New(detectors...)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return at }
	seq := 0
	a.newID = func() string {
		seq++
		return fmt.Sprintf("id-%03d", seq)
	}
	return a
}

func openSession(t *testing.T, a *Accumulator, id string, text string) {
	t.Helper()
	problem := models.ProblemRequest{
		Text:      text,
		Requester: "alice",
		CreatedAt: time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC),
	}
	if err := a.Open(id, problem, models.StrategyParallel, nil); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
}

func TestOpen_Duplicate(t *testing.T) {
	a := testAccumulator()
	openSession(t, a, "s1", "problem")

	err := a.Open("s1", models.ProblemRequest{}, models.StrategyDirect, nil)
	if err == nil {
		t.Error("expected error opening a session twice")
	}
}

func TestEnrich_UnknownSession(t *testing.T) {
	a := testAccumulator()

	if _, err := a.Enrich("ghost", "x"); err == nil {
		t.Error("expected error for unknown session")
	}
}

func TestEnrich_SetsFocusAndLayers(t *testing.T) {
	a := testAccumulator()
	openSession(t, a, "s1", "database migration")

	b, err := a.Enrich("s1", "db-specialist")
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}

	if b.DomainFocus != "db-specialist" {
		t.Errorf("DomainFocus = %q, want db-specialist", b.DomainFocus)
	}
	if b.Problem.Text != "database migration" {
		t.Errorf("Problem.Text = %q", b.Problem.Text)
	}
	if b.Coordination.CorrelationID != "s1" {
		t.Errorf("CorrelationID = %q, want s1", b.Coordination.CorrelationID)
	}
	if b.Coordination.Strategy != models.StrategyParallel {
		t.Errorf("Strategy = %q, want parallel", b.Coordination.Strategy)
	}
}

func TestEnrich_SnapshotIsIsolated(t *testing.T) {
	a := testAccumulator()
	openSession(t, a, "s1", "problem")

	if err := a.Merge("s1", "x", []models.Finding{{Summary: "original"}}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	b, err := a.Enrich("s1", "y")
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}

	// Mutating the snapshot must not reach stored state.
	b.Domain["x"][0].Summary = "tampered"
	b.Domain["injected"] = []models.Finding{{Summary: "rogue"}}

	fresh, err := a.Enrich("s1", "y")
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if fresh.Domain["x"][0].Summary != "original" {
		t.Error("snapshot mutation leaked into stored findings")
	}
	if _, ok := fresh.Domain["injected"]; ok {
		t.Error("snapshot map mutation leaked into stored domain layer")
	}
}

func TestEnrich_ParallelMembersShareSnapshot(t *testing.T) {
	a := testAccumulator()
	openSession(t, a, "s1", "problem")

	if err := a.Merge("s1", "earlier", []models.Finding{{Summary: "prior work"}}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	// All enrichments for a batch happen before any merge, so every
	// member sees identical layers.
	first, _ := a.Enrich("s1", "a")
	second, _ := a.Enrich("s1", "b")

	first.DomainFocus = ""
	second.DomainFocus = ""
	if !reflect.DeepEqual(first, second) {
		t.Error("pre-batch enrichments differ between batch members")
	}
}

func TestMerge_AppendOnly(t *testing.T) {
	a := testAccumulator()
	openSession(t, a, "s1", "problem")

	if err := a.Merge("s1", "x", []models.Finding{{Summary: "first"}}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if err := a.Merge("s1", "x", []models.Finding{{Summary: "second"}}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	b, _ := a.Snapshot("s1")
	findings := b.Domain["x"]
	if len(findings) != 2 {
		t.Fatalf("domain layer has %d findings, want 2", len(findings))
	}
	if findings[0].Summary != "first" || findings[1].Summary != "second" {
		t.Errorf("findings out of order or overwritten: %+v", findings)
	}
}

func TestMerge_FillsFindingIdentity(t *testing.T) {
	a := testAccumulator()
	openSession(t, a, "s1", "problem")

	if err := a.Merge("s1", "x", []models.Finding{{Summary: "f"}}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	b, _ := a.Snapshot("s1")
	f := b.Domain["x"][0]
	if f.ID == "" {
		t.Error("finding ID not assigned")
	}
	if f.SpecialistID != "x" {
		t.Errorf("SpecialistID = %q, want x", f.SpecialistID)
	}
	if f.CreatedAt.IsZero() {
		t.Error("CreatedAt not assigned")
	}
}

func TestMergeBatch_SortedOrder(t *testing.T) {
	var pairs []string
	recorder := func(existing models.SpecialistID, _ []models.Finding, incoming models.SpecialistID, _ []models.Finding) []models.IntegrationRecord {
		pairs = append(pairs, fmt.Sprintf("%s<-%s", existing, incoming))
		return nil
	}

	a := testAccumulator(recorder)
	openSession(t, a, "s1", "problem")

	results := map[models.SpecialistID][]models.Finding{
		"charlie": {{Summary: "c"}},
		"alpha":   {{Summary: "a"}},
		"bravo":   {{Summary: "b"}},
	}
	if err := a.MergeBatch("s1", results); err != nil {
		t.Fatalf("MergeBatch failed: %v", err)
	}

	// Sorted processing: alpha first (no peers), bravo vs alpha, charlie
	// vs alpha and bravo.
	want := []string{"alpha<-bravo", "alpha<-charlie", "bravo<-charlie"}
	if !reflect.DeepEqual(pairs, want) {
		t.Errorf("detector pair order = %v, want %v", pairs, want)
	}
}

func TestMerge_DetectsConflict(t *testing.T) {
	a := testAccumulator()
	openSession(t, a, "s1", "problem")

	if err := a.Merge("s1", "db-specialist", []models.Finding{
		{Summary: "lock table", Resources: []string{"users-table"}},
	}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if err := a.Merge("s1", "perf-specialist", []models.Finding{
		{Summary: "rewrite index", Resources: []string{"users-table"}},
	}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	b, _ := a.Snapshot("s1")
	if len(b.Integration) != 1 {
		t.Fatalf("integration layer has %d records, want 1: %+v", len(b.Integration), b.Integration)
	}
	rec := b.Integration[0]
	if rec.Kind != models.IntegrationConflict {
		t.Errorf("Kind = %q, want conflict", rec.Kind)
	}
	if rec.Domains != [2]models.SpecialistID{"db-specialist", "perf-specialist"} {
		t.Errorf("Domains = %v", rec.Domains)
	}
}

func TestMerge_DetectsDependencyBothDirections(t *testing.T) {
	a := testAccumulator()
	openSession(t, a, "s1", "problem")

	// Existing domain requires something the incoming one provides.
	if err := a.Merge("s1", "backend-specialist", []models.Finding{
		{Summary: "needs schema", Requires: []string{"v2-schema"}},
	}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if err := a.Merge("s1", "db-specialist", []models.Finding{
		{Summary: "ships schema", Resources: []string{"v2-schema"}},
	}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	b, _ := a.Snapshot("s1")
	if len(b.Integration) != 1 {
		t.Fatalf("integration layer has %d records, want 1: %+v", len(b.Integration), b.Integration)
	}
	if b.Integration[0].Kind != models.IntegrationDependency {
		t.Errorf("Kind = %q, want dependency", b.Integration[0].Kind)
	}
}

func TestMerge_DetectsSynergy(t *testing.T) {
	a := testAccumulator()
	openSession(t, a, "s1", "problem")

	if err := a.Merge("s1", "a", []models.Finding{
		{Summary: "a", Patterns: []string{"retry-with-backoff"}},
	}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if err := a.Merge("s1", "b", []models.Finding{
		{Summary: "b", Patterns: []string{"Retry-With-Backoff"}},
	}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	b, _ := a.Snapshot("s1")
	if len(b.Integration) != 1 {
		t.Fatalf("integration layer has %d records, want 1", len(b.Integration))
	}
	if b.Integration[0].Kind != models.IntegrationSynergy {
		t.Errorf("Kind = %q, want synergy", b.Integration[0].Kind)
	}
}

func TestPreservation_Value(t *testing.T) {
	a := testAccumulator()
	openSession(t, a, "s1", "database migration deadlock")

	// Critical fields: alice, database, deadlock, migration. Findings
	// preserve two of four.
	if err := a.Merge("s1", "db-specialist", []models.Finding{
		{Summary: "database migration plan drafted"},
	}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	got, err := a.Preservation("s1")
	if err != nil {
		t.Fatalf("Preservation failed: %v", err)
	}
	if got != 0.5 {
		t.Errorf("Preservation = %v, want 0.5", got)
	}
}

func TestPreservation_Reproducible(t *testing.T) {
	run := func() float64 {
		a := testAccumulator()
		openSession(t, a, "s1", "flaky auth token tests under load")
		if err := a.Merge("s1", "test-specialist", []models.Finding{
			{Summary: "auth token fixture races", Resources: []string{"token-store"}},
		}); err != nil {
			t.Fatalf("Merge failed: %v", err)
		}
		if err := a.Merge("s1", "security-specialist", []models.Finding{
			{Summary: "token rotation overlaps test runs", Resources: []string{"token-store"}},
		}); err != nil {
			t.Fatalf("Merge failed: %v", err)
		}
		v, err := a.Preservation("s1")
		if err != nil {
			t.Fatalf("Preservation failed: %v", err)
		}
		return v
	}

	first := run()
	second := run()
	if first != second {
		t.Errorf("preservation not reproducible: %v vs %v", first, second)
	}
}

func TestPreservation_NoCriticalFields(t *testing.T) {
	a := testAccumulator()
	if err := a.Open("s1", models.ProblemRequest{}, models.StrategyDirect, nil); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	got, err := a.Preservation("s1")
	if err != nil {
		t.Fatalf("Preservation failed: %v", err)
	}
	if got != 1 {
		t.Errorf("Preservation = %v, want 1 with no critical fields", got)
	}
}

func TestClose_DropsSession(t *testing.T) {
	a := testAccumulator()
	openSession(t, a, "s1", "problem")

	a.Close("s1")

	if _, err := a.Snapshot("s1"); err == nil {
		t.Error("expected error after Close")
	}
}

func TestHistoricalLayer_Carried(t *testing.T) {
	a := testAccumulator()
	refs := []models.SessionRef{
		{CorrelationID: "old-1", Requester: "alice", Status: models.SessionCompleted},
	}
	if err := a.Open("s1", models.ProblemRequest{Text: "x"}, models.StrategyDirect, refs); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	b, _ := a.Enrich("s1", "x")
	if len(b.Historical) != 1 || b.Historical[0].CorrelationID != "old-1" {
		t.Errorf("Historical = %+v, want the archived ref", b.Historical)
	}
}
