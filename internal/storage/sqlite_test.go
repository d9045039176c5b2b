package storage

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mandymgr/KRINS-Chronicle-Keeper-sub001/internal/impact"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(decisionID string, ts time.Time) impact.ImpactRecord {
	return impact.ImpactRecord{
		ID:          uuid.NewString(),
		DecisionID:  decisionID,
		Category:    impact.CategoryPerformance,
		Polarity:    impact.PolarityPositive,
		Severity:    impact.SeverityMedium,
		Description: "p95 latency dropped",
		Source:      "grafana",
		Timestamp:   ts,
	}
}

func TestMigrationsApplied(t *testing.T) {
	s := newTestStore(t)
	applied, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if !applied[1] {
		t.Errorf("migration 1 not applied: %v", applied)
	}
}

func TestSaveAndLoadImpacts(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	first := testRecord("ADR-001", base)
	second := testRecord("ADR-002", base.Add(time.Minute))
	measured := 120.5
	second.MeasuredValue = &measured
	second.Unit = "ms"

	if err := s.SaveImpact(first); err != nil {
		t.Fatalf("SaveImpact: %v", err)
	}
	if err := s.SaveImpact(second); err != nil {
		t.Fatalf("SaveImpact: %v", err)
	}

	got, err := s.LoadImpacts()
	if err != nil {
		t.Fatalf("LoadImpacts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("loaded %d impacts, want 2", len(got))
	}
	if got[0].ID != first.ID || got[1].ID != second.ID {
		t.Errorf("impacts out of insertion order: %s, %s", got[0].ID, got[1].ID)
	}
	if !got[0].Timestamp.Equal(base) {
		t.Errorf("timestamp round-trip = %v, want %v", got[0].Timestamp, base)
	}
	if got[0].MeasuredValue != nil {
		t.Errorf("expected nil measured_value, got %v", *got[0].MeasuredValue)
	}
	if got[1].MeasuredValue == nil || *got[1].MeasuredValue != measured {
		t.Errorf("measured_value round-trip failed: %v", got[1].MeasuredValue)
	}
	if got[1].Unit != "ms" {
		t.Errorf("unit round-trip = %q, want ms", got[1].Unit)
	}
}

func TestDeleteImpacts(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	keep := testRecord("ADR-001", base)
	drop1 := testRecord("ADR-002", base)
	drop2 := testRecord("ADR-003", base)
	for _, rec := range []impact.ImpactRecord{keep, drop1, drop2} {
		if err := s.SaveImpact(rec); err != nil {
			t.Fatalf("SaveImpact: %v", err)
		}
	}

	if err := s.DeleteImpacts([]string{drop1.ID, drop2.ID}); err != nil {
		t.Fatalf("DeleteImpacts: %v", err)
	}
	if err := s.DeleteImpacts(nil); err != nil {
		t.Fatalf("DeleteImpacts with no ids: %v", err)
	}

	got, err := s.LoadImpacts()
	if err != nil {
		t.Fatalf("LoadImpacts: %v", err)
	}
	if len(got) != 1 || got[0].ID != keep.ID {
		t.Errorf("expected only %s to survive, got %v", keep.ID, got)
	}
}

func TestSaveEvaluationUpsert(t *testing.T) {
	s := newTestStore(t)

	ev := impact.EffectivenessEvaluation{
		DecisionID:         "ADR-001",
		Title:              "Adopt read-through cache",
		ImplementationDate: time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
		OverallRating:      7,
		Impacts:            []impact.ImpactRecord{},
		Lessons:            []string{},
	}
	if err := s.SaveEvaluation(ev); err != nil {
		t.Fatalf("SaveEvaluation: %v", err)
	}

	ev.OverallRating = 4
	if err := s.SaveEvaluation(ev); err != nil {
		t.Fatalf("SaveEvaluation upsert: %v", err)
	}

	evals, err := s.LoadEvaluations()
	if err != nil {
		t.Fatalf("LoadEvaluations: %v", err)
	}
	if len(evals) != 1 {
		t.Fatalf("loaded %d evaluations, want 1 after upsert", len(evals))
	}
	if evals[0].OverallRating != 4 {
		t.Errorf("rating = %d, want the upserted 4", evals[0].OverallRating)
	}
	if evals[0].Title != ev.Title {
		t.Errorf("title round-trip = %q", evals[0].Title)
	}
}
