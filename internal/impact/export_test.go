package impact

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestExportCSVQuoting(t *testing.T) {
	tr := newTestTracker(t)
	n := validImpact("ADR-001")
	n.Description = `rollback needed, the "fast path" regressed`
	mustRecord(t, tr, n)

	out, err := tr.Export(FormatCSV)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv has %d lines, want header + 1 row:\n%s", len(lines), out)
	}
	if lines[0] != "decision_id,category,polarity,severity,description,source,timestamp" {
		t.Errorf("unexpected header: %q", lines[0])
	}
	// Field with comma and quotes: quoted, embedded quotes doubled.
	want := `"rollback needed, the ""fast path"" regressed"`
	if !strings.Contains(lines[1], want) {
		t.Errorf("description not quoted correctly:\n%s", lines[1])
	}
}

func TestExportCSVEmptyStore(t *testing.T) {
	tr := newTestTracker(t)
	out, err := tr.Export(FormatCSV)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if lines := strings.Split(strings.TrimRight(out, "\n"), "\n"); len(lines) != 1 {
		t.Errorf("empty store csv has %d lines, want header only", len(lines))
	}
}

func TestExportJSONSnapshot(t *testing.T) {
	tr := newTestTracker(t)
	mustRecord(t, tr, validImpact("ADR-001"))
	if _, err := tr.Evaluate("ADR-001", "Adopt read-through cache", testEpoch, 6); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	out, err := tr.Export(FormatJSON)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if snap.ExportedAt.IsZero() {
		t.Error("exported_at not set")
	}
	if len(snap.Impacts) != 1 {
		t.Errorf("snapshot has %d impacts, want 1", len(snap.Impacts))
	}
	if _, ok := snap.Evaluations["ADR-001"]; !ok {
		t.Errorf("snapshot missing evaluation for ADR-001: %v", snap.Evaluations)
	}
	if snap.Analytics.TotalDecisionsTracked != 1 {
		t.Errorf("snapshot analytics tracked %d decisions, want 1", snap.Analytics.TotalDecisionsTracked)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	tr := newTestTracker(t)
	if _, err := tr.Export("xml"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}
