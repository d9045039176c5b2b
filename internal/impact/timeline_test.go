package impact

import "testing"

func TestTimelineEmpty(t *testing.T) {
	tr := newTestTracker(t)
	if got := tr.Timeline("ADR-404"); len(got) != 0 {
		t.Errorf("timeline for unknown decision has %d entries", len(got))
	}
}

func TestTimelineOrderingAndFirstEntry(t *testing.T) {
	tr := newTestTracker(t)
	mustRecord(t, tr, impactOf("ADR-001", CategoryPerformance, PolarityNegative, SeverityLow, "first"))
	mustRecord(t, tr, impactOf("ADR-001", CategoryPerformance, PolarityPositive, SeverityLow, "second"))
	mustRecord(t, tr, impactOf("ADR-001", CategoryPerformance, PolarityPositive, SeverityLow, "third"))

	entries := tr.Timeline("ADR-001")
	if len(entries) != 3 {
		t.Fatalf("timeline has %d entries, want 3", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp.Before(entries[i-1].Timestamp) {
			t.Errorf("timeline not ordered at %d: %v before %v", i, entries[i].Timestamp, entries[i-1].Timestamp)
		}
	}
	if entries[0].CumulativeEffect != TrendStable {
		t.Errorf("first entry trend = %q, want stable", entries[0].CumulativeEffect)
	}
}

func TestTimelineTrendWindow(t *testing.T) {
	polarity := []Polarity{
		PolarityNegative, // 0: stable (first entry)
		PolarityNegative, // 1: window {neg,neg} -> deteriorating
		PolarityPositive, // 2: window {neg,neg,pos} -> deteriorating
		PolarityPositive, // 3: window {neg,pos,pos} -> improving
		PolarityNeutral,  // 4: window {pos,pos,neu} -> improving
		PolarityNegative, // 5: window {pos,neu,neg} -> stable (tie)
	}
	want := []Trend{
		TrendStable,
		TrendDeteriorating,
		TrendDeteriorating,
		TrendImproving,
		TrendImproving,
		TrendStable,
	}

	tr := newTestTracker(t)
	for _, p := range polarity {
		mustRecord(t, tr, impactOf("ADR-001", CategoryPerformance, p, SeverityLow, "observation"))
	}

	entries := tr.Timeline("ADR-001")
	if len(entries) != len(want) {
		t.Fatalf("timeline has %d entries, want %d", len(entries), len(want))
	}
	for i, w := range want {
		if entries[i].CumulativeEffect != w {
			t.Errorf("entry %d trend = %q, want %q", i, entries[i].CumulativeEffect, w)
		}
	}
}
