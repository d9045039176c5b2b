package impact

import (
	"strings"
	"testing"
)

func TestPredictColdStart(t *testing.T) {
	tr := newTestTracker(t)
	mustRecord(t, tr, impactOf("ADR-001", CategoryPerformance, PolarityPositive, SeverityHigh, "faster"))
	mustRecord(t, tr, impactOf("ADR-001", CategoryPerformance, PolarityPositive, SeverityHigh, "faster still"))

	p := tr.Predict("ADR-001")
	if p.ProjectedEffectiveness != 5 {
		t.Errorf("projection = %d, want neutral 5", p.ProjectedEffectiveness)
	}
	if p.Confidence != 0.3 {
		t.Errorf("confidence = %v, want 0.3", p.Confidence)
	}
	if len(p.RiskFactors) != 1 || len(p.Recommendations) != 1 {
		t.Errorf("cold start should carry exactly one risk factor and one recommendation, got %v / %v",
			p.RiskFactors, p.Recommendations)
	}
}

func TestPredictConfidenceGrowth(t *testing.T) {
	tr := newTestTracker(t)

	var last float64
	for i := 0; i < 25; i++ {
		mustRecord(t, tr, impactOf("ADR-001", CategoryCost, PolarityNeutral, SeverityLow, "tick"))
		p := tr.Predict("ADR-001")
		if p.Confidence < last {
			t.Fatalf("confidence dropped from %v to %v at %d entries", last, p.Confidence, i+1)
		}
		if p.Confidence > 0.9 {
			t.Fatalf("confidence %v above the 0.9 cap at %d entries", p.Confidence, i+1)
		}
		last = p.Confidence
	}
	if last != 0.9 {
		t.Errorf("confidence with 25 entries = %v, want capped 0.9", last)
	}
}

func TestPredictProjection(t *testing.T) {
	cases := []struct {
		name      string
		polarity  []Polarity
		projected int
	}{
		{
			name:      "majority positive",
			polarity:  []Polarity{PolarityPositive, PolarityPositive, PolarityPositive, PolarityNegative, PolarityNeutral},
			projected: 9, // 7 + (3 - 1)
		},
		{
			name:      "all positive clamps at ten",
			polarity:  []Polarity{PolarityPositive, PolarityPositive, PolarityPositive, PolarityPositive, PolarityPositive},
			projected: 10, // 7 + 5 clamped
		},
		{
			name:      "majority negative",
			polarity:  []Polarity{PolarityNegative, PolarityNegative, PolarityNegative, PolarityPositive, PolarityNegative},
			projected: 1, // 3 - (4 - 1), clamped at 1
		},
		{
			name:      "balanced",
			polarity:  []Polarity{PolarityPositive, PolarityNegative, PolarityNeutral, PolarityPositive, PolarityNegative},
			projected: 5,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := newTestTracker(t)
			for _, pol := range tc.polarity {
				mustRecord(t, tr, impactOf("ADR-001", CategoryCost, pol, SeverityLow, "observation"))
			}
			p := tr.Predict("ADR-001")
			if p.ProjectedEffectiveness != tc.projected {
				t.Errorf("projection = %d, want %d", p.ProjectedEffectiveness, tc.projected)
			}
		})
	}
}

func TestPredictUsesOnlyRecentWindow(t *testing.T) {
	tr := newTestTracker(t)
	// Old negative run followed by a positive streak: only the last five
	// entries should drive the projection.
	for i := 0; i < 10; i++ {
		mustRecord(t, tr, impactOf("ADR-001", CategoryPerformance, PolarityNegative, SeverityLow, "early pain"))
	}
	for i := 0; i < 5; i++ {
		mustRecord(t, tr, impactOf("ADR-001", CategoryPerformance, PolarityPositive, SeverityLow, "matured"))
	}

	p := tr.Predict("ADR-001")
	if p.ProjectedEffectiveness != 10 {
		t.Errorf("projection = %d, want 10 from the positive tail", p.ProjectedEffectiveness)
	}
}

func TestPredictRiskFactors(t *testing.T) {
	tr := newTestTracker(t)
	mustRecord(t, tr, impactOf("ADR-001", CategoryPerformance, PolarityNegative, SeverityLow, "slow page"))
	mustRecord(t, tr, impactOf("ADR-001", CategoryPerformance, PolarityNegative, SeverityCritical, "timeout storm"))
	mustRecord(t, tr, impactOf("ADR-001", CategoryCost, PolarityNegative, SeverityLow, "pricier"))

	p := tr.Predict("ADR-001")
	// majority negative + critical present + two negative performance impacts
	if len(p.RiskFactors) != 3 {
		t.Fatalf("risk factors = %v, want 3", p.RiskFactors)
	}
	// More than two risk factors adds the review recommendation on top of
	// the low-projection one.
	var hasReview bool
	for _, r := range p.Recommendations {
		if strings.Contains(r, "review") {
			hasReview = true
		}
	}
	if !hasReview {
		t.Errorf("expected a review recommendation, got %v", p.Recommendations)
	}
	if len(p.Recommendations) != 2 {
		t.Errorf("recommendations = %v, want 2 entries", p.Recommendations)
	}
}

func TestPredictHighProjectionRecommendation(t *testing.T) {
	tr := newTestTracker(t)
	for i := 0; i < 5; i++ {
		mustRecord(t, tr, impactOf("ADR-001", CategoryPerformance, PolarityPositive, SeverityMedium, "win"))
	}

	p := tr.Predict("ADR-001")
	if p.ProjectedEffectiveness <= 8 {
		t.Fatalf("projection = %d, want > 8", p.ProjectedEffectiveness)
	}
	if len(p.Recommendations) != 1 || !strings.Contains(p.Recommendations[0], "replicating") {
		t.Errorf("recommendations = %v, want the replicate recommendation", p.Recommendations)
	}
	if len(p.RiskFactors) != 0 {
		t.Errorf("risk factors = %v, want none", p.RiskFactors)
	}
}
