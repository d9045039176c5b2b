package impact

import (
	"fmt"
	"math"
	"time"
)

// DefaultPeriodMonths is the nominal evaluation period when the caller does
// not pass one.
const DefaultPeriodMonths = 6

// Evaluate computes the effectiveness of one decision from its recorded
// impacts and stores the result, replacing any prior evaluation for the
// same id.
//
// periodMonths is accepted for interface compatibility and recorded on the
// evaluation, but the selection window is always implementation date
// through now: dashboards expect the whole post-implementation history, not
// a sliding slice of it.
func (t *Tracker) Evaluate(decisionID, title string, implementationDate time.Time, periodMonths int) (EffectivenessEvaluation, error) {
	if decisionID == "" {
		return EffectivenessEvaluation{}, fmt.Errorf("%w: decision_id is required", ErrValidation)
	}
	if periodMonths <= 0 {
		periodMonths = DefaultPeriodMonths
	}

	now := t.now().UTC()
	var window []ImpactRecord
	for _, rec := range t.impactsFor(decisionID) {
		if rec.Timestamp.Before(implementationDate) || rec.Timestamp.After(now) {
			continue
		}
		window = append(window, rec)
	}

	eval := EffectivenessEvaluation{
		DecisionID:         decisionID,
		Title:              title,
		ImplementationDate: implementationDate,
		EvaluationPeriod:   EvaluationPeriod{Start: implementationDate, End: now},
		OverallRating:      overallRating(window),
		Impacts:            window,
		Metrics:            t.computeMetrics(window),
		Lessons:            t.extractLessons(window),
	}
	eval.Recommendations = t.buildRecommendations(window, eval.Metrics)

	t.mu.Lock()
	defer t.mu.Unlock()
	prev, hadPrev := t.evaluations[decisionID]
	t.evaluations[decisionID] = eval
	if t.persist != nil {
		if err := t.persist.SaveEvaluation(eval); err != nil {
			// Restore whatever was stored before the upsert; disk still
			// holds the prior evaluation, so memory must too.
			if hadPrev {
				t.evaluations[decisionID] = prev
			} else {
				delete(t.evaluations, decisionID)
			}
			return EffectivenessEvaluation{}, fmt.Errorf("persisting evaluation: %w", err)
		}
	}
	return eval, nil
}

// overallRating maps the severity-weighted positive/negative balance onto
// the 1..10 scale. The +1 in the denominator biases sparse histories toward
// neutral. A decision with no impacts at all rates a flat 5.
func overallRating(impacts []ImpactRecord) int {
	if len(impacts) == 0 {
		return 5
	}

	var positive, negative int
	for _, rec := range impacts {
		switch rec.Polarity {
		case PolarityPositive:
			positive += rec.Severity.Weight()
		case PolarityNegative:
			negative += rec.Severity.Weight()
		}
	}

	ratio := float64(positive) / float64(positive+negative+1)
	return clampInt(int(math.Round(1+ratio*9)), 1, 10)
}

func (t *Tracker) computeMetrics(impacts []ImpactRecord) Metrics {
	m := Metrics{
		MaintenanceBurden: BurdenMedium,
		AdaptabilityScore: 5,
	}

	var maintPos, maintNeg, realizedRisks int
	for _, rec := range impacts {
		if rec.Polarity == PolarityPositive && t.scorer.Match(MarkerSolved, rec.Description) {
			m.ProblemsSolved++
		}
		if rec.Polarity == PolarityNegative && t.scorer.Match(MarkerProblem, rec.Description) {
			m.ProblemsCreated++
		}
		if rec.Category == CategoryMaintainability {
			switch rec.Polarity {
			case PolarityPositive:
				maintPos++
			case PolarityNegative:
				maintNeg++
			}
		}
		if t.scorer.Match(MarkerAdaptability, rec.Description) {
			switch rec.Polarity {
			case PolarityPositive:
				m.AdaptabilityScore++
			case PolarityNegative:
				m.AdaptabilityScore--
			}
		}
		if t.scorer.Match(MarkerRigidity, rec.Description) {
			switch rec.Polarity {
			case PolarityPositive:
				m.AdaptabilityScore--
			case PolarityNegative:
				m.AdaptabilityScore++
			}
		}
		if rec.Polarity == PolarityNegative && t.scorer.Match(MarkerRisk, rec.Description) {
			realizedRisks++
		}
	}

	if maintPos > maintNeg {
		m.MaintenanceBurden = BurdenLow
	} else if maintNeg > maintPos {
		m.MaintenanceBurden = BurdenHigh
	}

	m.AdaptabilityScore = clampInt(m.AdaptabilityScore, 1, 10)

	// The denominator is the realized count itself, so the rate is 1.0 as
	// soon as any realized risk exists. A meaningful ratio would need the
	// number of risks predicted when the decision was made, which is not
	// tracked here.
	m.RiskRealizationRate = float64(realizedRisks) / math.Max(float64(realizedRisks), 1)

	return m
}

// extractLessons applies the fixed lesson rules. The rules are independent:
// a decision can yield all of them at once.
func (t *Tracker) extractLessons(impacts []ImpactRecord) []string {
	lessons := []string{}

	var positives, negatives int
	var negPerformance, posMaintainability bool
	for _, rec := range impacts {
		switch rec.Polarity {
		case PolarityPositive:
			positives++
			if rec.Category == CategoryMaintainability {
				posMaintainability = true
			}
		case PolarityNegative:
			negatives++
			if rec.Category == CategoryPerformance {
				negPerformance = true
			}
		}
	}

	if negPerformance {
		lessons = append(lessons, "Monitor performance impacts closely for similar decisions")
	}
	if posMaintainability {
		lessons = append(lessons, "This decision pattern improves maintainability")
	}
	if negatives > positives {
		lessons = append(lessons, "Negative impacts outweigh positive ones; revisit the decision's assumptions")
	}
	return lessons
}

func (t *Tracker) buildRecommendations(impacts []ImpactRecord, m Metrics) Recommendations {
	rec := Recommendations{
		ShouldContinue:         m.ProblemsSolved >= m.ProblemsCreated,
		SuggestedModifications: []string{},
		// Intentionally unpopulated: reserved for cross-decision review
		// links supplied by the decision-record store.
		RelatedDecisionsToReview: []string{},
	}

	if m.MaintenanceBurden == BurdenHigh {
		rec.SuggestedModifications = append(rec.SuggestedModifications,
			"Reduce maintenance burden through automation or simplification")
	}
	if m.AdaptabilityScore < 5 {
		rec.SuggestedModifications = append(rec.SuggestedModifications,
			"Improve flexibility to handle changing requirements")
	}
	for _, r := range impacts {
		if r.Polarity == PolarityNegative && (r.Severity == SeverityHigh || r.Severity == SeverityCritical) {
			rec.SuggestedModifications = append(rec.SuggestedModifications,
				fmt.Sprintf("Address severe impact: %s", r.Description))
		}
	}
	return rec
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
