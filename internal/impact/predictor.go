package impact

import "math"

const (
	// minPredictionHistory is the cold-start threshold: below it the
	// predictor refuses to extrapolate and returns a neutral result.
	minPredictionHistory = 3

	// predictionWindow is how many recent timeline entries drive the
	// projection.
	predictionWindow = 5

	// maxConfidence caps confidence no matter how long the history grows.
	maxConfidence = 0.9
)

// Predict projects a decision's future effectiveness from its recent
// timeline. With fewer than three recorded impacts it returns the fixed
// cold-start result rather than extrapolating from noise.
func (t *Tracker) Predict(decisionID string) Prediction {
	timeline := t.Timeline(decisionID)

	if len(timeline) < minPredictionHistory {
		return Prediction{
			DecisionID:             decisionID,
			ProjectedEffectiveness: 5,
			Confidence:             0.3,
			RiskFactors:            []string{"Insufficient impact history for a reliable projection"},
			Recommendations:        []string{"Keep monitoring and record more impact observations"},
		}
	}

	recent := timeline
	if len(recent) > predictionWindow {
		recent = recent[len(recent)-predictionWindow:]
	}

	var positive, negative, criticals, negPerformance int
	for _, entry := range recent {
		switch entry.Impact.Polarity {
		case PolarityPositive:
			positive++
		case PolarityNegative:
			negative++
			if entry.Impact.Category == CategoryPerformance {
				negPerformance++
			}
		}
		if entry.Impact.Severity == SeverityCritical {
			criticals++
		}
	}

	projected := 5
	switch {
	case positive > negative:
		projected = 7 + (positive - negative)
	case negative > positive:
		projected = 3 - (negative - positive)
	}
	projected = clampInt(projected, 1, 10)

	p := Prediction{
		DecisionID:             decisionID,
		ProjectedEffectiveness: projected,
		Confidence:             math.Min(maxConfidence, float64(len(timeline))/20),
		RiskFactors:            []string{},
		Recommendations:        []string{},
	}

	if negative > positive {
		p.RiskFactors = append(p.RiskFactors, "Recent impacts are predominantly negative")
	}
	if criticals > 0 {
		p.RiskFactors = append(p.RiskFactors, "Critical-severity impacts observed recently")
	}
	if negPerformance >= 2 {
		p.RiskFactors = append(p.RiskFactors, "Repeated negative performance impacts")
	}

	switch {
	case projected < 4:
		p.Recommendations = append(p.Recommendations, "Consider reverting or substantially modifying this decision")
	case projected < 6:
		p.Recommendations = append(p.Recommendations, "Monitor closely and prepare contingency options")
	case projected > 8:
		p.Recommendations = append(p.Recommendations, "Document this decision as a pattern worth replicating")
	}
	if len(p.RiskFactors) > 2 {
		p.Recommendations = append(p.Recommendations, "Schedule a dedicated review of the accumulated risk factors")
	}

	return p
}
