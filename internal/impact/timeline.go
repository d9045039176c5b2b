package impact

import "sort"

// trendWindow is how many trailing entries the rolling trend looks at.
const trendWindow = 3

// Timeline returns the chronological impact history of one decision, each
// entry labelled with the trend of the short window ending at it. The
// first entry is always stable; later entries compare positive against
// negative polarity over the trailing window.
func (t *Tracker) Timeline(decisionID string) []TimelineEntry {
	impacts := t.impactsFor(decisionID)
	sort.SliceStable(impacts, func(i, j int) bool {
		return impacts[i].Timestamp.Before(impacts[j].Timestamp)
	})

	entries := make([]TimelineEntry, len(impacts))
	for i, rec := range impacts {
		entries[i] = TimelineEntry{
			Timestamp:        rec.Timestamp,
			Impact:           rec,
			CumulativeEffect: windowTrend(impacts, i),
		}
	}
	return entries
}

func windowTrend(impacts []ImpactRecord, i int) Trend {
	if i == 0 {
		return TrendStable
	}

	start := i - (trendWindow - 1)
	if start < 0 {
		start = 0
	}

	var positive, negative int
	for _, rec := range impacts[start : i+1] {
		switch rec.Polarity {
		case PolarityPositive:
			positive++
		case PolarityNegative:
			negative++
		}
	}

	switch {
	case positive > negative:
		return TrendImproving
	case negative > positive:
		return TrendDeteriorating
	default:
		return TrendStable
	}
}
