package impact

import "sort"

// Analytics builds a cross-decision aggregate snapshot. A nil timeframe
// covers everything; otherwise impacts are filtered by timestamp and
// evaluations by the start of their evaluation period. The aggregator
// consumes stored evaluations as-is and never re-runs the evaluator.
func (t *Tracker) Analytics(tf *Timeframe) ImpactAnalytics {
	records, evals := t.snapshot()
	return buildAnalytics(records, evals, tf)
}

// buildAnalytics aggregates one already-taken snapshot, so callers holding
// a snapshot (the exporter) get analytics consistent with it.
func buildAnalytics(records []ImpactRecord, evals []EffectivenessEvaluation, tf *Timeframe) ImpactAnalytics {
	if tf != nil {
		filtered := records[:0:0]
		for _, rec := range records {
			if tf.contains(rec.Timestamp) {
				filtered = append(filtered, rec)
			}
		}
		records = filtered

		kept := evals[:0:0]
		for _, ev := range evals {
			if tf.contains(ev.EvaluationPeriod.Start) {
				kept = append(kept, ev)
			}
		}
		evals = kept
	}

	a := ImpactAnalytics{
		TotalImpacts:           len(records),
		CategoryBreakdown:      make(map[Category]CategoryStats, len(Categories)),
		EffectivenessByMonth:   []MonthlyPoint{},
		RiskRealizationByMonth: []MonthlyPoint{},
		TopDecisions:           []DecisionRank{},
		ProblematicDecisions:   []DecisionRank{},
	}

	// Distinct decisions and polarity distribution come from the raw log.
	seen := make(map[string]struct{})
	for _, rec := range records {
		seen[rec.DecisionID] = struct{}{}
		switch rec.Polarity {
		case PolarityPositive:
			a.ImpactDistribution.Positive++
		case PolarityNegative:
			a.ImpactDistribution.Negative++
		case PolarityNeutral:
			a.ImpactDistribution.Neutral++
		}
	}
	a.TotalDecisionsTracked = len(seen)

	// Per-category counts and mean severity weight over the six fixed
	// categories, zero-valued when a category has no impacts.
	type catAcc struct {
		stats       CategoryStats
		totalWeight int
		count       int
	}
	accs := make(map[Category]*catAcc, len(Categories))
	for _, c := range Categories {
		accs[c] = &catAcc{}
	}
	for _, rec := range records {
		acc, ok := accs[rec.Category]
		if !ok {
			continue
		}
		switch rec.Polarity {
		case PolarityPositive:
			acc.stats.Positive++
		case PolarityNegative:
			acc.stats.Negative++
		}
		acc.totalWeight += rec.Severity.Weight()
		acc.count++
	}
	for _, c := range Categories {
		acc := accs[c]
		if acc.count > 0 {
			acc.stats.AvgSeverity = float64(acc.totalWeight) / float64(acc.count)
		}
		a.CategoryBreakdown[c] = acc.stats
	}

	if len(evals) > 0 {
		var total int
		for _, ev := range evals {
			total += ev.OverallRating
		}
		a.AverageEffectiveness = float64(total) / float64(len(evals))
	}

	a.EffectivenessByMonth, a.RiskRealizationByMonth = monthlySeries(evals)
	a.TopDecisions, a.ProblematicDecisions = rankDecisions(evals)

	return a
}

// monthlySeries buckets evaluations by the month of their period start and
// averages rating and risk-realization rate per bucket, ascending by month.
func monthlySeries(evals []EffectivenessEvaluation) (effectiveness, risk []MonthlyPoint) {
	type bucket struct {
		rating float64
		risk   float64
		n      int
	}
	buckets := make(map[string]*bucket)
	for _, ev := range evals {
		key := ev.EvaluationPeriod.Start.Format("2006-01")
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		b.rating += float64(ev.OverallRating)
		b.risk += ev.Metrics.RiskRealizationRate
		b.n++
	}

	months := make([]string, 0, len(buckets))
	for m := range buckets {
		months = append(months, m)
	}
	sort.Strings(months)

	effectiveness = make([]MonthlyPoint, 0, len(months))
	risk = make([]MonthlyPoint, 0, len(months))
	for _, m := range months {
		b := buckets[m]
		effectiveness = append(effectiveness, MonthlyPoint{Month: m, Value: b.rating / float64(b.n)})
		risk = append(risk, MonthlyPoint{Month: m, Value: b.risk / float64(b.n)})
	}
	return effectiveness, risk
}

// rankDecisions produces the top-10 by rating and the bottom-10 problematic
// decisions (rating below 4 or at least 3 negative impacts, most negative
// first).
func rankDecisions(evals []EffectivenessEvaluation) (top, problematic []DecisionRank) {
	ranks := make([]DecisionRank, 0, len(evals))
	for _, ev := range evals {
		var negatives int
		for _, rec := range ev.Impacts {
			if rec.Polarity == PolarityNegative {
				negatives++
			}
		}
		ranks = append(ranks, DecisionRank{
			DecisionID:      ev.DecisionID,
			Title:           ev.Title,
			Rating:          ev.OverallRating,
			NegativeImpacts: negatives,
		})
	}

	byRating := make([]DecisionRank, len(ranks))
	copy(byRating, ranks)
	sort.SliceStable(byRating, func(i, j int) bool { return byRating[i].Rating > byRating[j].Rating })
	if len(byRating) > 10 {
		byRating = byRating[:10]
	}

	problems := []DecisionRank{}
	for _, r := range ranks {
		if r.Rating < 4 || r.NegativeImpacts >= 3 {
			problems = append(problems, r)
		}
	}
	sort.SliceStable(problems, func(i, j int) bool {
		return problems[i].NegativeImpacts > problems[j].NegativeImpacts
	})
	if len(problems) > 10 {
		problems = problems[:10]
	}

	return byRating, problems
}
