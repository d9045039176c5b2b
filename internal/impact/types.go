package impact

import (
	"errors"
	"fmt"
	"time"
)

// ErrValidation wraps all rejections of malformed input to Record and
// Evaluate. Callers match it with errors.Is.
var ErrValidation = errors.New("validation failed")

// ErrNotFound is returned when a requested evaluation does not exist.
var ErrNotFound = errors.New("not found")

// Category classifies which aspect of the system an impact touched.
type Category string

const (
	CategoryPerformance         Category = "performance"
	CategorySecurity            Category = "security"
	CategoryMaintainability     Category = "maintainability"
	CategoryScalability         Category = "scalability"
	CategoryCost                Category = "cost"
	CategoryDeveloperExperience Category = "developer_experience"
)

// Categories lists all valid categories in their canonical order.
var Categories = []Category{
	CategoryPerformance,
	CategorySecurity,
	CategoryMaintainability,
	CategoryScalability,
	CategoryCost,
	CategoryDeveloperExperience,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Polarity says whether an observed impact helped, hurt, or did neither.
type Polarity string

const (
	PolarityPositive Polarity = "positive"
	PolarityNegative Polarity = "negative"
	PolarityNeutral  Polarity = "neutral"
)

func (p Polarity) Valid() bool {
	return p == PolarityPositive || p == PolarityNegative || p == PolarityNeutral
}

// Severity grades how strongly an impact was felt.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	return s == SeverityLow || s == SeverityMedium || s == SeverityHigh || s == SeverityCritical
}

// Weight maps a severity tier to its numeric weight in the rating formula.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	default:
		return 1
	}
}

// ImpactRecord is one observed effect of one decision. Records are immutable
// once stamped: the tracker never edits them, only evicts the oldest when the
// log exceeds its cap.
type ImpactRecord struct {
	ID          string    `json:"id"`
	DecisionID  string    `json:"decision_id"`
	Category    Category  `json:"category"`
	Polarity    Polarity  `json:"polarity"`
	Severity    Severity  `json:"severity"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	Evidence    string    `json:"evidence"`
	Timestamp   time.Time `json:"timestamp"`

	// Optional quantitative evidence.
	MeasuredValue *float64 `json:"measured_value,omitempty"`
	ExpectedValue *float64 `json:"expected_value,omitempty"`
	Unit          string   `json:"unit,omitempty"`
}

// NewImpact carries the caller-supplied fields of a record; ID and Timestamp
// are stamped by the tracker.
type NewImpact struct {
	DecisionID    string   `json:"decision_id"`
	Category      Category `json:"category"`
	Polarity      Polarity `json:"polarity"`
	Severity      Severity `json:"severity"`
	Description   string   `json:"description"`
	Source        string   `json:"source"`
	Evidence      string   `json:"evidence"`
	MeasuredValue *float64 `json:"measured_value,omitempty"`
	ExpectedValue *float64 `json:"expected_value,omitempty"`
	Unit          string   `json:"unit,omitempty"`
}

func (n NewImpact) validate() error {
	if n.DecisionID == "" {
		return fmt.Errorf("%w: decision_id is required", ErrValidation)
	}
	if !n.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrValidation, n.Category)
	}
	if !n.Polarity.Valid() {
		return fmt.Errorf("%w: unknown polarity %q", ErrValidation, n.Polarity)
	}
	if !n.Severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q", ErrValidation, n.Severity)
	}
	return nil
}

// Burden grades the ongoing maintenance cost attributed to a decision.
type Burden string

const (
	BurdenLow    Burden = "low"
	BurdenMedium Burden = "medium"
	BurdenHigh   Burden = "high"
)

// EvaluationPeriod is the window an evaluation covered.
type EvaluationPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Metrics are the derived measurements attached to an evaluation.
type Metrics struct {
	ProblemsSolved      int     `json:"problems_solved"`
	ProblemsCreated     int     `json:"problems_created"`
	MaintenanceBurden   Burden  `json:"maintenance_burden"`
	AdaptabilityScore   int     `json:"adaptability_score"`
	RiskRealizationRate float64 `json:"risk_realization_rate"`
}

// Recommendations summarize what to do about a decision going forward.
type Recommendations struct {
	ShouldContinue           bool     `json:"should_continue"`
	SuggestedModifications   []string `json:"suggested_modifications"`
	RelatedDecisionsToReview []string `json:"related_decisions_to_review"`
}

// EffectivenessEvaluation is the latest computed assessment for one decision.
// Re-evaluating a decision replaces the prior evaluation for the same id.
type EffectivenessEvaluation struct {
	DecisionID         string           `json:"decision_id"`
	Title              string           `json:"title"`
	ImplementationDate time.Time        `json:"implementation_date"`
	EvaluationPeriod   EvaluationPeriod `json:"evaluation_period"`
	OverallRating      int              `json:"overall_rating"`
	Impacts            []ImpactRecord   `json:"impacts"`
	Metrics            Metrics          `json:"metrics"`
	Lessons            []string         `json:"lessons"`
	Recommendations    Recommendations  `json:"recommendations"`
}

// Timeframe bounds an analytics query. Zero bounds are open.
type Timeframe struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (tf Timeframe) contains(t time.Time) bool {
	if !tf.Start.IsZero() && t.Before(tf.Start) {
		return false
	}
	if !tf.End.IsZero() && t.After(tf.End) {
		return false
	}
	return true
}

// PolarityDistribution counts impacts by polarity.
type PolarityDistribution struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

// CategoryStats is the per-category slice of an analytics snapshot.
type CategoryStats struct {
	Positive    int     `json:"positive"`
	Negative    int     `json:"negative"`
	AvgSeverity float64 `json:"avg_severity"`
}

// MonthlyPoint is one bucket of a monthly time series, keyed "2006-01".
type MonthlyPoint struct {
	Month string  `json:"month"`
	Value float64 `json:"value"`
}

// DecisionRank is one row of the top/problematic decision listings.
type DecisionRank struct {
	DecisionID      string `json:"decision_id"`
	Title           string `json:"title"`
	Rating          int    `json:"rating"`
	NegativeImpacts int    `json:"negative_impacts"`
}

// ImpactAnalytics is a point-in-time aggregate over impacts and evaluations.
// It is derived on every call, never stored.
type ImpactAnalytics struct {
	TotalDecisionsTracked  int                        `json:"total_decisions_tracked"`
	TotalImpacts           int                        `json:"total_impacts"`
	AverageEffectiveness   float64                    `json:"average_effectiveness"`
	ImpactDistribution     PolarityDistribution       `json:"impact_distribution"`
	CategoryBreakdown      map[Category]CategoryStats `json:"category_breakdown"`
	EffectivenessByMonth   []MonthlyPoint             `json:"effectiveness_by_month"`
	RiskRealizationByMonth []MonthlyPoint             `json:"risk_realization_by_month"`
	TopDecisions           []DecisionRank             `json:"top_decisions"`
	ProblematicDecisions   []DecisionRank             `json:"problematic_decisions"`
}

// Trend is the rolling three-state label on a timeline entry.
type Trend string

const (
	TrendImproving     Trend = "improving"
	TrendDeteriorating Trend = "deteriorating"
	TrendStable        Trend = "stable"
)

// TimelineEntry pairs one impact with the trend of the short window ending
// at it.
type TimelineEntry struct {
	Timestamp        time.Time    `json:"timestamp"`
	Impact           ImpactRecord `json:"impact"`
	CumulativeEffect Trend        `json:"cumulative_effect"`
}

// Prediction is the heuristic projection of a decision's future
// effectiveness.
type Prediction struct {
	DecisionID             string   `json:"decision_id"`
	ProjectedEffectiveness int      `json:"projected_effectiveness"`
	Confidence             float64  `json:"confidence"`
	RiskFactors            []string `json:"risk_factors"`
	Recommendations        []string `json:"recommendations"`
}
