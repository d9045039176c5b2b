package impact

import "strings"

// Marker names one keyword class the evaluator scans descriptions for.
type Marker int

const (
	MarkerSolved Marker = iota
	MarkerProblem
	MarkerAdaptability
	MarkerRigidity
	MarkerRisk
)

// Scorer decides whether an impact description matches a marker class.
// The default is a plain keyword table; a real classifier can replace it
// without touching the evaluator or the aggregation code.
type Scorer interface {
	Match(m Marker, description string) bool
}

// RuleSet is the keyword table backing the default Scorer: one list of
// case-insensitive substrings per marker class.
type RuleSet map[Marker][]string

// DefaultRules returns the stock keyword table.
func DefaultRules() RuleSet {
	return RuleSet{
		MarkerSolved:       {"solved", "fixed", "resolved", "eliminated"},
		MarkerProblem:      {"problem", "issue", "broke", "regression"},
		MarkerAdaptability: {"adapt", "flexib", "extensib"},
		MarkerRigidity:     {"rigid", "inflexib", "hardcoded", "locked in"},
		MarkerRisk:         {"risk"},
	}
}

// Match reports whether description contains any keyword of the marker class.
func (r RuleSet) Match(m Marker, description string) bool {
	desc := strings.ToLower(description)
	for _, kw := range r[m] {
		if strings.Contains(desc, kw) {
			return true
		}
	}
	return false
}
