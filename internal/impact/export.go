package impact

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Format selects the export serialization.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Snapshot is the JSON export payload: one consistent view of analytics,
// the raw impact log, and all stored evaluations.
type Snapshot struct {
	ExportedAt  time.Time                          `json:"exported_at"`
	Analytics   ImpactAnalytics                    `json:"analytics"`
	Impacts     []ImpactRecord                     `json:"impacts"`
	Evaluations map[string]EffectivenessEvaluation `json:"evaluations"`
}

// csvHeader fixes the CSV column order.
var csvHeader = []string{"decision_id", "category", "polarity", "severity", "description", "source", "timestamp"}

// Export serializes a consistent snapshot of the store. JSON carries
// analytics plus the full log and evaluation set; CSV flattens only the
// impact log, RFC 4180 quoted.
func (t *Tracker) Export(format Format) (string, error) {
	switch format {
	case FormatJSON:
		return t.exportJSON()
	case FormatCSV:
		return t.exportCSV()
	default:
		return "", fmt.Errorf("%w: unknown export format %q", ErrValidation, format)
	}
}

func (t *Tracker) exportJSON() (string, error) {
	records, evals := t.snapshot()

	snap := Snapshot{
		ExportedAt:  t.now().UTC(),
		Analytics:   buildAnalytics(records, evals, nil),
		Impacts:     records,
		Evaluations: make(map[string]EffectivenessEvaluation, len(evals)),
	}
	if snap.Impacts == nil {
		snap.Impacts = []ImpactRecord{}
	}
	for _, ev := range evals {
		snap.Evaluations[ev.DecisionID] = ev
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshalling snapshot: %w", err)
	}
	return string(data), nil
}

func (t *Tracker) exportCSV() (string, error) {
	records, _ := t.snapshot()

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(csvHeader); err != nil {
		return "", fmt.Errorf("writing csv header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.DecisionID,
			string(rec.Category),
			string(rec.Polarity),
			string(rec.Severity),
			rec.Description,
			rec.Source,
			rec.Timestamp.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("writing csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing csv: %w", err)
	}
	return sb.String(), nil
}
