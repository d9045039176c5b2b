package impact

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxHistory caps the impact log when no override is configured.
const DefaultMaxHistory = 5000

// Persister receives write-through notifications for every log mutation.
// Implementations are optional; a nil persister keeps the tracker purely
// in-memory.
type Persister interface {
	SaveImpact(rec ImpactRecord) error
	DeleteImpacts(ids []string) error
	SaveEvaluation(eval EffectivenessEvaluation) error
}

// Tracker holds the impact log and the evaluation map. The log is a dense
// append-only arena with a decision-id index alongside it, so per-decision
// reads never rescan the whole log. All mutation goes through a single
// writer lock; read operations copy what they need before computing.
//
// Constructing a Tracker has no side effects: nothing is scheduled and
// nothing is written. Periodic re-evaluation lives with the host.
type Tracker struct {
	mu          sync.RWMutex
	records     []ImpactRecord
	byDecision  map[string][]int
	evaluations map[string]EffectivenessEvaluation

	maxHistory int
	scorer     Scorer
	persist    Persister
	now        func() time.Time
}

// Option configures a Tracker at construction.
type Option func(*Tracker)

// WithMaxHistory overrides the impact log cap. Values < 1 keep the default.
func WithMaxHistory(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.maxHistory = n
		}
	}
}

// WithScorer swaps the keyword-matching strategy used by the evaluator.
func WithScorer(s Scorer) Option {
	return func(t *Tracker) { t.scorer = s }
}

// WithPersister attaches a write-through store.
func WithPersister(p Persister) Option {
	return func(t *Tracker) { t.persist = p }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker builds an empty tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		byDecision:  make(map[string][]int),
		evaluations: make(map[string]EffectivenessEvaluation),
		maxHistory:  DefaultMaxHistory,
		scorer:      DefaultRules(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Restore seeds the tracker from persisted state. Impacts must be supplied
// in their original insertion order. Restore does not write back to the
// persister.
func (t *Tracker) Restore(impacts []ImpactRecord, evals []EffectivenessEvaluation) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records = append([]ImpactRecord(nil), impacts...)
	t.byDecision = make(map[string][]int, len(impacts))
	for i, rec := range t.records {
		t.byDecision[rec.DecisionID] = append(t.byDecision[rec.DecisionID], i)
	}
	t.evaluations = make(map[string]EffectivenessEvaluation, len(evals))
	for _, ev := range evals {
		t.evaluations[ev.DecisionID] = ev
	}
	t.evictLocked()
}

// Record validates the impact, stamps id and timestamp, and appends it to
// the log. When the log exceeds the cap, the oldest entries are evicted
// until it is back at the cap.
func (t *Tracker) Record(n NewImpact) (string, error) {
	if err := n.validate(); err != nil {
		return "", err
	}

	rec := ImpactRecord{
		ID:            uuid.New().String(),
		DecisionID:    n.DecisionID,
		Category:      n.Category,
		Polarity:      n.Polarity,
		Severity:      n.Severity,
		Description:   n.Description,
		Source:        n.Source,
		Evidence:      n.Evidence,
		Timestamp:     t.now().UTC(),
		MeasuredValue: n.MeasuredValue,
		ExpectedValue: n.ExpectedValue,
		Unit:          n.Unit,
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.records = append(t.records, rec)
	t.byDecision[rec.DecisionID] = append(t.byDecision[rec.DecisionID], len(t.records)-1)

	if t.persist != nil {
		if err := t.persist.SaveImpact(rec); err != nil {
			// Roll the append back so memory and disk stay in step.
			t.records = t.records[:len(t.records)-1]
			idxs := t.byDecision[rec.DecisionID]
			t.byDecision[rec.DecisionID] = idxs[:len(idxs)-1]
			return "", fmt.Errorf("persisting impact: %w", err)
		}
	}

	if err := t.evictLocked(); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// evictLocked trims the oldest entries until the log is back at the cap and
// shifts the index instead of rebuilding it from a rescan.
func (t *Tracker) evictLocked() error {
	overflow := len(t.records) - t.maxHistory
	if overflow <= 0 {
		return nil
	}

	evicted := make([]string, overflow)
	for i := 0; i < overflow; i++ {
		evicted[i] = t.records[i].ID
	}

	kept := make([]ImpactRecord, len(t.records)-overflow)
	copy(kept, t.records[overflow:])
	t.records = kept

	for id, idxs := range t.byDecision {
		shifted := idxs[:0]
		for _, i := range idxs {
			if i >= overflow {
				shifted = append(shifted, i-overflow)
			}
		}
		if len(shifted) == 0 {
			delete(t.byDecision, id)
			continue
		}
		t.byDecision[id] = shifted
	}

	if t.persist != nil {
		if err := t.persist.DeleteImpacts(evicted); err != nil {
			return fmt.Errorf("evicting impacts: %w", err)
		}
	}
	return nil
}

// impactsFor copies the records of one decision in insertion order.
func (t *Tracker) impactsFor(decisionID string) []ImpactRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	idxs := t.byDecision[decisionID]
	out := make([]ImpactRecord, len(idxs))
	for i, idx := range idxs {
		out[i] = t.records[idx]
	}
	return out
}

// snapshot copies the full log and evaluation set for read operations.
func (t *Tracker) snapshot() ([]ImpactRecord, []EffectivenessEvaluation) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	recs := append([]ImpactRecord(nil), t.records...)
	evals := make([]EffectivenessEvaluation, 0, len(t.evaluations))
	for _, ev := range t.evaluations {
		evals = append(evals, ev)
	}
	return recs, evals
}

// RecentImpacts returns up to limit impacts, newest first, skipping offset.
func (t *Tracker) RecentImpacts(limit, offset int) []ImpactRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if offset < 0 {
		offset = 0
	}
	out := make([]ImpactRecord, 0, limit)
	for i := len(t.records) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, t.records[i])
	}
	return out
}

// Evaluation returns the stored evaluation for a decision.
func (t *Tracker) Evaluation(decisionID string) (EffectivenessEvaluation, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ev, ok := t.evaluations[decisionID]
	if !ok {
		return EffectivenessEvaluation{}, ErrNotFound
	}
	return ev, nil
}

// Evaluations returns a copy of all stored evaluations, sorted by decision
// id so callers see a stable order.
func (t *Tracker) Evaluations() []EffectivenessEvaluation {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]EffectivenessEvaluation, 0, len(t.evaluations))
	for _, ev := range t.evaluations {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DecisionID < out[j].DecisionID })
	return out
}

// ImpactCount reports the current log length.
func (t *Tracker) ImpactCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// EvaluationCount reports how many decisions currently hold an evaluation.
func (t *Tracker) EvaluationCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.evaluations)
}
