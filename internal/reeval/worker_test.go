package reeval

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type mockSource struct {
	decisions []Decision
	err       error
}

func (m *mockSource) ListDecisions(_ context.Context) ([]Decision, error) {
	return m.decisions, m.err
}

type mockEvaluator struct {
	mu     sync.Mutex
	calls  []string
	failID string
}

func (m *mockEvaluator) Evaluate(decisionID, _ string, _ time.Time, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, decisionID)
	if decisionID == m.failID {
		return errors.New("boom")
	}
	return nil
}

func (m *mockEvaluator) called() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]string, len(m.calls))
	copy(cp, m.calls)
	return cp
}

func TestRunOnceEvaluatesAllDecisions(t *testing.T) {
	source := &mockSource{decisions: []Decision{
		{ID: "ADR-001"},
		{ID: "ADR-002"},
		{ID: "ADR-003"},
	}}
	eval := &mockEvaluator{}
	w := NewWorker(source, eval, 0, 2)

	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	calls := eval.called()
	if len(calls) != 3 {
		t.Fatalf("evaluated %d decisions, want 3", len(calls))
	}
	seen := make(map[string]bool)
	for _, id := range calls {
		seen[id] = true
	}
	for _, d := range source.decisions {
		if !seen[d.ID] {
			t.Errorf("decision %s was not evaluated", d.ID)
		}
	}
}

func TestRunOnceEmptySource(t *testing.T) {
	w := NewWorker(&mockSource{}, &mockEvaluator{}, 0, 0)
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce on empty source: %v", err)
	}
}

func TestRunOnceSourceError(t *testing.T) {
	source := &mockSource{err: errors.New("listing broke")}
	w := NewWorker(source, &mockEvaluator{}, 0, 0)
	if err := w.RunOnce(context.Background()); err == nil {
		t.Fatal("expected an error from a failing source")
	}
}

func TestRunOnceContinuesPastFailures(t *testing.T) {
	source := &mockSource{decisions: []Decision{
		{ID: "ADR-001"},
		{ID: "ADR-002"},
		{ID: "ADR-003"},
	}}
	eval := &mockEvaluator{failID: "ADR-002"}
	w := NewWorker(source, eval, 0, 1)

	err := w.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected the pass to report the failed decision")
	}
	if got := len(eval.called()); got != 3 {
		t.Errorf("evaluated %d decisions, want all 3 despite one failure", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	source := &mockSource{decisions: []Decision{{ID: "ADR-001"}}}
	eval := &mockEvaluator{}
	w := NewWorker(source, eval, 10*time.Millisecond, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	// Let at least the immediate first pass happen, then cancel.
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
	if len(eval.called()) == 0 {
		t.Error("no evaluation happened before cancellation")
	}
}
