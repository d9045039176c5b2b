// Package reeval periodically re-runs effectiveness evaluations so stored
// ratings track the impact log as it grows.
package reeval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Decision identifies one decision due for re-evaluation.
type Decision struct {
	ID                 string
	Title              string
	ImplementationDate time.Time
	PeriodMonths       int
}

// DecisionSource lists the decisions the worker should keep fresh.
type DecisionSource interface {
	ListDecisions(ctx context.Context) ([]Decision, error)
}

// Evaluator re-computes and stores one evaluation.
type Evaluator interface {
	Evaluate(decisionID, title string, implementationDate time.Time, periodMonths int) error
}

// Worker re-evaluates every listed decision on a fixed interval.
type Worker struct {
	source   DecisionSource
	eval     Evaluator
	interval time.Duration
	workers  int
	logger   *slog.Logger
}

// NewWorker creates a Worker. An interval <= 0 defaults to 24h; workers <= 0
// defaults to 4 concurrent evaluations.
func NewWorker(source DecisionSource, eval Evaluator, interval time.Duration, workers int) *Worker {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if workers <= 0 {
		workers = 4
	}
	return &Worker{
		source:   source,
		eval:     eval,
		interval: interval,
		workers:  workers,
		logger:   slog.Default(),
	}
}

// Run re-evaluates on every tick until ctx is cancelled. The first pass runs
// immediately.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			w.logger.Error("re-evaluation pass failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce re-evaluates all listed decisions with bounded concurrency. A
// single failed decision does not stop the rest of the pass; failures are
// logged and the first one is returned.
func (w *Worker) RunOnce(ctx context.Context) error {
	decisions, err := w.source.ListDecisions(ctx)
	if err != nil {
		return fmt.Errorf("listing decisions: %w", err)
	}
	if len(decisions) == 0 {
		return nil
	}

	start := time.Now()
	var g errgroup.Group
	g.SetLimit(w.workers)

	for _, d := range decisions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := w.eval.Evaluate(d.ID, d.Title, d.ImplementationDate, d.PeriodMonths); err != nil {
				w.logger.Warn("re-evaluation failed", "decision_id", d.ID, "error", err)
				return fmt.Errorf("evaluating %s: %w", d.ID, err)
			}
			return nil
		})
	}

	err = g.Wait()
	w.logger.Debug("re-evaluation pass finished",
		"decisions", len(decisions),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return err
}
