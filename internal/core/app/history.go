package app

import (
	"context"
	"log/slog"
	"time"

	"astcensus/internal/data/history"
)

// RecordRun persists results and returns each spec's change since the
// previous run. Without a HistoryStore it does nothing.
func (a *App) RecordRun(ctx context.Context, started time.Time, results []AggregateResult) ([]history.Delta, error) {
	if a.History == nil {
		return nil, nil
	}
	run := history.NewRun(started, time.Since(started), SpecTotals(results))
	if err := a.History.SaveRun(ctx, run); err != nil {
		return nil, err
	}
	previous, err := a.History.LatestTotals(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	slog.Debug("run recorded", "run", run.ID, "baseline_specs", len(previous))
	return history.Deltas(previous, run.Specs), nil
}

// SpecTotals converts results to their persisted form.
func SpecTotals(results []AggregateResult) []history.SpecTotal {
	out := make([]history.SpecTotal, 0, len(results))
	for _, r := range results {
		out = append(out, history.SpecTotal{
			Name:        r.Name,
			Files:       r.FileCount(),
			Nodes:       r.TotalNodeCount,
			SourceLines: r.TotalSourceLines,
			Errors:      len(r.Errors),
		})
	}
	return out
}
