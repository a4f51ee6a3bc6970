package history

import (
	"time"

	"github.com/google/uuid"
)

const SchemaVersion = 1

// Run is one completed batch.
type Run struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Specs     []SpecTotal   `json:"specs"`
}

// SpecTotal is the persisted aggregate of one spec within a run.
type SpecTotal struct {
	Name        string `json:"name"`
	Files       int    `json:"files"`
	Nodes       int    `json:"nodes"`
	SourceLines int    `json:"source_lines"`
	Errors      int    `json:"errors"`
}

// Delta compares a spec with its total in an earlier run.
type Delta struct {
	Name        string `json:"name"`
	Previous    bool   `json:"previous"`
	Nodes       int    `json:"nodes"`
	SourceLines int    `json:"source_lines"`
}

// NewRun stamps a run with a fresh id.
func NewRun(startedAt time.Time, duration time.Duration, specs []SpecTotal) Run {
	return Run{
		ID:        uuid.NewString(),
		StartedAt: startedAt.UTC(),
		Duration:  duration,
		Specs:     specs,
	}
}

// Deltas returns, in the order of current, the change of every spec against
// previous. Specs missing from previous have Previous == false and zero deltas.
func Deltas(previous map[string]SpecTotal, current []SpecTotal) []Delta {
	out := make([]Delta, 0, len(current))
	for _, cur := range current {
		d := Delta{Name: cur.Name}
		if prev, ok := previous[cur.Name]; ok {
			d.Previous = true
			d.Nodes = cur.Nodes - prev.Nodes
			d.SourceLines = cur.SourceLines - prev.SourceLines
		}
		out = append(out, d)
	}
	return out
}
