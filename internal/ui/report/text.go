package report

import (
	"fmt"
	"strings"

	"astcensus/internal/core/ports"
	"astcensus/internal/data/history"
	"astcensus/internal/engine/census"
)

// RenderText prints one "name nodes[sloc]" line per spec, followed by an
// error marker when the spec had errors.
func RenderText(results []ports.AggregateResult) []byte {
	var buf strings.Builder
	for _, r := range results {
		fmt.Fprintf(&buf, "%s %d[%d]", r.Name, r.TotalNodeCount, r.TotalSourceLines)
		if marker := errorSummary(r); marker != "" {
			buf.WriteString(" ")
			buf.WriteString(marker)
		}
		buf.WriteString("\n")
	}
	return []byte(buf.String())
}

// RenderQuery prints the matched node kinds and their count.
func RenderQuery(res ports.QueryResult) []byte {
	var buf strings.Builder
	match := res.MatchPath
	if match == "" {
		match = "<root>"
	}
	fmt.Fprintf(&buf, "%s: %s at %s\n", res.Path, res.MatchKind, match)
	fmt.Fprintf(&buf, "[%s] %d\n", strings.Join(res.Types, ", "), res.NodeCount)
	if res.Artifact != "" {
		fmt.Fprintf(&buf, "written %s\n", res.Artifact)
	}
	return []byte(buf.String())
}

// RenderTally prints "count kind" lines and a total.
func RenderTally(tally []census.KindCount) []byte {
	var buf strings.Builder
	total := 0
	for _, kc := range tally {
		fmt.Fprintf(&buf, "%7d %s\n", kc.Count, kc.Kind)
		total += kc.Count
	}
	fmt.Fprintf(&buf, "%7d total\n", total)
	return []byte(buf.String())
}

// RenderDeltas prints the change of every spec since the previous run.
func RenderDeltas(deltas []history.Delta) []byte {
	var buf strings.Builder
	for _, d := range deltas {
		if !d.Previous {
			fmt.Fprintf(&buf, "%s new\n", d.Name)
			continue
		}
		fmt.Fprintf(&buf, "%s %+d[%+d]\n", d.Name, d.Nodes, d.SourceLines)
	}
	return []byte(buf.String())
}

// RenderRuns lists stored runs, newest first.
func RenderRuns(runs []history.Run) []byte {
	var buf strings.Builder
	for _, run := range runs {
		fmt.Fprintf(&buf, "%s %s (%s)\n", run.StartedAt.Format("2006-01-02T15:04:05Z07:00"), run.ID, run.Duration)
		for _, spec := range run.Specs {
			fmt.Fprintf(&buf, "  %s %d[%d]", spec.Name, spec.Nodes, spec.SourceLines)
			if spec.Errors > 0 {
				fmt.Fprintf(&buf, " errors=%d", spec.Errors)
			}
			buf.WriteString("\n")
		}
	}
	return []byte(buf.String())
}
