// Package ports declares the collaborators of the batch aggregator and the
// result types they exchange.
package ports

import (
	"context"

	"astcensus/internal/data/history"
	"astcensus/internal/engine/ast"
)

// Parser turns one source file into a syntax tree.
type Parser interface {
	Parse(ctx context.Context, path string, source []byte) (*ast.Node, error)
	ParseAs(ctx context.Context, lang, path string, source []byte) (*ast.Node, error)
	// Language maps a path to a language id, "" when unsupported.
	Language(path string) string
	// Dialect maps a language id to the line counter's dialect name.
	Dialect(lang string) string
}

// LineCounter counts lines that carry code.
type LineCounter interface {
	CountSourceLines(source []byte, dialect string) (int, error)
}

// FileDiscovery expands a glob to a sorted list of files.
type FileDiscovery interface {
	Resolve(pattern string) ([]string, error)
}

// ArtifactSink persists a matched sub-tree.
type ArtifactSink interface {
	WriteArtifact(path string, node *ast.Node) error
}

// ReportSink renders batch results in spec order.
type ReportSink interface {
	Report(results []AggregateResult) error
}

// HistoryStore persists runs for delta reporting.
type HistoryStore interface {
	SaveRun(ctx context.Context, run history.Run) error
	LatestTotals(ctx context.Context, excludeRunID string) (map[string]history.SpecTotal, error)
	RecentRuns(ctx context.Context, limit int) ([]history.Run, error)
}

// FileResult is the outcome for one file. Err is set when the file did not
// contribute to its spec's totals.
type FileResult struct {
	Path        string
	Language    string
	SourceLines int
	NodeCount   int
	// Scoped is false when a scope predicate matched nothing.
	Scoped bool
	// Skipped is set when the file was never processed because its spec or
	// the batch was cancelled first.
	Skipped bool
	Err     error
}

// AggregateResult is the reduction of one spec's file results.
type AggregateResult struct {
	Name             string
	Glob             string
	TotalNodeCount   int
	TotalSourceLines int
	Files            []FileResult
	// Errors holds spec-level failures and every file error, in file order.
	Errors []error
	// Failed is set when the spec was aborted and its totals are zero.
	Failed bool
}

// HasErrors reports whether anything in the spec went wrong.
func (r AggregateResult) HasErrors() bool {
	return r.Failed || len(r.Errors) > 0
}

// FileCount is the number of files that contributed to the totals.
func (r AggregateResult) FileCount() int {
	n := 0
	for _, f := range r.Files {
		if f.Err == nil && !f.Skipped {
			n++
		}
	}
	return n
}

// QueryResult is the outcome of an ad-hoc query.
type QueryResult struct {
	Path      string
	MatchPath string
	MatchKind string
	Types     []string
	NodeCount int
	Artifact  string
}
