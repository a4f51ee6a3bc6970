package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"astcensus/internal/core/config"
	"astcensus/internal/core/errors"
	"astcensus/internal/engine/ast"
	"astcensus/internal/engine/matcher"
	"astcensus/internal/shared/observability"
	"astcensus/internal/shared/util"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// specRun is the mutable state of one spec during a batch. Each file writes
// only its own slot of files.
type specRun struct {
	spec   config.Spec
	scope  *matcher.Expression
	paths  []string
	files  []FileResult
	err    error
	ctx    context.Context
	cancel context.CancelFunc
}

// RunBatch processes specs and returns one result per spec, in spec order.
// Per-spec failures are recorded in the results. When ctx ends before every
// file completed, the returned error is ctx.Err() and each spec left with
// unprocessed files carries a CANCELLED error next to its partial totals.
func (a *App) RunBatch(ctx context.Context, specs []config.Spec) ([]AggregateResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.RunBatch", trace.WithAttributes(
		attribute.Int("specs", len(specs)),
	))
	defer span.End()
	start := time.Now()

	runs := make([]*specRun, len(specs))
	for i, spec := range specs {
		runs[i] = a.prepareSpec(ctx, spec)
	}

	workers := a.Config.Batch.Workers
	if workers <= 0 {
		workers = 1
	}
	var g errgroup.Group
	g.SetLimit(workers)

	var dispatchErr error
dispatch:
	for _, run := range runs {
		if run.err != nil {
			continue
		}
		for i, path := range run.paths {
			if err := ctx.Err(); err != nil {
				dispatchErr = err
				break dispatch
			}
			run, i, path := run, i, path
			g.Go(func() error {
				run.files[i] = a.processFile(run, path)
				if a.failsSpec(run.files[i].Err) {
					run.cancel()
				}
				return nil
			})
		}
	}
	_ = g.Wait()
	if dispatchErr == nil {
		dispatchErr = ctx.Err()
	}
	interrupted := dispatchErr != nil

	results := make([]AggregateResult, len(runs))
	for i, run := range runs {
		run.cancel()
		results[i] = a.reduce(run, interrupted)
		a.recordSpecMetrics(results[i])
	}

	observability.BatchDuration.Observe(time.Since(start).Seconds())
	slog.Debug("batch finished",
		"specs", len(specs),
		"duration", time.Since(start),
		"cached_files", a.cache.len(),
		"heap_mb", util.HeapAllocMB(),
	)
	if dispatchErr != nil {
		span.SetStatus(codes.Error, dispatchErr.Error())
	}
	return results, dispatchErr
}

func (a *App) prepareSpec(ctx context.Context, spec config.Spec) *specRun {
	runCtx, cancel := context.WithCancel(ctx)
	run := &specRun{spec: spec, ctx: runCtx, cancel: cancel}

	_, span := observability.Tracer.Start(ctx, "app.resolveSpec", trace.WithAttributes(
		attribute.String("spec", spec.Name),
		attribute.String("glob", spec.Glob),
	))
	defer span.End()

	scope, err := compileScope(spec)
	if err != nil {
		run.err = err
		return run
	}
	run.scope = scope

	paths, err := a.Files.Resolve(spec.Glob)
	if err != nil {
		run.err = errors.AddContext(err, errors.CtxSpec, spec.Name)
		span.SetStatus(codes.Error, err.Error())
		return run
	}
	if len(paths) == 0 {
		slog.Debug("glob matched no files", "spec", spec.Name, "glob", spec.Glob)
	}
	run.paths = paths
	run.files = make([]FileResult, len(paths))
	for i, p := range paths {
		run.files[i] = FileResult{Path: p, Skipped: true}
	}
	span.SetAttributes(attribute.Int("files", len(paths)))
	return run
}

// processFile never returns an error directly; failures land in the result.
func (a *App) processFile(run *specRun, path string) FileResult {
	ctx, span := observability.Tracer.Start(run.ctx, "app.processFile", trace.WithAttributes(
		attribute.String("spec", run.spec.Name),
		attribute.String("path", path),
	))
	defer span.End()

	res := FileResult{Path: path}
	fail := func(err error) FileResult {
		// Failures caused by the spec or batch being cancelled are not errors
		// of the file.
		if ctx.Err() != nil {
			return FileResult{Path: path, Skipped: true}
		}
		res.Err = errors.AddContext(err, errors.CtxSpec, run.spec.Name)
		span.SetStatus(codes.Error, err.Error())
		observability.FilesProcessed.WithLabelValues(res.Language, "error").Inc()
		slog.Debug("file failed", "spec", run.spec.Name, "path", path, "error", err)
		return res
	}

	if ctx.Err() != nil {
		return FileResult{Path: path, Skipped: true}
	}
	if err := a.throttle.Wait(ctx, 1); err != nil {
		return FileResult{Path: path, Skipped: true}
	}

	res.Language = run.spec.Language
	if res.Language == "" {
		res.Language = a.Parser.Language(path)
	}
	if res.Language == "" {
		return fail(errors.AddContext(errors.New(errors.CodeNotSupported, "unsupported language"), errors.CtxPath, path))
	}
	span.SetAttributes(attribute.String("language", res.Language))

	key := cacheKey{path: path, lang: res.Language, scope: run.scope.String()}
	before, _ := os.Stat(path)
	if cached, ok := a.cache.lookup(key, before); ok {
		observability.FilesProcessed.WithLabelValues(res.Language, "cached").Inc()
		return cached
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return fail(errors.AddContext(errors.Wrap(err, errors.CodeIO, "read source"), errors.CtxPath, path))
	}
	// The result is cached only if the file did not change while it was read.
	var info os.FileInfo
	if after, err := os.Stat(path); err == nil && sameFile(before, after) {
		info = after
	}

	lines, err := a.Lines.CountSourceLines(source, a.Parser.Dialect(res.Language))
	if err != nil {
		return fail(errors.AddContext(err, errors.CtxPath, path))
	}
	res.SourceLines = lines

	parseStart := time.Now()
	root, err := a.Parser.ParseAs(ctx, res.Language, path, source)
	observability.ParsingDuration.WithLabelValues(res.Language).Observe(time.Since(parseStart).Seconds())
	if err != nil {
		return fail(err)
	}

	res.NodeCount, res.Scoped = a.countNodes(run, root)
	observability.FilesProcessed.WithLabelValues(res.Language, "ok").Inc()
	a.cache.store(key, info, res)
	return res
}

// countNodes applies the spec's scope and counts the non-comment nodes of
// what remains.
func (a *App) countNodes(run *specRun, root *ast.Node) (int, bool) {
	if run.scope == nil {
		return a.census.Count(root), true
	}
	m, ok := a.finder.FindFirst(root, run.scope.Predicate())
	if !ok {
		slog.Debug("scope matched nothing", "spec", run.spec.Name, "scope", run.scope.String())
		return 0, false
	}
	return a.census.Count(m.Node), true
}

// failsSpec reports whether a file error aborts its spec: only parse errors
// do, and only under fail-spec.
func (a *App) failsSpec(err error) bool {
	return a.Config.Batch.ParseErrorPolicy == config.PolicyFailSpec && errors.IsCode(err, errors.CodeParse)
}

// reduce sums the successful files of a spec. Under fail-spec a parse error
// zeroes the totals. When the batch was interrupted, unprocessed files add a
// CANCELLED error so partial totals never pass for complete ones.
func (a *App) reduce(run *specRun, interrupted bool) AggregateResult {
	out := AggregateResult{Name: run.spec.Name, Glob: run.spec.Glob, Files: run.files}
	if run.err != nil {
		out.Errors = []error{run.err}
		out.Failed = true
		return out
	}
	failed := false
	skipped := 0
	for _, f := range run.files {
		if f.Err != nil {
			out.Errors = append(out.Errors, f.Err)
			failed = failed || a.failsSpec(f.Err)
		}
		if f.Skipped {
			skipped++
		}
	}
	if interrupted && skipped > 0 && !failed {
		out.Errors = append(out.Errors, errors.AddContext(
			errors.New(errors.CodeCancelled, fmt.Sprintf("batch cancelled with %d of %d files unprocessed", skipped, len(run.files))),
			errors.CtxSpec, run.spec.Name,
		))
	}
	out.TotalNodeCount, out.TotalSourceLines = Sum(run.files)
	if failed {
		out.Failed = true
		out.TotalNodeCount = 0
		out.TotalSourceLines = 0
	}
	return out
}

func sameFile(a, b os.FileInfo) bool {
	return a != nil && b != nil && a.Size() == b.Size() && a.ModTime().Equal(b.ModTime())
}

func (a *App) recordSpecMetrics(res AggregateResult) {
	observability.NodesCounted.WithLabelValues(res.Name).Add(float64(res.TotalNodeCount))
	observability.SourceLinesCounted.WithLabelValues(res.Name).Add(float64(res.TotalSourceLines))
	if res.HasErrors() {
		observability.SpecFailures.WithLabelValues(res.Name).Inc()
		slog.Warn("spec finished with errors", "spec", res.Name, "errors", len(res.Errors), "failed", res.Failed)
	}
}

// Sum adds up the files that completed. The order of files does not matter.
func Sum(files []FileResult) (nodes, lines int) {
	for _, f := range files {
		if f.Err != nil || f.Skipped {
			continue
		}
		nodes += f.NodeCount
		lines += f.SourceLines
	}
	return nodes, lines
}
