package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"astcensus/internal/core/config"
	"astcensus/internal/core/watcher"
	"astcensus/internal/engine/discovery"
	"astcensus/internal/shared/util"
)

// ReportFunc receives the results of every batch run in watch mode.
type ReportFunc func(results []AggregateResult, err error)

// Watch runs the batch once, then again after every debounced change below
// the specs' static glob bases, until ctx ends. Only changed files are
// re-parsed.
func (a *App) Watch(ctx context.Context, specs []config.Spec, report ReportFunc) error {
	changes := make(chan []string, 1)
	w, err := watcher.NewWatcher(a.Config.Watch.Debounce, a.Config.Exclude.Dirs, func(paths []string) {
		select {
		case changes <- paths:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()

	if exts, ok := a.Parser.(interface{ SupportedExtensions() []string }); ok {
		w.SetExtensions(exts.SupportedExtensions())
	}
	roots := a.watchRoots(specs)
	if err := w.Watch(roots); err != nil {
		return err
	}
	slog.Info("watching for changes", "roots", len(roots), "debounce", a.Config.Watch.Debounce)

	report(a.RunBatch(ctx, specs))
	for {
		select {
		case <-ctx.Done():
			return nil
		case paths := <-changes:
			a.cache.invalidate(paths)
			relevant := a.relevantChanges(specs, paths)
			if len(relevant) == 0 {
				slog.Debug("change ignored, no spec matches", "files", len(paths))
				continue
			}
			slog.Info("change detected", "files", len(relevant))
			report(a.RunBatch(ctx, specs))
		}
	}
}

// globMatcher is implemented by file discoveries that can test a single path
// against a pattern without walking.
type globMatcher interface {
	Match(pattern, file string) bool
}

// relevantChanges returns the paths some spec's glob selects. Without a
// matcher every path is relevant.
func (a *App) relevantChanges(specs []config.Spec, paths []string) []string {
	m, ok := a.Files.(globMatcher)
	if !ok {
		return paths
	}
	var out []string
	for _, p := range paths {
		for _, spec := range specs {
			if m.Match(spec.Glob, p) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// watchRoots returns the existing directories that contain every file the
// specs can match.
func (a *App) watchRoots(specs []config.Spec) []string {
	seen := make(map[string]bool)
	for _, spec := range specs {
		base := discovery.StaticBase(util.NormalizePatternPath(spec.Glob))
		dir := a.Config.Resolve(base)
		if dir == "" {
			dir = a.Config.BaseDir()
		}
		dir = existingDir(dir)
		if dir != "" {
			seen[dir] = true
		}
	}
	roots := make([]string, 0, len(seen))
	for dir := range seen {
		roots = append(roots, dir)
	}
	sort.Strings(roots)
	return roots
}

// existingDir walks up from p to the nearest existing directory.
func existingDir(p string) string {
	for {
		info, err := os.Stat(p)
		if err == nil {
			if info.IsDir() {
				return p
			}
			return filepath.Dir(p)
		}
		parent := filepath.Dir(p)
		if parent == p {
			return ""
		}
		p = parent
	}
}
