// Package app runs census batches: glob specs are resolved, every matched
// file is parsed and measured, and per-file results are reduced per spec.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"astcensus/internal/core/config"
	"astcensus/internal/core/errors"
	"astcensus/internal/core/ports"
	"astcensus/internal/engine/census"
	"astcensus/internal/engine/discovery"
	"astcensus/internal/engine/matcher"
	"astcensus/internal/engine/parser"
	"astcensus/internal/engine/sloc"
	"astcensus/internal/shared/util"
)

type (
	FileResult      = ports.FileResult
	AggregateResult = ports.AggregateResult
	QueryResult     = ports.QueryResult
)

// App wires the collaborators of a batch. The exported ports may be
// replaced before the first run.
type App struct {
	Config    *config.Config
	Parser    ports.Parser
	Lines     ports.LineCounter
	Files     ports.FileDiscovery
	Artifacts ports.ArtifactSink
	History   ports.HistoryStore

	census   *census.Census
	finder   matcher.Finder
	throttle *util.Limiter
	cache    *resultCache
}

// New builds an App with the tree-sitter parser, the gobwas/glob resolver
// and the line counter configured by cfg.
func New(cfg *config.Config) (*App, error) {
	registry, err := LanguageRegistry(cfg)
	if err != nil {
		return nil, err
	}
	loader, err := parser.NewGrammarLoader(registry)
	if err != nil {
		return nil, err
	}
	p := parser.NewParser(loader)

	resolver, err := discovery.NewResolver(cfg.BaseDir(), cfg.Exclude.Dirs)
	if err != nil {
		return nil, err
	}
	return NewWithPorts(cfg, p, sloc.Counter{}, resolver)
}

// NewWithPorts builds an App around explicit collaborators.
func NewWithPorts(cfg *config.Config, p ports.Parser, lines ports.LineCounter, files ports.FileDiscovery) (*App, error) {
	// No schema: every object-valued field is descended into, whatever the
	// node kind.
	c, err := census.New(nil, cfg.Batch.CommentPattern)
	if err != nil {
		return nil, err
	}
	return &App{
		Config:   cfg,
		Parser:   p,
		Lines:    lines,
		Files:    files,
		census:   c,
		finder:   matcher.Finder{OnFailure: logPredicateFailure},
		throttle: util.NewFileThrottle(cfg.Batch.FilesPerSecond),
		cache:    newResultCache(),
	}, nil
}

// LanguageRegistry is the parser registry after the config overrides.
func LanguageRegistry(cfg *config.Config) (map[string]parser.LanguageSpec, error) {
	overrides := make(map[string]parser.LanguageOverride, len(cfg.Languages))
	for lang, languageCfg := range cfg.Languages {
		overrides[lang] = parser.LanguageOverride{
			Enabled:    languageCfg.Enabled,
			Extensions: append([]string(nil), languageCfg.Extensions...),
		}
	}
	registry, err := parser.BuildLanguageRegistry(overrides)
	if err != nil {
		return nil, fmt.Errorf("build language registry: %w", err)
	}
	return registry, nil
}

func logPredicateFailure(path string, err error) {
	slog.Debug("predicate failed", "node", path, "error", err)
}

// Health reports the state of each collaborator for the /health endpoint.
func (a *App) Health(context.Context) map[string]string {
	status := map[string]string{}
	if a.Parser != nil {
		status["parser"] = "ok"
	} else {
		status["parser"] = "missing"
	}
	if a.Files != nil {
		status["discovery"] = "ok"
	} else {
		status["discovery"] = "missing"
	}
	if a.History != nil {
		status["history"] = "ok"
	} else if a.Config != nil && a.Config.History.Enabled {
		status["history"] = "missing but enabled in config"
	}
	return status
}

// compileScope returns nil when the spec has no scope.
func compileScope(spec config.Spec) (*matcher.Expression, error) {
	expr, err := matcher.Compile(spec.Scope)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxSpec, spec.Name)
	}
	return expr, nil
}
