package app

import (
	"context"
	"os"

	"astcensus/internal/core/errors"
	"astcensus/internal/engine/ast"
	"astcensus/internal/engine/census"
	"astcensus/internal/engine/matcher"
	"astcensus/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Query parses one file, finds the first node matching expression and
// censuses it. When artifact is non-empty and an ArtifactSink is set, the
// matched sub-tree is written there. No match is a NOT_FOUND error.
func (a *App) Query(ctx context.Context, path, expression, artifact string) (QueryResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.Query", trace.WithAttributes(
		attribute.String("path", path),
		attribute.String("expression", expression),
	))
	defer span.End()

	res := QueryResult{Path: path}
	expr, err := matcher.Compile(expression)
	if err != nil {
		return res, err
	}

	root, err := a.parseFile(ctx, path, "")
	if err != nil {
		return res, err
	}

	m, ok := a.finder.FindFirst(root, expr.Predicate())
	if !ok {
		return res, errors.AddContext(
			errors.AddContext(errors.New(errors.CodeNotFound, "no node matches the query"), errors.CtxPath, path),
			"expression", expression,
		)
	}

	res.MatchPath = m.Path
	res.MatchKind = m.Node.Kind
	res.Types = a.census.CollectTypes(m.Node)
	res.NodeCount = len(res.Types)

	if artifact != "" && a.Artifacts != nil {
		if err := a.Artifacts.WriteArtifact(artifact, m.Node); err != nil {
			return res, errors.AddContext(errors.Wrap(err, errors.CodeIO, "write artifact"), errors.CtxPath, artifact)
		}
		res.Artifact = artifact
	}
	return res, nil
}

// CensusFile tallies the non-comment node kinds of one file, most frequent
// first.
func (a *App) CensusFile(ctx context.Context, path, lang string) ([]census.KindCount, error) {
	root, err := a.parseFile(ctx, path, lang)
	if err != nil {
		return nil, err
	}
	return census.Tally(a.census.CollectTypes(root)), nil
}

func (a *App) parseFile(ctx context.Context, path, lang string) (*ast.Node, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeIO, "read source"), errors.CtxPath, path)
	}
	if lang == "" {
		lang = a.Parser.Language(path)
	}
	if lang == "" {
		return nil, errors.AddContext(errors.New(errors.CodeNotSupported, "unsupported language"), errors.CtxPath, path)
	}
	return a.Parser.ParseAs(ctx, lang, path, source)
}
