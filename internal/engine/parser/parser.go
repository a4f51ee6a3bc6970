// Package parser turns source files into ast trees, through tree-sitter
// grammars or by decoding pre-parsed ESTree JSON.
package parser

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"astcensus/internal/core/errors"
	"astcensus/internal/engine/ast"
	"astcensus/internal/shared/util"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type Parser struct {
	loader     *GrammarLoader
	pools      map[string]*ParserPool
	extensions map[string]string
}

func NewParser(loader *GrammarLoader) *Parser {
	p := &Parser{
		loader:     loader,
		pools:      make(map[string]*ParserPool),
		extensions: make(map[string]string),
	}
	for lang, spec := range loader.LanguageRegistry() {
		if !spec.Enabled {
			continue
		}
		for _, ext := range spec.Extensions {
			p.extensions[strings.ToLower(ext)] = lang
		}
		if grammar, ok := loader.Language(lang); ok {
			p.pools[lang] = NewParserPool(grammar)
		}
	}
	return p
}

// Language returns the language id for path, or "" when unsupported.
func (p *Parser) Language(path string) string {
	return p.extensions[strings.ToLower(filepath.Ext(path))]
}

// Dialect returns the line-counting dialect for a language id.
func (p *Parser) Dialect(lang string) string {
	spec, ok := p.loader.registry[lang]
	if !ok || spec.Dialect == "" {
		return lang
	}
	return spec.Dialect
}

func (p *Parser) SupportedExtensions() []string {
	return util.SortedStringKeys(p.extensions)
}

// Parse builds the tree for one file. The language is chosen by extension.
// Syntax errors yield a PARSE_ERROR carrying the position of the first
// erroneous node.
func (p *Parser) Parse(ctx context.Context, path string, source []byte) (*ast.Node, error) {
	lang := p.Language(path)
	if lang == "" {
		return nil, errors.AddContext(errors.New(errors.CodeNotSupported, "unsupported language"), errors.CtxPath, path)
	}
	return p.ParseAs(ctx, lang, path, source)
}

// ParseAs is Parse with an explicit language id.
func (p *Parser) ParseAs(ctx context.Context, lang, path string, source []byte) (*ast.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if lang == LangESTree {
		root, err := ast.DecodeNode(bytes.NewReader(source))
		if err != nil {
			return nil, errors.AddContext(err, errors.CtxPath, path)
		}
		return root, nil
	}

	pool, ok := p.pools[lang]
	if !ok {
		return nil, errors.AddContext(
			errors.New(errors.CodeNotSupported, fmt.Sprintf("grammar not loaded: %s", lang)),
			errors.CtxPath, path,
		)
	}

	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse(source, nil)
	if tree == nil {
		return nil, errors.AddContext(errors.New(errors.CodeInternal, "parse failed"), errors.CtxPath, path)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		err := errors.New(errors.CodeParse, "syntax error")
		if bad := firstError(root); bad != nil {
			pos := bad.StartPosition()
			err = errors.AddContext(err, errors.CtxLine, int(pos.Row)+1)
			err = errors.AddContext(err, errors.CtxColumn, int(pos.Column)+1)
		}
		err = errors.AddContext(err, errors.CtxLanguage, lang)
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return Convert(root, source), nil
}

// firstError returns the first ERROR or MISSING node in document order.
func firstError(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.IsError() || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		if bad := firstError(n.Child(i)); bad != nil {
			return bad
		}
	}
	return nil
}
