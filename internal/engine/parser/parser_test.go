package parser

import (
	"context"
	"strings"
	"testing"

	"astcensus/internal/core/errors"
	"astcensus/internal/engine/ast"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	loader, err := NewGrammarLoader(nil)
	if err != nil {
		t.Fatalf("loader: %v", err)
	}
	return NewParser(loader)
}

func TestParseJavaScript(t *testing.T) {
	p := newTestParser(t)
	src := "import trigger from 'aexpr-trigger';\n// keep\na + b;\n"

	root, err := p.Parse(context.Background(), "select.js", []byte(src))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if root.Kind != "program" {
		t.Fatalf("expected program root, got %q", root.Kind)
	}

	children, ok := root.Get("children")
	if !ok {
		t.Fatal("expected unnamed statements under children")
	}
	kinds := make([]string, 0)
	for _, c := range children.(ast.List) {
		kinds = append(kinds, c.(*ast.Node).Kind)
	}
	if got := strings.Join(kinds, ","); got != "import_statement,comment,expression_statement" {
		t.Fatalf("unexpected statements %s", got)
	}

	bin, err := ast.Lookup(root, "children[2].children[0]")
	if err != nil {
		t.Fatalf("lookup binary expression: %v", err)
	}
	n := bin.(*ast.Node)
	if n.Kind != "binary_expression" {
		t.Fatalf("expected binary_expression, got %q", n.Kind)
	}
	if op, _ := n.Text("operator"); op != "+" {
		t.Fatalf("expected operator field +, got %q", op)
	}
	if left, _ := ast.LookupString(n, "left.text"); left != "a" {
		t.Fatalf("expected left identifier a, got %q", left)
	}
	if start, _ := ast.LookupString(n, "start"); start != "45" {
		t.Fatalf("expected byte offset 45, got %s", start)
	}
}

func TestParseGoFieldNames(t *testing.T) {
	p := newTestParser(t)
	src := "package main\n\nfunc f() {}\n"
	root, err := p.Parse(context.Background(), "main.go", []byte(src))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if root.Kind != "source_file" {
		t.Fatalf("expected source_file, got %q", root.Kind)
	}
	if name, err := ast.LookupString(root, "children[1].name.text"); err != nil || name != "f" {
		t.Fatalf("expected function name f, got %q (%v)", name, err)
	}
}

func TestParseSyntaxError(t *testing.T) {
	p := newTestParser(t)
	_, err := p.Parse(context.Background(), "broken.js", []byte("let ok = 1;\nconst = ;\n"))
	if !errors.IsCode(err, errors.CodeParse) {
		t.Fatalf("expected PARSE_ERROR, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "path=broken.js") || !strings.Contains(msg, "line=2") {
		t.Fatalf("expected location context, got %s", msg)
	}
}

func TestParseESTreeJSON(t *testing.T) {
	p := newTestParser(t)
	src := `{"type":"File","program":{"type":"Program","body":[{"type":"Identifier","name":"x"}]}}`
	root, err := p.Parse(context.Background(), "select.ast.json", []byte(src))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if root.Kind != "Program" {
		t.Fatalf("expected Program, got %q", root.Kind)
	}
	if _, err := p.Parse(context.Background(), "bad.json", []byte(`{"type":`)); !errors.IsCode(err, errors.CodeParse) {
		t.Fatalf("expected PARSE_ERROR for malformed json, got %v", err)
	}
}

func TestParseUnsupportedAndCancelled(t *testing.T) {
	p := newTestParser(t)
	if _, err := p.Parse(context.Background(), "notes.txt", []byte("hi")); !errors.IsCode(err, errors.CodeNotSupported) {
		t.Fatalf("expected NOT_SUPPORTED, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Parse(ctx, "a.js", []byte("a;")); err == nil {
		t.Fatal("expected cancelled context to abort")
	}
}

func TestLanguageAndDialect(t *testing.T) {
	p := newTestParser(t)
	cases := map[string]string{
		"a.js":       "javascript",
		"A.MJS":      "javascript",
		"b.tsx":      "tsx",
		"c.py":       "python",
		"tree.json":  LangESTree,
		"README.md":  "",
		"lib/mod.rs": "rust",
	}
	for path, want := range cases {
		if got := p.Language(path); got != want {
			t.Errorf("%s: expected %q, got %q", path, want, got)
		}
	}
	if got := p.Dialect("tsx"); got != "typescript" {
		t.Fatalf("expected tsx to count as typescript, got %q", got)
	}
}

func TestBuildLanguageRegistry(t *testing.T) {
	registry, err := BuildLanguageRegistry(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !registry["javascript"].Enabled {
		t.Fatal("expected javascript to be enabled by default")
	}

	disabled := false
	registry, err = BuildLanguageRegistry(map[string]LanguageOverride{"html": {Enabled: &disabled}})
	if err != nil {
		t.Fatal(err)
	}
	if registry["html"].Enabled {
		t.Fatal("expected html override to disable it")
	}

	if _, err := BuildLanguageRegistry(map[string]LanguageOverride{
		"typescript": {Extensions: []string{"js"}},
	}); err == nil {
		t.Fatal("expected duplicate extension validation error")
	}
	if _, err := BuildLanguageRegistry(map[string]LanguageOverride{
		"kotlin": {Extensions: []string{".kt"}},
	}); err == nil {
		t.Fatal("expected unknown language override error")
	}
}

func TestDisabledLanguageIsUnsupported(t *testing.T) {
	disabled := false
	registry, err := BuildLanguageRegistry(map[string]LanguageOverride{"python": {Enabled: &disabled}})
	if err != nil {
		t.Fatal(err)
	}
	loader, err := NewGrammarLoader(registry)
	if err != nil {
		t.Fatal(err)
	}
	p := NewParser(loader)
	if p.Language("x.py") != "" {
		t.Fatal("expected disabled python to be unsupported")
	}
	for _, ext := range loader.SupportedExtensions() {
		if ext == ".py" {
			t.Fatal("expected .py to be absent from supported extensions")
		}
	}
}

func TestAddFieldCollapsesRepeats(t *testing.T) {
	n := ast.New("decorated")
	repeated := map[string]int{}
	addField(n, repeated, "decorator", ast.New("a"))
	addField(n, repeated, "body", ast.New("b"))
	addField(n, repeated, "decorator", ast.New("c"))
	addField(n, repeated, "decorator", ast.New("d"))

	if len(n.Fields) != 2 || n.Fields[0].Key != "decorator" {
		t.Fatalf("expected decorator then body, got %+v", n.Fields)
	}
	list, ok := n.Fields[0].Value.(ast.List)
	if !ok || len(list) != 3 {
		t.Fatalf("expected three decorators, got %#v", n.Fields[0].Value)
	}
}
