package matcher

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"astcensus/internal/core/errors"
	"astcensus/internal/engine/ast"
)

// Expression is a compiled predicate source such as
//
//	node.type == "MethodDefinition" && node.key.name == "activeWhile"
//
// The current node is bound to `node`; fields read like JSON properties.
type Expression struct {
	source  string
	program *vm.Program
}

// Compile parses and type-checks src. An empty source compiles to nil, which
// callers treat as the constant-true predicate.
func Compile(src string) (*Expression, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, nil
	}
	program, err := expr.Compile(src, expr.AsBool())
	if err != nil {
		return nil, errors.AddContext(
			errors.Wrap(err, errors.CodeValidationError, "invalid predicate expression"),
			"expression", src,
		)
	}
	return &Expression{source: src, program: program}, nil
}

// MustCompile is Compile that panics; for package-level predicates.
func MustCompile(src string) *Expression {
	e, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Expression) String() string {
	if e == nil {
		return ""
	}
	return e.source
}

// Predicate returns a fresh predicate bound to this expression. Each call gets
// its own conversion cache, so use one predicate per tree and per goroutine.
func (e *Expression) Predicate() Predicate {
	if e == nil {
		return nil
	}
	cache := make(map[*ast.Node]map[string]any)
	return func(n *ast.Node) (bool, error) {
		out, err := expr.Run(e.program, map[string]any{"node": plainNode(n, cache)})
		if err != nil {
			return false, errors.Wrap(err, errors.CodeEvaluation, "evaluate expression")
		}
		b, ok := out.(bool)
		if !ok {
			return false, errors.New(errors.CodeEvaluation, fmt.Sprintf("expression returned %T", out))
		}
		return b, nil
	}
}

// plainNode converts a node to nested maps and slices, sharing the converted
// form of sub-trees already seen.
func plainNode(n *ast.Node, cache map[*ast.Node]map[string]any) map[string]any {
	if n == nil {
		return nil
	}
	if m, ok := cache[n]; ok {
		return m
	}
	m := make(map[string]any, len(n.Fields)+1)
	if n.Kind != "" {
		m["type"] = n.Kind
	}
	for _, f := range n.Fields {
		m[f.Key] = plainValue(f.Value, cache)
	}
	cache[n] = m
	return m
}

func plainValue(v ast.Value, cache map[*ast.Node]map[string]any) any {
	switch x := v.(type) {
	case ast.Scalar:
		return x.V
	case *ast.Node:
		if x == nil {
			return nil
		}
		return plainNode(x, cache)
	case ast.List:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = plainValue(item, cache)
		}
		return out
	}
	return nil
}
