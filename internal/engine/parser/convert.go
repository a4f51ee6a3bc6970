package parser

import (
	"astcensus/internal/engine/ast"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Convert copies a tree-sitter tree into an ast tree.
//
// Each named node becomes a typed ast.Node of its grammar kind with "start"
// and "end" byte offsets. Children attached to a grammar field become that
// field, a list when the field repeats. Named children without a field are
// collected under "children". Anonymous tokens are dropped unless they sit
// in a field (operators), where they become the token text. Leaves carry
// their source under "text". Grammar fields that collide with those names
// get a trailing underscore.
func Convert(n *sitter.Node, source []byte) *ast.Node {
	out := ast.New(n.Kind(),
		ast.F("start", ast.Num(float64(n.StartByte()))),
		ast.F("end", ast.Num(float64(n.EndByte()))),
	)

	var children ast.List
	childrenAt := -1
	repeated := make(map[string]int)
	named := 0

	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		field := n.FieldNameForChild(uint32(i))
		if reserved[field] {
			field += "_"
		}
		if !child.IsNamed() {
			if field != "" {
				addField(out, repeated, field, ast.Str(child.Kind()))
			}
			continue
		}
		named++
		converted := Convert(child, source)
		if field == "" {
			if childrenAt < 0 {
				childrenAt = len(out.Fields)
				out.Fields = append(out.Fields, ast.F("children", nil))
			}
			children = append(children, converted)
			continue
		}
		addField(out, repeated, field, converted)
	}

	if childrenAt >= 0 {
		out.Fields[childrenAt].Value = children
	}
	if named == 0 {
		out.Fields = append(out.Fields, ast.F("text", ast.Str(n.Utf8Text(source))))
	}
	return out
}

var reserved = map[string]bool{"type": true, "start": true, "end": true, "children": true, "text": true}

func addField(n *ast.Node, repeated map[string]int, field string, v ast.Value) {
	idx, seen := repeated[field]
	if !seen {
		repeated[field] = len(n.Fields)
		n.Fields = append(n.Fields, ast.F(field, v))
		return
	}
	switch cur := n.Fields[idx].Value.(type) {
	case ast.List:
		n.Fields[idx].Value = append(cur, v)
	default:
		n.Fields[idx].Value = ast.List{cur, v}
	}
}
