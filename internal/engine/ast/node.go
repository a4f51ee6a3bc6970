// Package ast holds the language-neutral syntax tree the matcher and census
// operate on. Trees come from the tree-sitter adapter or from ESTree JSON.
package ast

import (
	"strconv"
)

// Value is one of Scalar, *Node or List.
type Value interface {
	value()
}

// Scalar is a primitive field value: string, float64, bool or nil.
type Scalar struct {
	V any
}

// List is a sequence of values.
type List []Value

// Field is one named entry of a Node, kept in source order.
type Field struct {
	Key   string
	Value Value
}

// Node is an object in the tree. Kind is its "type" tag and is empty for
// plain mappings such as location records. The tag is not repeated in Fields.
type Node struct {
	Kind   string
	Fields []Field
}

func (Scalar) value() {}
func (List) value()   {}
func (*Node) value()  {}

func New(kind string, fields ...Field) *Node {
	return &Node{Kind: kind, Fields: fields}
}

func F(key string, v Value) Field {
	return Field{Key: key, Value: v}
}

func Str(s string) Scalar  { return Scalar{V: s} }
func Num(f float64) Scalar { return Scalar{V: f} }
func Bool(b bool) Scalar   { return Scalar{V: b} }
func Null() Scalar         { return Scalar{} }

func (n *Node) IsTyped() bool { return n != nil && n.Kind != "" }

// String renders the scalar the way loose equality in the census compares it.
func (s Scalar) String() string {
	switch v := s.V.(type) {
	case nil:
		return "null"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

// Get returns the named field. "type" resolves to the kind of typed nodes.
func (n *Node) Get(key string) (Value, bool) {
	if n == nil {
		return nil, false
	}
	if key == "type" && n.Kind != "" {
		return Str(n.Kind), true
	}
	for _, f := range n.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Child returns the named field when it holds a node.
func (n *Node) Child(key string) (*Node, bool) {
	v, ok := n.Get(key)
	if !ok {
		return nil, false
	}
	child, ok := v.(*Node)
	return child, ok && child != nil
}

// Text returns the named field when it holds a string scalar.
func (n *Node) Text(key string) (string, bool) {
	v, ok := n.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(Scalar)
	if !ok {
		return "", false
	}
	str, ok := s.V.(string)
	return str, ok
}

// Set replaces the named field or appends it.
func (n *Node) Set(key string, v Value) {
	for i := range n.Fields {
		if n.Fields[i].Key == key {
			n.Fields[i].Value = v
			return
		}
	}
	n.Fields = append(n.Fields, Field{Key: key, Value: v})
}

// Equal reports deep structural equality.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case Scalar:
		y, ok := b.(Scalar)
		return ok && x.V == y.V
	case List:
		y, ok := b.(List)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case *Node:
		y, ok := b.(*Node)
		if !ok {
			return false
		}
		if x == nil || y == nil {
			return x == y
		}
		if x.Kind != y.Kind || len(x.Fields) != len(y.Fields) {
			return false
		}
		for i := range x.Fields {
			if x.Fields[i].Key != y.Fields[i].Key || !Equal(x.Fields[i].Value, y.Fields[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// Clone returns a deep copy. Shared sub-trees become distinct copies.
func Clone(v Value) Value {
	switch x := v.(type) {
	case List:
		out := make(List, len(x))
		for i := range x {
			out[i] = Clone(x[i])
		}
		return out
	case *Node:
		if x == nil {
			return x
		}
		out := &Node{Kind: x.Kind, Fields: make([]Field, len(x.Fields))}
		for i, f := range x.Fields {
			out.Fields[i] = Field{Key: f.Key, Value: Clone(f.Value)}
		}
		return out
	}
	return v
}
