package ast

// Child is one object-valued edge out of a node.
type Child struct {
	Label string
	Value Value
}

// ChildFunc lists the object-valued children of a node in visit order.
type ChildFunc func(n *Node) []Child

// Schema maps node kinds to explicit child accessors. Kinds without an entry,
// and untyped mappings, use GenericChildren.
type Schema map[string]ChildFunc

// Children returns the children of n in visit order.
func (s Schema) Children(n *Node) []Child {
	if n == nil {
		return nil
	}
	if fn, ok := s[n.Kind]; ok && n.Kind != "" {
		return fn(n)
	}
	return GenericChildren(n)
}

// GenericChildren returns every field holding a node or a list, in field order.
func GenericChildren(n *Node) []Child {
	var out []Child
	for _, f := range n.Fields {
		switch v := f.Value.(type) {
		case *Node:
			if v != nil {
				out = append(out, Child{Label: f.Key, Value: v})
			}
		case List:
			out = append(out, Child{Label: f.Key, Value: v})
		}
	}
	return out
}

// FieldsOf builds an accessor that only descends into the named fields, in
// the given order. Missing or scalar fields are skipped.
func FieldsOf(names ...string) ChildFunc {
	return func(n *Node) []Child {
		out := make([]Child, 0, len(names))
		for _, name := range names {
			v, ok := n.Get(name)
			if !ok {
				continue
			}
			switch v.(type) {
			case *Node, List:
				out = append(out, Child{Label: name, Value: v})
			}
		}
		return out
	}
}

// Visitor is called for each node with its path from the walk root. Returning
// false stops the walk.
type Visitor func(n *Node, path string) bool

// Walk visits every node reachable from root in pre-order, children left to
// right. It reports whether the walk ran to completion.
func (s Schema) Walk(root Value, visit Visitor) bool {
	return s.walk(root, "", visit)
}

// Walk is Schema.Walk with the generic accessor for every kind.
func Walk(root Value, visit Visitor) bool {
	return Schema(nil).Walk(root, visit)
}

func (s Schema) walk(v Value, path string, visit Visitor) bool {
	switch x := v.(type) {
	case *Node:
		if x == nil {
			return true
		}
		if !visit(x, path) {
			return false
		}
		for _, c := range s.Children(x) {
			if !s.walk(c.Value, JoinPath(path, c.Label), visit) {
				return false
			}
		}
	case List:
		for i, item := range x {
			if !s.walk(item, IndexPath(path, i), visit) {
				return false
			}
		}
	}
	return true
}
