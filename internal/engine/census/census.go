// Package census enumerates the node kinds present in a syntax tree.
package census

import (
	"regexp"
	"sort"

	"astcensus/internal/core/errors"
	"astcensus/internal/engine/ast"
)

// DefaultCommentPattern classifies comment-like kinds: Babel's CommentLine and
// CommentBlock, ESTree-style LineComment, tree-sitter's comment.
const DefaultCommentPattern = `(?i)comment`

var defaultComment = regexp.MustCompile(DefaultCommentPattern)

// Census collects node kinds. The zero value uses the generic traversal and
// the default comment pattern.
type Census struct {
	Schema  ast.Schema
	Comment *regexp.Regexp
}

// New builds a census with a custom comment pattern. An empty pattern keeps
// the default.
func New(schema ast.Schema, commentPattern string) (*Census, error) {
	c := &Census{Schema: schema}
	if commentPattern == "" {
		return c, nil
	}
	re, err := regexp.Compile(commentPattern)
	if err != nil {
		return nil, errors.AddContext(
			errors.Wrap(err, errors.CodeValidationError, "invalid comment pattern"),
			"pattern", commentPattern,
		)
	}
	c.Comment = re
	return c, nil
}

func (c *Census) comment() *regexp.Regexp {
	if c == nil || c.Comment == nil {
		return defaultComment
	}
	return c.Comment
}

func (c *Census) schema() ast.Schema {
	if c == nil {
		return nil
	}
	return c.Schema
}

// IsComment reports whether kind is excluded from the census.
func (c *Census) IsComment(kind string) bool {
	return c.comment().MatchString(kind)
}

// Search returns every object reachable from root that carries key with the
// given value, in pre-order. An empty key or value acts as a wildcard.
//
// With a key, no deduplication is applied: a node reachable through two
// fields is returned twice. With the key wildcarded, each object is returned
// at most once, by identity.
func (c *Census) Search(root ast.Value, key, value string) []*ast.Node {
	var out []*ast.Node
	var seen map[*ast.Node]struct{}
	if key == "" {
		seen = make(map[*ast.Node]struct{})
	}
	c.schema().Walk(root, func(n *ast.Node, _ string) bool {
		if !matches(n, key, value) {
			return true
		}
		if seen != nil {
			if _, dup := seen[n]; dup {
				return true
			}
			seen[n] = struct{}{}
		}
		out = append(out, n)
		return true
	})
	return out
}

// matches applies the key/value test to n. A key only matches when it holds
// a non-null scalar; object-valued fields are descended into instead.
func matches(n *ast.Node, key, value string) bool {
	if key != "" {
		v, ok := n.Get(key)
		if !ok {
			return false
		}
		s, ok := v.(ast.Scalar)
		if !ok || s.V == nil {
			return false
		}
		return value == "" || s.String() == value
	}
	if value == "" {
		return true
	}
	if n.Kind == value {
		return true
	}
	for _, f := range n.Fields {
		if s, ok := f.Value.(ast.Scalar); ok && s.String() == value {
			return true
		}
	}
	return false
}

// CollectTypes returns the type tag of every node reachable from root that
// bears one, parent before children, with comment kinds dropped. Tags that
// are empty or not strings are kept in their text form.
func (c *Census) CollectTypes(root ast.Value) []string {
	nodes := c.Search(root, "type", "")
	types := make([]string, 0, len(nodes))
	for _, n := range nodes {
		kind, _ := typeTag(n)
		if c.IsComment(kind) {
			continue
		}
		types = append(types, kind)
	}
	return types
}

// Count is len(CollectTypes(root)) without building the slice.
func (c *Census) Count(root ast.Value) int {
	count := 0
	c.schema().Walk(root, func(n *ast.Node, _ string) bool {
		if kind, ok := typeTag(n); ok && !c.IsComment(kind) {
			count++
		}
		return true
	})
	return count
}

// typeTag returns the kind of n, or the text of a scalar "type" field on an
// untyped object. A null or object-valued "type" is no tag.
func typeTag(n *ast.Node) (string, bool) {
	v, ok := n.Get("type")
	if !ok {
		return "", false
	}
	s, ok := v.(ast.Scalar)
	if !ok || s.V == nil {
		return "", false
	}
	return s.String(), true
}

// KindCount is one row of a Tally.
type KindCount struct {
	Kind  string
	Count int
}

// Tally groups a type sequence by kind, most frequent first, ties by name.
func Tally(types []string) []KindCount {
	counts := make(map[string]int)
	for _, t := range types {
		counts[t]++
	}
	out := make([]KindCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, KindCount{Kind: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// CollectTypes runs the default census.
func CollectTypes(root ast.Value) []string {
	return (*Census)(nil).CollectTypes(root)
}
