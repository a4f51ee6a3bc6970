// Package matcher finds the first sub-tree satisfying a predicate.
package matcher

import (
	"fmt"

	"astcensus/internal/core/errors"
	"astcensus/internal/engine/ast"
)

// Verdict is the outcome of evaluating a predicate at one node.
type Verdict int

const (
	Rejected Verdict = iota
	Matched
	Failed
)

func (v Verdict) String() string {
	switch v {
	case Matched:
		return "matched"
	case Failed:
		return "failed"
	default:
		return "rejected"
	}
}

// Predicate tests a single node. Predicates may assume shape freely: an error
// or a panic is reported as Failed and treated as no match.
type Predicate func(n *ast.Node) (bool, error)

// Result is one predicate evaluation.
type Result struct {
	Verdict Verdict
	Err     error
}

// Always matches every node.
func Always(*ast.Node) (bool, error) { return true, nil }

// KindIs matches nodes whose type tag equals kind.
func KindIs(kind string) Predicate {
	return func(n *ast.Node) (bool, error) {
		return n.Kind == kind, nil
	}
}

// FieldEquals matches nodes where the dotted path resolves to a scalar equal
// to want. Missing intermediate fields fail the evaluation.
func FieldEquals(path, want string) Predicate {
	return func(n *ast.Node) (bool, error) {
		got, err := ast.LookupString(n, path)
		if err != nil {
			return false, err
		}
		return got == want, nil
	}
}

// All matches when every predicate matches. The first failure fails the whole.
func All(preds ...Predicate) Predicate {
	return func(n *ast.Node) (bool, error) {
		for _, p := range preds {
			ok, err := p(n)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
}

// Evaluate runs p against n and classifies the outcome.
func Evaluate(p Predicate, n *ast.Node) (res Result) {
	if p == nil {
		return Result{Verdict: Matched}
	}
	defer func() {
		if r := recover(); r != nil {
			res = Result{
				Verdict: Failed,
				Err:     errors.New(errors.CodeEvaluation, fmt.Sprintf("predicate panicked: %v", r)),
			}
		}
	}()
	ok, err := p(n)
	switch {
	case err != nil:
		if !errors.IsCode(err, errors.CodeEvaluation) && !errors.IsCode(err, errors.CodeUnknownNodeShape) {
			err = errors.Wrap(err, errors.CodeEvaluation, "predicate failed")
		}
		return Result{Verdict: Failed, Err: err}
	case ok:
		return Result{Verdict: Matched}
	default:
		return Result{Verdict: Rejected}
	}
}

// Match is a located sub-tree. Path is relative to the search root.
type Match struct {
	Node *ast.Node
	Path string
}

// Finder carries traversal options for FindFirst.
type Finder struct {
	// Schema selects children per node kind; nil uses every object-valued field.
	Schema ast.Schema
	// OnFailure observes swallowed predicate failures.
	OnFailure func(path string, err error)
}

// FindFirst returns the first node in pre-order, children left to right, for
// which p matches. ok is false when nothing matches. A nil p matches root.
func (f Finder) FindFirst(root ast.Value, p Predicate) (Match, bool) {
	var found Match
	matched := false
	f.Schema.Walk(root, func(n *ast.Node, path string) bool {
		res := Evaluate(p, n)
		switch res.Verdict {
		case Matched:
			found = Match{Node: n, Path: path}
			matched = true
			return false
		case Failed:
			if f.OnFailure != nil {
				f.OnFailure(path, res.Err)
			}
		}
		return true
	})
	return found, matched
}

// FindFirst searches with the generic traversal.
func FindFirst(root ast.Value, p Predicate) (Match, bool) {
	return Finder{}.FindFirst(root, p)
}

// Stats counts verdicts over a whole tree; useful when debugging a predicate.
type Stats struct {
	Matched  int
	Rejected int
	Failed   int
}

// Survey evaluates p at every node without short-circuiting.
func (f Finder) Survey(root ast.Value, p Predicate) Stats {
	var s Stats
	f.Schema.Walk(root, func(n *ast.Node, _ string) bool {
		switch Evaluate(p, n).Verdict {
		case Matched:
			s.Matched++
		case Failed:
			s.Failed++
		default:
			s.Rejected++
		}
		return true
	})
	return s
}
