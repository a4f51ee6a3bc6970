package ast

import (
	"fmt"
	"strconv"
	"strings"

	"astcensus/internal/core/errors"
)

// Lookup resolves a dotted path such as "specifiers[0].local.name" against v.
// A missing field, an out-of-range index or a step into a scalar yields an
// UNKNOWN_NODE_SHAPE error.
func Lookup(v Value, path string) (Value, error) {
	steps, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	current := v
	for i, step := range steps {
		next, ok := stepInto(current, step)
		if !ok {
			return nil, errors.AddContext(
				errors.New(errors.CodeUnknownNodeShape, fmt.Sprintf("no %q at %q", step, strings.Join(steps[:i], "."))),
				errors.CtxPath, path,
			)
		}
		current = next
	}
	return current, nil
}

// LookupString is Lookup followed by a string conversion of the final scalar.
func LookupString(v Value, path string) (string, error) {
	got, err := Lookup(v, path)
	if err != nil {
		return "", err
	}
	s, ok := got.(Scalar)
	if !ok {
		return "", errors.AddContext(errors.New(errors.CodeUnknownNodeShape, "path does not end at a scalar"), errors.CtxPath, path)
	}
	return s.String(), nil
}

func stepInto(v Value, step string) (Value, bool) {
	switch x := v.(type) {
	case *Node:
		if x == nil {
			return nil, false
		}
		return x.Get(step)
	case List:
		idx, err := strconv.Atoi(step)
		if err != nil || idx < 0 || idx >= len(x) {
			return nil, false
		}
		return x[idx], true
	}
	return nil, false
}

// splitPath turns "a.b[0].c" into ["a", "b", "0", "c"].
func splitPath(path string) ([]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	var steps []string
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			return nil, errors.New(errors.CodeValidationError, fmt.Sprintf("empty segment in path %q", path))
		}
		for part != "" {
			open := strings.IndexByte(part, '[')
			if open < 0 {
				steps = append(steps, part)
				break
			}
			if open > 0 {
				steps = append(steps, part[:open])
			}
			end := strings.IndexByte(part[open:], ']')
			if end < 0 {
				return nil, errors.New(errors.CodeValidationError, fmt.Sprintf("unclosed index in path %q", path))
			}
			steps = append(steps, part[open+1:open+end])
			part = part[open+end+1:]
		}
	}
	return steps, nil
}

// JoinPath appends a field label to a node path.
func JoinPath(base, label string) string {
	if base == "" {
		return label
	}
	return base + "." + label
}

// IndexPath appends a list index to a node path.
func IndexPath(base string, i int) string {
	return base + "[" + strconv.Itoa(i) + "]"
}
