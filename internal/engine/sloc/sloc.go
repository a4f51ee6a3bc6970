// Package sloc counts source lines with small per-dialect state machines.
//
// Lines are read one at a time; block comments and multi-line strings carry
// their state across lines. A line can hold both code and a comment.
package sloc

import (
	"bufio"
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	"astcensus/internal/core/errors"
)

// LineMetrics classifies the lines of one file.
type LineMetrics struct {
	Total   int64 `json:"total"`
	Code    int64 `json:"code"`
	Comment int64 `json:"comment"`
	Blank   int64 `json:"blank"`
}

func (m *LineMetrics) Add(other LineMetrics) {
	m.Total += other.Total
	m.Code += other.Code
	m.Comment += other.Comment
	m.Blank += other.Blank
}

// Dialect describes the lexical features the counter needs.
type Dialect struct {
	Name         string
	LineComments []string
	BlockOpen    string
	BlockClose   string
	NestedBlocks bool
	// Quotes open strings. Multiline ones may span lines; Raw ones take no
	// escapes.
	Quotes       string
	Multiline    string
	Raw          string
	TripleQuotes bool
}

var dialects = map[string]Dialect{}

func register(d Dialect) { dialects[d.Name] = d }

// Lookup returns the named dialect.
func Lookup(name string) (Dialect, bool) {
	d, ok := dialects[strings.ToLower(name)]
	return d, ok
}

// Dialects lists the registered dialect names.
func Dialects() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Analyze streams r through the dialect's state machine.
func (d Dialect) Analyze(r io.Reader) (LineMetrics, error) {
	var metrics LineMetrics
	st := &state{d: d}
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if stderrors.Is(err, io.EOF) && len(line) == 0 {
			break
		}
		if err != nil && !stderrors.Is(err, io.EOF) {
			return metrics, err
		}

		current := normalizeLine(line)
		hasCode, hasComment := st.processLine(current)
		classify(&metrics, hasCode, hasComment)

		if stderrors.Is(err, io.EOF) {
			break
		}
	}
	return metrics, nil
}

// CountSourceLines returns the number of lines carrying code.
func CountSourceLines(source []byte, dialect string) (int, error) {
	d, ok := Lookup(dialect)
	if !ok {
		return 0, errors.AddContext(
			errors.New(errors.CodeNotSupported, fmt.Sprintf("no line counter for %q", dialect)),
			errors.CtxLanguage, dialect,
		)
	}
	m, err := d.Analyze(bytes.NewReader(source))
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeIO, "count lines")
	}
	return int(m.Code), nil
}

// Counter adapts CountSourceLines to a method set.
type Counter struct{}

func (Counter) CountSourceLines(source []byte, dialect string) (int, error) {
	return CountSourceLines(source, dialect)
}

func normalizeLine(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

func classify(m *LineMetrics, hasCode, hasComment bool) {
	m.Total++
	if hasCode {
		m.Code++
	}
	if hasComment {
		m.Comment++
	}
	if !hasCode && !hasComment {
		m.Blank++
	}
}

type state struct {
	d          Dialect
	blockDepth int
	quote      rune
	triple     bool
}

func (s *state) processLine(line string) (hasCode, hasComment bool) {
	d := s.d
	runes := []rune(line)
	if s.blockDepth > 0 {
		hasComment = true
	}
	if s.quote != 0 {
		hasCode = true
	}

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case s.blockDepth > 0:
			hasComment = true
			if d.NestedBlocks && hasPrefixAt(runes, i, d.BlockOpen) {
				s.blockDepth++
				i += len(d.BlockOpen)
				continue
			}
			if hasPrefixAt(runes, i, d.BlockClose) {
				s.blockDepth--
				i += len(d.BlockClose)
				continue
			}
			i++

		case s.quote != 0:
			hasCode = true
			if r == '\\' && !strings.ContainsRune(d.Raw, s.quote) && i+1 < len(runes) {
				i += 2
				continue
			}
			if s.triple {
				closing := strings.Repeat(string(s.quote), 3)
				if hasPrefixAt(runes, i, closing) {
					s.quote, s.triple = 0, false
					i += 3
					continue
				}
			} else if r == s.quote {
				s.quote = 0
			}
			i++

		case unicode.IsSpace(r):
			i++

		default:
			for _, lc := range d.LineComments {
				if hasPrefixAt(runes, i, lc) {
					return hasCode, true
				}
			}
			if d.BlockOpen != "" && hasPrefixAt(runes, i, d.BlockOpen) {
				hasComment = true
				s.blockDepth = 1
				i += len(d.BlockOpen)
				continue
			}
			hasCode = true
			if d.TripleQuotes && strings.ContainsRune(d.Quotes, r) && hasPrefixAt(runes, i, strings.Repeat(string(r), 3)) {
				s.quote, s.triple = r, true
				i += 3
				continue
			}
			if strings.ContainsRune(d.Quotes, r) {
				s.quote = r
			}
			i++
		}
	}

	// An unterminated single-line string ends with its line.
	if s.quote != 0 && !s.triple && !strings.ContainsRune(d.Multiline, s.quote) {
		s.quote = 0
	}
	return hasCode, hasComment
}

func hasPrefixAt(runes []rune, i int, prefix string) bool {
	if prefix == "" {
		return false
	}
	for _, p := range prefix {
		if i >= len(runes) || runes[i] != p {
			return false
		}
		i++
	}
	return true
}
