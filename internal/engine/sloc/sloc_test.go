package sloc

import (
	"strings"
	"testing"

	"astcensus/internal/core/errors"
)

func analyzeText(t *testing.T, dialect, content string) LineMetrics {
	t.Helper()
	d, ok := Lookup(dialect)
	if !ok {
		t.Fatalf("unknown dialect %s", dialect)
	}
	m, err := d.Analyze(strings.NewReader(content))
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	return m
}

func TestAnalyze(t *testing.T) {
	cases := []struct {
		name    string
		dialect string
		content string
		want    LineMetrics
	}{
		{
			name:    "GoInlineComment",
			dialect: "go",
			content: "package main\nfunc main() {\n    x := 1 // comment\n}\n",
			want:    LineMetrics{Total: 4, Code: 4, Comment: 1},
		},
		{
			name:    "GoCommentTokenInString",
			dialect: "go",
			content: "package main\nvar s = \"hello // world\"\n",
			want:    LineMetrics{Total: 2, Code: 2},
		},
		{
			name:    "GoRawStringSpansLines",
			dialect: "go",
			content: "var q = `a\\`\n// real\nvar r = `x\n// inside\n`\n",
			want:    LineMetrics{Total: 5, Code: 4, Comment: 1},
		},
		{
			name:    "JavaScriptBlockComment",
			dialect: "javascript",
			content: "/*\n * header\n */\n\nexport default 1; /* tail\n still */\n",
			want:    LineMetrics{Total: 6, Code: 1, Comment: 5, Blank: 1},
		},
		{
			name:    "JavaScriptTemplateLiteral",
			dialect: "javascript",
			content: "const t = `\n// inside\n`;\n",
			want:    LineMetrics{Total: 3, Code: 3},
		},
		{
			name:    "JavaScriptUnterminatedQuoteEndsAtLine",
			dialect: "javascript",
			content: "let a = 'oops\n// comment\n",
			want:    LineMetrics{Total: 2, Code: 1, Comment: 1},
		},
		{
			name:    "RustNestedBlockComment",
			dialect: "rust",
			content: "fn main() {\n    let x = 1; /* outer /* inner */ tail */\n}\n",
			want:    LineMetrics{Total: 3, Code: 3, Comment: 1},
		},
		{
			name:    "RustLifetimeIsNotAQuote",
			dialect: "rust",
			content: "fn f<'a>(x: &'a str) {} // c\n",
			want:    LineMetrics{Total: 1, Code: 1, Comment: 1},
		},
		{
			name:    "PythonDocstring",
			dialect: "python",
			content: "def f():\n    \"\"\"Doc\n    # still doc\n    \"\"\"\n    # real comment\n    return 1\n",
			want:    LineMetrics{Total: 6, Code: 5, Comment: 1},
		},
		{
			name:    "HTMLComment",
			dialect: "html",
			content: "<p>it's</p>\n<!-- a\nb -->\n",
			want:    LineMetrics{Total: 3, Code: 1, Comment: 2},
		},
		{
			name:    "CRLFAndNoTrailingNewline",
			dialect: "java",
			content: "class A {\r\n\r\n}",
			want:    LineMetrics{Total: 3, Code: 2, Blank: 1},
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := analyzeText(t, tc.dialect, tc.content); got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestCountSourceLines(t *testing.T) {
	src := []byte("import trigger from 'aexpr-trigger';\n\n// note\nexport default trigger;\n")
	n, err := CountSourceLines(src, "javascript")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 source lines, got %d", n)
	}

	if n, err := (Counter{}).CountSourceLines(nil, "typescript"); err != nil || n != 0 {
		t.Fatalf("expected empty input to count 0, got %d (%v)", n, err)
	}

	if _, err := CountSourceLines(src, "cobol"); !errors.IsCode(err, errors.CodeNotSupported) {
		t.Fatalf("expected NOT_SUPPORTED, got %v", err)
	}
}

func TestLineMetricsAdd(t *testing.T) {
	m := LineMetrics{Total: 1, Code: 1}
	m.Add(LineMetrics{Total: 2, Comment: 1, Blank: 1})
	if m != (LineMetrics{Total: 3, Code: 1, Comment: 1, Blank: 1}) {
		t.Fatalf("unexpected sum %+v", m)
	}
	if len(Dialects()) < 8 {
		t.Fatalf("expected built-in dialects, got %v", Dialects())
	}
}
