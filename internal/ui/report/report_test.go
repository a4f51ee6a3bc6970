package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"astcensus/internal/core/errors"
	"astcensus/internal/core/ports"
	"astcensus/internal/data/history"
	"astcensus/internal/engine/ast"
	"astcensus/internal/engine/census"
)

func sampleResults() []ports.AggregateResult {
	parseErr := errors.AddContext(errors.New(errors.CodeParse, "syntax error"), errors.CtxPath, "b.js")
	return []ports.AggregateResult{
		{
			Name: "roq plain", Glob: "src/**/*.js", TotalNodeCount: 8, TotalSourceLines: 30,
			Files: []ports.FileResult{
				{Path: "a.js", Language: "javascript", NodeCount: 3, SourceLines: 10, Scoped: true},
				{Path: "c.js", Language: "javascript", NodeCount: 5, SourceLines: 20, Scoped: true},
			},
		},
		{
			Name: "roq aexpr", Glob: "src/*.js", TotalNodeCount: 4, TotalSourceLines: 7,
			Files: []ports.FileResult{
				{Path: "ok.js", NodeCount: 4, SourceLines: 7, Scoped: true},
				{Path: "b.js", Err: parseErr},
			},
			Errors: []error{parseErr},
		},
		{
			Name: "ContextJS", Glob: "[bad", Failed: true,
			Errors: []error{errors.New(errors.CodeDiscovery, "invalid glob pattern")},
		},
	}
}

func TestRenderText(t *testing.T) {
	got := string(RenderText(sampleResults()))
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %q", got)
	}
	if lines[0] != "roq plain 8[30]" {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if lines[1] != "roq aexpr 4[7] PARTIAL: [PARSE_ERROR] syntax error (path=b.js)" {
		t.Fatalf("unexpected partial line %q", lines[1])
	}
	if lines[2] != "ContextJS 0[0] ERROR: [DISCOVERY_ERROR] invalid glob pattern" {
		t.Fatalf("unexpected failed line %q", lines[2])
	}
}

func TestRenderTable(t *testing.T) {
	got := string(RenderTable(sampleResults()))
	for _, want := range []string{"Spec", "SLOC", "roq plain", "30", "PARTIAL", "ERROR"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in table:\n%s", want, got)
		}
	}
}

func TestRenderJSON(t *testing.T) {
	data, err := RenderJSON(sampleResults())
	if err != nil {
		t.Fatal(err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(decoded) != 3 || decoded[0]["total_node_count"].(float64) != 8 {
		t.Fatalf("unexpected json %s", data)
	}
	files := decoded[1]["files"].([]any)
	if files[1].(map[string]any)["error_code"] != string(errors.CodeParse) {
		t.Fatalf("expected error code on failed file, got %v", files[1])
	}
}

func TestRenderTSV(t *testing.T) {
	got := string(RenderTSV([]ports.AggregateResult{{Name: "tab\tname", TotalNodeCount: 1, TotalSourceLines: 2}}))
	want := "Spec\tFiles\tNodes\tSLOC\tErrors\tFailed\ntab name\t0\t1\t2\t0\tfalse\n"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	if _, err := Render("xml", nil); !errors.IsCode(err, errors.CodeNotSupported) {
		t.Fatalf("expected NOT_SUPPORTED, got %v", err)
	}
}

func TestWriterWritesStdoutAndFile(t *testing.T) {
	var out bytes.Buffer
	file := filepath.Join(t.TempDir(), "reports", "run.tsv")
	w := &Writer{Out: &out, Format: "tsv", File: file}
	if err := w.Report(sampleResults()[:1]); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if out.String() != string(data) || !strings.Contains(out.String(), "roq plain\t2\t8\t30") {
		t.Fatalf("unexpected output %q / %q", out.String(), data)
	}
}

func TestArtifactWriter(t *testing.T) {
	dir := t.TempDir()
	node := ast.New("ImportDeclaration",
		ast.F("specifiers", ast.List{ast.New("ImportSpecifier", ast.F("local", ast.New("Identifier", ast.F("name", ast.Str("trigger")))))}),
		ast.F("source", ast.New("Literal", ast.F("value", ast.Str("aexpr")))),
	)
	if err := (ArtifactWriter{Dir: dir}).WriteArtifact("out/res.ast", node); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(filepath.Join(dir, "out", "res.ast"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	back, err := ast.DecodeNode(f)
	if err != nil {
		t.Fatal(err)
	}
	if !ast.Equal(node, back) {
		t.Fatal("artifact does not decode to the written sub-tree")
	}
}

func TestRenderQueryAndTally(t *testing.T) {
	q := string(RenderQuery(ports.QueryResult{
		Path: "select.js", MatchKind: "import_statement", MatchPath: "children[0]",
		Types: []string{"import_statement", "identifier"}, NodeCount: 2, Artifact: "res.ast",
	}))
	if !strings.Contains(q, "import_statement at children[0]") || !strings.Contains(q, "[import_statement, identifier] 2") {
		t.Fatalf("unexpected query output %q", q)
	}

	tally := string(RenderTally([]census.KindCount{{Kind: "identifier", Count: 3}, {Kind: "program", Count: 1}}))
	if !strings.HasSuffix(tally, "      4 total\n") {
		t.Fatalf("unexpected tally %q", tally)
	}
}

func TestRenderHistory(t *testing.T) {
	deltas := string(RenderDeltas([]history.Delta{
		{Name: "a", Previous: true, Nodes: 4, SourceLines: -1},
		{Name: "b"},
	}))
	if deltas != "a +4[-1]\nb new\n" {
		t.Fatalf("unexpected deltas %q", deltas)
	}

	runs := string(RenderRuns([]history.Run{{
		ID: "r1", StartedAt: time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC), Duration: time.Second,
		Specs: []history.SpecTotal{{Name: "a", Nodes: 2, SourceLines: 1, Errors: 1}},
	}}))
	if !strings.Contains(runs, "2026-02-13T10:00:00Z r1 (1s)") || !strings.Contains(runs, "  a 2[1] errors=1") {
		t.Fatalf("unexpected runs %q", runs)
	}
}
