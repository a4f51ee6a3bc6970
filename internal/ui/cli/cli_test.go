package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const estreeDoc = `{"type":"File","program":{"type":"Program","body":[{"type":"Identifier","name":"x"}]}}`

func writeFixture(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func setupProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFixture(t, dir, "astcensus.toml", `
version = 1

[batch]
workers = 2

[[specs]]
name = "estree"
glob = "ast/*.json"

[[specs]]
name = "js"
glob = "src/*.js"

[history]
path = "state/history.db"
`)
	writeFixture(t, dir, "ast/a.json", estreeDoc)
	writeFixture(t, dir, "ast/b.json", estreeDoc)
	writeFixture(t, dir, "src/main.js", "// entry\nconst a = 1;\n\nexport default a;\n")
	return filepath.Join(dir, "astcensus.toml")
}

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := execute(t, "version")
	if code != exitOK || strings.TrimSpace(out) != "astcensus "+versionString {
		t.Fatalf("unexpected version output %d %q", code, out)
	}
}

func TestRunText(t *testing.T) {
	cfg := setupProject(t)
	code, out, errOut := execute(t, "--config", cfg, "run")
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d: %s", code, errOut)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two report lines, got %q", out)
	}
	if lines[0] != "estree 4[2]" {
		t.Fatalf("unexpected estree line %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "js ") || strings.Contains(lines[1], "ERROR") {
		t.Fatalf("unexpected js line %q", lines[1])
	}
}

func TestRunSelectedSpecsAndFormat(t *testing.T) {
	cfg := setupProject(t)
	report := filepath.Join(t.TempDir(), "report.tsv")
	code, out, errOut := execute(t, "--config", cfg, "run", "--format", "tsv", "--report-file", report, "estree")
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d: %s", code, errOut)
	}
	want := "Spec\tFiles\tNodes\tSLOC\tErrors\tFailed\nestree\t2\t4\t2\t0\tfalse\n"
	if out != want {
		t.Fatalf("unexpected tsv %q", out)
	}
	data, err := os.ReadFile(report)
	if err != nil || string(data) != want {
		t.Fatalf("expected report file to match stdout, got %q (%v)", data, err)
	}
}

func TestRunFailOnError(t *testing.T) {
	cfg := setupProject(t)
	writeFixture(t, filepath.Dir(cfg), "ast/broken.json", `{"type":`)

	code, out, _ := execute(t, "--config", cfg, "run", "estree")
	if code != exitOK || !strings.Contains(out, "estree 4[2] PARTIAL") {
		t.Fatalf("expected partial result with exit 0, got %d %q", code, out)
	}

	code, out, _ = execute(t, "--config", cfg, "run", "--policy", "fail-spec", "--fail-on-error", "estree")
	if code != exitSpecErrors || !strings.Contains(out, "estree 0[0] ERROR") {
		t.Fatalf("expected failed spec with exit 3, got %d %q", code, out)
	}
}

func TestRunHistory(t *testing.T) {
	cfg := setupProject(t)
	if code, _, errOut := execute(t, "--config", cfg, "run", "--history", "estree"); code != exitOK {
		t.Fatalf("first run failed: %s", errOut)
	}
	code, out, errOut := execute(t, "--config", cfg, "run", "--history", "estree")
	if code != exitOK {
		t.Fatalf("second run failed: %s", errOut)
	}
	if !strings.Contains(out, "since previous run:\nestree +0[+0]") {
		t.Fatalf("expected delta against previous run, got %q", out)
	}

	code, out, errOut = execute(t, "--config", cfg, "history", "--limit", "5")
	if code != exitOK {
		t.Fatalf("history failed: %s", errOut)
	}
	if strings.Count(out, "  estree 4[2]") != 2 {
		t.Fatalf("expected two recorded runs, got %q", out)
	}
}

func TestQueryWritesArtifact(t *testing.T) {
	cfg := setupProject(t)
	artifact := filepath.Join(t.TempDir(), "res.ast")
	code, out, errOut := execute(t, "--config", cfg, "query",
		"--file", "ast/a.json",
		"--expr", `node.type == "Identifier" && node.name == "x"`,
		"--artifact", artifact,
	)
	if code != exitOK {
		t.Fatalf("query failed %d: %s", code, errOut)
	}
	if !strings.Contains(out, "Identifier") || !strings.Contains(out, "written "+artifact) {
		t.Fatalf("unexpected query output %q", out)
	}
	data, err := os.ReadFile(artifact)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"Identifier"`) {
		t.Fatalf("artifact does not hold the matched node: %s", data)
	}
}

func TestCensusAndLanguages(t *testing.T) {
	cfg := setupProject(t)
	code, out, errOut := execute(t, "--config", cfg, "census", "ast/a.json")
	if code != exitOK {
		t.Fatalf("census failed: %s", errOut)
	}
	if !strings.Contains(out, "1 Identifier") || !strings.Contains(out, "2 total") {
		t.Fatalf("unexpected tally %q", out)
	}

	code, out, _ = execute(t, "--config", cfg, "languages")
	if code != exitOK || !strings.Contains(out, "javascript") || !strings.Contains(out, ".js") {
		t.Fatalf("unexpected languages output %q", out)
	}
}

func TestUsageErrors(t *testing.T) {
	cfg := setupProject(t)
	cases := [][]string{
		{"run", "--no-such-flag"},
		{"--config", cfg, "run", "missing-spec"},
		{"--config", cfg, "run", "--format", "xml"},
		{"--config", cfg, "query", "--file", "ast/a.json"},
		{"census"},
	}
	for _, args := range cases {
		if code, _, _ := execute(t, args...); code != exitUsage {
			t.Errorf("%v: expected exit %d, got %d", args, exitUsage, code)
		}
	}
}

func TestMissingConfig(t *testing.T) {
	code, _, errOut := execute(t, "--config", filepath.Join(t.TempDir(), "nope.toml"), "run")
	if code != exitFailure || !strings.Contains(errOut, "IO_ERROR") {
		t.Fatalf("expected IO failure, got %d %q", code, errOut)
	}
}
