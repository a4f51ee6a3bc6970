package app

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"astcensus/internal/core/config"
)

// program writes an ESTree Program with ids Identifier children, a census of
// ids+1 nodes.
func program(t *testing.T, path string, ids int) {
	t.Helper()
	body := make([]string, ids)
	for i := range body {
		body[i] = `{"type":"Identifier","name":"v"}`
	}
	src := `{"type":"Program","body":[` + strings.Join(body, ",") + `]}`
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatchRerunsOnRelevantChanges(t *testing.T) {
	dir := t.TempDir()
	program(t, filepath.Join(dir, "ast", "a.json"), 1)

	cfg := config.Default()
	cfg.Dir = dir
	cfg.Batch.Workers = 2
	cfg.Watch.Debounce = 50 * time.Millisecond
	a, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	reports := make(chan AggregateResult, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- a.Watch(ctx, []config.Spec{{Name: "ast", Glob: "ast/**/*.json"}}, func(results []AggregateResult, err error) {
			if err == nil && len(results) == 1 {
				reports <- results[0]
			}
		})
	}()
	stop := func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("expected watch to stop cleanly, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("watch did not stop")
		}
	}
	defer func() {
		if ctx.Err() == nil {
			stop()
		}
	}()

	// A write can surface as several events, so wait for the settled totals.
	await := func(nodes, files int) {
		t.Helper()
		timeout := time.After(10 * time.Second)
		for {
			select {
			case r := <-reports:
				if r.TotalNodeCount == nodes && r.FileCount() == files {
					return
				}
			case <-timeout:
				t.Fatalf("timed out waiting for %d nodes in %d files", nodes, files)
			}
		}
	}
	quiet := func(d time.Duration) {
		t.Helper()
		time.Sleep(d)
		for {
			select {
			case <-reports:
			default:
				return
			}
		}
	}

	await(2, 1)

	program(t, filepath.Join(dir, "ast", "sub", "b.json"), 2)
	await(5, 2)

	quiet(300 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "ast", "skip.js"), []byte("x;\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	select {
	case r := <-reports:
		t.Fatalf("expected a file no spec selects to be ignored, got a rerun %+v", r)
	default:
	}

	program(t, filepath.Join(dir, "ast", "a.json"), 3)
	await(7, 2)

	stop()
}

func TestWatchRoots(t *testing.T) {
	dir := t.TempDir()
	program(t, filepath.Join(dir, "ast", "a.json"), 1)
	astDir := filepath.Join(dir, "ast")

	tests := []struct {
		name  string
		globs []string
		want  []string
	}{
		{name: "glob base", globs: []string{"ast/**/*.json"}, want: []string{astDir}},
		{name: "file glob", globs: []string{"ast/a.json"}, want: []string{astDir}},
		{name: "missing base", globs: []string{"missing/deeper/*.js"}, want: []string{dir}},
		{name: "duplicates", globs: []string{"ast/*.json", "ast/**/*.json", "ast/a.json"}, want: []string{astDir}},
		{name: "several roots", globs: []string{"ast/*.json", "*.js"}, want: []string{dir, astDir}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Dir = dir
			a := &App{Config: cfg}
			var specs []config.Spec
			for _, g := range tt.globs {
				specs = append(specs, config.Spec{Name: g, Glob: g})
			}
			if got := a.watchRoots(specs); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestExistingDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.json")
	if err := os.WriteFile(file, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, tt := range []struct{ in, want string }{
		{dir, dir},
		{file, dir},
		{filepath.Join(dir, "x", "y", "z"), dir},
	} {
		if got := existingDir(tt.in); got != tt.want {
			t.Fatalf("existingDir(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

type prefixMatcher struct{ fakeFiles }

func (prefixMatcher) Match(pattern, file string) bool {
	return strings.HasPrefix(file, strings.TrimSuffix(pattern, "*"))
}

func TestRelevantChanges(t *testing.T) {
	specs := []config.Spec{{Name: "src", Glob: "src/*"}, {Name: "lib", Glob: "lib/*"}}
	paths := []string{"src/a.js", "docs/b.md", "lib/c.js"}

	a := &App{Files: prefixMatcher{}}
	if got := a.relevantChanges(specs, paths); !reflect.DeepEqual(got, []string{"src/a.js", "lib/c.js"}) {
		t.Fatalf("expected only selected paths, got %v", got)
	}

	a = &App{Files: fakeFiles{}}
	if got := a.relevantChanges(specs, paths); !reflect.DeepEqual(got, paths) {
		t.Fatalf("expected every path without a matcher, got %v", got)
	}
}
