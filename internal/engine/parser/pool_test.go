package parser

import (
	"sync"
	"testing"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
)

func javascriptLanguage() *sitter.Language {
	return sitter.NewLanguage(tree_sitter_javascript.Language())
}

func TestParserPool_GetPut(t *testing.T) {
	pool := NewParserPool(javascriptLanguage())

	sp := pool.Get()
	if sp == nil {
		t.Fatal("expected non-nil parser from pool")
	}
	if pool.Leased() != 1 {
		t.Fatalf("expected one leased parser, got %d", pool.Leased())
	}
	pool.Put(sp)
	if pool.Leased() != 0 {
		t.Fatalf("expected no leased parsers, got %d", pool.Leased())
	}

	// Put(nil) is a no-op.
	pool.Put(nil)
}

func TestParserPool_ParsesValidJavaScript(t *testing.T) {
	pool := NewParserPool(javascriptLanguage())

	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse([]byte("export default class Layer {}\n"), nil)
	if tree == nil {
		t.Fatal("expected non-nil parse tree")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() {
		t.Fatalf("expected error-free root node, got hasError=%v", root.HasError())
	}
}

func TestParserPool_ConcurrentAccess(t *testing.T) {
	pool := NewParserPool(javascriptLanguage())

	const goroutines = 20
	const iters = 25

	var wg sync.WaitGroup
	wg.Add(goroutines)

	src := []byte("function run(a) { return a * 2; }\n")
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				sp := pool.Get()
				tree := sp.Parse(src, nil)
				if tree == nil {
					t.Errorf("expected non-nil parse tree")
				} else {
					tree.Close()
				}
				pool.Put(sp)
			}
		}()
	}
	wg.Wait()

	if pool.Leased() != 0 {
		t.Fatalf("expected all parsers returned, got %d leased", pool.Leased())
	}
}

func TestParserPool_LanguageSetAfterReset(t *testing.T) {
	pool := NewParserPool(javascriptLanguage())

	sp := pool.Get()
	sp.Reset()
	pool.Put(sp)

	sp2 := pool.Get()
	defer pool.Put(sp2)

	tree := sp2.Parse([]byte("let ok = true;\n"), nil)
	if tree == nil {
		t.Fatal("parser should still parse after Reset")
	}
	defer tree.Close()
}
