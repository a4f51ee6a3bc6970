package parser

import (
	"fmt"
	"sort"

	"astcensus/internal/shared/util"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_css "github.com/tree-sitter/tree-sitter-css/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_html "github.com/tree-sitter/tree-sitter-html/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// GrammarLoader owns the compiled-in grammars of every enabled language.
type GrammarLoader struct {
	languages map[string]*sitter.Language
	registry  map[string]LanguageSpec
}

func NewGrammarLoader(registry map[string]LanguageSpec) (*GrammarLoader, error) {
	if registry == nil {
		var err error
		registry, err = BuildLanguageRegistry(nil)
		if err != nil {
			return nil, err
		}
	}

	gl := &GrammarLoader{
		languages: make(map[string]*sitter.Language),
		registry:  cloneLanguageRegistry(registry),
	}

	for _, langID := range util.SortedStringKeys(gl.registry) {
		if !gl.registry[langID].Enabled {
			continue
		}
		switch langID {
		case LangESTree:
			// Decoded from JSON; no grammar.
			continue
		case "css":
			gl.languages["css"] = sitter.NewLanguage(tree_sitter_css.Language())
		case "go":
			gl.languages["go"] = sitter.NewLanguage(tree_sitter_go.Language())
		case "html":
			gl.languages["html"] = sitter.NewLanguage(tree_sitter_html.Language())
		case "java":
			gl.languages["java"] = sitter.NewLanguage(tree_sitter_java.Language())
		case "javascript":
			gl.languages["javascript"] = sitter.NewLanguage(tree_sitter_javascript.Language())
		case "python":
			gl.languages["python"] = sitter.NewLanguage(tree_sitter_python.Language())
		case "rust":
			gl.languages["rust"] = sitter.NewLanguage(tree_sitter_rust.Language())
		case "tsx":
			gl.languages["tsx"] = sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())
		case "typescript":
			gl.languages["typescript"] = sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
		default:
			return nil, fmt.Errorf("language %q is enabled but has no compiled-in grammar", langID)
		}
	}

	return gl, nil
}

func (gl *GrammarLoader) Language(id string) (*sitter.Language, bool) {
	lang, ok := gl.languages[id]
	return lang, ok
}

func (gl *GrammarLoader) LanguageRegistry() map[string]LanguageSpec {
	return cloneLanguageRegistry(gl.registry)
}

func (gl *GrammarLoader) SupportedExtensions() []string {
	set := make(map[string]bool)
	for _, spec := range gl.registry {
		if !spec.Enabled {
			continue
		}
		for _, ext := range spec.Extensions {
			set[ext] = true
		}
	}
	extensions := make([]string, 0, len(set))
	for ext := range set {
		extensions = append(extensions, ext)
	}
	sort.Strings(extensions)
	return extensions
}
