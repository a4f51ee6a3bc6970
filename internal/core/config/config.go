package config

import (
	"time"
)

const (
	PolicySkipFile = "skip-file"
	PolicyFailSpec = "fail-spec"

	FormatText  = "text"
	FormatTable = "table"
	FormatJSON  = "json"
	FormatTSV   = "tsv"
)

// DefaultConfigPaths are tried, in order, when no --config is given.
var DefaultConfigPaths = []string{
	"data/config/astcensus.toml",
	"astcensus.toml",
}

type Config struct {
	Version       int                 `toml:"version"`
	Batch         Batch               `toml:"batch"`
	Specs         []Spec              `toml:"specs"`
	Query         Query               `toml:"query"`
	Languages     map[string]Language `toml:"languages"`
	Exclude       Exclude             `toml:"exclude"`
	Output        Output              `toml:"output"`
	History       History             `toml:"history"`
	Observability Observability       `toml:"observability"`
	Watch         Watch               `toml:"watch"`

	// Dir is the directory of the loaded file; relative paths resolve
	// against it. Empty for the built-in configuration.
	Dir string `toml:"-"`
}

type Batch struct {
	// Root is where relative spec globs are resolved.
	Root             string  `toml:"root"`
	Workers          int     `toml:"workers"`
	ParseErrorPolicy string  `toml:"parse_error_policy"`
	FilesPerSecond   float64 `toml:"files_per_second"`
	CommentPattern   string  `toml:"comment_pattern"`
}

// Spec names a group of files analysed together.
type Spec struct {
	Name string `toml:"name"`
	Glob string `toml:"glob"`
	// Scope optionally narrows each file to the first sub-tree matching a
	// predicate expression before the census runs.
	Scope string `toml:"scope"`
	// Language forces a grammar instead of choosing by extension.
	Language string `toml:"language"`
}

type Query struct {
	File     string `toml:"file"`
	Expr     string `toml:"expr"`
	Artifact string `toml:"artifact"`
}

type Language struct {
	Enabled    *bool    `toml:"enabled"`
	Extensions []string `toml:"extensions"`
}

type Exclude struct {
	Dirs []string `toml:"dirs"`
}

type Output struct {
	Format     string `toml:"format"`
	ReportFile string `toml:"report_file"`
	Artifact   string `toml:"artifact"`
}

type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Observability struct {
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
	ServiceName  string `toml:"service_name"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

// DefaultSpecs is the comparison of plain and active-expression variants of
// the same research projects.
func DefaultSpecs() []Spec {
	return []Spec{
		{Name: "signals plain", Glob: "projects/programming-signals-plain/transform/*.template.js"},
		{Name: "constraints plain", Glob: "projects/programming-constraints-plain/{cassowary,babel-plugin-cassowary-transform}.js"},
		{Name: "roq plain", Glob: "projects/programming-roq-plain/src/**/*.js"},
		{Name: "ila plain", Glob: "projects/programming-contextjs-plain/src/Layers.js"},
		{Name: "signals aexpr", Glob: "projects/programming-signals-aexpr/transform/*.extracted.js"},
		{Name: "constraints aexpr", Glob: "projects/babel-plugin-always-constraint/index.js"},
		{Name: "roq aexpr", Glob: "projects/reactive-object-queries/src/*.js"},
		{Name: "ila aexpr", Glob: "projects/programming-contextjs-aexpr/src/Layers.js"},
		{Name: "ContextJS", Glob: "projects/ContextJS/src/Layers.js"},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{Specs: DefaultSpecs()}
	applyDefaults(cfg)
	return cfg
}
