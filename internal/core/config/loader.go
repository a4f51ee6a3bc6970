package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"astcensus/internal/core/errors"

	"github.com/BurntSushi/toml"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeIO, "read config"), errors.CtxPath, path)
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "decode config"), errors.CtxPath, path)
	}
	if abs, err := filepath.Abs(filepath.Dir(path)); err == nil {
		cfg.Dir = abs
	}
	if len(cfg.Specs) == 0 {
		cfg.Specs = DefaultSpecs()
	}

	ApplyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return &cfg, nil
}

// LoadDefault loads the first existing file of DefaultConfigPaths under cwd,
// or the built-in configuration when none exists. It returns the path used,
// empty for the built-in one.
func LoadDefault(cwd string) (*Config, string, error) {
	for _, candidate := range DefaultConfigPaths {
		p := ResolveRelative(cwd, candidate)
		if _, err := os.Stat(p); err == nil {
			cfg, err := Load(p)
			return cfg, p, err
		}
	}
	cfg := Default()
	ApplyEnvOverrides(cfg)
	applyDefaults(cfg)
	normalize(cfg)
	cfg.Dir = cwd
	return cfg, "", Validate(cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if cfg.Batch.Workers <= 0 {
		cfg.Batch.Workers = runtime.NumCPU()
	}
	if strings.TrimSpace(cfg.Batch.ParseErrorPolicy) == "" {
		cfg.Batch.ParseErrorPolicy = PolicySkipFile
	}
	if strings.TrimSpace(cfg.Output.Format) == "" {
		cfg.Output.Format = FormatText
	}
	if strings.TrimSpace(cfg.Output.Artifact) == "" {
		cfg.Output.Artifact = "res.ast"
	}
	if strings.TrimSpace(cfg.Query.Artifact) == "" {
		cfg.Query.Artifact = cfg.Output.Artifact
	}
	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = "data/database/history.db"
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "astcensus"
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{".git", "node_modules"}
	}
}

func normalize(cfg *Config) {
	cfg.Batch.Root = strings.TrimSpace(cfg.Batch.Root)
	cfg.Batch.ParseErrorPolicy = strings.ToLower(strings.TrimSpace(cfg.Batch.ParseErrorPolicy))
	cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	for i := range cfg.Specs {
		spec := &cfg.Specs[i]
		spec.Name = strings.TrimSpace(spec.Name)
		spec.Glob = strings.TrimSpace(spec.Glob)
		spec.Scope = strings.TrimSpace(spec.Scope)
		spec.Language = strings.ToLower(strings.TrimSpace(spec.Language))
	}
	cfg.Query.File = strings.TrimSpace(cfg.Query.File)
	cfg.Query.Expr = strings.TrimSpace(cfg.Query.Expr)
}

// BaseDir is where relative paths of cfg resolve: the configured batch root,
// itself relative to the config file's directory.
func (c *Config) BaseDir() string {
	return ResolveRelative(c.Dir, c.Batch.Root)
}

// Resolve returns value resolved against BaseDir.
func (c *Config) Resolve(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return ResolveRelative(c.BaseDir(), value)
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		if base == "" {
			return "."
		}
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) || base == "" {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}
