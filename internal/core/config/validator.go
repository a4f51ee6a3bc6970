package config

import (
	"fmt"
	"regexp"
	"strings"

	"astcensus/internal/core/errors"
)

// Validate checks cfg after defaults have been applied.
func Validate(cfg *Config) error {
	validators := []func(*Config) error{
		validateVersion,
		validateBatch,
		validateSpecs,
		validateLanguages,
		validateOutput,
		validateWatch,
	}
	for _, v := range validators {
		if err := v(cfg); err != nil {
			return errors.Wrap(err, errors.CodeValidationError, "invalid config")
		}
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateBatch(cfg *Config) error {
	switch cfg.Batch.ParseErrorPolicy {
	case PolicySkipFile, PolicyFailSpec:
	default:
		return fmt.Errorf("batch.parse_error_policy must be one of: %s, %s", PolicySkipFile, PolicyFailSpec)
	}
	if cfg.Batch.FilesPerSecond < 0 {
		return fmt.Errorf("batch.files_per_second must be >= 0")
	}
	if cfg.Batch.CommentPattern != "" {
		if _, err := regexp.Compile(cfg.Batch.CommentPattern); err != nil {
			return fmt.Errorf("batch.comment_pattern: %w", err)
		}
	}
	return nil
}

func validateSpecs(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Specs))
	for i, spec := range cfg.Specs {
		ref := fmt.Sprintf("specs[%d]", i)
		if spec.Name == "" {
			return fmt.Errorf("%s.name must not be empty", ref)
		}
		if spec.Glob == "" {
			return fmt.Errorf("%s.glob must not be empty", ref)
		}
		if seen[spec.Name] {
			return fmt.Errorf("duplicate spec name %q", spec.Name)
		}
		seen[spec.Name] = true
	}
	return nil
}

func validateLanguages(cfg *Config) error {
	for id, lang := range cfg.Languages {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("languages keys must not be empty")
		}
		if lang.Enabled == nil && len(lang.Extensions) == 0 {
			return fmt.Errorf("languages.%s must set enabled or extensions", id)
		}
		for _, ext := range lang.Extensions {
			if strings.TrimSpace(ext) == "" {
				return fmt.Errorf("languages.%s.extensions must not contain empty values", id)
			}
		}
	}
	return nil
}

func validateOutput(cfg *Config) error {
	switch cfg.Output.Format {
	case FormatText, FormatTable, FormatJSON, FormatTSV:
	default:
		return fmt.Errorf("output.format must be one of: text, table, json, tsv; got %q", cfg.Output.Format)
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must be >= 0")
	}
	return nil
}
