package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: ASTCENSUS_[SECTION]_[KEY] (e.g., ASTCENSUS_BATCH_WORKERS).
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Batch.Root, "ASTCENSUS_BATCH_ROOT")
	setEnvInt(&cfg.Batch.Workers, "ASTCENSUS_BATCH_WORKERS")
	setEnvString(&cfg.Batch.ParseErrorPolicy, "ASTCENSUS_BATCH_PARSE_ERROR_POLICY")
	setEnvFloat64(&cfg.Batch.FilesPerSecond, "ASTCENSUS_BATCH_FILES_PER_SECOND")

	setEnvString(&cfg.Output.Format, "ASTCENSUS_OUTPUT_FORMAT")
	setEnvString(&cfg.Output.ReportFile, "ASTCENSUS_OUTPUT_REPORT_FILE")

	setEnvBool(&cfg.History.Enabled, "ASTCENSUS_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "ASTCENSUS_HISTORY_PATH")

	setEnvString(&cfg.Observability.MetricsAddr, "ASTCENSUS_OBSERVABILITY_METRICS_ADDR")
	setEnvString(&cfg.Observability.OTLPEndpoint, "ASTCENSUS_OBSERVABILITY_OTLP_ENDPOINT")

	setEnvDuration(&cfg.Watch.Debounce, "ASTCENSUS_WATCH_DEBOUNCE")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
