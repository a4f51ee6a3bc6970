package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	coreapp "astcensus/internal/core/app"
	"astcensus/internal/core/config"
	"astcensus/internal/data/history"
	"astcensus/internal/shared/observability"
	"astcensus/internal/ui/report"
)

func configureLogging(stderr io.Writer, verbose bool, logFile string) func() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	output := stderr
	closeFn := func() {}
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o700); err != nil {
			fmt.Fprintf(stderr, "warning: failed to create log dir for %s: %v\n", logFile, err)
		} else if fi, err := os.Lstat(logFile); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
			fmt.Fprintf(stderr, "warning: refusing to write logs to symlink path %s\n", logFile)
		} else {
			f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
			if err == nil {
				output = f
				closeFn = func() { _ = f.Close() }
			} else {
				fmt.Fprintf(stderr, "warning: failed to open log file %s: %v\n", logFile, err)
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return closeFn
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		slog.Debug("config loaded", "path", path)
		return cfg, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("detect working directory: %w", err)
	}
	cfg, used, err := config.LoadDefault(cwd)
	if err != nil {
		return nil, err
	}
	if used == "" {
		slog.Debug("no config file found, using built-in specs", "cwd", cwd)
	} else {
		slog.Debug("config loaded", "path", used)
	}
	return cfg, nil
}

// runtime holds what a command needs after setup; close releases it.
type runtime struct {
	cfg     *config.Config
	app     *coreapp.App
	store   *history.Store
	server  *observability.Server
	tracing observability.ShutdownFunc
}

func setupRuntime(ctx context.Context, cfg *config.Config, withHistory bool) (*runtime, error) {
	a, err := coreapp.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize app: %w", err)
	}
	a.Artifacts = report.ArtifactWriter{Dir: cfg.BaseDir()}

	rt := &runtime{cfg: cfg, app: a}

	if withHistory {
		store, err := history.Open(cfg.Resolve(cfg.History.Path))
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		rt.store = store
		a.History = store
	}

	shutdown, err := observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint, cfg.Observability.ServiceName)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.tracing = shutdown

	if cfg.Observability.MetricsAddr != "" {
		rt.server = observability.NewServer(cfg.Observability.MetricsAddr, a.Health)
		if err := rt.server.Start(ctx); err != nil {
			rt.close()
			return nil, fmt.Errorf("start observability server: %w", err)
		}
	}
	return rt, nil
}

func (rt *runtime) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if rt.server != nil {
		if err := rt.server.Stop(ctx); err != nil {
			slog.Warn("failed to stop observability server", "error", err)
		}
	}
	if rt.tracing != nil {
		if err := rt.tracing(ctx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			slog.Warn("failed to close history", "error", err)
		}
	}
}

// selectSpecs returns the specs named in names, in configuration order, or
// all specs when names is empty.
func selectSpecs(specs []config.Spec, names []string) ([]config.Spec, error) {
	if len(names) == 0 {
		return specs, nil
	}
	known := make(map[string]bool, len(specs))
	for _, s := range specs {
		known[s.Name] = true
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		if !known[n] {
			return nil, usageError{fmt.Errorf("unknown spec %q", n)}
		}
		wanted[n] = true
	}
	var out []config.Spec
	for _, s := range specs {
		if wanted[s.Name] {
			out = append(out, s)
		}
	}
	return out, nil
}
