package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	coreapp "astcensus/internal/core/app"
	"astcensus/internal/core/config"
	"astcensus/internal/shared/util"
	"astcensus/internal/ui/report"

	"github.com/spf13/cobra"
)

type runOptions struct {
	format      string
	reportFile  string
	workers     int
	policy      string
	history     bool
	noHistory   bool
	failOnError bool
}

func newRunCmd(global *globalOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [spec-name...]",
		Short: "Run the census over every configured spec, or only the named ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global.configPath)
			if err != nil {
				return err
			}
			if err := opts.apply(cfg); err != nil {
				return err
			}
			specs, err := selectSpecs(cfg.Specs, args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := setupRuntime(ctx, cfg, cfg.History.Enabled)
			if err != nil {
				return err
			}
			defer rt.close()

			return runBatch(ctx, cmd.OutOrStdout(), rt, specs, opts.failOnError)
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "report format: text, table, json or tsv")
	cmd.Flags().StringVar(&opts.reportFile, "report-file", "", "also write the report to this file")
	cmd.Flags().IntVarP(&opts.workers, "workers", "j", 0, "number of files parsed concurrently")
	cmd.Flags().StringVar(&opts.policy, "policy", "", "parse error policy: skip-file or fail-spec")
	cmd.Flags().BoolVar(&opts.history, "history", false, "record the run in the history database")
	cmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "do not record the run even if enabled in config")
	cmd.Flags().BoolVar(&opts.failOnError, "fail-on-error", false, "exit with status 3 when any spec had errors")
	return cmd
}

func (o *runOptions) apply(cfg *config.Config) error {
	if o.format != "" {
		cfg.Output.Format = strings.ToLower(o.format)
	}
	if o.reportFile != "" {
		cfg.Output.ReportFile = o.reportFile
	}
	if o.workers > 0 {
		cfg.Batch.Workers = o.workers
	}
	if o.policy != "" {
		cfg.Batch.ParseErrorPolicy = strings.ToLower(o.policy)
	}
	if o.history {
		cfg.History.Enabled = true
	}
	if o.noHistory {
		cfg.History.Enabled = false
	}
	if err := config.Validate(cfg); err != nil {
		return usageError{err}
	}
	return nil
}

func runBatch(ctx context.Context, out io.Writer, rt *runtime, specs []config.Spec, failOnError bool) error {
	started := time.Now()
	results, batchErr := rt.app.RunBatch(ctx, specs)

	writer := &report.Writer{Out: out, Format: rt.cfg.Output.Format}
	if rt.cfg.Output.ReportFile != "" {
		writer.File = rt.cfg.Resolve(rt.cfg.Output.ReportFile)
	}
	if err := writer.Report(results); err != nil {
		return err
	}
	if batchErr != nil {
		// Interrupted: partial totals are reported but not recorded.
		return batchErr
	}

	deltas, err := rt.app.RecordRun(ctx, started, results)
	if err != nil {
		slog.Warn("failed to record run history", "error", err)
	} else if len(deltas) > 0 && rt.cfg.Output.Format == config.FormatText {
		fmt.Fprintln(out, "\nsince previous run:")
		_, _ = out.Write(report.RenderDeltas(deltas))
	}

	if failOnError {
		failed := 0
		for _, r := range results {
			if r.HasErrors() {
				failed++
			}
		}
		if failed > 0 {
			return specErrors{count: failed}
		}
	}
	return nil
}

func newQueryCmd(global *globalOptions) *cobra.Command {
	var file, expression, artifact string
	var noArtifact bool
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Find the first sub-tree of a file matching an expression and write it as an artifact",
		Long: "query parses a single file, walks it in pre-order and stops at the first node\n" +
			"for which the expression is true. The node kinds below the match are printed\n" +
			"and the matched sub-tree is written to the artifact file.\n\n" +
			"Example:\n" +
			"  astcensus query --file projects/reactive-object-queries/src/select.js \\\n" +
			"    --expr 'node.type == \"ImportDeclaration\" && node.specifiers[0].local.name == \"trigger\"'",
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(global.configPath)
			if err != nil {
				return err
			}
			if file == "" {
				file = cfg.Query.File
			}
			if expression == "" {
				expression = cfg.Query.Expr
			}
			if artifact == "" {
				artifact = cfg.Query.Artifact
			}
			if noArtifact {
				artifact = ""
			}
			if file == "" {
				return usageError{fmt.Errorf("query needs --file or query.file in config")}
			}
			if expression == "" {
				return usageError{fmt.Errorf("query needs --expr or query.expr in config")}
			}

			rt, err := setupRuntime(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer rt.close()

			res, err := rt.app.Query(cmd.Context(), cfg.Resolve(file), expression, artifact)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(report.RenderQuery(res))
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "file to parse (relative to the batch root)")
	cmd.Flags().StringVarP(&expression, "expr", "e", "", "predicate over `node`, e.g. node.type == \"import_statement\"")
	cmd.Flags().StringVarP(&artifact, "artifact", "o", "", "where to write the matched sub-tree (default res.ast)")
	cmd.Flags().BoolVar(&noArtifact, "no-artifact", false, "do not write the matched sub-tree")
	return cmd
}

func newCensusCmd(global *globalOptions) *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "census <file>",
		Short: "Print how many nodes of each kind a file contains",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global.configPath)
			if err != nil {
				return err
			}
			rt, err := setupRuntime(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer rt.close()

			tally, err := rt.app.CensusFile(cmd.Context(), cfg.Resolve(args[0]), strings.ToLower(language))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(report.RenderTally(tally))
			return err
		},
	}
	cmd.Flags().StringVarP(&language, "language", "l", "", "grammar to use instead of choosing by extension")
	return cmd
}

func newLanguagesCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List the grammars and the extensions they handle",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(global.configPath)
			if err != nil {
				return err
			}
			registry, err := coreapp.LanguageRegistry(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, id := range util.SortedStringKeys(registry) {
				spec := registry[id]
				state := "enabled"
				if !spec.Enabled {
					state = "disabled"
				}
				fmt.Fprintf(out, "%-12s %-9s %s\n", id, state, strings.Join(spec.Extensions, " "))
			}
			return nil
		},
	}
}

func newHistoryCmd(global *globalOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently recorded runs",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(global.configPath)
			if err != nil {
				return err
			}
			rt, err := setupRuntime(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer rt.close()

			runs, err := rt.store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
				return nil
			}
			_, err = cmd.OutOrStdout().Write(report.RenderRuns(runs))
			return err
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	return cmd
}

func newWatchCmd(global *globalOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "watch [spec-name...]",
		Short: "Re-run the census whenever a file below the spec globs changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global.configPath)
			if err != nil {
				return err
			}
			if format != "" {
				cfg.Output.Format = strings.ToLower(format)
				if err := config.Validate(cfg); err != nil {
					return usageError{err}
				}
			}
			specs, err := selectSpecs(cfg.Specs, args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := setupRuntime(ctx, cfg, cfg.History.Enabled)
			if err != nil {
				return err
			}
			defer rt.close()

			out := cmd.OutOrStdout()
			writer := &report.Writer{Out: out, Format: cfg.Output.Format}
			err = rt.app.Watch(ctx, specs, func(results []coreapp.AggregateResult, err error) {
				if err != nil {
					if ctx.Err() == nil {
						slog.Error("watch run failed", "error", err)
					}
					return
				}
				fmt.Fprintf(out, "--- %s\n", time.Now().Format(time.TimeOnly))
				if err := writer.Report(results); err != nil {
					slog.Error("failed to write report", "error", err)
				}
				if _, err := rt.app.RecordRun(ctx, time.Now(), results); err != nil {
					slog.Warn("failed to record run history", "error", err)
				}
			})
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "report format: text, table, json or tsv")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  usageArgs(cobra.NoArgs),
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "astcensus %s\n", versionString)
		},
	}
}
