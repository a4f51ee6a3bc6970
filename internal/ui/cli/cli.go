// Package cli is the command-line surface of astcensus.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

const versionString = "1.0.0"

const (
	exitOK         = 0
	exitFailure    = 1
	exitUsage      = 2
	exitSpecErrors = 3
)

type globalOptions struct {
	configPath string
	verbose    bool
	logFile    string
}

// usageError marks errors caused by bad flags or arguments.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// specErrors reports that a batch completed but some specs had errors.
type specErrors struct{ count int }

func (e specErrors) Error() string { return fmt.Sprintf("%d spec(s) finished with errors", e.count) }

func Run(args []string) int {
	return run(args, os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return exitOK
	}

	var usage usageError
	var failed specErrors
	switch {
	case errors.As(err, &usage):
		fmt.Fprintf(stderr, "astcensus: %v\n", err)
		return exitUsage
	case errors.As(err, &failed):
		return exitSpecErrors
	default:
		fmt.Fprintf(stderr, "astcensus error: %v\n", err)
		return exitFailure
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}
	var cleanupLogs func()

	rootCmd := &cobra.Command{
		Use:   "astcensus",
		Short: "Syntax-tree node census and source-line comparison across file sets",
		Long: "astcensus parses every file matched by a set of named glob specs, counts the\n" +
			"non-comment syntax nodes and the source lines of each, and reports the totals\n" +
			"per spec. It can also locate the first sub-tree matching an expression.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			cleanupLogs = configureLogging(stderr, opts.verbose, opts.logFile)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if cleanupLogs != nil {
				cleanupLogs()
			}
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to astcensus.toml (default: data/config/astcensus.toml or ./astcensus.toml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "write logs to this file instead of stderr")

	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newQueryCmd(opts))
	rootCmd.AddCommand(newCensusCmd(opts))
	rootCmd.AddCommand(newLanguagesCmd(opts))
	rootCmd.AddCommand(newHistoryCmd(opts))
	rootCmd.AddCommand(newWatchCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// usageArgs wraps a cobra positional-args validator so that its errors map
// to the usage exit code.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}
