// Command listkit drives the list engine from scenario files.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-drift/listkit/pkg/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type globalFlags struct {
	logLevel string
	debug    bool
}

func main() {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:   "listkit",
		Short: "Virtualized list engine simulator",
		Long: `listkit replays list scenarios against the virtualized list engine.

A scenario is a YAML file with list preferences, a viewport and a
sequence of snapshot, scroll and reload steps. Commands:

  • simulate: replay a scenario headlessly and log every update
  • tui: browse a scenario in the terminal`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(flags.logLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			errors.SetHandler(&errors.LogHandler{Logger: logger, Verbose: flags.debug})
			errors.SetDebugMode(flags.debug)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Panic on invariant violations")

	rootCmd.AddCommand(
		simulateCmd(),
		tuiCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func newLogger(level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q", level)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})), nil
}
