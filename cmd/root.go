package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zinc-sig/pulse/cmd/config"
	"github.com/zinc-sig/pulse/cmd/helpers"
	"github.com/zinc-sig/pulse/internal/settings"
)

// app carries state resolved once in PersistentPreRunE for every subcommand.
type app struct {
	global   config.GlobalFlags
	analyzer config.AnalyzerFlags

	settings *settings.Settings
	logger   *zap.Logger
}

// NewRootCommand builds the pulse command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "pulse",
		Short: "Stock sentiment front-end for an external analyzer",
		Long: `Pulse fronts an external stock sentiment analyzer program. Every analysis is
one bounded invocation of that program: its output is captured, a hard timeout
applies, and the outcome is reported as success, parse_failure,
process_failure or timeout.

Use 'pulse serve' for the HTTP API and status page, or 'pulse analyze' for a
single invocation from the command line.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s, err := helpers.ResolveSettings(&a.global, &a.analyzer, cmd.Flags().Changed)
			if err != nil {
				return err
			}
			logger, err := helpers.NewLogger(s)
			if err != nil {
				return err
			}
			a.settings = s
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	helpers.SetupGlobalFlags(rootCmd, &a.global)
	helpers.SetupAnalyzerFlags(rootCmd, &a.analyzer)

	rootCmd.AddCommand(newServeCommand(a))
	rootCmd.AddCommand(newAnalyzeCommand(a))
	return rootCmd
}

func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
