package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zinc-sig/pulse/cmd/config"
	"github.com/zinc-sig/pulse/cmd/helpers"
	"github.com/zinc-sig/pulse/internal/analyzer"
	"github.com/zinc-sig/pulse/internal/output"
	"github.com/zinc-sig/pulse/internal/runner"
	"github.com/zinc-sig/pulse/internal/sentiment"
)

func newAnalyzeCommand(a *app) *cobra.Command {
	var (
		flags      config.AnalyzeFlags
		contextCfg config.ContextConfig
		webhookCfg config.WebhookConfig
		uploadCfg  config.UploadConfig
	)

	cmd := &cobra.Command{
		Use:   "analyze [TICKER]",
		Short: "Run the analyzer once and print the result",
		Long: `Run the analyzer once, for TICKER or for every supported ticker, and print
a JSON record of the outcome. The command exits non-zero unless the outcome
is success.`,
		Example: `  pulse analyze
  pulse analyze aapl --summary
  pulse analyze TSLA --timeout 10s --context-kv source=cron
  pulse analyze --dry-run --analyzer-command ./analyzer`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var ticker string
			if len(args) == 1 {
				ticker = args[0]
			}
			req := analyzer.NewRequest(ticker)

			analyzerImpl, timeout, err := helpers.BuildAnalyzer(a.settings, a.logger)
			if err != nil {
				return err
			}
			recordCtx, err := helpers.BuildContext(&contextCfg)
			if err != nil {
				return err
			}

			stderr := cmd.ErrOrStderr()
			if flags.DryRun || a.global.Verbose {
				printInvocation(cmd, a, analyzerImpl, req, flags.DryRun)
				helpers.PrintContextInfo(stderr, recordCtx, flags.DryRun)
			}
			if flags.DryRun {
				return nil
			}

			publisher, err := helpers.BuildPublisher(ctx, &webhookCfg, &uploadCfg, cmd.Flags().Changed, a.logger)
			if err != nil {
				return err
			}

			result := analyzerImpl.Analyze(ctx, req)

			if a.global.Verbose {
				runner.PrintPostExecution(stderr, string(result.Kind), result.ExitCode, result.Duration.Milliseconds())
			}

			record := output.NewRecord(uuid.NewString(), result, timeout, recordCtx)
			publisher.Publish(ctx, record)

			if err := writeOutcome(cmd, record, result, flags.Summary, a.logger); err != nil {
				return err
			}
			if !result.OK() {
				return fmt.Errorf("analysis %s: %s", result.Kind, result.Message())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&flags.Summary, "summary", false, "Render a sentiment table instead of the JSON record")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "Show what would be invoked without running the analyzer")
	helpers.SetupDeliveryFlags(cmd, &contextCfg, &webhookCfg, &uploadCfg)
	return cmd
}

func printInvocation(cmd *cobra.Command, a *app, impl analyzer.Analyzer, req analyzer.Request, dryRun bool) {
	w := cmd.ErrOrStderr()
	switch p := impl.(type) {
	case *analyzer.ProcessAnalyzer:
		runner.PrintPreExecution(w, p.RunnerConfig(req), dryRun)
	default:
		target := req.Ticker
		if req.All() {
			target = "all tickers"
		}
		helpers.PrintRemoteInvocation(w, a.settings.Analyzer.URL, target, dryRun)
	}
}

// writeOutcome prints the record, or the summary table when requested and
// the payload can be summarized.
func writeOutcome(cmd *cobra.Command, record *output.Record, result *analyzer.Result, summary bool, logger *zap.Logger) error {
	out := cmd.OutOrStdout()
	if summary && result.OK() {
		s, err := sentiment.Summarize(result.Payload)
		if err == nil {
			_, err = fmt.Fprint(out, sentiment.Render(s))
			return err
		}
		logger.Warn("payload cannot be summarized, printing record", zap.Error(err))
	}
	return helpers.WriteRecord(out, record)
}
