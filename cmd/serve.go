package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zinc-sig/pulse/cmd/config"
	"github.com/zinc-sig/pulse/cmd/helpers"
	"github.com/zinc-sig/pulse/internal/analyzer"
	"github.com/zinc-sig/pulse/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	var (
		flags      config.ServeFlags
		contextCfg config.ContextConfig
		webhookCfg config.WebhookConfig
		uploadCfg  config.UploadConfig
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the status page and sentiment API",
		Long: `Serve the status page and the JSON sentiment API. Each request to
/api/sentiment or /api/sentiment/{ticker} runs the analyzer once.

The port comes from --port, then the PORT environment variable, then the
config file, and defaults to 8501.`,
		Example: `  pulse serve
  PORT=9000 pulse serve --analyzer-arg api_wrapper.py
  pulse serve --analyzer-url http://analyzer:9000 --webhook-url https://hooks.example.com/pulse`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s := a.settings
			if cmd.Flags().Changed("port") {
				s.Port = flags.Port
			}

			analyzerImpl, timeout, err := helpers.BuildAnalyzer(s, a.logger)
			if err != nil {
				return err
			}
			recordCtx, err := helpers.BuildContext(&contextCfg)
			if err != nil {
				return err
			}
			publisher, err := helpers.BuildPublisher(ctx, &webhookCfg, &uploadCfg, cmd.Flags().Changed, a.logger)
			if err != nil {
				return err
			}

			srv := server.New(server.Config{
				Port:     s.Port,
				Features: s.Features,
				Tickers:  analyzer.DefaultTickers,
				Timeout:  timeout,
			}, analyzerImpl,
				server.WithLogger(a.logger),
				server.WithPublisher(publisher),
				server.WithRecordContext(recordCtx),
			)

			a.logger.Info("starting server",
				zap.Int("port", s.Port),
				zap.Duration("analyzer_timeout", timeout),
				zap.String("analyzer_url", s.Analyzer.URL),
				zap.Bool("publishing", publisher.Enabled()))
			if err := srv.Start(ctx); err != nil {
				return fmt.Errorf("server: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&flags.Port, "port", "p", server.DefaultPort, "Port to listen on")
	helpers.SetupDeliveryFlags(cmd, &contextCfg, &webhookCfg, &uploadCfg)
	return cmd
}
