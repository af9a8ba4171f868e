package helpers

import (
	"github.com/spf13/cobra"

	"github.com/zinc-sig/pulse/cmd/config"
)

// SetupGlobalFlags adds the persistent flags shared by all commands
func SetupGlobalFlags(cmd *cobra.Command, flags *config.GlobalFlags) {
	cmd.PersistentFlags().StringVarP(&flags.ConfigFile, "config", "c", "", "Path to YAML config file")
	cmd.PersistentFlags().StringVar(&flags.EnvFile, "env-file", ".env", "Path to .env file (ignored when missing)")
	cmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&flags.LogFormat, "log-format", "", "Log format: json, console")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Debug logging and invocation details on stderr")
}

// SetupAnalyzerFlags adds the persistent flags describing the analyzer
func SetupAnalyzerFlags(cmd *cobra.Command, flags *config.AnalyzerFlags) {
	cmd.PersistentFlags().StringVar(&flags.Command, "analyzer-command", "", "Analyzer executable (default python3)")
	cmd.PersistentFlags().StringArrayVar(&flags.Args, "analyzer-arg", nil, "Argument placed before 'analyze' (can be used multiple times)")
	cmd.PersistentFlags().StringVar(&flags.Dir, "analyzer-dir", "", "Working directory for the analyzer process")
	cmd.PersistentFlags().StringVar(&flags.URL, "analyzer-url", "", "Base URL of a remote analyzer service (replaces the local process)")
	cmd.PersistentFlags().StringVarP(&flags.TimeoutStr, "timeout", "t", "", "Analyzer timeout (e.g., 30s, 2m, 500ms)")
}

// SetupContextFlags adds context-related flags to a command
func SetupContextFlags(cmd *cobra.Command, cfg *config.ContextConfig) {
	cmd.Flags().StringVar(&cfg.JSON, "context", "", "Context data as JSON string")
	cmd.Flags().StringArrayVar(&cfg.KV, "context-kv", nil, "Context key=value pairs (can be used multiple times)")
	cmd.Flags().StringVar(&cfg.File, "context-file", "", "Path to JSON or YAML file containing context data")
}

// SetupUploadFlags adds archive upload flags to a command
func SetupUploadFlags(cmd *cobra.Command, cfg *config.UploadConfig) {
	cmd.Flags().StringVar(&cfg.Provider, "upload-provider", "", "Archive provider type (e.g., minio)")
	cmd.Flags().StringVar(&cfg.Config, "upload-config", "", "Upload configuration as JSON string")
	cmd.Flags().StringArrayVar(&cfg.ConfigKV, "upload-config-kv", nil, "Upload config key=value pairs (can be used multiple times)")
	cmd.Flags().StringVar(&cfg.ConfigFile, "upload-config-file", "", "Path to JSON or YAML file containing upload configuration")
}

// SetupWebhookFlags adds webhook-related flags to a command
func SetupWebhookFlags(cmd *cobra.Command, cfg *config.WebhookConfig) {
	cmd.Flags().StringVar(&cfg.URL, "webhook-url", "", "Webhook URL to send records to")
	cmd.Flags().StringVar(&cfg.Method, "webhook-method", "POST", "HTTP method to use: GET, POST, PUT, PATCH, DELETE")
	cmd.Flags().StringVar(&cfg.AuthType, "webhook-auth-type", "none", "Authentication type: none, bearer, api-key")
	cmd.Flags().StringVar(&cfg.AuthToken, "webhook-auth-token", "", "Authentication token (use with --webhook-auth-type)")
	cmd.Flags().IntVar(&cfg.Retries, "webhook-retries", 3, "Maximum webhook retry attempts (0 = no retries)")
	cmd.Flags().StringVar(&cfg.RetryDelay, "webhook-retry-delay", "1s", "Initial delay between webhook retries")
	cmd.Flags().StringVar(&cfg.Timeout, "webhook-timeout", "30s", "Total timeout for webhook including retries")

	cmd.Flags().StringVar(&cfg.Config, "webhook-config", "", "Webhook configuration as JSON string")
	cmd.Flags().StringArrayVar(&cfg.ConfigKV, "webhook-config-kv", nil, "Webhook config key=value pairs (can be used multiple times)")
	cmd.Flags().StringVar(&cfg.ConfigFile, "webhook-config-file", "", "Path to JSON or YAML file containing webhook configuration")
}

// SetupDeliveryFlags adds the context, webhook and upload flags together
func SetupDeliveryFlags(cmd *cobra.Command, ctx *config.ContextConfig, hook *config.WebhookConfig, up *config.UploadConfig) {
	SetupContextFlags(cmd, ctx)
	SetupWebhookFlags(cmd, hook)
	SetupUploadFlags(cmd, up)
}
