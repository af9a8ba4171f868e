package helpers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/zinc-sig/pulse/cmd/config"
	contextparser "github.com/zinc-sig/pulse/internal/context"
	"github.com/zinc-sig/pulse/internal/output"
	"github.com/zinc-sig/pulse/internal/publish"
)

// WriteRecord writes the record as one line of JSON
func WriteRecord(w io.Writer, record *output.Record) error {
	jsonOutput, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON output: %w", err)
	}

	_, err = fmt.Fprintln(w, string(jsonOutput))
	return err
}

// BuildContext merges record context from PULSE_CONTEXT*, the context file,
// --context and --context-kv.
func BuildContext(cfg *config.ContextConfig) (any, error) {
	ctxData, err := contextparser.Sources{
		EnvPrefix: contextparser.PrefixContext,
		JSON:      cfg.JSON,
		KV:        cfg.KV,
		File:      cfg.File,
	}.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build context: %w", err)
	}
	return ctxData, nil
}

// BuildPublisher wires the configured webhook and archive into a publisher.
func BuildPublisher(ctx context.Context, hook *config.WebhookConfig, up *config.UploadConfig, changed Changed, logger *zap.Logger) (*publish.Publisher, error) {
	opts := []publish.Option{publish.WithLogger(logger)}

	client, err := BuildWebhookClient(hook, changed, logger)
	if err != nil {
		return nil, err
	}
	if client != nil {
		opts = append(opts, publish.WithWebhook(client))
	}

	provider, err := BuildUploadProvider(ctx, up)
	if err != nil {
		return nil, err
	}
	if provider != nil {
		opts = append(opts, publish.WithArchive(provider))
	}

	return publish.New(opts...), nil
}
