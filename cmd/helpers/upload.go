package helpers

import (
	"context"
	"fmt"

	"github.com/zinc-sig/pulse/cmd/config"
	contextparser "github.com/zinc-sig/pulse/internal/context"
	"github.com/zinc-sig/pulse/internal/upload"
)

// BuildUploadConfig builds upload configuration from all sources
func BuildUploadConfig(cfg *config.UploadConfig) (map[string]any, error) {
	result, err := contextparser.Sources{
		EnvPrefix: contextparser.PrefixUploadConfig,
		JSON:      cfg.Config,
		KV:        cfg.ConfigKV,
		File:      cfg.ConfigFile,
	}.BuildMap()
	if err != nil {
		return nil, fmt.Errorf("failed to build upload config: %w", err)
	}
	return result, nil
}

// BuildUploadProvider creates and configures the archive provider, or
// returns nil when none was requested.
func BuildUploadProvider(ctx context.Context, cfg *config.UploadConfig) (upload.Provider, error) {
	if cfg.Provider == "" {
		return nil, nil
	}

	uploadConf, err := BuildUploadConfig(cfg)
	if err != nil {
		return nil, err
	}

	provider, err := upload.NewProvider(cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload provider: %w", err)
	}
	if err := provider.Configure(ctx, uploadConf); err != nil {
		return nil, fmt.Errorf("failed to configure upload provider: %w", err)
	}
	return provider, nil
}
