package helpers

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zinc-sig/pulse/cmd/config"
	contextparser "github.com/zinc-sig/pulse/internal/context"
	"github.com/zinc-sig/pulse/internal/webhook"
)

// BuildWebhookConfig merges webhook configuration from all sources.
// Precedence: env < file < json < kv < explicitly set flags.
func BuildWebhookConfig(cfg *config.WebhookConfig, changed Changed) (map[string]any, error) {
	webhookConf, err := contextparser.Sources{
		EnvPrefix: contextparser.PrefixWebhook,
		JSON:      cfg.Config,
		KV:        cfg.ConfigKV,
		File:      cfg.ConfigFile,
	}.BuildMap()
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook config: %w", err)
	}

	if changed("webhook-url") {
		webhookConf["url"] = cfg.URL
	}
	if changed("webhook-method") {
		webhookConf["method"] = cfg.Method
	}
	if changed("webhook-auth-type") {
		webhookConf["auth_type"] = cfg.AuthType
	}
	if changed("webhook-auth-token") {
		webhookConf["auth_token"] = cfg.AuthToken
	}
	if changed("webhook-timeout") {
		webhookConf["timeout"] = cfg.Timeout
	}
	if changed("webhook-retries") {
		webhookConf["retries"] = cfg.Retries
	}
	if changed("webhook-retry-delay") {
		webhookConf["retry_delay"] = cfg.RetryDelay
	}

	return webhookConf, nil
}

// ParseWebhookConfig converts the merged configuration into webhook client
// settings. It returns nils when no URL is configured.
func ParseWebhookConfig(cfg *config.WebhookConfig, changed Changed) (*webhook.Config, *webhook.RetryConfig, error) {
	configMap, err := BuildWebhookConfig(cfg, changed)
	if err != nil {
		return nil, nil, err
	}

	url, _ := configMap["url"].(string)
	if url == "" {
		return nil, nil, nil
	}

	timeout, err := durationValue(configMap, "timeout", 30*time.Second)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid webhook timeout duration: %w", err)
	}
	retryDelay, err := durationValue(configMap, "retry_delay", time.Second)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid webhook retry delay: %w", err)
	}

	authToken, _ := configMap["auth_token"].(string)

	// ints from flags and key=value, float64 from JSON
	maxRetries := 3
	switch r := configMap["retries"].(type) {
	case int:
		maxRetries = r
	case float64:
		maxRetries = int(r)
	}
	if maxRetries < 0 {
		return nil, nil, fmt.Errorf("webhook retries must not be negative")
	}

	var headers map[string]string
	if raw, ok := configMap["headers"].(map[string]any); ok {
		headers = make(map[string]string, len(raw))
		for k, v := range raw {
			headers[k] = fmt.Sprint(v)
		}
	}

	method, _ := configMap["method"].(string)
	authType, _ := configMap["auth_type"].(string)
	webhookConfig := &webhook.Config{
		URL:       url,
		Method:    method,
		Headers:   headers,
		Timeout:   timeout,
		AuthType:  authType,
		AuthToken: authToken,
	}
	if err := webhookConfig.Normalize(); err != nil {
		return nil, nil, err
	}

	retryConfig := webhook.DefaultRetryConfig()
	retryConfig.MaxRetries = maxRetries
	retryConfig.InitialDelay = retryDelay

	return webhookConfig, retryConfig, nil
}

// BuildWebhookClient returns a client for the configured webhook, or nil.
func BuildWebhookClient(cfg *config.WebhookConfig, changed Changed, logger *zap.Logger) (*webhook.Client, error) {
	webhookConfig, retryConfig, err := ParseWebhookConfig(cfg, changed)
	if err != nil || webhookConfig == nil {
		return nil, err
	}
	return webhook.NewClient(webhookConfig, retryConfig, logger), nil
}

func durationValue(m map[string]any, key string, def time.Duration) (time.Duration, error) {
	s, ok := m[key].(string)
	if !ok || s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}
