package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Header names set on every delivery.
const (
	HeaderEvent    = "X-Pulse-Event"
	HeaderDelivery = "X-Pulse-Delivery"
)

// Client delivers analysis notifications to a webhook endpoint.
type Client struct {
	httpClient  *http.Client
	config      *Config
	retryConfig *RetryConfig
	logger      *zap.Logger
}

// NewClient creates a new webhook client
func NewClient(config *Config, retryConfig *RetryConfig, logger *zap.Logger) *Client {
	if config.Method == "" {
		config.Method = http.MethodPost
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if retryConfig == nil {
		retryConfig = DefaultRetryConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second, // per attempt
		},
		config:      config,
		retryConfig: retryConfig,
		logger:      logger.With(zap.String("webhook", config.URL)),
	}
}

// URL returns the endpoint deliveries are sent to.
func (c *Client) URL() string {
	return c.config.URL
}

// Delivery identifies one notification.
type Delivery struct {
	ID    string
	Event string
}

// Send delivers payload, retrying retryable failures with exponential backoff
// until the overall timeout expires.
func (c *Client) Send(ctx context.Context, delivery Delivery, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var lastErr error
	var wait time.Duration

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := calculateBackoff(attempt, c.retryConfig)
			if wait > delay {
				delay = wait
			}
			c.logger.Debug("retrying webhook delivery",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", c.retryConfig.MaxRetries),
				zap.Duration("delay", delay))

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("webhook timeout after %d attempts: %w", attempt, ctx.Err())
			}
		}

		statusCode, header, err := c.sendRequest(ctx, delivery, body)
		if err == nil && statusCode >= 200 && statusCode < 300 {
			c.logger.Debug("webhook delivered", zap.String("delivery", delivery.ID), zap.Int("status", statusCode))
			return nil
		}

		if err != nil {
			lastErr = fmt.Errorf("attempt %d failed: %w", attempt+1, err)
		} else {
			lastErr = fmt.Errorf("attempt %d failed with status %d", attempt+1, statusCode)
		}

		if statusCode > 0 && !isRetryableStatus(statusCode) {
			c.logger.Debug("non-retryable webhook status", zap.Int("status", statusCode))
			return lastErr
		}
		wait = retryAfter(header, c.retryConfig.MaxDelay)
	}

	return fmt.Errorf("webhook failed after %d attempts: %w", c.retryConfig.MaxRetries+1, lastErr)
}

func (c *Client) sendRequest(ctx context.Context, delivery Delivery, payload []byte) (int, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, c.config.Method, c.config.URL, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "pulse-webhook/1.0")
	if delivery.Event != "" {
		req.Header.Set(HeaderEvent, delivery.Event)
	}
	if delivery.ID != "" {
		req.Header.Set(HeaderDelivery, delivery.ID)
	}
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}

	switch c.config.AuthType {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+c.config.AuthToken)
	case AuthAPIKey:
		req.Header.Set("X-API-Key", c.config.AuthToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, resp.Header, nil
}
