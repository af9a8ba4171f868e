package webhook

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Authentication modes for the notification endpoint.
const (
	AuthNone   = "none"
	AuthBearer = "bearer"
	AuthAPIKey = "api-key"
)

const defaultTimeout = 30 * time.Second

// Config describes where analysis notifications are delivered.
type Config struct {
	URL       string
	Method    string // POST when empty
	Headers   map[string]string
	Timeout   time.Duration // bounds all attempts together
	AuthType  string        // AuthNone, AuthBearer or AuthAPIKey
	AuthToken string
}

// Normalize fills defaults and rejects methods and auth modes the client
// cannot send.
func (c *Config) Normalize() error {
	c.Method = strings.ToUpper(c.Method)
	switch c.Method {
	case "":
		c.Method = http.MethodPost
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return fmt.Errorf("unsupported webhook method %q", c.Method)
	}

	switch c.AuthType {
	case "":
		c.AuthType = AuthNone
	case AuthNone, AuthBearer, AuthAPIKey:
	default:
		return fmt.Errorf("unsupported webhook auth type %q", c.AuthType)
	}

	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return nil
}

// RetryConfig controls redelivery of a failed notification.
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig returns 3 retries starting at 1s, doubling up to 30s.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}
