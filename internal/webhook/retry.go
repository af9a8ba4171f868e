package webhook

import (
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"
)

// calculateBackoff returns the delay before retry number attempt:
// initialDelay * multiplier^(attempt-1), capped at MaxDelay, with ±10% jitter.
func calculateBackoff(attempt int, config *RetryConfig) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(config.InitialDelay) * math.Pow(config.Multiplier, float64(attempt-1))
	if config.MaxDelay > 0 && delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}

	jitter := delay * 0.1
	delay += (rand.Float64()*2 - 1) * jitter

	return time.Duration(delay)
}

// retryAfter reads a Retry-After header given in seconds. Zero means absent.
func retryAfter(header http.Header, maxDelay time.Duration) time.Duration {
	value := header.Get("Retry-After")
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return 0
	}
	delay := time.Duration(seconds) * time.Second
	if maxDelay > 0 && delay > maxDelay {
		return maxDelay
	}
	return delay
}

// isRetryableStatus checks if an HTTP status code should trigger a retry
func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
