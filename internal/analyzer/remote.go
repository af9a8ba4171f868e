package analyzer

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// RemoteConfig points at an analyzer served over HTTP. The service answers
// GET /analyze, GET /analyze/{ticker} and GET /health with one JSON document.
type RemoteConfig struct {
	URL     string
	Timeout time.Duration
	Headers map[string]string
}

// RemoteAnalyzer calls an analyzer service instead of spawning a process.
// HTTP status codes >= 400 stand in for a non-zero exit code.
type RemoteAnalyzer struct {
	client  *resty.Client
	timeout time.Duration
	logger  *zap.Logger
}

func NewRemoteAnalyzer(config RemoteConfig, logger *zap.Logger) *RemoteAnalyzer {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New()
	client.SetBaseURL(config.URL)
	client.SetTimeout(config.Timeout)
	client.SetHeader("Accept", "application/json")
	client.SetHeaders(config.Headers)

	return &RemoteAnalyzer{client: client, timeout: config.Timeout, logger: logger}
}

func (r *RemoteAnalyzer) Analyze(ctx context.Context, req Request) *Result {
	if req.All() {
		return r.get(ctx, "", "/analyze", nil)
	}
	return r.get(ctx, req.Ticker, "/analyze/{ticker}", map[string]string{"ticker": req.Ticker})
}

func (r *RemoteAnalyzer) Probe(ctx context.Context) *Result {
	return r.get(ctx, "", "/health", nil)
}

func (r *RemoteAnalyzer) get(ctx context.Context, ticker, path string, params map[string]string) *Result {
	request := r.client.R().SetContext(ctx)
	if params != nil {
		request.SetPathParams(params)
	}

	start := time.Now()
	resp, err := request.Get(path)
	result := &Result{
		Ticker:   ticker,
		Command:  "GET " + r.client.BaseURL + path,
		Duration: time.Since(start),
	}
	if resp != nil && resp.Request != nil {
		result.Command = "GET " + resp.Request.URL
	}

	if err != nil {
		switch {
		case ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled):
			result.Kind = KindTimeout
			result.Reason = ReasonCanceled
		case isTimeout(err):
			result.Kind = KindTimeout
			result.Reason = ReasonDeadline
		default:
			r.logger.Error("remote analyzer request failed", zap.String("url", result.Command), zap.Error(err))
			result.Kind = KindProcessFailure
			result.ExitCode = -1
			result.Stderr = err.Error()
			result.RequestError = err.Error()
			return result
		}
		result.Timeout = r.timeout
		result.ExitCode = -1
		return result
	}

	if resp.IsError() {
		result.Kind = KindProcessFailure
		result.ExitCode = resp.StatusCode()
		result.Stderr = resp.String()
		return result
	}

	return fromOutput(result, resp.Body())
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
