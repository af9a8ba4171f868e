package output

import "github.com/zinc-sig/pulse/internal/analyzer"

// ErrorBody is the HTTP response body for any failed analysis.
type ErrorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
	Status  string `json:"status,omitempty"`
	Ticker  string `json:"ticker,omitempty"`
}

// NewErrorBody describes a failed analyzer result.
func NewErrorBody(result *analyzer.Result) ErrorBody {
	body := ErrorBody{
		Error:  result.Message(),
		Status: string(result.Kind),
		Ticker: result.Ticker,
	}
	// An empty stderr is no detail at all.
	if details := result.Details(); details != nil && details != "" {
		body.Details = details
	}
	return body
}
