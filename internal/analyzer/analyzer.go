package analyzer

import "context"

// Analyzer runs one analysis and always returns exactly one Result, never nil.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) *Result
}

// Prober is implemented by analyzers that can report their own health
// through the same bounded invocation contract.
type Prober interface {
	Probe(ctx context.Context) *Result
}

// DefaultTickers are analyzed when a request names no ticker.
var DefaultTickers = []string{"AMZN", "TSLA", "AAPL", "MSFT"}
