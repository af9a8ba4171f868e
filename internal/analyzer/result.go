package analyzer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Kind tags the outcome of one analyzer invocation.
type Kind string

const (
	KindSuccess        Kind = "success"
	KindParseFailure   Kind = "parse_failure"
	KindProcessFailure Kind = "process_failure"
	KindTimeout        Kind = "timeout"
)

// Timeout reasons.
const (
	ReasonDeadline = "deadline"
	ReasonCanceled = "canceled"
)

// Request selects what to analyze. An empty Ticker means every ticker the
// analyzer supports.
type Request struct {
	Ticker string
}

// NewRequest uppercases the ticker. Nothing else is validated; unknown
// symbols are the analyzer's problem.
func NewRequest(ticker string) Request {
	return Request{Ticker: strings.ToUpper(ticker)}
}

// All reports whether the request covers every supported ticker.
func (r Request) All() bool {
	return r.Ticker == ""
}

// Args returns the positional arguments passed to the analyzer program.
func (r Request) Args() []string {
	if r.All() {
		return []string{"analyze"}
	}
	return []string{"analyze", r.Ticker}
}

// Result is the single terminal outcome of an invocation. Only the fields
// belonging to Kind are meaningful.
type Result struct {
	Kind    Kind
	Ticker  string
	Command string

	// success
	Payload json.RawMessage

	// parse_failure
	Raw        string
	ParseError string

	// process_failure
	ExitCode int
	Signal   int // set when the analyzer was killed by a signal
	Stderr   string
	// StartError is set when the analyzer process could not be started,
	// RequestError when a remote analyzer could not be reached. ExitCode is
	// -1 in both cases.
	StartError   string
	RequestError string

	// timeout
	Reason  string
	Timeout time.Duration

	Duration time.Duration
}

// OK reports whether the invocation produced a decoded payload.
func (r *Result) OK() bool {
	return r.Kind == KindSuccess
}

// Message is the client facing description of a failed outcome.
func (r *Result) Message() string {
	switch r.Kind {
	case KindSuccess:
		return ""
	case KindParseFailure:
		return "Failed to parse analysis results"
	case KindProcessFailure:
		switch {
		case r.StartError != "":
			return "Failed to start analyzer"
		case r.RequestError != "":
			return "Analyzer request failed"
		case r.Signal > 0:
			return fmt.Sprintf("Analyzer killed by signal %d", r.Signal)
		}
		return fmt.Sprintf("Analyzer exited with code %d", r.ExitCode)
	case KindTimeout:
		if r.Reason == ReasonCanceled {
			return "Analysis canceled"
		}
		if r.Timeout > 0 {
			return fmt.Sprintf("Analysis timed out after %s", r.Timeout)
		}
		return "Analysis timed out"
	default:
		return "Unknown analyzer outcome"
	}
}

// Details carries the diagnostics for a failed outcome, or nil.
func (r *Result) Details() any {
	switch r.Kind {
	case KindParseFailure:
		return r.Raw
	case KindProcessFailure:
		return r.Stderr
	default:
		return nil
	}
}

var errTrailingData = errors.New("unexpected data after JSON value")

// decodePayload accepts exactly one JSON value, optionally surrounded by
// whitespace.
func decodePayload(data []byte) (json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	var payload json.RawMessage
	if err := dec.Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty output")
		}
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return payload, nil
}

// fromOutput builds a success or parse_failure result from the analyzer's
// complete standard output.
func fromOutput(result *Result, stdout []byte) *Result {
	payload, err := decodePayload(stdout)
	if err != nil {
		result.Kind = KindParseFailure
		result.Raw = string(stdout)
		result.ParseError = err.Error()
		return result
	}
	result.Kind = KindSuccess
	result.Payload = payload
	return result
}
