package output

import (
	"encoding/json"
	"time"

	"github.com/zinc-sig/pulse/internal/analyzer"
)

// Record is the JSON document describing one analyzer invocation. It is
// printed by the CLI and delivered to webhooks and the archive.
type Record struct {
	ID            string          `json:"id"`
	Command       string          `json:"command"`
	Ticker        string          `json:"ticker,omitempty"`
	Status        string          `json:"status"`
	ExitCode      *int            `json:"exit_code,omitempty"`
	Signal        int             `json:"signal,omitempty"`
	ExecutionTime int64           `json:"execution_time"`       // milliseconds
	Timeout       *int64          `json:"timeout,omitempty"`    // milliseconds
	Payload       json.RawMessage `json:"payload,omitempty"`
	Error         string          `json:"error,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	Stdout        string          `json:"stdout,omitempty"`
	Stderr        string          `json:"stderr,omitempty"`
	Context       any             `json:"context,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`

	// Delivery status (only in local output, not sent to webhook)
	WebhookSent  bool   `json:"webhook_sent,omitempty"`
	WebhookError string `json:"webhook_error,omitempty"`
	Archived     string `json:"archived,omitempty"`
	ArchiveError string `json:"archive_error,omitempty"`
}

// NewRecord flattens an analyzer result into a Record.
func NewRecord(id string, result *analyzer.Result, timeout time.Duration, context any) *Record {
	record := &Record{
		ID:            id,
		Command:       result.Command,
		Ticker:        result.Ticker,
		Status:        string(result.Kind),
		ExecutionTime: result.Duration.Milliseconds(),
		Error:         result.Message(),
		Context:       context,
		CreatedAt:     time.Now().UTC(),
	}

	if timeout > 0 {
		timeoutMs := timeout.Milliseconds()
		record.Timeout = &timeoutMs
	}

	switch result.Kind {
	case analyzer.KindSuccess:
		zero := 0
		record.ExitCode = &zero
		record.Payload = result.Payload
	case analyzer.KindParseFailure:
		zero := 0
		record.ExitCode = &zero
		record.Stdout = result.Raw
		record.Reason = result.ParseError
	case analyzer.KindProcessFailure:
		exitCode := result.ExitCode
		record.ExitCode = &exitCode
		record.Signal = result.Signal
		record.Stderr = result.Stderr
	case analyzer.KindTimeout:
		record.Reason = result.Reason
	}

	return record
}

// WebhookPayload returns a copy without the local delivery fields.
func (r *Record) WebhookPayload() *Record {
	payload := *r
	payload.WebhookSent = false
	payload.WebhookError = ""
	payload.Archived = ""
	payload.ArchiveError = ""
	return &payload
}
