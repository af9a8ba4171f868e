package output

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zinc-sig/pulse/internal/analyzer"
)

func TestNewRecord(t *testing.T) {
	tests := []struct {
		name   string
		result *analyzer.Result
		want   map[string]any
		absent []string
	}{
		{
			name: "success",
			result: &analyzer.Result{
				Kind:     analyzer.KindSuccess,
				Ticker:   "AAPL",
				Command:  "python3 api_wrapper.py analyze AAPL",
				Payload:  json.RawMessage(`{"success":true}`),
				Duration: 1500 * time.Millisecond,
			},
			want: map[string]any{
				"status":         "success",
				"ticker":         "AAPL",
				"exit_code":      float64(0),
				"execution_time": float64(1500),
				"timeout":        float64(30000),
				"payload":        map[string]any{"success": true},
			},
			absent: []string{"error", "stderr", "stdout", "reason"},
		},
		{
			name: "parse failure",
			result: &analyzer.Result{
				Kind:       analyzer.KindParseFailure,
				Raw:        "oops",
				ParseError: "invalid character 'o'",
			},
			want: map[string]any{
				"status": "parse_failure",
				"stdout": "oops",
				"error":  "Failed to parse analysis results",
				"reason": "invalid character 'o'",
			},
			absent: []string{"payload", "ticker"},
		},
		{
			name: "process failure",
			result: &analyzer.Result{
				Kind:     analyzer.KindProcessFailure,
				ExitCode: 2,
				Stderr:   "boom",
			},
			want: map[string]any{
				"status":    "process_failure",
				"exit_code": float64(2),
				"stderr":    "boom",
			},
			absent: []string{"payload", "stdout", "signal"},
		},
		{
			name: "killed by signal",
			result: &analyzer.Result{
				Kind:     analyzer.KindProcessFailure,
				ExitCode: -1,
				Signal:   9,
				Stderr:   "boom",
			},
			want: map[string]any{
				"status":    "process_failure",
				"exit_code": float64(-1),
				"signal":    float64(9),
				"error":     "Analyzer killed by signal 9",
			},
			absent: []string{"payload", "stdout"},
		},
		{
			name: "timeout",
			result: &analyzer.Result{
				Kind:    analyzer.KindTimeout,
				Reason:  analyzer.ReasonDeadline,
				Timeout: 30 * time.Second,
			},
			want: map[string]any{
				"status": "timeout",
				"reason": "deadline",
				"error":  "Analysis timed out after 30s",
			},
			absent: []string{"exit_code", "payload"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := NewRecord("id-1", tt.result, 30*time.Second, nil)

			data, err := json.Marshal(record)
			require.NoError(t, err)

			var got map[string]any
			require.NoError(t, json.Unmarshal(data, &got))

			assert.Equal(t, "id-1", got["id"])
			for key, value := range tt.want {
				assert.Equal(t, value, got[key], "field %s", key)
			}
			for _, key := range tt.absent {
				assert.NotContains(t, got, key)
			}
		})
	}
}

func TestWebhookPayloadDropsDeliveryFields(t *testing.T) {
	record := &Record{ID: "x", Status: "success", WebhookSent: true, WebhookError: "e", Archived: "a"}

	payload := record.WebhookPayload()

	assert.False(t, payload.WebhookSent)
	assert.Empty(t, payload.WebhookError)
	assert.Empty(t, payload.Archived)
	assert.True(t, record.WebhookSent, "original must be untouched")
}

func TestNewErrorBody(t *testing.T) {
	body := NewErrorBody(&analyzer.Result{Kind: analyzer.KindProcessFailure, ExitCode: 1, Stderr: "trace", Ticker: "TSLA"})
	assert.Equal(t, "Analyzer exited with code 1", body.Error)
	assert.Equal(t, "trace", body.Details)
	assert.Equal(t, "TSLA", body.Ticker)

	body = NewErrorBody(&analyzer.Result{Kind: analyzer.KindProcessFailure, ExitCode: 1})
	assert.Nil(t, body.Details)

	body = NewErrorBody(&analyzer.Result{Kind: analyzer.KindTimeout, Reason: analyzer.ReasonDeadline})
	assert.Equal(t, "Analysis timed out", body.Error)
	assert.Nil(t, body.Details)
}
