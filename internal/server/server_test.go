package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zinc-sig/pulse/internal/analyzer"
	"github.com/zinc-sig/pulse/internal/output"
	"github.com/zinc-sig/pulse/internal/publish"
	"github.com/zinc-sig/pulse/internal/upload"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

type stubAnalyzer struct {
	mu       sync.Mutex
	requests []analyzer.Request
	result   func(analyzer.Request) *analyzer.Result
}

func (s *stubAnalyzer) Analyze(ctx context.Context, req analyzer.Request) *analyzer.Result {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return s.result(req)
}

func (s *stubAnalyzer) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type probingStub struct {
	stubAnalyzer
	probe *analyzer.Result
}

func (p *probingStub) Probe(ctx context.Context) *analyzer.Result {
	return p.probe
}

func returning(result analyzer.Result) *stubAnalyzer {
	return &stubAnalyzer{result: func(req analyzer.Request) *analyzer.Result {
		r := result
		r.Ticker = req.Ticker
		return &r
	}}
}

var testConfig = Config{
	Port:     8501,
	Features: []string{"Stock sentiment analysis from Finviz news", "Real-time sentiment scoring"},
	Timeout:  30 * time.Second,
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	stub := returning(analyzer.Result{Kind: analyzer.KindSuccess, Payload: json.RawMessage(`{}`)})
	fixed := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	srv := New(testConfig, stub, withClock(func() time.Time { return fixed }))

	rec := get(t, srv.Handler(), "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decode[healthResponse](t, rec)
	assert.Equal(t, "Server running", body.Status)
	assert.Equal(t, "2026-10-17T12:00:00Z", body.Timestamp)
	assert.Equal(t, 8501, body.Port)
	assert.Equal(t, testConfig.Features, body.Features)
	assert.Zero(t, stub.calls(), "health must not invoke the analyzer")
}

func TestHealthWhenAnalyzerBroken(t *testing.T) {
	stub := &stubAnalyzer{result: func(analyzer.Request) *analyzer.Result { panic("must not be called") }}
	rec := get(t, New(testConfig, stub).Handler(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFeatures(t *testing.T) {
	srv := New(testConfig, returning(analyzer.Result{}))
	rec := get(t, srv.Handler(), "/api/features")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[featuresResponse](t, rec)
	assert.Equal(t, testConfig.Features, body.Features)
	assert.Equal(t, []string{"AMZN", "TSLA", "AAPL", "MSFT"}, body.Tickers)
	assert.Equal(t, "30s", body.Timeout)
	assert.Contains(t, body.Endpoints, "GET /api/sentiment/{ticker}")
}

func TestIndex(t *testing.T) {
	srv := New(testConfig, returning(analyzer.Result{}))
	rec := get(t, srv.Handler(), "/")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	page := rec.Body.String()
	assert.Contains(t, page, "Sentiment Analyzer")
	assert.Contains(t, page, "Stock sentiment analysis from Finviz news")
	assert.Contains(t, page, `<option value="TSLA">TSLA</option>`)
	assert.Contains(t, page, "/api/sentiment")
}

func TestRoutingMisses(t *testing.T) {
	h := New(testConfig, returning(analyzer.Result{})).Handler()

	assert.Equal(t, http.StatusNotFound, get(t, h, "/nope").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/sentiment/AAPL/extra").Code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sentiment", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSentimentSuccessPassesPayloadThrough(t *testing.T) {
	payload := `{"success": true, "data": {"AAPL": {"compound_score": 0.1234}}}`
	stub := returning(analyzer.Result{Kind: analyzer.KindSuccess, Payload: json.RawMessage(payload)})
	h := New(testConfig, stub).Handler()

	rec := get(t, h, "/api/sentiment")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, payload, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = get(t, h, "/api/sentiment/tsla")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, 2, stub.calls())
	assert.True(t, stub.requests[0].All())
	assert.Equal(t, "TSLA", stub.requests[1].Ticker)
}

func TestSentimentFailures(t *testing.T) {
	tests := []struct {
		name        string
		result      analyzer.Result
		wantError   string
		wantStatus  string
		wantDetails any
	}{
		{
			name:        "parse failure carries raw output",
			result:      analyzer.Result{Kind: analyzer.KindParseFailure, Raw: "Traceback (most recent call last)"},
			wantError:   "Failed to parse analysis results",
			wantStatus:  "parse_failure",
			wantDetails: "Traceback (most recent call last)",
		},
		{
			name:        "process failure carries stderr",
			result:      analyzer.Result{Kind: analyzer.KindProcessFailure, ExitCode: 2, Stderr: "ModuleNotFoundError: nltk"},
			wantError:   "Analyzer exited with code 2",
			wantStatus:  "process_failure",
			wantDetails: "ModuleNotFoundError: nltk",
		},
		{
			name:        "signal death is not reported as a start failure",
			result:      analyzer.Result{Kind: analyzer.KindProcessFailure, ExitCode: -1, Signal: 9, Stderr: "boom"},
			wantError:   "Analyzer killed by signal 9",
			wantStatus:  "process_failure",
			wantDetails: "boom",
		},
		{
			name:       "timeout",
			result:     analyzer.Result{Kind: analyzer.KindTimeout, Reason: analyzer.ReasonDeadline, Timeout: 30 * time.Second},
			wantError:  "Analysis timed out after 30s",
			wantStatus: "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, New(testConfig, returning(tt.result)).Handler(), "/api/sentiment/AAPL")

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			body := decode[output.ErrorBody](t, rec)
			assert.Equal(t, tt.wantError, body.Error)
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, tt.wantDetails, body.Details)
			assert.Equal(t, "AAPL", body.Ticker)
		})
	}
}

// sh script standing in for the analyzer program; $1 is the command and $2
// the ticker.
func processAnalyzer(body string, timeout time.Duration) *analyzer.ProcessAnalyzer {
	return analyzer.NewProcessAnalyzer(analyzer.ProcessConfig{
		Command: "sh",
		Args:    []string{"-c", body, "analyzer"},
		Timeout: timeout,
	}, nil)
}

func TestSentimentInvokesAnalyzerWithUppercaseTicker(t *testing.T) {
	a := processAnalyzer(`printf '{"command":"%s","ticker":"%s","argc":%d}' "$1" "$2" "$#"`, 5*time.Second)
	h := New(testConfig, a).Handler()

	rec := get(t, h, "/api/sentiment/aapl")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"command":"analyze","ticker":"AAPL","argc":2}`, rec.Body.String())

	rec = get(t, h, "/api/sentiment")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"command":"analyze","ticker":"","argc":1}`, rec.Body.String())
}

func TestSentimentProcessOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantError string
		details   string
	}{
		{"invalid json", `echo 'not json'`, "Failed to parse analysis results", "not json\n"},
		{"non-zero exit", `echo 'boom' >&2; exit 3`, "Analyzer exited with code 3", "boom\n"},
		{"timeout", `sleep 5`, "Analysis timed out after 200ms", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(testConfig, processAnalyzer(tt.body, 200*time.Millisecond)).Handler()

			start := time.Now()
			rec := get(t, h, "/api/sentiment/AAPL")
			assert.Less(t, time.Since(start), 3*time.Second)

			require.Equal(t, http.StatusInternalServerError, rec.Code)
			body := decode[output.ErrorBody](t, rec)
			assert.Equal(t, tt.wantError, body.Error)
			if tt.details == "" {
				assert.Nil(t, body.Details)
			} else {
				assert.Equal(t, tt.details, body.Details)
			}
		})
	}
}

func TestSentimentClientDisconnectKillsAnalyzer(t *testing.T) {
	h := New(testConfig, processAnalyzer(`sleep 5`, 30*time.Second)).Handler()

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/sentiment", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	time.AfterFunc(100*time.Millisecond, cancel)
	start := time.Now()
	h.ServeHTTP(rec, req)

	assert.Less(t, time.Since(start), 3*time.Second)
	body := decode[output.ErrorBody](t, rec)
	assert.Equal(t, "Analysis canceled", body.Error)
	assert.Equal(t, "timeout", body.Status)
}

func TestAnalyzerHealth(t *testing.T) {
	t.Run("not supported", func(t *testing.T) {
		rec := get(t, New(testConfig, returning(analyzer.Result{})).Handler(), "/api/analyzer/health")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("healthy", func(t *testing.T) {
		stub := &probingStub{probe: &analyzer.Result{
			Kind:    analyzer.KindSuccess,
			Payload: json.RawMessage(`{"status":"Python API is working","nltk_available":true}`),
		}}
		rec := get(t, New(testConfig, stub).Handler(), "/api/analyzer/health")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"Python API is working","nltk_available":true}`, rec.Body.String())
	})

	t.Run("process analyzer health command", func(t *testing.T) {
		a := processAnalyzer(`[ "$1" = health ] && echo '{"status":"ok"}' || exit 9`, 5*time.Second)
		rec := get(t, New(testConfig, a).Handler(), "/api/analyzer/health")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("unhealthy", func(t *testing.T) {
		stub := &probingStub{probe: &analyzer.Result{Kind: analyzer.KindProcessFailure, ExitCode: 1, Stderr: "no nltk"}}
		rec := get(t, New(testConfig, stub).Handler(), "/api/analyzer/health")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "no nltk", decode[output.ErrorBody](t, rec).Details)
	})
}

func TestRecovererReturnsJSON(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	stub := &stubAnalyzer{result: func(analyzer.Request) *analyzer.Result { panic("analyzer exploded") }}
	h := New(testConfig, stub, WithLogger(zap.New(core))).Handler()

	rec := get(t, h, "/api/sentiment")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decode[errorResponse](t, rec).Error)
	require.Equal(t, 1, logs.FilterMessage("handler panic").Len())
}

func TestRequestID(t *testing.T) {
	h := New(testConfig, returning(analyzer.Result{})).Handler()

	rec := get(t, h, "/health")
	generated := rec.Header().Get(HeaderRequestID)
	assert.Len(t, generated, 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))
}

func TestOutcomeLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	stub := returning(analyzer.Result{Kind: analyzer.KindProcessFailure, ExitCode: 4})
	h := New(testConfig, stub, WithLogger(zap.New(core))).Handler()

	get(t, h, "/api/sentiment/msft")

	entries := logs.FilterMessage("analysis finished").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "MSFT", fields["ticker"])
	assert.Equal(t, "process_failure", fields["status"])
	assert.Equal(t, int64(4), fields["exit_code"])
}

type memoryArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryArchive) Name() string { return "memory" }

func (m *memoryArchive) Configure(context.Context, map[string]any) error { return nil }

func (m *memoryArchive) Upload(_ context.Context, r io.Reader, object upload.Object) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[object.Path] = data
	return nil
}

func TestPublishesRecords(t *testing.T) {
	archive := &memoryArchive{objects: map[string][]byte{}}
	stub := returning(analyzer.Result{Kind: analyzer.KindSuccess, Payload: json.RawMessage(`{"success":true}`)})
	srv := New(testConfig, stub,
		WithPublisher(publish.New(publish.WithArchive(archive))),
		WithRecordContext(map[string]any{"desk": "equities"}),
	)

	rec := get(t, srv.Handler(), "/api/sentiment/amzn")
	require.Equal(t, http.StatusOK, rec.Code)
	srv.Wait()

	archive.mu.Lock()
	defer archive.mu.Unlock()
	require.Len(t, archive.objects, 1)
	for path, data := range archive.objects {
		assert.True(t, strings.HasSuffix(path, ".json"))
		var record output.Record
		require.NoError(t, json.Unmarshal(data, &record))
		assert.Equal(t, "AMZN", record.Ticker)
		assert.Equal(t, "success", record.Status)
		assert.Equal(t, map[string]any{"desk": "equities"}, record.Context)
		assert.EqualValues(t, 30000, *record.Timeout)
	}
}

// blockingArchive holds every upload until release is closed.
type blockingArchive struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingArchive) Name() string { return "blocking" }

func (b *blockingArchive) Configure(context.Context, map[string]any) error { return nil }

func (b *blockingArchive) Upload(_ context.Context, r io.Reader, _ upload.Object) error {
	_, _ = io.Copy(io.Discard, r)
	b.started <- struct{}{}
	<-b.release
	return nil
}

func TestNoPublishAfterDrainStarts(t *testing.T) {
	archive := &memoryArchive{objects: map[string][]byte{}}
	stub := returning(analyzer.Result{Kind: analyzer.KindSuccess, Payload: json.RawMessage(`{}`)})
	srv := New(testConfig, stub, WithPublisher(publish.New(publish.WithArchive(archive))))

	require.NoError(t, srv.drain(context.Background()))

	rec := get(t, srv.Handler(), "/api/sentiment/aapl")
	assert.Equal(t, http.StatusOK, rec.Code)
	srv.Wait()

	archive.mu.Lock()
	defer archive.mu.Unlock()
	assert.Empty(t, archive.objects)
}

func TestServeShutdownBoundsDrain(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	archive := &blockingArchive{started: make(chan struct{}, 1), release: make(chan struct{})}
	t.Cleanup(func() {
		close(archive.release)
	})

	config := testConfig
	config.ShutdownTimeout = 200 * time.Millisecond
	stub := returning(analyzer.Result{Kind: analyzer.KindSuccess, Payload: json.RawMessage(`{}`)})
	srv := New(config, stub, WithPublisher(publish.New(publish.WithArchive(archive))))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + ln.Addr().String() + "/api/sentiment/tsla")
	require.NoError(t, err)
	_ = resp.Body.Close()

	select {
	case <-archive.started:
	case <-time.After(5 * time.Second):
		t.Fatal("archive upload never started")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown waited on a stuck delivery past its deadline")
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(testConfig, returning(analyzer.Result{}))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestAddr(t *testing.T) {
	assert.Equal(t, ":8501", New(Config{Port: 8501}, returning(analyzer.Result{})).Addr())
	assert.Equal(t, ":3000", New(Config{Port: 3000}, returning(analyzer.Result{})).Addr())
}
