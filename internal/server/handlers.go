package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/zinc-sig/pulse/internal/analyzer"
	"github.com/zinc-sig/pulse/internal/output"
)

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status    string   `json:"status"`
	Timestamp string   `json:"timestamp"`
	Port      int      `json:"port"`
	Features  []string `json:"features"`
}

type featuresResponse struct {
	Features  []string `json:"features"`
	Tickers   []string `json:"tickers"`
	Timeout   string   `json:"timeout"`
	Endpoints []string `json:"endpoints"`
}

var endpoints = []string{
	"GET /",
	"GET /health",
	"GET /api/features",
	"GET /api/sentiment",
	"GET /api/sentiment/{ticker}",
	"GET /api/analyzer/health",
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writePayload writes an already encoded JSON document unchanged.
func writePayload(w http.ResponseWriter, payload json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Features []string
		Tickers  []string
	}{s.config.Features, s.config.Tickers}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, data); err != nil {
		s.logger.Error("render index", zap.Error(err))
	}
}

// handleHealth reports that the server is up. It never touches the analyzer.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "Server running",
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
		Port:      s.config.Port,
		Features:  s.config.Features,
	})
}

func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, featuresResponse{
		Features:  s.config.Features,
		Tickers:   s.config.Tickers,
		Timeout:   s.config.Timeout.String(),
		Endpoints: endpoints,
	})
}

func (s *Server) handleSentiment(w http.ResponseWriter, r *http.Request) {
	req := analyzer.NewRequest(r.PathValue("ticker"))
	result := s.analyzer.Analyze(r.Context(), req)
	s.finish(w, r, result)
}

func (s *Server) handleAnalyzerHealth(w http.ResponseWriter, r *http.Request) {
	prober, ok := s.analyzer.(analyzer.Prober)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Analyzer does not support health checks"})
		return
	}
	result := prober.Probe(r.Context())
	s.logOutcome(r.Context(), "analyzer probe finished", result)
	s.respond(w, result)
}

// finish logs, publishes and writes the outcome of one analysis.
func (s *Server) finish(w http.ResponseWriter, r *http.Request, result *analyzer.Result) {
	s.logOutcome(r.Context(), "analysis finished", result)
	s.publish(r.Context(), result)
	s.respond(w, result)
}

func (s *Server) respond(w http.ResponseWriter, result *analyzer.Result) {
	if result.OK() {
		writePayload(w, result.Payload)
		return
	}
	writeJSON(w, http.StatusInternalServerError, output.NewErrorBody(result))
}

func (s *Server) logOutcome(ctx context.Context, msg string, result *analyzer.Result) {
	fields := []zap.Field{
		zap.String("ticker", result.Ticker),
		zap.String("status", string(result.Kind)),
		zap.Duration("duration", result.Duration),
		zap.String("request_id", RequestID(ctx)),
	}
	switch result.Kind {
	case analyzer.KindSuccess:
		s.logger.Info(msg, fields...)
	case analyzer.KindProcessFailure:
		s.logger.Warn(msg, append(fields, zap.Int("exit_code", result.ExitCode))...)
	case analyzer.KindTimeout:
		s.logger.Warn(msg, append(fields, zap.String("reason", result.Reason))...)
	default:
		s.logger.Warn(msg, append(fields, zap.String("parse_error", result.ParseError))...)
	}
}

// publish hands a record of result to the publisher without delaying the
// response. Shutdown waits for it.
func (s *Server) publish(ctx context.Context, result *analyzer.Result) {
	if !s.publisher.Enabled() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		s.logger.Warn("server shutting down, record not published",
			zap.String("ticker", result.Ticker),
			zap.String("request_id", RequestID(ctx)))
		return
	}
	record := output.NewRecord(s.newID(), result, s.config.Timeout, s.context)

	ctx = context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.publisher.Publish(ctx, record)
	}()
}
