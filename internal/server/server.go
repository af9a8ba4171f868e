// Package server exposes the analyzer over HTTP and serves the status page.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zinc-sig/pulse/internal/analyzer"
	"github.com/zinc-sig/pulse/internal/publish"
)

//go:embed templates
var templateFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

const (
	DefaultPort            = 8501
	DefaultShutdownTimeout = 35 * time.Second
)

// Config is everything the server needs to know about its environment. It is
// resolved by the caller; the server reads no environment variables itself.
type Config struct {
	Port     int
	Features []string
	Tickers  []string
	// Timeout is the analyzer timeout, reported to clients and recorded.
	Timeout time.Duration
	// ShutdownTimeout bounds graceful shutdown, including in-flight analyses
	// and pending deliveries.
	ShutdownTimeout time.Duration
}

// Server serves the pulse HTTP API.
type Server struct {
	config    Config
	analyzer  analyzer.Analyzer
	publisher *publish.Publisher
	context   any
	logger    *zap.Logger
	newID     func() string
	now       func() time.Time

	// pending publishes, drained on shutdown. Once closing is set no new
	// publish is started.
	mu       sync.Mutex
	closing  bool
	inflight sync.WaitGroup
}

type Option func(*Server)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithPublisher delivers a record of every analysis after the response has
// been written.
func WithPublisher(p *publish.Publisher) Option {
	return func(s *Server) { s.publisher = p }
}

// WithRecordContext attaches metadata to every published record.
func WithRecordContext(context any) Option {
	return func(s *Server) { s.context = context }
}

func withClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a Server backed by a.
func New(config Config, a analyzer.Analyzer, opts ...Option) *Server {
	if config.Timeout <= 0 {
		config.Timeout = analyzer.DefaultTimeout
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultShutdownTimeout
	}
	if config.Tickers == nil {
		config.Tickers = analyzer.DefaultTickers
	}
	if config.Features == nil {
		config.Features = []string{}
	}

	s := &Server{
		config:   config,
		analyzer: a,
		logger:   zap.NewNop(),
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Addr is the listen address for the configured port.
func (s *Server) Addr() string {
	return fmt.Sprintf(":%d", s.config.Port)
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/features", s.handleFeatures)
	mux.HandleFunc("GET /api/sentiment", s.handleSentiment)
	mux.HandleFunc("GET /api/sentiment/{ticker}", s.handleSentiment)
	mux.HandleFunc("GET /api/analyzer/health", s.handleAnalyzerHealth)

	return s.recoverer(s.requestID(s.accessLog(mux)))
}

// Start listens on the configured port and serves until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled, then shuts down
// gracefully and waits for pending deliveries.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(s.logger),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		shutdownErr := srv.Shutdown(shutdownCtx)
		drainErr := s.drain(shutdownCtx)
		if shutdownErr != nil {
			return fmt.Errorf("shutdown: %w", shutdownErr)
		}
		return drainErr
	})
	return g.Wait()
}

// Wait blocks until every pending publish has finished.
func (s *Server) Wait() {
	s.inflight.Wait()
}

// drain stops new publishes and waits for pending ones until ctx is done.
func (s *Server) drain(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.logger.Warn("pending deliveries not drained before shutdown deadline")
		return fmt.Errorf("drain deliveries: %w", ctx.Err())
	}
}
