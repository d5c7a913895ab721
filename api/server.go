package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"webanswer/journal"
	"webanswer/tools"

	"go.uber.org/zap"
)

// Answerer is satisfied by *pipeline.Orchestrator.
type Answerer interface {
	GetAnswerFromWeb(ctx context.Context, query string) string
	AnswerAll(ctx context.Context, queries []string, limit int) []string
}

// JournalReader is satisfied by *journal.BoltJournal.
type JournalReader interface {
	Recent(limit int) ([]journal.Entry, error)
}

// Server represents the API server
type Server struct {
	answerer   Answerer
	registry   *tools.Registry
	journal    JournalReader
	batchLimit int
	logger     *zap.Logger
	httpServer *http.Server
}

// NewServer creates a new API server. journal may be nil when journaling is
// disabled.
func NewServer(answerer Answerer, registry *tools.Registry, journal JournalReader, batchLimit int, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = tools.NewRegistry()
	}
	s := &Server{
		answerer:   answerer,
		registry:   registry,
		journal:    journal,
		batchLimit: batchLimit,
		logger:     logger,
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/answer", s.AnswerHandler)
	mux.HandleFunc("/answer/batch", s.BatchAnswerHandler)
	mux.HandleFunc("/tools", s.ListToolsHandler)
	mux.HandleFunc("/tools/{name}", s.InvokeToolHandler)
	mux.HandleFunc("/journal", s.JournalHandler)

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return s.logRequests(mux)
}

// Start serves on addr until Shutdown is called. Calling Shutdown before
// Start makes Start return immediately.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting API server", zap.String("addr", ln.Addr().String()))
	err := s.httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)))
	})
}
