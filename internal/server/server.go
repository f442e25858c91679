// Package server exposes the fan-out orchestrator over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ppiankov/chorus/internal/fanout"
	"github.com/ppiankov/chorus/internal/model"
	"github.com/ppiankov/chorus/internal/synth"
)

// Defaults for Options
const (
	DefaultRequestTimeout  = 3 * time.Minute
	DefaultShutdownTimeout = 10 * time.Second
)

// Backend is the orchestrator surface the handlers use
type Backend interface {
	Run(ctx context.Context, req fanout.RunRequest) (*fanout.RunResult, error)
	Summarize(ctx context.Context, req fanout.SummarizeRequest) (synth.Result, error)
	Expand(ctx context.Context, req fanout.ExpandRequest) ([]model.ProviderAnswer, error)
	Status(ctx context.Context) fanout.Status
}

// HistoryReader serves stored runs
type HistoryReader interface {
	Get(id string) (*model.RunRecord, error)
	List(fingerprint string) []model.RunRecord
}

// Options configures a Server
type Options struct {
	History          HistoryReader // nil disables the history routes' data
	DefaultProviders []model.ProviderName
	RequestTimeout   time.Duration
	Logger           *zap.Logger
}

// Server serves the JSON API
type Server struct {
	backend   Backend
	history   HistoryReader
	providers []model.ProviderName
	timeout   time.Duration
	logger    *zap.Logger
	validate  *validator.Validate
}

// New creates a server around backend
func New(backend Backend, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if len(opts.DefaultProviders) == 0 {
		opts.DefaultProviders = model.AllProviders()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Server{
		backend:   backend,
		history:   opts.History,
		providers: opts.DefaultProviders,
		timeout:   opts.RequestTimeout,
		logger:    opts.Logger,
		validate:  v,
	}
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(recoverer(s.logger))
	r.Use(requestLogger(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(s.timeout))
		r.Post("/query", s.handleQuery)
		r.Post("/meta-summary", s.handleMetaSummary)
		r.Post("/expand", s.handleExpand)
		r.Get("/config", s.handleConfig)
		r.Get("/history", s.handleHistoryList)
		r.Get("/history/{id}", s.handleHistoryGet)
	})

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
