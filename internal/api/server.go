// Package api serves the calculator over HTTP.
//
// Routes:
//
//	GET  /healthz              build information
//	GET  /v1/operators         the operator table
//	GET  /v1/operators/{name}  one operator
//	GET  /v1/functions         script builtins
//	POST /v1/eval              run a script against a scene
//	GET  /metrics              Prometheus metrics
//
// Every evaluation runs on its own scene and calculator, so requests do not
// share state beyond the result cache.
package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/nodecalc/pkg/config"
	"github.com/matzehuels/nodecalc/pkg/observability"
	"github.com/matzehuels/nodecalc/pkg/optable"
	"github.com/matzehuels/nodecalc/pkg/pipeline"
)

const (
	// DefaultEvalTimeout bounds one evaluation.
	DefaultEvalTimeout = 10 * time.Second

	shutdownTimeout = 5 * time.Second
)

// Options configures a Server.
type Options struct {
	// Runner evaluates scripts. Nil uses an uncached runner.
	Runner *pipeline.Runner

	// Table is the operator table every request compiles against. Request
	// configs cannot load extensions. Nil uses the base table.
	Table *optable.Table

	// Config is the base config request configs overlay.
	Config config.Config

	// EvalTimeout bounds each evaluation. Zero uses DefaultEvalTimeout.
	EvalTimeout time.Duration

	// Registry receives the server's metrics. Nil uses a fresh registry.
	Registry *prometheus.Registry

	Logger *log.Logger
}

// Server is the HTTP API.
type Server struct {
	runner      *pipeline.Runner
	table       *optable.Table
	cfg         config.Config
	evalTimeout time.Duration
	registry    *prometheus.Registry
	metrics     *Metrics
	logger      *log.Logger
	router      chi.Router
}

// New creates a server and its routes. It registers the server's metrics
// as the global observability hooks.
func New(opts Options) *Server {
	s := &Server{
		runner:      opts.Runner,
		table:       opts.Table,
		cfg:         opts.Config,
		evalTimeout: opts.EvalTimeout,
		registry:    opts.Registry,
		logger:      opts.Logger,
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.runner == nil {
		s.runner = pipeline.NewRunner(nil, s.logger)
	}
	if s.table == nil {
		s.table = optable.Base()
	}
	if s.evalTimeout == 0 {
		s.evalTimeout = DefaultEvalTimeout
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = NewMetrics(s.registry)
	s.metrics.Register()
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Route("/v1", func(r chi.Router) {
		r.Get("/operators", s.handleOperators)
		r.Get("/operators/{name}", s.handleOperator)
		r.Get("/functions", s.handleFunctions)
		r.Post("/eval", s.handleEval)
	})
	return r
}

// observe reports each request to the HTTP hooks and logs it.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		d := time.Since(start)
		hooks.OnResponse(r.Context(), r.Method, route, status, d)
		s.logger.Debug("request", "method", r.Method, "route", route, "status", status,
			"duration", d, "id", middleware.GetReqID(r.Context()))
	})
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}
