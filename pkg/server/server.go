// Package server serves freshly generated charts over HTTP.
//
// Routes:
//
//	GET /chart.svg    animated SVG; simulation errors yield an empty chart
//	GET /chart.png    static PNG; simulation errors yield a blank image
//	GET /chart.json   curves and animation settings; errors are JSON
//	GET /healthz      liveness probe
//	GET /version      build information
//	GET /metrics      Prometheus metrics, when configured
//
// Chart endpoints accept the query parameters steps, initial, drift,
// volatility, dt, curves, seed, duration, fade, easing, width, height and
// static. Unset parameters keep the server's defaults.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/factorial/trendline/pkg/buildinfo"
	"github.com/factorial/trendline/pkg/errors"
	"github.com/factorial/trendline/pkg/observability"
	"github.com/factorial/trendline/pkg/pipeline"
)

// ErrorHeader carries the simulation error behind an empty fallback chart.
const ErrorHeader = "X-Trendline-Error"

const shutdownTimeout = 10 * time.Second

// DefaultMaxPoints caps steps × curves for a single request, well below
// the pipeline's own limit.
const DefaultMaxPoints = 100_000

// Config configures a Server.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Defaults are the chart options query parameters are applied to.
	Defaults pipeline.Options

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler

	// MaxPoints caps steps × curves per request. Zero means DefaultMaxPoints.
	MaxPoints int
}

// Server is the chart HTTP server.
type Server struct {
	cfg    Config
	runner *pipeline.Runner
	logger *log.Logger
	router chi.Router
}

// New builds a server around runner.
func New(runner *pipeline.Runner, logger *log.Logger, cfg Config) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.MaxPoints <= 0 {
		cfg.MaxPoints = DefaultMaxPoints
	}
	s := &Server{cfg: cfg, runner: runner, logger: logger}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/chart.svg", s.handleChart(pipeline.FormatSVG, "image/svg+xml", true))
	r.Get("/chart.png", s.handleChart(pipeline.FormatPNG, "image/png", true))
	r.Get("/chart.json", s.handleChart(pipeline.FormatJSON, "application/json", false))
	r.Get("/healthz", s.handleHealth)
	r.Get("/version", s.handleVersion)
	if s.cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.cfg.Metrics)
	}
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// handleChart renders one format. With fallback, simulation errors produce
// an empty chart and the error is reported in ErrorHeader.
func (s *Server) handleChart(format, contentType string, fallback bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts, err := parseQuery(r.URL.Query(), s.cfg.Defaults)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := opts.ValidateSize(s.cfg.MaxPoints); err != nil {
			writeError(w, err)
			return
		}
		opts.Formats = []string{format}
		opts.Fallback = fallback

		result, err := s.runner.Execute(r.Context(), opts)
		if err != nil {
			writeError(w, err)
			return
		}

		if result.Fallback != nil {
			w.Header().Set(ErrorHeader, errors.UserMessage(result.Fallback))
		}
		if opts.Seed != 0 && result.Fallback == nil {
			w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
		} else {
			w.Header().Set("Cache-Control", "no-store")
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(result.Artifacts[format])
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Get())
}

// logRequests logs each request and reports it to the HTTP hooks.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		observability.HTTP().OnRequest(r.Context(), r.Method, r.URL.Path)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		d := time.Since(start)
		observability.HTTP().OnResponse(r.Context(), r.Method, route, status, d)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", d,
			"request_id", middleware.GetReqID(r.Context()))
	})
}

type errorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, statusFor(code), errorBody{Code: code, Message: errors.UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidParameter, errors.ErrCodeDegenerateDraw,
		errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat,
		errors.ErrCodeInvalidEasing:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
