package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"sprint-metrics/domain"
	"sprint-metrics/metrics"
	"sprint-metrics/report"
	"sprint-metrics/service"
)

const maxBodyBytes = 5 << 20

// Analytics is the query surface the server exposes
type Analytics interface {
	Overall(ctx context.Context) (metrics.OverallAnalytics, error)
	StoryAnalytics(ctx context.Context) (metrics.StoryAnalytics, error)
	Metrics(ctx context.Context) (metrics.Bundle, error)
	Sprint(ctx context.Context, name string) (metrics.SprintAnalytics, error)
	Readiness(ctx context.Context, name string) (metrics.Readiness, error)
	Burndown(ctx context.Context, name string) ([]metrics.BurndownPoint, error)
	StoryChecklist(ctx context.Context, id string) (metrics.StoryChecklist, error)
	ScoreSnapshot(raw []byte, sprintName string) (metrics.Readiness, error)
}

// Server handles HTTP requests
type Server struct {
	Router *chi.Mux
	svc    Analytics
	log    zerolog.Logger
}

// NewServer creates a new web server
func NewServer(svc Analytics, log zerolog.Logger) *Server {
	s := &Server{svc: svc, log: log}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute)) // 2 minute timeout for API requests

	// Health check endpoint
	r.Get("/health", s.healthCheck)

	// API endpoints
	r.Route("/api", func(r chi.Router) {
		r.Get("/metrics", s.getMetrics)
		r.Get("/analytics/overall", s.getOverall)
		r.Get("/analytics/overall/csv", s.getOverallCSV)
		r.Get("/analytics/stories", s.getStoryAnalytics)
		r.Get("/analytics/sprint/{name}", s.getSprintAnalytics)
		r.Get("/sprints/{name}/readiness", s.getReadiness)
		r.Get("/sprints/{name}/burndown", s.getBurndown)
		r.Get("/stories/{id}/readiness", s.getStoryChecklist)
		r.Post("/readiness", s.postReadiness)
	})

	s.Router = r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http")
	})
}

// healthCheck returns server health status
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "sprint-metrics-api",
	})
}

func (s *Server) respond(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "success",
		"data":      data,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrSprintNotFound), errors.Is(err, service.ErrStoryNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidPayload):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("❌ request failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "error",
		"error":     err.Error(),
		"timestamp": time.Now().UTC(),
	})
}

// getMetrics returns the raw story and task reducer output
func (s *Server) getMetrics(w http.ResponseWriter, r *http.Request) {
	bundle, err := s.svc.Metrics(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, bundle)
}

// getOverall returns the dashboard roll-up
func (s *Server) getOverall(w http.ResponseWriter, r *http.Request) {
	overall, err := s.svc.Overall(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, overall)
}

// getOverallCSV downloads the dashboard roll-up as CSV
func (s *Server) getOverallCSV(w http.ResponseWriter, r *http.Request) {
	overall, err := s.svc.Overall(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="sprint-metrics.csv"`)
	if err := report.WriteCSV(w, overall); err != nil {
		s.log.Error().Err(err).Msg("❌ writing csv")
	}
}

func (s *Server) getStoryAnalytics(w http.ResponseWriter, r *http.Request) {
	sa, err := s.svc.StoryAnalytics(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, sa)
}

func (s *Server) getSprintAnalytics(w http.ResponseWriter, r *http.Request) {
	sa, err := s.svc.Sprint(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, sa)
}

func (s *Server) getReadiness(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Readiness(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, res)
}

func (s *Server) getBurndown(w http.ResponseWriter, r *http.Request) {
	series, err := s.svc.Burndown(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, series)
}

func (s *Server) getStoryChecklist(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.StoryChecklist(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, res)
}

// postReadiness scores the stories in the request body; ?sprint= labels the result
func (s *Server) postReadiness(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err))
		return
	}
	res, err := s.svc.ScoreSnapshot(body, r.URL.Query().Get("sprint"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, res)
}

// HTTPServer wraps the router in an http.Server bound to addr
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Serve runs the web server until ctx is cancelled, then drains open requests
func (s *Server) Serve(ctx context.Context, addr string) error {
	s.log.Info().Str("addr", addr).Msg("🚀 Starting Sprint Metrics API Server")
	s.log.Info().Msg("📊 Available endpoints:")
	for _, ep := range []string{
		"GET /health - Health check",
		"GET /api/metrics - Story and task metrics",
		"GET /api/analytics/overall - Dashboard analytics",
		"GET /api/analytics/overall/csv - Download CSV report",
		"GET /api/analytics/stories - Backlog analytics",
		"GET /api/analytics/sprint/{name} - Sprint analytics",
		"GET /api/sprints/{name}/readiness - Sprint readiness",
		"GET /api/sprints/{name}/burndown - Sprint burndown",
		"GET /api/stories/{id}/readiness - Story checklist",
		"POST /api/readiness - Score a story payload",
	} {
		s.log.Info().Msg("   " + ep)
	}

	srv := s.HTTPServer(addr)
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}
