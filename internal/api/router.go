package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultWSPath      = "/api/v1/ws"
	defaultMetricsPath = "/metrics"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/system", s.handleSystem)

		r.Route("/entities", func(r chi.Router) {
			r.Get("/", s.handleListEntities)
			r.Get("/{id}", s.handleGetEntity)
			r.Put("/{id}", s.handleSetEntity)
		})

		r.Route("/commands", func(r chi.Router) {
			r.Post("/custom", s.handleCustom)
			r.Post("/dhw-run", s.handleDHWRun)
			r.Post("/dump", s.handleDump)
		})
	})

	wsPath := s.wsCfg.Path
	if wsPath == "" {
		wsPath = defaultWSPath
	}
	r.Get(wsPath, s.handleWebSocket)

	if s.gatherer != nil {
		path := s.metricsCfg.Path
		if path == "" {
			path = defaultMetricsPath
		}
		r.Handle(path, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

// handleHealth returns the server health status with the loop statistics.
// An engine that does not answer degrades the status but keeps the 200 so
// liveness probes only fail when the process is gone.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.engineContext(r)
	defer cancel()

	resp := map[string]any{
		"status":  "ok",
		"version": s.version,
	}
	st, err := s.engine.Stats(ctx)
	if err != nil {
		resp["status"] = "degraded"
		resp["error"] = err.Error()
	} else {
		resp["engine"] = st
	}
	writeJSON(w, http.StatusOK, resp)
}
