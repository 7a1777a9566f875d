// Package adminapi is a chi-routed, read-only HTTP+JSON introspection
// surface over a running *ospf.Router: plain JSON GETs rather than a
// generated RPC contract, since there is no service definition to
// implement against. It never accepts writes: every route is a GET that
// calls into ospf.Router.Call to read a consistent snapshot off the
// engine's single-threaded event loop.
package adminapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/go-ospfd/ospfd/internal/ospf"
)

// requestTimeout bounds how long a single introspection request may run.
const requestTimeout = 10 * time.Second

// server holds the dependencies shared by every handler.
type server struct {
	router *ospf.Router
	logger *slog.Logger
}

// NewRouter builds the chi handler tree for the admin API, mounted by
// cmd/ospfd/main.go alongside the metrics server.
func NewRouter(router *ospf.Router, logger *slog.Logger) http.Handler {
	s := &server{
		router: router,
		logger: logger.With(slog.String("component", "adminapi")),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/areas", s.handleAreas)
	r.Get("/neighbors", s.handleNeighbors)
	r.Get("/lsdb", s.handleLSDB)
	r.Get("/routes", s.handleRoutes)

	return r
}

// requestLogger is a chi middleware that logs each request's id, method,
// path, status, and duration at Debug.
func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debug("admin API request",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode admin API response", slog.String("error", err.Error()))
	}
}
