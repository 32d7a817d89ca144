// Package api exposes the workout service over HTTP with JSON bodies.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Sternrassler/workout-api/pkg/metrics"
	"github.com/Sternrassler/workout-api/pkg/workout"
	"github.com/rs/zerolog"
)

// readyTimeout bounds the dependency checks of /ready.
const readyTimeout = 3 * time.Second

// Server routes HTTP requests to the workout service.
type Server struct {
	svc    *workout.Service
	logger zerolog.Logger
	mux    *http.ServeMux
}

// New creates the HTTP layer on svc.
func New(svc *workout.Service, logger zerolog.Logger) *Server {
	if svc == nil {
		panic("workout service cannot be nil")
	}
	s := &Server{svc: svc, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the root handler with every middleware applied.
func (s *Server) Handler() http.Handler {
	return withRequestID(s.logger, withAccessLog(withRecovery(s.mux)))
}

func (s *Server) routes() {
	s.handle("GET /health", s.health)
	s.handle("GET /ready", s.ready)
	s.mux.Handle("GET /metrics", metrics.Handler())

	s.handle("POST /users", s.createUser)
	s.handle("GET /users/{id}", s.getUser)
	s.handle("PATCH /users/{id}", s.updateUser)
	s.handle("GET /users/{id}/seances", s.listSeances)
	s.handle("GET /users/{id}/sets", s.listSets)
	s.handle("GET /users/{id}/records", s.personalRecords)
	s.handle("GET /users/{id}/top-exercises", s.topExercises)
	s.handle("GET /users/{id}/top-formats", s.topFormats)
	s.handle("GET /users/{id}/stats", s.stats)
	s.handle("GET /users/{id}/followers", s.listFollowers)
	s.handle("GET /users/{id}/following", s.listFollowing)
	s.handle("PUT /users/{id}/following/{target}", s.follow)
	s.handle("DELETE /users/{id}/following/{target}", s.unfollow)
	s.handle("GET /users/{id}/notifications", s.listNotifications)
	s.handle("POST /users/{id}/notifications/{nid}/read", s.markNotificationRead)

	s.handle("POST /seances", s.createSeance)
	s.handle("GET /seances/{id}", s.getSeance)
	s.handle("DELETE /seances/{id}", s.deleteSeance)
	s.handle("POST /seances/{id}/sets", s.recordSet)
	s.handle("GET /seances/{id}/comments", s.listComments)
	s.handle("POST /seances/{id}/comments", s.addComment)
	s.handle("GET /seances/{id}/reactions", s.listReactions)
	s.handle("POST /seances/{id}/reactions", s.addReaction)

	s.handle("DELETE /admin/cache", s.clearCache)
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, instrument(pattern, h))
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.svc.Ping(ctx); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Readiness check failed")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) clearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ClearCache(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	zerolog.Ctx(r.Context()).Info().Msg("Cache cleared")
	w.WriteHeader(http.StatusNoContent)
}
