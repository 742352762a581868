// Package server exposes the daemon's local HTTP status endpoint: latest
// snapshot, tracked sessions, health, and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/vigilops/claude-vigil/internal/tracker"
	"github.com/vigilops/claude-vigil/pkg/models"
)

// SnapshotSource provides the most recent monitoring snapshot.
type SnapshotSource interface {
	LatestSnapshot() *models.MonitoringSnapshot
	Running() bool
}

// SessionSource provides the tracker's current view.
type SessionSource interface {
	ActiveSessions() []models.ActivitySession
	Stats() tracker.Stats
}

// Server is the local status HTTP server.
type Server struct {
	addr     string
	snaps    SnapshotSource
	sessions SessionSource
	srv      *http.Server
}

// New creates a status server bound to addr.
func New(addr string, snaps SnapshotSource, sessions SessionSource) *Server {
	s := &Server{addr: addr, snaps: snaps, sessions: sessions}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/api/snapshot", s.handleSnapshot)
	r.Get("/api/sessions", s.handleSessions)
	r.Get("/api/stats", s.handleStats)
	r.Handle("/metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.addr).Msg("Status server listening")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"running": s.snaps.Running(),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.snaps.LatestSnapshot()
	if snap == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no snapshot collected yet"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.sessions.ActiveSessions()
	if sessions == nil {
		sessions = []models.ActivitySession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
