package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"jvsview/internal/session"
	"jvsview/internal/store"
	"jvsview/internal/version"
)

func (s *Server) routes() {
	s.router.Get("/", s.handlePage)
	s.serveAssets()

	if s.surface != nil {
		s.router.Handle("/ws/surface", s.surface)
	}
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler(s.updateGauges))
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(limitBody)
		r.Use(corsMiddleware(s.corsOrigin))

		r.Get("/events", s.handleEvents)
		r.Get("/streams/table", s.handleStreamsTable)

		r.Group(func(r chi.Router) {
			r.Use(jsonContentType)

			r.Get("/health", s.handleHealth)
			r.Get("/streams", s.handleStreams)
			r.With(s.refreshRateLimit).Post("/refresh", s.handleRefresh)

			r.Get("/session", s.handleGetSession)
			r.Post("/session", s.handleSelectSession)
			r.Delete("/session", s.handleDismissSession)

			r.Get("/history", s.handleHistory)
		})
	})
}

type healthResponse struct {
	Status    string       `json:"status"`
	Version   version.Info `json:"version"`
	Streams   int          `json:"streams"`
	Seq       uint64       `json:"seq"`
	FetchedAt string       `json:"fetched_at,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.catalog.Current()
	resp := healthResponse{
		Status:  "ok",
		Version: version.Get(),
		Streams: len(snap.Streams),
		Seq:     snap.Seq,
	}
	if !snap.FetchedAt.IsZero() {
		resp.FetchedAt = snap.FetchedAt.UTC().Format(time.RFC3339)
	}
	if s.history != nil {
		if err := s.history.Ping(); err != nil {
			resp.Status = "error"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.catalog.Refresh()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refreshing"})
}

type selectRequest struct {
	ID string `json:"id"`
}

func (s *Server) handleSelectSession(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.sessions.Select(req.ID); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.sessions.Snapshot())
}

func (s *Server) handleDismissSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Dismiss(); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.sessions.Snapshot())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.Snapshot())
}

func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrEmptyID):
		writeError(w, http.StatusBadRequest, "id is required")
	case errors.Is(err, session.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "shutting down")
	default:
		s.log.Error("session request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history not configured")
		return
	}
	limit := store.DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	records, err := s.history.ListPlayback(r.Context(), limit)
	if err != nil {
		s.log.Error("listing playback history", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) updateGauges() {
	s.metrics.SetSessionActive(s.sessions.Snapshot().Active())
}
