package server

import (
	"net/http"
	"time"

	"jvsview/internal/catalog"
	"jvsview/internal/models"
	"jvsview/internal/render"
)

type streamsResponse struct {
	Seq       uint64                 `json:"seq"`
	FetchedAt *time.Time             `json:"fetched_at,omitempty"`
	Streams   []models.StreamSummary `json:"streams"`
	Rows      []render.Row           `json:"rows"`
}

func (s *Server) streamsPayload(snap catalog.Snapshot) streamsResponse {
	resp := streamsResponse{
		Seq:     snap.Seq,
		Streams: snap.Streams,
		Rows:    s.renderer.Rows(snap.Streams),
	}
	if resp.Streams == nil {
		resp.Streams = []models.StreamSummary{}
	}
	if !snap.FetchedAt.IsZero() {
		t := snap.FetchedAt
		resp.FetchedAt = &t
	}
	return resp
}

func (s *Server) handleStreams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.streamsPayload(s.catalog.Current()))
}

func (s *Server) handleStreamsTable(w http.ResponseWriter, r *http.Request) {
	rows := s.renderer.Rows(s.catalog.Current().Streams)
	html, err := s.renderer.TableString(rows)
	if err != nil {
		s.log.Error("rendering table", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	data := render.PageData{
		Title:           s.title,
		Rows:            s.renderer.Rows(s.catalog.Current().Streams),
		RefreshInterval: s.refreshInterval,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.Page(w, data); err != nil {
		s.log.Error("rendering page", "error", err)
	}
}
