package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"jvsview/internal/catalog"
)

const sseKeepAlive = 30 * time.Second

type catalogEvent struct {
	Seq  uint64 `json:"seq"`
	HTML string `json:"html"`
}

// handleEvents streams "catalog" events carrying the rendered table
// fragment and "session" events carrying the playback snapshot.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	catalogCh := s.catalog.Subscribe()
	defer s.catalog.Unsubscribe(catalogCh)
	sessionCh := s.sessions.Subscribe()
	defer s.sessions.Unsubscribe(sessionCh)

	s.sendCatalog(w, s.catalog.Current())
	s.sendEvent(w, "session", s.sessions.Snapshot())
	flusher.Flush()

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.done:
			return
		case snap, ok := <-catalogCh:
			if !ok {
				return
			}
			s.sendCatalog(w, snap)
		case snap, ok := <-sessionCh:
			if !ok {
				return
			}
			s.sendEvent(w, "session", snap)
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
		}
		flusher.Flush()
	}
}

func (s *Server) sendCatalog(w http.ResponseWriter, snap catalog.Snapshot) {
	html, err := s.renderer.TableString(s.renderer.Rows(snap.Streams))
	if err != nil {
		s.log.Error("rendering table", "error", err)
		return
	}
	s.sendEvent(w, "catalog", catalogEvent{Seq: snap.Seq, HTML: html})
}

func (s *Server) sendEvent(w http.ResponseWriter, name string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Warn("encoding event", "event", name, "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
}
