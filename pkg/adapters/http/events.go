package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SubscribeEvents handles GET /sessions/{id}/events (SSE).
// Every viewport command of the session is sent as an event named after its
// type ("scroll" or "hint"). The stream ends when the session closes.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	id := chi.URLParam(r, "id")
	sess, err := s.Engine.Sessions().Get(id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	ch, cancel := sess.Feed().Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: Subscribing to viewport events", "session_id", id)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "session_id", id)
			return
		case ev, ok := <-ch:
			if !ok {
				fmt.Fprintf(w, "event: closed\ndata: %s\n\n", id)
				flusher.Flush()
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("SSE: encode failed", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}
