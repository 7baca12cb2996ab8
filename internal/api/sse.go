package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tradedesk/internal/events"
)

// handleEvents streams session events over Server-Sent Events. The
// stream stays open until the client disconnects or the bus closes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		respondError(w, http.StatusNotFound, "event stream not configured")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	eventCh := s.bus.Subscribe()
	defer s.bus.Unsubscribe(eventCh)

	fmt.Fprintf(w, "event: connected\n")
	fmt.Fprintf(w, "data: {\"time\":%q}\n\n", time.Now().UTC().Format(time.RFC3339))
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-eventCh:
			if !open {
				return
			}
			s.sendEvent(w, flusher, ev)
		}
	}
}

// sendEvent writes one event in SSE wire format and flushes it.
func (s *Server) sendEvent(w io.Writer, flusher http.Flusher, ev events.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.log.Warn("failed to marshal event", "type", ev.Type, "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\n", ev.Type)
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
