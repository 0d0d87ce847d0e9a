package http

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// sseWriter frames bus.Event-shaped payloads as `data: <json>\n\n` (spec §6
// "Wire format for SSE event stream"). No dedicated SSE library appears
// anywhere in the example corpus, so this is a thin wrapper over the
// standard library's http.Flusher rather than an adopted dependency.
type sseWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, bool) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	f.Flush()
	return &sseWriter{w: w, f: f}, true
}

func (s *sseWriter) send(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}
