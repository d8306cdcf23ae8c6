package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// sseStream writes Server-Sent Events. Events carry one of three JSON
// payloads: {"delta": text}, {"error": message}, {"done": true}.
type sseStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// newSSEStream prepares the response for event streaming. Returns an
// error when the writer cannot flush incrementally.
func newSSEStream(w http.ResponseWriter) (*sseStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming unsupported by connection")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	return &sseStream{w: w, flusher: flusher}, nil
}

func (s *sseStream) send(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Delta forwards one generated fragment.
func (s *sseStream) Delta(text string) error {
	return s.send(map[string]string{"delta": text})
}

// Error reports a failure mid-stream; the stream stays open for Done.
func (s *sseStream) Error(err error) {
	_ = s.send(map[string]string{"error": err.Error()})
}

// Done terminates the stream.
func (s *sseStream) Done() {
	_ = s.send(map[string]bool{"done": true})
}
