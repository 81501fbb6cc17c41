// Package sse writes Server-Sent Events streams.
package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// DefaultHeartbeat is the interval between keep-alive comments.
const DefaultHeartbeat = 25 * time.Second

// ErrStreamingUnsupported is returned when the ResponseWriter cannot flush.
var ErrStreamingUnsupported = errors.New("sse: streaming unsupported")

// Stream is an open event stream on an HTTP response.
type Stream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// Open writes the event-stream headers and flushes them.
func Open(w http.ResponseWriter) (*Stream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &Stream{w: w, flusher: flusher}, nil
}

// Send writes one event with data encoded as JSON.
func (s *Stream) Send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("sse: encode %s: %w", event, err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Comment writes a comment line, which clients ignore.
func (s *Stream) Comment(text string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Serve sends every value received from ch as an event named event until ch
// closes, a write fails or the request ends. A comment is written every
// heartbeat; heartbeat <= 0 uses DefaultHeartbeat.
func Serve[T any](w http.ResponseWriter, r *http.Request, event string, ch <-chan T, heartbeat time.Duration) error {
	stream, err := Open(w)
	if err != nil {
		return err
	}
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := stream.Comment("ping"); err != nil {
				return err
			}
		case v, ok := <-ch:
			if !ok {
				return nil
			}
			if err := stream.Send(event, v); err != nil {
				return err
			}
		}
	}
}
