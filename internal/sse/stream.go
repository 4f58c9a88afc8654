// Package sse implements the Server-Sent Events side of the broadcast fan-out.
package sse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/XavierBriggs/fortuna/services/odds-composer/internal/registry"
)

// HeartbeatInterval is how often an open stream emits a keep-alive comment
// frame.
const HeartbeatInterval = 30 * time.Second

var errClosed = errors.New("stream closed")

// Stream is one open SSE response, registered as a broadcast channel. Writes
// are serialized under a mutex because the heartbeat goroutine and the
// broadcaster both touch the response writer.
type Stream struct {
	id      string
	w       http.ResponseWriter
	flusher http.Flusher

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewStream prepares the response as an event stream. The caller sends the
// initial connection event, registers the stream, and starts the heartbeat.
func NewStream(id string, w http.ResponseWriter) (*Stream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support streaming")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	return &Stream{
		id:      id,
		w:       w,
		flusher: flusher,
		done:    make(chan struct{}),
	}, nil
}

// ID returns the stream's opaque id.
func (s *Stream) ID() string { return s.id }

// Kind returns the transport kind for registry bookkeeping.
func (s *Stream) Kind() registry.Kind { return registry.KindSSE }

// Send writes one data frame and flushes it to the client.
func (s *Stream) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Heartbeat emits keep-alive comment frames until the stream closes or ctx is
// cancelled. Run it in its own goroutine; it becomes a no-op once the stream
// is marked closed.
func (s *Stream) Heartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			if !s.closed {
				fmt.Fprint(s.w, ":\n\n")
				s.flusher.Flush()
			}
			s.mu.Unlock()
		}
	}
}

// Close marks the stream dead and stops its heartbeat. Idempotent.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	return nil
}
