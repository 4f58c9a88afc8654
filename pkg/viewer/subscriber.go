package viewer

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	// Fixed delay before reconnecting a dropped stream.
	reconnectDelay = 3 * time.Second

	// Pause between applied messages so a rendering loop reading the view
	// is not starved during bursts.
	applyYield = 10 * time.Millisecond

	queueSize = 64
)

// Subscriber consumes the composer's SSE feed and applies each message to a
// View. Messages are funneled through a single worker so state transitions
// never interleave: each message is fully applied before the next is
// dequeued.
type Subscriber struct {
	baseURL string
	view    *View
	client  *http.Client
	queue   chan map[string]any

	// OnApply, when set, is called after each message is folded into the
	// view.
	OnApply func(*View)
}

// NewSubscriber creates a subscriber for the composer at baseURL
// (e.g. "http://localhost:3001").
func NewSubscriber(baseURL string, view *View) *Subscriber {
	return &Subscriber{
		baseURL: strings.TrimRight(baseURL, "/"),
		view:    view,
		client:  &http.Client{},
		queue:   make(chan map[string]any, queueSize),
	}
}

// Run blocks until ctx is cancelled, reconnecting after a fixed delay
// whenever the stream drops, indefinitely.
func (s *Subscriber) Run(ctx context.Context) {
	go s.consume(ctx)

	for {
		err := s.stream(ctx)
		if ctx.Err() != nil {
			return
		}
		fmt.Printf("⚠️  SSE stream dropped: %v (reconnecting in %s)\n", err, reconnectDelay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// stream holds one SSE connection open and enqueues each data frame.
func (s *Subscriber) stream(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		// Heartbeat comments and event separators carry no data.
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var msg map[string]any
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg); err != nil {
			continue
		}

		select {
		case s.queue <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return errors.New("stream closed")
}

// consume is the single worker draining the queue in strict arrival order.
func (s *Subscriber) consume(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.queue:
			s.view.Apply(msg)
			if s.OnApply != nil {
				s.OnApply(s.view)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(applyYield):
			}
		}
	}
}
