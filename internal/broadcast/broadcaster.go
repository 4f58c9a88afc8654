// Package broadcast fans messages out to every registered channel.
package broadcast

import (
	"encoding/json"
	"fmt"

	"github.com/XavierBriggs/fortuna/services/odds-composer/internal/metrics"
	"github.com/XavierBriggs/fortuna/services/odds-composer/internal/registry"
)

// Broadcaster serializes a message once and pushes it to every registered
// channel. Delivery is best-effort and at-most-once: a failed write prunes
// that channel from the registry and the fan-out continues with the rest.
type Broadcaster struct {
	registry *registry.Registry
	metrics  *metrics.Metrics
}

// New creates a broadcaster over the given registry.
func New(reg *registry.Registry, m *metrics.Metrics) *Broadcaster {
	return &Broadcaster{
		registry: reg,
		metrics:  m,
	}
}

// Broadcast sends a message to every registered channel, both transports.
// The only error returned is an encoding failure; write failures are
// recovered locally and never surface to the caller who triggered the
// broadcast.
func (b *Broadcaster) Broadcast(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode broadcast: %w", err)
	}
	b.fanOut(b.registry.Snapshot(), data)
	return nil
}

// BroadcastKind limits delivery to one transport. Inbound WebSocket frames
// are echoed to WebSocket clients only.
func (b *Broadcaster) BroadcastKind(kind registry.Kind, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode broadcast: %w", err)
	}
	channels := b.registry.Snapshot()
	filtered := channels[:0]
	for _, ch := range channels {
		if ch.Kind() == kind {
			filtered = append(filtered, ch)
		}
	}
	b.fanOut(filtered, data)
	return nil
}

func (b *Broadcaster) fanOut(channels []registry.Channel, data []byte) {
	for _, ch := range channels {
		if err := ch.Send(data); err != nil {
			fmt.Printf("⚠️  client %s write failed, pruning: %v\n", ch.ID(), err)
			b.registry.Remove(ch.ID())
			ch.Close()
			b.metrics.BroadcastFailures.WithLabelValues(string(ch.Kind())).Inc()
			continue
		}
		b.metrics.BroadcastsTotal.WithLabelValues(string(ch.Kind())).Inc()
	}
}
