// Package registry tracks the outbound channels currently connected to the
// service, WebSocket and SSE alike, behind one uniform send/close contract.
package registry

import (
	"sort"
	"sync"
)

// Kind identifies the transport behind a channel.
type Kind string

const (
	KindWebSocket Kind = "websocket"
	KindSSE       Kind = "sse"
)

// Channel is one outbound delivery path to a connected client. Both
// transports satisfy the same contract so the broadcaster can fan out without
// caring which side of the WebSocket/SSE split a client sits on.
type Channel interface {
	ID() string
	Kind() Kind
	Send(data []byte) error
	Close() error
}

// Registry is the set of currently registered channels, keyed by channel id.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]Channel),
	}
}

// Add registers a channel under its id.
func (r *Registry) Add(ch Channel) {
	r.mu.Lock()
	r.channels[ch.ID()] = ch
	r.mu.Unlock()
}

// Remove unregisters the channel with the given id. Removing an id twice, or
// an id that was never registered, is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.channels, id)
	r.mu.Unlock()
}

// Count returns the total number of registered channels.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}

// CountKind returns the number of registered channels of one transport.
func (r *Registry) CountKind(kind Kind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, ch := range r.channels {
		if ch.Kind() == kind {
			n++
		}
	}
	return n
}

// Snapshot returns the registered channels ordered by id, so one fan-out pass
// sees a stable view even while connects and disconnects race it.
func (r *Registry) Snapshot() []Channel {
	r.mu.RLock()
	channels := make([]Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		channels = append(channels, ch)
	}
	r.mu.RUnlock()

	sort.Slice(channels, func(i, j int) bool {
		return channels[i].ID() < channels[j].ID()
	})
	return channels
}
