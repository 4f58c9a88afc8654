// Package ingest applies fixture payloads to the store and broadcasts the
// resulting document. It is the one pipeline shared by the HTTP ingestion
// endpoint and the Redis stream consumer.
package ingest

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/XavierBriggs/fortuna/services/odds-composer/internal/broadcast"
	"github.com/XavierBriggs/fortuna/services/odds-composer/internal/fixture"
	"github.com/XavierBriggs/fortuna/services/odds-composer/internal/metrics"
	"github.com/XavierBriggs/fortuna/services/odds-composer/pkg/models"
)

// Payload is the body accepted by the ingestion endpoint: a full snapshot
// (fixture_id + player_lines) or a partial update (player_id + lines),
// distinguished by the presence of player_id. Specials ride along either
// shape and pass through to the broadcast untouched when the payload flags
// them with isSpecials.
type Payload struct {
	FixtureID   any                  `json:"fixture_id"`
	PlayerID    any                  `json:"player_id"`
	PlayerLines []fixture.LineRecord `json:"player_lines"`
	Lines       []fixture.LineRecord `json:"lines"`
	IsNew       any                  `json:"isNew"`
	MessageID   any                  `json:"messageId"`
	Specials    json.RawMessage      `json:"specials"`
	IsSpecials  bool                 `json:"isSpecials"`
}

// IsUpdate reports whether the payload is a partial update.
func (p *Payload) IsUpdate() bool {
	return p.PlayerID != nil
}

// Result summarizes one applied payload. The counts are captured while the
// ingest lock is held; the live document never leaves the lock, since a
// concurrent payload mutates it in place.
type Result struct {
	FixtureID any
	Players   int
	NewLines  int
}

// Ingestor serializes payload processing: the reshape/merge and the broadcast
// encode happen under one lock, so concurrent producers cannot interleave a
// half-merged document into the wire encoding.
type Ingestor struct {
	store   *fixture.Store
	bc      *broadcast.Broadcaster
	metrics *metrics.Metrics

	mu sync.Mutex
}

// New creates an ingestor over the given store and broadcaster.
func New(store *fixture.Store, bc *broadcast.Broadcaster, m *metrics.Metrics) *Ingestor {
	return &Ingestor{
		store:   store,
		bc:      bc,
		metrics: m,
	}
}

// Snapshot replaces the current document from a full snapshot payload and
// broadcasts the rebuilt document to every connected client.
func (in *Ingestor) Snapshot(p *Payload) (Result, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	doc := in.store.ReplaceSnapshot(p.FixtureID, p.PlayerLines, fixture.Meta{
		IsNew:     p.IsNew,
		MessageID: p.MessageID,
	})
	in.metrics.IngestTotal.WithLabelValues("snapshot").Inc()

	return result(doc), in.bc.Broadcast(in.message(doc, p))
}

// Update merges a partial update into the current document and broadcasts the
// merged result. Returns fixture.ErrNoSnapshot when no snapshot exists yet.
func (in *Ingestor) Update(p *Payload) (Result, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	doc, err := in.store.ApplyUpdate(fixture.Update{
		PlayerID:  p.PlayerID,
		Lines:     p.Lines,
		MessageID: p.MessageID,
	})
	if err != nil {
		in.metrics.IngestErrors.WithLabelValues("update").Inc()
		return Result{}, err
	}
	in.metrics.IngestTotal.WithLabelValues("update").Inc()

	return result(doc), in.bc.Broadcast(in.message(doc, p))
}

// Clear drops the stored document and tells clients to flush their state.
func (in *Ingestor) Clear() error {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.store.Clear()
	in.metrics.IngestTotal.WithLabelValues("clear").Inc()

	return in.bc.Broadcast(models.Envelope{
		Type:      models.TypeClear,
		Message:   "Fixture data cleared",
		Timestamp: time.Now().UTC(),
	})
}

func (in *Ingestor) message(doc *fixture.Document, p *Payload) map[string]any {
	msg := doc.Message(time.Now())
	if p.IsSpecials && len(p.Specials) > 0 {
		msg["specials"] = p.Specials
		msg["isSpecials"] = true
	}
	return msg
}

func result(doc *fixture.Document) Result {
	return Result{
		FixtureID: doc.FixtureID,
		Players:   len(doc.Players),
		NewLines:  doc.NewLines,
	}
}
