package fixture

import "sync"

// Store owns the single current fixture document. All mutation goes through
// the store so the HTTP handlers and the stream consumer share one injection
// point instead of package-level state. The service holds one document at a
// time; a new snapshot discards the previous fixture.
type Store struct {
	mu  sync.RWMutex
	doc *Document
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// ReplaceSnapshot builds a fresh document from a full snapshot payload and
// installs it, discarding whatever document was held before.
func (s *Store) ReplaceSnapshot(fixtureID any, lines []LineRecord, meta Meta) *Document {
	doc := BuildSnapshot(fixtureID, lines, meta)
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	return doc
}

// ApplyUpdate merges a partial update into the current document. Returns
// ErrNoSnapshot when no snapshot has been ingested yet.
func (s *Store) ApplyUpdate(upd Update) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := ApplyUpdate(s.doc, upd)
	if err != nil {
		return nil, err
	}
	s.doc = doc
	return doc, nil
}

// Current returns the latest document, or nil when none has been ingested.
func (s *Store) Current() *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// Clear drops the current document. The next update will be rejected until a
// new snapshot arrives.
func (s *Store) Clear() {
	s.mu.Lock()
	s.doc = nil
	s.mu.Unlock()
}
