// Package fixture reshapes flat per-player market line payloads into the
// nested fixture → player → market → balance-line document the display
// clients render, and applies partial updates to it.
package fixture

import "errors"

// ErrNoSnapshot is returned when a partial update arrives before any full
// snapshot has been ingested.
var ErrNoSnapshot = errors.New("no fixture snapshot to update")

// Meta carries the pass-through envelope fields of a snapshot payload.
type Meta struct {
	IsNew     any
	MessageID any
}

// Update is a partial payload scoped to one player and one market type. The
// market type of the first line is authoritative for the whole batch.
type Update struct {
	PlayerID  any
	Lines     []LineRecord
	MessageID any
}

// BuildSnapshot converts a flat list of line records into a fresh Document.
// The first record seen for a player fixes its descriptive fields; every
// record contributes one market cell. Duplicate (player, market, line)
// triples resolve last-one-wins in input order. Records missing the fields
// needed to place them (player id, market type, balance line) are tolerated
// and skipped; nothing here ever fails.
func BuildSnapshot(fixtureID any, lines []LineRecord, meta Meta) *Document {
	doc := &Document{
		FixtureID: fixtureID,
		Players:   make(map[string]*PlayerEntry),
		IsNew:     meta.IsNew,
		MessageID: meta.MessageID,
		NewLines:  len(lines),
	}

	for _, line := range lines {
		pid, ok := line.PlayerID()
		if !ok {
			continue
		}

		entry, ok := doc.Players[pid]
		if !ok {
			entry = newPlayerEntry(line)
			doc.Players[pid] = entry
		}

		market, ok := line.MarketType()
		if !ok {
			continue
		}
		key, ok := line.BalanceLine()
		if !ok {
			continue
		}

		cells := entry.Markets[market]
		if cells == nil {
			cells = make(BalanceLines)
			entry.Markets[market] = cells
		}
		cells[key] = line.Clone()
	}

	return doc
}

// ApplyUpdate merges a partial update into an existing document. The touched
// (player, market) sub-map is replaced outright: balance lines absent from
// the update batch are dropped, and lines present are repopulated one cell
// per balance line. While repopulating, a line flagged balanced forces every
// already-written cell's balanced flag to false, so a later balanced line in
// input order wins.
//
// An unknown player id or an empty batch leaves the players content
// untouched; the document is still returned with only envelope metadata
// changed, and the caller broadcasts it as-is.
func ApplyUpdate(doc *Document, upd Update) (*Document, error) {
	if doc == nil {
		return nil, ErrNoSnapshot
	}

	doc.IsUpdate = true
	doc.UpdateMessageID = upd.MessageID
	doc.NewLines = len(upd.Lines)

	if len(upd.Lines) == 0 {
		return doc, nil
	}
	pid, ok := looseKey(upd.PlayerID)
	if !ok {
		return doc, nil
	}
	entry, ok := doc.Players[pid]
	if !ok {
		return doc, nil
	}
	market, ok := upd.Lines[0].MarketType()
	if !ok {
		return doc, nil
	}

	fresh := make(BalanceLines, len(upd.Lines))
	for _, line := range upd.Lines {
		key, ok := line.BalanceLine()
		if !ok {
			continue
		}
		cell := line.Clone()
		if cell.IsBalanced() {
			for _, prev := range fresh {
				prev["is_balanced"] = false
			}
		}
		fresh[key] = cell
	}
	entry.Markets[market] = fresh

	return doc, nil
}
