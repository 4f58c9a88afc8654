package fixture

import (
	"encoding/json"
	"time"
)

// BalanceLines maps a canonical balance-line key to the full line record
// quoted at that threshold.
type BalanceLines map[string]LineRecord

// Descriptive fields copied from the first line record seen for a player.
// Everything else on a record is market data and stays inside the cell.
var playerInfoFields = []string{
	"player_id",
	"player_name",
	"player_team_id",
	"player_team_name",
	"opposing_team_id",
	"opposing_team_name",
	"fixture_id",
	"game_date",
}

// PlayerEntry holds a player's descriptive fields plus the per-market
// balance-line maps. Descriptive fields are fixed at first insertion; later
// lines for the same player only add or replace market cells.
type PlayerEntry struct {
	Info    map[string]any
	Markets map[string]BalanceLines
}

func newPlayerEntry(line LineRecord) *PlayerEntry {
	info := make(map[string]any, len(playerInfoFields))
	for _, k := range playerInfoFields {
		if v, ok := line[k]; ok {
			info[k] = v
		}
	}
	return &PlayerEntry{
		Info:    info,
		Markets: make(map[string]BalanceLines),
	}
}

// MarshalJSON flattens the descriptive fields beside the markets object,
// matching the wire shape the table clients consume:
//
//	{"player_id": 7, "player_name": "...", "markets": {"points": {"20": {...}}}}
func (p *PlayerEntry) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Info)+1)
	for k, v := range p.Info {
		out[k] = v
	}
	out["markets"] = p.Markets
	return json.Marshal(out)
}

// Document is the per-fixture aggregate broadcast to clients: players keyed
// by canonical player id, each holding market_type → balance_line → cell.
// One Document represents one fixture; a full snapshot replaces it entirely.
type Document struct {
	FixtureID any
	Players   map[string]*PlayerEntry

	// Pass-through envelope metadata from the triggering payload.
	IsNew     any
	MessageID any

	// Line records contributed by the triggering payload, diagnostic only.
	NewLines int

	// Set when the document was last touched by a partial update.
	IsUpdate        bool
	UpdateMessageID any
}

// Player returns the entry for a loosely-typed player id.
func (d *Document) Player(id any) (*PlayerEntry, bool) {
	key, ok := looseKey(id)
	if !ok {
		return nil, false
	}
	p, ok := d.Players[key]
	return p, ok
}

// Message renders the document as the wire object broadcast to clients.
func (d *Document) Message(now time.Time) map[string]any {
	m := map[string]any{
		"type":       "fixture",
		"fixture_id": d.FixtureID,
		"players":    d.Players,
		"new_lines":  d.NewLines,
		"timestamp":  now.UTC(),
	}
	if d.IsNew != nil {
		m["isNew"] = d.IsNew
	}
	if d.MessageID != nil {
		m["messageId"] = d.MessageID
	}
	if d.IsUpdate {
		m["isUpdate"] = true
		if d.UpdateMessageID != nil {
			m["updateMessageId"] = d.UpdateMessageID
		}
	}
	return m
}
