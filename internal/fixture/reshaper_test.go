package fixture

import (
	"errors"
	"testing"
)

func line(playerID any, market string, balanceLine any, extra map[string]any) LineRecord {
	l := LineRecord{
		"player_id":   playerID,
		"market_type": market,
	}
	if balanceLine != nil {
		l["balance_line"] = balanceLine
	}
	for k, v := range extra {
		l[k] = v
	}
	return l
}

func TestBuildSnapshot_GroupsByPlayerAndMarket(t *testing.T) {
	lines := []LineRecord{
		line(7, "points", 20.0, map[string]any{"balance_line_over_odds": 1.9}),
		line(7, "points", 22.0, map[string]any{"balance_line_over_odds": 2.1}),
		line(7, "assists", 5.0, nil),
		line(9, "points", 18.5, nil),
	}

	doc := BuildSnapshot("fixture-1", lines, Meta{})

	if doc.FixtureID != "fixture-1" {
		t.Errorf("FixtureID = %v, want fixture-1", doc.FixtureID)
	}
	if doc.NewLines != 4 {
		t.Errorf("NewLines = %d, want 4", doc.NewLines)
	}
	if len(doc.Players) != 2 {
		t.Fatalf("got %d players, want 2", len(doc.Players))
	}

	p7 := doc.Players["7"]
	if p7 == nil {
		t.Fatal("player 7 missing")
	}
	if got := len(p7.Markets["points"]); got != 2 {
		t.Errorf("player 7 points has %d lines, want 2", got)
	}
	if got := len(p7.Markets["assists"]); got != 1 {
		t.Errorf("player 7 assists has %d lines, want 1", got)
	}

	p9 := doc.Players["9"]
	if p9 == nil {
		t.Fatal("player 9 missing")
	}
	if _, ok := p9.Markets["points"]["18.5"]; !ok {
		t.Error("player 9 points 18.5 missing")
	}
}

func TestBuildSnapshot_LoosePlayerIDMatching(t *testing.T) {
	// Same player arriving as number and as string must land in one entry.
	lines := []LineRecord{
		line(7.0, "points", 20.0, nil),
		line("7", "assists", 5.0, nil),
	}

	doc := BuildSnapshot(1, lines, Meta{})

	if len(doc.Players) != 1 {
		t.Fatalf("got %d players, want 1", len(doc.Players))
	}
	p, ok := doc.Player("7")
	if !ok {
		t.Fatal("player lookup by string id failed")
	}
	if len(p.Markets) != 2 {
		t.Errorf("got %d markets, want 2", len(p.Markets))
	}
	if _, ok := doc.Player(7); !ok {
		t.Error("player lookup by numeric id failed")
	}
}

func TestBuildSnapshot_DuplicateTripleLastWins(t *testing.T) {
	lines := []LineRecord{
		line(7, "points", 20.0, map[string]any{"balance_line_over_odds": 1.9}),
		line(7, "points", 20.0, map[string]any{"balance_line_over_odds": 2.4}),
	}

	doc := BuildSnapshot(1, lines, Meta{})

	cell := doc.Players["7"].Markets["points"]["20"]
	if cell == nil {
		t.Fatal("cell missing")
	}
	if got := cell["balance_line_over_odds"]; got != 2.4 {
		t.Errorf("over odds = %v, want 2.4 (last record wins)", got)
	}
}

func TestBuildSnapshot_DescriptiveFieldsFromFirstRecord(t *testing.T) {
	lines := []LineRecord{
		line(7, "points", 20.0, map[string]any{"player_name": "A. Player", "player_team_name": "LAL"}),
		line(7, "assists", 5.0, map[string]any{"player_name": "Renamed", "player_team_name": "BOS"}),
	}

	doc := BuildSnapshot(1, lines, Meta{})

	info := doc.Players["7"].Info
	if info["player_name"] != "A. Player" {
		t.Errorf("player_name = %v, want first record's value", info["player_name"])
	}
	if info["player_team_name"] != "LAL" {
		t.Errorf("player_team_name = %v, want first record's value", info["player_team_name"])
	}
}

func TestBuildSnapshot_MissingFieldsTolerated(t *testing.T) {
	lines := []LineRecord{
		{},                             // nothing at all
		{"player_id": 7},               // no market type
		line(7, "points", nil, nil),    // no balance line
		line(nil, "points", 20.0, nil), // no player id
		line(7, "points", 20.0, nil),   // complete
	}

	doc := BuildSnapshot(1, lines, Meta{})

	if doc.NewLines != 5 {
		t.Errorf("NewLines = %d, want 5", doc.NewLines)
	}
	if len(doc.Players) != 1 {
		t.Fatalf("got %d players, want 1", len(doc.Players))
	}
	if got := len(doc.Players["7"].Markets["points"]); got != 1 {
		t.Errorf("points has %d lines, want 1", got)
	}
}

func TestBuildSnapshot_CellPreservesUnknownFields(t *testing.T) {
	lines := []LineRecord{
		line(7, "points", 20.0, map[string]any{
			"suspension_reason": map[string]any{"code": "injury"},
			"settlement_value":  nil,
		}),
	}

	doc := BuildSnapshot(1, lines, Meta{})

	cell := doc.Players["7"].Markets["points"]["20"]
	reason, ok := cell["suspension_reason"].(map[string]any)
	if !ok || reason["code"] != "injury" {
		t.Errorf("suspension_reason not preserved: %v", cell["suspension_reason"])
	}
	if _, ok := cell["settlement_value"]; !ok {
		t.Error("explicit null settlement_value dropped")
	}
	if _, ok := cell["is_suspended"]; ok {
		t.Error("absent field materialized in cell")
	}
}

func TestApplyUpdate_NilDocument(t *testing.T) {
	_, err := ApplyUpdate(nil, Update{PlayerID: 7})
	if !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("err = %v, want ErrNoSnapshot", err)
	}
}

func TestApplyUpdate_ReplacesMarketLineSet(t *testing.T) {
	doc := BuildSnapshot(1, []LineRecord{
		line(7, "points", 20.0, map[string]any{"balance_line_over_odds": 1.9, "is_balanced": true}),
		line(7, "points", 22.0, map[string]any{"balance_line_over_odds": 2.1, "is_balanced": false}),
		line(7, "assists", 5.0, nil),
		line(9, "points", 18.5, nil),
	}, Meta{})

	got, err := ApplyUpdate(doc, Update{
		PlayerID:  7,
		MessageID: "m-2",
		Lines: []LineRecord{
			line(7, "points", 22.0, map[string]any{"balance_line_over_odds": 2.0, "is_balanced": true}),
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	points := got.Players["7"].Markets["points"]
	if len(points) != 1 {
		t.Fatalf("points has %d lines, want 1 (prior lines removed)", len(points))
	}
	if _, ok := points["20"]; ok {
		t.Error("line 20 should be removed entirely")
	}
	cell := points["22"]
	if cell["balance_line_over_odds"] != 2.0 {
		t.Errorf("over odds = %v, want 2.0", cell["balance_line_over_odds"])
	}
	if !cell.IsBalanced() {
		t.Error("line 22 should be balanced")
	}

	// Untouched markets and players survive.
	if _, ok := got.Players["7"].Markets["assists"]["5"]; !ok {
		t.Error("assists market disturbed by points update")
	}
	if _, ok := got.Players["9"].Markets["points"]["18.5"]; !ok {
		t.Error("other player disturbed by update")
	}

	// Envelope metadata.
	if !got.IsUpdate {
		t.Error("IsUpdate not set")
	}
	if got.UpdateMessageID != "m-2" {
		t.Errorf("UpdateMessageID = %v, want m-2", got.UpdateMessageID)
	}
	if got.NewLines != 1 {
		t.Errorf("NewLines = %d, want 1", got.NewLines)
	}
}

func TestApplyUpdate_BalancedExclusivityLaterWins(t *testing.T) {
	doc := BuildSnapshot(1, []LineRecord{
		line(7, "points", 20.0, nil),
	}, Meta{})

	got, err := ApplyUpdate(doc, Update{
		PlayerID: 7,
		Lines: []LineRecord{
			line(7, "points", 20.0, map[string]any{"is_balanced": true}),
			line(7, "points", 21.0, map[string]any{"is_balanced": false}),
			line(7, "points", 22.0, map[string]any{"is_balanced": true}),
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	points := got.Players["7"].Markets["points"]
	balanced := 0
	for _, cell := range points {
		if cell.IsBalanced() {
			balanced++
		}
	}
	if balanced != 1 {
		t.Fatalf("%d balanced lines, want exactly 1", balanced)
	}
	if !points["22"].IsBalanced() {
		t.Error("later balanced line in array order should win")
	}
	if b, ok := points["20"]["is_balanced"].(bool); !ok || b {
		t.Errorf("line 20 is_balanced = %v, want false", points["20"]["is_balanced"])
	}
}

func TestApplyUpdate_FirstLineMarketTypeAuthoritative(t *testing.T) {
	doc := BuildSnapshot(1, []LineRecord{
		line(7, "points", 20.0, nil),
		line(7, "assists", 5.0, nil),
	}, Meta{})

	// Lines disagree on market type; the first one's bucket takes all.
	got, err := ApplyUpdate(doc, Update{
		PlayerID: 7,
		Lines: []LineRecord{
			line(7, "points", 21.0, nil),
			line(7, "assists", 6.0, nil),
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	points := got.Players["7"].Markets["points"]
	if len(points) != 2 {
		t.Fatalf("points has %d lines, want 2 (both update lines)", len(points))
	}
	if _, ok := points["6"]; !ok {
		t.Error("second line should land in the first line's market bucket")
	}
	// The assists market was not the update's target and stays as it was.
	if _, ok := got.Players["7"].Markets["assists"]["5"]; !ok {
		t.Error("assists market should be untouched")
	}
}

func TestApplyUpdate_UnknownPlayerIsEnvelopeOnlyNoOp(t *testing.T) {
	doc := BuildSnapshot(1, []LineRecord{
		line(7, "points", 20.0, nil),
	}, Meta{})

	got, err := ApplyUpdate(doc, Update{
		PlayerID:  42,
		MessageID: "m-9",
		Lines:     []LineRecord{line(42, "points", 10.0, nil)},
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(got.Players) != 1 {
		t.Errorf("players mutated by unknown-player update")
	}
	if _, ok := got.Players["42"]; ok {
		t.Error("unknown player must not be created by an update")
	}
	if !got.IsUpdate || got.UpdateMessageID != "m-9" || got.NewLines != 1 {
		t.Error("envelope metadata should still be stamped")
	}
}

func TestApplyUpdate_EmptyLinesIsEnvelopeOnlyNoOp(t *testing.T) {
	doc := BuildSnapshot(1, []LineRecord{
		line(7, "points", 20.0, nil),
	}, Meta{})

	got, err := ApplyUpdate(doc, Update{PlayerID: 7})
	if err != nil {
		t.Fatal(err)
	}
	if got.NewLines != 0 {
		t.Errorf("NewLines = %d, want 0", got.NewLines)
	}
	if len(got.Players["7"].Markets["points"]) != 1 {
		t.Error("markets mutated by empty update")
	}
}

func TestApplyUpdate_DoesNotAliasCallerRecords(t *testing.T) {
	doc := BuildSnapshot(1, []LineRecord{line(7, "points", 20.0, nil)}, Meta{})

	in := line(7, "points", 21.0, map[string]any{"is_balanced": true})
	if _, err := ApplyUpdate(doc, Update{
		PlayerID: 7,
		Lines: []LineRecord{
			in,
			line(7, "points", 22.0, map[string]any{"is_balanced": true}),
		},
	}); err != nil {
		t.Fatal(err)
	}

	if b, _ := in["is_balanced"].(bool); !b {
		t.Error("caller's record mutated by balanced-flag clearing")
	}
}

func TestExampleScenario(t *testing.T) {
	// The end-to-end walkthrough: snapshot then update.
	doc := BuildSnapshot(101, []LineRecord{
		line(7, "points", 20.0, map[string]any{"balance_line_over_odds": 1.9, "is_balanced": true}),
		line(7, "points", 22.0, map[string]any{"balance_line_over_odds": 2.1, "is_balanced": false}),
	}, Meta{MessageID: "m-1"})

	points := doc.Players["7"].Markets["points"]
	if len(points) != 2 {
		t.Fatalf("snapshot points has %d lines, want 2", len(points))
	}
	if !points["20"].IsBalanced() || points["22"].IsBalanced() {
		t.Error("snapshot balanced flags wrong")
	}

	got, err := ApplyUpdate(doc, Update{
		PlayerID: 7,
		Lines: []LineRecord{
			line(7, "points", 22.0, map[string]any{"balance_line_over_odds": 2.0, "is_balanced": true}),
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	points = got.Players["7"].Markets["points"]
	if len(points) != 1 {
		t.Fatalf("updated points has %d lines, want 1", len(points))
	}
	cell := points["22"]
	if cell["balance_line_over_odds"] != 2.0 || !cell.IsBalanced() {
		t.Errorf("updated cell = %v", cell)
	}
}
