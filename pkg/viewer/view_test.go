package viewer

import (
	"encoding/json"
	"reflect"
	"testing"
)

// fixtureMsg decodes a broadcast message literal the way the subscriber does,
// so tests exercise the same json.Unmarshal value types the stream produces.
func fixtureMsg(t *testing.T, body string) map[string]any {
	t.Helper()
	var msg map[string]any
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		t.Fatal(err)
	}
	return msg
}

const snapshotMsg = `{
	"type": "fixture",
	"fixture_id": 101,
	"new_lines": 4,
	"players": {
		"7": {
			"player_id": 7,
			"player_name": "A. Player",
			"player_team_name": "Boston",
			"markets": {
				"points": {
					"18": {"balance_line": 18, "is_balanced": false, "balance_line_over_odds": 1.5},
					"20": {"balance_line": 20, "is_balanced": true, "balance_line_over_odds": 1.9},
					"22": {"balance_line": 22, "is_balanced": false, "balance_line_over_odds": 2.4}
				}
			}
		},
		"9": {
			"player_id": 9,
			"player_name": "B. Player",
			"player_team_name": "Atlanta",
			"markets": {
				"rebounds": {
					"8": {"balance_line": 8, "is_balanced": false}
				}
			}
		}
	}
}`

func newSeededView(t *testing.T) *View {
	t.Helper()
	v := NewView()
	v.Apply(fixtureMsg(t, snapshotMsg))
	return v
}

func TestApply_SnapshotReplacesView(t *testing.T) {
	v := newSeededView(t)

	if !v.HasFixture() {
		t.Fatal("view should hold a fixture")
	}
	if v.FixtureID() != 101.0 {
		t.Errorf("FixtureID = %v", v.FixtureID())
	}
	if v.NewLines() != 4 {
		t.Errorf("NewLines = %d, want 4", v.NewLines())
	}

	got := v.BalanceLines("7", "points")
	if !reflect.DeepEqual(got, []float64{18, 20, 22}) {
		t.Errorf("BalanceLines = %v", got)
	}
}

func TestApply_IgnoresNonFixtureMessages(t *testing.T) {
	v := newSeededView(t)

	v.Apply(fixtureMsg(t, `{"type": "connection", "message": "SSE connected"}`))
	v.Apply(fixtureMsg(t, `{"type": "notification", "message": "hi"}`))

	if !v.HasFixture() {
		t.Error("non-fixture messages must not drop the fixture")
	}
}

func TestApply_ClearFlushesEverything(t *testing.T) {
	v := newSeededView(t)
	v.Adjust("7", "points", Up)

	v.Apply(fixtureMsg(t, `{"type": "clear", "message": "Fixture data cleared"}`))

	if v.HasFixture() {
		t.Error("clear should drop the fixture")
	}
	if _, ok := v.CurrentBalanceLine("7", "points"); ok {
		t.Error("clear should drop selections")
	}
}

func TestApply_SnapshotResetsSelections(t *testing.T) {
	v := newSeededView(t)
	v.Adjust("7", "points", Up) // move off the balanced line

	v.Apply(fixtureMsg(t, snapshotMsg))

	line, ok := v.CurrentBalanceLine("7", "points")
	if !ok || line != 20 {
		t.Errorf("after re-snapshot CurrentBalanceLine = %v, %v; want 20 (balanced)", line, ok)
	}
}

func TestPlayers_SortedByTeam(t *testing.T) {
	v := newSeededView(t)

	players := v.Players()
	if len(players) != 2 {
		t.Fatalf("got %d players", len(players))
	}
	if players[0].TeamName != "Atlanta" || players[1].TeamName != "Boston" {
		t.Errorf("order = %v", players)
	}
	if players[1].ID != "7" || players[1].Name != "A. Player" {
		t.Errorf("row = %+v", players[1])
	}
}

func TestCell_ToleratesAlternateKeyFormats(t *testing.T) {
	v := NewView()
	v.Apply(fixtureMsg(t, `{
		"type": "fixture",
		"players": {
			"7": {"markets": {"points": {"20.0": {"balance_line": 20}}}}
		}
	}`))

	cell, ok := v.Cell("7", "points", 20)
	if !ok {
		t.Fatal("cell keyed 20.0 should be found for line 20")
	}
	if cell["balance_line"] != 20.0 {
		t.Errorf("cell = %v", cell)
	}
}

func TestCurrentBalanceLine_SeedsFromBalanced(t *testing.T) {
	v := newSeededView(t)

	line, ok := v.CurrentBalanceLine("7", "points")
	if !ok || line != 20 {
		t.Errorf("got %v, %v; want 20", line, ok)
	}
}

func TestCurrentBalanceLine_FallsBackToSmallest(t *testing.T) {
	v := newSeededView(t)

	line, ok := v.CurrentBalanceLine("9", "rebounds")
	if !ok || line != 8 {
		t.Errorf("got %v, %v; want 8", line, ok)
	}
}

func TestCurrentBalanceLine_EmptyCell(t *testing.T) {
	v := newSeededView(t)

	if _, ok := v.CurrentBalanceLine("9", "points"); ok {
		t.Error("player 9 has no points market")
	}
	if _, ok := v.CurrentBalanceLine("nobody", "points"); ok {
		t.Error("unknown player has no lines")
	}
}

func TestAdjust_StepsAndWraps(t *testing.T) {
	tests := []struct {
		name string
		dirs []Direction
		want float64
	}{
		{"up from balanced", []Direction{Up}, 22},
		{"up wraps at top", []Direction{Up, Up}, 18},
		{"down from balanced", []Direction{Down}, 18},
		{"down wraps at bottom", []Direction{Down, Down}, 22},
		{"round trip", []Direction{Up, Down}, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newSeededView(t)
			for _, d := range tt.dirs {
				v.Adjust("7", "points", d)
			}
			line, ok := v.CurrentBalanceLine("7", "points")
			if !ok || line != tt.want {
				t.Errorf("got %v, %v; want %v", line, ok, tt.want)
			}
		})
	}
}

func TestAdjust_NoLinesIsNoOp(t *testing.T) {
	v := newSeededView(t)
	v.Adjust("nobody", "points", Up)

	if _, ok := v.CurrentBalanceLine("nobody", "points"); ok {
		t.Error("adjusting an empty cell must not create a selection")
	}
}

func TestAdjust_SelectionSurvivesLineSetChange(t *testing.T) {
	v := newSeededView(t)
	v.Adjust("7", "points", Up) // select 22

	// Replace the market with lines that no longer include 22. Selections
	// reset on snapshot, so re-select a now-missing line first.
	v.Apply(fixtureMsg(t, `{
		"type": "fixture",
		"players": {
			"7": {"markets": {"points": {
				"19": {"balance_line": 19},
				"21": {"balance_line": 21},
				"23": {"balance_line": 23}
			}}}
		}
	}`))
	v.selections[selKey("7", "points")] = 22

	v.Adjust("7", "points", Up)
	if line, _ := v.CurrentBalanceLine("7", "points"); line != 23 {
		t.Errorf("up from stale 22 = %v, want next higher 23", line)
	}

	v.selections[selKey("7", "points")] = 22
	v.Adjust("7", "points", Down)
	if line, _ := v.CurrentBalanceLine("7", "points"); line != 21 {
		t.Errorf("down from stale 22 = %v, want next lower 21", line)
	}
}

func TestMilestoneLines_UnionAcrossPlayers(t *testing.T) {
	v := NewView()
	v.Apply(fixtureMsg(t, `{
		"type": "fixture",
		"players": {
			"7": {"markets": {"points": {
				"20": {"balance_line": 20, "milestone_line": 25},
				"22": {"balance_line": 22}
			}}},
			"9": {"markets": {"points": {
				"15": {"balance_line": 15, "milestone_line": 25}
			}}}
		}
	}`))

	got := v.MilestoneLines("points")
	if !reflect.DeepEqual(got, []float64{22, 25}) {
		t.Errorf("MilestoneLines = %v, want [22 25]", got)
	}
}

func TestSpecialsByMarket(t *testing.T) {
	v := NewView()
	v.Apply(fixtureMsg(t, `{
		"type": "fixture",
		"isSpecials": true,
		"players": {"7": {"markets": {}}},
		"specials": [
			{"market_type": "points", "selection_name": "B first to 10"},
			{"market_type": "points", "selection_name": "A first to 10"},
			{"market_type": "threes", "selection_name": "Five threes"}
		]
	}`))

	grouped := v.SpecialsByMarket()
	if len(grouped) != 2 {
		t.Fatalf("got %d market groups", len(grouped))
	}
	points := grouped["points"]
	if len(points) != 2 || points[0]["selection_name"] != "A first to 10" {
		t.Errorf("points group = %v", points)
	}

	// A plain snapshot without specials drops the pane.
	v.Apply(fixtureMsg(t, snapshotMsg))
	if v.SpecialsByMarket() != nil {
		t.Error("snapshot without specials should clear the pane")
	}
}

func TestSpecialsRequireFlag(t *testing.T) {
	v := NewView()
	v.Apply(fixtureMsg(t, `{
		"type": "fixture",
		"players": {"7": {"markets": {}}},
		"specials": [{"market_type": "points", "selection_name": "First to 10"}]
	}`))

	if v.SpecialsByMarket() != nil {
		t.Error("specials without the isSpecials flag must not populate the pane")
	}
}
