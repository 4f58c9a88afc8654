// Package viewer is the consuming side of the odds-composer broadcast
// stream: it folds fixture messages into one current view and tracks the
// per-cell balance-line selections a table UI renders.
package viewer

import (
	"math"
	"sort"
	"strconv"
	"sync"
)

// Direction steps a cell's balance-line selection through the quoted lines.
type Direction int

const (
	Up Direction = iota
	Down
)

// Player is one table row.
type Player struct {
	ID       string
	Name     string
	TeamName string
}

// View holds exactly one logical current fixture, reconstructed from the
// message stream, plus the client-only selection state layered on top of it.
type View struct {
	mu         sync.RWMutex
	fixture    map[string]any
	specials   map[string]any
	selections map[string]float64
}

// NewView creates an empty view.
func NewView() *View {
	return &View{selections: make(map[string]float64)}
}

// Apply folds one broadcast message into the view. A full snapshot replaces
// the view wholesale and drops the manual balance-line selections and the
// specials pane; an update message is the already-merged document and is
// taken as authoritative, also invalidating selections since the line set may
// have changed. Messages without players content (connection events,
// notifications, heartbeat frames) are ignored, except clear which flushes
// everything.
func (v *View) Apply(msg map[string]any) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if t, _ := msg["type"].(string); t == "clear" {
		v.fixture = nil
		v.specials = nil
		v.selections = make(map[string]float64)
		return
	}

	hasSpecials := false
	if flagged, _ := msg["isSpecials"].(bool); flagged && msg["specials"] != nil {
		v.specials = msg
		hasSpecials = true
	}

	players, ok := msg["players"].(map[string]any)
	if !ok || players == nil {
		return
	}

	if isUpdate, _ := msg["isUpdate"].(bool); !isUpdate && !hasSpecials {
		v.specials = nil
	}

	v.fixture = msg
	v.selections = make(map[string]float64)
}

// HasFixture reports whether any fixture data has been received.
func (v *View) HasFixture() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.fixture != nil
}

// FixtureID returns the current fixture's id, nil when none.
func (v *View) FixtureID() any {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.fixture == nil {
		return nil
	}
	return v.fixture["fixture_id"]
}

// NewLines returns the line count carried by the last fixture message.
func (v *View) NewLines() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.fixture == nil {
		return 0
	}
	n, _ := num(v.fixture["new_lines"])
	return int(n)
}

// Players returns the table rows sorted by team name.
func (v *View) Players() []Player {
	v.mu.RLock()
	defer v.mu.RUnlock()

	players, _ := v.playersLocked()
	out := make([]Player, 0, len(players))
	for id, raw := range players {
		entry, _ := raw.(map[string]any)
		out = append(out, Player{
			ID:       id,
			Name:     str(entry["player_name"]),
			TeamName: str(entry["player_team_name"]),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TeamName != out[j].TeamName {
			return out[i].TeamName < out[j].TeamName
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// BalanceLines returns the numeric balance lines quoted for one cell, sorted
// ascending. Non-numeric map keys are skipped.
func (v *View) BalanceLines(playerID, marketType string) []float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return lineKeys(v.marketLocked(playerID, marketType))
}

// Cell returns the line record quoted at the given balance line.
func (v *View) Cell(playerID, marketType string, line float64) (map[string]any, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	market := v.marketLocked(playerID, marketType)
	if market == nil {
		return nil, false
	}
	if cell, ok := market[lineKey(line)].(map[string]any); ok {
		return cell, true
	}
	// Tolerate producers whose keys format numbers differently.
	for k, raw := range market {
		if f, err := strconv.ParseFloat(k, 64); err == nil && f == line {
			cell, ok := raw.(map[string]any)
			return cell, ok
		}
	}
	return nil, false
}

// CurrentBalanceLine returns the line one cell should display: the manual
// selection if set, else the line flagged balanced, else the smallest quoted
// line. ok is false when the cell has no numeric lines at all.
func (v *View) CurrentBalanceLine(playerID, marketType string) (float64, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.currentLocked(playerID, marketType)
}

// Adjust moves a cell's selection to the next quoted line in the given
// direction, wrapping at the ends. A no-op for cells without lines.
func (v *View) Adjust(playerID, marketType string, dir Direction) {
	v.mu.Lock()
	defer v.mu.Unlock()

	lines := lineKeys(v.marketLocked(playerID, marketType))
	if len(lines) == 0 {
		return
	}
	current, _ := v.currentLocked(playerID, marketType)

	idx := -1
	for i, l := range lines {
		if l == current {
			idx = i
			break
		}
	}

	next := current
	switch dir {
	case Up:
		switch {
		case idx == -1:
			// Selection survived a line-set change: step to the next
			// higher quoted line, or wrap to the smallest.
			next = lines[0]
			for _, l := range lines {
				if l > current {
					next = l
					break
				}
			}
		case idx == len(lines)-1:
			next = lines[0]
		default:
			next = lines[idx+1]
		}
	case Down:
		switch {
		case idx == -1:
			next = lines[len(lines)-1]
			for i := len(lines) - 1; i >= 0; i-- {
				if lines[i] < current {
					next = lines[i]
					break
				}
			}
		case idx == 0:
			next = lines[len(lines)-1]
		default:
			next = lines[idx-1]
		}
	}

	v.selections[selKey(playerID, marketType)] = next
}

// MilestoneLines returns the union of milestone thresholds quoted for one
// market across all players, sorted ascending. A record without an explicit
// milestone_line contributes its balance-line key instead.
func (v *View) MilestoneLines(marketType string) []float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()

	players, _ := v.playersLocked()
	seen := make(map[float64]struct{})
	for _, raw := range players {
		entry, _ := raw.(map[string]any)
		markets, _ := entry["markets"].(map[string]any)
		market, _ := markets[marketType].(map[string]any)
		for k, cellRaw := range market {
			key, err := strconv.ParseFloat(k, 64)
			if err != nil {
				continue
			}
			line := key
			if cell, ok := cellRaw.(map[string]any); ok {
				if m, ok := num(cell["milestone_line"]); ok {
					line = m
				}
			}
			seen[line] = struct{}{}
		}
	}

	out := make([]float64, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Float64s(out)
	return out
}

// SpecialsByMarket groups the current specials selections by market type,
// each group sorted by selection name.
func (v *View) SpecialsByMarket() map[string][]map[string]any {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.specials == nil {
		return nil
	}
	list, _ := v.specials["specials"].([]any)
	grouped := make(map[string][]map[string]any)
	for _, raw := range list {
		special, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		market := str(special["market_type"])
		grouped[market] = append(grouped[market], special)
	}
	for market := range grouped {
		group := grouped[market]
		sort.Slice(group, func(i, j int) bool {
			return str(group[i]["selection_name"]) < str(group[j]["selection_name"])
		})
	}
	return grouped
}

func (v *View) playersLocked() (map[string]any, bool) {
	if v.fixture == nil {
		return nil, false
	}
	players, ok := v.fixture["players"].(map[string]any)
	return players, ok
}

func (v *View) marketLocked(playerID, marketType string) map[string]any {
	players, ok := v.playersLocked()
	if !ok {
		return nil
	}
	entry, _ := players[playerID].(map[string]any)
	markets, _ := entry["markets"].(map[string]any)
	market, _ := markets[marketType].(map[string]any)
	return market
}

func (v *View) currentLocked(playerID, marketType string) (float64, bool) {
	market := v.marketLocked(playerID, marketType)
	lines := lineKeys(market)
	if len(lines) == 0 {
		return 0, false
	}
	if sel, ok := v.selections[selKey(playerID, marketType)]; ok {
		return sel, true
	}
	// Seed from the balanced line (the smallest, should more than one slip
	// through), else the smallest quoted line.
	balanced := math.NaN()
	for k, raw := range market {
		f, err := strconv.ParseFloat(k, 64)
		if err != nil {
			continue
		}
		cell, _ := raw.(map[string]any)
		if cell == nil {
			continue
		}
		if b, ok := cell["is_balanced"].(bool); ok && b {
			if math.IsNaN(balanced) || f < balanced {
				balanced = f
			}
		}
	}
	if !math.IsNaN(balanced) {
		return balanced, true
	}
	return lines[0], true
}

func lineKeys(market map[string]any) []float64 {
	lines := make([]float64, 0, len(market))
	for k := range market {
		if f, err := strconv.ParseFloat(k, 64); err == nil {
			lines = append(lines, f)
		}
	}
	sort.Float64s(lines)
	return lines
}

func lineKey(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func selKey(playerID, marketType string) string {
	return playerID + "|" + marketType
}

func num(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
