package fixture

import "strconv"

// LineRecord is one market quotation for one player at one balance or
// milestone line. Upstream payloads carry an open-ended field set (odds,
// suspension flags, settlement fields, suspension-reason sub-objects), so the
// record keeps the raw decoded JSON and exposes typed accessors for the few
// fields the reshaper interprets. A missing field is reported as absent,
// never defaulted.
type LineRecord map[string]any

// PlayerID returns the record's player id in canonical key form.
// Numeric and string ids for the same player compare equal.
func (l LineRecord) PlayerID() (string, bool) {
	return looseKey(l["player_id"])
}

// MarketType returns the record's market type (e.g. "points", "assists").
func (l LineRecord) MarketType() (string, bool) {
	s, ok := l["market_type"].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// BalanceLine returns the record's balance-line threshold in canonical key
// form, suitable as a balance-line map key.
func (l LineRecord) BalanceLine() (string, bool) {
	return looseKey(l["balance_line"])
}

// IsBalanced reports whether the record is flagged as the balanced line for
// its market. Only a JSON boolean true counts.
func (l LineRecord) IsBalanced() bool {
	b, ok := l["is_balanced"].(bool)
	return ok && b
}

// Clone returns a shallow copy of the record. Cells stored in a Document are
// clones so that clearing the balanced flag on a stored cell never mutates
// the caller's payload.
func (l LineRecord) Clone() LineRecord {
	out := make(LineRecord, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// looseKey converts a loosely-typed id or line value into its canonical map
// key: JSON numbers render without a trailing ".0", and numeric strings
// normalize to the same form, so 7, 7.0 and "7" all key as "7".
func looseKey(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		if t == "" {
			return "", false
		}
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64), true
		}
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	default:
		return "", false
	}
}
