package journal

import (
	"keylayer/internal/fingerprint"
	"keylayer/internal/keymap"
	"keylayer/internal/layout"
)

// Side reports which end of a remap a resolved record was matched on.
type Side int

const (
	// SideNone means the record was matched on shortcut identity alone,
	// after the char and modifier passes failed to narrow further.
	SideNone Side = iota
	// SideAfter means the live entry sits at the record's target char.
	SideAfter
	// SideBefore means the live entry sits at the record's source char,
	// which is how a host-reset entry looks.
	SideBefore
)

// Match is a resolved correlation between a live entry and a record.
type Match struct {
	Record *Record
	Side   Side
}

// LiveEntry is the matcher's view of one keymap entry: its fingerprint plus
// the character its key currently sits on.
type LiveEntry struct {
	Print fingerprint.Fingerprint
	Char  string
}

// Live builds the matcher's view of a keymap entry. Operator args are
// compacted here, so all downstream comparisons see the truthy-only form.
func Live(e keymap.Entry) LiveEntry {
	var props fingerprint.Map
	if compacted, ok := fingerprint.Compact(e.Shortcut.Props).(fingerprint.Map); ok {
		props = compacted
	}
	propValue := e.Shortcut.PropValue
	if propValue == "NONE" {
		propValue = ""
	}
	press := string(e.Key.Press)
	if press == string(keymap.PressDown) {
		press = ""
	}
	return LiveEntry{
		Print: fingerprint.Fingerprint{
			Op:        e.Shortcut.Op,
			Props:     props,
			PropValue: propValue,
			Inactive:  !e.Shortcut.Active,
			Press:     press,
			Modifiers: e.Key.ModifierToken(),
		},
		Char: layout.TypeToChar(e.Key.Key),
	}
}

// compatible reports shortcut-identity compatibility between a live entry
// and a record: operator args, modal value, press subtype and active flag.
// Key identity is deliberately excluded; that is what the later passes
// disambiguate on.
func compatible(live LiveEntry, rec *Record) bool {
	return live.Print.ShortcutEqual(fingerprint.Fingerprint{
		Op:        live.Print.Op,
		Props:     rec.Props,
		PropValue: rec.PropValue,
		Inactive:  rec.Inactive,
	}) && live.Print.Press == rec.Press
}

// Resolve correlates a live entry with its journal record among the
// records for its operator, or nil when no unambiguous match exists.
//
// Narrowing order: shortcut identity first; then the live char against the
// record's target (an entry we already moved), then against its source (an
// entry the host reset); then the modifier token, because stock keymaps
// carry entries identical up to modifiers; then target and source once
// more within the modifier-narrowed set. Any remaining ambiguity resolves
// to nil rather than guessing.
func Resolve(live LiveEntry, candidates []*Record) Match {
	var compat []*Record
	for _, rec := range candidates {
		if compatible(live, rec) {
			compat = append(compat, rec)
		}
	}
	switch len(compat) {
	case 0:
		return Match{}
	case 1:
		return matchWithSide(live, compat[0])
	}

	if m, ok := narrowByChar(live, compat); ok {
		return m
	}

	var narrowed []*Record
	for _, rec := range compat {
		if live.Print.Modifiers == rec.Modifiers {
			narrowed = append(narrowed, rec)
		}
	}
	switch len(narrowed) {
	case 0:
		return Match{}
	case 1:
		return matchWithSide(live, narrowed[0])
	}

	if m, ok := narrowByChar(live, narrowed); ok {
		return m
	}
	return Match{}
}

// narrowByChar applies the target-then-source passes over a candidate set.
func narrowByChar(live LiveEntry, recs []*Record) (Match, bool) {
	var after []*Record
	for _, rec := range recs {
		if live.Char == rec.Target {
			after = append(after, rec)
		}
	}
	if len(after) == 1 {
		return Match{Record: after[0], Side: SideAfter}, true
	}
	var before []*Record
	for _, rec := range recs {
		if live.Char == rec.Source {
			before = append(before, rec)
		}
	}
	if len(before) == 1 {
		return Match{Record: before[0], Side: SideBefore}, true
	}
	return Match{}, false
}

// matchWithSide classifies a uniquely-resolved record by where the live
// entry sits relative to it.
func matchWithSide(live LiveEntry, rec *Record) Match {
	switch live.Char {
	case rec.Target:
		return Match{Record: rec, Side: SideAfter}
	case rec.Source:
		return Match{Record: rec, Side: SideBefore}
	default:
		return Match{Record: rec, Side: SideNone}
	}
}
