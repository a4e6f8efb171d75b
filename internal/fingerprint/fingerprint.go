package fingerprint

import (
	"strings"
)

// Modifier tri-states, matching the host's int-valued modifier properties.
// Required means the modifier must be held, Rejected means it must not be,
// Ignored means either is accepted.
const (
	ModIgnored  int8 = -1
	ModRejected int8 = 0
	ModRequired int8 = 1
)

// Modifier glyphs, one per independent modifier, in fixed token order.
const (
	glyphHyper = '@'
	glyphOSKey = '#'
	glyphCtrl  = '^'
	glyphAlt   = '!'
	glyphShift = '+'
)

// ModifierToken compacts the modifier portion of a key identity into one
// short string: a glyph per non-rejected modifier ('~'-prefixed when the
// modifier is ignored rather than required), the key-modifier symbol when
// present, and a trailing '*' when key repeat is accepted.
//
// Rejected modifiers contribute nothing, which is what keeps stored
// fingerprints truthy-only: the all-default token is the empty string.
func ModifierToken(hyper, oskey, ctrl, alt, shift int8, keyModifier string, repeat bool) string {
	var b strings.Builder
	appendMod := func(state int8, glyph byte) {
		if state == ModRejected {
			return
		}
		if state < 0 {
			b.WriteByte('~')
		}
		b.WriteByte(glyph)
	}
	appendMod(hyper, glyphHyper)
	appendMod(oskey, glyphOSKey)
	appendMod(ctrl, glyphCtrl)
	appendMod(alt, glyphAlt)
	appendMod(shift, glyphShift)
	if keyModifier != "" && keyModifier != "NONE" {
		b.WriteString(keyModifier)
	}
	if repeat {
		b.WriteByte('*')
	}
	return b.String()
}

// Fingerprint is a canonical snapshot of one keymap entry's identity:
// the shortcut identity (operator, compacted args, modal value, active flag)
// plus the key identity compacted into the modifier token and the
// pre-remap (Source) and post-remap (Target) key symbols.
//
// Source is recorded so reversal never needs to recompute a layout
// transform; an entry remapped S -> O reverts by writing back S.
type Fingerprint struct {
	Op        string // operator idname; the journal's grouping key
	Props     Map    // compacted operator args, nil when empty
	PropValue string // modal map mode, "" when NONE
	Inactive  bool   // true only for disabled entries
	Press     string // press subtype, "" for the default PRESS
	Modifiers string // compact modifier token, see ModifierToken
	Source    string // key symbol before our remap
	Target    string // key symbol after our remap
}

// Wire field names. Kept short because the blob is persisted in the host's
// preference storage and re-read on every panel redraw.
const (
	fieldOp        = "op"
	fieldProps     = "p"
	fieldPropValue = "pv"
	fieldInactive  = "i"
	fieldPress     = "v"
	fieldModifiers = "m"
	fieldSource    = "s"
	fieldTarget    = "t"
)

// Record returns the truthy-only wire form of the fingerprint, without the
// operator name (which is the parent key in the journal structure).
func (f Fingerprint) Record() Map {
	m := Map{}
	if len(f.Props) > 0 {
		m[fieldProps] = f.Props
	}
	if f.PropValue != "" {
		m[fieldPropValue] = String(f.PropValue)
	}
	if f.Inactive {
		m[fieldInactive] = Bool(true)
	}
	if f.Press != "" {
		m[fieldPress] = String(f.Press)
	}
	if f.Modifiers != "" {
		m[fieldModifiers] = String(f.Modifiers)
	}
	if f.Source != "" {
		m[fieldSource] = String(f.Source)
	}
	if f.Target != "" {
		m[fieldTarget] = String(f.Target)
	}
	return m
}

// Encode serializes the full fingerprint, operator included.
func (f Fingerprint) Encode() ([]byte, error) {
	m := f.Record()
	if f.Op != "" {
		m[fieldOp] = String(f.Op)
	}
	return MarshalCanonical(m)
}

// FromRecord rebuilds a fingerprint from its wire form.
// The operator name is supplied by the caller (journal grouping key).
// Shape violations yield a CorruptError so one bad record can be discarded
// without losing the rest of the blob.
func FromRecord(op string, m Map) (Fingerprint, error) {
	f := Fingerprint{Op: op}
	for k, v := range m {
		switch k {
		case fieldProps:
			props, ok := v.(Map)
			if !ok {
				return Fingerprint{}, corruptf("field %q: expected map, got %T", k, v)
			}
			f.Props = props
		case fieldPropValue:
			s, ok := v.(String)
			if !ok {
				return Fingerprint{}, corruptf("field %q: expected string, got %T", k, v)
			}
			f.PropValue = string(s)
		case fieldInactive:
			b, ok := v.(Bool)
			if !ok {
				return Fingerprint{}, corruptf("field %q: expected bool, got %T", k, v)
			}
			f.Inactive = bool(b)
		case fieldPress:
			s, ok := v.(String)
			if !ok {
				return Fingerprint{}, corruptf("field %q: expected string, got %T", k, v)
			}
			f.Press = string(s)
		case fieldModifiers:
			s, ok := v.(String)
			if !ok {
				return Fingerprint{}, corruptf("field %q: expected string, got %T", k, v)
			}
			f.Modifiers = string(s)
		case fieldSource:
			s, ok := v.(String)
			if !ok {
				return Fingerprint{}, corruptf("field %q: expected string, got %T", k, v)
			}
			f.Source = string(s)
		case fieldTarget:
			s, ok := v.(String)
			if !ok {
				return Fingerprint{}, corruptf("field %q: expected string, got %T", k, v)
			}
			f.Target = string(s)
		case fieldOp:
			s, ok := v.(String)
			if !ok {
				return Fingerprint{}, corruptf("field %q: expected string, got %T", k, v)
			}
			f.Op = string(s)
		default:
			return Fingerprint{}, corruptf("unknown field %q", k)
		}
	}
	return f, nil
}

// Decode is the inverse of Encode.
func Decode(data []byte) (Fingerprint, error) {
	v, err := UnmarshalCanonical(data)
	if err != nil {
		return Fingerprint{}, err
	}
	m, ok := v.(Map)
	if !ok {
		return Fingerprint{}, corruptf("expected map, got %T", v)
	}
	return FromRecord("", m)
}

// ShortcutEqual reports whether two fingerprints carry the same shortcut
// identity: operator, compacted args, modal value, and active flag.
// Key identity (modifier token, source/target symbols) is ignored; this is
// the relaxed comparison used to recover entries the host reset.
func (f Fingerprint) ShortcutEqual(other Fingerprint) bool {
	if f.Op != other.Op || f.PropValue != other.PropValue || f.Inactive != other.Inactive {
		return false
	}
	return Equal(normalizeProps(f.Props), normalizeProps(other.Props))
}

func normalizeProps(m Map) Value {
	if len(m) == 0 {
		return nil
	}
	return m
}
