// Package keymap models the host application's keymap: categories, entries,
// their input-matching key identity and action-binding shortcut identity,
// and the narrow Host interface the reconciliation driver mutates through.
//
// The host provides no stable identifiers for entries, so nothing in this
// package exposes one; all correlation happens by value through the
// fingerprint codec.
package keymap

import (
	"fmt"

	"keylayer/internal/fingerprint"
)

// Class is the input-event class of an entry.
type Class string

const (
	ClassKeyboard  Class = "KEYBOARD"
	ClassMouse     Class = "MOUSE"
	ClassDrag      Class = "DRAG"
	ClassTimer     Class = "TIMER"
	ClassTextInput Class = "TEXTINPUT"
)

// Press is the press subtype of a key identity.
type Press string

const (
	PressDown    Press = "PRESS"
	PressRelease Press = "RELEASE"
	PressClick   Press = "CLICK"
	PressDouble  Press = "DOUBLE_CLICK"
	PressAny     Press = "ANY"
)

// KeyIdentity is the set of fields the host uses to decide two shortcut
// assignments are the same input pattern.
//
// Invariants (enforced by Validate):
//   - Direction is meaningful only for drag-class entries
//   - RepeatOK is meaningful only for keyboard-class entries
type KeyIdentity struct {
	Key         string // primary key/button symbol, e.g. "S", "LEFT_BRACKET"
	Press       Press
	Shift       int8 // tri-state, see fingerprint.ModRequired et al.
	Ctrl        int8
	Alt         int8
	OSKey       int8
	Hyper       int8
	KeyModifier string // secondary held key, "" or "NONE" when absent
	Class       Class
	Direction   string // drag direction, drag class only
	RepeatOK    bool   // key repeat accepted, keyboard class only
}

// Validate checks the conditional-field invariants.
func (k KeyIdentity) Validate() error {
	if k.Direction != "" && k.Class != ClassDrag {
		return fmt.Errorf("direction %q set on non-drag entry (class %s)", k.Direction, k.Class)
	}
	if k.RepeatOK && k.Class != ClassKeyboard {
		return fmt.Errorf("repeat flag set on non-keyboard entry (class %s)", k.Class)
	}
	return nil
}

// ModifierToken compacts the modifier states into the fingerprint token.
func (k KeyIdentity) ModifierToken() string {
	return fingerprint.ModifierToken(k.Hyper, k.OSKey, k.Ctrl, k.Alt, k.Shift, k.KeyModifier, k.RepeatOK)
}

// Equal reports full key-identity equality.
func (k KeyIdentity) Equal(other KeyIdentity) bool {
	return k == other
}

// WithKey returns a copy with a different primary key symbol.
// Everything else (modifiers, class, subtype) is preserved; remapping only
// ever rewrites the assignment field.
func (k KeyIdentity) WithKey(key string) KeyIdentity {
	k.Key = key
	return k
}

// Shortcut is the action half of an entry: the operator it triggers, its
// argument payload, the active flag, and the modal-map mode value.
type Shortcut struct {
	Op        string
	Props     fingerprint.Map
	PropValue string // modal maps only, "" or "NONE" when absent
	Active    bool
}

// Entry is one binding of an input pattern to an action.
type Entry struct {
	Key      KeyIdentity
	Shortcut Shortcut
}

// Category is a named grouping of entries tied to a UI context.
type Category struct {
	Name   string
	Space  string
	Region string
	Modal  bool
}

// ID returns the stable category identifier used as the journal's top-level
// key: "modal:" prefix for modal maps, then space.region:name.
func (c Category) ID() string {
	prefix := ""
	if c.Modal {
		prefix = "modal:"
	}
	return fmt.Sprintf("%s%s.%s:%s", prefix, c.Space, c.Region, c.Name)
}
