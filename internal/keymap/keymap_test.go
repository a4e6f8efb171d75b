package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keylayer/internal/fingerprint"
)

func TestKeyIdentityValidate(t *testing.T) {
	tests := []struct {
		name    string
		key     KeyIdentity
		wantErr bool
	}{
		{
			name: "plain keyboard key",
			key:  KeyIdentity{Key: "S", Press: PressDown, Class: ClassKeyboard},
		},
		{
			name: "drag with direction",
			key:  KeyIdentity{Key: "LEFTMOUSE", Press: PressClick, Class: ClassDrag, Direction: "NORTH"},
		},
		{
			name:    "direction on keyboard entry",
			key:     KeyIdentity{Key: "S", Press: PressDown, Class: ClassKeyboard, Direction: "NORTH"},
			wantErr: true,
		},
		{
			name: "repeat on keyboard entry",
			key:  KeyIdentity{Key: "S", Press: PressDown, Class: ClassKeyboard, RepeatOK: true},
		},
		{
			name:    "repeat on mouse entry",
			key:     KeyIdentity{Key: "LEFTMOUSE", Press: PressClick, Class: ClassMouse, RepeatOK: true},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.key.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestKeyIdentityModifierToken(t *testing.T) {
	tests := []struct {
		name string
		key  KeyIdentity
		want string
	}{
		{
			name: "no modifiers",
			key:  KeyIdentity{Key: "S", Class: ClassKeyboard},
			want: "",
		},
		{
			name: "ctrl shift required",
			key:  KeyIdentity{Key: "S", Class: ClassKeyboard, Ctrl: fingerprint.ModRequired, Shift: fingerprint.ModRequired},
			want: "^+",
		},
		{
			name: "alt ignored",
			key:  KeyIdentity{Key: "S", Class: ClassKeyboard, Alt: fingerprint.ModIgnored},
			want: "~!",
		},
		{
			name: "all required in fixed order",
			key: KeyIdentity{
				Key: "S", Class: ClassKeyboard,
				Hyper: fingerprint.ModRequired, OSKey: fingerprint.ModRequired,
				Ctrl: fingerprint.ModRequired, Alt: fingerprint.ModRequired, Shift: fingerprint.ModRequired,
			},
			want: "@#^!+",
		},
		{
			name: "key modifier appended",
			key:  KeyIdentity{Key: "S", Class: ClassKeyboard, Ctrl: fingerprint.ModRequired, KeyModifier: "D"},
			want: "^D",
		},
		{
			name: "NONE key modifier omitted",
			key:  KeyIdentity{Key: "S", Class: ClassKeyboard, KeyModifier: "NONE"},
			want: "",
		},
		{
			name: "repeat trailing star",
			key:  KeyIdentity{Key: "S", Class: ClassKeyboard, Shift: fingerprint.ModRequired, RepeatOK: true},
			want: "+*",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.key.ModifierToken())
		})
	}
}

func TestCategoryID(t *testing.T) {
	cat := Category{Name: "Node Editor", Space: "NODE_EDITOR", Region: "WINDOW"}
	assert.Equal(t, "NODE_EDITOR.WINDOW:Node Editor", cat.ID())

	modal := Category{Name: "Transform Modal Map", Space: "EMPTY", Region: "WINDOW", Modal: true}
	assert.Equal(t, "modal:EMPTY.WINDOW:Transform Modal Map", modal.ID())
}

func TestMemoryHostDuplicateCategory(t *testing.T) {
	h := NewMemoryHost()
	cat := Category{Name: "Window", Space: "EMPTY", Region: "WINDOW"}
	require.NoError(t, h.AddCategory(cat))
	assert.Error(t, h.AddCategory(cat))
}

func TestMemoryHostDuplicateEntriesAllowed(t *testing.T) {
	h := NewMemoryHost()
	cat := Category{Name: "Window", Space: "EMPTY", Region: "WINDOW"}
	e := Entry{
		Key:      KeyIdentity{Key: "S", Press: PressDown, Class: ClassKeyboard},
		Shortcut: Shortcut{Op: "transform.resize", Active: true},
	}
	require.NoError(t, h.AddEntry(cat, e))
	require.NoError(t, h.AddEntry(cat, e))

	refs, err := h.Entries(cat)
	require.NoError(t, err)
	assert.Len(t, refs, 2)
}

func TestMemoryHostSetKey(t *testing.T) {
	h := NewMemoryHost()
	cat := Category{Name: "Window", Space: "EMPTY", Region: "WINDOW"}
	e := Entry{
		Key:      KeyIdentity{Key: "S", Press: PressDown, Class: ClassKeyboard},
		Shortcut: Shortcut{Op: "transform.resize", Active: true},
	}
	require.NoError(t, h.AddEntry(cat, e))

	refs, err := h.Entries(cat)
	require.NoError(t, err)
	require.Len(t, refs, 1)

	require.NoError(t, refs[0].SetKey(e.Key.WithKey("O")))
	assert.Equal(t, "O", refs[0].Entry().Key.Key)
	assert.Equal(t, "transform.resize", refs[0].Entry().Shortcut.Op)
}

func TestMemoryHostForbidden(t *testing.T) {
	h := NewMemoryHost()
	cat := Category{Name: "Window", Space: "EMPTY", Region: "WINDOW"}
	e := Entry{
		Key:      KeyIdentity{Key: "S", Press: PressDown, Class: ClassKeyboard},
		Shortcut: Shortcut{Op: "transform.resize", Active: true},
	}
	require.NoError(t, h.AddEntry(cat, e))
	h.Forbidden = true

	refs, err := h.Entries(cat)
	require.NoError(t, err)
	err = refs[0].SetKey(e.Key.WithKey("O"))
	assert.ErrorIs(t, err, ErrMutationForbidden)
	assert.Equal(t, "S", refs[0].Entry().Key.Key)
}

func TestSnapshotRoundTrip(t *testing.T) {
	h := NewMemoryHost()
	cat := Category{Name: "Node Editor", Space: "NODE_EDITOR", Region: "WINDOW"}
	require.NoError(t, h.AddEntry(cat, Entry{
		Key: KeyIdentity{Key: "D", Press: PressDown, Class: ClassKeyboard, Shift: fingerprint.ModRequired},
		Shortcut: Shortcut{
			Op: "node.duplicate_move",
			Props: fingerprint.Map{
				"NODE_OT_duplicate": fingerprint.Map{"keep_inputs": fingerprint.Bool(true)},
				"types":             fingerprint.Set{fingerprint.String("VALUE"), fingerprint.String("RGBA")},
			},
			Active: true,
		},
	}))
	require.NoError(t, h.AddEntry(cat, Entry{
		Key:      KeyIdentity{Key: "X", Press: PressDown, Class: ClassKeyboard},
		Shortcut: Shortcut{Op: "node.delete", Active: false},
	}))

	snap, err := SnapshotFromHost(h)
	require.NoError(t, err)

	data, err := EncodeSnapshot(snap)
	require.NoError(t, err)

	parsed, err := ParseSnapshot(data)
	require.NoError(t, err)

	h2, err := HostFromSnapshot(parsed)
	require.NoError(t, err)

	refs, err := h2.Entries(cat)
	require.NoError(t, err)
	require.Len(t, refs, 2)

	e0 := refs[0].Entry()
	assert.Equal(t, "node.duplicate_move", e0.Shortcut.Op)
	assert.True(t, e0.Shortcut.Active)
	_, isSet := e0.Shortcut.Props["types"].(fingerprint.Set)
	assert.True(t, isSet, "set-valued prop must survive the round trip as a set")

	e1 := refs[1].Entry()
	assert.Equal(t, "node.delete", e1.Shortcut.Op)
	assert.False(t, e1.Shortcut.Active)
}

func TestSnapshotRejectsInvalidKey(t *testing.T) {
	_, err := HostFromSnapshot(Snapshot{
		Categories: []SnapshotCategory{{
			Name: "Window", Space: "EMPTY", Region: "WINDOW",
			Entries: []SnapshotEntry{{
				Op: "wm.save", Key: "S", Direction: "NORTH",
			}},
		}},
	})
	assert.Error(t, err)
}
