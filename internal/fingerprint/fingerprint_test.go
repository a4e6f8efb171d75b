package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModifierToken(t *testing.T) {
	tests := []struct {
		name                          string
		hyper, oskey, ctrl, alt, shft int8
		keyMod                        string
		repeat                        bool
		expected                      string
	}{
		{"all rejected", 0, 0, 0, 0, 0, "", false, ""},
		{"shift required", 0, 0, 0, 0, ModRequired, "", false, "+"},
		{"ctrl and alt", 0, 0, ModRequired, ModRequired, 0, "", false, "^!"},
		{"ignored ctrl", 0, 0, ModIgnored, 0, 0, "", false, "~^"},
		{"hyper before oskey", ModRequired, ModRequired, 0, 0, 0, "", false, "@#"},
		{"key modifier appended", 0, 0, 0, 0, 0, "F1", false, "F1"},
		{"none key modifier skipped", 0, 0, 0, 0, 0, "NONE", false, ""},
		{"repeat star", 0, 0, 0, 0, 0, "", true, "*"},
		{"everything", ModRequired, ModRequired, ModIgnored, ModRequired, ModRequired, "TAB", true, "@#~^!+TAB*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ModifierToken(tt.hyper, tt.oskey, tt.ctrl, tt.alt, tt.shft, tt.keyMod, tt.repeat)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRecordIsTruthyOnly(t *testing.T) {
	assert.Empty(t, Fingerprint{Op: "wm.call_menu"}.Record(),
		"default key identity journals as an empty record")

	full := Fingerprint{
		Op:        "transform.resize",
		Props:     Map{"value": Float(2)},
		PropValue: "TRANSLATION",
		Inactive:  true,
		Press:     "CLICK",
		Modifiers: "^+",
		Source:    "S",
		Target:    "O",
	}
	rec := full.Record()
	assert.Len(t, rec, 7)
	assert.NotContains(t, rec, "op", "operator lives in the parent key, not the record")
}

func TestFingerprintEncodeDecodeRoundTrip(t *testing.T) {
	fp := Fingerprint{
		Op:        "node.duplicate_move",
		Props:     Map{"NODE_OT_translate_attach": Map{"TRANSFORM_OT_translate": Map{"view2d_edge_pan": Bool(true)}}},
		Modifiers: "+",
		Source:    "D",
		Target:    "E",
	}

	enc, err := fp.Encode()
	require.NoError(t, err)

	got, err := Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, fp, got)
}

func TestFromRecordRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name string
		m    Map
	}{
		{"unknown field", Map{"zz": String("x")}},
		{"props not a map", Map{"p": String("x")}},
		{"source not a string", Map{"s": Int(1)}},
		{"inactive not a bool", Map{"i": String("yes")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromRecord("op", tt.m)
			require.Error(t, err)
			var corrupt *CorruptError
			assert.ErrorAs(t, err, &corrupt)
		})
	}
}

func TestShortcutEqualIgnoresKeyIdentity(t *testing.T) {
	a := Fingerprint{Op: "transform.resize", Modifiers: "+", Source: "S", Target: "O"}
	b := Fingerprint{Op: "transform.resize", Modifiers: "^", Source: "D", Target: "E"}
	assert.True(t, a.ShortcutEqual(b))

	c := Fingerprint{Op: "transform.translate"}
	assert.False(t, a.ShortcutEqual(c))
}

func TestShortcutEqualNilAndEmptyProps(t *testing.T) {
	a := Fingerprint{Op: "wm.call_menu"}
	b := Fingerprint{Op: "wm.call_menu", Props: Map{}}
	assert.True(t, a.ShortcutEqual(b))

	c := Fingerprint{Op: "wm.call_menu", Props: Map{"name": String("INFO_MT_area")}}
	assert.False(t, a.ShortcutEqual(c))
}
