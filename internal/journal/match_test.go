package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keylayer/internal/fingerprint"
	"keylayer/internal/keymap"
)

func liveEntry(op, key string, shift int8, active bool, props fingerprint.Map) LiveEntry {
	return Live(keymap.Entry{
		Key: keymap.KeyIdentity{
			Key:   key,
			Press: keymap.PressDown,
			Shift: shift,
			Class: keymap.ClassKeyboard,
		},
		Shortcut: keymap.Shortcut{Op: op, Props: props, Active: active},
	})
}

func TestLiveCompactsProps(t *testing.T) {
	live := liveEntry("node.delete", "X", 0, true, fingerprint.Map{
		"confirm": fingerprint.Bool(false),
		"mode":    fingerprint.String("ALL"),
	})
	assert.Equal(t, fingerprint.Map{"mode": fingerprint.String("ALL")}, live.Print.Props)
	assert.Equal(t, "X", live.Char)
}

func TestLiveTranslatesEventTypes(t *testing.T) {
	live := liveEntry("wm.context_toggle", "SEMI_COLON", 0, true, nil)
	assert.Equal(t, ";", live.Char)
}

func TestResolveSingleCompatible(t *testing.T) {
	r := rec("transform.resize", "", "S", "O")
	m := Resolve(liveEntry("transform.resize", "O", 0, true, nil), []*Record{r})
	assert.Same(t, r, m.Record)
	assert.Equal(t, SideAfter, m.Side)

	m = Resolve(liveEntry("transform.resize", "S", 0, true, nil), []*Record{r})
	assert.Same(t, r, m.Record)
	assert.Equal(t, SideBefore, m.Side)
}

func TestResolveIncompatibleProps(t *testing.T) {
	r := &Record{
		Op:     "node.duplicate_move",
		Props:  fingerprint.Map{"mode": fingerprint.String("TRANSLATION")},
		Source: "D",
		Target: "E",
	}
	m := Resolve(liveEntry("node.duplicate_move", "E", 0, true, nil), []*Record{r})
	assert.Nil(t, m.Record, "props mismatch is never bridged")
}

func TestResolveInactiveMismatch(t *testing.T) {
	r := rec("node.delete", "", "X", "Q")
	m := Resolve(liveEntry("node.delete", "Q", 0, false, nil), []*Record{r})
	assert.Nil(t, m.Record)

	r.Inactive = true
	m = Resolve(liveEntry("node.delete", "Q", 0, false, nil), []*Record{r})
	assert.Same(t, r, m.Record)
}

func TestResolveNarrowsByTargetThenSource(t *testing.T) {
	// Two compatible records; only the chars tell them apart.
	r1 := rec("view3d.view_axis", "", "S", "O")
	r2 := rec("view3d.view_axis", "", "G", "I")
	recs := []*Record{r1, r2}

	m := Resolve(liveEntry("view3d.view_axis", "O", 0, true, nil), recs)
	assert.Same(t, r1, m.Record)
	assert.Equal(t, SideAfter, m.Side)

	m = Resolve(liveEntry("view3d.view_axis", "G", 0, true, nil), recs)
	assert.Same(t, r2, m.Record)
	assert.Equal(t, SideBefore, m.Side)
}

func TestResolveModifierDisambiguation(t *testing.T) {
	// Same op, same chars; stock keymaps carry such pairs differing only
	// in modifiers.
	r1 := rec("transform.translate", "", "G", "I")
	r2 := rec("transform.translate", "+", "G", "I")
	recs := []*Record{r1, r2}

	m := Resolve(liveEntry("transform.translate", "I", 0, true, nil), recs)
	require.Same(t, r1, m.Record)
	assert.Equal(t, SideAfter, m.Side)

	m = Resolve(liveEntry("transform.translate", "I", fingerprint.ModRequired, true, nil), recs)
	assert.Same(t, r2, m.Record)
}

func TestResolveAmbiguityYieldsNone(t *testing.T) {
	// Identical records cannot be told apart; guessing is worse than
	// reporting no match.
	r1 := rec("transform.translate", "", "G", "I")
	r2 := rec("transform.translate", "", "G", "I")
	m := Resolve(liveEntry("transform.translate", "I", 0, true, nil), []*Record{r1, r2})
	assert.Nil(t, m.Record)
}

func TestResolveCharAfterModifierNarrowing(t *testing.T) {
	// Modifier narrowing leaves two records; the char passes run again on
	// the narrowed set.
	r1 := rec("transform.translate", "+", "G", "I")
	r2 := rec("transform.translate", "+", "S", "O")
	recs := []*Record{r1, r2,
		rec("transform.translate", "^", "G", "I"),
		rec("transform.translate", "^", "S", "O"),
	}
	m := Resolve(liveEntry("transform.translate", "O", fingerprint.ModRequired, true, nil), recs)
	assert.Same(t, r2, m.Record)
	assert.Equal(t, SideAfter, m.Side)
}

func TestResolveSideNoneForMovedEntry(t *testing.T) {
	// The user moved the entry somewhere we never touched; the record
	// still resolves on shortcut identity but sits on neither char.
	r := rec("transform.resize", "", "S", "O")
	m := Resolve(liveEntry("transform.resize", "T", 0, true, nil), []*Record{r})
	assert.Same(t, r, m.Record)
	assert.Equal(t, SideNone, m.Side)
}
