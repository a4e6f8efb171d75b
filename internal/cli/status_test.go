package cli

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keylayer/internal/keymap"
)

func statusResult(t *testing.T, e *env) StatusResult {
	t.Helper()
	out, err := e.run(t, "status", "--format", "json")
	require.NoError(t, err)
	resp := decodeResponse(t, out)
	require.Equal(t, "ok", resp.Status)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result StatusResult
	require.NoError(t, json.Unmarshal(data, &result))
	return result
}

func TestStatusFreshSnapshot(t *testing.T) {
	e := newEnv(t, sampleSnapshot(), dvorakLines)

	result := statusResult(t, e)
	assert.False(t, result.Active)
	assert.Equal(t, "Dvorak", result.InputLayout)
	assert.Equal(t, "REVERTED", string(result.Overall))
	assert.Equal(t, 0, result.Journaled)
}

func TestStatusAfterApply(t *testing.T) {
	e := newEnv(t, sampleSnapshot(), dvorakLines)
	_, err := e.run(t, "apply")
	require.NoError(t, err)

	result := statusResult(t, e)
	assert.True(t, result.Active)
	assert.Equal(t, "APPLIED", string(result.Overall))
	assert.Equal(t, 3, result.Journaled)
}

func TestStatusDetectsPendingEntries(t *testing.T) {
	e := newEnv(t, sampleSnapshot(), dvorakLines)
	_, err := e.run(t, "apply")
	require.NoError(t, err)

	snap := e.snapshot(t)
	snap.Categories[0].Entries = append(snap.Categories[0].Entries,
		windowEntry("wm.call_menu", "X"))
	data, err := keymap.EncodeSnapshot(snap)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(e.snapPath, data, 0o644))

	result := statusResult(t, e)
	assert.Equal(t, "NEEDS_RECONCILE", string(result.Overall))
}

func TestStatusTextOutput(t *testing.T) {
	e := newEnv(t, sampleSnapshot(), dvorakLines)

	out, err := e.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "emulation: inactive")
	assert.Contains(t, out, "input=Dvorak")
	assert.Contains(t, out, "overall: REVERTED")
}
