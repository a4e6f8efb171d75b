package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"keylayer/internal/keymap"
)

// env is a self-contained CLI working directory: config, preference store
// and snapshot file.
type env struct {
	dir      string
	cfgPath  string
	snapPath string
}

func newEnv(t *testing.T, snap keymap.Snapshot, layoutLines string) *env {
	t.Helper()
	dir := t.TempDir()
	e := &env{
		dir:      dir,
		cfgPath:  filepath.Join(dir, "keylayer.toml"),
		snapPath: filepath.Join(dir, "keymap.json"),
	}

	data, err := keymap.EncodeSnapshot(snap)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(e.snapPath, data, 0o644))

	cfg := fmt.Sprintf(`
[storage]
db_path = %q
snapshot_path = %q

[layouts]
%s
`, filepath.Join(dir, "prefs.db"), e.snapPath, layoutLines)
	require.NoError(t, os.WriteFile(e.cfgPath, []byte(cfg), 0o644))
	return e
}

func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--config", e.cfgPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (e *env) snapshot(t *testing.T) keymap.Snapshot {
	t.Helper()
	data, err := os.ReadFile(e.snapPath)
	require.NoError(t, err)
	snap, err := keymap.ParseSnapshot(data)
	require.NoError(t, err)
	return snap
}

func decodeResponse(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	return resp
}

// dvorakLines selects Dvorak input over a QWERTY target.
const dvorakLines = `input = "Dvorak"
target = "QWERTY"
reapply_on_reload = true
detect_addon_changes = true`

func windowEntry(op, key string) keymap.SnapshotEntry {
	return keymap.SnapshotEntry{Op: op, Key: key}
}

func sampleSnapshot() keymap.Snapshot {
	return keymap.Snapshot{
		Categories: []keymap.SnapshotCategory{
			{
				Name:   "Window",
				Space:  "EMPTY",
				Region: "WINDOW",
				Entries: []keymap.SnapshotEntry{
					windowEntry("transform.resize", "S"),
					windowEntry("transform.translate", "G"),
					{Op: "view3d.select", Key: "LEFTMOUSE", Press: "CLICK", Class: "MOUSE"},
				},
			},
			{
				Name:   "Node Editor",
				Space:  "NODE_EDITOR",
				Region: "WINDOW",
				Entries: []keymap.SnapshotEntry{
					{Op: "node.duplicate_move", Key: "D", Shift: 1},
				},
			},
		},
	}
}
