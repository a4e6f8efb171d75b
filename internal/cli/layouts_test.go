package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutsListShowsBuiltIns(t *testing.T) {
	e := newEnv(t, sampleSnapshot(), dvorakLines)

	out, err := e.run(t, "layouts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "* QWERTY")
	assert.Contains(t, out, "* Dvorak")
	assert.Contains(t, out, "* Colemak")
	assert.Contains(t, out, "(* built-in)")
}

func TestLayoutsAddShowRemove(t *testing.T) {
	e := newEnv(t, sampleSnapshot(), dvorakLines)

	out, err := e.run(t, "layouts", "add", "swapST",
		"--description", "swap S and T",
		"--map", "S=T", "--map", "T=S")
	require.NoError(t, err)
	assert.Contains(t, out, "added layout swapST")

	out, err = e.run(t, "layouts", "show", "swapST")
	require.NoError(t, err)
	assert.Contains(t, out, "S: T")
	assert.Contains(t, out, "swap S and T")

	out, err = e.run(t, "layouts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "  swapST")

	_, err = e.run(t, "layouts", "remove", "swapST")
	require.NoError(t, err)

	_, err = e.run(t, "layouts", "show", "swapST")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLayoutsAddRejectsBuiltInName(t *testing.T) {
	e := newEnv(t, sampleSnapshot(), dvorakLines)

	_, err := e.run(t, "layouts", "add", "Dvorak", "--map", "S=O")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLayoutsAddRejectsConflictsByDefault(t *testing.T) {
	e := newEnv(t, sampleSnapshot(), dvorakLines)

	_, err := e.run(t, "layouts", "add", "clash", "--map", "A=C", "--map", "B=C")
	require.Error(t, err)

	_, err = e.run(t, "layouts", "add", "clash",
		"--map", "A=C", "--map", "B=C", "--allow-conflicts")
	require.NoError(t, err)
}

func TestLayoutsRemoveBuiltInRefused(t *testing.T) {
	e := newEnv(t, sampleSnapshot(), dvorakLines)

	_, err := e.run(t, "layouts", "remove", "QWERTY")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLayoutsImport(t *testing.T) {
	e := newEnv(t, sampleSnapshot(), dvorakLines)

	path := filepath.Join(e.dir, "workman.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`name: workman
description: Workman layout
mapping:
  S: O
  O: S
`), 0o644))

	out, err := e.run(t, "layouts", "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "imported layout workman")

	out, err = e.run(t, "layouts", "show", "workman")
	require.NoError(t, err)
	assert.Contains(t, out, "S: O")
}

func TestLayoutsImportRejectsBadSchema(t *testing.T) {
	e := newEnv(t, sampleSnapshot(), dvorakLines)

	path := filepath.Join(e.dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`description: no name here
mapping:
  S: O
`), 0o644))

	_, err := e.run(t, "layouts", "import", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLayoutsExportBuiltIn(t *testing.T) {
	e := newEnv(t, sampleSnapshot(), dvorakLines)

	out, err := e.run(t, "layouts", "export", "QWERTZ")
	require.NoError(t, err)
	assert.Contains(t, out, "name: QWERTZ")
	// yaml.v3 quotes the key: a bare Y reads as a YAML 1.1 boolean.
	assert.Contains(t, out, `"Y": Z`)

	path := filepath.Join(e.dir, "qwertz.yaml")
	_, err = e.run(t, "layouts", "export", "QWERTZ", "-o", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Y": Z`)
}

func TestLayoutsExportUnknown(t *testing.T) {
	e := newEnv(t, sampleSnapshot(), dvorakLines)

	_, err := e.run(t, "layouts", "export", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
