package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keylayer/internal/layout"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, layout.NameQWERTY, cfg.Layouts.Input)
	assert.Equal(t, 500*time.Millisecond, cfg.DebounceMin())
	assert.Equal(t, 2*time.Second, cfg.DebounceMax())
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadEmptyPathYieldsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keylayer.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[layouts]
input = "Dvorak"
allow_conflicts = true

[watch]
debounce_min_ms = 100
debounce_max_ms = 400

[logging]
level = "debug"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, layout.NameDvorak, cfg.Layouts.Input)
	assert.Equal(t, layout.NameQWERTY, cfg.Layouts.Target, "unset fields keep defaults")
	assert.True(t, cfg.Layouts.AllowConflicts)
	assert.Equal(t, 100*time.Millisecond, cfg.DebounceMin())
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoadRejectsBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keylayer.toml")
	require.NoError(t, os.WriteFile(path, []byte(`[watch`), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Layouts.Input = ""
	cfg.Watch.DebounceMinMs = 0
	cfg.Watch.DebounceMaxMs = -1
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)

	var errs ValidationErrors
	require.ErrorAs(t, err, &errs)
	fields := make(map[string]bool)
	for _, e := range errs {
		fields[e.Field] = true
	}
	assert.True(t, fields["layouts.input"])
	assert.True(t, fields["watch.debounce_min_ms"])
	assert.True(t, fields["watch.debounce_max_ms"])
	assert.True(t, fields["logging.level"])
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keylayer.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[logging]
level = "silent"
`), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
