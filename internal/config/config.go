// Package config handles configuration loading and validation for the
// keylayer CLI and watch daemon.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"keylayer/internal/layout"
)

// Config holds the complete CLI configuration.
type Config struct {
	// Storage configuration for persistence.
	Storage StorageConfig `toml:"storage"`

	// Layouts selects the input and target layouts for remapping.
	Layouts LayoutConfig `toml:"layouts"`

	// Watch configuration for the snapshot watcher.
	Watch WatchConfig `toml:"watch"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging"`
}

// StorageConfig holds the persistence paths.
type StorageConfig struct {
	// DBPath is the SQLite preference store location.
	DBPath string `toml:"db_path"`

	// SnapshotPath is the keymap snapshot file the CLI operates on.
	SnapshotPath string `toml:"snapshot_path"`
}

// LayoutConfig selects the layouts and the reconciliation behavior.
type LayoutConfig struct {
	// Input is the layout of the physical keyboard.
	Input string `toml:"input"`

	// Target is the layout the host believes it is configured for.
	Target string `toml:"target"`

	// AllowConflicts accepts non-bijective custom layouts.
	AllowConflicts bool `toml:"allow_conflicts"`

	// ReapplyOnReload re-runs reconciliation on start and file load.
	ReapplyOnReload bool `toml:"reapply_on_reload"`

	// DetectAddonChanges re-runs reconciliation when the snapshot gains
	// or loses entries from add-on churn.
	DetectAddonChanges bool `toml:"detect_addon_changes"`
}

// WatchConfig holds the debounce timing for the snapshot watcher.
type WatchConfig struct {
	// DebounceMinMs is the settle window after the last change, in
	// milliseconds. Also the minimum spacing between two passes.
	DebounceMinMs int `toml:"debounce_min_ms"`

	// DebounceMaxMs bounds how long a steady stream of changes can defer
	// a pass, in milliseconds.
	DebounceMaxMs int `toml:"debounce_max_ms"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
}

// Default returns the configuration of a fresh install.
func Default() Config {
	return Config{
		Storage: StorageConfig{
			DBPath:       filepath.Join(dataDir(), "prefs.db"),
			SnapshotPath: filepath.Join(dataDir(), "keymap.json"),
		},
		Layouts: LayoutConfig{
			Input:              layout.NameQWERTY,
			Target:             layout.NameQWERTY,
			ReapplyOnReload:    true,
			DetectAddonChanges: true,
		},
		Watch: WatchConfig{
			DebounceMinMs: 500,
			DebounceMaxMs: 2000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func dataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "keylayer")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".keylayer"
	}
	return filepath.Join(home, ".keylayer")
}

// Load reads a TOML configuration file over the defaults. A missing file
// yields the defaults; a present file must parse and validate.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field values; it does not touch the filesystem.
func (c Config) Validate() error {
	var errs ValidationErrors
	if c.Storage.DBPath == "" {
		errs = append(errs, ValidationError{Field: "storage.db_path", Message: "must not be empty"})
	}
	if c.Storage.SnapshotPath == "" {
		errs = append(errs, ValidationError{Field: "storage.snapshot_path", Message: "must not be empty"})
	}
	if c.Layouts.Input == "" {
		errs = append(errs, ValidationError{Field: "layouts.input", Message: "must not be empty"})
	}
	if c.Layouts.Target == "" {
		errs = append(errs, ValidationError{Field: "layouts.target", Message: "must not be empty"})
	}
	if c.Watch.DebounceMinMs <= 0 {
		errs = append(errs, ValidationError{Field: "watch.debounce_min_ms", Message: "must be positive"})
	}
	if c.Watch.DebounceMaxMs < c.Watch.DebounceMinMs {
		errs = append(errs, ValidationError{Field: "watch.debounce_max_ms", Message: "must be at least debounce_min_ms"})
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("unknown level %q (debug, info, warn, error)", c.Logging.Level),
		})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// DebounceMin returns the settle window as a duration.
func (c Config) DebounceMin() time.Duration {
	return time.Duration(c.Watch.DebounceMinMs) * time.Millisecond
}

// DebounceMax returns the deferral bound as a duration.
func (c Config) DebounceMax() time.Duration {
	return time.Duration(c.Watch.DebounceMaxMs) * time.Millisecond
}

// SlogLevel maps the configured level to a slog level.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}
