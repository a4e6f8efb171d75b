package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"keylayer/internal/layout"
)

const (
	keyJournal  = "journal"
	keySettings = "settings"
)

// Settings is the persisted emulation state. Active survives restarts so a
// remapped keymap is recognized as such on the next run.
type Settings struct {
	Active             bool   `json:"active"`
	InputLayout        string `json:"input_layout"`
	TargetLayout       string `json:"target_layout"`
	AllowConflicts     bool   `json:"allow_conflicts,omitempty"`
	ReapplyOnReload    bool   `json:"reapply_on_reload"`
	DetectAddonChanges bool   `json:"detect_addon_changes"`
}

// DefaultSettings returns the settings of a fresh install: emulation off,
// both layouts QWERTY, reconciliation hooks on.
func DefaultSettings() Settings {
	return Settings{
		InputLayout:        layout.NameQWERTY,
		TargetLayout:       layout.NameQWERTY,
		ReapplyOnReload:    true,
		DetectAddonChanges: true,
	}
}

func (s *Store) getPref(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM prefs WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read pref %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) setPref(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prefs (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("write pref %s: %w", key, err)
	}
	return nil
}

// JournalBlob returns the persisted journal blob, or nil when none is
// stored.
func (s *Store) JournalBlob(ctx context.Context) ([]byte, error) {
	value, ok, err := s.getPref(ctx, keyJournal)
	if err != nil || !ok {
		return nil, err
	}
	return []byte(value), nil
}

// SaveJournal persists the journal blob.
func (s *Store) SaveJournal(ctx context.Context, blob []byte) error {
	return s.setPref(ctx, keyJournal, string(blob))
}

// LoadSettings returns the persisted settings, or the defaults when none
// are stored.
func (s *Store) LoadSettings(ctx context.Context) (Settings, error) {
	value, ok, err := s.getPref(ctx, keySettings)
	if err != nil {
		return Settings{}, err
	}
	if !ok {
		return DefaultSettings(), nil
	}
	var settings Settings
	if err := json.Unmarshal([]byte(value), &settings); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}

// SaveSettings persists the settings.
func (s *Store) SaveSettings(ctx context.Context, settings Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return s.setPref(ctx, keySettings, string(data))
}

// SaveLayout persists a user-defined layout, replacing any previous
// definition of the same name.
func (s *Store) SaveLayout(ctx context.Context, def layout.Definition) error {
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encode layout %s: %w", def.Name, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO layouts (name, definition) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET definition = excluded.definition
	`, def.Name, string(data))
	if err != nil {
		return fmt.Errorf("write layout %s: %w", def.Name, err)
	}
	return nil
}

// DeleteLayout removes a user-defined layout. Reports whether a row was
// deleted.
func (s *Store) DeleteLayout(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM layouts WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("delete layout %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete layout %s: %w", name, err)
	}
	return n > 0, nil
}

// Layouts returns every persisted layout definition, sorted by name.
func (s *Store) Layouts(ctx context.Context) ([]layout.Definition, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT definition FROM layouts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list layouts: %w", err)
	}
	defer rows.Close()

	var defs []layout.Definition
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("list layouts: %w", err)
		}
		var def layout.Definition
		if err := json.Unmarshal([]byte(data), &def); err != nil {
			return nil, fmt.Errorf("decode layout: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list layouts: %w", err)
	}
	return defs, nil
}
