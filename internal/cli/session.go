package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"keylayer/internal/config"
	"keylayer/internal/journal"
	"keylayer/internal/keymap"
	"keylayer/internal/layout"
	"keylayer/internal/reconcile"
	"keylayer/internal/store"
)

// journalCache spans commands within one process (watch mode re-reads the
// journal on every pass).
var journalCache journal.Cache

// session wires one command invocation: configuration, the preference
// store, the snapshot-backed host, the layout registry, and the driver.
type session struct {
	cfg          config.Config
	st           *store.Store
	host         *keymap.MemoryHost
	registry     *layout.Registry
	jrn          *journal.Journal
	driver       *reconcile.Driver
	settings     store.Settings
	snapshotPath string
}

// openStore loads config and opens the preference store only, for commands
// that do not touch the snapshot (layout management).
func openStore(opts *RootOptions) (config.Config, *store.Store, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, nil, WrapExitError(ExitCommandError, "loading config failed", err)
	}
	st, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		return config.Config{}, nil, WrapExitError(ExitCommandError, "opening preference store failed", err)
	}
	return cfg, st, nil
}

// loadRegistry builds the layout registry from the built-ins plus every
// persisted definition. A definition that no longer validates is skipped
// with a warning rather than blocking the command.
func loadRegistry(ctx context.Context, st *store.Store) (*layout.Registry, error) {
	reg := layout.NewRegistry()
	defs, err := st.Layouts(ctx)
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		if err := reg.Add(def); err != nil {
			slog.Warn("skipping stored layout", "layout", def.Name, "error", err)
		}
	}
	return reg, nil
}

// openSession opens the full working set for a remap command.
func openSession(ctx context.Context, opts *RootOptions) (*session, error) {
	cfg, st, err := openStore(opts)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, st: st, snapshotPath: cfg.Storage.SnapshotPath}
	if opts.SnapshotPath != "" {
		s.snapshotPath = opts.SnapshotPath
	}

	if s.settings, err = st.LoadSettings(ctx); err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "loading settings failed", err)
	}

	if s.registry, err = loadRegistry(ctx, st); err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "loading layouts failed", err)
	}

	data, err := os.ReadFile(s.snapshotPath)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("reading keymap snapshot %s failed", s.snapshotPath), err)
	}
	snap, err := keymap.ParseSnapshot(data)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "parsing keymap snapshot failed", err)
	}
	if s.host, err = keymap.HostFromSnapshot(snap); err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "building keymap failed", err)
	}

	input, err := s.registry.Resolve(cfg.Layouts.Input)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "resolving input layout failed", err)
	}
	target, err := s.registry.Resolve(cfg.Layouts.Target)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "resolving target layout failed", err)
	}

	blob, err := st.JournalBlob(ctx)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "reading journal failed", err)
	}
	s.jrn = journalCache.Load(blob)

	allowConflicts := cfg.Layouts.AllowConflicts ||
		s.registry.AllowConflicts(cfg.Layouts.Input) ||
		s.registry.AllowConflicts(cfg.Layouts.Target)

	s.driver = reconcile.NewDriver(s.host, s.jrn, reconcile.Options{
		Translation:        layout.InputToTarget(input, target),
		AllowConflicts:     allowConflicts,
		ReapplyOnReload:    cfg.Layouts.ReapplyOnReload,
		DetectAddonChanges: cfg.Layouts.DetectAddonChanges,
	})
	s.driver.SetActive(s.settings.Active)

	return s, nil
}

// save persists everything a pass may have changed: the snapshot file, the
// journal blob, and the settings. The journal is written before the
// snapshot so a crash between the two leaves claimed-but-unmoved records,
// which the next reconcile repairs.
func (s *session) save(ctx context.Context) error {
	blob, err := s.jrn.Encode()
	if err != nil {
		return fmt.Errorf("encode journal: %w", err)
	}
	if err := s.st.SaveJournal(ctx, blob); err != nil {
		return err
	}
	journalCache.Store(blob, s.jrn)

	snap, err := keymap.SnapshotFromHost(s.host)
	if err != nil {
		return fmt.Errorf("export keymap: %w", err)
	}
	data, err := keymap.EncodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("encode keymap snapshot: %w", err)
	}
	if err := os.WriteFile(s.snapshotPath, data, 0o644); err != nil {
		return fmt.Errorf("write keymap snapshot: %w", err)
	}

	s.settings.Active = s.driver.Active()
	s.settings.InputLayout = s.cfg.Layouts.Input
	s.settings.TargetLayout = s.cfg.Layouts.Target
	s.settings.AllowConflicts = s.cfg.Layouts.AllowConflicts
	s.settings.ReapplyOnReload = s.cfg.Layouts.ReapplyOnReload
	s.settings.DetectAddonChanges = s.cfg.Layouts.DetectAddonChanges
	return s.st.SaveSettings(ctx, s.settings)
}

func (s *session) close() {
	if err := s.st.Close(); err != nil {
		slog.Warn("closing preference store failed", "error", err)
	}
}
