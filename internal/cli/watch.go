package cli

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"keylayer/internal/config"
	"keylayer/internal/sched"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the snapshot file and reconcile on change",
		Long:  `Watch the keymap snapshot for changes (add-on installs, host rebuilds)
and run a debounced reconciliation pass after each burst of writes. Runs
until interrupted. Requires active emulation; changes arriving while
emulation is inactive are left alone.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)

			cfg, err := config.Load(rootOpts.ConfigPath)
			if err != nil {
				return fail(f, ExitCommandError, ErrCodeConfig, err.Error())
			}
			path := cfg.Storage.SnapshotPath
			if rootOpts.SnapshotPath != "" {
				path = rootOpts.SnapshotPath
			}
			if _, err := os.Stat(path); err != nil {
				return fail(f, ExitCommandError, ErrCodeNotFound,
					fmt.Sprintf("keymap snapshot %s: %v", path, err))
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fail(f, ExitCommandError, ErrCodeGeneric, err.Error())
			}
			defer watcher.Close()

			// Watch the directory: editors and the host replace the file,
			// which drops a watch placed on the file itself.
			if err := watcher.Add(filepath.Dir(path)); err != nil {
				return fail(f, ExitCommandError, ErrCodeGeneric, err.Error())
			}

			runner := &watchRunner{opts: rootOpts, path: path}
			deb := sched.New(runner.pass, sched.Options{
				MinInterval: cfg.DebounceMin(),
				MaxDelay:    cfg.DebounceMax(),
			})

			ctx := cmd.Context()
			go deb.Run(ctx)

			slog.Info("watching keymap snapshot",
				"path", path,
				"debounce_min", cfg.DebounceMin(),
				"debounce_max", cfg.DebounceMax())

			for {
				select {
				case <-ctx.Done():
					slog.Info("watch stopped")
					return nil
				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if filepath.Clean(event.Name) != filepath.Clean(path) {
						continue
					}
					if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
						continue
					}
					slog.Debug("snapshot changed", "op", event.Op.String())
					deb.Trigger()
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					slog.Warn("watcher error", "error", err)
				}
			}
		},
	}
}

// watchRunner runs one reconciliation pass per debounced burst.
type watchRunner struct {
	opts *RootOptions
	path string

	mu          sync.Mutex
	lastWritten []byte
}

func (w *watchRunner) pass() {
	ctx := context.Background()

	data, err := os.ReadFile(w.path)
	if err != nil {
		slog.Warn("reading snapshot failed", "error", err)
		return
	}
	w.mu.Lock()
	own := w.lastWritten != nil && bytes.Equal(data, w.lastWritten)
	w.mu.Unlock()
	if own {
		// The change was our own write-back.
		slog.Debug("ignoring self-inflicted snapshot change")
		return
	}

	s, err := openSession(ctx, w.opts)
	if err != nil {
		slog.Warn("opening session failed", "error", err)
		return
	}
	defer s.close()

	rep := s.driver.OnFileLoad()
	if rep == nil {
		slog.Debug("reconcile-on-change disabled or emulation inactive")
		return
	}
	if err := s.save(ctx); err != nil {
		slog.Error("persisting pass results failed", "error", err)
		return
	}

	written, err := os.ReadFile(w.path)
	if err == nil {
		w.mu.Lock()
		w.lastWritten = written
		w.mu.Unlock()
	}

	slog.Info("reconciled after snapshot change",
		"applied", rep.Applied,
		"updated", rep.Updated,
		"forgotten", rep.Forgotten,
		"conflicts", len(rep.Conflicts))
}
