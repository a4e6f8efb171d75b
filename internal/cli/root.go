// Package cli implements the keylayer command line interface. Commands
// operate on a keymap snapshot file and persist their tracking state in the
// preference store, standing in for the host's add-on lifecycle.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"keylayer/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath   string
	SnapshotPath string // overrides the configured snapshot path
	Verbose      bool
	Format       string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the keylayer CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "keylayer",
		Short: "Keyboard layout emulation for exported keymaps",
		Long:  `keylayer remaps the keyboard shortcuts in a keymap snapshot so that a
physical keyboard in one layout behaves as if the host understood it,
and tracks every move so the remap can be reverted exactly.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			setupLogging(opts)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (TOML)")
	cmd.PersistentFlags().StringVar(&opts.SnapshotPath, "snapshot", "", "keymap snapshot file (overrides config)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewApplyCommand(opts))
	cmd.AddCommand(NewRevertCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewLayoutsCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

// setupLogging routes slog to stderr at the configured level. Verbose wins
// over the config so --verbose always surfaces debug logs.
func setupLogging(opts *RootOptions) {
	level := slog.LevelInfo
	if cfg, err := config.Load(opts.ConfigPath); err == nil {
		level = cfg.SlogLevel()
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
