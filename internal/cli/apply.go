package cli

import (
	"github.com/spf13/cobra"
)

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Enable emulation and remap the snapshot",
		Long:  `Remap every eligible shortcut in the keymap snapshot through the
configured layout translation, journaling each move. Applying twice never
remaps twice.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			s, err := openSession(cmd.Context(), rootOpts)
			if err != nil {
				return reportOpenError(f, err)
			}
			defer s.close()

			rep := s.driver.OnUserApply()
			if err := s.save(cmd.Context()); err != nil {
				return fail(f, ExitCommandError, ErrCodeStore, err.Error())
			}
			return outputReport(f, "apply", rep)
		},
	}
}

// NewRevertCommand creates the revert command.
func NewRevertCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "revert",
		Short: "Disable emulation and restore the snapshot",
		Long:  `Restore every journaled shortcut to its original key and clear the
journal. Reverting with an empty journal is a no-op.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			s, err := openSession(cmd.Context(), rootOpts)
			if err != nil {
				return reportOpenError(f, err)
			}
			defer s.close()

			rep := s.driver.OnUserRevert()
			if err := s.save(cmd.Context()); err != nil {
				return fail(f, ExitCommandError, ErrCodeStore, err.Error())
			}
			return outputReport(f, "revert", rep)
		},
	}
}

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Re-run the remap pass over a changed snapshot",
		Long:  `Remap entries that appeared or were reset since the last pass, and
forget journal records whose entries are gone. Requires active emulation.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			s, err := openSession(cmd.Context(), rootOpts)
			if err != nil {
				return reportOpenError(f, err)
			}
			defer s.close()

			if !s.driver.Active() {
				return fail(f, ExitFailure, ErrCodeInactive, "emulation is not active; run apply first")
			}
			rep := s.driver.Reconcile()
			if err := s.save(cmd.Context()); err != nil {
				return fail(f, ExitCommandError, ErrCodeStore, err.Error())
			}
			return outputReport(f, "reconcile", rep)
		},
	}
}

// reportOpenError renders a session-open failure through the formatter
// while keeping the original exit code.
func reportOpenError(f *OutputFormatter, err error) error {
	_ = f.Error(ErrCodeGeneric, err.Error(), nil)
	return err
}
