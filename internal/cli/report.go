package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"keylayer/internal/reconcile"
)

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// outputReport renders a pass report. A report carrying conflicts is a
// pass-level failure: the clean entries were still remapped, but the exit
// code tells scripts the translation did not fully land.
func outputReport(f *OutputFormatter, action string, rep *reconcile.PassReport) error {
	if len(rep.Conflicts) > 0 {
		return outputConflicts(f, action, rep)
	}

	if f.Format == "json" {
		return f.Success(rep)
	}

	fmt.Fprintf(f.Writer, "✓ %s: %d applied, %d updated, %d reverted, %d forgotten, %d skipped\n",
		action, rep.Applied, rep.Updated, rep.Reverted, rep.Forgotten, rep.Skipped)
	for _, e := range rep.Errors {
		f.VerboseLog("  %s", e.Error())
	}
	return nil
}

func outputConflicts(f *OutputFormatter, action string, rep *reconcile.PassReport) error {
	message := fmt.Sprintf("%s finished with %d conflict(s)", action, len(rep.Conflicts))

	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(CLIResponse{
			Status: "error",
			Data:   rep,
			Error:  &CLIError{Code: ErrCodeConflict, Message: message},
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, message)
	}

	fmt.Fprintf(f.Writer, "✗ %s\n", message)
	for _, c := range rep.Conflicts {
		fmt.Fprintf(f.Writer, "  %s\n", c.Error())
	}
	fmt.Fprintf(f.Writer, "%d applied, %d updated, %d skipped\n",
		rep.Applied, rep.Updated, rep.Skipped)
	return NewExitError(ExitFailure, message)
}
