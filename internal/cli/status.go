package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"keylayer/internal/reconcile"
)

// CategoryStatus is one category's summary in the status output.
type CategoryStatus struct {
	Category string           `json:"category"`
	Status   reconcile.Status `json:"status"`
}

// StatusResult is the status command's payload.
type StatusResult struct {
	Active       bool             `json:"active"`
	InputLayout  string           `json:"input_layout"`
	TargetLayout string           `json:"target_layout"`
	Overall      reconcile.Status `json:"overall"`
	Journaled    int              `json:"journaled"`
	Categories   []CategoryStatus `json:"categories"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "status",
		Short:         "Report emulation state per keymap category",
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

			result := StatusResult{
				Active:       s.driver.Active(),
				InputLayout:  s.cfg.Layouts.Input,
				TargetLayout: s.cfg.Layouts.Target,
				Overall:      reconcile.StatusReverted,
				Journaled:    s.jrn.Len(),
			}

			cats, err := s.host.Categories()
			if err != nil {
				return fail(f, ExitCommandError, ErrCodeSnapshot, err.Error())
			}
			for _, cat := range cats {
				st := s.driver.Status(cat)
				result.Categories = append(result.Categories, CategoryStatus{
					Category: cat.ID(),
					Status:   st,
				})
				switch st {
				case reconcile.StatusNeedsReconcile:
					result.Overall = reconcile.StatusNeedsReconcile
				case reconcile.StatusApplied:
					if result.Overall == reconcile.StatusReverted {
						result.Overall = reconcile.StatusApplied
					}
				}
			}

			if f.Format == "json" {
				return f.Success(result)
			}

			fmt.Fprintf(f.Writer, "emulation: %s (input=%s, target=%s)\n",
				activeWord(result.Active), result.InputLayout, result.TargetLayout)
			fmt.Fprintf(f.Writer, "overall: %s (%d journaled remaps)\n", result.Overall, result.Journaled)
			for _, cs := range result.Categories {
				if rootOpts.Verbose || cs.Status != reconcile.StatusReverted {
					fmt.Fprintf(f.Writer, "  %-40s %s\n", cs.Category, cs.Status)
				}
			}
			return nil
		},
	}
}

func activeWord(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}
