package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"keylayer/internal/layout"
)

// LayoutSummary is one layout in the list output.
type LayoutSummary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	BuiltIn     bool   `json:"built_in"`
}

// NewLayoutsCommand creates the layouts command group.
func NewLayoutsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layouts",
		Short: "Manage keyboard layouts",
	}
	cmd.AddCommand(newLayoutsListCommand(rootOpts))
	cmd.AddCommand(newLayoutsShowCommand(rootOpts))
	cmd.AddCommand(newLayoutsAddCommand(rootOpts))
	cmd.AddCommand(newLayoutsRemoveCommand(rootOpts))
	cmd.AddCommand(newLayoutsImportCommand(rootOpts))
	cmd.AddCommand(newLayoutsExportCommand(rootOpts))
	return cmd
}

func newLayoutsListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List built-in and user-defined layouts",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			_, st, err := openStore(rootOpts)
			if err != nil {
				return reportOpenError(f, err)
			}
			defer st.Close()

			reg, err := loadRegistry(cmd.Context(), st)
			if err != nil {
				return fail(f, ExitCommandError, ErrCodeStore, err.Error())
			}

			var summaries []LayoutSummary
			for _, name := range reg.Names() {
				def, err := reg.Definition(name)
				if err != nil {
					continue
				}
				summaries = append(summaries, LayoutSummary{
					Name:        name,
					Description: def.Description,
					BuiltIn:     layout.IsBuiltIn(name),
				})
			}

			if f.Format == "json" {
				return f.Success(summaries)
			}
			for _, s := range summaries {
				marker := " "
				if s.BuiltIn {
					marker = "*"
				}
				fmt.Fprintf(f.Writer, "%s %-12s %s\n", marker, s.Name, s.Description)
			}
			fmt.Fprintln(f.Writer, "(* built-in)")
			return nil
		},
	}
}

func newLayoutsShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <name>",
		Short:         "Show a layout's mapping",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			_, st, err := openStore(rootOpts)
			if err != nil {
				return reportOpenError(f, err)
			}
			defer st.Close()

			reg, err := loadRegistry(cmd.Context(), st)
			if err != nil {
				return fail(f, ExitCommandError, ErrCodeStore, err.Error())
			}
			def, err := reg.Definition(args[0])
			if err != nil {
				return fail(f, ExitCommandError, ErrCodeNotFound, err.Error())
			}

			if f.Format == "json" {
				return f.Success(def)
			}
			data, err := reg.Export(def.Name)
			if err != nil {
				return fail(f, ExitCommandError, ErrCodeLayout, err.Error())
			}
			fmt.Fprint(f.Writer, string(data))
			return nil
		},
	}
}

func newLayoutsAddCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		description    string
		allowConflicts bool
		mappings       []string
	)
	cmd := &cobra.Command{
		Use:           "add <name>",
		Short:         "Add a user-defined layout",
		Long:          `Add a layout from --map flags, each a FROM=TO pair of characters relative to US-QWERTY, e.g. --map S=O --map D=E.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			_, st, err := openStore(rootOpts)
			if err != nil {
				return reportOpenError(f, err)
			}
			defer st.Close()

			mapping, err := parseMappings(mappings)
			if err != nil {
				return fail(f, ExitCommandError, ErrCodeLayout, err.Error())
			}
			def := layout.Definition{
				Name:           args[0],
				Description:    description,
				AllowConflicts: allowConflicts,
				Mapping:        mapping,
			}

			reg, err := loadRegistry(cmd.Context(), st)
			if err != nil {
				return fail(f, ExitCommandError, ErrCodeStore, err.Error())
			}
			if err := reg.Add(def); err != nil {
				return fail(f, ExitCommandError, ErrCodeLayout, err.Error())
			}
			if err := st.SaveLayout(cmd.Context(), def); err != nil {
				return fail(f, ExitCommandError, ErrCodeStore, err.Error())
			}
			return f.Success(fmt.Sprintf("added layout %s (%d mapped keys)", def.Name, len(def.Mapping)))
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "layout description")
	cmd.Flags().BoolVar(&allowConflicts, "allow-conflicts", false, "accept a non-bijective mapping")
	cmd.Flags().StringArrayVar(&mappings, "map", nil, "FROM=TO character pair (repeatable)")
	return cmd
}

func parseMappings(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("at least one --map pair is required")
	}
	mapping := make(map[string]string, len(pairs))
	for _, p := range pairs {
		from, to, ok := strings.Cut(p, "=")
		if !ok || from == "" || to == "" {
			return nil, fmt.Errorf("invalid --map %q: expected FROM=TO", p)
		}
		mapping[from] = to
	}
	return mapping, nil
}

func newLayoutsRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "remove <name>",
		Short:         "Remove a user-defined layout",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			_, st, err := openStore(rootOpts)
			if err != nil {
				return reportOpenError(f, err)
			}
			defer st.Close()

			name := args[0]
			if layout.IsBuiltIn(name) {
				return fail(f, ExitCommandError, ErrCodeLayout,
					fmt.Sprintf("layout %s: built-in layouts cannot be removed", name))
			}
			deleted, err := st.DeleteLayout(cmd.Context(), name)
			if err != nil {
				return fail(f, ExitCommandError, ErrCodeStore, err.Error())
			}
			if !deleted {
				return fail(f, ExitCommandError, ErrCodeNotFound,
					fmt.Sprintf("layout %s: not registered", name))
			}
			return f.Success(fmt.Sprintf("removed layout %s", name))
		},
	}
}

func newLayoutsImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "import <file>",
		Short:         "Import a layout from a YAML or JSON file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			_, st, err := openStore(rootOpts)
			if err != nil {
				return reportOpenError(f, err)
			}
			defer st.Close()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fail(f, ExitCommandError, ErrCodeNotFound, err.Error())
			}
			reg, err := loadRegistry(cmd.Context(), st)
			if err != nil {
				return fail(f, ExitCommandError, ErrCodeStore, err.Error())
			}
			def, err := reg.Import(data)
			if err != nil {
				return fail(f, ExitCommandError, ErrCodeLayout, err.Error())
			}
			if err := st.SaveLayout(cmd.Context(), def); err != nil {
				return fail(f, ExitCommandError, ErrCodeStore, err.Error())
			}
			return f.Success(fmt.Sprintf("imported layout %s (%d mapped keys)", def.Name, len(def.Mapping)))
		},
	}
}

func newLayoutsExportCommand(rootOpts *RootOptions) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:           "export <name>",
		Short:         "Export a layout to YAML",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			_, st, err := openStore(rootOpts)
			if err != nil {
				return reportOpenError(f, err)
			}
			defer st.Close()

			reg, err := loadRegistry(cmd.Context(), st)
			if err != nil {
				return fail(f, ExitCommandError, ErrCodeStore, err.Error())
			}
			data, err := reg.Export(args[0])
			if err != nil {
				return fail(f, ExitCommandError, ErrCodeNotFound, err.Error())
			}
			if outPath != "" {
				if err := os.WriteFile(outPath, data, 0o644); err != nil {
					return fail(f, ExitCommandError, ErrCodeGeneric, err.Error())
				}
				return f.Success(fmt.Sprintf("exported layout %s to %s", args[0], outPath))
			}
			fmt.Fprint(f.Writer, string(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write to file instead of stdout")
	return cmd
}
