package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tabmeta/internal/registry"
)

// NewRegisterCommand creates the register command.
func NewRegisterCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register <logical-name> <kind> <source-path> <metadata-path>",
		Short: "Register an artifact manually",
		Long: `Add an entry to the artifact registry without parsing. Useful when the
metadata file was produced elsewhere. Kind must be workbook or prep_flow.`,
		Example: `  tabmeta register sales workbook dashboards/sales.twb metadata/sales.json`,
		Args:    cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)

			kind := args[1]
			if kind != "workbook" && kind != "prep_flow" {
				return fmt.Errorf("kind must be workbook or prep_flow, got %q", kind)
			}

			reg, err := openRegistry(cc.Cfg)
			if err != nil {
				return err
			}
			if err := reg.Register(registry.Entry{
				Name:         args[0],
				Kind:         kind,
				SourcePath:   args[2],
				MetadataPath: args[3],
			}); err != nil {
				return err
			}
			cc.Renderer.Printf("registered %s (%s)\n", args[0], kind)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <logical-name>",
		Short: "Remove an artifact from the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			reg, err := openRegistry(cc.Cfg)
			if err != nil {
				return err
			}
			if err := reg.Remove(args[0]); err != nil {
				return err
			}
			cc.Renderer.Printf("removed %s\n", args[0])
			return nil
		},
	})

	return cmd
}
