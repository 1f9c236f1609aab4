package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tabmeta/internal/sample"
)

// NewSampleCommand creates the sample command.
func NewSampleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sample [dir]",
		Short: "Write sample workbook and flow files",
		Long: `Write mock .twb and .tfl documents for trying out the parser. The files
are identical on every run and include calculated fields, a join, a
parameter, and one deliberately broken reference.`,
		Example: `  tabmeta sample
  tabmeta sample fixtures/`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			paths, err := sample.Write(dir)
			if err != nil {
				return err
			}
			for _, p := range paths {
				cc.Renderer.Printf("wrote %s\n", p)
			}
			return nil
		},
	}
}
