package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tabmeta/internal/contextpack"
)

// NewContextCommand creates the context command.
func NewContextCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context <logical-name>",
		Short: "Render a Markdown briefing for a dashboard",
		Long: `Build a Markdown context document from an artifact's metadata and the
historical-issues file: data sources, calculated fields with their
resolution status, known issues. The output is always Markdown.`,
		Example: `  tabmeta context sales
  tabmeta context sales --issues support/issues.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)

			issuesPath, _ := cmd.Flags().GetString("issues")
			if issuesPath == "" {
				issuesPath = cc.Cfg.IssuesPath
			}

			doc, err := loadDocument(cc.Cfg, args[0])
			if err != nil {
				return err
			}
			issues, err := contextpack.LoadIssues(issuesPath)
			if err != nil {
				return err
			}

			cc.Renderer.Printf("%s", contextpack.Build(doc, contextpack.ForDashboard(issues, args[0])))
			return nil
		},
	}
	cmd.Flags().String("issues", "", "Path to the historical issues CSV")
	return cmd
}
