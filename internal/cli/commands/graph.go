package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tabmeta/internal/cli/output"
	"github.com/leapstack-labs/tabmeta/internal/model"
)

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "graph <logical-name>",
		Short: "Show calculated-field dependencies",
		Long: `Display the dependency graph of each data source: which calculated
fields reference which fields, the evaluation order, and any reference
cycles.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			doc, err := loadDocument(cc.Cfg, args[0])
			if err != nil {
				return err
			}

			r := cc.Renderer
			switch r.EffectiveMode() {
			case output.ModeJSON:
				type dsGraph struct {
					DataSource string                 `json:"data_source"`
					Graph      *model.DependencyGraph `json:"graph"`
				}
				var out []dsGraph
				for _, ds := range doc.DataSources {
					if ds.Graph != nil {
						out = append(out, dsGraph{DataSource: ds.ID, Graph: ds.Graph})
					}
				}
				enc := json.NewEncoder(r.Writer())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			case output.ModeMarkdown:
				return graphMarkdown(r, doc)
			default:
				return graphText(r, doc)
			}
		},
	}
}

func graphText(r *output.Renderer, doc *model.Document) error {
	styles := r.Styles()
	r.Header(1, "Dependency Graph")
	r.Println("")

	any := false
	for _, ds := range doc.DataSources {
		if ds.Graph == nil {
			continue
		}
		any = true
		r.Println(styles.Header2.Render(ds.ID))
		for _, e := range ds.Graph.Edges {
			r.Printf("  %s %s %s\n", styles.Name.Render(e.From), styles.Muted.Render("->"), e.To)
		}
		for _, cycle := range ds.Graph.Cycles {
			r.Printf("  %s %s\n", styles.Error.Render("cycle:"), strings.Join(cycle, " -> "))
		}
		if len(ds.Graph.EvaluationOrder) > 0 {
			r.Printf("  %s %s\n", styles.Muted.Render("evaluation order:"),
				strings.Join(ds.Graph.EvaluationOrder, ", "))
		}
		r.Println("")
	}
	if !any {
		r.Println(styles.Muted.Render("No calculated-field dependencies."))
	}
	return nil
}

func graphMarkdown(r *output.Renderer, doc *model.Document) error {
	r.Println(output.FormatHeader(1, "Dependency Graph"))
	r.Println("")
	for _, ds := range doc.DataSources {
		if ds.Graph == nil {
			continue
		}
		r.Println(output.FormatHeader(2, ds.ID))
		for _, e := range ds.Graph.Edges {
			r.Printf("- `%s` -> `%s`\n", e.From, e.To)
		}
		for _, cycle := range ds.Graph.Cycles {
			r.Printf("- **cycle**: %s\n", strings.Join(cycle, " -> "))
		}
		if len(ds.Graph.EvaluationOrder) > 0 {
			r.Println(output.FormatKeyValue("Evaluation order",
				fmt.Sprintf("`%s`", strings.Join(ds.Graph.EvaluationOrder, "`, `"))))
		}
		r.Println("")
	}
	return nil
}
