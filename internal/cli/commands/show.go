package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tabmeta/internal/cli/output"
	"github.com/leapstack-labs/tabmeta/internal/model"
)

// NewShowCommand creates the show command.
func NewShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <logical-name>",
		Short: "Show the metadata of a parsed artifact",
		Example: `  tabmeta show sales
  tabmeta show sales -o json`,
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
				enc := json.NewEncoder(r.Writer())
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			case output.ModeMarkdown:
				return showMarkdown(r, doc)
			default:
				return showText(r, doc)
			}
		},
	}
}

func showText(r *output.Renderer, doc *model.Document) error {
	styles := r.Styles()
	r.Header(1, fmt.Sprintf("%s (%s)", doc.Name, doc.Kind))
	if doc.Version != "" {
		r.Printf("%s %s\n", styles.Muted.Render("format version:"), doc.Version)
	}
	r.Println("")

	for _, ds := range doc.DataSources {
		label := ds.Caption
		if label == "" {
			label = ds.ID
		}
		r.Println(styles.Header2.Render(label))
		if ds.Connection != nil {
			r.Printf("  %s %s\n", styles.Muted.Render("connection:"), connectionSummary(ds.Connection))
		}
		if len(ds.Tables) > 0 {
			r.Printf("  %s %s\n", styles.Muted.Render("tables:"), strings.Join(ds.Tables, ", "))
		}
		for _, f := range ds.Fields {
			line := "  " + styles.Name.Render(f.Name)
			if f.IsCalculated {
				line += " = " + f.Formula
				line += " " + statusBadge(styles, f.Status)
			}
			r.Println(line)
		}
		for _, p := range ds.Parameters {
			val := "(no value)"
			if p.Value != nil {
				val = *p.Value
			}
			r.Printf("  %s %s = %s\n", styles.Muted.Render("param"), p.Name, val)
		}
		r.Println("")
	}

	if len(doc.Worksheets) > 0 {
		r.Println(styles.Header2.Render(fmt.Sprintf("Worksheets (%d)", len(doc.Worksheets))))
		for _, ws := range doc.Worksheets {
			r.Printf("  %s\n", ws.Name)
		}
		r.Println("")
	}
	if len(doc.Dashboards) > 0 {
		r.Println(styles.Header2.Render(fmt.Sprintf("Dashboards (%d)", len(doc.Dashboards))))
		for _, db := range doc.Dashboards {
			r.Printf("  %s: %s\n", db.Name, strings.Join(db.Worksheets, ", "))
		}
		r.Println("")
	}
	if len(doc.Steps) > 0 {
		r.Println(styles.Header2.Render(fmt.Sprintf("Steps (%d)", len(doc.Steps))))
		for _, s := range doc.Steps {
			r.Printf("  %s [%s]\n", s.ID, s.Type)
		}
		r.Println("")
	}
	if len(doc.Diagnostics) > 0 {
		r.Println(styles.Warning.Render(fmt.Sprintf("Diagnostics (%d)", len(doc.Diagnostics))))
		for _, d := range doc.Diagnostics {
			r.Printf("  [%s] %s\n", d.Kind, d.Message)
		}
	}
	return nil
}

func showMarkdown(r *output.Renderer, doc *model.Document) error {
	r.Println(output.FormatHeader(1, doc.Name))
	r.Println(output.FormatKeyValue("Kind", string(doc.Kind)))
	if doc.Version != "" {
		r.Println(output.FormatKeyValue("Format version", doc.Version))
	}
	r.Println(output.FormatKeyValue("Source", doc.SourceFile))
	r.Println("")

	for _, ds := range doc.DataSources {
		r.Println(output.FormatHeader(2, ds.ID))
		if ds.Connection != nil {
			r.Println(output.FormatKeyValue("Connection", connectionSummary(ds.Connection)))
		}
		for _, f := range ds.Fields {
			if f.IsCalculated {
				r.Printf("- `%s` = `%s` (%s)\n", f.Name, f.Formula, f.Status)
			} else {
				r.Printf("- `%s`\n", f.Name)
			}
		}
		r.Println("")
	}

	if len(doc.Diagnostics) > 0 {
		r.Println(output.FormatHeader(2, "Diagnostics"))
		for _, d := range doc.Diagnostics {
			r.Printf("- `%s`: %s\n", d.Kind, d.Message)
		}
	}
	return nil
}

func connectionSummary(c *model.Connection) string {
	parts := []string{c.Class}
	if c.Server != "" {
		parts = append(parts, c.Server)
	}
	if c.DBName != "" {
		parts = append(parts, c.DBName)
	}
	return strings.Join(parts, " / ")
}

func statusBadge(styles output.Styles, status model.FieldStatus) string {
	switch status {
	case model.StatusResolved:
		return styles.Success.Render("[" + string(status) + "]")
	case model.StatusCyclic, model.StatusUnresolved:
		return styles.Error.Render("[" + string(status) + "]")
	default:
		return styles.Warning.Render("[" + string(status) + "]")
	}
}
