package commands

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tabmeta/internal/cli/output"
	"github.com/leapstack-labs/tabmeta/internal/registry"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered artifacts",
		Long:  `Show every artifact in the registry with its kind, source, and metadata path.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)
			reg, err := openRegistry(cc.Cfg)
			if err != nil {
				return err
			}
			entries := reg.List()

			r := cc.Renderer
			switch r.EffectiveMode() {
			case output.ModeJSON:
				enc := json.NewEncoder(r.Writer())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			case output.ModeMarkdown:
				return listMarkdown(r, entries)
			default:
				return listTable(r, entries)
			}
		},
	}
}

func listTable(r *output.Renderer, entries []registry.Entry) error {
	if len(entries) == 0 {
		r.Println(r.Styles().Muted.Render("No artifacts registered."))
		return nil
	}
	tbl := r.NewTable()
	tbl.AppendHeader([]any{"NAME", "KIND", "SOURCE", "METADATA"})
	for _, e := range entries {
		tbl.AppendRow([]any{e.Name, e.Kind, e.SourcePath, e.MetadataPath})
	}
	tbl.Render()
	return nil
}

func listMarkdown(r *output.Renderer, entries []registry.Entry) error {
	r.Println(output.FormatHeader(1, "Registered artifacts"))
	r.Println("")
	if len(entries) == 0 {
		r.Println("None.")
		return nil
	}
	for _, e := range entries {
		r.Println(output.FormatHeader(2, e.Name))
		r.Println(output.FormatKeyValue("Kind", e.Kind))
		r.Println(output.FormatKeyValue("Source", e.SourcePath))
		r.Println(output.FormatKeyValue("Metadata", e.MetadataPath))
		r.Println("")
	}
	return nil
}
