package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tabmeta/internal/cli/output"
	"github.com/leapstack-labs/tabmeta/internal/engine"
	"github.com/leapstack-labs/tabmeta/internal/model"
	"github.com/leapstack-labs/tabmeta/internal/registry"
)

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <input-path> [logical-name] [output-dir]",
		Short: "Extract metadata from a workbook or flow file",
		Long: `Parse a Tableau workbook (.twb) or prep flow (.tfl) and write its
metadata as JSON. Recoverable problems in the document are reported as
diagnostics and do not fail the command; only an unreadable file or XML
that is not well-formed does.

When input-path is a directory, every .twb and .tfl file in it is parsed
in parallel and logical names are taken from the file names.`,
		Example: `  tabmeta parse dashboards/sales.twb sales
  tabmeta parse dashboards/sales.twb sales ./metadata
  tabmeta parse dashboards/`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)

			info, err := os.Stat(args[0])
			if err != nil {
				return fmt.Errorf("input path: %w", err)
			}
			if info.IsDir() {
				if len(args) > 2 {
					return fmt.Errorf("directory mode takes at most an output directory")
				}
				outDir := cc.Cfg.MetadataDir
				if len(args) == 2 {
					outDir = args[1]
				}
				return parseDirectory(cmd, cc, args[0], outDir)
			}

			if len(args) < 2 {
				return fmt.Errorf("a logical name is required when parsing a single file")
			}
			outDir := cc.Cfg.MetadataDir
			if len(args) == 3 {
				outDir = args[2]
			}
			return parseFile(cmd, cc, args[0], args[1], outDir)
		},
	}
	return cmd
}

func parseFile(cmd *cobra.Command, cc *CommandContext, inputPath, name, outDir string) error {
	doc, artifact, err := cc.Engine.ParseTo(cmd.Context(), inputPath, name, outDir)
	if err != nil {
		return err
	}
	if err := registerArtifact(cc, doc, inputPath, artifact); err != nil {
		return err
	}
	reportDiagnostics(cc.Renderer, name, doc.Diagnostics)
	return renderParseResult(cc.Renderer, []engine.Result{{
		Input:        engine.Input{Path: inputPath, Name: name},
		Document:     doc,
		ArtifactPath: artifact,
	}})
}

func parseDirectory(cmd *cobra.Command, cc *CommandContext, dir, outDir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading input directory: %w", err)
	}

	var inputs []engine.Input
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".twb" && ext != ".tfl" {
			continue
		}
		inputs = append(inputs, engine.Input{
			Path: filepath.Join(dir, e.Name()),
			Name: strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
		})
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no .twb or .tfl files in %s", dir)
	}
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].Name < inputs[j].Name })

	results, err := cc.Engine.ParseAll(cmd.Context(), inputs, outDir, cc.Cfg.Workers)
	if err != nil {
		return err
	}
	for _, res := range results {
		if err := registerArtifact(cc, res.Document, res.Input.Path, res.ArtifactPath); err != nil {
			return err
		}
		reportDiagnostics(cc.Renderer, res.Input.Name, res.Document.Diagnostics)
	}
	return renderParseResult(cc.Renderer, results)
}

func registerArtifact(cc *CommandContext, doc *model.Document, sourcePath, artifact string) error {
	reg, err := openRegistry(cc.Cfg)
	if err != nil {
		return err
	}
	return reg.Register(registry.Entry{
		Name:         doc.Name,
		Kind:         string(doc.Kind),
		SourcePath:   sourcePath,
		MetadataPath: artifact,
	})
}

// reportDiagnostics surfaces recoverable warnings on stderr. They never
// affect the exit code.
func reportDiagnostics(r *output.Renderer, name string, diags []model.Diagnostic) {
	for _, d := range diags {
		r.Errorf("warning: %s: [%s] %s\n", name, d.Kind, d.Message)
	}
}

func renderParseResult(r *output.Renderer, results []engine.Result) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		type parsed struct {
			Name        string `json:"name"`
			Kind        string `json:"kind"`
			Artifact    string `json:"artifact"`
			Diagnostics int    `json:"diagnostics"`
		}
		out := make([]parsed, 0, len(results))
		for _, res := range results {
			out = append(out, parsed{
				Name:        res.Document.Name,
				Kind:        string(res.Document.Kind),
				Artifact:    res.ArtifactPath,
				Diagnostics: len(res.Document.Diagnostics),
			})
		}
		enc := json.NewEncoder(r.Writer())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case output.ModeMarkdown:
		for _, res := range results {
			r.Println(output.FormatKeyValue(res.Document.Name, res.ArtifactPath))
		}
		return nil
	default:
		styles := r.Styles()
		for _, res := range results {
			label := styles.Success.Render("parsed")
			if len(res.Document.Diagnostics) > 0 {
				label = styles.Warning.Render(fmt.Sprintf("parsed with %d warnings", len(res.Document.Diagnostics)))
			}
			r.Printf("%s %s -> %s\n", label, styles.Name.Render(res.Document.Name), res.ArtifactPath)
		}
		return nil
	}
}
