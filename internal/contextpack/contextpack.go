// Package contextpack renders a Markdown briefing for one dashboard: the
// emitted metadata plus any historical issue records that mention it. The
// output is what a support engineer reads before answering a question about
// the dashboard, so it favors formulas, dependency status, and known
// problems over raw structure.
package contextpack

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/leapstack-labs/tabmeta/internal/model"
)

// Issue is one historical problem record from the issues CSV export.
type Issue struct {
	Dashboard   string
	Date        string
	Description string
	Resolution  string
}

// LoadIssues reads the issues CSV. Expected columns are dashboard, date,
// description, resolution; a header row is skipped when present. A missing
// file is not an error, it just means no history.
func LoadIssues(path string) ([]Issue, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening issues file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var issues []Issue
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading issues file: %w", err)
		}
		if len(rec) < 3 {
			continue
		}
		if first {
			first = false
			if strings.EqualFold(rec[0], "dashboard") {
				continue
			}
		}
		issue := Issue{Dashboard: rec[0], Date: rec[1], Description: rec[2]}
		if len(rec) > 3 {
			issue.Resolution = rec[3]
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

// ForDashboard filters issues to one dashboard, case-insensitively.
func ForDashboard(issues []Issue, name string) []Issue {
	var out []Issue
	for _, i := range issues {
		if strings.EqualFold(i.Dashboard, name) {
			out = append(out, i)
		}
	}
	return out
}

// Build renders the Markdown context document.
func Build(doc *model.Document, issues []Issue) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", doc.Name)
	fmt.Fprintf(&b, "- Kind: %s\n", doc.Kind)
	if doc.Version != "" {
		fmt.Fprintf(&b, "- Format version: %s\n", doc.Version)
	}
	if doc.SourceFile != "" {
		fmt.Fprintf(&b, "- Source: %s\n", doc.SourceFile)
	}
	b.WriteString("\n")

	for _, ds := range doc.DataSources {
		writeDataSource(&b, ds)
	}

	if len(doc.Worksheets) > 0 {
		b.WriteString("## Worksheets\n\n")
		for _, ws := range doc.Worksheets {
			fmt.Fprintf(&b, "- **%s**", ws.Name)
			if len(ws.DataSourceIDs) > 0 {
				fmt.Fprintf(&b, " (data: %s)", strings.Join(ws.DataSourceIDs, ", "))
			}
			if len(ws.FieldRefs) > 0 {
				fmt.Fprintf(&b, " uses %s", strings.Join(ws.FieldRefs, ", "))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(doc.Dashboards) > 0 {
		b.WriteString("## Dashboards\n\n")
		for _, db := range doc.Dashboards {
			fmt.Fprintf(&b, "- **%s**: %s\n", db.Name, strings.Join(db.Worksheets, ", "))
		}
		b.WriteString("\n")
	}

	if len(doc.Steps) > 0 {
		b.WriteString("## Flow steps\n\n")
		for _, s := range doc.Steps {
			fmt.Fprintf(&b, "- **%s** (%s)", stepLabel(s), s.Type)
			if len(s.Upstream) > 0 {
				fmt.Fprintf(&b, " reads %s", strings.Join(s.Upstream, ", "))
			}
			if len(s.Downstream) > 0 {
				fmt.Fprintf(&b, " feeds %s", strings.Join(s.Downstream, ", "))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(doc.Diagnostics) > 0 {
		b.WriteString("## Parse warnings\n\n")
		for _, d := range doc.Diagnostics {
			fmt.Fprintf(&b, "- `%s`: %s\n", d.Kind, d.Message)
		}
		b.WriteString("\n")
	}

	if len(issues) > 0 {
		b.WriteString("## Known issues\n\n")
		for _, i := range issues {
			fmt.Fprintf(&b, "- %s: %s", i.Date, i.Description)
			if i.Resolution != "" {
				fmt.Fprintf(&b, " (resolution: %s)", i.Resolution)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	return b.String()
}

func writeDataSource(b *strings.Builder, ds *model.DataSource) {
	title := ds.Caption
	if title == "" {
		title = ds.ID
	}
	fmt.Fprintf(b, "## Data source: %s\n\n", title)

	if c := ds.Connection; c != nil {
		fmt.Fprintf(b, "- Connection: %s", c.Class)
		if c.Server != "" {
			fmt.Fprintf(b, " on %s", c.Server)
		}
		if c.DBName != "" {
			fmt.Fprintf(b, " / %s", c.DBName)
		}
		b.WriteString("\n")
	}
	if len(ds.Tables) > 0 {
		fmt.Fprintf(b, "- Tables: %s\n", strings.Join(ds.Tables, ", "))
	}
	for _, j := range ds.Joins {
		fmt.Fprintf(b, "- Join: %s %s %s", j.LeftTable, j.Type, j.RightTable)
		if j.Expression != "" {
			fmt.Fprintf(b, " on `%s`", j.Expression)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	var plain, calculated []*model.Field
	for _, f := range ds.Fields {
		if f.IsCalculated {
			calculated = append(calculated, f)
		} else {
			plain = append(plain, f)
		}
	}

	if len(plain) > 0 {
		b.WriteString("### Fields\n\n")
		for _, f := range plain {
			fmt.Fprintf(b, "- %s", fieldLabel(f))
			if f.Datatype != "" {
				fmt.Fprintf(b, " (%s)", f.Datatype)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(calculated) > 0 {
		b.WriteString("### Calculated fields\n\n")
		for _, f := range calculated {
			fmt.Fprintf(b, "- %s = `%s`", fieldLabel(f), f.Formula)
			if f.Status != "" && f.Status != model.StatusResolved {
				fmt.Fprintf(b, " [%s]", f.Status)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(ds.Parameters) > 0 {
		b.WriteString("### Parameters\n\n")
		for _, p := range ds.Parameters {
			fmt.Fprintf(b, "- %s (%s)", p.Name, p.Datatype)
			if p.Value != nil {
				fmt.Fprintf(b, " = %s", *p.Value)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
}

func fieldLabel(f *model.Field) string {
	if f.Caption != "" && f.Caption != f.Name {
		return fmt.Sprintf("%s (%s)", f.Caption, f.Name)
	}
	return f.Name
}

func stepLabel(s *model.Step) string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}
