// Package normalize merges raw extractor output into one canonical
// document. It deduplicates entities the XML represents redundantly,
// resolves every cross-reference through an explicit lookup pass, and runs
// dependency resolution per data source. A reference that resolves to
// nothing (or to more than one target) becomes a diagnostic on the output
// document; normalization itself never fails.
package normalize

import (
	"fmt"

	"github.com/leapstack-labs/tabmeta/internal/depgraph"
	"github.com/leapstack-labs/tabmeta/internal/extract"
	"github.com/leapstack-labs/tabmeta/internal/model"
)

// Workbook builds the canonical document for a .twb parse.
func Workbook(parts *extract.WorkbookParts, name, sourceFile string) *model.Document {
	doc := &model.Document{
		Name:        name,
		SourceFile:  sourceFile,
		Kind:        model.KindWorkbook,
		Version:     parts.Version,
		DataSources: []*model.DataSource{},
		Diagnostics: append([]model.Diagnostic{}, parts.Diagnostics...),
	}

	doc.DataSources = dedupeDataSources(parts.DataSources)
	for _, ds := range doc.DataSources {
		ds.Fields = dedupeFields(ds.Fields)
	}

	validateJoins(doc)
	resolveDependencies(doc)

	doc.Worksheets = normalizeWorksheets(doc, parts.Worksheets)
	doc.Dashboards = normalizeDashboards(doc, parts.Dashboards)

	if len(doc.Diagnostics) == 0 {
		doc.Diagnostics = nil
	}
	return doc
}

// PrepFlow builds the canonical document for a .tfl parse.
func PrepFlow(parts *extract.PrepFlowParts, name, sourceFile string) *model.Document {
	doc := &model.Document{
		Name:        name,
		SourceFile:  sourceFile,
		Kind:        model.KindPrepFlow,
		Version:     parts.Version,
		DataSources: []*model.DataSource{},
		Diagnostics: append([]model.Diagnostic{}, parts.Diagnostics...),
	}

	// Dedupe steps by id, first encounter wins.
	seen := map[string]*model.Step{}
	for _, step := range parts.Steps {
		if _, dup := seen[step.ID]; dup {
			continue
		}
		seen[step.ID] = step
		doc.Steps = append(doc.Steps, step)
	}

	// Input connections double as the flow's data sources.
	for _, step := range doc.Steps {
		if step.Type == "input" && step.Connection != nil {
			doc.DataSources = append(doc.DataSources, &model.DataSource{
				ID:         step.ID,
				Caption:    step.Name,
				Connection: step.Connection,
				Fields:     []*model.Field{},
			})
		}
	}

	// Resolve upstream references and derive downstream links.
	for _, step := range doc.Steps {
		for _, up := range step.Upstream {
			src, ok := seen[up]
			if !ok {
				doc.Diagnostics = append(doc.Diagnostics, model.Diagnostic{
					Kind:    model.DiagDanglingReference,
					Entity:  step.ID,
					Ref:     up,
					Message: fmt.Sprintf("step %q reads from unknown step %q", step.ID, up),
				})
				continue
			}
			src.Downstream = append(src.Downstream, step.ID)
		}
	}

	if len(doc.Diagnostics) == 0 {
		doc.Diagnostics = nil
	}
	return doc
}

// dedupeDataSources collapses repeated representations of one datasource,
// keeping first-encounter order and the richest record for each id.
func dedupeDataSources(in []*model.DataSource) []*model.DataSource {
	out := []*model.DataSource{}
	byID := map[string]int{}
	for _, ds := range in {
		if idx, dup := byID[ds.ID]; dup {
			if richness(ds) > richness(out[idx]) {
				out[idx] = ds
			}
			continue
		}
		byID[ds.ID] = len(out)
		out = append(out, ds)
	}
	return out
}

// richness scores how much content a datasource record carries, so the
// definition wins over bare references from worksheets.
func richness(ds *model.DataSource) int {
	score := len(ds.Fields)*2 + len(ds.Joins) + len(ds.Parameters) + len(ds.Tables)
	if ds.Connection != nil {
		score++
	}
	return score
}

// dedupeFields keeps one record per field name. When a duplicate carries a
// calculation and the survivor does not, the calculation is folded in.
func dedupeFields(in []*model.Field) []*model.Field {
	out := []*model.Field{}
	byName := map[string]*model.Field{}
	for _, f := range in {
		existing, dup := byName[f.Name]
		if !dup {
			byName[f.Name] = f
			out = append(out, f)
			continue
		}
		if f.IsCalculated && !existing.IsCalculated {
			existing.IsCalculated = true
			existing.Formula = f.Formula
		}
		if existing.Caption == "" {
			existing.Caption = f.Caption
		}
		if existing.Datatype == "" {
			existing.Datatype = f.Datatype
		}
		if existing.Role == "" {
			existing.Role = f.Role
		}
	}
	return out
}

// validateJoins checks every join endpoint against its datasource's table
// list. Unknown endpoints keep the join in the output and add a dangling
// reference diagnostic.
func validateJoins(doc *model.Document) {
	for _, ds := range doc.DataSources {
		if len(ds.Joins) == 0 {
			continue
		}
		tables := map[string]bool{}
		for _, t := range ds.Tables {
			tables[t] = true
		}
		for _, j := range ds.Joins {
			for _, endpoint := range []string{j.LeftTable, j.RightTable} {
				if endpoint == "" || tables[endpoint] {
					continue
				}
				doc.Diagnostics = append(doc.Diagnostics, model.Diagnostic{
					Kind:    model.DiagDanglingReference,
					Entity:  ds.ID,
					Ref:     endpoint,
					Message: fmt.Sprintf("join references table %q not present in datasource %q", endpoint, ds.ID),
				})
			}
		}
	}
}

// resolveDependencies runs the graph builder per datasource. Parameters
// (from any source) and fields of sibling sources are visible as external
// names: a formula reaching them is partially resolved, not broken.
func resolveDependencies(doc *model.Document) {
	params := map[string]bool{}
	for _, ds := range doc.DataSources {
		for _, p := range ds.Parameters {
			params[p.Name] = true
			if p.Caption != "" {
				params[p.Caption] = true
			}
		}
	}

	for _, ds := range doc.DataSources {
		external := map[string]bool{}
		for name := range params {
			external[name] = true
		}
		for _, other := range doc.DataSources {
			if other == ds {
				continue
			}
			for _, f := range other.Fields {
				external[f.Name] = true
				if f.Caption != "" {
					external[f.Caption] = true
				}
			}
		}

		res := depgraph.Build(ds.Fields, external)
		for _, f := range ds.Fields {
			if !f.IsCalculated {
				continue
			}
			f.Status = res.Statuses[f.Name]
			f.References = res.References[f.Name]
		}
		ds.Graph = res.Graph()
		for i := range res.Diagnostics {
			if res.Diagnostics[i].Entity != "" {
				res.Diagnostics[i].Entity = ds.ID + "." + res.Diagnostics[i].Entity
			}
		}
		doc.Diagnostics = append(doc.Diagnostics, res.Diagnostics...)
	}
}

// normalizeWorksheets dedupes worksheets and resolves their datasource and
// field references against the canonical document.
func normalizeWorksheets(doc *model.Document, in []*model.Worksheet) []*model.Worksheet {
	dsByID := map[string]bool{}
	fieldOwners := map[string][]string{} // field name or caption -> datasource ids
	for _, ds := range doc.DataSources {
		dsByID[ds.ID] = true
		for _, f := range ds.Fields {
			fieldOwners[f.Name] = append(fieldOwners[f.Name], ds.ID)
			if f.Caption != "" && f.Caption != f.Name {
				fieldOwners[f.Caption] = append(fieldOwners[f.Caption], ds.ID)
			}
		}
	}

	var out []*model.Worksheet
	seen := map[string]bool{}
	for _, ws := range in {
		if seen[ws.Name] {
			continue
		}
		seen[ws.Name] = true
		out = append(out, ws)

		for _, dsID := range ws.DataSourceIDs {
			if !dsByID[dsID] {
				doc.Diagnostics = append(doc.Diagnostics, model.Diagnostic{
					Kind:    model.DiagDanglingReference,
					Entity:  ws.Name,
					Ref:     dsID,
					Message: fmt.Sprintf("worksheet %q references unknown datasource %q", ws.Name, dsID),
				})
			}
		}
		for _, ref := range ws.FieldRefs {
			owners := fieldOwners[ref]
			switch {
			case len(owners) == 0:
				doc.Diagnostics = append(doc.Diagnostics, model.Diagnostic{
					Kind:    model.DiagDanglingReference,
					Entity:  ws.Name,
					Ref:     ref,
					Message: fmt.Sprintf("worksheet %q references unknown field %q", ws.Name, ref),
				})
			case len(owners) > 1 && !sameOwner(owners):
				doc.Diagnostics = append(doc.Diagnostics, model.Diagnostic{
					Kind:    model.DiagAmbiguousReference,
					Entity:  ws.Name,
					Ref:     ref,
					Message: fmt.Sprintf("worksheet %q field %q matches %d datasources", ws.Name, ref, len(owners)),
				})
			}
		}
	}
	return out
}

func sameOwner(owners []string) bool {
	for _, o := range owners[1:] {
		if o != owners[0] {
			return false
		}
	}
	return true
}

// normalizeDashboards resolves worksheet membership and rolls the member
// worksheets' datasource and field references up onto each dashboard.
func normalizeDashboards(doc *model.Document, in []*model.Dashboard) []*model.Dashboard {
	wsByName := map[string]*model.Worksheet{}
	for _, ws := range doc.Worksheets {
		wsByName[ws.Name] = ws
	}

	var out []*model.Dashboard
	seen := map[string]bool{}
	for _, db := range in {
		if seen[db.Name] {
			continue
		}
		seen[db.Name] = true
		out = append(out, db)

		seenDS := map[string]bool{}
		seenField := map[string]bool{}
		for _, wsName := range db.Worksheets {
			ws, ok := wsByName[wsName]
			if !ok {
				doc.Diagnostics = append(doc.Diagnostics, model.Diagnostic{
					Kind:    model.DiagDanglingReference,
					Entity:  db.Name,
					Ref:     wsName,
					Message: fmt.Sprintf("dashboard %q references unknown worksheet %q", db.Name, wsName),
				})
				continue
			}
			for _, dsID := range ws.DataSourceIDs {
				if !seenDS[dsID] {
					seenDS[dsID] = true
					db.DataSourceIDs = append(db.DataSourceIDs, dsID)
				}
			}
			for _, ref := range ws.FieldRefs {
				if !seenField[ref] {
					seenField[ref] = true
					db.FieldRefs = append(db.FieldRefs, ref)
				}
			}
		}
	}
	return out
}
