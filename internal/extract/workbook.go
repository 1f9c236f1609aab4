package extract

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/tabmeta/internal/model"
)

// WorkbookParts is the raw extractor output for a .twb document, before
// normalization. Records may be duplicated (the same datasource referenced
// from several sheets); the normalizer deduplicates.
type WorkbookParts struct {
	Version     string
	DataSources []*model.DataSource
	Worksheets  []*model.Worksheet
	Dashboards  []*model.Dashboard
	Diagnostics []model.Diagnostic
}

// Workbook extracts every entity kind from a workbook tree.
func Workbook(root *Node) *WorkbookParts {
	p := &WorkbookParts{Version: root.Attr("version")}

	for _, ds := range root.FindAll("datasource") {
		rec, diags := DataSource(ds)
		p.Diagnostics = append(p.Diagnostics, diags...)
		if rec != nil {
			p.DataSources = append(p.DataSources, rec)
		}
	}

	for _, ws := range root.FindAll("worksheet") {
		rec, diags := Worksheet(ws)
		p.Diagnostics = append(p.Diagnostics, diags...)
		if rec != nil {
			p.Worksheets = append(p.Worksheets, rec)
		}
	}

	for _, db := range root.FindAll("dashboard") {
		rec, diags := Dashboard(db)
		p.Diagnostics = append(p.Diagnostics, diags...)
		if rec != nil {
			p.Dashboards = append(p.Dashboards, rec)
		}
	}

	return p
}

// DataSource extracts one datasource subtree. Tableau's internal
// "Parameters" datasource becomes a record holding only parameters; the
// synthetic "Sample File" source is dropped, matching what downstream
// consumers expect to see. A datasource with no usable identity is skipped
// with a diagnostic.
func DataSource(n *Node) (*model.DataSource, []model.Diagnostic) {
	var diags []model.Diagnostic

	name, hasName := n.AttrOK("name")
	caption := n.attrOrChild("caption")
	if !hasName && caption == "" {
		return nil, append(diags, model.Diagnostic{
			Kind:    model.DiagMalformedElement,
			Message: "datasource element without name or caption",
		})
	}
	if name == "Sample File" {
		return nil, nil
	}

	ds := &model.DataSource{ID: name, Caption: caption}
	if ds.ID == "" {
		ds.ID = caption
	}

	if strings.HasPrefix(name, "Parameters") {
		ds.ID = "Parameters"
		for _, col := range n.FindAll("column") {
			param, diag := parameterFromColumn(col)
			if diag != nil {
				diags = append(diags, *diag)
				continue
			}
			ds.Parameters = append(ds.Parameters, param)
		}
		return ds, diags
	}

	if conn := n.Find("connection"); conn != nil {
		ds.Connection = connection(conn)
		if ds.Connection.Class != "" && !model.KnownConnectionClasses[ds.Connection.Class] {
			diags = append(diags, model.Diagnostic{
				Kind:    model.DiagUnknownConnection,
				Entity:  ds.ID,
				Ref:     ds.Connection.Class,
				Message: fmt.Sprintf("datasource %q has unknown connection type %q", ds.ID, ds.Connection.Class),
			})
		}
	}

	for _, rel := range n.FindAll("relation") {
		if rel.Attr("type") == "table" {
			if t := tableName(rel); t != "" {
				ds.Tables = append(ds.Tables, t)
			}
		}
	}
	// A single-table source often carries the table on the connection
	// instead of a relation tree.
	if len(ds.Tables) == 0 && ds.Connection != nil && ds.Connection.Table != "" {
		ds.Tables = append(ds.Tables, stripBrackets(ds.Connection.Table))
	}

	for _, col := range n.FindAll("column") {
		f, diag := Field(col)
		if diag != nil {
			diags = append(diags, *diag)
			continue
		}
		ds.Fields = append(ds.Fields, f)
	}

	for _, rel := range n.FindAll("relation") {
		if rel.Attr("type") != "join" {
			continue
		}
		j, jdiags := Join(rel, ds.ID)
		diags = append(diags, jdiags...)
		if j != nil {
			ds.Joins = append(ds.Joins, j)
		}
	}

	for _, pn := range n.FindAll("parameter") {
		param, diag := parameterFromElement(pn)
		if diag != nil {
			diags = append(diags, *diag)
			continue
		}
		ds.Parameters = append(ds.Parameters, param)
	}

	return ds, diags
}

// connection reads the non-credential connection attributes. Passwords do
// not occur in workbook XML; username and authentication are carried as
// identity tags.
func connection(n *Node) *model.Connection {
	table := n.Attr("table")
	if table == "" {
		table = n.Attr("table-name")
	}
	return &model.Connection{
		Class:          n.Attr("class"),
		Server:         n.Attr("server"),
		DBName:         n.Attr("dbname"),
		Schema:         n.Attr("schema"),
		Table:          table,
		Username:       n.Attr("username"),
		Authentication: n.Attr("authentication"),
	}
}

// Field extracts one column element. Caption and calculation appear as
// attributes in newer documents and as child elements in legacy ones; both
// forms produce the same record.
func Field(n *Node) (*model.Field, *model.Diagnostic) {
	name := stripBrackets(n.Attr("name"))
	caption := n.attrOrChild("caption")
	if name == "" && caption == "" {
		return nil, &model.Diagnostic{
			Kind:    model.DiagMalformedElement,
			Message: "column element without name or caption",
		}
	}
	if name == "" {
		name = caption
	}

	f := &model.Field{
		Name:               name,
		Caption:            caption,
		Role:               model.FieldRole(n.Attr("role")),
		Datatype:           n.Attr("datatype"),
		DefaultAggregation: n.Attr("aggregation"),
	}

	if calc := n.Find("calculation"); calc != nil {
		f.IsCalculated = true
		f.Formula = calc.attrOrChild("formula")
	}

	return f, nil
}

// Join extracts one join relation. Endpoints come from the first two
// nested table relations; validation against the datasource's table list
// is the normalizer's job, so a join is retained even when an endpoint is
// unknown.
func Join(n *Node, dsID string) (*model.Join, []model.Diagnostic) {
	var diags []model.Diagnostic

	j := &model.Join{Type: n.Attr("join")}
	if j.Type == "" {
		j.Type = "inner"
	}

	var tables []string
	for _, rel := range n.FindAll("relation") {
		if rel.Attr("type") == "table" {
			if t := tableName(rel); t != "" {
				tables = append(tables, t)
			}
		}
	}
	if len(tables) >= 1 {
		j.LeftTable = tables[0]
	}
	if len(tables) >= 2 {
		j.RightTable = tables[1]
	}
	if len(tables) == 0 {
		diags = append(diags, model.Diagnostic{
			Kind:    model.DiagMalformedElement,
			Entity:  dsID,
			Message: "join relation without table endpoints",
		})
	}

	expr := n.Attr("expression")
	for _, clause := range n.FindAll("clause") {
		if clause.Attr("type") == "join" && clause.Attr("expression") != "" {
			expr = clause.Attr("expression")
			break
		}
	}
	j.Expression = expr
	j.Predicates = parsePredicates(expr)

	return j, diags
}

// tableName prefers the relation alias over the physical table attribute.
func tableName(rel *Node) string {
	if v := rel.Attr("name"); v != "" {
		return stripBrackets(v)
	}
	return stripBrackets(rel.Attr("table"))
}

// joinOperators in match-longest-first order.
var joinOperators = []string{"<=", ">=", "<>", "=", "<", ">"}

// parsePredicates splits a join ON expression like
// "[Orders].[ID] = [Customers].[ID] AND [A].[x] <> [B].[y]" into column
// pairs. An expression that does not fit the pattern yields no predicates;
// the raw expression is preserved on the join either way.
func parsePredicates(expr string) []model.JoinPredicate {
	if expr == "" {
		return nil
	}

	var preds []model.JoinPredicate
	for _, part := range splitTopLevel(expr, " AND ") {
		for _, op := range joinOperators {
			idx := indexTopLevel(part, op)
			if idx < 0 {
				continue
			}
			left := strings.TrimSpace(part[:idx])
			right := strings.TrimSpace(part[idx+len(op):])
			if left != "" && right != "" {
				preds = append(preds, model.JoinPredicate{
					LeftColumn:  left,
					Operator:    op,
					RightColumn: right,
				})
			}
			break
		}
	}
	return preds
}

// splitTopLevel splits on sep wherever it occurs outside brackets.
func splitTopLevel(s, sep string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		}
		if depth == 0 && strings.HasPrefix(s[i:], sep) {
			parts = append(parts, s[start:i])
			i += len(sep) - 1
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// indexTopLevel returns the first index of op outside brackets, or -1.
func indexTopLevel(s, op string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		}
		if depth == 0 && strings.HasPrefix(s[i:], op) {
			return i
		}
	}
	return -1
}

// parameterFromColumn reads a parameter stored as a column of the internal
// Parameters datasource.
func parameterFromColumn(n *Node) (*model.Parameter, *model.Diagnostic) {
	name := stripBrackets(n.Attr("name"))
	caption := n.attrOrChild("caption")
	if name == "" && caption == "" {
		return nil, &model.Diagnostic{
			Kind:    model.DiagMalformedElement,
			Message: "parameter column without name or caption",
		}
	}
	if name == "" {
		name = caption
	}

	p := &model.Parameter{
		Name:     name,
		Caption:  caption,
		Datatype: n.Attr("datatype"),
	}
	if v, ok := n.AttrOK("value"); ok {
		p.Value = &v
	}
	for _, m := range n.FindAll("member") {
		if v, ok := m.AttrOK("value"); ok {
			p.AllowedValues = append(p.AllowedValues, v)
		}
	}
	return p, nil
}

// parameterFromElement reads a standalone parameter element, the form some
// document versions use instead of Parameters-datasource columns.
func parameterFromElement(n *Node) (*model.Parameter, *model.Diagnostic) {
	name := n.Attr("name")
	if name == "" {
		return nil, &model.Diagnostic{
			Kind:    model.DiagMalformedElement,
			Message: "parameter element without name",
		}
	}

	p := &model.Parameter{
		Name:     stripBrackets(name),
		Caption:  n.attrOrChild("caption"),
		Datatype: n.Attr("type"),
	}
	if p.Datatype == "" {
		p.Datatype = n.Attr("datatype")
	}
	if v, ok := n.AttrOK("value"); ok {
		p.Value = &v
	}
	return p, nil
}

// Worksheet extracts one worksheet element: its datasource references,
// the fields it uses, and its filters.
func Worksheet(n *Node) (*model.Worksheet, []model.Diagnostic) {
	name := n.Attr("name")
	if name == "" {
		return nil, []model.Diagnostic{{
			Kind:    model.DiagMalformedElement,
			Message: "worksheet element without name",
		}}
	}

	ws := &model.Worksheet{Name: name}

	seenDS := map[string]bool{}
	seenField := map[string]bool{}
	for _, dep := range n.FindAll("datasource-dependencies") {
		dsID := dep.Attr("datasource")
		if dsID != "" && !seenDS[dsID] {
			seenDS[dsID] = true
			ws.DataSourceIDs = append(ws.DataSourceIDs, dsID)
		}
		for _, col := range dep.FindAll("column") {
			ref := stripBrackets(col.Attr("name"))
			if ref == "" {
				ref = col.attrOrChild("caption")
			}
			if ref != "" && !seenField[ref] {
				seenField[ref] = true
				ws.FieldRefs = append(ws.FieldRefs, ref)
			}
		}
	}

	for _, fn := range n.FindAll("filter") {
		field := fn.Attr("field")
		if field == "" {
			field = fn.Attr("column")
		}
		if field == "" {
			continue
		}
		ws.Filters = append(ws.Filters, model.Filter{
			Field: stripBrackets(field),
			Class: fn.Attr("class"),
		})
	}

	return ws, nil
}

// Dashboard extracts one dashboard element. Worksheet membership comes
// from named zones; field and datasource rollups are resolved later by the
// normalizer.
func Dashboard(n *Node) (*model.Dashboard, []model.Diagnostic) {
	name := n.Attr("name")
	if name == "" {
		return nil, []model.Diagnostic{{
			Kind:    model.DiagMalformedElement,
			Message: "dashboard element without name",
		}}
	}

	db := &model.Dashboard{Name: name}
	seen := map[string]bool{}
	for _, zone := range n.FindAll("zone") {
		ws := zone.Attr("name")
		if ws != "" && !seen[ws] {
			seen[ws] = true
			db.Worksheets = append(db.Worksheets, ws)
		}
	}
	return db, nil
}
