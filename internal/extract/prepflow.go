package extract

import (
	"github.com/leapstack-labs/tabmeta/internal/model"
)

// PrepFlowParts is the raw extractor output for a .tfl document.
type PrepFlowParts struct {
	Version     string
	Steps       []*model.Step
	Diagnostics []model.Diagnostic
}

// PrepFlow extracts the step sequence from a prep flow tree. Downstream
// links are left empty here; the normalizer derives them by inverting the
// upstream references.
func PrepFlow(root *Node) *PrepFlowParts {
	p := &PrepFlowParts{Version: root.Attr("version")}

	for _, n := range root.FindAll("node") {
		step, diags := Step(n)
		p.Diagnostics = append(p.Diagnostics, diags...)
		if step != nil {
			p.Steps = append(p.Steps, step)
		}
	}

	return p
}

// Step extracts one flow node. The type attribute selects which detail
// section applies; a node without a type is not a step and is skipped
// silently, matching how flow documents nest auxiliary node elements.
func Step(n *Node) (*model.Step, []model.Diagnostic) {
	typ := n.Attr("type")
	if typ == "" {
		return nil, nil
	}

	id := n.Attr("id")
	if id == "" {
		return nil, []model.Diagnostic{{
			Kind:    model.DiagMalformedElement,
			Message: "flow node without id",
		}}
	}

	step := &model.Step{
		ID:   id,
		Name: n.Attr("name"),
		Type: typ,
	}

	if in := n.Attr("input"); in != "" {
		step.Upstream = append(step.Upstream, in)
	}
	for _, inp := range n.ChildrenNamed("input") {
		if src := inp.Attr("source"); src != "" {
			step.Upstream = append(step.Upstream, src)
		}
	}

	var diags []model.Diagnostic
	switch typ {
	case "input", "output":
		if conn := n.Find("connection"); conn != nil {
			step.Connection = connection(conn)
			if step.Connection.Class != "" && !model.KnownConnectionClasses[step.Connection.Class] {
				diags = append(diags, model.Diagnostic{
					Kind:    model.DiagUnknownConnection,
					Entity:  step.ID,
					Ref:     step.Connection.Class,
					Message: "step " + step.ID + " has unknown connection type " + step.Connection.Class,
				})
			}
		}

	case "join":
		step.JoinType = n.Attr("join-type")
		if step.JoinType == "" {
			step.JoinType = "inner"
		}
		for _, clause := range n.FindAll("join-clause") {
			op := clause.Attr("operator")
			if op == "" {
				op = "="
			}
			step.JoinClauses = append(step.JoinClauses, model.JoinPredicate{
				LeftColumn:  clause.Attr("left-field"),
				Operator:    op,
				RightColumn: clause.Attr("right-field"),
			})
		}

	case "aggregate":
		for _, f := range n.FindAll("field") {
			agg := model.Aggregation{
				Name:        f.Attr("name"),
				Calculation: f.Attr("calculation"),
				SourceField: f.Attr("source-field"),
			}
			if agg.Name == "" {
				diags = append(diags, model.Diagnostic{
					Kind:    model.DiagMalformedElement,
					Entity:  step.ID,
					Message: "aggregate field without name in step " + step.ID,
				})
				continue
			}
			step.Aggregations = append(step.Aggregations, agg)
		}

	case "filter":
		if cond := n.Find("condition"); cond != nil {
			step.Condition = &model.Condition{
				Field:    cond.Attr("field"),
				Operator: cond.Attr("operator"),
				Value:    cond.Attr("value"),
			}
		}

	case "clean":
		if op := n.Find("operation"); op != nil {
			step.Operation = &model.Operation{
				Type:  op.Attr("type"),
				Field: op.Attr("field"),
			}
		}
	}

	return step, diags
}
