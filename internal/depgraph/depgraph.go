// Package depgraph builds the calculated-field dependency graph for one
// data source and classifies every calculated field. The graph is an arena
// of nodes with index-based edges; traversal is iterative with a
// white/gray/black coloring scheme, so degenerate inputs cannot overflow
// the stack. Cycles are findings, never errors: the build always completes.
package depgraph

import (
	"fmt"

	"github.com/leapstack-labs/tabmeta/internal/formula"
	"github.com/leapstack-labs/tabmeta/internal/model"
)

// Result holds everything the builder learned about one data source.
type Result struct {
	// Statuses maps calculated field name to its classification.
	Statuses map[string]model.FieldStatus
	// References maps calculated field name to its normalized references,
	// in first-encounter order.
	References map[string][]string
	// Edges lists every in-source reference edge (from references to).
	Edges []model.Edge
	// Cycles lists each detected cycle as field names in cycle order.
	Cycles [][]string
	// Order is a topological evaluation order over non-cyclic calculated
	// fields, dependencies first. Diagnostic output only; nothing is
	// evaluated.
	Order []string
	// Diagnostics carries unresolved references, formula warnings and
	// cycle reports.
	Diagnostics []model.Diagnostic
}

// Graph converts the result to its persisted form, or nil when the source
// has nothing calculated.
func (r *Result) Graph() *model.DependencyGraph {
	if len(r.Edges) == 0 && len(r.Cycles) == 0 && len(r.Order) == 0 {
		return nil
	}
	return &model.DependencyGraph{
		Edges:           r.Edges,
		Cycles:          r.Cycles,
		EvaluationOrder: r.Order,
	}
}

// node colors for cycle detection
const (
	white = iota // unvisited
	gray         // on the current traversal path
	black        // fully explored
)

type node struct {
	name  string
	field *model.Field
	out   []int // arena indices this node's formula references
}

// Build constructs the graph over fields of one data source. external
// contains names that are resolvable but live outside the source's field
// set (parameters, fields of other sources); a reference landing there
// makes the field partially-resolved instead of unresolved.
func Build(fields []*model.Field, external map[string]bool) *Result {
	res := &Result{
		Statuses:   map[string]model.FieldStatus{},
		References: map[string][]string{},
	}

	// Arena over all fields; captions resolve to the owning field too,
	// since formulas may reference either form.
	nodes := make([]node, 0, len(fields))
	index := map[string]int{}
	for _, f := range fields {
		nodes = append(nodes, node{name: f.Name, field: f})
		index[f.Name] = len(nodes) - 1
	}
	for i, f := range fields {
		if f.Caption != "" {
			if _, taken := index[f.Caption]; !taken {
				index[f.Caption] = i
			}
		}
	}

	for i := range nodes {
		f := nodes[i].field
		if !f.IsCalculated {
			continue
		}

		refs, warns := formula.Extract(f.Formula)
		for _, w := range warns {
			res.Diagnostics = append(res.Diagnostics, model.Diagnostic{
				Kind:    model.DiagFormulaSyntax,
				Entity:  f.Name,
				Message: w.Message,
			})
		}

		status := model.StatusResolved
		for _, ref := range refs {
			res.References[f.Name] = append(res.References[f.Name], ref.Name)

			if j, ok := index[ref.Name]; ok {
				nodes[i].out = append(nodes[i].out, j)
				res.Edges = append(res.Edges, model.Edge{
					From: f.Name,
					To:   nodes[j].name,
					Raw:  ref.Raw,
				})
				continue
			}
			if external[ref.Name] {
				if status == model.StatusResolved {
					status = model.StatusPartiallyResolved
				}
				continue
			}
			status = model.StatusUnresolved
			res.Diagnostics = append(res.Diagnostics, model.Diagnostic{
				Kind:    model.DiagUnresolvedReference,
				Entity:  f.Name,
				Ref:     ref.Name,
				Message: fmt.Sprintf("field %q references %q which does not exist", f.Name, ref.Name),
			})
		}
		res.Statuses[f.Name] = status
	}

	cyclic := detectCycles(nodes, res)
	res.Order = evaluationOrder(nodes, cyclic)

	return res
}

// detectCycles runs an iterative colored DFS over the arena, records every
// cycle found, marks members cyclic, and returns the cyclic node set.
func detectCycles(nodes []node, res *Result) map[int]bool {
	color := make([]int, len(nodes))
	cyclic := map[int]bool{}

	type frame struct {
		idx  int
		edge int
	}

	for start := range nodes {
		if color[start] != white {
			continue
		}

		stack := []frame{{idx: start}}
		color[start] = gray
		var path []int // gray nodes in traversal order

		path = append(path, start)
		for len(stack) > 0 {
			top := &stack[len(stack)-1]

			if top.edge >= len(nodes[top.idx].out) {
				color[top.idx] = black
				path = path[:len(path)-1]
				stack = stack[:len(stack)-1]
				continue
			}

			next := nodes[top.idx].out[top.edge]
			top.edge++

			switch color[next] {
			case white:
				color[next] = gray
				path = append(path, next)
				stack = append(stack, frame{idx: next})
			case gray:
				// Back edge: the cycle is the path segment from next to
				// the current node, in traversal (cycle) order.
				var cycle []string
				recording := false
				for _, idx := range path {
					if idx == next {
						recording = true
					}
					if recording {
						cycle = append(cycle, nodes[idx].name)
						cyclic[idx] = true
					}
				}
				res.Cycles = append(res.Cycles, cycle)
				res.Diagnostics = append(res.Diagnostics, model.Diagnostic{
					Kind:    model.DiagCycle,
					Entity:  cycle[0],
					Message: fmt.Sprintf("dependency cycle: %v", cycle),
				})
			}
		}
	}

	for idx := range cyclic {
		res.Statuses[nodes[idx].name] = model.StatusCyclic
	}
	return cyclic
}

// evaluationOrder returns non-cyclic calculated fields with dependencies
// before dependents. Iteration follows field declaration order, so the
// result is deterministic for a given document.
func evaluationOrder(nodes []node, cyclic map[int]bool) []string {
	var order []string
	done := make([]bool, len(nodes))

	type frame struct {
		idx      int
		edge     int
		expanded bool
	}

	for start := range nodes {
		if done[start] || cyclic[start] || !nodes[start].field.IsCalculated {
			continue
		}

		stack := []frame{{idx: start}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]

			if top.edge >= len(nodes[top.idx].out) {
				if !done[top.idx] {
					done[top.idx] = true
					if nodes[top.idx].field.IsCalculated {
						order = append(order, nodes[top.idx].name)
					}
				}
				stack = stack[:len(stack)-1]
				continue
			}

			next := nodes[top.idx].out[top.edge]
			top.edge++
			if !done[next] && !cyclic[next] {
				stack = append(stack, frame{idx: next})
			}
		}
	}

	return order
}
