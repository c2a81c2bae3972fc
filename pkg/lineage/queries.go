package lineage

import (
	"sort"
	"strings"
)

// SourceTables returns the physical tables read by the query and not
// written by an earlier statement of it, plus tables a statement both reads
// and writes. Names are sorted and keep the default schema qualifier.
func (g *Graph) SourceTables() []string {
	var out []string
	for _, n := range g.Nodes(NodeTable) {
		if n.Virtual || !n.Read {
			continue
		}
		if len(g.parents[n.ID]) == 0 || g.selfLoops[n.ID] {
			out = append(out, n.ID)
		}
	}
	return out
}

// TargetTables returns the physical tables written by the query and not
// read by a later statement of it, plus self-loop tables.
func (g *Graph) TargetTables() []string {
	var out []string
	for _, n := range g.Nodes(NodeTable) {
		if n.Virtual || !n.Written {
			continue
		}
		if len(g.edges[n.ID]) == 0 || g.selfLoops[n.ID] {
			out = append(out, n.ID)
		}
	}
	return out
}

// TerminalColumns returns the column nodes nothing downstream consumes,
// sorted by ID.
func (g *Graph) TerminalColumns() []*Node {
	var out []*Node
	for _, n := range g.Nodes(NodeColumn) {
		if len(g.edges[n.ID]) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// SourceColumns returns the physical root columns a column derives from.
// A self-loop column with no other parent is its own source.
func (g *Graph) SourceColumns(id string) []SourceColumn {
	var out []SourceColumn
	for _, up := range g.Upstream(id) {
		n := g.nodes[up]
		if n.Kind != NodeColumn || n.Virtual || len(g.parents[up]) > 0 {
			continue
		}
		out = append(out, g.sourceColumn(n))
	}
	if len(out) == 0 && g.selfLoops[id] {
		out = append(out, g.sourceColumn(g.nodes[id]))
	}
	sortSources(out)
	return out
}

func (g *Graph) sourceColumn(n *Node) SourceColumn {
	table := n.Table
	if owner, ok := g.nodes[n.Table]; ok {
		table = owner.Name
	}
	return SourceColumn{Table: table, Column: n.Name}
}

// ColumnLineage returns the source lineage of every terminal column.
func (g *Graph) ColumnLineage() []ColumnLineage {
	var out []ColumnLineage
	for _, n := range g.TerminalColumns() {
		cl := ColumnLineage{
			Column:    n.Name,
			Transform: n.Transform,
			Sources:   g.SourceColumns(n.ID),
		}
		if owner, ok := g.nodes[n.Table]; ok && !owner.Virtual {
			cl.Table = owner.Name
		}
		out = append(out, cl)
	}
	sortLineage(out)
	return out
}

// Result summarises the graph. Column names containing "*", "(" or ")" are
// expressions rather than plain names and are left out. When any statement
// joined tables, column results are left empty.
func (g *Graph) Result() *Result {
	res := Empty()
	res.SourceTables = append(res.SourceTables, g.SourceTables()...)
	res.TargetTables = append(res.TargetTables, g.TargetTables()...)
	res.HasJoin = g.hasJoin
	res.Diagnostics = append(res.Diagnostics, g.diagnostics...)

	if g.hasJoin {
		return res
	}

	names := make(map[string]bool)
	for _, cl := range g.ColumnLineage() {
		if !PlainColumnName(cl.Column) {
			continue
		}
		names[cl.Column] = true
		res.ColumnLineage = append(res.ColumnLineage, cl)
	}
	for name := range names {
		res.Columns = append(res.Columns, name)
	}
	sort.Strings(res.Columns)
	return res
}

// PlainColumnName reports whether name is a column name rather than a
// wildcard or an unaliased expression.
func PlainColumnName(name string) bool {
	return !strings.ContainsAny(name, "*()")
}
