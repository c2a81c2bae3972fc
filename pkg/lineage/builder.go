package lineage

import (
	"fmt"
	"strings"

	"github.com/shaweiguo/datahub/pkg/parser"
)

// selectTarget names the anonymous target of a bare SELECT.
const selectTarget = "<select>"

// Builder adds parsed statements to a lineage Graph. Statements are merged
// into one graph; physical tables unify by normalized name while CTEs and
// subqueries stay private to their statement.
type Builder struct {
	graph *Graph

	stmt     int // 1-based index of the statement being built
	virtuals int // virtual tables created in the current statement
	reads    []string
}

// NewBuilder creates a builder over an empty graph.
func NewBuilder() *Builder {
	return &Builder{graph: NewGraph()}
}

// Build builds a graph from stmts. Nil statements are skipped.
func Build(stmts []parser.Statement) *Graph {
	b := NewBuilder()
	for _, stmt := range stmts {
		b.Add(stmt)
	}
	return b.Graph()
}

// Graph returns the graph built so far.
func (b *Builder) Graph() *Graph {
	return b.graph
}

// Skip records a statement that could not be parsed so later statements
// keep their input position in diagnostics.
func (b *Builder) Skip(err error) {
	b.stmt++
	b.graph.AddDiagnostic(Diagnostic{
		Statement: b.stmt,
		Kind:      DiagSkippedStatement,
		Message:   err.Error(),
	})
}

// Add builds the lineage of one statement into the graph.
func (b *Builder) Add(stmt parser.Statement) {
	b.stmt++
	b.virtuals = 0
	b.reads = nil

	switch s := stmt.(type) {
	case *parser.SelectStmt:
		target := b.virtualTable(selectTarget)
		rel := b.buildQuery(nil, s)
		b.writeColumns(target, rel, nil)

	case *parser.InsertStmt:
		target := b.physicalTable(s.Table)
		target.Written = true
		rel := &relation{}
		if s.Select != nil {
			rel = b.buildQuery(nil, s.Select)
		} else {
			sc := newScope(nil)
			for _, row := range s.Values {
				b.scanExprs(sc, row...)
			}
		}
		b.writeColumns(target, rel, s.Columns)
		b.linkTables(target)

	case *parser.CreateStmt:
		target := b.physicalTable(s.Table)
		target.Written = true
		if s.Select != nil {
			rel := b.buildQuery(nil, s.Select)
			b.writeColumns(target, rel, s.Columns)
		}
		b.linkTables(target)
	}

	b.graph.pruneColumns()
}

// buildQuery builds a query with its WITH clause in a new scope.
func (b *Builder) buildQuery(parent *scope, stmt *parser.SelectStmt) *relation {
	sc := newScope(parent)
	if stmt == nil {
		return &relation{}
	}
	if stmt.With != nil {
		b.buildWith(sc, stmt.With)
	}
	return b.buildBody(sc, stmt.Body)
}

// buildWith builds CTEs in order; each CTE sees the ones before it.
func (b *Builder) buildWith(sc *scope, with *parser.WithClause) {
	for _, cte := range with.CTEs {
		table := b.virtualTable(cte.Name)
		entry := &scopeEntry{kind: entryCTE, name: cte.Name, tableID: table.ID, rel: &relation{}}
		if with.Recursive {
			sc.addCTE(entry)
		}

		rel := b.buildQuery(sc, cte.Select)
		rel.rename(cte.Columns)
		b.materialize(table, rel)

		entry.rel = rel
		sc.addCTE(entry)
	}
}

// buildBody builds a select body and merges set operation branches.
func (b *Builder) buildBody(sc *scope, body *parser.SelectBody) *relation {
	if body == nil {
		return &relation{}
	}

	var rel *relation
	if body.Nested != nil {
		rel = b.buildQuery(sc, body.Nested)
	} else {
		rel = b.buildCore(sc, body.Left)
	}

	if body.Right != nil {
		rel.union(b.buildBody(sc, body.Right))
	}
	return rel
}

// buildCore builds one SELECT core: its FROM entries first, then its outputs.
func (b *Builder) buildCore(parent *scope, core *parser.SelectCore) *relation {
	rel := &relation{}
	if core == nil {
		return rel
	}

	sc := newScope(parent)
	if core.From != nil {
		b.buildFrom(sc, core.From)
	}

	b.scanExprs(sc, core.Where, core.Having, core.Qualify, core.Limit, core.Offset)
	b.scanExprs(sc, core.GroupBy...)
	for _, item := range core.OrderBy {
		b.scanExprs(sc, item.Expr)
	}

	for _, item := range core.Columns {
		rel.columns = append(rel.columns, b.buildItem(sc, item))
	}
	return rel
}

// buildFrom registers the FROM sources of a core, then scans join conditions.
func (b *Builder) buildFrom(sc *scope, from *parser.FromClause) {
	b.addTableRef(sc, from.Source)
	for _, join := range from.Joins {
		b.graph.hasJoin = true
		b.addTableRef(sc, join.Right)
	}
	for _, join := range from.Joins {
		b.scanExprs(sc, join.Condition)
	}
}

// addTableRef registers one FROM source in sc.
func (b *Builder) addTableRef(sc *scope, ref parser.TableRef) {
	switch t := ref.(type) {
	case *parser.TableName:
		if t.Name == "" {
			return
		}
		if t.Schema == "" && t.Catalog == "" {
			if cte, ok := sc.lookupCTE(t.Name); ok {
				entry := *cte
				entry.alias = t.Alias
				sc.add(&entry)
				return
			}
		}
		table := b.physicalTable(t)
		table.Read = true
		if !contains(b.reads, table.ID) {
			b.reads = append(b.reads, table.ID)
		}
		sc.add(&scopeEntry{
			kind:      entryTable,
			name:      t.Name,
			qualified: strings.ToLower(t.QualifiedName()),
			alias:     t.Alias,
			tableID:   table.ID,
		})

	case *parser.DerivedTable:
		// Derived tables see CTEs and outer queries but not their FROM siblings.
		rel := b.buildQuery(sc.parent, t.Select)
		rel.rename(t.Columns)
		b.addVirtual(sc, t.Alias, rel)

	case *parser.LateralTable:
		b.addVirtual(sc, t.Alias, b.buildQuery(sc, t.Select))

	case *parser.TableFunc:
		if t.Call != nil {
			b.scanExprs(sc, t.Call.Args...)
		}
		b.addVirtual(sc, t.Alias, &relation{})

	case *parser.ParenJoin:
		if t.From != nil {
			b.buildFrom(sc, t.From)
		}
	}
}

// addVirtual materializes rel as a virtual table and registers it in sc.
func (b *Builder) addVirtual(sc *scope, alias string, rel *relation) {
	name := alias
	if name == "" {
		name = fmt.Sprintf("subquery_%d", b.virtuals+1)
	}
	table := b.virtualTable(name)
	b.materialize(table, rel)
	sc.add(&scopeEntry{kind: entryDerived, name: name, alias: alias, tableID: table.ID, rel: rel})
}

// buildItem computes one select-list output.
func (b *Builder) buildItem(sc *scope, item parser.SelectItem) *outputColumn {
	switch {
	case item.Star:
		col := &outputColumn{name: starColumn, transform: TransformStar}
		cur := sc
		for cur != nil && len(cur.entries) == 0 {
			cur = cur.parent
		}
		if cur != nil {
			for _, e := range cur.entries {
				col.addSources(b.starSources(e)...)
			}
		}
		return col

	case item.TableStar != "":
		col := &outputColumn{name: starColumn, transform: TransformStar}
		if e, ok := sc.lookup(item.TableStar); ok {
			col.addSources(b.starSources(e)...)
		} else {
			b.diagnose(DiagUnknownQualifier, "unknown table %q in wildcard", item.TableStar)
		}
		return col
	}

	col := &outputColumn{name: item.Alias, transform: classifyExpr(item.Expr)}
	if col.name == "" {
		if ref, ok := item.Expr.(*parser.ColumnRef); ok {
			col.name = ref.Column
		} else {
			col.name = item.Raw
		}
	}
	col.addSources(b.exprSources(sc, item.Expr)...)
	return col
}

// starSources returns the column nodes a wildcard over e reads.
func (b *Builder) starSources(e *scopeEntry) []string {
	if !e.virtual() {
		return []string{b.columnNode(e.tableID, starColumn).ID}
	}
	if e.rel == nil {
		return nil
	}
	return nodeIDs(e.rel.columns...)
}

// exprSources collects the column nodes an expression reads. Scalar
// subqueries contribute the sources of their outputs.
func (b *Builder) exprSources(sc *scope, expr parser.Expr) []string {
	var ids []string
	parser.Inspect(expr, func(e parser.Expr) bool {
		switch x := e.(type) {
		case *parser.ColumnRef:
			ids = append(ids, b.resolveColumn(sc, x)...)
		case *parser.FuncCall:
			return classifyFunction(x.Name) != classGenerator
		case *parser.SubqueryExpr:
			for _, c := range b.buildQuery(sc, x.Select).columns {
				ids = append(ids, c.sources...)
			}
			return false
		case *parser.ExistsExpr:
			b.buildQuery(sc, x.Select)
			return false
		case *parser.InExpr:
			if x.Query != nil {
				b.buildQuery(sc, x.Query)
			}
		}
		return true
	})
	return ids
}

// scanExprs builds the subqueries inside exprs so the tables they read are
// recorded. Their columns feed no output.
func (b *Builder) scanExprs(sc *scope, exprs ...parser.Expr) {
	for _, expr := range exprs {
		parser.Inspect(expr, func(e parser.Expr) bool {
			switch x := e.(type) {
			case *parser.SubqueryExpr:
				b.buildQuery(sc, x.Select)
				return false
			case *parser.ExistsExpr:
				b.buildQuery(sc, x.Select)
				return false
			case *parser.InExpr:
				if x.Query != nil {
					b.buildQuery(sc, x.Query)
				}
			}
			return true
		})
	}
}

// resolveColumn maps a column reference to the node IDs it reads.
func (b *Builder) resolveColumn(sc *scope, ref *parser.ColumnRef) []string {
	var entry *scopeEntry
	if ref.Table != "" {
		var ok bool
		if ref.Schema != "" {
			entry, ok = sc.lookup(ref.Schema + "." + ref.Table)
		}
		if !ok {
			entry, ok = sc.lookup(ref.Table)
		}
		if !ok {
			b.diagnose(DiagUnknownQualifier, "unknown table %q for column %q", ref.Table, ref.Column)
			return nil
		}
	} else {
		var ambiguous bool
		entry, ambiguous = sc.resolveUnqualified(ref.Column)
		if ambiguous {
			b.diagnose(DiagAmbiguousColumn, "ambiguous column %q", ref.Column)
			return nil
		}
		if entry == nil {
			return nil
		}
	}

	if !entry.virtual() {
		return []string{b.columnNode(entry.tableID, ref.Column).ID}
	}
	if entry.rel == nil {
		return nil
	}
	if col := entry.rel.lookup(ref.Column); col != nil {
		return nodeIDs(col)
	}
	return nodeIDs(entry.rel.stars()...)
}

// materialize adds the fed outputs of rel as columns of a virtual table.
func (b *Builder) materialize(table *Node, rel *relation) {
	for _, col := range rel.columns {
		if len(col.sources) == 0 {
			continue
		}
		node := b.column(table.ID, col.name, col.transform)
		col.id = node.ID
		b.link(col.sources, node.ID)
	}
}

// writeColumns writes the fed outputs of rel to a target table, mapping
// them positionally onto an explicit column list when one is given.
func (b *Builder) writeColumns(target *Node, rel *relation, names []string) {
	for i, col := range rel.columns {
		if len(col.sources) == 0 {
			continue
		}
		name := col.name
		if i < len(names) && col.name != starColumn {
			name = names[i]
		}
		node := b.column(target.ID, name, col.transform)
		node.Target = true
		b.link(col.sources, node.ID)
	}
}

// linkTables adds a table edge from every physical table the statement
// read to target.
func (b *Builder) linkTables(target *Node) {
	for _, id := range b.reads {
		if id == target.ID {
			b.graph.MarkSelfLoop(id)
			continue
		}
		_ = b.graph.AddEdge(id, target.ID)
	}
}

// link adds column edges from sources to child, recording self-loops.
func (b *Builder) link(sources []string, child string) {
	for _, src := range sources {
		if src == child {
			b.graph.MarkSelfLoop(child)
			continue
		}
		_ = b.graph.AddEdge(src, child)
	}
}

// physicalTable returns the node of a named table, creating it on first use.
func (b *Builder) physicalTable(t *parser.TableName) *Node {
	id := TableID(t.Catalog, t.Schema, t.Name)
	return b.graph.AddNode(&Node{ID: id, Kind: NodeTable, Name: id})
}

// virtualTable creates a table node private to the current statement.
func (b *Builder) virtualTable(name string) *Node {
	b.virtuals++
	id := fmt.Sprintf("%s#%d.%d", strings.ToLower(name), b.stmt, b.virtuals)
	return b.graph.AddNode(&Node{ID: id, Kind: NodeTable, Name: name, Virtual: true})
}

// columnNode returns a column node of a table, creating it on first use.
func (b *Builder) columnNode(tableID, name string) *Node {
	return b.graph.AddNode(&Node{
		ID:    columnID(tableID, name),
		Kind:  NodeColumn,
		Name:  name,
		Table: tableID,
	})
}

// column returns an output column of a table, creating it on first use.
func (b *Builder) column(tableID, name string, transform Transform) *Node {
	node := b.columnNode(tableID, name)
	if node.Transform == "" {
		node.Transform = transform
	}
	if owner, ok := b.graph.GetNode(tableID); ok {
		node.Virtual = owner.Virtual
	}
	return node
}

func (b *Builder) diagnose(kind DiagnosticKind, format string, args ...any) {
	b.graph.AddDiagnostic(Diagnostic{
		Statement: b.stmt,
		Kind:      kind,
		Message:   fmt.Sprintf(format, args...),
	})
}

// TableID returns the normalized identity of a physical table.
func TableID(catalog, schema, name string) string {
	parts := make([]string, 0, 3)
	if catalog != "" {
		parts = append(parts, catalog)
	}
	if schema != "" {
		parts = append(parts, schema)
	} else if catalog == "" {
		parts = append(parts, DefaultSchema)
	}
	parts = append(parts, name)
	return strings.ToLower(strings.Join(parts, "."))
}

func columnID(tableID, name string) string {
	return tableID + "." + strings.ToLower(name)
}
