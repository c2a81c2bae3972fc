// Package lineage builds table and column lineage graphs from parsed SQL.
//
// A Builder walks parser statements and records "derives from" edges in a
// Graph: table edges run from every physical table a statement reads to the
// table it writes, column edges run from each resolved source column to the
// output column it feeds. CTEs and subqueries become virtual tables whose
// columns sit between the physical sources and the final outputs.
//
// The Graph answers the lineage queries (source tables, target tables,
// terminal columns, per-column source lineage) and summarises them in a
// Result.
package lineage

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultSchema qualifies table names written without a schema.
const DefaultSchema = "<default>"

// NodeKind distinguishes table nodes from column nodes.
type NodeKind int

const (
	// NodeTable is a physical or virtual table.
	NodeTable NodeKind = iota
	// NodeColumn is a column owned by a table node.
	NodeColumn
)

func (k NodeKind) String() string {
	if k == NodeColumn {
		return "column"
	}
	return "table"
}

// Node is a table or column in the lineage graph.
type Node struct {
	// ID is the normalized identity. Physical tables use their lower-cased
	// qualified name; columns use owner ID + "." + lower-cased column name.
	ID   string
	Kind NodeKind
	// Name is the display name: the qualified table name, or the column
	// name as first written.
	Name string
	// Table is the owning table ID of a column node.
	Table string
	// Virtual marks CTEs, subqueries and anonymous SELECT targets.
	Virtual bool

	// Read and Written record how statements used a table.
	Read    bool
	Written bool
	// Target marks a column written by a statement.
	Target    bool
	Transform Transform
}

// Graph is a directed graph of table and column nodes. An edge A→B means
// B derives from A.
type Graph struct {
	nodes     map[string]*Node
	edges     map[string][]string // parent -> children
	parents   map[string][]string // child -> parents
	selfLoops map[string]bool

	hasJoin     bool
	diagnostics []Diagnostic
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:     make(map[string]*Node),
		edges:     make(map[string][]string),
		parents:   make(map[string][]string),
		selfLoops: make(map[string]bool),
	}
}

// AddNode adds n to the graph and returns the stored node. When a node with
// the same ID exists, the existing node is returned unchanged.
func (g *Graph) AddNode(n *Node) *Node {
	if existing, ok := g.nodes[n.ID]; ok {
		return existing
	}
	g.nodes[n.ID] = n
	g.edges[n.ID] = []string{}
	g.parents[n.ID] = []string{}
	return n
}

// AddEdge adds a directed edge from parent to child (child derives from parent).
func (g *Graph) AddEdge(parentID, childID string) error {
	parent, ok := g.nodes[parentID]
	if !ok {
		return fmt.Errorf("parent node %q does not exist", parentID)
	}
	child, ok := g.nodes[childID]
	if !ok {
		return fmt.Errorf("child node %q does not exist", childID)
	}
	if parent.Kind != child.Kind {
		return fmt.Errorf("edge %q -> %q mixes %s and %s nodes", parentID, childID, parent.Kind, child.Kind)
	}
	if parentID == childID {
		return fmt.Errorf("self-loop detected: %s", parentID)
	}

	if !contains(g.edges[parentID], childID) {
		g.edges[parentID] = append(g.edges[parentID], childID)
	}
	if !contains(g.parents[childID], parentID) {
		g.parents[childID] = append(g.parents[childID], parentID)
	}
	return nil
}

// MarkSelfLoop records that a node is both read and written by one statement.
func (g *Graph) MarkSelfLoop(id string) {
	if _, ok := g.nodes[id]; ok {
		g.selfLoops[id] = true
	}
}

// IsSelfLoop reports whether id was marked as a self-loop.
func (g *Graph) IsSelfLoop(id string) bool {
	return g.selfLoops[id]
}

// RemoveNode deletes a node and every edge touching it.
func (g *Graph) RemoveNode(id string) {
	if _, ok := g.nodes[id]; !ok {
		return
	}
	for _, child := range g.edges[id] {
		g.parents[child] = remove(g.parents[child], id)
	}
	for _, parent := range g.parents[id] {
		g.edges[parent] = remove(g.edges[parent], id)
	}
	delete(g.nodes, id)
	delete(g.edges, id)
	delete(g.parents, id)
	delete(g.selfLoops, id)
}

// GetNode returns a node by ID.
func (g *Graph) GetNode(id string) (*Node, bool) {
	node, exists := g.nodes[id]
	return node, exists
}

// GetParents returns the nodes id derives from.
func (g *Graph) GetParents(id string) []string {
	return g.parents[id]
}

// GetChildren returns the nodes derived from id.
func (g *Graph) GetChildren(id string) []string {
	return g.edges[id]
}

// Nodes returns the nodes of the given kind sorted by ID.
func (g *Graph) Nodes(kind NodeKind) []*Node {
	var nodes []*Node
	for _, node := range g.nodes {
		if node.Kind == kind {
			nodes = append(nodes, node)
		}
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].ID < nodes[j].ID
	})
	return nodes
}

// Columns returns the column nodes owned by a table, sorted by ID.
func (g *Graph) Columns(tableID string) []*Node {
	var cols []*Node
	for _, node := range g.nodes {
		if node.Kind == NodeColumn && node.Table == tableID {
			cols = append(cols, node)
		}
	}
	sort.Slice(cols, func(i, j int) bool {
		return cols[i].ID < cols[j].ID
	})
	return cols
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

// HasJoin reports whether any statement contained a JOIN.
func (g *Graph) HasJoin() bool {
	return g.hasJoin
}

// Diagnostics returns the recorded diagnostics in insertion order.
func (g *Graph) Diagnostics() []Diagnostic {
	return g.diagnostics
}

// AddDiagnostic records a diagnostic.
func (g *Graph) AddDiagnostic(d Diagnostic) {
	g.diagnostics = append(g.diagnostics, d)
}

// HasCycle returns true if the graph contains a cycle, along with the cycle path.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make(map[string]string)

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		recStack[id] = true

		for _, childID := range g.edges[id] {
			if !visited[childID] {
				path[childID] = id
				if dfs(childID) {
					return true
				}
			} else if recStack[childID] {
				cyclePath = []string{childID}
				for curr := id; curr != childID; curr = path[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{childID}, cyclePath...)
				return true
			}
		}

		recStack[id] = false
		return false
	}

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if !visited[id] && dfs(id) {
			return true, cyclePath
		}
	}
	return false, nil
}

// Upstream returns every node id transitively derives from, sorted.
func (g *Graph) Upstream(id string) []string {
	upstream := make(map[string]bool)

	var mark func(nodeID string)
	mark = func(nodeID string) {
		for _, parentID := range g.parents[nodeID] {
			if !upstream[parentID] {
				upstream[parentID] = true
				mark(parentID)
			}
		}
	}
	mark(id)

	result := make([]string, 0, len(upstream))
	for nodeID := range upstream {
		result = append(result, nodeID)
	}
	sort.Strings(result)
	return result
}

// pruneColumns removes column nodes that are neither written nor consumed,
// repeating until every remaining column has a use.
func (g *Graph) pruneColumns() {
	for {
		var dangling []string
		for id, node := range g.nodes {
			if node.Kind == NodeColumn && !node.Target && !g.selfLoops[id] && len(g.edges[id]) == 0 {
				dangling = append(dangling, id)
			}
		}
		if len(dangling) == 0 {
			return
		}
		for _, id := range dangling {
			g.RemoveNode(id)
		}
	}
}

// StripDefault removes the default schema qualifier from a table name.
func StripDefault(name string) string {
	return strings.TrimPrefix(name, DefaultSchema+".")
}

func contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}

func remove(slice []string, str string) []string {
	out := slice[:0]
	for _, s := range slice {
		if s != str {
			out = append(out, s)
		}
	}
	return out
}
