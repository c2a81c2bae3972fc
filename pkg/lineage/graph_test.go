package lineage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableNode(id string) *Node {
	return &Node{ID: id, Kind: NodeTable, Name: id}
}

func columnNodeOf(table, name string) *Node {
	return &Node{ID: table + "." + name, Kind: NodeColumn, Name: name, Table: table}
}

func TestGraph_AddNodeAndEdge(t *testing.T) {
	g := NewGraph()
	a := g.AddNode(tableNode("a"))
	g.AddNode(tableNode("b"))

	assert.Same(t, a, g.AddNode(tableNode("a")), "existing node is returned")
	assert.Equal(t, 2, g.NodeCount())

	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("a", "b"), "duplicate edges are ignored")
	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, []string{"b"}, g.GetChildren("a"))
	assert.Equal(t, []string{"a"}, g.GetParents("b"))
}

func TestGraph_AddEdgeErrors(t *testing.T) {
	g := NewGraph()
	g.AddNode(tableNode("t"))
	g.AddNode(columnNodeOf("t", "c"))

	assert.Error(t, g.AddEdge("t", "missing"))
	assert.Error(t, g.AddEdge("missing", "t"))
	assert.Error(t, g.AddEdge("t", "t"), "self-loop")
	assert.Error(t, g.AddEdge("t", "t.c"), "table to column")
	assert.Zero(t, g.EdgeCount())
}

func TestGraph_SelfLoop(t *testing.T) {
	g := NewGraph()
	g.AddNode(tableNode("t"))

	g.MarkSelfLoop("t")
	g.MarkSelfLoop("missing")

	assert.True(t, g.IsSelfLoop("t"))
	assert.False(t, g.IsSelfLoop("missing"))
}

func TestGraph_RemoveNode(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"a", "b", "c"} {
		g.AddNode(tableNode(id))
	}
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "c"))

	g.RemoveNode("b")
	g.RemoveNode("missing")

	assert.Equal(t, 2, g.NodeCount())
	assert.Zero(t, g.EdgeCount())
	assert.Empty(t, g.GetChildren("a"))
	assert.Empty(t, g.GetParents("c"))
}

func TestGraph_HasCycle(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"a", "b", "c"} {
		g.AddNode(tableNode(id))
	}
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "c"))

	hasCycle, _ := g.HasCycle()
	assert.False(t, hasCycle)

	require.NoError(t, g.AddEdge("c", "a"))
	hasCycle, path := g.HasCycle()
	assert.True(t, hasCycle)
	assert.NotEmpty(t, path)
}

func TestGraph_Upstream(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"a", "b", "c", "d"} {
		g.AddNode(tableNode(id))
	}
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "c"))
	require.NoError(t, g.AddEdge("d", "c"))

	assert.Equal(t, []string{"a", "b", "d"}, g.Upstream("c"))
	assert.Empty(t, g.Upstream("a"))
}

func TestGraph_PruneColumns(t *testing.T) {
	g := NewGraph()
	g.AddNode(tableNode("t"))
	g.AddNode(tableNode("v"))
	src := g.AddNode(columnNodeOf("t", "a"))
	mid := g.AddNode(columnNodeOf("v", "a"))
	kept := g.AddNode(columnNodeOf("t", "b"))
	kept.Target = true
	require.NoError(t, g.AddEdge(src.ID, mid.ID))

	g.pruneColumns()

	_, ok := g.GetNode(mid.ID)
	assert.False(t, ok, "unconsumed column is pruned")
	_, ok = g.GetNode(src.ID)
	assert.False(t, ok, "pruning cascades to its sources")
	_, ok = g.GetNode(kept.ID)
	assert.True(t, ok, "written columns stay")
	assert.Len(t, g.Nodes(NodeTable), 2)
}

func TestStripDefault(t *testing.T) {
	assert.Equal(t, "t1", StripDefault("<default>.t1"))
	assert.Equal(t, "db.t1", StripDefault("db.t1"))
}

func TestTableID(t *testing.T) {
	assert.Equal(t, "<default>.t1", TableID("", "", "T1"))
	assert.Equal(t, "db.t1", TableID("", "DB", "t1"))
	assert.Equal(t, "cat.db.t1", TableID("cat", "db", "t1"))
}
