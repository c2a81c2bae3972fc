package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaweiguo/datahub/internal/cli/output"
	"github.com/shaweiguo/datahub/internal/cli/testutil"
	"github.com/shaweiguo/datahub/pkg/sqlparser"
)

func decodeGraph(t *testing.T, res testutil.Result) output.GraphOutput {
	t.Helper()
	require.NoError(t, res.Err)
	var g output.GraphOutput
	require.NoError(t, json.Unmarshal([]byte(res.Out), &g))
	return g
}

func findNode(g output.GraphOutput, id string) (output.GraphNode, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return output.GraphNode{}, false
}

func TestGraphCommand_JSON(t *testing.T) {
	g := decodeGraph(t, run(t, testConfig(t, "json"), NewGraphCommand(), "",
		"--sql", "INSERT INTO db.tgt SELECT a FROM db.src"))

	src, ok := findNode(g, "db.src")
	require.True(t, ok)
	assert.Equal(t, "table", src.Kind)
	assert.True(t, src.Read)
	assert.False(t, src.Written)

	tgt, ok := findNode(g, "db.tgt")
	require.True(t, ok)
	assert.True(t, tgt.Written)
	assert.Equal(t, []string{"db.src"}, tgt.DependsOn)

	col, ok := findNode(g, "db.tgt.a")
	require.True(t, ok)
	assert.Equal(t, "column", col.Kind)
	assert.Equal(t, "db.tgt", col.Table)
	assert.Equal(t, []string{"db.src.a"}, col.DependsOn)

	assert.Contains(t, g.Edges, output.GraphEdge{From: "db.src", To: "db.tgt"})
	assert.Contains(t, g.Edges, output.GraphEdge{From: "db.src.a", To: "db.tgt.a"})
	assert.Equal(t, len(g.Nodes), g.TotalNodes)
	assert.Equal(t, len(g.Edges), g.TotalEdges)
}

func TestGraphCommand_TablesOnly(t *testing.T) {
	g := decodeGraph(t, run(t, testConfig(t, "json"), NewGraphCommand(), "",
		"--tables-only", "--sql", "INSERT INTO db.tgt SELECT a FROM db.src"))

	for _, n := range g.Nodes {
		assert.Equal(t, "table", n.Kind)
	}
	assert.Equal(t, []output.GraphEdge{{From: "db.src", To: "db.tgt"}}, g.Edges)
}

func TestGraphCommand_DefaultSchemaHidden(t *testing.T) {
	g := decodeGraph(t, run(t, testConfig(t, "json"), NewGraphCommand(), "",
		"--sql", "WITH c AS (SELECT a FROM t1) SELECT a FROM c"))

	t1, ok := findNode(g, "t1")
	require.True(t, ok)
	assert.False(t, t1.Virtual)

	for _, n := range g.Nodes {
		assert.NotContains(t, n.ID, "<default>")
	}
}

func TestGraphCommand_Markdown(t *testing.T) {
	res := run(t, testConfig(t, "markdown"), NewGraphCommand(), "SELECT a FROM db.t1")
	require.NoError(t, res.Err)
	assert.Contains(t, res.Out, "# Lineage Graph")
	assert.Contains(t, res.Out, "## db.t1 (read)")
	assert.Contains(t, res.Out, "**Total Nodes**")
	testutil.AssertValidMarkdown(t, res.Out)
	testutil.AssertNoANSI(t, res.Out)
}

func TestGraphCommand_Unparseable(t *testing.T) {
	res := run(t, testConfig(t, "json"), NewGraphCommand(), "", "--sql", "this is not sql")
	assert.Error(t, res.Err)
}

func TestRenderGraph_Text(t *testing.T) {
	p, err := sqlparser.NewGraphParser("INSERT INTO db.tgt SELECT a AS b FROM db.src")
	require.NoError(t, err)
	g := buildGraphOutput(p, false)

	tr := testutil.NewTestRenderer(output.ModeText, true)
	require.NoError(t, tr.RenderGraph(g))

	got := tr.Output()
	assert.Contains(t, got, "Lineage Graph")
	assert.Contains(t, got, "db.tgt")
	assert.Contains(t, got, "db.src.a")
	assert.Contains(t, got, "Total:")
	assert.Empty(t, tr.ErrorOutput())
}
