package commands

import (
	"github.com/spf13/cobra"

	"github.com/shaweiguo/datahub/internal/cli/output"
	"github.com/shaweiguo/datahub/pkg/lineage"
	"github.com/shaweiguo/datahub/pkg/sqlparser"
)

// GraphOptions holds options for the graph command.
type GraphOptions struct {
	InputOptions
	TablesOnly bool
}

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	opts := &GraphOptions{}
	cmd := &cobra.Command{
		Use:   "graph [file|-]",
		Short: "Show the lineage graph of a query",
		Long: `Display the lineage graph built for a query: every physical and virtual
table, the columns each one holds, and the nodes each derives from.

The graph is always built with the graph strategy, whatever --strategy says.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  # Show the graph of a file
  sqllineage graph query.sql

  # Tables only, as JSON
  sqllineage graph query.sql --tables-only -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, args, opts)
		},
	}
	opts.addFlags(cmd)
	cmd.Flags().BoolVar(&opts.TablesOnly, "tables-only", false, "Leave column nodes out")
	return cmd
}

func runGraph(cmd *cobra.Command, args []string, opts *GraphOptions) error {
	source, sql, err := readInput(cmd, args, &opts.InputOptions)
	if err != nil {
		return err
	}

	cc, err := NewCommandContextWithoutCache(cmd)
	if err != nil {
		return err
	}

	p, err := sqlparser.NewGraphParser(sql, cc.parseOpts...)
	if err != nil {
		return err
	}
	out := buildGraphOutput(p, opts.TablesOnly)
	out.Source = source
	return cc.Renderer.RenderGraph(out)
}

// buildGraphOutput flattens a parsed graph into display names.
func buildGraphOutput(p *sqlparser.GraphParser, tablesOnly bool) output.GraphOutput {
	g := p.Graph()
	out := output.GraphOutput{Nodes: []output.GraphNode{}, Edges: []output.GraphEdge{}}

	kinds := []lineage.NodeKind{lineage.NodeTable}
	if !tablesOnly {
		kinds = append(kinds, lineage.NodeColumn)
	}
	for _, kind := range kinds {
		for _, n := range g.Nodes(kind) {
			node := output.GraphNode{
				ID:        p.DisplayName(n.ID),
				Kind:      n.Kind.String(),
				Name:      p.DisplayName(n.Name),
				Virtual:   n.Virtual,
				Read:      n.Read,
				Written:   n.Written,
				Transform: string(n.Transform),
			}
			if kind == lineage.NodeColumn {
				node.Table = p.DisplayName(n.Table)
			}
			for _, parent := range g.GetParents(n.ID) {
				node.DependsOn = append(node.DependsOn, p.DisplayName(parent))
				out.Edges = append(out.Edges, output.GraphEdge{
					From: p.DisplayName(parent),
					To:   node.ID,
				})
			}
			out.Nodes = append(out.Nodes, node)
		}
	}
	out.TotalNodes = len(out.Nodes)
	out.TotalEdges = len(out.Edges)
	return out
}
