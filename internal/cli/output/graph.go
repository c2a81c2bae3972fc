package output

import (
	"fmt"
	"strings"
)

// GraphOutput is the rendered form of a lineage graph.
type GraphOutput struct {
	Source     string      `json:"source,omitempty" yaml:"source,omitempty"`
	Nodes      []GraphNode `json:"nodes" yaml:"nodes"`
	Edges      []GraphEdge `json:"edges" yaml:"edges"`
	TotalNodes int         `json:"total_nodes" yaml:"total_nodes"`
	TotalEdges int         `json:"total_edges" yaml:"total_edges"`
}

// GraphNode is one table or column of a lineage graph.
type GraphNode struct {
	ID        string   `json:"id" yaml:"id"`
	Kind      string   `json:"kind" yaml:"kind"`
	Name      string   `json:"name" yaml:"name"`
	Table     string   `json:"table,omitempty" yaml:"table,omitempty"`
	Virtual   bool     `json:"virtual,omitempty" yaml:"virtual,omitempty"`
	Read      bool     `json:"read,omitempty" yaml:"read,omitempty"`
	Written   bool     `json:"written,omitempty" yaml:"written,omitempty"`
	Transform string   `json:"transform,omitempty" yaml:"transform,omitempty"`
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
}

// GraphEdge points from a node to one derived from it.
type GraphEdge struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// RenderGraph writes a lineage graph.
func (r *Renderer) RenderGraph(g GraphOutput) error {
	switch r.EffectiveMode() {
	case ModeJSON:
		return r.JSON(g)
	case ModeYAML:
		return r.YAML(g)
	case ModeTable:
		rows := make([][]string, 0, len(g.Nodes))
		for _, n := range g.Nodes {
			rows = append(rows, []string{n.ID, n.Kind, nodeFlags(n), strings.Join(n.DependsOn, ", ")})
		}
		r.Table([]string{"Node", "Kind", "Flags", "Depends on"}, rows)
	case ModeMarkdown:
		r.graphMarkdown(g)
	default:
		r.graphText(g)
	}
	return nil
}

func (r *Renderer) graphText(g GraphOutput) {
	s := r.styles
	r.Header(1, "Lineage Graph")
	for _, n := range g.Nodes {
		if n.Kind != "table" {
			continue
		}
		label := s.Table.Render(n.Name)
		if flags := nodeFlags(n); flags != "" {
			label += " " + s.Muted.Render("["+flags+"]")
		}
		r.Println(label)
		if len(n.DependsOn) > 0 {
			r.Printf("  %s %s\n", s.Muted.Render("depends on:"), strings.Join(n.DependsOn, ", "))
		}
		for _, c := range g.Nodes {
			if c.Kind != "column" || c.Table != n.ID {
				continue
			}
			if len(c.DependsOn) == 0 {
				r.Printf("  %s\n", s.Column.Render(c.Name))
				continue
			}
			r.Printf("  %s %s %s\n", s.Column.Render(c.Name), s.Arrow.Render("<-"), strings.Join(c.DependsOn, ", "))
		}
	}
	r.Println("")
	r.Println(s.Muted.Render(fmt.Sprintf("Total: %d nodes, %d edges", g.TotalNodes, g.TotalEdges)))
}

func (r *Renderer) graphMarkdown(g GraphOutput) {
	r.Println(FormatHeader(1, "Lineage Graph"))
	r.Println("")
	for _, n := range g.Nodes {
		if n.Kind != "table" {
			continue
		}
		title := n.Name
		if flags := nodeFlags(n); flags != "" {
			title += " (" + flags + ")"
		}
		r.Println(FormatHeader(2, title))
		if len(n.DependsOn) > 0 {
			r.Println(FormatKeyValue("Depends on", strings.Join(n.DependsOn, ", ")))
		}
		for _, c := range g.Nodes {
			if c.Kind == "column" && c.Table == n.ID {
				line := "- `" + c.Name + "`"
				if len(c.DependsOn) > 0 {
					line += " <- " + strings.Join(c.DependsOn, ", ")
				}
				r.Println(line)
			}
		}
		r.Println("")
	}
	r.Println(FormatHeader(2, "Summary"))
	r.Println(FormatKeyValue("Total Nodes", fmt.Sprintf("%d", g.TotalNodes)))
	r.Println(FormatKeyValue("Total Edges", fmt.Sprintf("%d", g.TotalEdges)))
}

func nodeFlags(n GraphNode) string {
	var flags []string
	if n.Virtual {
		flags = append(flags, "virtual")
	}
	if n.Read {
		flags = append(flags, "read")
	}
	if n.Written {
		flags = append(flags, "written")
	}
	if n.Transform != "" {
		flags = append(flags, n.Transform)
	}
	return strings.Join(flags, ", ")
}
