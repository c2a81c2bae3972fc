package output

import (
	"fmt"
	"strings"

	"github.com/shaweiguo/datahub/pkg/lineage"
)

// ExtractOutput is the rendered form of one extraction.
type ExtractOutput struct {
	Source   string `json:"source,omitempty" yaml:"source,omitempty"`
	Strategy string `json:"strategy" yaml:"strategy"`
	Cached   bool   `json:"cached,omitempty" yaml:"cached,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`

	lineage.Result `yaml:",inline"`
}

// BatchSummary counts the outcome of a batch run.
type BatchSummary struct {
	Files  int `json:"files" yaml:"files"`
	Failed int `json:"failed" yaml:"failed"`
	Cached int `json:"cached" yaml:"cached"`
}

// BatchOutput is the rendered form of a batch run.
type BatchOutput struct {
	Records []ExtractOutput `json:"records" yaml:"records"`
	Summary BatchSummary    `json:"summary" yaml:"summary"`
}

// RenderNames writes a flat list of table or column names.
func (r *Renderer) RenderNames(title string, names []string) error {
	if names == nil {
		names = []string{}
	}
	switch r.EffectiveMode() {
	case ModeJSON:
		return r.JSON(names)
	case ModeYAML:
		return r.YAML(names)
	case ModeMarkdown:
		r.Header(2, title)
		r.Println(FormatList(names))
	case ModeTable:
		rows := make([][]string, len(names))
		for i, n := range names {
			rows[i] = []string{n}
		}
		r.Table([]string{title}, rows)
	default:
		for _, n := range names {
			r.Println(n)
		}
	}
	return nil
}

// RenderExtract writes one extraction. Column lineage is dropped unless
// detail is set.
func (r *Renderer) RenderExtract(out ExtractOutput, detail bool) error {
	if !detail {
		out.ColumnLineage = nil
	}
	switch r.EffectiveMode() {
	case ModeJSON:
		return r.JSON(out)
	case ModeYAML:
		return r.YAML(out)
	case ModeMarkdown:
		r.extractMarkdown(out, detail)
	case ModeTable:
		r.extractTable(out, detail)
	default:
		r.extractText(out, detail)
	}
	return nil
}

// RenderBatch writes the records of a batch run and their summary.
func (r *Renderer) RenderBatch(out BatchOutput, detail bool) error {
	if !detail {
		for i := range out.Records {
			out.Records[i].ColumnLineage = nil
		}
	}
	switch r.EffectiveMode() {
	case ModeJSON:
		return r.JSON(out)
	case ModeYAML:
		return r.YAML(out)
	case ModeTable:
		rows := make([][]string, 0, len(out.Records))
		for _, rec := range out.Records {
			status := "ok"
			if rec.Error != "" {
				status = rec.Error
			}
			rows = append(rows, []string{
				rec.Source,
				strings.Join(rec.SourceTables, ", "),
				strings.Join(rec.Columns, ", "),
				status,
			})
		}
		r.Table([]string{"File", "Tables", "Columns", "Status"}, rows)
	default:
		for _, rec := range out.Records {
			if rec.Error != "" {
				r.Header(2, rec.Source)
				r.Error(rec.Error)
				continue
			}
			if err := r.RenderExtract(rec, detail); err != nil {
				return err
			}
			r.Println("")
		}
	}
	if mode := r.EffectiveMode(); mode != ModeJSON && mode != ModeYAML {
		r.Println(r.Muted(fmt.Sprintf("%d files, %d failed, %d cached",
			out.Summary.Files, out.Summary.Failed, out.Summary.Cached)))
	}
	return nil
}

func (r *Renderer) extractText(out ExtractOutput, detail bool) {
	s := r.styles
	if out.Source != "" {
		r.Println(s.Header1.Render(out.Source))
	}
	r.Println(s.Bold.Render("Source tables"))
	for _, t := range out.SourceTables {
		r.Println("  " + s.Table.Render(t))
	}
	if len(out.TargetTables) > 0 {
		r.Println(s.Bold.Render("Target tables"))
		for _, t := range out.TargetTables {
			r.Println("  " + s.Table.Render(t))
		}
	}
	r.Println(s.Bold.Render("Columns"))
	if out.HasJoin {
		r.Println("  " + s.Muted.Render("(not reported for queries with joins)"))
	}
	for _, c := range out.Columns {
		r.Println("  " + s.Column.Render(c))
	}
	if detail {
		r.Println(s.Bold.Render("Column lineage"))
		for _, cl := range out.ColumnLineage {
			r.Printf("  %s %s %s\n", s.Column.Render(qualified(cl)), s.Arrow.Render("<-"), sourceList(cl.Sources))
		}
	}
	for _, d := range out.Diagnostics {
		r.Warning(fmt.Sprintf("statement %d: %s: %s", d.Statement, d.Kind, d.Message))
	}
}

func (r *Renderer) extractMarkdown(out ExtractOutput, detail bool) {
	title := "Lineage"
	if out.Source != "" {
		title = out.Source
	}
	r.Println(FormatHeader(1, title))
	r.Println("")
	r.Println(FormatKeyValue("Strategy", out.Strategy))
	r.Println(FormatKeyValue("Has join", fmt.Sprintf("%t", out.HasJoin)))
	r.Println("")
	r.Println(FormatHeader(2, "Source tables"))
	r.Println(FormatList(out.SourceTables))
	r.Println("")
	r.Println(FormatHeader(2, "Target tables"))
	r.Println(FormatList(out.TargetTables))
	r.Println("")
	r.Println(FormatHeader(2, "Columns"))
	r.Println(FormatList(out.Columns))
	if detail {
		r.Println("")
		r.Println(FormatHeader(2, "Column lineage"))
		r.extractTable(out, true)
	}
	if len(out.Diagnostics) > 0 {
		r.Println("")
		r.Println(FormatHeader(2, "Diagnostics"))
		for _, d := range out.Diagnostics {
			r.Println(fmt.Sprintf("- statement %d, %s: %s", d.Statement, d.Kind, d.Message))
		}
	}
}

func (r *Renderer) extractTable(out ExtractOutput, detail bool) {
	if detail {
		rows := make([][]string, 0, len(out.ColumnLineage))
		for _, cl := range out.ColumnLineage {
			rows = append(rows, []string{qualified(cl), string(cl.Transform), plainSources(cl.Sources)})
		}
		r.Table([]string{"Column", "Transform", "Sources"}, rows)
		return
	}
	rows := [][]string{
		{"source tables", strings.Join(out.SourceTables, ", ")},
		{"target tables", strings.Join(out.TargetTables, ", ")},
		{"columns", strings.Join(out.Columns, ", ")},
	}
	r.Table([]string{"Kind", "Names"}, rows)
}

func qualified(cl lineage.ColumnLineage) string {
	if cl.Table == "" {
		return cl.Column
	}
	return cl.Table + "." + cl.Column
}

func plainSources(sources []lineage.SourceColumn) string {
	parts := make([]string, len(sources))
	for i, s := range sources {
		parts[i] = s.String()
	}
	return strings.Join(parts, ", ")
}

func sourceList(sources []lineage.SourceColumn) string {
	if len(sources) == 0 {
		return "(no sources)"
	}
	return plainSources(sources)
}
