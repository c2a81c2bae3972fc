package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/shaweiguo/datahub/pkg/lineage"
)

func newTestRenderer(mode Mode) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	return NewRendererWithTTY(out, errOut, mode, false), out, errOut
}

func sampleOutput() ExtractOutput {
	return ExtractOutput{
		Source:   "query.sql",
		Strategy: "graph",
		Result: lineage.Result{
			SourceTables: []string{"db.t1"},
			TargetTables: []string{"db.t2"},
			Columns:      []string{"a", "c"},
			ColumnLineage: []lineage.ColumnLineage{
				{Table: "db.t2", Column: "a", Transform: lineage.TransformDirect, Sources: []lineage.SourceColumn{{Table: "db.t1", Column: "a"}}},
				{Table: "db.t2", Column: "c", Transform: lineage.TransformDirect, Sources: []lineage.SourceColumn{{Table: "db.t1", Column: "b"}}},
			},
		},
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeAuto, false},
		{"json", ModeJSON, false},
		{"JSON", ModeJSON, false},
		{"md", ModeMarkdown, false},
		{"yml", ModeYAML, false},
		{"table", ModeTable, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEffectiveMode(t *testing.T) {
	out := new(bytes.Buffer)
	assert.Equal(t, ModeText, NewRendererWithTTY(out, out, ModeAuto, true).EffectiveMode())
	assert.Equal(t, ModeMarkdown, NewRendererWithTTY(out, out, ModeAuto, false).EffectiveMode())
	assert.Equal(t, ModeJSON, NewRendererWithTTY(out, out, ModeJSON, true).EffectiveMode())
	assert.Equal(t, ModeMarkdown, NewRendererWithTTY(out, out, "", false).EffectiveMode())
	assert.False(t, NewRenderer(out, out, ModeAuto).IsTTY(), "a buffer is not a terminal")
}

func TestRenderNames(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeText)
		require.NoError(t, r.RenderNames("Tables", []string{"t1", "t2"}))
		assert.Equal(t, "t1\nt2\n", out.String())
	})

	t.Run("json", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeJSON)
		require.NoError(t, r.RenderNames("Tables", nil))
		var got []string
		require.NoError(t, json.Unmarshal(out.Bytes(), &got))
		assert.Equal(t, []string{}, got)
	})

	t.Run("markdown", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeMarkdown)
		require.NoError(t, r.RenderNames("Tables", []string{"t1"}))
		assert.Contains(t, out.String(), "## Tables")
		assert.Contains(t, out.String(), "- `t1`")
	})

	t.Run("table", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeTable)
		require.NoError(t, r.RenderNames("Columns", []string{"a", "b"}))
		assert.Contains(t, strings.ToLower(out.String()), "columns")
		assert.Contains(t, out.String(), "a")
	})
}

func TestRenderExtract_JSON(t *testing.T) {
	r, out, _ := newTestRenderer(ModeJSON)
	require.NoError(t, r.RenderExtract(sampleOutput(), false))

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "query.sql", got["source"])
	assert.Equal(t, []any{"db.t1"}, got["source_tables"])
	assert.NotContains(t, got, "column_lineage", "lineage needs --detail")
}

func TestRenderExtract_YAMLDetail(t *testing.T) {
	r, out, _ := newTestRenderer(ModeYAML)
	require.NoError(t, r.RenderExtract(sampleOutput(), true))

	var got struct {
		Source        string                  `yaml:"source"`
		SourceTables  []string                `yaml:"source_tables"`
		ColumnLineage []lineage.ColumnLineage `yaml:"column_lineage"`
	}
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "query.sql", got.Source)
	assert.Equal(t, []string{"db.t1"}, got.SourceTables)
	require.Len(t, got.ColumnLineage, 2)
	assert.Equal(t, "b", got.ColumnLineage[1].Sources[0].Column)
}

func TestRenderExtract_Markdown(t *testing.T) {
	r, out, _ := newTestRenderer(ModeMarkdown)
	require.NoError(t, r.RenderExtract(sampleOutput(), true))

	s := out.String()
	assert.Contains(t, s, "# query.sql")
	assert.Contains(t, s, "## Source tables")
	assert.Contains(t, s, "- `db.t1`")
	assert.Contains(t, s, "## Column lineage")
	assert.Contains(t, s, "db.t1.b")
}

func TestRenderExtract_TextDiagnostics(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeText)
	o := sampleOutput()
	o.Diagnostics = []lineage.Diagnostic{{Statement: 2, Kind: lineage.DiagSkippedStatement, Message: "boom"}}
	require.NoError(t, r.RenderExtract(o, true))

	assert.Contains(t, out.String(), "Source tables")
	assert.Contains(t, out.String(), "db.t2.c <- db.t1.b")
	assert.Contains(t, errOut.String(), "statement 2: skipped_statement: boom")
}

func TestRenderBatch(t *testing.T) {
	r, out, _ := newTestRenderer(ModeJSON)
	batch := BatchOutput{
		Records: []ExtractOutput{sampleOutput(), {Source: "bad.sql", Error: "not sql"}},
		Summary: BatchSummary{Files: 2, Failed: 1},
	}
	require.NoError(t, r.RenderBatch(batch, false))

	var got BatchOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got.Records, 2)
	assert.Equal(t, "not sql", got.Records[1].Error)
	assert.Equal(t, 1, got.Summary.Failed)
	assert.Nil(t, got.Records[0].ColumnLineage)
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "## Title", FormatHeader(2, "Title"))
	assert.Equal(t, "# Title", FormatHeader(0, "Title"))
	assert.Equal(t, "- **Key**: value", FormatKeyValue("Key", "value"))
	assert.Equal(t, "_none_", FormatList(nil))
	assert.Equal(t, "- `a`\n- `b`", FormatList([]string{"a", "b"}))
	assert.Equal(t, "```sql\nSELECT 1\n```", FormatCodeBlock("sql", "SELECT 1\n"))
}
